package exporter

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zip"
)

// ArchiveMIMEType is the media type of a run archive
const ArchiveMIMEType = "application/zip"

// Archive is a packaged run ready for download
type Archive struct {
	Name     string
	MIMEType string
	Bytes    []byte
}

// BuildArchive compresses files into an in-memory zip. Entries are stored
// flat under their base names, in the given order. Every source file is
// closed before BuildArchive returns.
func BuildArchive(name string, files []string, modified time.Time) (*Archive, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)

	for _, path := range files {
		if err := addFile(zw, path, modified); err != nil {
			zw.Close()
			return nil, err
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("failed to finalize archive: %w", err)
	}

	return &Archive{
		Name:     name,
		MIMEType: ArchiveMIMEType,
		Bytes:    buf.Bytes(),
	}, nil
}

func addFile(zw *zip.Writer, path string, modified time.Time) error {
	src, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s for archiving: %w", path, err)
	}
	defer src.Close()

	w, err := zw.CreateHeader(&zip.FileHeader{
		Name:     filepath.Base(path),
		Method:   zip.Deflate,
		Modified: modified,
	})
	if err != nil {
		return fmt.Errorf("failed to add %s to archive: %w", filepath.Base(path), err)
	}
	if _, err := io.Copy(w, src); err != nil {
		return fmt.Errorf("failed to compress %s: %w", filepath.Base(path), err)
	}
	return nil
}
