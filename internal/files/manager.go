package files

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Manager owns the root directory that run staging areas are created under.
// An empty root means the system temporary directory.
type Manager struct {
	root   string
	logger *slog.Logger
}

// NewManager creates a new file manager instance
func NewManager(root string, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		root:   root,
		logger: logger.With(slog.String("component", "files")),
	}
}

// NewStagingArea creates a fresh, uniquely named directory for one run.
// The caller must Close it on every exit path.
func (m *Manager) NewStagingArea(prefix string) (*StagingArea, error) {
	if m.root != "" {
		if err := os.MkdirAll(m.root, 0755); err != nil {
			return nil, fmt.Errorf("failed to create staging root: %w", err)
		}
	}

	dir, err := os.MkdirTemp(m.root, prefix+"-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}

	m.logger.Debug("Created staging area", slog.String("dir", dir))
	return &StagingArea{dir: dir, logger: m.logger}, nil
}

// WriteFile writes data to path, creating parent directories as needed
func (m *Manager) WriteFile(path string, data []byte) error {
	m.logger.Info("Writing file",
		slog.String("path", path),
		slog.Int("size_bytes", len(data)))

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// StagingArea is a scoped temporary directory. Close removes it and
// everything in it.
type StagingArea struct {
	dir    string
	logger *slog.Logger
	closed bool
}

// Dir returns the staging directory
func (s *StagingArea) Dir() string {
	return s.dir
}

// Close removes the staging directory. It is safe to call more than once.
func (s *StagingArea) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true

	if err := os.RemoveAll(s.dir); err != nil {
		s.logger.Error("Failed to remove staging area",
			slog.String("dir", s.dir),
			slog.String("error", err.Error()))
		return fmt.Errorf("failed to remove staging directory: %w", err)
	}
	s.logger.Debug("Removed staging area", slog.String("dir", s.dir))
	return nil
}
