package exporter

import (
	"fmt"
	"strings"
	"time"

	"pricecomp/internal/dataprocessing"
)

const (
	// SummaryFileName is the master summary workbook inside the archive
	SummaryFileName = "Partner_PriceComp_Counts.xlsx"
	// PartnerFileSuffix ends every partner workbook name
	PartnerFileSuffix = "_PriceComp.xlsx"
)

// ArchiveName returns the archive name for a run at t: Comp_<dd>-<mm>.zip in
// t's location. Runs on the same day share a name.
func ArchiveName(t time.Time) string {
	return fmt.Sprintf("Comp_%s.zip", t.Format("02-01"))
}

// fileNamer hands out workbook names that never repeat within one run.
// Names are compared case-insensitively so they stay distinct on
// case-insensitive filesystems.
type fileNamer struct {
	used map[string]bool
}

func newFileNamer() *fileNamer {
	n := &fileNamer{used: make(map[string]bool)}
	n.claim(SummaryFileName)
	return n
}

func (n *fileNamer) claim(name string) bool {
	key := strings.ToLower(name)
	if n.used[key] {
		return false
	}
	n.used[key] = true
	return true
}

// partnerFile returns <label>_PriceComp.xlsx, or on a collision the label
// suffixed with the partner id, then with a counter.
func (n *fileNamer) partnerFile(label, partnerID string) string {
	name := label + PartnerFileSuffix
	if n.claim(name) {
		return name
	}

	base := label
	if id := dataprocessing.SanitizeLabel(partnerID); id != "" {
		base = label + "_" + id
		name = base + PartnerFileSuffix
		if n.claim(name) {
			return name
		}
	}

	for i := 2; ; i++ {
		name = fmt.Sprintf("%s_%d%s", base, i, PartnerFileSuffix)
		if n.claim(name) {
			return name
		}
	}
}
