package exporter

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"pricecomp/internal/dataprocessing"
)

// Sheet names of the partner workbooks
const (
	DataSheetName    = "PriceComp"
	SummarySheetName = "Summary"
)

// WorkbookExporter writes the summary workbook and one workbook per partner
// into a staging directory and remembers every file it produced, in order.
type WorkbookExporter struct {
	dir    string
	logger *slog.Logger
	namer  *fileNamer
	files  []string
}

// NewWorkbookExporter creates an exporter writing into dir
func NewWorkbookExporter(dir string, logger *slog.Logger) *WorkbookExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &WorkbookExporter{
		dir:    dir,
		logger: logger.With(slog.String("component", "workbook_exporter")),
		namer:  newFileNamer(),
	}
}

// Files returns the paths written so far, in write order
func (e *WorkbookExporter) Files() []string {
	files := make([]string, len(e.files))
	copy(files, e.files)
	return files
}

// WriteSummary writes the master summary workbook with a single sheet
func (e *WorkbookExporter) WriteSummary(rows []dataprocessing.SummaryRow) (string, error) {
	path := filepath.Join(e.dir, SummaryFileName)

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	header := []string{dataprocessing.ColPartnerID, dataprocessing.ColPartnerName, dataprocessing.ColSKUCount}
	if err := writeHeader(f, sheet, header); err != nil {
		return "", &ExportError{File: SummaryFileName, Err: err}
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(sheet, cell, &[]interface{}{r.PartnerID, r.PartnerName, r.SKUCount}); err != nil {
			return "", &ExportError{File: SummaryFileName, Err: err}
		}
	}
	if err := f.SaveAs(path); err != nil {
		return "", &ExportError{File: SummaryFileName, Err: err}
	}

	e.files = append(e.files, path)
	e.logger.Info("summary workbook written",
		slog.String("file", SummaryFileName),
		slog.Int("partners", len(rows)))
	return path, nil
}

// WritePartner writes one partner workbook: a data sheet with the export
// columns present in the source, and a one-row summary sheet.
func (e *WorkbookExporter) WritePartner(g dataprocessing.PartnerGroup, sourceColumns []string) (string, error) {
	name := e.namer.partnerFile(g.Label, g.ID)
	path := filepath.Join(e.dir, name)
	wrap := func(err error) error {
		return &ExportError{PartnerID: g.ID, Label: g.Label, File: name, Err: err}
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), DataSheetName); err != nil {
		return "", wrap(err)
	}
	if err := writeListings(f, DataSheetName, SelectColumns(sourceColumns), g.Listings); err != nil {
		return "", wrap(err)
	}

	if _, err := f.NewSheet(SummarySheetName); err != nil {
		return "", wrap(err)
	}
	if err := writeHeader(f, SummarySheetName, []string{"Partner ID", dataprocessing.ColPartnerName, dataprocessing.ColSKUCount}); err != nil {
		return "", wrap(err)
	}
	if err := f.SetSheetRow(SummarySheetName, "A2", &[]interface{}{g.ID, g.DisplayName, g.SKUCount()}); err != nil {
		return "", wrap(err)
	}

	if err := f.SaveAs(path); err != nil {
		return "", wrap(err)
	}

	e.files = append(e.files, path)
	e.logger.Debug("partner workbook written",
		slog.String("partner_id", g.ID),
		slog.String("file", name),
		slog.Int("rows", len(g.Listings)))
	return path, nil
}

// SelectColumns returns the export columns present in columns, in export order
func SelectColumns(columns []string) []string {
	present := make(map[string]bool, len(columns))
	for _, c := range columns {
		present[c] = true
	}
	var selected []string
	for _, c := range dataprocessing.ExportColumns {
		if present[c] {
			selected = append(selected, c)
		}
	}
	return selected
}

func writeHeader(f *excelize.File, sheet string, header []string) error {
	row := make([]interface{}, len(header))
	for i, h := range header {
		row[i] = h
	}
	if err := f.SetSheetRow(sheet, "A1", &row); err != nil {
		return err
	}
	if len(header) == 0 {
		return nil
	}
	style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(header), 1)
	return f.SetCellStyle(sheet, "A1", last, style)
}

func writeListings(f *excelize.File, sheet string, columns []string, listings []dataprocessing.Listing) error {
	if err := writeHeader(f, sheet, columns); err != nil {
		return err
	}

	linkStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Color: "1265BE", Underline: "single"}})
	if err != nil {
		return err
	}

	for i, l := range listings {
		for j, col := range columns {
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return err
			}
			if err := writeValue(f, sheet, cell, l.Row.Value(col), linkStyle); err != nil {
				return fmt.Errorf("row %d column %q: %w", i+2, col, err)
			}
		}
	}
	return nil
}

// writeValue writes one cell. Links become real hyperlink cells; once the
// sheet's hyperlink limit is reached they fall back to a HYPERLINK formula.
func writeValue(f *excelize.File, sheet, cell string, v dataprocessing.Value, linkStyle int) error {
	if v.IsMissing() {
		return nil
	}
	if d, ok := v.Decimal(); ok {
		return f.SetCellValue(sheet, cell, d.InexactFloat64())
	}
	l, ok := v.Link()
	if !ok {
		return f.SetCellStr(sheet, cell, v.String())
	}

	if err := f.SetCellStr(sheet, cell, l.Label); err != nil {
		return err
	}
	display := l.Label
	err := f.SetCellHyperLink(sheet, cell, l.URL, "External", excelize.HyperlinkOpts{Display: &display})
	if errors.Is(err, excelize.ErrTotalSheetHyperlinks) {
		err = f.SetCellFormula(sheet, cell, strings.TrimPrefix(l.Formula(), "="))
	}
	if err != nil {
		return err
	}
	return f.SetCellStyle(sheet, cell, cell, linkStyle)
}
