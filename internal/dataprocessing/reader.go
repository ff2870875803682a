package dataprocessing

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// SourceKind identifies how an upload is decoded
type SourceKind string

const (
	SourceCSV         SourceKind = "csv"
	SourceSpreadsheet SourceKind = "spreadsheet"
)

// DetectSource picks the decoder from the filename extension. Only ".csv"
// selects delimited text; every other name is treated as a workbook.
func DetectSource(filename string) SourceKind {
	if strings.EqualFold(filepath.Ext(filename), ".csv") {
		return SourceCSV
	}
	return SourceSpreadsheet
}

// ReadTable parses r into a Table, choosing the decoder from filename.
// Column names are trimmed of surrounding whitespace. Workbook cells stored
// as numbers become numeric values; every other cell is text.
func ReadTable(r io.Reader, filename string) (*Table, error) {
	kind := DetectSource(filename)
	var (
		records [][]rawCell
		err     error
	)
	switch kind {
	case SourceCSV:
		records, err = readCSVRecords(r)
	default:
		records, err = readSheetRecords(r)
	}
	if err != nil {
		return nil, &FormatError{Filename: filename, Reason: "unparsable content", Err: err}
	}
	return buildTable(filename, kind, records)
}

// rawCell is one source cell before typing
type rawCell struct {
	text string
	// numeric marks a workbook cell stored as a number
	numeric bool
}

func (c rawCell) value() Value {
	if c.numeric {
		if d, err := decimal.NewFromString(c.text); err == nil {
			return Number(d)
		}
	}
	return Text(c.text)
}

// readCSVRecords decodes UTF-8 comma-separated text. A leading byte-order mark
// is consumed; invalid UTF-8 is rejected.
func readCSVRecords(r io.Reader) ([][]rawCell, error) {
	decoded := transform.NewReader(r, transform.Chain(
		unicode.BOMOverride(transform.Nop),
		encoding.UTF8Validator,
	))

	cr := csv.NewReader(decoded)
	cr.FieldsPerRecord = -1

	var records [][]rawCell
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		cells := make([]rawCell, len(rec))
		for i, text := range rec {
			cells[i] = rawCell{text: text}
		}
		records = append(records, cells)
	}

	return records, nil
}

// readSheetRecords reads the first worksheet of a workbook with raw,
// unformatted cell values.
func readSheetRecords(r io.Reader) ([][]rawCell, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	sheet := sheets[0]
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, err
	}

	records := make([][]rawCell, len(rows))
	for i, row := range rows {
		cells := make([]rawCell, len(row))
		for j, text := range row {
			cells[j] = rawCell{text: text}
			if !looksNumeric(text) {
				continue
			}
			name, err := excelize.CoordinatesToCellName(j+1, i+1)
			if err != nil {
				return nil, err
			}
			// numbers carry type "n" or no type at all
			typ, err := f.GetCellType(sheet, name)
			if err != nil {
				return nil, err
			}
			cells[j].numeric = typ == excelize.CellTypeNumber || typ == excelize.CellTypeUnset
		}
		records[i] = cells
	}
	return records, nil
}

func looksNumeric(s string) bool {
	_, err := decimal.NewFromString(s)
	return err == nil
}

// buildTable turns raw records into a Table. The first non-blank record is the
// header; blank records are dropped. A workbook header is widened to the
// rightmost non-blank cell of any record; a delimited row that outgrows its
// header is rejected.
func buildTable(filename string, kind SourceKind, records [][]rawCell) (*Table, error) {
	records = dropBlankRecords(records)
	if len(records) == 0 {
		return nil, &FormatError{Filename: filename, Reason: "no header row"}
	}

	header := texts(records[0])
	if kind == SourceSpreadsheet {
		if width := usedWidth(records); width > len(header) {
			header = append(header, make([]string, width-len(header))...)
		}
	}
	columns := normalizeHeader(header)
	t, err := NewTable(columns)
	if err != nil {
		return nil, &FormatError{Filename: filename, Reason: "invalid header", Err: err}
	}

	for i, rec := range records[1:] {
		if len(rec) > len(columns) {
			// trailing cells past the header carry nothing
			if !isBlank(rec[len(columns):]) {
				return nil, &FormatError{
					Filename: filename,
					Reason:   fmt.Sprintf("row %d has %d cells, header has %d", i+2, len(rec), len(columns)),
				}
			}
			rec = rec[:len(columns)]
		}
		values := make([]Value, len(rec))
		for j, c := range rec {
			values[j] = c.value()
		}
		if err := t.Append(values...); err != nil {
			return nil, &FormatError{Filename: filename, Reason: "invalid row", Err: err}
		}
	}
	return t, nil
}

// normalizeHeader trims names, labels blank ones by position and makes
// duplicates unique with a numeric suffix.
func normalizeHeader(raw []string) []string {
	columns := make([]string, len(raw))
	used := make(map[string]bool, len(raw))
	for i, name := range raw {
		name = strings.TrimSpace(name)
		if name == "" {
			name = fmt.Sprintf("Unnamed: %d", i)
		}
		candidate := name
		for n := 1; used[candidate]; n++ {
			candidate = fmt.Sprintf("%s.%d", name, n)
		}
		used[candidate] = true
		columns[i] = candidate
	}
	return columns
}

// usedWidth is one past the rightmost non-blank cell of any record
func usedWidth(records [][]rawCell) int {
	width := 0
	for _, rec := range records {
		for j := len(rec) - 1; j >= width; j-- {
			if strings.TrimSpace(rec[j].text) != "" {
				width = j + 1
				break
			}
		}
	}
	return width
}

func texts(cells []rawCell) []string {
	out := make([]string, len(cells))
	for i, c := range cells {
		out[i] = c.text
	}
	return out
}

func dropBlankRecords(records [][]rawCell) [][]rawCell {
	out := records[:0:0]
	for _, rec := range records {
		if !isBlank(rec) {
			out = append(out, rec)
		}
	}
	return out
}

func isBlank(cells []rawCell) bool {
	for _, c := range cells {
		if strings.TrimSpace(c.text) != "" {
			return false
		}
	}
	return true
}
