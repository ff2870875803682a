package testutil

import (
	"bytes"
	"encoding/csv"
	"testing"

	"github.com/xuri/excelize/v2"
)

// PriceCompHeader is a complete listings export header
var PriceCompHeader = []string{
	"Psku", "SKU", "Title En", "ID Partner", "Partner Name", "Price Comp Bucket",
	"Offer Price", "Latest Comp Price All", "Comp Bb Seller Name", "SKU Config", "Comp Link",
}

// ListingRow describes one listing by field name. Empty fields become empty
// cells.
type ListingRow struct {
	PSKU, SKU, Title           string
	PartnerID, PartnerName     string
	Bucket                     string
	OfferPrice, CompPrice      string
	CompSeller, SKUConfig, URL string
}

func (r ListingRow) cells() []string {
	return []string{
		r.PSKU, r.SKU, r.Title, r.PartnerID, r.PartnerName, r.Bucket,
		r.OfferPrice, r.CompPrice, r.CompSeller, r.SKUConfig, r.URL,
	}
}

// SampleListings is a small mixed-bucket export across three partners. Four
// rows are in scope, one of them with a lowercase bucket; the OTHER row is not.
func SampleListings() []ListingRow {
	return []ListingRow{
		{PSKU: "P1", SKU: "S1", Title: "Kettle", PartnerID: "p1", PartnerName: "Acme", Bucket: "NC",
			OfferPrice: "10", CompPrice: "12", CompSeller: "Rival", SKUConfig: "N100", URL: "http://x/1"},
		{PSKU: "P2", SKU: "S2", Title: "Toaster", PartnerID: "p1", PartnerName: "Acme", Bucket: "NCO",
			OfferPrice: "5.5", CompPrice: "n/a", CompSeller: "Rival", SKUConfig: "N200", URL: "http://x/2"},
		{PSKU: "P3", SKU: "S3", Title: "Blender", PartnerID: "p2", PartnerName: "Beta", Bucket: "NC",
			OfferPrice: "7", CompPrice: "9", CompSeller: "Other", SKUConfig: "N300", URL: "http://x/3"},
		{PSKU: "P4", SKU: "S4", Title: "Mixer", PartnerID: "p2", PartnerName: "Beta", Bucket: "OTHER",
			OfferPrice: "1", CompPrice: "2", CompSeller: "Other", SKUConfig: "N400", URL: "http://x/4"},
		{PSKU: "P5", SKU: "S5", Title: "Grill", PartnerID: "p3", PartnerName: "Gamma", Bucket: "nco",
			OfferPrice: "3", CompPrice: "4", CompSeller: "Other", SKUConfig: "N500", URL: "http://x/5"},
	}
}

// CSV renders header and rows as CSV bytes
func CSV(t testing.TB, header []string, rows ...[]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(header); err != nil {
		t.Fatalf("write csv header: %v", err)
	}
	if err := w.WriteAll(rows); err != nil {
		t.Fatalf("write csv rows: %v", err)
	}
	return buf.Bytes()
}

// ListingsCSV renders listings under PriceCompHeader
func ListingsCSV(t testing.TB, listings ...ListingRow) []byte {
	t.Helper()
	rows := make([][]string, len(listings))
	for i, l := range listings {
		rows[i] = l.cells()
	}
	return CSV(t, PriceCompHeader, rows...)
}

// XLSX renders header and rows of text cells into the first sheet of a
// workbook
func XLSX(t testing.TB, header []string, rows ...[]string) []byte {
	t.Helper()
	values := make([][]interface{}, len(rows))
	for i, r := range rows {
		values[i] = make([]interface{}, len(r))
		for j, c := range r {
			values[i][j] = c
		}
	}
	return XLSXCells(t, header, values...)
}

// XLSXCells is XLSX with typed cells: numbers are stored as numeric cells and
// strings as text. Rows may be wider than the header.
func XLSXCells(t testing.TB, header []string, rows ...[]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	write := func(rowNum int, values []interface{}) {
		cell, _ := excelize.CoordinatesToCellName(1, rowNum)
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			t.Fatalf("write xlsx row %d: %v", rowNum, err)
		}
	}
	head := make([]interface{}, len(header))
	for i, h := range header {
		head[i] = h
	}
	write(1, head)
	for i, r := range rows {
		write(i+2, r)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		t.Fatalf("encode xlsx: %v", err)
	}
	return buf.Bytes()
}

// ListingsXLSX renders listings under PriceCompHeader as a workbook
func ListingsXLSX(t testing.TB, listings ...ListingRow) []byte {
	t.Helper()
	rows := make([][]string, len(listings))
	for i, l := range listings {
		rows[i] = l.cells()
	}
	return XLSX(t, PriceCompHeader, rows...)
}
