package dataprocessing

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pricecomp/internal/shared/testutil"
)

func sampleTable(t *testing.T, listings ...testutil.ListingRow) *Table {
	t.Helper()
	if len(listings) == 0 {
		listings = testutil.SampleListings()
	}
	tbl, err := ReadTable(bytes.NewReader(testutil.ListingsCSV(t, listings...)), "master.csv")
	require.NoError(t, err)
	return tbl
}

func derivedListings(t *testing.T, listings ...testutil.ListingRow) *ListingSet {
	t.Helper()
	filtered, err := FilterBuckets(sampleTable(t, listings...))
	require.NoError(t, err)
	derived, err := DeriveFields(filtered)
	require.NoError(t, err)
	set, err := BindListings(derived)
	require.NoError(t, err)
	return set
}

func TestFilterBuckets(t *testing.T) {
	t.Run("keeps NC and NCO case-insensitively", func(t *testing.T) {
		out, err := FilterBuckets(sampleTable(t))

		require.NoError(t, err)
		var skus []string
		for _, r := range out.Rows() {
			skus = append(skus, r.Value(ColSKU).String())
		}
		assert.Equal(t, []string{"S1", "S2", "S3", "S5"}, skus)
	})

	t.Run("no matching rows", func(t *testing.T) {
		rows := testutil.SampleListings()
		for i := range rows {
			rows[i].Bucket = "NC-OTHER"
		}

		_, err := FilterBuckets(sampleTable(t, rows...))

		assert.ErrorIs(t, err, ErrNoMatchingRows)
	})

	t.Run("missing bucket column", func(t *testing.T) {
		_, err := FilterBuckets(MustNewTable(ColSKU))

		var se *SchemaError
		require.True(t, errors.As(err, &se))
		assert.Equal(t, []string{ColBucket}, se.Missing)
	})
}

func TestIsAllowedBucket(t *testing.T) {
	tests := []struct {
		value Value
		want  bool
	}{
		{Text("NC"), true},
		{Text("nco"), true},
		{Text("Nc"), true},
		{Text(" NC"), false},
		{Text("NCX"), false},
		{Missing(), false},
		{ToNumeric(Text("1")), false},
	}

	for _, tt := range tests {
		t.Run(tt.value.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, IsAllowedBucket(tt.value))
		})
	}
}

func TestDeriveFields(t *testing.T) {
	filtered, err := FilterBuckets(sampleTable(t))
	require.NoError(t, err)

	out, err := DeriveFields(filtered)
	require.NoError(t, err)

	require.Equal(t, filtered.Len(), out.Len())
	assert.True(t, out.HasColumn(ColAdjustment))
	assert.True(t, out.HasColumn(ColNoonLink))
	assert.False(t, filtered.HasColumn(ColAdjustment), "source table must not change")

	first := out.Rows()[0]
	assert.Equal(t, "-2", first.Value(ColAdjustment).String())
	link, ok := first.Value(ColNoonLink).Link()
	require.True(t, ok)
	assert.Equal(t, "http://noon.com/egypt-en/N100/p/", link.URL)
	assert.Equal(t, CatalogLinkLabel, link.Label)
	comp, ok := first.Value(ColCompLink).Link()
	require.True(t, ok)
	assert.Equal(t, Link{URL: "http://x/1", Label: CompLinkLabel}, comp)

	second := out.Rows()[1]
	assert.True(t, second.Value(ColLatestCompPrice).IsMissing(), "n/a is not a price")
	assert.True(t, second.Value(ColAdjustment).IsMissing())
	assert.True(t, second.Value(ColOfferPrice).IsNumber())
}

func TestDeriveFieldsMissingColumns(t *testing.T) {
	_, err := DeriveFields(MustNewTable(ColOfferPrice, ColSKUConfig))

	var se *SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, []string{ColLatestCompPrice, ColCompLink}, se.Missing)
}

func TestSubtract(t *testing.T) {
	tests := []struct {
		a, b string
		want string
	}{
		{"10", "12", "-2"},
		{"5.5", "0.25", "5.25"},
		{"0.1", "0.2", "-0.1"},
		{"10", "n/a", ""},
		{"", "3", ""},
		{" 7 ", "2", "5"},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%s-%s", tt.a, tt.b), func(t *testing.T) {
			assert.Equal(t, tt.want, Subtract(Text(tt.a), Text(tt.b)).String())
		})
	}
}

func TestLinkFormula(t *testing.T) {
	l := Link{URL: `http://x/?q="a"` + "\n", Label: CompLinkLabel}

	assert.Equal(t, `=HYPERLINK("http://x/?q=""a""", "View Competitor")`, l.Formula())
	assert.Equal(t, "http://noon.com/egypt-en/a%2Fb/p/", CatalogLink("a/b").URL)
}

func TestBindListings(t *testing.T) {
	rows := testutil.SampleListings()
	rows[0].PartnerID = ""

	set := derivedListings(t, rows...)

	assert.Equal(t, 1, set.Unassigned)
	assert.Len(t, set.Listings, 3)
	assert.True(t, set.HasPartnerName)
	assert.True(t, set.HasColumn(ColNoonLink))
}

func TestPartition(t *testing.T) {
	rows := []testutil.ListingRow{
		{SKU: "A1", PartnerID: "p9", PartnerName: "Zed", Bucket: "NC", SKUConfig: "c", URL: "u"},
		{SKU: "B1", PartnerID: "p1", PartnerName: "Acme", Bucket: "NC", SKUConfig: "c", URL: "u"},
		{SKU: "A2", PartnerID: "p9", PartnerName: "Zed Renamed", Bucket: "NCO", SKUConfig: "c", URL: "u"},
		{SKU: "C1", PartnerID: "p4", PartnerName: "", Bucket: "NC", SKUConfig: "c", URL: "u"},
		{SKU: "D1", PartnerID: "p5", PartnerName: "***", Bucket: "NC", SKUConfig: "c", URL: "u"},
	}

	groups := Partition(derivedListings(t, rows...))

	require.Len(t, groups, 4)
	assert.Equal(t, []string{"p9", "p1", "p4", "p5"}, []string{groups[0].ID, groups[1].ID, groups[2].ID, groups[3].ID})
	assert.Equal(t, "Zed", groups[0].DisplayName, "first occurrence names the group")
	assert.Len(t, groups[0].Listings, 2)
	assert.Equal(t, "Partner_p4", groups[2].DisplayName)
	assert.Equal(t, "Partner_p4", groups[2].Label)
	assert.Equal(t, "***", groups[3].DisplayName)
	assert.Equal(t, "Partner_p5", groups[3].Label)
}

// TestPartitionCoversEveryListing checks that every assigned listing lands in
// exactly one group and that groups never share a partner id.
func TestPartitionCoversEveryListing(t *testing.T) {
	var rows []testutil.ListingRow
	for i := 0; i < 60; i++ {
		rows = append(rows, testutil.ListingRow{
			SKU:         fmt.Sprintf("S%d", i%17),
			PartnerID:   fmt.Sprintf("p%d", i%7),
			PartnerName: fmt.Sprintf("Partner %d", i%7),
			Bucket:      []string{"NC", "nco", "OTHER"}[i%3],
			SKUConfig:   "c",
			URL:         "u",
		})
	}
	set := derivedListings(t, rows...)

	groups := Partition(set)

	seen := make(map[string]bool)
	total := 0
	for _, g := range groups {
		assert.False(t, seen[g.ID], "partner %s grouped twice", g.ID)
		seen[g.ID] = true
		for _, l := range g.Listings {
			assert.Equal(t, g.ID, l.PartnerID)
		}
		total += len(g.Listings)
	}
	assert.Equal(t, len(set.Listings), total)
}

func TestSanitizeLabel(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"Acme Ltd.", "Acme Ltd"},
		{"  a/b\\c  ", "abc"},
		{"Ünïcode Store", "ncode Store"},
		{"under_score-dash", "under_score-dash"},
		{"", ""},
		{strings.Repeat("x", 60), strings.Repeat("x", MaxLabelLength)},
		{strings.Repeat("y", 49) + " z", strings.Repeat("y", 49)},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, SanitizeLabel(tt.in))
		})
	}
}

func TestSummarize(t *testing.T) {
	rows := []testutil.ListingRow{
		{SKU: "A", PartnerID: "p1", PartnerName: "One", Bucket: "NC", SKUConfig: "c", URL: "u"},
		{SKU: "A", PartnerID: "p2", PartnerName: "Two", Bucket: "NC", SKUConfig: "c", URL: "u"},
		{SKU: "B", PartnerID: "p2", PartnerName: "Two", Bucket: "NC", SKUConfig: "c", URL: "u"},
		{SKU: "B", PartnerID: "p2", PartnerName: "Two", Bucket: "NCO", SKUConfig: "c", URL: "u"},
		{SKU: "C", PartnerID: "p3", PartnerName: "Three", Bucket: "NC", SKUConfig: "c", URL: "u"},
		{SKU: "", PartnerID: "p3", PartnerName: "Three", Bucket: "NC", SKUConfig: "c", URL: "u"},
	}

	summary, err := Summarize(derivedListings(t, rows...))

	require.NoError(t, err)
	assert.Equal(t, []SummaryRow{
		{PartnerID: "p2", PartnerName: "Two", SKUCount: 2},
		{PartnerID: "p1", PartnerName: "One", SKUCount: 1},
		{PartnerID: "p3", PartnerName: "Three", SKUCount: 1},
	}, summary)
}

func TestSummarizeKeysOnNameToo(t *testing.T) {
	rows := []testutil.ListingRow{
		{SKU: "A", PartnerID: "p1", PartnerName: "Old", Bucket: "NC", SKUConfig: "c", URL: "u"},
		{SKU: "B", PartnerID: "p1", PartnerName: "New", Bucket: "NC", SKUConfig: "c", URL: "u"},
	}

	summary, err := Summarize(derivedListings(t, rows...))

	require.NoError(t, err)
	assert.Len(t, summary, 2)
}

func TestSummarizeMissingNameJoinsPartner(t *testing.T) {
	tests := []struct {
		name string
		rows []testutil.ListingRow
	}{
		{
			name: "named_first",
			rows: []testutil.ListingRow{
				{SKU: "A", PartnerID: "p1", PartnerName: "Acme", Bucket: "NC", SKUConfig: "c", URL: "u"},
				{SKU: "B", PartnerID: "p1", PartnerName: "", Bucket: "NC", SKUConfig: "c", URL: "u"},
			},
		},
		{
			name: "blank_first",
			rows: []testutil.ListingRow{
				{SKU: "B", PartnerID: "p1", PartnerName: "", Bucket: "NC", SKUConfig: "c", URL: "u"},
				{SKU: "A", PartnerID: "p1", PartnerName: "Acme", Bucket: "NCO", SKUConfig: "c", URL: "u"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			set := derivedListings(t, tt.rows...)

			summary, err := Summarize(set)
			require.NoError(t, err)
			groups := Partition(set)

			assert.Equal(t, []SummaryRow{{PartnerID: "p1", PartnerName: "Acme", SKUCount: 2}}, summary)
			require.Len(t, groups, 1)
			assert.Equal(t, "Acme", groups[0].DisplayName)
			assert.Equal(t, "Acme", groups[0].Label)
			assert.Equal(t, summary[0].SKUCount, groups[0].SKUCount())
		})
	}
}

func TestSummarizeNamelessPartner(t *testing.T) {
	rows := []testutil.ListingRow{
		{SKU: "A", PartnerID: "p9", Bucket: "NC", SKUConfig: "c", URL: "u"},
		{SKU: "B", PartnerID: "p9", Bucket: "NC", SKUConfig: "c", URL: "u"},
	}
	set := derivedListings(t, rows...)

	summary, err := Summarize(set)

	require.NoError(t, err)
	assert.Equal(t, []SummaryRow{{PartnerID: "p9", PartnerName: "Partner_p9", SKUCount: 2}}, summary)
	assert.Equal(t, map[string]string{"p9": "Partner_p9"}, DisplayNames(set))
}

func TestSummarizeRequiresPartnerName(t *testing.T) {
	tbl := MustNewTable(ColPartnerID, ColSKU)
	require.NoError(t, tbl.Append(Text("p1"), Text("S1")))
	set, err := BindListings(tbl)
	require.NoError(t, err)

	_, err = Summarize(set)

	var se *SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, []string{ColPartnerName}, se.Missing)
}

func TestTopPartners(t *testing.T) {
	rows := []SummaryRow{{PartnerID: "a"}, {PartnerID: "b"}, {PartnerID: "c"}}

	assert.Len(t, TopPartners(rows, 2), 2)
	assert.Len(t, TopPartners(rows, 10), 3)
	assert.Empty(t, TopPartners(rows, -1))
}
