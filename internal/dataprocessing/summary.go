package dataprocessing

import "sort"

// SummaryRow is the distinct-SKU count of one (ID Partner, Partner Name) pair
type SummaryRow struct {
	PartnerID   string `json:"partner_id"`
	PartnerName string `json:"partner_name"`
	SKUCount    int    `json:"nc_nco_sku_count"`
}

// Summarize counts distinct SKUs per (ID Partner, Partner Name) pair and sorts
// the rows by count, descending. Equal counts keep first-seen order. A row
// without a Partner Name counts under its partner's display name.
func Summarize(set *ListingSet) ([]SummaryRow, error) {
	if !set.HasPartnerName {
		return nil, &SchemaError{Stage: "summary", Missing: []string{ColPartnerName}}
	}

	type key struct{ id, name string }
	var (
		order  []key
		groups = make(map[key][]Listing)
	)
	names := DisplayNames(set)
	for _, l := range set.Listings {
		k := key{id: l.PartnerID, name: l.PartnerName.String()}
		if l.PartnerName.IsMissing() {
			k.name = names[l.PartnerID]
		}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], l)
	}

	rows := make([]SummaryRow, 0, len(order))
	for _, k := range order {
		rows = append(rows, SummaryRow{
			PartnerID:   k.id,
			PartnerName: k.name,
			SKUCount:    DistinctSKUs(groups[k]),
		})
	}
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].SKUCount > rows[j].SKUCount
	})
	return rows, nil
}

// TopPartners returns the first n summary rows
func TopPartners(rows []SummaryRow, n int) []SummaryRow {
	if n > len(rows) {
		n = len(rows)
	}
	if n < 0 {
		n = 0
	}
	top := make([]SummaryRow, n)
	copy(top, rows[:n])
	return top
}
