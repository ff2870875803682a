package dataprocessing

// Listing is one filtered row bound to the fields the partitioner and the
// summary aggregator key on. The full row stays available for export.
type Listing struct {
	PartnerID   string
	PartnerName Value
	SKU         Value
	Row         Row
}

// ListingSet is the validated record view of a derived table
type ListingSet struct {
	Listings []Listing
	// Columns is the column order of the source table
	Columns []string
	// HasPartnerName is false when the source carries no Partner Name column
	HasPartnerName bool
	// Unassigned counts rows without an ID Partner; they belong to no group
	Unassigned int
}

// BindListings builds the listing records of t once. ID Partner and SKU are
// required; Partner Name is optional at this stage.
func BindListings(t *Table) (*ListingSet, error) {
	if err := RequireColumns(t, "bind", ColPartnerID, ColSKU); err != nil {
		return nil, err
	}

	set := &ListingSet{
		Listings:       make([]Listing, 0, t.Len()),
		Columns:        t.Columns(),
		HasPartnerName: t.HasColumn(ColPartnerName),
	}
	for _, r := range t.Rows() {
		id := r.Value(ColPartnerID)
		if id.IsMissing() {
			set.Unassigned++
			continue
		}
		set.Listings = append(set.Listings, Listing{
			PartnerID:   id.String(),
			PartnerName: r.Value(ColPartnerName),
			SKU:         r.Value(ColSKU),
			Row:         r,
		})
	}
	return set, nil
}

// HasColumn reports whether the source table carried the named column
func (s *ListingSet) HasColumn(name string) bool {
	for _, c := range s.Columns {
		if c == name {
			return true
		}
	}
	return false
}

// DistinctSKUs counts the distinct non-missing SKU values of listings
func DistinctSKUs(listings []Listing) int {
	seen := make(map[string]struct{}, len(listings))
	for _, l := range listings {
		if l.SKU.IsMissing() {
			continue
		}
		seen[l.SKU.String()] = struct{}{}
	}
	return len(seen)
}
