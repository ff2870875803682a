package dataprocessing

import "strings"

// MaxLabelLength bounds a sanitized partner label before any suffix
const MaxLabelLength = 50

// PartnerGroup is every listing of one partner, in first-occurrence order
type PartnerGroup struct {
	ID          string
	DisplayName string
	// Label is the filesystem-safe form of DisplayName, never empty
	Label    string
	Listings []Listing
}

// SKUCount is the distinct-SKU count of the group
func (g PartnerGroup) SKUCount() int {
	return DistinctSKUs(g.Listings)
}

// Partition groups listings by ID Partner. Groups are ordered by the first
// appearance of each partner id, not by id value.
func Partition(set *ListingSet) []PartnerGroup {
	var groups []PartnerGroup
	pos := make(map[string]int)
	names := DisplayNames(set)
	for _, l := range set.Listings {
		i, ok := pos[l.PartnerID]
		if !ok {
			name := names[l.PartnerID]
			groups = append(groups, PartnerGroup{
				ID:          l.PartnerID,
				DisplayName: name,
				Label:       PartnerLabel(l.PartnerID, name),
			})
			i = len(groups) - 1
			pos[l.PartnerID] = i
		}
		groups[i].Listings = append(groups[i].Listings, l)
	}
	return groups
}

// DisplayNames resolves one name per ID Partner: the first non-missing
// Partner Name of that partner, else FallbackPartnerName.
func DisplayNames(set *ListingSet) map[string]string {
	names := make(map[string]string)
	for _, l := range set.Listings {
		if _, ok := names[l.PartnerID]; ok {
			continue
		}
		if set.HasPartnerName && !l.PartnerName.IsMissing() {
			names[l.PartnerID] = l.PartnerName.String()
		}
	}
	for _, l := range set.Listings {
		if _, ok := names[l.PartnerID]; !ok {
			names[l.PartnerID] = FallbackPartnerName(l.PartnerID)
		}
	}
	return names
}

// FallbackPartnerName is the synthesized name of a partner without one
func FallbackPartnerName(id string) string {
	return "Partner_" + id
}

// PartnerLabel sanitizes the display name, falling back to the synthesized
// partner name when nothing safe remains.
func PartnerLabel(id, displayName string) string {
	if label := SanitizeLabel(displayName); label != "" {
		return label
	}
	if label := SanitizeLabel(FallbackPartnerName(id)); label != "" {
		return label
	}
	return "Partner"
}

// SanitizeLabel keeps ASCII letters, digits, spaces, hyphens and underscores,
// trims surrounding whitespace and truncates to MaxLabelLength.
func SanitizeLabel(name string) string {
	var b strings.Builder
	for _, c := range name {
		if isLabelRune(c) {
			b.WriteRune(c)
		}
	}
	label := strings.TrimSpace(b.String())
	if len(label) > MaxLabelLength {
		label = strings.TrimSpace(label[:MaxLabelLength])
	}
	return label
}

func isLabelRune(c rune) bool {
	switch {
	case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z', c >= '0' && c <= '9':
		return true
	case c == ' ', c == '-', c == '_':
		return true
	}
	return false
}
