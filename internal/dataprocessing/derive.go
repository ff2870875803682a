package dataprocessing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// DeriveFields returns a copy of t with the price columns coerced to numbers,
// the Adjustment needed column computed, and the noon link and Comp Link
// columns rebuilt as hyperlinks. Row count and order are unchanged.
func DeriveFields(t *Table) (*Table, error) {
	if err := RequireColumns(t, "derive", ColLatestCompPrice, ColOfferPrice, ColSKUConfig, ColCompLink); err != nil {
		return nil, err
	}

	out := t.WithColumn(ColLatestCompPrice, func(r Row) Value {
		return ToNumeric(r.Value(ColLatestCompPrice))
	})
	out = out.WithColumn(ColOfferPrice, func(r Row) Value {
		return ToNumeric(r.Value(ColOfferPrice))
	})
	out = out.WithColumn(ColAdjustment, func(r Row) Value {
		return Subtract(r.Value(ColOfferPrice), r.Value(ColLatestCompPrice))
	})
	out = out.WithColumn(ColNoonLink, func(r Row) Value {
		sku := r.Value(ColSKUConfig)
		if sku.IsMissing() {
			return Missing()
		}
		return LinkValue(CatalogLink(sku.String()))
	})
	out = out.WithColumn(ColCompLink, func(r Row) Value {
		target := r.Value(ColCompLink)
		if target.IsMissing() {
			return Missing()
		}
		if l, ok := target.Link(); ok {
			return LinkValue(CompetitorLink(l.URL))
		}
		return LinkValue(CompetitorLink(target.String()))
	})
	return out, nil
}

// ToNumeric coerces a cell to an exact number. Text that does not parse as a
// number becomes missing.
func ToNumeric(v Value) Value {
	switch v.kind {
	case kindNumber:
		return v
	case kindText:
		d, err := decimal.NewFromString(strings.TrimSpace(v.text))
		if err != nil {
			return Missing()
		}
		return Number(d)
	default:
		return Missing()
	}
}

// Subtract returns a - b, missing when either side is not numeric
func Subtract(a, b Value) Value {
	x, okA := ToNumeric(a).Decimal()
	y, okB := ToNumeric(b).Decimal()
	if !okA || !okB {
		return Missing()
	}
	return Number(x.Sub(y))
}
