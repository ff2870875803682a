package dataprocessing

import "strings"

// AllowedBuckets are the upper-cased Price Comp Bucket values kept by FilterBuckets
var AllowedBuckets = map[string]bool{
	"NC":  true,
	"NCO": true,
}

// FilterBuckets keeps the rows whose Price Comp Bucket, upper-cased, is NC or
// NCO. Missing and numeric buckets never match. An empty result is reported
// as ErrNoMatchingRows.
func FilterBuckets(t *Table) (*Table, error) {
	if err := RequireColumns(t, "filter", ColBucket); err != nil {
		return nil, err
	}

	filtered := t.Where(func(r Row) bool {
		return IsAllowedBucket(r.Value(ColBucket))
	})
	if filtered.Len() == 0 {
		return nil, ErrNoMatchingRows
	}
	return filtered, nil
}

// IsAllowedBucket reports whether a bucket value is in scope
func IsAllowedBucket(v Value) bool {
	if v.kind != kindText {
		return false
	}
	return AllowedBuckets[strings.ToUpper(v.text)]
}
