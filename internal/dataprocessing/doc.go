// Package dataprocessing turns a marketplace listings export into per-partner
// price comparison data.
//
// # Pipeline
//
//	ReadTable      CSV or workbook bytes → Table
//	FilterBuckets  keep rows whose Price Comp Bucket is NC or NCO
//	DeriveFields   numeric prices, Adjustment needed, catalog and competitor links
//	BindListings   bind ID Partner, Partner Name and SKU once per row
//	Partition      group listings by partner in first-appearance order
//	Summarize      distinct SKU count per partner, highest first
//
// Every stage returns a new Table or view and leaves its input untouched.
//
// # Values
//
// A cell is a Value: text, an exact decimal number, a hyperlink, or missing.
// Prices are held as shopspring decimals so Adjustment needed carries no
// binary floating point error.
//
// # Errors
//
// FormatError reports input that cannot be read as a table. SchemaError lists
// every required column that is absent. ErrNoMatchingRows means the input
// holds no NC or NCO rows.
package dataprocessing
