// Package exporter writes the price comparison workbooks and packages them.
//
// WorkbookExporter writes Partner_PriceComp_Counts.xlsx and one
// <label>_PriceComp.xlsx per partner into a staging directory. Partner file
// names never collide within a run; a clash gets the partner id and then a
// counter appended. BuildArchive zips the written files in order into an
// in-memory archive named Comp_<dd>-<mm>.zip.
package exporter
