package dataprocessing

// Source column names of the master export
const (
	ColBucket          = "Price Comp Bucket"
	ColLatestCompPrice = "Latest Comp Price All"
	ColOfferPrice      = "Offer Price"
	ColSKUConfig       = "SKU Config"
	ColCompLink        = "Comp Link"
	ColPartnerID       = "ID Partner"
	ColPartnerName     = "Partner Name"
	ColSKU             = "SKU"
	ColPSKU            = "Psku"
	ColTitleEn         = "Title En"
	ColCompSellerName  = "Comp Bb Seller Name"
)

// Derived column names
const (
	ColAdjustment = "Adjustment needed"
	ColNoonLink   = "noon link"
)

// ColSKUCount is the distinct-SKU count column of summary tables
const ColSKUCount = "NC_NCO_SKU_Count"

// RequiredColumns lists every column the pipeline reads from the master export
var RequiredColumns = []string{
	ColBucket,
	ColLatestCompPrice,
	ColOfferPrice,
	ColSKUConfig,
	ColCompLink,
	ColPartnerID,
	ColPartnerName,
	ColSKU,
}

// ExportColumns is the ordered column selection written to each partner
// workbook. Columns absent from the data are skipped.
var ExportColumns = []string{
	ColPSKU,
	ColSKU,
	ColTitleEn,
	ColCompLink,
	ColLatestCompPrice,
	ColOfferPrice,
	ColAdjustment,
	ColCompSellerName,
	ColNoonLink,
}
