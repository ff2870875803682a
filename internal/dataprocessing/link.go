package dataprocessing

import (
	"fmt"
	"net/url"
	"strings"
)

// Hyperlink targets and labels of the derived link columns
const (
	CatalogURLTemplate = "http://noon.com/egypt-en/%s/p/"
	CatalogLinkLabel   = "View on Noon"
	CompLinkLabel      = "View Competitor"
)

// Link is a clickable cell: an external target with a display label
type Link struct {
	URL   string
	Label string
}

// CatalogLink builds the catalog link for a SKU Config value
func CatalogLink(skuConfig string) Link {
	return Link{
		URL:   fmt.Sprintf(CatalogURLTemplate, url.PathEscape(skuConfig)),
		Label: CatalogLinkLabel,
	}
}

// CompetitorLink wraps a competitor URL with the competitor label
func CompetitorLink(target string) Link {
	return Link{URL: target, Label: CompLinkLabel}
}

// Formula renders the link as a spreadsheet HYPERLINK formula. Embedded
// double quotes are doubled so the text cannot break out of the string
// literals.
func (l Link) Formula() string {
	return fmt.Sprintf(`=HYPERLINK("%s", "%s")`, quoteFormulaText(l.URL), quoteFormulaText(l.Label))
}

func quoteFormulaText(s string) string {
	s = strings.NewReplacer("\r", "", "\n", "").Replace(s)
	return strings.ReplaceAll(s, `"`, `""`)
}
