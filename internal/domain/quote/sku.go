package quote

import (
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// FoldSKU returns the comparison key of a SKU. SKUs match case-insensitively
// under Unicode upper-casing.
func FoldSKU(sku string) string {
	// a Caser is stateful and must not be shared between goroutines
	return cases.Upper(language.Und).String(sku)
}
