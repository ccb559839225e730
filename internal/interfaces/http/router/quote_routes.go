package router

import (
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/interfaces/http/handler"
)

// QuoteRoutes mounts validation, quick-order upload and modifier pricing
// under /quote
func QuoteRoutes(h *handler.QuoteHandler) *DomainGroup {
	g := NewDomainGroup("quote", "/quote")
	g.POST("/validate", h.Validate)
	g.POST("/bulk-upload", h.BulkUpload)
	g.POST("/modifier-price", h.ModifierPrice)
	return g
}

// DraftRoutes mounts the caller's quote draft under /quote-draft
func DraftRoutes(h *handler.DraftHandler) *DomainGroup {
	g := NewDomainGroup("quote-draft", "/quote-draft")
	g.GET("", h.Get)
	g.DELETE("", h.Clear)
	g.POST("/items", h.AddItem)
	return g
}
