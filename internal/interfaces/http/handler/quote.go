package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	quoteapp "github.com/bigcommerce/b2b-buyer-portal-sub007/internal/application/quote"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/domain/quote"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/interfaces/http/dto"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/interfaces/http/middleware"
)

// maxUploadFileSize bounds a quick-order CSV upload
const maxUploadFileSize = 2 * 1024 * 1024

// ProductValidator validates raw line items
type ProductValidator interface {
	ValidateRaw(ctx context.Context, raws []json.RawMessage) (quote.ClassifiedProducts, error)
}

// BulkProcessor runs quick-order requests
type BulkProcessor interface {
	UploadCSV(ctx context.Context, r io.Reader, draftKey string, addToDraft bool) (*quoteapp.BulkResult, error)
	Process(ctx context.Context, req quoteapp.BulkRequest) (*quoteapp.BulkResult, error)
}

// ModifierPricer prices selected modifier values
type ModifierPricer interface {
	Price(ctx context.Context, modifiers []quote.ModifierDefinition, selected []quote.Option, buyer quote.BuyerContext) (quoteapp.PriceBreakdown, error)
}

// QuoteHandler serves line item validation, quick-order upload and modifier
// pricing
type QuoteHandler struct {
	BaseHandler
	validator ProductValidator
	bulk      BulkProcessor
	pricer    ModifierPricer
}

// NewQuoteHandler creates a new QuoteHandler
func NewQuoteHandler(validator ProductValidator, bulk BulkProcessor, pricer ModifierPricer) *QuoteHandler {
	return &QuoteHandler{validator: validator, bulk: bulk, pricer: pricer}
}

// Validate classifies each posted line item as success, warning or error.
// POST /api/v1/quote/validate
func (h *QuoteHandler) Validate(c *gin.Context) {
	var req dto.ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	classified, err := h.validator.ValidateRaw(c.Request.Context(), req.Items)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, classified)
}

// BulkUpload accepts either a multipart CSV under "file" or a JSON map of
// SKU to quantity. addToDraft merges accepted products into the caller's
// draft.
// POST /api/v1/quote/bulk-upload
func (h *QuoteHandler) BulkUpload(c *gin.Context) {
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		h.uploadCSV(c)
		return
	}

	var req dto.BulkSKURequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	draftKey, ok := h.draftKeyFor(c, req.AddToDraft)
	if !ok {
		return
	}
	result, err := h.bulk.Process(c.Request.Context(), quoteapp.BulkRequest{
		Quantities: req.SKUs,
		DraftKey:   draftKey,
		AddToDraft: req.AddToDraft,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

func (h *QuoteHandler) uploadCSV(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var maxBytes *http.MaxBytesError
		if errors.As(err, &maxBytes) {
			h.HandleError(c, err)
			return
		}
		h.BadRequest(c, "A CSV file is required in the 'file' field")
		return
	}
	defer file.Close()

	if header.Size > maxUploadFileSize {
		h.ErrorWithCode(c, dto.ErrCodePayloadTooLarge, "CSV file exceeds maximum allowed size")
		return
	}

	addToDraft, _ := strconv.ParseBool(c.PostForm("addToDraft"))
	draftKey, ok := h.draftKeyFor(c, addToDraft)
	if !ok {
		return
	}

	result, err := h.bulk.UploadCSV(c.Request.Context(), file, draftKey, addToDraft)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// draftKeyFor resolves the draft key when the request writes to a draft. It
// writes the error response itself and returns false when none is available.
func (h *QuoteHandler) draftKeyFor(c *gin.Context, addToDraft bool) (string, bool) {
	if !addToDraft {
		return "", true
	}
	key := resolveDraftKey(c)
	if key == "" {
		h.HandleError(c, quoteapp.ErrDraftKeyRequired)
		return "", false
	}
	return key, true
}

// ModifierPrice returns the price adjustments of the selected modifier values
// for the calling buyer.
// POST /api/v1/quote/modifier-price
func (h *QuoteHandler) ModifierPrice(c *gin.Context) {
	var req dto.ModifierPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	ctx := c.Request.Context()
	breakdown, err := h.pricer.Price(ctx, req.Modifiers, req.SelectedOptions, quoteapp.BuyerFromContext(ctx))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewSuccessResponse(breakdown))
}
