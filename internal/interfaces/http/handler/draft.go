package handler

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	quoteapp "github.com/bigcommerce/b2b-buyer-portal-sub007/internal/application/quote"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/domain/quote"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/domain/shared"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/interfaces/http/dto"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/interfaces/http/middleware"
)

// maxDraftKeyLength bounds client-supplied draft and request keys
const maxDraftKeyLength = 255

// DraftManager reads and writes quote drafts
type DraftManager interface {
	AddQuoteDraftProduceOnce(ctx context.Context, key, requestKey string, candidate quote.DraftLineItem, qty int, options []quote.Option) (quote.MergeOutcome, error)
	Draft(ctx context.Context, key string) ([]quote.DraftLineItem, error)
	Clear(ctx context.Context, key string) error
}

// DraftHandler serves the caller's quote draft
type DraftHandler struct {
	BaseHandler
	drafts DraftManager
}

// NewDraftHandler creates a new DraftHandler
func NewDraftHandler(drafts DraftManager) *DraftHandler {
	return &DraftHandler{drafts: drafts}
}

// Draft key namespaces. Header keys never share one with signed-in customers.
const (
	customerDraftPrefix = "customer:"
	guestDraftPrefix    = "guest:"
)

var (
	errDraftKeyTooLong  = shared.NewDomainError("INVALID_INPUT", "X-Quote-Draft-Key is too long")
	errReservedDraftKey = shared.NewDomainError("INVALID_INPUT", "X-Quote-Draft-Key uses a reserved prefix")
)

// resolveDraftKey picks the draft of the request. A signed-in customer always
// gets their own draft and the X-Quote-Draft-Key header is ignored; anonymous
// callers use the header under the guest namespace. An empty result means the
// request has no draft.
func resolveDraftKey(c *gin.Context) (string, error) {
	if buyer := quoteapp.BuyerFromContext(c.Request.Context()); buyer.CustomerID != 0 {
		return customerDraftPrefix + strconv.FormatInt(buyer.CustomerID, 10), nil
	}

	key := strings.TrimSpace(c.GetHeader(middleware.QuoteDraftKeyHeader))
	if key == "" {
		return "", nil
	}
	if len(key) > maxDraftKeyLength {
		return "", errDraftKeyTooLong
	}
	lower := strings.ToLower(key)
	if strings.HasPrefix(lower, customerDraftPrefix) || strings.HasPrefix(lower, guestDraftPrefix) {
		return "", errReservedDraftKey
	}
	return guestDraftPrefix + key, nil
}

// Get returns the current draft; a missing draft is empty.
// GET /api/v1/quote-draft
func (h *DraftHandler) Get(c *gin.Context) {
	key, err := resolveDraftKey(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	items, err := h.drafts.Draft(c.Request.Context(), key)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.DraftResponse{Items: items})
}

// AddItem merges one line item into the draft. A repeated Idempotency-Key
// returns the current draft without adding the item again.
// POST /api/v1/quote-draft/items
func (h *DraftHandler) AddItem(c *gin.Context) {
	key, err := resolveDraftKey(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	requestKey := strings.TrimSpace(c.GetHeader(middleware.IdempotencyKeyHeader))
	if len(requestKey) > maxDraftKeyLength {
		h.BadRequest(c, "Idempotency-Key is too long")
		return
	}

	var req dto.DraftItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleValidationError(c, err)
		return
	}

	item, err := quote.DecodeLineItem(req.Item)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	candidate, err := quote.Normalize(item)
	if err != nil {
		if errors.Is(err, quote.ErrVariantUnresolved) || errors.Is(err, quote.ErrInvalidOptionID) {
			h.ErrorWithCode(c, dto.ErrCodeInvalidInput, err.Error())
			return
		}
		h.HandleError(c, err)
		return
	}

	qty := candidate.Quantity
	if req.Quantity > 0 {
		qty = req.Quantity
	}
	line := quote.DraftLineItem{Node: quote.DraftNode{
		VariantSKU:     req.VariantSKU,
		ProductName:    req.ProductName,
		BasePrice:      req.BasePrice,
		ProductID:      candidate.ProductID,
		VariantID:      candidate.VariantID,
		ProductsSearch: quote.ProductsSearchOf(item),
	}}

	ctx := c.Request.Context()
	outcome, err := h.drafts.AddQuoteDraftProduceOnce(ctx, key, requestKey, line, qty, candidate.ProductOptions)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	items, err := h.drafts.Draft(ctx, key)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.DraftItemResponse{Outcome: outcome, Items: items})
}

// Clear removes the draft.
// DELETE /api/v1/quote-draft
func (h *DraftHandler) Clear(c *gin.Context) {
	key, err := resolveDraftKey(c)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if err := h.drafts.Clear(c.Request.Context(), key); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
