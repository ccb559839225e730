// Package commerce is the HTTP client for the commerce platform's product
// validation and catalog search endpoints.
package commerce

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/domain/quote"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/domain/shared"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/infrastructure/logger"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/infrastructure/telemetry"
)

// Endpoint paths, relative to Config.BaseURL
const (
	PathValidateProduct   = "/api/v2/products/validate"
	PathB2BProductSearch  = "/api/v2/b2b/products/search"
	PathB2CProductSearch  = "/api/v2/products/search"
	PathB2BVariantsSearch = "/api/v2/b2b/variants/search"
)

// Config holds commerce client configuration
type Config struct {
	BaseURL      string
	APIToken     string
	Timeout      time.Duration
	RetryCount   int
	RetryWait    time.Duration
	RetryMaxWait time.Duration
	// CacheSize of 0 disables the product search cache
	CacheSize int
	CacheTTL  time.Duration
}

// Client talks to the commerce platform. It implements
// quoteapp.ProductValidator and quoteapp.CatalogSearcher.
type Client struct {
	http   *resty.Client
	cache  *expirable.LRU[string, quote.SearchProduct]
	logger *zap.Logger
}

// NewClient creates a new commerce Client
func NewClient(cfg Config, logger *zap.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("commerce base URL is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json").
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(cfg.RetryWait).
		SetRetryMaxWaitTime(cfg.RetryMaxWait).
		AddRetryCondition(retryCondition)
	if cfg.APIToken != "" {
		httpClient.SetAuthToken(cfg.APIToken)
	}

	c := &Client{http: httpClient, logger: logger}
	if cfg.CacheSize > 0 {
		c.cache = expirable.NewLRU[string, quote.SearchProduct](cfg.CacheSize, nil, cfg.CacheTTL)
	}
	return c, nil
}

// retryCondition retries transport errors, server errors and throttling
func retryCondition(r *resty.Response, err error) bool {
	if err != nil {
		return true
	}
	if r == nil {
		return false
	}
	code := r.StatusCode()
	return code >= 500 || code == http.StatusTooManyRequests || code == http.StatusRequestTimeout
}

// post sends body to path and decodes a 2xx response into result. Every
// failure wraps shared.ErrUpstreamUnavailable.
func (c *Client) post(ctx context.Context, path string, body, result any) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		SetResult(result).
		Post(path)
	if err != nil {
		return fmt.Errorf("%w: POST %s: %w", shared.ErrUpstreamUnavailable, path, err)
	}
	if resp.IsError() {
		return fmt.Errorf("%w: POST %s returned status %d", shared.ErrUpstreamUnavailable, path, resp.StatusCode())
	}
	return nil
}

// ValidateProduct asks the platform whether one product can be quoted
func (c *Client) ValidateProduct(ctx context.Context, req quote.ValidationRequest) (quote.ValidationResponse, error) {
	var out quote.ValidationResponse
	if err := c.post(ctx, PathValidateProduct, req, &out); err != nil {
		return quote.ValidationResponse{}, err
	}
	return out, nil
}

type productSearchResponse struct {
	ProductsSearch []quote.SearchProduct `json:"productsSearch"`
}

type variantSearchResponse struct {
	Variants []quote.CatalogProduct `json:"variants"`
}

func cacheKey(req quote.ProductSearchRequest, role quote.Role, id int64) string {
	return fmt.Sprintf("%s:%d:%d:%d", role, req.CompanyID, req.CustomerGroupID, id)
}

// SearchProducts looks products up by id. Cached products are served locally
// and only the misses are requested, in one call.
func (c *Client) SearchProducts(ctx context.Context, req quote.ProductSearchRequest, role quote.Role) ([]quote.SearchProduct, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "commerce_client", "search_products",
		telemetry.SpanAttrBuyerRole, string(role),
		"commerce.product_ids", len(req.ProductIDs),
	)
	defer span.End()

	products := make([]quote.SearchProduct, 0, len(req.ProductIDs))
	misses := make([]int64, 0, len(req.ProductIDs))
	for _, id := range req.ProductIDs {
		if c.cache != nil {
			if p, ok := c.cache.Get(cacheKey(req, role, id)); ok {
				products = append(products, p)
				continue
			}
		}
		misses = append(misses, id)
	}
	if len(misses) == 0 {
		return products, nil
	}

	path := PathB2CProductSearch
	if role == quote.RoleB2B {
		path = PathB2BProductSearch
	}
	lookup := req
	lookup.ProductIDs = misses

	var out productSearchResponse
	if err := c.post(ctx, path, lookup, &out); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	for _, p := range out.ProductsSearch {
		if c.cache != nil {
			c.cache.Add(cacheKey(req, role, p.ID), p)
		}
		products = append(products, p)
	}

	logger.WithLogger(ctx, c.logger).Debug("Searched catalog products",
		zap.String("role", string(role)),
		zap.Int("requested", len(req.ProductIDs)),
		zap.Int("cache_misses", len(misses)),
		zap.Int("found", len(out.ProductsSearch)),
	)
	return products, nil
}

// SearchSKUs returns the catalog variant rows for the requested SKUs
func (c *Client) SearchSKUs(ctx context.Context, req quote.SKUSearchRequest) ([]quote.CatalogProduct, error) {
	if len(req.SKUs) == 0 {
		return []quote.CatalogProduct{}, nil
	}
	ctx, span := telemetry.StartServiceSpan(ctx, "commerce_client", "search_skus",
		telemetry.SpanAttrSKUCount, len(req.SKUs),
	)
	defer span.End()

	var out variantSearchResponse
	if err := c.post(ctx, PathB2BVariantsSearch, req, &out); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if out.Variants == nil {
		out.Variants = []quote.CatalogProduct{}
	}
	return out.Variants, nil
}
