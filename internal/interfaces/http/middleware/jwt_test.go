package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	quoteapp "github.com/bigcommerce/b2b-buyer-portal-sub007/internal/application/quote"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/domain/quote"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/infrastructure/auth"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/infrastructure/config"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/infrastructure/logger"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/interfaces/http/dto"
)

func newBuyerRouter(cfg BuyerAuthConfig) *gin.Engine {
	r := gin.New()
	r.Use(BuyerAuth(cfg))
	handler := func(c *gin.Context) {
		ctx := c.Request.Context()
		c.JSON(http.StatusOK, gin.H{
			"ginRole":    string(GetBuyer(c).Role),
			"ctxRole":    string(quoteapp.BuyerFromContext(ctx).Role),
			"companyId":  quoteapp.BuyerFromContext(ctx).CompanyID,
			"logCompany": logger.GetCompanyID(ctx),
		})
	}
	r.GET("/api/v1/quote-draft", handler)
	r.GET("/health", handler)
	return r
}

func TestBuyerAuth(t *testing.T) {
	sessions := auth.NewSessionService(config.JWTConfig{Secret: "test-secret-key-at-least-32-chars", Issuer: "test"})
	b2b, err := sessions.IssueToken(quote.BuyerContext{Role: quote.RoleB2B, CompanyID: 42, CustomerID: 7}, time.Minute)
	require.NoError(t, err)
	expired, err := sessions.IssueToken(quote.BuyerContext{Role: quote.RoleB2C, CustomerID: 7}, -time.Minute)
	require.NoError(t, err)

	tests := []struct {
		name        string
		required    bool
		path        string
		header      string
		wantStatus  int
		wantRole    string
		wantCompany string
		wantCode    string
	}{
		{name: "b2b session", path: "/api/v1/quote-draft", header: "Bearer " + b2b, wantStatus: http.StatusOK, wantRole: "b2b", wantCompany: "42"},
		{name: "anonymous allowed", path: "/api/v1/quote-draft", wantStatus: http.StatusOK, wantRole: "b2c"},
		{name: "anonymous rejected", required: true, path: "/api/v1/quote-draft", wantStatus: http.StatusUnauthorized, wantCode: dto.ErrCodeUnauthorized},
		{name: "skip path", required: true, path: "/health", wantStatus: http.StatusOK, wantRole: "b2c"},
		{name: "expired token", path: "/api/v1/quote-draft", header: "Bearer " + expired, wantStatus: http.StatusUnauthorized, wantCode: dto.ErrCodeTokenExpired},
		{name: "bad scheme", path: "/api/v1/quote-draft", header: "Basic abc", wantStatus: http.StatusUnauthorized, wantCode: dto.ErrCodeTokenInvalid},
		{name: "garbage token", path: "/api/v1/quote-draft", header: "Bearer nope", wantStatus: http.StatusUnauthorized, wantCode: dto.ErrCodeTokenInvalid},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultBuyerAuthConfig(sessions)
			cfg.Required = tt.required
			r := newBuyerRouter(cfg)

			req := httptest.NewRequest(http.MethodGet, tt.path, nil)
			if tt.header != "" {
				req.Header.Set(AuthHeaderKey, tt.header)
			}
			w := serve(r, req)
			require.Equal(t, tt.wantStatus, w.Code)

			if tt.wantCode != "" {
				var resp dto.Response
				require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
				assert.Equal(t, tt.wantCode, resp.Error.Code)
				return
			}

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantRole, body["ginRole"])
			assert.Equal(t, tt.wantRole, body["ctxRole"])
			assert.Equal(t, tt.wantCompany, body["logCompany"])
		})
	}
}
