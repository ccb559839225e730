package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/interfaces/http/handler"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestNewRouter(t *testing.T) {
	r := NewRouter(gin.New())
	assert.Equal(t, "v1", r.apiVersion)
	assert.Empty(t, r.registrars)

	r = NewRouter(gin.New(), WithAPIVersion("v2"))
	assert.Equal(t, "v2", r.apiVersion)
}

func TestRouterSetup(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)

	var order []string
	r.Use(func(c *gin.Context) {
		order = append(order, "api")
		c.Next()
	})

	group := NewDomainGroup("test", "/test").Use(func(c *gin.Context) {
		order = append(order, "group")
		c.Next()
	})
	group.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	group.Group("nested", "/nested").DELETE("/item", func(c *gin.Context) { c.Status(http.StatusNoContent) })
	r.Register(group).Setup()

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/test/ping", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pong", w.Body.String())
	assert.Equal(t, []string{"api", "group"}, order)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodDelete, "/api/v1/test/nested/item", nil))
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/test/ping", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQuoteAndDraftRoutes(t *testing.T) {
	engine := gin.New()
	r := NewRouter(engine)
	r.Register(QuoteRoutes(handler.NewQuoteHandler(nil, nil, nil)))
	r.Register(DraftRoutes(handler.NewDraftHandler(nil)))
	r.Setup()

	got := map[string]bool{}
	for _, route := range engine.Routes() {
		got[route.Method+" "+route.Path] = true
	}

	for _, want := range []string{
		"POST /api/v1/quote/validate",
		"POST /api/v1/quote/bulk-upload",
		"POST /api/v1/quote/modifier-price",
		"GET /api/v1/quote-draft",
		"DELETE /api/v1/quote-draft",
		"POST /api/v1/quote-draft/items",
	} {
		assert.True(t, got[want], want)
	}
	assert.Len(t, got, 6)
}
