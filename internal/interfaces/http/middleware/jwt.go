package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	quoteapp "github.com/bigcommerce/b2b-buyer-portal-sub007/internal/application/quote"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/domain/quote"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/infrastructure/auth"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/infrastructure/logger"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/interfaces/http/dto"
)

// Session context keys
const (
	JWTClaimsKey  = "jwt_claims"
	BuyerKey      = "buyer"
	AuthHeaderKey = "Authorization"
	BearerPrefix  = "Bearer "
)

// TokenValidator verifies a storefront session token
type TokenValidator interface {
	ValidateToken(tokenString string) (*auth.Claims, error)
}

// BuyerAuthConfig holds configuration for the buyer session middleware
type BuyerAuthConfig struct {
	Validator TokenValidator
	// Required rejects requests without a session token. When false they
	// continue as anonymous B2C shoppers.
	Required bool
	// SkipPaths are paths that never look at the session
	SkipPaths []string
	Logger    *zap.Logger
}

// DefaultBuyerAuthConfig returns default configuration
func DefaultBuyerAuthConfig(validator TokenValidator) BuyerAuthConfig {
	return BuyerAuthConfig{
		Validator: validator,
		SkipPaths: []string{"/health", "/api/v1/health"},
	}
}

// BuyerAuth resolves the buyer scope from the bearer session token and puts
// it on both the gin context and the request context
func BuyerAuth(cfg BuyerAuthConfig) gin.HandlerFunc {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		// Check skip paths
		for _, skipPath := range cfg.SkipPaths {
			if path == skipPath {
				c.Next()
				return
			}
		}

		// Extract token from Authorization header
		authHeader := c.GetHeader(AuthHeaderKey)
		if authHeader == "" {
			if cfg.Required {
				handleAuthError(c, log, auth.ErrInvalidToken, "Missing authorization header")
				return
			}
			setBuyer(c, quote.BuyerContext{Role: quote.RoleB2C})
			c.Next()
			return
		}

		// Check Bearer prefix
		tokenString, ok := strings.CutPrefix(authHeader, BearerPrefix)
		if !ok || tokenString == "" {
			handleAuthError(c, log, auth.ErrInvalidToken, "Invalid authorization header format")
			return
		}

		// Validate token
		claims, err := cfg.Validator.ValidateToken(tokenString)
		if err != nil {
			handleAuthError(c, log, err, "Token validation failed")
			return
		}

		// Store claims in context for downstream use
		c.Set(JWTClaimsKey, claims)
		buyer := claims.Buyer()
		setBuyer(c, buyer)

		// Log authentication success
		log.Debug("Buyer session resolved",
			zap.String("role", string(buyer.Role)),
			zap.Int64("company_id", buyer.CompanyID),
			zap.Int64("customer_id", buyer.CustomerID),
		)
		c.Next()
	}
}

func setBuyer(c *gin.Context, buyer quote.BuyerContext) {
	c.Set(BuyerKey, buyer)
	// Also set in request context for the services and logger
	ctx := quoteapp.WithBuyer(c.Request.Context(), buyer)
	ctx = logger.WithBuyer(ctx, formatID(buyer.CompanyID), formatID(buyer.CustomerID))
	c.Request = c.Request.WithContext(ctx)
}

func formatID(id int64) string {
	if id == 0 {
		return ""
	}
	return strconv.FormatInt(id, 10)
}

func handleAuthError(c *gin.Context, log *zap.Logger, err error, message string) {
	log.Warn("Buyer session rejected",
		zap.Error(err),
		zap.String("message", message),
		zap.String("path", c.Request.URL.Path),
	)

	code, msg := dto.ErrCodeUnauthorized, "Authentication required"
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		code, msg = dto.ErrCodeTokenExpired, "Token has expired"
	case errors.Is(err, auth.ErrTokenNotYetValid):
		code, msg = dto.ErrCodeTokenInvalid, "Token is not yet valid"
	case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrInvalidClaims), errors.Is(err, auth.ErrUnknownRole):
		code, msg = dto.ErrCodeTokenInvalid, "Invalid token"
	}

	c.AbortWithStatusJSON(http.StatusUnauthorized, dto.NewErrorResponseWithRequestID(code, msg, c.GetString(RequestIDKey)))
}

// GetBuyer returns the buyer resolved by BuyerAuth, or an anonymous B2C
// shopper when the middleware did not run
func GetBuyer(c *gin.Context) quote.BuyerContext {
	if v, exists := c.Get(BuyerKey); exists {
		if b, ok := v.(quote.BuyerContext); ok {
			return b
		}
	}
	return quote.BuyerContext{Role: quote.RoleB2C}
}

// GetJWTClaims retrieves session claims from gin.Context
func GetJWTClaims(c *gin.Context) *auth.Claims {
	if claims, exists := c.Get(JWTClaimsKey); exists {
		if jwtClaims, ok := claims.(*auth.Claims); ok {
			return jwtClaims
		}
	}
	return nil
}
