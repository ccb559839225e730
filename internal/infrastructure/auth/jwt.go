// Package auth verifies storefront session tokens and turns them into the
// buyer scope used for catalog lookups.
package auth

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/domain/quote"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/infrastructure/config"
)

// Common errors
var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrExpiredToken     = errors.New("token has expired")
	ErrInvalidClaims    = errors.New("invalid token claims")
	ErrTokenNotYetValid = errors.New("token is not yet valid")
	ErrUnknownRole      = errors.New("unknown buyer role")
)

// Claims are the storefront session claims of a buyer
type Claims struct {
	jwt.RegisteredClaims
	Role            string `json:"role"`
	CustomerID      int64  `json:"customer_id,omitempty"`
	CompanyID       int64  `json:"company_id,omitempty"`
	CustomerGroupID int64  `json:"customer_group_id,omitempty"`
}

// Buyer converts the claims into a buyer scope
func (c *Claims) Buyer() quote.BuyerContext {
	return quote.BuyerContext{
		Role:            quote.Role(c.Role),
		CustomerID:      c.CustomerID,
		CompanyID:       c.CompanyID,
		CustomerGroupID: c.CustomerGroupID,
	}
}

// SessionService signs and verifies storefront session tokens (HS256)
type SessionService struct {
	secret []byte
	issuer string
}

// NewSessionService creates a new SessionService
func NewSessionService(cfg config.JWTConfig) *SessionService {
	return &SessionService{
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
	}
}

// IssueToken signs a session token for buyer valid for ttl
func (s *SessionService) IssueToken(buyer quote.BuyerContext, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(buyer.CustomerID, 10),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
		Role:            string(buyer.Role),
		CustomerID:      buyer.CustomerID,
		CompanyID:       buyer.CompanyID,
		CustomerGroupID: buyer.CustomerGroupID,
	}
	// Sign token
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken verifies signature, time claims and issuer and returns the claims
func (s *SessionService) ValidateToken(tokenString string) (*Claims, error) {
	// Only HS256 is accepted
	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()})}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		if errors.Is(err, jwt.ErrTokenNotValidYet) {
			return nil, ErrTokenNotYetValid
		}
		return nil, ErrInvalidToken
	}

	// Validate required claims
	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidClaims
	}

	// A B2B session must carry its company
	switch quote.Role(claims.Role) {
	case quote.RoleB2B:
		if claims.CompanyID == 0 {
			return nil, ErrInvalidClaims
		}
	case quote.RoleB2C:
	default:
		return nil, ErrUnknownRole
	}
	return claims, nil
}
