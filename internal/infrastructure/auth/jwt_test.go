package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/domain/quote"
	"github.com/bigcommerce/b2b-buyer-portal-sub007/internal/infrastructure/config"
)

func newTestSessionService() *SessionService {
	return NewSessionService(config.JWTConfig{
		Secret: "test-secret-key-at-least-32-chars",
		Issuer: "test-issuer",
	})
}

var companyBuyer = quote.BuyerContext{Role: quote.RoleB2B, CustomerID: 7, CompanyID: 42, CustomerGroupID: 3}

func TestSessionService_RoundTrip(t *testing.T) {
	svc := newTestSessionService()

	token, err := svc.IssueToken(companyBuyer, time.Minute)
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, companyBuyer, claims.Buyer())
	assert.Equal(t, "test-issuer", claims.Issuer)
	assert.Equal(t, "7", claims.Subject)
	assert.NotEmpty(t, claims.ID)
}

func TestSessionService_ValidateToken(t *testing.T) {
	svc := newTestSessionService()

	sign := func(claims *Claims, secret string) string {
		s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
		require.NoError(t, err)
		return s
	}
	valid := func() *Claims {
		return &Claims{
			RegisteredClaims: jwt.RegisteredClaims{
				Issuer:    "test-issuer",
				ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
			},
			Role:      "b2b",
			CompanyID: 1,
		}
	}

	tests := []struct {
		name    string
		token   func() string
		wantErr error
	}{
		{
			name: "expired",
			token: func() string {
				c := valid()
				c.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))
				return sign(c, "test-secret-key-at-least-32-chars")
			},
			wantErr: ErrExpiredToken,
		},
		{
			name: "not yet valid",
			token: func() string {
				c := valid()
				c.NotBefore = jwt.NewNumericDate(time.Now().Add(time.Hour))
				return sign(c, "test-secret-key-at-least-32-chars")
			},
			wantErr: ErrTokenNotYetValid,
		},
		{
			name:    "wrong secret",
			token:   func() string { return sign(valid(), "another-secret-key-of-32-chars!!") },
			wantErr: ErrInvalidToken,
		},
		{
			name: "wrong issuer",
			token: func() string {
				c := valid()
				c.Issuer = "someone-else"
				return sign(c, "test-secret-key-at-least-32-chars")
			},
			wantErr: ErrInvalidToken,
		},
		{
			name: "unknown role",
			token: func() string {
				c := valid()
				c.Role = "admin"
				return sign(c, "test-secret-key-at-least-32-chars")
			},
			wantErr: ErrUnknownRole,
		},
		{
			name: "b2b without company",
			token: func() string {
				c := valid()
				c.CompanyID = 0
				return sign(c, "test-secret-key-at-least-32-chars")
			},
			wantErr: ErrInvalidClaims,
		},
		{
			name:    "garbage",
			token:   func() string { return "not.a.token" },
			wantErr: ErrInvalidToken,
		},
		{
			name: "none algorithm",
			token: func() string {
				s, err := jwt.NewWithClaims(jwt.SigningMethodNone, valid()).SignedString(jwt.UnsafeAllowNoneSignatureType)
				require.NoError(t, err)
				return s
			},
			wantErr: ErrInvalidToken,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ValidateToken(tt.token())
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	t.Run("b2c guest", func(t *testing.T) {
		c := valid()
		c.Role = "b2c"
		c.CompanyID = 0
		claims, err := svc.ValidateToken(sign(c, "test-secret-key-at-least-32-chars"))
		require.NoError(t, err)
		assert.False(t, claims.Buyer().IsB2B())
	})
}
