package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/FACorreiaa/go-blog-api/internal/types"
)

const DefaultTokenTTL = 24 * time.Hour

// TokenManager issues and verifies HS256 session tokens. The secret is
// supplied once at construction.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenManager(secret string, ttl time.Duration) (*TokenManager, error) {
	if secret == "" {
		return nil, errors.New("jwt secret key cannot be empty")
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl, now: time.Now}, nil
}

// Issue signs a token embedding id and isAdmin. It returns the token and
// its expiry.
func (m *TokenManager) Issue(id uuid.UUID, isAdmin bool) (string, time.Time, error) {
	now := m.now()
	expiresAt := now.Add(m.ttl)
	claims := types.Claims{
		ID:      id.String(),
		IsAdmin: isAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify parses token and returns the identity it carries.
func (m *TokenManager) Verify(token string) (types.Identity, error) {
	if token == "" {
		return types.Identity{}, types.ErrUnauthenticated
	}

	claims := &types.Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return m.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(m.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return types.Identity{}, types.NewError(types.ErrTokenExpired, "Token has expired")
		}
		return types.Identity{}, fmt.Errorf("%w: %v", types.ErrInvalidToken, err)
	}

	id, err := uuid.Parse(claims.ID)
	if err != nil {
		return types.Identity{}, fmt.Errorf("%w: bad id claim", types.ErrInvalidToken)
	}
	return types.Identity{ID: id, IsAdmin: claims.IsAdmin}, nil
}
