package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/FACorreiaa/go-blog-api/internal/api"
	"github.com/FACorreiaa/go-blog-api/internal/types"
)

type contextKey string

const identityKey contextKey = "identity"

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id types.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext returns the identity attached by Authenticate.
func IdentityFromContext(ctx context.Context) (types.Identity, bool) {
	id, ok := ctx.Value(identityKey).(types.Identity)
	return id, ok
}

// IdentityResolver reloads a user. When passed to Authenticate, the stored
// admin flag replaces the one embedded in the token.
type IdentityResolver interface {
	GetUserByID(ctx context.Context, id uuid.UUID) (*types.User, error)
}

// Authenticate verifies the session token on every request and attaches the
// caller's identity to the request context. resolver may be nil.
func Authenticate(logger *slog.Logger, tokens *TokenManager, cookie SessionCookie, resolver IdentityResolver) func(next http.Handler) http.Handler {
	if tokens == nil {
		panic("auth: Authenticate requires a TokenManager")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			l := logger.With(slog.String("middleware", "Authenticate"))

			identity, err := tokens.Verify(cookie.Read(r))
			if err != nil {
				api.HandleError(w, r, l, err, "Failed to authenticate request")
				return
			}

			if resolver != nil {
				identity, err = revalidate(ctx, resolver, identity)
				if err != nil {
					api.HandleError(w, r, l, err, "Failed to authenticate request")
					return
				}
			}

			l.DebugContext(ctx, "Authentication successful", slog.String("userID", identity.ID.String()))
			next.ServeHTTP(w, r.WithContext(WithIdentity(ctx, identity)))
		})
	}
}

func revalidate(ctx context.Context, resolver IdentityResolver, identity types.Identity) (types.Identity, error) {
	user, err := resolver.GetUserByID(ctx, identity.ID)
	if err != nil {
		if errors.Is(err, types.ErrNotFound) {
			return types.Identity{}, types.NewError(types.ErrInvalidToken, "User no longer exists")
		}
		return types.Identity{}, fmt.Errorf("failed to reload user: %w", err)
	}
	return types.Identity{ID: user.ID, IsAdmin: user.IsAdmin}, nil
}

// RequireAdmin rejects callers whose identity is not an admin. It must run
// after Authenticate.
func RequireAdmin(logger *slog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			l := logger.With(slog.String("middleware", "RequireAdmin"))
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				api.HandleError(w, r, l, types.ErrUnauthenticated, "Authentication required")
				return
			}
			if !identity.IsAdmin {
				api.HandleError(w, r, l, types.NewError(types.ErrForbidden, "You are not allowed to see this resource"), "Forbidden")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
