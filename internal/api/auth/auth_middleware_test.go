package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/FACorreiaa/go-blog-api/internal/types"
)

func protectedRouter(tokens *TokenManager, resolver IdentityResolver) http.Handler {
	logger := discardLogger()
	r := chi.NewRouter()
	r.Group(func(r chi.Router) {
		r.Use(Authenticate(logger, tokens, SessionCookie{}, resolver))
		r.Get("/me", func(w http.ResponseWriter, r *http.Request) {
			identity, ok := IdentityFromContext(r.Context())
			if !ok {
				w.WriteHeader(http.StatusInternalServerError)
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{"id": identity.ID, "isAdmin": identity.IsAdmin})
		})
		r.With(RequireAdmin(logger)).Get("/admin", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})
	return r
}

func requestWithToken(path, token string) *http.Request {
	r := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		r.AddCookie(&http.Cookie{Name: DefaultCookieName, Value: token})
	}
	return r
}

func decodeMessage(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	msg, _ := body["message"].(string)
	return msg
}

func TestAuthenticate(t *testing.T) {
	now := time.Now()
	tokens := newTestTokens(t, now)
	router := protectedRouter(tokens, nil)
	id := uuid.New()
	token, _, err := tokens.Issue(id, false)
	require.NoError(t, err)

	t.Run("no token", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, requestWithToken("/me", ""))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("garbled token", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, requestWithToken("/me", "garbage"))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("valid cookie", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, requestWithToken("/me", token))
		require.Equal(t, http.StatusOK, w.Code)
		var body map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
		assert.Equal(t, id.String(), body["id"])
		assert.Equal(t, false, body["isAdmin"])
	})

	t.Run("bearer header", func(t *testing.T) {
		w := httptest.NewRecorder()
		r := httptest.NewRequest(http.MethodGet, "/me", nil)
		r.Header.Set("Authorization", "Bearer "+token)
		router.ServeHTTP(w, r)
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("expired", func(t *testing.T) {
		old := newTestTokens(t, now.Add(-2*time.Hour))
		expired, _, err := old.Issue(id, false)
		require.NoError(t, err)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, requestWithToken("/me", expired))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "Token has expired", decodeMessage(t, w))
	})
}

func TestRequireAdmin(t *testing.T) {
	tokens := newTestTokens(t, time.Now())
	router := protectedRouter(tokens, nil)

	userToken, _, err := tokens.Issue(uuid.New(), false)
	require.NoError(t, err)
	adminToken, _, err := tokens.Issue(uuid.New(), true)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, requestWithToken("/admin", userToken))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, requestWithToken("/admin", adminToken))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, requestWithToken("/admin", ""))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAuthenticateRevalidates(t *testing.T) {
	tokens := newTestTokens(t, time.Now())
	repo := newMemUserRepo()
	router := protectedRouter(tokens, repo)

	user := &types.User{Username: "alice", Email: "a@x.com", Password: "x", IsAdmin: true}
	require.NoError(t, repo.CreateUser(t.Context(), user))
	staleAdmin, _, err := tokens.Issue(user.ID, false)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, requestWithToken("/admin", staleAdmin))
	assert.Equal(t, http.StatusOK, w.Code, "stored admin flag wins over the token claim")

	ghost, _, err := tokens.Issue(uuid.New(), true)
	require.NoError(t, err)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, requestWithToken("/me", ghost))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
