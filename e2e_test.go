package main

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"github.com/FACorreiaa/go-blog-api/config"
	"github.com/FACorreiaa/go-blog-api/internal/api/auth"
	"github.com/FACorreiaa/go-blog-api/internal/container"
	"github.com/FACorreiaa/go-blog-api/internal/types"
)

var (
	userCols    = []string{"id", "username", "email", "password_hash", "is_admin", "profile_picture", "created_at", "updated_at"}
	postCols    = []string{"id", "user_id", "title", "content", "image", "category", "slug", "created_at", "updated_at"}
	commentCols = []string{"id", "content", "post_id", "user_id", "likes", "cardinality", "created_at", "updated_at"}
)

// E2ETestSuite drives the full HTTP stack, from middleware to repositories,
// against a scripted database.
type E2ETestSuite struct {
	suite.Suite
	db     pgxmock.PgxPoolIface
	server *httptest.Server
	client *http.Client
	now    time.Time
}

func (s *E2ETestSuite) SetupTest() {
	db, err := pgxmock.NewPool()
	s.Require().NoError(err)
	s.db = db

	var cfg config.Config
	cfg.JWT.SecretKey = "e2e-secret"
	cfg.JWT.TokenTTL = time.Hour
	cfg.JWT.BcryptCost = bcrypt.MinCost
	cfg.Server.AllowedOrigins = []string{"http://localhost:5173"}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c, err := container.NewContainer(&cfg, logger, db, nil, nil)
	s.Require().NoError(err)

	s.server = httptest.NewServer(newHandler(c, 5*time.Second))
	jar, err := cookiejar.New(nil)
	s.Require().NoError(err)
	s.client = &http.Client{Jar: jar, Timeout: 5 * time.Second}
	s.now = time.Now()
}

func (s *E2ETestSuite) TearDownTest() {
	s.server.Close()
	s.NoError(s.db.ExpectationsWereMet())
	s.db.Close()
}

func (s *E2ETestSuite) do(method, path string, body any) (*http.Response, map[string]any) {
	var r io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		r = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, s.server.URL+path, r)
	s.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.client.Do(req)
	s.Require().NoError(err)
	defer resp.Body.Close()

	var decoded map[string]any
	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	if len(raw) > 0 && raw[0] == '{' {
		s.Require().NoError(json.Unmarshal(raw, &decoded))
	}
	return resp, decoded
}

// signIn scripts the lookup for a stored account and signs in as it.
func (s *E2ETestSuite) signIn(id uuid.UUID, isAdmin bool) {
	digest, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	s.Require().NoError(err)
	s.db.ExpectQuery(`SELECT (.+) FROM users WHERE email = \$1`).
		WithArgs("alice@x.com").
		WillReturnRows(pgxmock.NewRows(userCols).
			AddRow(id, "alice", "alice@x.com", string(digest), isAdmin, types.DefaultProfilePicture, s.now, s.now))

	resp, body := s.do(http.MethodPost, "/api/auth/signin", types.SigninRequest{Email: "Alice@X.com", Password: "secret1"})
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal(id.String(), body["_id"])
	s.NotContains(body, "password")
}

func (s *E2ETestSuite) TestSignupSigninAndWriteFlow() {
	userID := uuid.New()
	postID := uuid.New()
	commentID := uuid.New()

	s.db.ExpectQuery("INSERT INTO users").
		WithArgs("alice", "alice@x.com", pgxmock.AnyArg(), false, types.DefaultProfilePicture).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(userID, s.now, s.now))
	resp, body := s.do(http.MethodPost, "/api/auth/signup", types.SignupRequest{Username: "alice", Email: "alice@x.com", Password: "secret1"})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	s.Equal("Signup successful", body["message"])
	s.Empty(resp.Cookies(), "signup does not start a session")

	s.signIn(userID, false)

	s.db.ExpectQuery("INSERT INTO posts").
		WithArgs(userID, "Hello Gophers", "body", types.DefaultPostImage, types.DefaultPostCategory, "hello-gophers").
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(postID, s.now, s.now))
	resp, body = s.do(http.MethodPost, "/api/post/create", types.CreatePostParams{Title: "Hello Gophers", Content: "body"})
	s.Require().Equal(http.StatusCreated, resp.StatusCode)
	s.Equal("hello-gophers", body["slug"])

	s.db.ExpectQuery(`SELECT (.+) FROM posts WHERE slug = \$1`).
		WithArgs("hello-gophers").
		WillReturnRows(pgxmock.NewRows(postCols).
			AddRow(postID, userID, "Hello Gophers", "body", types.DefaultPostImage, types.DefaultPostCategory, "hello-gophers", s.now, s.now))
	for range 2 {
		resp, body = s.do(http.MethodGet, "/api/post/hello-gophers", nil)
		s.Require().Equal(http.StatusOK, resp.StatusCode)
		s.Equal(postID.String(), body["_id"])
	}

	s.db.ExpectQuery("INSERT INTO comments").
		WithArgs("first!", postID, userID).
		WillReturnRows(pgxmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(commentID, s.now, s.now))
	resp, _ = s.do(http.MethodPost, "/api/comment/create", types.CreateCommentParams{Content: "first!", PostID: postID, UserID: userID})
	s.Require().Equal(http.StatusOK, resp.StatusCode)

	s.db.ExpectQuery("UPDATE comments").
		WithArgs(commentID, userID).
		WillReturnRows(pgxmock.NewRows(commentCols).
			AddRow(commentID, "first!", postID, userID, []uuid.UUID{userID}, 1, s.now, s.now))
	resp, body = s.do(http.MethodPut, "/api/comment/likeComment/"+commentID.String(), nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.EqualValues(1, body["numberOfLikes"])
}

func (s *E2ETestSuite) TestAdminListingsRejectRegularUsers() {
	s.signIn(uuid.New(), false)

	for _, path := range []string{"/api/user/getusers", "/api/comment/getcomments"} {
		resp, body := s.do(http.MethodGet, path, nil)
		s.Equal(http.StatusForbidden, resp.StatusCode, path)
		s.Equal("You are not allowed to see this resource", body["message"])
	}
}

func (s *E2ETestSuite) TestAdminListsUsers() {
	adminID := uuid.New()
	s.signIn(adminID, true)

	s.db.MatchExpectationsInOrder(false)
	s.db.ExpectQuery(`SELECT (.+) FROM users ORDER BY created_at DESC`).
		WithArgs(9, 0).
		WillReturnRows(pgxmock.NewRows(userCols).
			AddRow(adminID, "alice", "alice@x.com", "digest", true, types.DefaultProfilePicture, s.now, s.now))
	s.db.ExpectQuery("SELECT COUNT").WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))
	s.db.ExpectQuery("SELECT COUNT").WithArgs(pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"count"}).AddRow(int64(1)))

	resp, body := s.do(http.MethodGet, "/api/user/getusers", nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.EqualValues(1, body["totalUsers"])
	users, ok := body["users"].([]any)
	s.Require().True(ok)
	s.Len(users, 1)
	s.NotContains(users[0], "password")
}

func (s *E2ETestSuite) TestSignoutEndsSession() {
	s.signIn(uuid.New(), false)

	resp, body := s.do(http.MethodPost, "/api/user/signout", nil)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal("User has been signed out", body["message"])

	resp, _ = s.do(http.MethodPost, "/api/post/create", types.CreatePostParams{Title: "t", Content: "c"})
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *E2ETestSuite) TestWrongPasswordIsGeneric() {
	digest, err := bcrypt.GenerateFromPassword([]byte("secret1"), bcrypt.MinCost)
	s.Require().NoError(err)
	s.db.ExpectQuery(`FROM users WHERE email`).WithArgs("alice@x.com").
		WillReturnRows(pgxmock.NewRows(userCols).
			AddRow(uuid.New(), "alice", "alice@x.com", string(digest), false, types.DefaultProfilePicture, s.now, s.now))
	s.db.ExpectQuery(`FROM users WHERE email`).WithArgs("nobody@x.com").
		WillReturnRows(pgxmock.NewRows(userCols))

	for _, req := range []types.SigninRequest{
		{Email: "alice@x.com", Password: "wrong"},
		{Email: "nobody@x.com", Password: "secret1"},
	} {
		resp, body := s.do(http.MethodPost, "/api/auth/signin", req)
		s.Equal(http.StatusUnauthorized, resp.StatusCode)
		s.Equal("Invalid email or password", body["message"])
		s.Empty(resp.Cookies())
	}
}

func (s *E2ETestSuite) TestForgedTokenRejected() {
	forged, err := auth.NewTokenManager("other-secret", time.Hour)
	s.Require().NoError(err)
	token, _, err := forged.Issue(uuid.New(), true)
	s.Require().NoError(err)

	req, err := http.NewRequest(http.MethodGet, s.server.URL+"/api/user/getusers", nil)
	s.Require().NoError(err)
	req.AddCookie(&http.Cookie{Name: auth.DefaultCookieName, Value: token})
	resp, err := http.DefaultClient.Do(req)
	s.Require().NoError(err)
	resp.Body.Close()
	s.Equal(http.StatusUnauthorized, resp.StatusCode)
}

func (s *E2ETestSuite) TestPing() {
	resp, err := s.client.Get(s.server.URL + "/ping")
	s.Require().NoError(err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	s.Require().NoError(err)
	s.Equal("pong", string(raw))
}

func TestE2ETestSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping end-to-end suite in short mode")
	}
	suite.Run(t, new(E2ETestSuite))
}

func TestNewHandlerRejectsUnknownRoute(t *testing.T) {
	var cfg config.Config
	cfg.JWT.SecretKey = "s"
	db, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer db.Close()

	c, err := container.NewContainer(&cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), db, nil, nil)
	require.NoError(t, err)
	w := httptest.NewRecorder()
	newHandler(c, time.Second).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGoogleAssertionRouteIsOptIn(t *testing.T) {
	for _, tc := range []struct {
		name   string
		allow  bool
		status int
	}{
		{"disabled", false, http.StatusNotFound},
		{"enabled", true, http.StatusBadRequest},
	} {
		t.Run(tc.name, func(t *testing.T) {
			var cfg config.Config
			cfg.JWT.SecretKey = "s"
			cfg.Google.AllowClientAssertion = tc.allow
			db, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer db.Close()

			c, err := container.NewContainer(&cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), db, nil, nil)
			require.NoError(t, err)
			w := httptest.NewRecorder()
			r := httptest.NewRequest(http.MethodPost, "/api/auth/google", bytes.NewBufferString(`{"email":`))
			r.Header.Set("Content-Type", "application/json")
			newHandler(c, time.Second).ServeHTTP(w, r)
			assert.Equal(t, tc.status, w.Code)
			assert.NoError(t, db.ExpectationsWereMet())
		})
	}
}
