package auth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"net/mail"
	"strings"

	"github.com/markbates/goth"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/FACorreiaa/go-blog-api/app/observability/metrics"
	"github.com/FACorreiaa/go-blog-api/internal/types"
)

var _ AuthService = (*AuthServiceImpl)(nil)

// usernameAttempts bounds how many random suffixes a Google sign up tries
// when the derived username is already taken.
const usernameAttempts = 3

type AuthService interface {
	Signup(ctx context.Context, req types.SignupRequest) (*types.User, error)
	Signin(ctx context.Context, req types.SigninRequest) (*types.Session, error)
	// SignInWithGoogle exchanges a Google identity for a local account,
	// creating one on first sign in.
	SignInWithGoogle(ctx context.Context, gu goth.User) (*types.Session, error)
}

type AuthServiceImpl struct {
	logger  *slog.Logger
	repo    UserRepo
	hasher  *PasswordHasher
	tokens  *TokenManager
	metrics *metrics.AppMetrics
}

func NewAuthService(repo UserRepo, hasher *PasswordHasher, tokens *TokenManager, logger *slog.Logger, m *metrics.AppMetrics) *AuthServiceImpl {
	return &AuthServiceImpl{
		logger:  logger,
		repo:    repo,
		hasher:  hasher,
		tokens:  tokens,
		metrics: m,
	}
}

// NormalizeEmail trims and lowercases email and checks it is a bare address.
func NormalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", types.NewError(types.ErrValidation, "Invalid email address")
	}
	return email, nil
}

func (s *AuthServiceImpl) Signup(ctx context.Context, req types.SignupRequest) (*types.User, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Signup")
	defer span.End()
	l := s.logger.With(slog.String("method", "Signup"))

	username := strings.TrimSpace(req.Username)
	if username == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		span.SetStatus(codes.Error, "Missing fields")
		return nil, types.NewError(types.ErrValidation, "All fields are required")
	}
	email, err := NormalizeEmail(req.Email)
	if err != nil {
		span.SetStatus(codes.Error, "Invalid email")
		return nil, err
	}

	digest, err := s.hasher.Hash(req.Password)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Hash failed")
		return nil, err
	}

	user := &types.User{
		Username: username,
		Email:    email,
		Password: digest,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Create failed")
		return nil, err
	}

	s.metrics.RecordSignup(ctx, "password")
	span.SetAttributes(attribute.String("user.id", user.ID.String()))
	span.SetStatus(codes.Ok, "User signed up")
	l.InfoContext(ctx, "User signed up", slog.String("userID", user.ID.String()))
	return user, nil
}

func (s *AuthServiceImpl) Signin(ctx context.Context, req types.SigninRequest) (*types.Session, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "Signin")
	defer span.End()
	l := s.logger.With(slog.String("method", "Signin"))

	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		span.SetStatus(codes.Error, "Missing fields")
		return nil, types.NewError(types.ErrValidation, "All fields are required")
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	invalid := types.NewError(types.ErrUnauthenticated, "Invalid email or password")

	user, err := s.repo.GetUserByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, types.ErrNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Lookup failed")
			s.metrics.RecordAuth(ctx, "password", "error")
			return nil, err
		}
		s.hasher.Verify(req.Password, "")
		s.metrics.RecordAuth(ctx, "password", "invalid_credentials")
		span.SetStatus(codes.Error, "Invalid credentials")
		return nil, invalid
	}

	if !s.hasher.Verify(req.Password, user.Password) {
		s.metrics.RecordAuth(ctx, "password", "invalid_credentials")
		span.SetStatus(codes.Error, "Invalid credentials")
		l.InfoContext(ctx, "Sign in rejected", slog.String("userID", user.ID.String()))
		return nil, invalid
	}

	session, err := s.issue(user)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Token failed")
		s.metrics.RecordAuth(ctx, "password", "error")
		return nil, err
	}

	s.metrics.RecordAuth(ctx, "password", "success")
	span.SetStatus(codes.Ok, "Signed in")
	l.InfoContext(ctx, "User signed in", slog.String("userID", user.ID.String()))
	return session, nil
}

func (s *AuthServiceImpl) SignInWithGoogle(ctx context.Context, gu goth.User) (*types.Session, error) {
	ctx, span := otel.Tracer("AuthService").Start(ctx, "SignInWithGoogle", trace.WithAttributes(
		attribute.String("auth.provider", "google"),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "SignInWithGoogle"))

	email, err := NormalizeEmail(gu.Email)
	if err != nil {
		span.SetStatus(codes.Error, "Invalid email")
		return nil, err
	}

	user, err := s.repo.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		l.DebugContext(ctx, "Existing account matched by email", slog.String("userID", user.ID.String()))
	case errors.Is(err, types.ErrNotFound):
		user, err = s.createGoogleUser(ctx, gu, email)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "Create failed")
			s.metrics.RecordAuth(ctx, "google", "error")
			return nil, err
		}
		s.metrics.RecordSignup(ctx, "google")
		l.InfoContext(ctx, "Created account from Google sign in", slog.String("userID", user.ID.String()))
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "Lookup failed")
		s.metrics.RecordAuth(ctx, "google", "error")
		return nil, fmt.Errorf("google sign-in lookup: %w", err)
	}

	session, err := s.issue(user)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Token failed")
		s.metrics.RecordAuth(ctx, "google", "error")
		return nil, err
	}
	s.metrics.RecordAuth(ctx, "google", "success")
	span.SetStatus(codes.Ok, "Signed in with Google")
	return session, nil
}

func (s *AuthServiceImpl) createGoogleUser(ctx context.Context, gu goth.User, email string) (*types.User, error) {
	password, err := randomPassword()
	if err != nil {
		return nil, err
	}
	digest, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	base := usernameBase(googleDisplayName(gu), emailLocalPart(email))
	for attempt := 1; ; attempt++ {
		suffix, err := randomDigits(4)
		if err != nil {
			return nil, err
		}
		user := &types.User{
			Username:       base + suffix,
			Email:          email,
			Password:       digest,
			ProfilePicture: gu.AvatarURL,
		}
		err = s.repo.CreateUser(ctx, user)
		if err == nil {
			return user, nil
		}
		// Only a username clash is retried with a fresh suffix. An email
		// clash means a concurrent first sign in won the race.
		if !errors.Is(err, ErrUsernameTaken) || attempt == usernameAttempts {
			if errors.Is(err, types.ErrConflict) {
				return nil, err
			}
			return nil, fmt.Errorf("google sign-up failed: %w", err)
		}
	}
}

func (s *AuthServiceImpl) issue(user *types.User) (*types.Session, error) {
	token, expiresAt, err := s.tokens.Issue(user.ID, user.IsAdmin)
	if err != nil {
		return nil, err
	}
	return &types.Session{User: user, Token: token, ExpiresAt: expiresAt}, nil
}

func googleDisplayName(gu goth.User) string {
	if gu.Name != "" {
		return gu.Name
	}
	if full := strings.TrimSpace(gu.FirstName + " " + gu.LastName); full != "" {
		return full
	}
	return gu.NickName
}

func emailLocalPart(email string) string {
	local, _, _ := strings.Cut(email, "@")
	return local
}

// usernameBase returns the first candidate that still has characters after
// lowercasing and keeping only ASCII letters and digits.
func usernameBase(candidates ...string) string {
	for _, c := range candidates {
		var b strings.Builder
		for _, r := range strings.ToLower(c) {
			if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
				b.WriteRune(r)
			}
		}
		if b.Len() > 0 {
			return b.String()
		}
	}
	return "user"
}

func randomDigits(n int) (string, error) {
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil)
	v, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("failed to generate username suffix: %w", err)
	}
	return fmt.Sprintf("%0*d", n, v), nil
}

func randomPassword() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate password: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
