package user

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/go-blog-api/internal/api/auth"
	"github.com/FACorreiaa/go-blog-api/internal/types"
)

const (
	minUsernameLength = 7
	maxUsernameLength = 20
	minPasswordLength = 6
)

// Ensure implementation satisfies the interface
var _ UserService = (*UserServiceImpl)(nil)

// UserService defines the business logic contract for user operations.
type UserService interface {
	GetUser(ctx context.Context, userID uuid.UUID) (*types.User, error)
	UpdateUser(ctx context.Context, caller types.Identity, userID uuid.UUID, params types.UpdateUserParams) (*types.User, error)
	DeleteUser(ctx context.Context, caller types.Identity, userID uuid.UUID) error
	GetUsers(ctx context.Context, caller types.Identity, opts types.ListOptions) (*types.UserList, error)
}

// UserServiceImpl provides the implementation for UserService.
type UserServiceImpl struct {
	logger *slog.Logger
	repo   UserRepo
	hasher *auth.PasswordHasher
	now    func() time.Time
	// deleted run after a user row is removed.
	deleted []func(userID uuid.UUID)
}

// NewUserService creates a new user service instance.
func NewUserService(repo UserRepo, hasher *auth.PasswordHasher, logger *slog.Logger) *UserServiceImpl {
	return &UserServiceImpl{
		logger: logger,
		repo:   repo,
		hasher: hasher,
		now:    time.Now,
	}
}

// OnDelete registers fn to run after a user is deleted, for state that the
// cascading delete cannot reach.
func (s *UserServiceImpl) OnDelete(fn func(userID uuid.UUID)) {
	s.deleted = append(s.deleted, fn)
}

func (s *UserServiceImpl) GetUser(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	return s.repo.GetUserByID(ctx, userID)
}

// UpdateUser lets users edit their own profile and admins edit anyone's.
// Only admins may change the admin flag.
func (s *UserServiceImpl) UpdateUser(ctx context.Context, caller types.Identity, userID uuid.UUID, params types.UpdateUserParams) (*types.User, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "UpdateUser", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()
	l := s.logger.With(slog.String("method", "UpdateUser"), slog.String("userID", userID.String()))

	if err := auth.Authorize(caller, userID); err != nil {
		span.SetStatus(codes.Error, "Forbidden")
		return nil, types.NewError(types.ErrForbidden, "You are not allowed to update this user")
	}
	if params.Empty() {
		span.SetStatus(codes.Error, "Empty update")
		return nil, types.NewError(types.ErrValidation, "No fields to update")
	}
	if params.IsAdmin != nil && !caller.IsAdmin {
		span.SetStatus(codes.Error, "Forbidden")
		return nil, types.NewError(types.ErrForbidden, "Only admins can change admin status")
	}

	if params.Username != nil {
		if err := validateUsername(*params.Username); err != nil {
			return nil, err
		}
	}
	if params.Email != nil {
		email, err := auth.NormalizeEmail(*params.Email)
		if err != nil {
			return nil, err
		}
		params.Email = &email
	}
	if params.Password != nil {
		if len(*params.Password) < minPasswordLength {
			return nil, types.NewError(types.ErrValidation, fmt.Sprintf("Password must be at least %d characters", minPasswordLength))
		}
		digest, err := s.hasher.Hash(*params.Password)
		if err != nil {
			span.RecordError(err)
			return nil, err
		}
		params.Password = &digest
	}

	u, err := s.repo.UpdateUser(ctx, userID, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Update failed")
		return nil, err
	}

	l.InfoContext(ctx, "User profile updated", slog.String("callerID", caller.ID.String()))
	span.SetStatus(codes.Ok, "User updated")
	return u, nil
}

func (s *UserServiceImpl) DeleteUser(ctx context.Context, caller types.Identity, userID uuid.UUID) error {
	ctx, span := otel.Tracer("UserService").Start(ctx, "DeleteUser", trace.WithAttributes(
		attribute.String("user.id", userID.String()),
	))
	defer span.End()

	if err := auth.Authorize(caller, userID); err != nil {
		span.SetStatus(codes.Error, "Forbidden")
		return types.NewError(types.ErrForbidden, "You are not allowed to delete this user")
	}
	if err := s.repo.DeleteUser(ctx, userID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Delete failed")
		return err
	}
	for _, fn := range s.deleted {
		fn(userID)
	}
	s.logger.InfoContext(ctx, "User deleted", slog.String("userID", userID.String()), slog.String("callerID", caller.ID.String()))
	span.SetStatus(codes.Ok, "User deleted")
	return nil
}

// GetUsers returns one page of users plus the total and last month counts.
func (s *UserServiceImpl) GetUsers(ctx context.Context, caller types.Identity, opts types.ListOptions) (*types.UserList, error) {
	ctx, span := otel.Tracer("UserService").Start(ctx, "GetUsers")
	defer span.End()

	if !caller.IsAdmin {
		span.SetStatus(codes.Error, "Forbidden")
		return nil, types.NewError(types.ErrForbidden, "You are not allowed to see all users")
	}

	var list types.UserList
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		users, err := s.repo.ListUsers(gctx, opts)
		list.Users = users
		return err
	})
	g.Go(func() error {
		n, err := s.repo.CountUsers(gctx, time.Time{})
		list.TotalUsers = n
		return err
	})
	g.Go(func() error {
		n, err := s.repo.CountUsers(gctx, s.now().AddDate(0, -1, 0))
		list.LastMonthUsers = n
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Listing failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "Users listed")
	return &list, nil
}

func validateUsername(username string) error {
	if n := len(username); n < minUsernameLength || n > maxUsernameLength {
		return types.NewError(types.ErrValidation, fmt.Sprintf("Username must be between %d and %d characters", minUsernameLength, maxUsernameLength))
	}
	if strings.ContainsFunc(username, unicode.IsSpace) {
		return types.NewError(types.ErrValidation, "Username cannot contain spaces")
	}
	if username != strings.ToLower(username) {
		return types.NewError(types.ErrValidation, "Username must be lowercase")
	}
	for _, r := range username {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return types.NewError(types.ErrValidation, "Username can only contain letters and numbers")
		}
	}
	return nil
}
