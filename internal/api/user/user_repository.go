package user

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"

	database "github.com/FACorreiaa/go-blog-api/app/db"
	"github.com/FACorreiaa/go-blog-api/app/observability/metrics"
	"github.com/FACorreiaa/go-blog-api/internal/api/auth"
	"github.com/FACorreiaa/go-blog-api/internal/types"
)

var _ UserRepo = (*PostgresUserRepo)(nil)

// UserRepo defines the contract for user data persistence.
type UserRepo interface {
	// GetUserByID returns types.ErrNotFound if the user doesn't exist.
	GetUserByID(ctx context.Context, userID uuid.UUID) (*types.User, error)
	// UpdateUser applies the non-nil fields of params. Password must
	// already be hashed.
	UpdateUser(ctx context.Context, userID uuid.UUID, params types.UpdateUserParams) (*types.User, error)
	DeleteUser(ctx context.Context, userID uuid.UUID) error
	ListUsers(ctx context.Context, opts types.ListOptions) ([]types.User, error)
	// CountUsers counts users created at or after since. A zero since
	// counts everyone.
	CountUsers(ctx context.Context, since time.Time) (int64, error)
}

type PostgresUserRepo struct {
	logger  *slog.Logger
	db      database.DBTX
	metrics *metrics.AppMetrics
}

func NewPostgresUserRepo(db database.DBTX, logger *slog.Logger, m *metrics.AppMetrics) *PostgresUserRepo {
	return &PostgresUserRepo{
		logger:  logger,
		db:      db,
		metrics: m,
	}
}

func (r *PostgresUserRepo) GetUserByID(ctx context.Context, userID uuid.UUID) (*types.User, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "GetUserByID", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	start := time.Now()
	u, err := auth.ScanUser(r.db.QueryRow(ctx, "SELECT "+auth.UserColumns+" FROM users WHERE id = $1", userID))
	if errors.Is(err, pgx.ErrNoRows) {
		r.metrics.ObserveQuery(ctx, "users.select_by_id", start, nil)
		span.SetStatus(codes.Ok, "No user")
		return nil, types.NewError(types.ErrNotFound, "User not found")
	}
	r.metrics.ObserveQuery(ctx, "users.select_by_id", start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("error fetching user: %w", err)
	}
	span.SetStatus(codes.Ok, "User fetched")
	return u, nil
}

func (r *PostgresUserRepo) UpdateUser(ctx context.Context, userID uuid.UUID, params types.UpdateUserParams) (*types.User, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "UpdateUser", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.sql.table", "users"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()
	l := r.logger.With(slog.String("method", "UpdateUser"), slog.String("userID", userID.String()))

	var set database.UpdateSet
	if params.Username != nil {
		set.Set("username", *params.Username)
		span.SetAttributes(attribute.Bool("update.username", true))
	}
	if params.Email != nil {
		set.Set("email", *params.Email)
		span.SetAttributes(attribute.Bool("update.email", true))
	}
	if params.Password != nil {
		set.Set("password_hash", *params.Password)
		span.SetAttributes(attribute.Bool("update.password", true))
	}
	if params.ProfilePicture != nil {
		set.Set("profile_picture", *params.ProfilePicture)
		span.SetAttributes(attribute.Bool("update.profile_picture", true))
	}
	if params.IsAdmin != nil {
		set.Set("is_admin", *params.IsAdmin)
		span.SetAttributes(attribute.Bool("update.is_admin", true))
	}
	if set.Empty() {
		return nil, types.NewError(types.ErrValidation, "No fields to update")
	}

	query := fmt.Sprintf("UPDATE users SET %s, updated_at = NOW() WHERE id = %s RETURNING %s",
		set.SQL(), set.Next(userID), auth.UserColumns)

	start := time.Now()
	u, err := auth.ScanUser(r.db.QueryRow(ctx, query, set.Args...))
	if errors.Is(err, pgx.ErrNoRows) {
		r.metrics.ObserveQuery(ctx, "users.update", start, nil)
		span.SetStatus(codes.Error, "User not found")
		return nil, types.NewError(types.ErrNotFound, "User not found")
	}
	r.metrics.ObserveQuery(ctx, "users.update", start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB update failed")
		if mapped := auth.UserWriteError(err); errors.Is(mapped, types.ErrConflict) {
			return nil, mapped
		}
		l.ErrorContext(ctx, "Failed to update user", slog.Any("error", err))
		return nil, fmt.Errorf("error updating user: %w", err)
	}

	l.InfoContext(ctx, "User updated")
	span.SetStatus(codes.Ok, "User updated")
	return u, nil
}

func (r *PostgresUserRepo) DeleteUser(ctx context.Context, userID uuid.UUID) error {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "DeleteUser", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "DELETE"),
		attribute.String("db.user.id", userID.String()),
	))
	defer span.End()

	start := time.Now()
	tag, err := r.db.Exec(ctx, "DELETE FROM users WHERE id = $1", userID)
	r.metrics.ObserveQuery(ctx, "users.delete", start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB delete failed")
		return fmt.Errorf("error deleting user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		span.SetStatus(codes.Error, "User not found")
		return types.NewError(types.ErrNotFound, "User not found")
	}
	span.SetStatus(codes.Ok, "User deleted")
	return nil
}

func (r *PostgresUserRepo) ListUsers(ctx context.Context, opts types.ListOptions) ([]types.User, error) {
	ctx, span := otel.Tracer("UserRepo").Start(ctx, "ListUsers", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.Int("list.start_index", opts.StartIndex),
		attribute.Int("list.limit", opts.Limit),
	))
	defer span.End()

	query := fmt.Sprintf("SELECT %s FROM users ORDER BY created_at %s LIMIT $1 OFFSET $2",
		auth.UserColumns, database.OrderDirection(opts.Ascending))

	start := time.Now()
	rows, err := r.db.Query(ctx, query, opts.Limit, opts.StartIndex)
	if err != nil {
		r.metrics.ObserveQuery(ctx, "users.list", start, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("error listing users: %w", err)
	}
	defer rows.Close()

	users := make([]types.User, 0, opts.Limit)
	for rows.Next() {
		u, err := auth.ScanUser(rows)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("error scanning user: %w", err)
		}
		users = append(users, *u)
	}
	err = rows.Err()
	r.metrics.ObserveQuery(ctx, "users.list", start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Row iteration failed")
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	span.SetStatus(codes.Ok, "Users listed")
	return users, nil
}

func (r *PostgresUserRepo) CountUsers(ctx context.Context, since time.Time) (int64, error) {
	start := time.Now()
	var n int64
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM users WHERE created_at >= $1", since).Scan(&n)
	r.metrics.ObserveQuery(ctx, "users.count", start, err)
	if err != nil {
		return 0, fmt.Errorf("error counting users: %w", err)
	}
	return n, nil
}
