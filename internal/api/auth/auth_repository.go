package auth

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
	"github.com/FACorreiaa/go-blog-api/internal/types"
)

var _ UserRepo = (*PostgresAuthRepo)(nil)

var (
	ErrUsernameTaken = types.NewError(types.ErrConflict, "Username already taken")
	ErrEmailTaken    = types.NewError(types.ErrConflict, "Email already in use")
)

// UserColumns is the column list ScanUser expects, in order.
const UserColumns = "id, username, email, password_hash, is_admin, profile_picture, created_at, updated_at"

// UserRepo is the credential store used by sign up and sign in.
type UserRepo interface {
	// CreateUser inserts u and fills its generated fields. A duplicate
	// username or email returns types.ErrConflict.
	CreateUser(ctx context.Context, u *types.User) error
	// GetUserByEmail returns types.ErrNotFound when no user has email.
	GetUserByEmail(ctx context.Context, email string) (*types.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*types.User, error)
}

type PostgresAuthRepo struct {
	logger  *slog.Logger
	db      database.DBTX
	metrics *metrics.AppMetrics
}

func NewPostgresAuthRepo(db database.DBTX, logger *slog.Logger, m *metrics.AppMetrics) *PostgresAuthRepo {
	return &PostgresAuthRepo{
		logger:  logger,
		db:      db,
		metrics: m,
	}
}

// ScanUser scans one row selected with UserColumns.
func ScanUser(row pgx.Row) (*types.User, error) {
	var u types.User
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.IsAdmin, &u.ProfilePicture, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// UserWriteError translates a failed users insert or update into the
// domain taxonomy.
func UserWriteError(err error) error {
	constraint, ok := database.UniqueViolation(err)
	if !ok {
		return err
	}
	switch constraint {
	case "users_username_key":
		return ErrUsernameTaken
	case "users_email_key":
		return ErrEmailTaken
	default:
		return types.NewError(types.ErrConflict, "User already exists")
	}
}

func (r *PostgresAuthRepo) CreateUser(ctx context.Context, u *types.User) error {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "CreateUser", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	if u.ProfilePicture == "" {
		u.ProfilePicture = types.DefaultProfilePicture
	}

	start := time.Now()
	query := `
		INSERT INTO users (username, email, password_hash, is_admin, profile_picture)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query, u.Username, u.Email, u.Password, u.IsAdmin, u.ProfilePicture).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	r.metrics.ObserveQuery(ctx, "users.insert", start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Insert failed")
		if mapped := UserWriteError(err); errors.Is(mapped, types.ErrConflict) {
			r.logger.WarnContext(ctx, "Duplicate user rejected by unique index", slog.String("email", u.Email))
			return mapped
		}
		r.logger.ErrorContext(ctx, "Failed to insert user", slog.Any("error", err))
		return fmt.Errorf("error creating user: %w", err)
	}

	span.SetAttributes(attribute.String("db.user.id", u.ID.String()))
	span.SetStatus(codes.Ok, "User created")
	return nil
}

func (r *PostgresAuthRepo) GetUserByEmail(ctx context.Context, email string) (*types.User, error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "GetUserByEmail", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.sql.table", "users"),
	))
	defer span.End()

	start := time.Now()
	u, err := ScanUser(r.db.QueryRow(ctx, "SELECT "+UserColumns+" FROM users WHERE email = $1", email))
	r.metrics.ObserveQuery(ctx, "users.select_by_email", start, ignoreNoRows(err))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Ok, "No user")
			return nil, fmt.Errorf("user with email %s: %w", email, types.ErrNotFound)
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Select failed")
		return nil, fmt.Errorf("error fetching user by email: %w", err)
	}
	span.SetStatus(codes.Ok, "User found")
	return u, nil
}

func (r *PostgresAuthRepo) GetUserByID(ctx context.Context, id uuid.UUID) (*types.User, error) {
	ctx, span := otel.Tracer("AuthRepo").Start(ctx, "GetUserByID", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.String("db.user.id", id.String()),
	))
	defer span.End()

	start := time.Now()
	u, err := ScanUser(r.db.QueryRow(ctx, "SELECT "+UserColumns+" FROM users WHERE id = $1", id))
	r.metrics.ObserveQuery(ctx, "users.select_by_id", start, ignoreNoRows(err))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			span.SetStatus(codes.Ok, "No user")
			return nil, types.NewError(types.ErrNotFound, "User not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "Select failed")
		return nil, fmt.Errorf("error fetching user by id: %w", err)
	}
	span.SetStatus(codes.Ok, "User found")
	return u, nil
}

func ignoreNoRows(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return nil
	}
	return err
}
