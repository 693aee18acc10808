package comment

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

var _ CommentRepo = (*PostgresCommentRepo)(nil)

const commentColumns = "id, content, post_id, user_id, likes, cardinality(likes), created_at, updated_at"

type CommentRepo interface {
	// CreateComment inserts c and fills its generated fields. A missing post
	// returns types.ErrNotFound.
	CreateComment(ctx context.Context, c *types.Comment) error
	GetCommentByID(ctx context.Context, commentID uuid.UUID) (*types.Comment, error)
	ListPostComments(ctx context.Context, postID uuid.UUID) ([]types.Comment, error)
	ListComments(ctx context.Context, opts types.ListOptions) ([]types.Comment, error)
	CountComments(ctx context.Context, since time.Time) (int64, error)
	// ToggleLike adds userID to the likes of the comment, or removes it when
	// already present, in a single statement.
	ToggleLike(ctx context.Context, commentID, userID uuid.UUID) (*types.Comment, error)
	UpdateContent(ctx context.Context, commentID uuid.UUID, content string) (*types.Comment, error)
	DeleteComment(ctx context.Context, commentID uuid.UUID) error
}

type PostgresCommentRepo struct {
	logger  *slog.Logger
	db      database.DBTX
	metrics *metrics.AppMetrics
}

func NewPostgresCommentRepo(db database.DBTX, logger *slog.Logger, m *metrics.AppMetrics) *PostgresCommentRepo {
	return &PostgresCommentRepo{
		logger:  logger,
		db:      db,
		metrics: m,
	}
}

func scanComment(row pgx.Row) (*types.Comment, error) {
	var c types.Comment
	err := row.Scan(&c.ID, &c.Content, &c.PostID, &c.UserID, &c.Likes, &c.NumberOfLikes, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if c.Likes == nil {
		c.Likes = []uuid.UUID{}
	}
	return &c, nil
}

func (r *PostgresCommentRepo) CreateComment(ctx context.Context, c *types.Comment) error {
	ctx, span := otel.Tracer("CommentRepo").Start(ctx, "CreateComment", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "comments"),
		attribute.String("db.post.id", c.PostID.String()),
	))
	defer span.End()

	start := time.Now()
	query := `
		INSERT INTO comments (content, post_id, user_id)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query, c.Content, c.PostID, c.UserID).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	r.metrics.ObserveQuery(ctx, "comments.insert", start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Insert failed")
		if database.ForeignKeyViolation(err) {
			return types.NewError(types.ErrNotFound, "Post not found")
		}
		return fmt.Errorf("error creating comment: %w", err)
	}
	c.Likes = []uuid.UUID{}
	span.SetStatus(codes.Ok, "Comment created")
	return nil
}

func (r *PostgresCommentRepo) GetCommentByID(ctx context.Context, commentID uuid.UUID) (*types.Comment, error) {
	ctx, span := otel.Tracer("CommentRepo").Start(ctx, "GetCommentByID", trace.WithAttributes(
		attribute.String("db.comment.id", commentID.String()),
	))
	defer span.End()

	return r.one(ctx, "comments.select_by_id", "SELECT "+commentColumns+" FROM comments WHERE id = $1", commentID)
}

// one runs a single row statement and maps pgx.ErrNoRows to a not found error.
func (r *PostgresCommentRepo) one(ctx context.Context, op, query string, args ...any) (*types.Comment, error) {
	start := time.Now()
	c, err := scanComment(r.db.QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		r.metrics.ObserveQuery(ctx, op, start, nil)
		return nil, types.NewError(types.ErrNotFound, "Comment not found")
	}
	r.metrics.ObserveQuery(ctx, op, start, err)
	if err != nil {
		trace.SpanFromContext(ctx).RecordError(err)
		return nil, fmt.Errorf("error running %s: %w", op, err)
	}
	return c, nil
}

func (r *PostgresCommentRepo) many(ctx context.Context, op, query string, args ...any) ([]types.Comment, error) {
	start := time.Now()
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.metrics.ObserveQuery(ctx, op, start, err)
		return nil, fmt.Errorf("error running %s: %w", op, err)
	}
	defer rows.Close()

	comments := []types.Comment{}
	for rows.Next() {
		c, err := scanComment(rows)
		if err != nil {
			return nil, fmt.Errorf("error scanning comment: %w", err)
		}
		comments = append(comments, *c)
	}
	err = rows.Err()
	r.metrics.ObserveQuery(ctx, op, start, err)
	if err != nil {
		return nil, fmt.Errorf("error iterating comments: %w", err)
	}
	return comments, nil
}

func (r *PostgresCommentRepo) ListPostComments(ctx context.Context, postID uuid.UUID) ([]types.Comment, error) {
	ctx, span := otel.Tracer("CommentRepo").Start(ctx, "ListPostComments", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.post.id", postID.String()),
	))
	defer span.End()

	comments, err := r.many(ctx, "comments.list_by_post",
		"SELECT "+commentColumns+" FROM comments WHERE post_id = $1 ORDER BY created_at DESC", postID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "Comments listed")
	return comments, nil
}

func (r *PostgresCommentRepo) ListComments(ctx context.Context, opts types.ListOptions) ([]types.Comment, error) {
	ctx, span := otel.Tracer("CommentRepo").Start(ctx, "ListComments", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.Int("list.start_index", opts.StartIndex),
		attribute.Int("list.limit", opts.Limit),
	))
	defer span.End()

	query := fmt.Sprintf("SELECT %s FROM comments ORDER BY created_at %s LIMIT $1 OFFSET $2",
		commentColumns, database.OrderDirection(opts.Ascending))
	comments, err := r.many(ctx, "comments.list", query, opts.Limit, opts.StartIndex)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "Comments listed")
	return comments, nil
}

func (r *PostgresCommentRepo) CountComments(ctx context.Context, since time.Time) (int64, error) {
	start := time.Now()
	var n int64
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM comments WHERE created_at >= $1", since).Scan(&n)
	r.metrics.ObserveQuery(ctx, "comments.count", start, err)
	if err != nil {
		return 0, fmt.Errorf("error counting comments: %w", err)
	}
	return n, nil
}

func (r *PostgresCommentRepo) ToggleLike(ctx context.Context, commentID, userID uuid.UUID) (*types.Comment, error) {
	ctx, span := otel.Tracer("CommentRepo").Start(ctx, "ToggleLike", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.comment.id", commentID.String()),
	))
	defer span.End()

	query := `
		UPDATE comments
		SET likes = CASE WHEN $2 = ANY(likes) THEN array_remove(likes, $2) ELSE array_append(likes, $2) END
		WHERE id = $1
		RETURNING ` + commentColumns
	c, err := r.one(ctx, "comments.toggle_like", query, commentID, userID)
	if err != nil {
		span.SetStatus(codes.Error, "Toggle failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "Like toggled")
	return c, nil
}

func (r *PostgresCommentRepo) UpdateContent(ctx context.Context, commentID uuid.UUID, content string) (*types.Comment, error) {
	ctx, span := otel.Tracer("CommentRepo").Start(ctx, "UpdateContent", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.comment.id", commentID.String()),
	))
	defer span.End()

	query := "UPDATE comments SET content = $2, updated_at = NOW() WHERE id = $1 RETURNING " + commentColumns
	c, err := r.one(ctx, "comments.update", query, commentID, content)
	if err != nil {
		span.SetStatus(codes.Error, "Update failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "Comment updated")
	return c, nil
}

func (r *PostgresCommentRepo) DeleteComment(ctx context.Context, commentID uuid.UUID) error {
	ctx, span := otel.Tracer("CommentRepo").Start(ctx, "DeleteComment", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "DELETE"),
		attribute.String("db.comment.id", commentID.String()),
	))
	defer span.End()

	start := time.Now()
	tag, err := r.db.Exec(ctx, "DELETE FROM comments WHERE id = $1", commentID)
	r.metrics.ObserveQuery(ctx, "comments.delete", start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB delete failed")
		return fmt.Errorf("error deleting comment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewError(types.ErrNotFound, "Comment not found")
	}
	span.SetStatus(codes.Ok, "Comment deleted")
	return nil
}
