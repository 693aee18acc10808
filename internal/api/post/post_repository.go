package post

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
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

var _ PostRepo = (*PostgresPostRepo)(nil)

const postColumns = "id, user_id, title, content, image, category, slug, created_at, updated_at"

type PostRepo interface {
	// CreatePost inserts p and fills its generated fields. A duplicate
	// title or slug returns types.ErrConflict.
	CreatePost(ctx context.Context, p *types.Post) error
	GetPostByID(ctx context.Context, postID uuid.UUID) (*types.Post, error)
	GetPostBySlug(ctx context.Context, slug string) (*types.Post, error)
	ListPosts(ctx context.Context, filter types.PostFilter) ([]types.Post, error)
	// CountPosts counts posts created at or after since.
	CountPosts(ctx context.Context, since time.Time) (int64, error)
	UpdatePost(ctx context.Context, postID uuid.UUID, params types.UpdatePostParams) (*types.Post, error)
	DeletePost(ctx context.Context, postID uuid.UUID) error
}

type PostgresPostRepo struct {
	logger  *slog.Logger
	db      database.DBTX
	metrics *metrics.AppMetrics
}

func NewPostgresPostRepo(db database.DBTX, logger *slog.Logger, m *metrics.AppMetrics) *PostgresPostRepo {
	return &PostgresPostRepo{
		logger:  logger,
		db:      db,
		metrics: m,
	}
}

func scanPost(row pgx.Row) (*types.Post, error) {
	var p types.Post
	err := row.Scan(&p.ID, &p.UserID, &p.Title, &p.Content, &p.Image, &p.Category, &p.Slug, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func postWriteError(err error) error {
	if _, ok := database.UniqueViolation(err); ok {
		return types.NewError(types.ErrConflict, "A post with this title already exists")
	}
	return err
}

func (r *PostgresPostRepo) CreatePost(ctx context.Context, p *types.Post) error {
	ctx, span := otel.Tracer("PostRepo").Start(ctx, "CreatePost", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "INSERT"),
		attribute.String("db.sql.table", "posts"),
	))
	defer span.End()

	start := time.Now()
	query := `
		INSERT INTO posts (user_id, title, content, image, category, slug)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRow(ctx, query, p.UserID, p.Title, p.Content, p.Image, p.Category, p.Slug).
		Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	r.metrics.ObserveQuery(ctx, "posts.insert", start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Insert failed")
		if mapped := postWriteError(err); errors.Is(mapped, types.ErrConflict) {
			return mapped
		}
		return fmt.Errorf("error creating post: %w", err)
	}
	span.SetStatus(codes.Ok, "Post created")
	return nil
}

func (r *PostgresPostRepo) getOne(ctx context.Context, op, where string, arg any) (*types.Post, error) {
	start := time.Now()
	p, err := scanPost(r.db.QueryRow(ctx, "SELECT "+postColumns+" FROM posts WHERE "+where+" = $1", arg))
	if errors.Is(err, pgx.ErrNoRows) {
		r.metrics.ObserveQuery(ctx, op, start, nil)
		return nil, types.NewError(types.ErrNotFound, "Post not found")
	}
	r.metrics.ObserveQuery(ctx, op, start, err)
	if err != nil {
		return nil, fmt.Errorf("error fetching post: %w", err)
	}
	return p, nil
}

func (r *PostgresPostRepo) GetPostByID(ctx context.Context, postID uuid.UUID) (*types.Post, error) {
	ctx, span := otel.Tracer("PostRepo").Start(ctx, "GetPostByID", trace.WithAttributes(
		attribute.String("db.post.id", postID.String()),
	))
	defer span.End()
	return r.getOne(ctx, "posts.select_by_id", "id", postID)
}

func (r *PostgresPostRepo) GetPostBySlug(ctx context.Context, slug string) (*types.Post, error) {
	ctx, span := otel.Tracer("PostRepo").Start(ctx, "GetPostBySlug", trace.WithAttributes(
		attribute.String("db.post.slug", slug),
	))
	defer span.End()
	return r.getOne(ctx, "posts.select_by_slug", "slug", slug)
}

// ListPosts filters on every non-zero field of filter and orders by
// updated_at.
func (r *PostgresPostRepo) ListPosts(ctx context.Context, filter types.PostFilter) ([]types.Post, error) {
	ctx, span := otel.Tracer("PostRepo").Start(ctx, "ListPosts", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "SELECT"),
		attribute.Int("list.start_index", filter.StartIndex),
		attribute.Int("list.limit", filter.Limit),
	))
	defer span.End()

	var q database.QueryArgs
	var where []string
	if filter.UserID != uuid.Nil {
		where = append(where, "user_id = "+q.Next(filter.UserID))
	}
	if filter.PostID != uuid.Nil {
		where = append(where, "id = "+q.Next(filter.PostID))
	}
	if filter.Category != "" {
		where = append(where, "category = "+q.Next(filter.Category))
	}
	if filter.Slug != "" {
		where = append(where, "slug = "+q.Next(filter.Slug))
	}
	if filter.SearchTerm != "" {
		p := q.Next(database.ContainsPattern(filter.SearchTerm))
		where = append(where, fmt.Sprintf("(title ILIKE %s OR content ILIKE %s)", p, p))
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + postColumns + " FROM posts")
	if len(where) > 0 {
		sb.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	fmt.Fprintf(&sb, " ORDER BY updated_at %s LIMIT %s OFFSET %s",
		database.OrderDirection(filter.Ascending), q.Next(filter.Limit), q.Next(filter.StartIndex))

	start := time.Now()
	rows, err := r.db.Query(ctx, sb.String(), q.Args...)
	if err != nil {
		r.metrics.ObserveQuery(ctx, "posts.list", start, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB query failed")
		return nil, fmt.Errorf("error listing posts: %w", err)
	}
	defer rows.Close()

	posts := make([]types.Post, 0, filter.Limit)
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("error scanning post: %w", err)
		}
		posts = append(posts, *p)
	}
	err = rows.Err()
	r.metrics.ObserveQuery(ctx, "posts.list", start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Row iteration failed")
		return nil, fmt.Errorf("error iterating posts: %w", err)
	}
	span.SetStatus(codes.Ok, "Posts listed")
	return posts, nil
}

func (r *PostgresPostRepo) CountPosts(ctx context.Context, since time.Time) (int64, error) {
	start := time.Now()
	var n int64
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM posts WHERE created_at >= $1", since).Scan(&n)
	r.metrics.ObserveQuery(ctx, "posts.count", start, err)
	if err != nil {
		return 0, fmt.Errorf("error counting posts: %w", err)
	}
	return n, nil
}

func (r *PostgresPostRepo) UpdatePost(ctx context.Context, postID uuid.UUID, params types.UpdatePostParams) (*types.Post, error) {
	ctx, span := otel.Tracer("PostRepo").Start(ctx, "UpdatePost", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "UPDATE"),
		attribute.String("db.post.id", postID.String()),
	))
	defer span.End()

	var set database.UpdateSet
	if params.Title != nil {
		set.Set("title", *params.Title)
	}
	if params.Slug != nil {
		set.Set("slug", *params.Slug)
	}
	if params.Content != nil {
		set.Set("content", *params.Content)
	}
	if params.Image != nil {
		set.Set("image", *params.Image)
	}
	if params.Category != nil {
		set.Set("category", *params.Category)
	}
	if set.Empty() {
		return nil, types.NewError(types.ErrValidation, "No fields to update")
	}

	query := fmt.Sprintf("UPDATE posts SET %s, updated_at = NOW() WHERE id = %s RETURNING %s",
		set.SQL(), set.Next(postID), postColumns)

	start := time.Now()
	p, err := scanPost(r.db.QueryRow(ctx, query, set.Args...))
	if errors.Is(err, pgx.ErrNoRows) {
		r.metrics.ObserveQuery(ctx, "posts.update", start, nil)
		span.SetStatus(codes.Error, "Post not found")
		return nil, types.NewError(types.ErrNotFound, "Post not found")
	}
	r.metrics.ObserveQuery(ctx, "posts.update", start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB update failed")
		if mapped := postWriteError(err); errors.Is(mapped, types.ErrConflict) {
			return nil, mapped
		}
		return nil, fmt.Errorf("error updating post: %w", err)
	}
	span.SetStatus(codes.Ok, "Post updated")
	return p, nil
}

func (r *PostgresPostRepo) DeletePost(ctx context.Context, postID uuid.UUID) error {
	ctx, span := otel.Tracer("PostRepo").Start(ctx, "DeletePost", trace.WithAttributes(
		semconv.DBSystemPostgreSQL,
		attribute.String("db.operation", "DELETE"),
		attribute.String("db.post.id", postID.String()),
	))
	defer span.End()

	start := time.Now()
	tag, err := r.db.Exec(ctx, "DELETE FROM posts WHERE id = $1", postID)
	r.metrics.ObserveQuery(ctx, "posts.delete", start, err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "DB delete failed")
		return fmt.Errorf("error deleting post: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return types.NewError(types.ErrNotFound, "Post not found")
	}
	span.SetStatus(codes.Ok, "Post deleted")
	return nil
}
