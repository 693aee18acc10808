package post

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"github.com/patrickmn/go-cache"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/go-blog-api/internal/api/auth"
	"github.com/FACorreiaa/go-blog-api/internal/types"
)

const (
	slugCacheTTL     = 5 * time.Minute
	slugCacheCleanup = 10 * time.Minute
)

var _ PostService = (*PostServiceImpl)(nil)

type PostService interface {
	CreatePost(ctx context.Context, caller types.Identity, params types.CreatePostParams) (*types.Post, error)
	GetPosts(ctx context.Context, filter types.PostFilter) (*types.PostList, error)
	GetPostBySlug(ctx context.Context, slug string) (*types.Post, error)
	UpdatePost(ctx context.Context, caller types.Identity, postID, userID uuid.UUID, params types.UpdatePostParams) (*types.Post, error)
	DeletePost(ctx context.Context, caller types.Identity, postID, userID uuid.UUID) error
}

type PostServiceImpl struct {
	logger *slog.Logger
	repo   PostRepo
	cache  *cache.Cache
	now    func() time.Time
}

// NewPostService returns a service whose slug lookups are cached in
// process for a few minutes.
func NewPostService(repo PostRepo, logger *slog.Logger) *PostServiceImpl {
	return &PostServiceImpl{
		logger: logger,
		repo:   repo,
		cache:  cache.New(slugCacheTTL, slugCacheCleanup),
		now:    time.Now,
	}
}

func slugKey(s string) string { return "slug:" + s }

// reservedSlugs are static GET routes under /api/post that would shadow a
// post slug.
var reservedSlugs = map[string]bool{"getposts": true}

func makeSlug(title string) string {
	s := slug.Make(title)
	if reservedSlugs[s] {
		return s + "-post"
	}
	return s
}

// EvictAuthor drops every cached post written by userID. Deleting a user
// removes their posts through the foreign key cascade, outside this
// service.
func (s *PostServiceImpl) EvictAuthor(userID uuid.UUID) {
	for key, item := range s.cache.Items() {
		if p, ok := item.Object.(types.Post); ok && p.UserID == userID {
			s.cache.Delete(key)
		}
	}
}

func (s *PostServiceImpl) CreatePost(ctx context.Context, caller types.Identity, params types.CreatePostParams) (*types.Post, error) {
	ctx, span := otel.Tracer("PostService").Start(ctx, "CreatePost", trace.WithAttributes(
		attribute.String("user.id", caller.ID.String()),
	))
	defer span.End()

	title := strings.TrimSpace(params.Title)
	if title == "" || strings.TrimSpace(params.Content) == "" {
		span.SetStatus(codes.Error, "Missing fields")
		return nil, types.NewError(types.ErrValidation, "Please provide all required fields")
	}
	postSlug := makeSlug(title)
	if postSlug == "" {
		return nil, types.NewError(types.ErrValidation, "Title must contain letters or numbers")
	}

	p := &types.Post{
		UserID:   caller.ID,
		Title:    title,
		Content:  params.Content,
		Image:    params.Image,
		Category: params.Category,
		Slug:     postSlug,
	}
	if p.Image == "" {
		p.Image = types.DefaultPostImage
	}
	if p.Category == "" {
		p.Category = types.DefaultPostCategory
	}

	if err := s.repo.CreatePost(ctx, p); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Create failed")
		return nil, err
	}
	s.logger.InfoContext(ctx, "Post created", slog.String("postID", p.ID.String()), slog.String("slug", p.Slug))
	span.SetStatus(codes.Ok, "Post created")
	return p, nil
}

// GetPosts returns one page of posts plus the total and last month counts
// across all posts.
func (s *PostServiceImpl) GetPosts(ctx context.Context, filter types.PostFilter) (*types.PostList, error) {
	ctx, span := otel.Tracer("PostService").Start(ctx, "GetPosts")
	defer span.End()

	var list types.PostList
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		posts, err := s.repo.ListPosts(gctx, filter)
		list.Posts = posts
		return err
	})
	g.Go(func() error {
		n, err := s.repo.CountPosts(gctx, time.Time{})
		list.TotalPosts = n
		return err
	})
	g.Go(func() error {
		n, err := s.repo.CountPosts(gctx, s.now().AddDate(0, -1, 0))
		list.LastMonthPosts = n
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Listing failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "Posts listed")
	return &list, nil
}

func (s *PostServiceImpl) GetPostBySlug(ctx context.Context, postSlug string) (*types.Post, error) {
	if cached, ok := s.cache.Get(slugKey(postSlug)); ok {
		p := cached.(types.Post)
		return &p, nil
	}
	p, err := s.repo.GetPostBySlug(ctx, postSlug)
	if err != nil {
		return nil, err
	}
	s.cache.SetDefault(slugKey(postSlug), *p)
	return p, nil
}

// UpdatePost requires the caller to act as userID and the post to belong to
// userID. Admins pass both checks.
func (s *PostServiceImpl) UpdatePost(ctx context.Context, caller types.Identity, postID, userID uuid.UUID, params types.UpdatePostParams) (*types.Post, error) {
	ctx, span := otel.Tracer("PostService").Start(ctx, "UpdatePost", trace.WithAttributes(
		attribute.String("post.id", postID.String()),
	))
	defer span.End()

	existing, err := s.ownedPost(ctx, caller, postID, userID, "You are not allowed to update this post")
	if err != nil {
		span.SetStatus(codes.Error, "Rejected")
		return nil, err
	}

	params.Slug = nil
	if params.Title != nil {
		title := strings.TrimSpace(*params.Title)
		newSlug := makeSlug(title)
		if newSlug == "" {
			return nil, types.NewError(types.ErrValidation, "Title must contain letters or numbers")
		}
		params.Title = &title
		params.Slug = &newSlug
	}
	if params.Content != nil && strings.TrimSpace(*params.Content) == "" {
		return nil, types.NewError(types.ErrValidation, "Content cannot be empty")
	}

	updated, err := s.repo.UpdatePost(ctx, postID, params)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Update failed")
		return nil, err
	}
	s.cache.Delete(slugKey(existing.Slug))
	s.cache.Delete(slugKey(updated.Slug))

	span.SetStatus(codes.Ok, "Post updated")
	return updated, nil
}

func (s *PostServiceImpl) DeletePost(ctx context.Context, caller types.Identity, postID, userID uuid.UUID) error {
	ctx, span := otel.Tracer("PostService").Start(ctx, "DeletePost", trace.WithAttributes(
		attribute.String("post.id", postID.String()),
	))
	defer span.End()

	existing, err := s.ownedPost(ctx, caller, postID, userID, "You are not allowed to delete this post")
	if err != nil {
		span.SetStatus(codes.Error, "Rejected")
		return err
	}
	if err := s.repo.DeletePost(ctx, postID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Delete failed")
		return err
	}
	s.cache.Delete(slugKey(existing.Slug))
	s.logger.InfoContext(ctx, "Post deleted", slog.String("postID", postID.String()), slog.String("callerID", caller.ID.String()))
	span.SetStatus(codes.Ok, "Post deleted")
	return nil
}

func (s *PostServiceImpl) ownedPost(ctx context.Context, caller types.Identity, postID, userID uuid.UUID, denied string) (*types.Post, error) {
	if err := auth.Authorize(caller, userID); err != nil {
		return nil, types.NewError(types.ErrForbidden, denied)
	}
	existing, err := s.repo.GetPostByID(ctx, postID)
	if err != nil {
		return nil, err
	}
	if existing.UserID != userID && !caller.IsAdmin {
		return nil, types.NewError(types.ErrForbidden, denied)
	}
	return existing, nil
}
