package comment

import (
	"context"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"

	"github.com/FACorreiaa/go-blog-api/internal/api/auth"
	"github.com/FACorreiaa/go-blog-api/internal/types"
)

var _ CommentService = (*CommentServiceImpl)(nil)

type CommentService interface {
	CreateComment(ctx context.Context, caller types.Identity, params types.CreateCommentParams) (*types.Comment, error)
	GetPostComments(ctx context.Context, postID uuid.UUID) ([]types.Comment, error)
	LikeComment(ctx context.Context, caller types.Identity, commentID uuid.UUID) (*types.Comment, error)
	EditComment(ctx context.Context, caller types.Identity, commentID uuid.UUID, params types.EditCommentParams) (*types.Comment, error)
	DeleteComment(ctx context.Context, caller types.Identity, commentID uuid.UUID) error
	GetComments(ctx context.Context, caller types.Identity, opts types.ListOptions) (*types.CommentList, error)
}

type CommentServiceImpl struct {
	logger *slog.Logger
	repo   CommentRepo
	now    func() time.Time
}

func NewCommentService(repo CommentRepo, logger *slog.Logger) *CommentServiceImpl {
	return &CommentServiceImpl{
		logger: logger,
		repo:   repo,
		now:    time.Now,
	}
}

func validContent(content string) (string, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return "", types.NewError(types.ErrValidation, "Comment cannot be empty")
	}
	if utf8.RuneCountInString(content) > types.MaxCommentLength {
		return "", types.NewError(types.ErrValidation, "Comment must be at most 200 characters")
	}
	return content, nil
}

// CreateComment stores a comment on behalf of params.UserID, which must be
// the caller.
func (s *CommentServiceImpl) CreateComment(ctx context.Context, caller types.Identity, params types.CreateCommentParams) (*types.Comment, error) {
	ctx, span := otel.Tracer("CommentService").Start(ctx, "CreateComment", trace.WithAttributes(
		attribute.String("post.id", params.PostID.String()),
	))
	defer span.End()

	if params.UserID != caller.ID {
		span.SetStatus(codes.Error, "Forbidden")
		return nil, types.NewError(types.ErrForbidden, "You are not allowed to create this comment")
	}
	if params.PostID == uuid.Nil {
		return nil, types.NewError(types.ErrValidation, "postId is required")
	}
	content, err := validContent(params.Content)
	if err != nil {
		span.SetStatus(codes.Error, "Invalid content")
		return nil, err
	}

	c := &types.Comment{Content: content, PostID: params.PostID, UserID: caller.ID}
	if err := s.repo.CreateComment(ctx, c); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Create failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "Comment created")
	return c, nil
}

func (s *CommentServiceImpl) GetPostComments(ctx context.Context, postID uuid.UUID) ([]types.Comment, error) {
	return s.repo.ListPostComments(ctx, postID)
}

func (s *CommentServiceImpl) LikeComment(ctx context.Context, caller types.Identity, commentID uuid.UUID) (*types.Comment, error) {
	ctx, span := otel.Tracer("CommentService").Start(ctx, "LikeComment", trace.WithAttributes(
		attribute.String("comment.id", commentID.String()),
	))
	defer span.End()

	c, err := s.repo.ToggleLike(ctx, commentID, caller.ID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Toggle failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "Like toggled")
	return c, nil
}

func (s *CommentServiceImpl) EditComment(ctx context.Context, caller types.Identity, commentID uuid.UUID, params types.EditCommentParams) (*types.Comment, error) {
	ctx, span := otel.Tracer("CommentService").Start(ctx, "EditComment", trace.WithAttributes(
		attribute.String("comment.id", commentID.String()),
	))
	defer span.End()

	if err := s.authorOrAdmin(ctx, caller, commentID, "You are not allowed to edit this comment"); err != nil {
		span.SetStatus(codes.Error, "Rejected")
		return nil, err
	}
	content, err := validContent(params.Content)
	if err != nil {
		return nil, err
	}
	c, err := s.repo.UpdateContent(ctx, commentID, content)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Update failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "Comment edited")
	return c, nil
}

func (s *CommentServiceImpl) DeleteComment(ctx context.Context, caller types.Identity, commentID uuid.UUID) error {
	ctx, span := otel.Tracer("CommentService").Start(ctx, "DeleteComment", trace.WithAttributes(
		attribute.String("comment.id", commentID.String()),
	))
	defer span.End()

	if err := s.authorOrAdmin(ctx, caller, commentID, "You are not allowed to delete this comment"); err != nil {
		span.SetStatus(codes.Error, "Rejected")
		return err
	}
	if err := s.repo.DeleteComment(ctx, commentID); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Delete failed")
		return err
	}
	s.logger.InfoContext(ctx, "Comment deleted", slog.String("commentID", commentID.String()), slog.String("callerID", caller.ID.String()))
	span.SetStatus(codes.Ok, "Comment deleted")
	return nil
}

// GetComments is the admin dashboard listing.
func (s *CommentServiceImpl) GetComments(ctx context.Context, caller types.Identity, opts types.ListOptions) (*types.CommentList, error) {
	ctx, span := otel.Tracer("CommentService").Start(ctx, "GetComments")
	defer span.End()

	if !caller.IsAdmin {
		span.SetStatus(codes.Error, "Forbidden")
		return nil, types.NewError(types.ErrForbidden, "You are not allowed to get all comments")
	}

	var list types.CommentList
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		comments, err := s.repo.ListComments(gctx, opts)
		list.Comments = comments
		return err
	})
	g.Go(func() error {
		n, err := s.repo.CountComments(gctx, time.Time{})
		list.TotalComments = n
		return err
	})
	g.Go(func() error {
		n, err := s.repo.CountComments(gctx, s.now().AddDate(0, -1, 0))
		list.LastMonthComments = n
		return err
	})
	if err := g.Wait(); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "Listing failed")
		return nil, err
	}
	span.SetStatus(codes.Ok, "Comments listed")
	return &list, nil
}

func (s *CommentServiceImpl) authorOrAdmin(ctx context.Context, caller types.Identity, commentID uuid.UUID, denied string) error {
	existing, err := s.repo.GetCommentByID(ctx, commentID)
	if err != nil {
		return err
	}
	if err := auth.Authorize(caller, existing.UserID); err != nil {
		return types.NewError(types.ErrForbidden, denied)
	}
	return nil
}
