package comment

import (
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/FACorreiaa/go-blog-api/internal/api"
	"github.com/FACorreiaa/go-blog-api/internal/api/auth"
	"github.com/FACorreiaa/go-blog-api/internal/types"
)

type CommentHandler struct {
	service CommentService
	logger  *slog.Logger
}

func NewCommentHandler(service CommentService, logger *slog.Logger) *CommentHandler {
	return &CommentHandler{service: service, logger: logger}
}

// CreateComment godoc
// @Summary      Comment on a post
// @Description  userId in the body must be the authenticated user.
// @Tags         Comment
// @Accept       json
// @Produce      json
// @Param        body body types.CreateCommentParams true "Comment"
// @Success      200 {object} types.Comment
// @Failure      400 {object} types.Response "Invalid content"
// @Failure      403 {object} types.Response "Forbidden"
// @Failure      404 {object} types.Response "Post not found"
// @Security     CookieAuth
// @Router       /comment/create [post]
func (h *CommentHandler) CreateComment(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "CreateComment"))

	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		api.HandleError(w, r, l, types.ErrUnauthenticated, "Authentication required")
		return
	}
	var params types.CreateCommentParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	c, err := h.service.CreateComment(r.Context(), caller, params)
	if err != nil {
		api.HandleError(w, r, l, err, "Failed to create comment")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, c)
}

// GetPostComments godoc
// @Summary      List comments of a post
// @Tags         Comment
// @Produce      json
// @Param        postId path string true "Post ID"
// @Success      200 {array} types.Comment
// @Failure      400 {object} types.Response "Invalid post ID"
// @Router       /comment/getPostComments/{postId} [get]
func (h *CommentHandler) GetPostComments(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "GetPostComments"))

	postID, err := api.UUIDParam(r, "postId")
	if err != nil {
		api.HandleError(w, r, l, err, "Invalid post ID")
		return
	}
	comments, err := h.service.GetPostComments(r.Context(), postID)
	if err != nil {
		api.HandleError(w, r, l, err, "Failed to list comments")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, comments)
}

// LikeComment godoc
// @Summary      Like or unlike a comment
// @Tags         Comment
// @Produce      json
// @Param        commentId path string true "Comment ID"
// @Success      200 {object} types.Comment
// @Failure      404 {object} types.Response "Comment not found"
// @Security     CookieAuth
// @Router       /comment/likeComment/{commentId} [put]
func (h *CommentHandler) LikeComment(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "LikeComment"))

	caller, commentID, ok := h.callerAndComment(w, r, l)
	if !ok {
		return
	}
	c, err := h.service.LikeComment(r.Context(), caller, commentID)
	if err != nil {
		api.HandleError(w, r, l, err, "Failed to like comment")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, c)
}

// EditComment godoc
// @Summary      Edit a comment
// @Tags         Comment
// @Accept       json
// @Produce      json
// @Param        commentId path string true "Comment ID"
// @Param        body body types.EditCommentParams true "New content"
// @Success      200 {object} types.Comment
// @Failure      403 {object} types.Response "Forbidden"
// @Failure      404 {object} types.Response "Comment not found"
// @Security     CookieAuth
// @Router       /comment/editComment/{commentId} [put]
func (h *CommentHandler) EditComment(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "EditComment"))

	caller, commentID, ok := h.callerAndComment(w, r, l)
	if !ok {
		return
	}
	var params types.EditCommentParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}
	c, err := h.service.EditComment(r.Context(), caller, commentID, params)
	if err != nil {
		api.HandleError(w, r, l, err, "Failed to edit comment")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, c)
}

// DeleteComment godoc
// @Summary      Delete a comment
// @Tags         Comment
// @Produce      json
// @Param        commentId path string true "Comment ID"
// @Success      200 {object} types.Response
// @Failure      403 {object} types.Response "Forbidden"
// @Failure      404 {object} types.Response "Comment not found"
// @Security     CookieAuth
// @Router       /comment/deleteComment/{commentId} [delete]
func (h *CommentHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "DeleteComment"))

	caller, commentID, ok := h.callerAndComment(w, r, l)
	if !ok {
		return
	}
	if err := h.service.DeleteComment(r.Context(), caller, commentID); err != nil {
		api.HandleError(w, r, l, err, "Failed to delete comment")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{Success: true, Message: "Comment has been deleted"})
}

// GetComments godoc
// @Summary      List all comments
// @Description  Admin only.
// @Tags         Comment
// @Produce      json
// @Param        startIndex query int false "Offset"
// @Param        limit query int false "Page size"
// @Param        sort query string false "asc or desc"
// @Success      200 {object} types.CommentList
// @Failure      403 {object} types.Response "Forbidden"
// @Security     CookieAuth
// @Router       /comment/getcomments [get]
func (h *CommentHandler) GetComments(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "GetComments"))

	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		api.HandleError(w, r, l, types.ErrUnauthenticated, "Authentication required")
		return
	}
	opts, err := api.ParseListOptions(r)
	if err != nil {
		api.HandleError(w, r, l, err, "Invalid query")
		return
	}
	list, err := h.service.GetComments(r.Context(), caller, opts)
	if err != nil {
		api.HandleError(w, r, l, err, "Failed to list comments")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, list)
}

// callerAndComment checks for an identity and a well formed commentId.
func (h *CommentHandler) callerAndComment(w http.ResponseWriter, r *http.Request, l *slog.Logger) (types.Identity, uuid.UUID, bool) {
	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		api.HandleError(w, r, l, types.ErrUnauthenticated, "Authentication required")
		return types.Identity{}, uuid.Nil, false
	}
	commentID, err := api.UUIDParam(r, "commentId")
	if err != nil {
		api.HandleError(w, r, l, err, "Invalid comment ID")
		return types.Identity{}, uuid.Nil, false
	}
	return caller, commentID, true
}
