package post

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/FACorreiaa/go-blog-api/internal/api"
	"github.com/FACorreiaa/go-blog-api/internal/api/auth"
	"github.com/FACorreiaa/go-blog-api/internal/types"
)

type PostHandler struct {
	service PostService
	logger  *slog.Logger
}

func NewPostHandler(service PostService, logger *slog.Logger) *PostHandler {
	return &PostHandler{service: service, logger: logger}
}

// CreatePost godoc
// @Summary      Create post
// @Tags         Post
// @Accept       json
// @Produce      json
// @Param        body body types.CreatePostParams true "Post"
// @Success      201 {object} types.Post
// @Failure      400 {object} types.Response "Missing fields"
// @Failure      401 {object} types.Response "Unauthorized"
// @Failure      409 {object} types.Response "Duplicate title"
// @Security     CookieAuth
// @Router       /post/create [post]
func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "CreatePost"))

	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		api.HandleError(w, r, l, types.ErrUnauthenticated, "Authentication required")
		return
	}
	var params types.CreatePostParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.service.CreatePost(r.Context(), caller, params)
	if err != nil {
		api.HandleError(w, r, l, err, "Failed to create post")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusCreated, p)
}

// GetPosts godoc
// @Summary      List posts
// @Tags         Post
// @Produce      json
// @Param        userId query string false "Author"
// @Param        category query string false "Category"
// @Param        slug query string false "Slug"
// @Param        postId query string false "Post ID"
// @Param        searchTerm query string false "Matches title or content"
// @Param        startIndex query int false "Offset"
// @Param        limit query int false "Page size (default 9, max 100)"
// @Param        order query string false "asc or desc"
// @Success      200 {object} types.PostList
// @Failure      400 {object} types.Response "Invalid query"
// @Router       /post/getposts [get]
func (h *PostHandler) GetPosts(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "GetPosts"))

	filter, err := parsePostFilter(r)
	if err != nil {
		api.HandleError(w, r, l, err, "Invalid query")
		return
	}
	list, err := h.service.GetPosts(r.Context(), filter)
	if err != nil {
		api.HandleError(w, r, l, err, "Failed to list posts")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, list)
}

// GetPostBySlug godoc
// @Summary      Get post by slug
// @Tags         Post
// @Produce      json
// @Param        slug path string true "Slug"
// @Success      200 {object} types.Post
// @Failure      404 {object} types.Response "Post not found"
// @Router       /post/{slug} [get]
func (h *PostHandler) GetPostBySlug(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "GetPostBySlug"))

	p, err := h.service.GetPostBySlug(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		api.HandleError(w, r, l, err, "Failed to retrieve post")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, p)
}

// UpdatePost godoc
// @Summary      Update post
// @Description  The caller must be userId (or an admin) and the post must belong to userId.
// @Tags         Post
// @Accept       json
// @Produce      json
// @Param        postId path string true "Post ID"
// @Param        userId path string true "Author ID"
// @Param        body body types.UpdatePostParams true "Fields to update"
// @Success      200 {object} types.Post
// @Failure      403 {object} types.Response "Forbidden"
// @Failure      404 {object} types.Response "Post not found"
// @Security     CookieAuth
// @Router       /post/updatepost/{postId}/{userId} [put]
func (h *PostHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "UpdatePost"))

	caller, postID, userID, ok := h.postParams(w, r, l)
	if !ok {
		return
	}
	var params types.UpdatePostParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	p, err := h.service.UpdatePost(r.Context(), caller, postID, userID, params)
	if err != nil {
		api.HandleError(w, r, l, err, "Failed to update post")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, p)
}

// DeletePost godoc
// @Summary      Delete post
// @Tags         Post
// @Produce      json
// @Param        postId path string true "Post ID"
// @Param        userId path string true "Author ID"
// @Success      200 {object} types.Response
// @Failure      403 {object} types.Response "Forbidden"
// @Failure      404 {object} types.Response "Post not found"
// @Security     CookieAuth
// @Router       /post/deletepost/{postId}/{userId} [delete]
func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "DeletePost"))

	caller, postID, userID, ok := h.postParams(w, r, l)
	if !ok {
		return
	}
	if err := h.service.DeletePost(r.Context(), caller, postID, userID); err != nil {
		api.HandleError(w, r, l, err, "Failed to delete post")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{Success: true, Message: "The post has been deleted"})
}

func (h *PostHandler) postParams(w http.ResponseWriter, r *http.Request, l *slog.Logger) (types.Identity, uuid.UUID, uuid.UUID, bool) {
	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		api.HandleError(w, r, l, types.ErrUnauthenticated, "Authentication required")
		return types.Identity{}, uuid.Nil, uuid.Nil, false
	}
	postID, err := api.UUIDParam(r, "postId")
	if err != nil {
		api.HandleError(w, r, l, err, "Invalid post ID")
		return types.Identity{}, uuid.Nil, uuid.Nil, false
	}
	userID, err := api.UUIDParam(r, "userId")
	if err != nil {
		api.HandleError(w, r, l, err, "Invalid user ID")
		return types.Identity{}, uuid.Nil, uuid.Nil, false
	}
	return caller, postID, userID, true
}

func parsePostFilter(r *http.Request) (types.PostFilter, error) {
	opts, err := api.ParseListOptions(r)
	if err != nil {
		return types.PostFilter{}, err
	}
	q := r.URL.Query()
	filter := types.PostFilter{
		ListOptions: opts,
		Category:    q.Get("category"),
		Slug:        q.Get("slug"),
		SearchTerm:  q.Get("searchTerm"),
	}
	if v := q.Get("userId"); v != "" {
		if filter.UserID, err = uuid.Parse(v); err != nil {
			return filter, types.NewError(types.ErrValidation, "invalid userId")
		}
	}
	if v := q.Get("postId"); v != "" {
		if filter.PostID, err = uuid.Parse(v); err != nil {
			return filter, types.NewError(types.ErrValidation, "invalid postId")
		}
	}
	return filter, nil
}
