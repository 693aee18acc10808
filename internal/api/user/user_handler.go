package user

import (
	"log/slog"
	"net/http"

	"github.com/FACorreiaa/go-blog-api/internal/api"
	"github.com/FACorreiaa/go-blog-api/internal/api/auth"
	"github.com/FACorreiaa/go-blog-api/internal/types"
)

var _ Handler = (*HandlerImpl)(nil)

type Handler interface {
	GetUser(w http.ResponseWriter, r *http.Request)
	UpdateUser(w http.ResponseWriter, r *http.Request)
	DeleteUser(w http.ResponseWriter, r *http.Request)
	SignOut(w http.ResponseWriter, r *http.Request)
	GetUsers(w http.ResponseWriter, r *http.Request)
}

type HandlerImpl struct {
	userService UserService
	cookie      auth.SessionCookie
	logger      *slog.Logger
}

// NewHandlerImpl creates a new user HandlerImpl instance.
func NewHandlerImpl(userService UserService, cookie auth.SessionCookie, logger *slog.Logger) *HandlerImpl {
	if logger == nil {
		panic("PANIC: Attempting to create HandlerImpl with nil logger!")
	}
	return &HandlerImpl{
		userService: userService,
		cookie:      cookie,
		logger:      logger,
	}
}

// GetUser godoc
// @Summary      Get user
// @Description  Returns a user's public profile.
// @Tags         User
// @Produce      json
// @Param        userId path string true "User ID"
// @Success      200 {object} types.User
// @Failure      400 {object} types.Response "Invalid user ID"
// @Failure      404 {object} types.Response "User not found"
// @Router       /user/{userId} [get]
func (h *HandlerImpl) GetUser(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("HandlerImpl", "GetUser"))

	userID, err := api.UUIDParam(r, "userId")
	if err != nil {
		api.HandleError(w, r, l, err, "Invalid user ID")
		return
	}
	u, err := h.userService.GetUser(r.Context(), userID)
	if err != nil {
		api.HandleError(w, r, l, err, "Failed to retrieve user")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, u)
}

// UpdateUser godoc
// @Summary      Update user
// @Description  Updates a profile. Users may update themselves; admins may update anyone.
// @Tags         User
// @Accept       json
// @Produce      json
// @Param        userId path string true "User ID"
// @Param        body body types.UpdateUserParams true "Fields to update"
// @Success      200 {object} types.User
// @Failure      400 {object} types.Response "Invalid input"
// @Failure      401 {object} types.Response "Unauthorized"
// @Failure      403 {object} types.Response "Forbidden"
// @Failure      409 {object} types.Response "Username or email already in use"
// @Security     CookieAuth
// @Router       /user/update/{userId} [put]
func (h *HandlerImpl) UpdateUser(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("HandlerImpl", "UpdateUser"))

	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		api.HandleError(w, r, l, types.ErrUnauthenticated, "Authentication required")
		return
	}
	userID, err := api.UUIDParam(r, "userId")
	if err != nil {
		api.HandleError(w, r, l, err, "Invalid user ID")
		return
	}

	var params types.UpdateUserParams
	if err := api.DecodeJSONBody(w, r, &params); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	u, err := h.userService.UpdateUser(r.Context(), caller, userID, params)
	if err != nil {
		api.HandleError(w, r, l, err, "Failed to update user")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, u)
}

// DeleteUser godoc
// @Summary      Delete user
// @Description  Deletes an account. Deleting yourself also clears the session cookie.
// @Tags         User
// @Produce      json
// @Param        userId path string true "User ID"
// @Success      200 {object} types.Response
// @Failure      401 {object} types.Response "Unauthorized"
// @Failure      403 {object} types.Response "Forbidden"
// @Failure      404 {object} types.Response "User not found"
// @Security     CookieAuth
// @Router       /user/delete/{userId} [delete]
func (h *HandlerImpl) DeleteUser(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("HandlerImpl", "DeleteUser"))

	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		api.HandleError(w, r, l, types.ErrUnauthenticated, "Authentication required")
		return
	}
	userID, err := api.UUIDParam(r, "userId")
	if err != nil {
		api.HandleError(w, r, l, err, "Invalid user ID")
		return
	}

	if err := h.userService.DeleteUser(r.Context(), caller, userID); err != nil {
		api.HandleError(w, r, l, err, "Failed to delete user")
		return
	}
	if caller.ID == userID {
		h.cookie.Clear(w)
	}
	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{Success: true, Message: "User has been deleted"})
}

// SignOut godoc
// @Summary      Sign out
// @Description  Clears the session cookie.
// @Tags         User
// @Produce      json
// @Success      200 {object} types.Response
// @Security     CookieAuth
// @Router       /user/signout [post]
func (h *HandlerImpl) SignOut(w http.ResponseWriter, r *http.Request) {
	h.cookie.Clear(w)
	api.WriteJSONResponse(w, r, http.StatusOK, types.Response{Success: true, Message: "User has been signed out"})
}

// GetUsers godoc
// @Summary      List users
// @Description  Admin only. Returns a page of users with total and last month counts.
// @Tags         User
// @Produce      json
// @Param        startIndex query int false "Offset"
// @Param        limit query int false "Page size (default 9, max 100)"
// @Param        sort query string false "asc or desc"
// @Success      200 {object} types.UserList
// @Failure      401 {object} types.Response "Unauthorized"
// @Failure      403 {object} types.Response "Forbidden"
// @Security     CookieAuth
// @Router       /user/getusers [get]
func (h *HandlerImpl) GetUsers(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("HandlerImpl", "GetUsers"))

	caller, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		api.HandleError(w, r, l, types.ErrUnauthenticated, "Authentication required")
		return
	}
	opts, err := api.ParseListOptions(r)
	if err != nil {
		api.HandleError(w, r, l, err, "Invalid pagination")
		return
	}

	list, err := h.userService.GetUsers(r.Context(), caller, opts)
	if err != nil {
		api.HandleError(w, r, l, err, "Failed to list users")
		return
	}
	api.WriteJSONResponse(w, r, http.StatusOK, list)
}
