package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"

	"github.com/FACorreiaa/go-blog-api/internal/api"
	"github.com/FACorreiaa/go-blog-api/internal/types"
)

const googleProvider = "google"

type AuthHandler struct {
	service AuthService
	cookie  SessionCookie
	logger  *slog.Logger
}

func NewAuthHandler(service AuthService, cookie SessionCookie, logger *slog.Logger) *AuthHandler {
	if logger == nil {
		panic("auth: NewAuthHandler requires a logger")
	}
	return &AuthHandler{
		service: service,
		cookie:  cookie,
		logger:  logger,
	}
}

// Signup godoc
// @Summary      Sign up
// @Description  Creates a local account from username, email and password.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body types.SignupRequest true "Account details"
// @Success      201 {object} types.Response "Signup successful"
// @Failure      400 {object} types.Response "Missing or invalid fields"
// @Failure      409 {object} types.Response "Username or email already in use"
// @Failure      500 {object} types.Response "Internal Server Error"
// @Router       /auth/signup [post]
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "Signup"))

	var req types.SignupRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.service.Signup(r.Context(), req); err != nil {
		api.HandleError(w, r, l, err, "Signup failed")
		return
	}

	api.WriteJSONResponse(w, r, http.StatusCreated, types.Response{Success: true, Message: "Signup successful"})
}

// Signin godoc
// @Summary      Sign in
// @Description  Verifies email and password and sets the session cookie.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body types.SigninRequest true "Credentials"
// @Success      200 {object} types.User "Signed in user"
// @Failure      400 {object} types.Response "Missing fields"
// @Failure      401 {object} types.Response "Invalid email or password"
// @Failure      500 {object} types.Response "Internal Server Error"
// @Router       /auth/signin [post]
func (h *AuthHandler) Signin(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "Signin"))

	var req types.SigninRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	session, err := h.service.Signin(r.Context(), req)
	if err != nil {
		api.HandleError(w, r, l, err, "Signin failed")
		return
	}
	h.writeSession(w, r, session)
}

// Google godoc
// @Summary      Sign in with Google
// @Description  Signs in, or signs up on first use, with a Google profile asserted by the client.
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body body types.GoogleSigninRequest true "Google profile"
// @Success      200 {object} types.User "Signed in user"
// @Failure      400 {object} types.Response "Invalid email"
// @Failure      409 {object} types.Response "Account already exists"
// @Failure      500 {object} types.Response "Internal Server Error"
// @Router       /auth/google [post]
//
// The profile is not verified with Google: whoever posts an email gets a
// session for that account. It is mounted only when
// google.allowClientAssertion is set. GoogleBegin and GoogleCallback are
// the verified flow.
func (h *AuthHandler) Google(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "Google"))

	var req types.GoogleSigninRequest
	if err := api.DecodeJSONBody(w, r, &req); err != nil {
		api.ErrorResponse(w, r, http.StatusBadRequest, err.Error())
		return
	}

	session, err := h.service.SignInWithGoogle(r.Context(), goth.User{
		Provider:  googleProvider,
		Name:      req.Name,
		Email:     req.Email,
		AvatarURL: req.GooglePhotoURL,
	})
	if err != nil {
		api.HandleError(w, r, l, err, "Google sign-in failed")
		return
	}
	h.writeSession(w, r, session)
}

// GoogleBegin godoc
// @Summary      Start Google OAuth
// @Description  Redirects to Google's consent screen.
// @Tags         Auth
// @Success      307
// @Router       /auth/google/begin [get]
func (h *AuthHandler) GoogleBegin(w http.ResponseWriter, r *http.Request) {
	gothic.BeginAuthHandler(w, withGoogleProvider(r))
}

// GoogleCallback godoc
// @Summary      Google OAuth callback
// @Description  Completes the Google OAuth exchange and sets the session cookie.
// @Tags         Auth
// @Produce      json
// @Success      200 {object} types.User "Signed in user"
// @Failure      502 {object} types.Response "Google exchange failed"
// @Router       /auth/google/callback [get]
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	l := h.logger.With(slog.String("handler", "GoogleCallback"))
	r = withGoogleProvider(r)

	gu, err := gothic.CompleteUserAuth(w, r)
	if err != nil {
		api.HandleError(w, r, l, fmt.Errorf("%w: google exchange: %v", types.ErrUpstream, err), "Google sign-in failed")
		return
	}

	session, err := h.service.SignInWithGoogle(r.Context(), gu)
	if err != nil {
		api.HandleError(w, r, l, err, "Google sign-in failed")
		return
	}
	h.writeSession(w, r, session)
}

func (h *AuthHandler) writeSession(w http.ResponseWriter, r *http.Request, session *types.Session) {
	h.cookie.Set(w, session.Token, session.ExpiresAt)
	api.WriteJSONResponse(w, r, http.StatusOK, session.User)
}

func withGoogleProvider(r *http.Request) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), gothic.ProviderParamKey, googleProvider))
}
