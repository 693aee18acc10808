package types

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Identity is the verified caller of a request. It is derived from the
// session token and threaded through handlers via the request context.
type Identity struct {
	ID      uuid.UUID
	IsAdmin bool
}

// Claims are the custom claims carried by a session token.
type Claims struct {
	ID      string `json:"id"`
	IsAdmin bool   `json:"isAdmin"`
	jwt.RegisteredClaims
}

// Session is the outcome of a successful sign in.
type Session struct {
	User      *User
	Token     string
	ExpiresAt time.Time
}

// SignupRequest represents the expected JSON body for local account creation.
type SignupRequest struct {
	Username string `json:"username" example:"alice"`
	Email    string `json:"email" example:"a@x.com"`
	Password string `json:"password" example:"secret1"`
}

// SigninRequest represents the expected JSON body for local sign in.
type SigninRequest struct {
	Email    string `json:"email" example:"a@x.com"`
	Password string `json:"password" example:"secret1"`
}

// GoogleSigninRequest is the identity asserted by the front-end after a
// Google popup sign in.
type GoogleSigninRequest struct {
	Name           string `json:"name" example:"Alice Doe"`
	Email          string `json:"email" example:"alice@gmail.com"`
	GooglePhotoURL string `json:"googlePhotoUrl" example:"https://lh3.googleusercontent.com/a/photo"`
}

// Response represents a generic API response for success or error messages.
type Response struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message,omitempty" example:"Operation successful"`
}
