package types

import (
	"time"

	"github.com/google/uuid"
)

const DefaultProfilePicture = "https://cdn.pixabay.com/photo/2015/10/05/22/37/blank-profile-picture-973460_1280.png"

// User is a stored account. The password hash never leaves the server.
type User struct {
	ID             uuid.UUID `json:"_id"`
	Username       string    `json:"username"`
	Email          string    `json:"email"`
	Password       string    `json:"-"`
	IsAdmin        bool      `json:"isAdmin"`
	ProfilePicture string    `json:"profilePicture"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

// UpdateUserParams defines the fields allowed for profile updates.
// Nil fields are left untouched.
type UpdateUserParams struct {
	Username       *string `json:"username,omitempty"`
	Email          *string `json:"email,omitempty"`
	Password       *string `json:"password,omitempty"`
	ProfilePicture *string `json:"profilePicture,omitempty"`
	IsAdmin        *bool   `json:"isAdmin,omitempty"`
}

// Empty reports whether no field was provided.
func (p UpdateUserParams) Empty() bool {
	return p.Username == nil && p.Email == nil && p.Password == nil && p.ProfilePicture == nil && p.IsAdmin == nil
}

// UserList is the admin dashboard listing.
type UserList struct {
	Users          []User `json:"users"`
	TotalUsers     int64  `json:"totalUsers"`
	LastMonthUsers int64  `json:"lastMonthUsers"`
}

// ListOptions is the common offset pagination used by listings.
type ListOptions struct {
	StartIndex int
	Limit      int
	Ascending  bool
}
