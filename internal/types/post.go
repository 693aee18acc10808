package types

import (
	"time"

	"github.com/google/uuid"
)

const (
	DefaultPostImage    = "https://www.hostinger.com/tutorials/wp-content/uploads/sites/2/2021/09/how-to-write-a-blog-post.png"
	DefaultPostCategory = "uncategorized"
)

type Post struct {
	ID        uuid.UUID `json:"_id"`
	UserID    uuid.UUID `json:"userId"`
	Title     string    `json:"title"`
	Content   string    `json:"content"`
	Image     string    `json:"image"`
	Category  string    `json:"category"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// CreatePostParams is the body of a post creation request.
type CreatePostParams struct {
	Title    string `json:"title"`
	Content  string `json:"content"`
	Image    string `json:"image,omitempty"`
	Category string `json:"category,omitempty"`
}

// UpdatePostParams is the body of a post update. Slug is derived from Title
// by the service and is not accepted from clients.
type UpdatePostParams struct {
	Title    *string `json:"title,omitempty"`
	Content  *string `json:"content,omitempty"`
	Image    *string `json:"image,omitempty"`
	Category *string `json:"category,omitempty"`
	Slug     *string `json:"-"`
}

// PostFilter narrows a post listing. Zero values do not filter.
type PostFilter struct {
	ListOptions
	UserID     uuid.UUID
	PostID     uuid.UUID
	Category   string
	Slug       string
	SearchTerm string
}

type PostList struct {
	Posts          []Post `json:"posts"`
	TotalPosts     int64  `json:"totalPosts"`
	LastMonthPosts int64  `json:"lastMonthPosts"`
}
