package types

import (
	"time"

	"github.com/google/uuid"
)

const MaxCommentLength = 200

type Comment struct {
	ID            uuid.UUID   `json:"_id"`
	Content       string      `json:"content"`
	PostID        uuid.UUID   `json:"postId"`
	UserID        uuid.UUID   `json:"userId"`
	Likes         []uuid.UUID `json:"likes"`
	NumberOfLikes int         `json:"numberOfLikes"`
	CreatedAt     time.Time   `json:"createdAt"`
	UpdatedAt     time.Time   `json:"updatedAt"`
}

type CreateCommentParams struct {
	Content string    `json:"content"`
	PostID  uuid.UUID `json:"postId"`
	UserID  uuid.UUID `json:"userId"`
}

type EditCommentParams struct {
	Content string `json:"content"`
}

type CommentList struct {
	Comments          []Comment `json:"comments"`
	TotalComments     int64     `json:"totalComments"`
	LastMonthComments int64     `json:"lastMonthComments"`
}
