package models

import "time"

// Comment represents a comment on a post. It is owned by its author and its post.
type Comment struct {
	ID        string    `json:"id" bson:"_id" gorm:"primaryKey"`
	PostID    string    `json:"post_id" bson:"post_id" gorm:"index"`
	AuthorID  string    `json:"author_id" bson:"author_id" gorm:"index"`
	Body      string    `json:"body" bson:"body"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// CreateCommentRequest defines the request body for creating a new comment
type CreateCommentRequest struct {
	Body string `json:"body" validate:"required,min=1,max=500"`
}
