package models

import (
	"time"
)

// PostArray names a denormalized id array stored on a post document.
type PostArray string

const (
	PostLikes    PostArray = "likes"    // user ids that like the post
	PostComments PostArray = "comments" // comment ids under the post
)

// MediaRef points at a stored blob attached to a post or message.
type MediaRef struct {
	BlobID   string `json:"blob_id" bson:"blob_id"`
	URL      string `json:"url" bson:"url"`
	MimeType string `json:"mime_type" bson:"mime_type"`
	Width    int    `json:"width,omitempty" bson:"width,omitempty"`
	Height   int    `json:"height,omitempty" bson:"height,omitempty"`
	Size     int64  `json:"size" bson:"size"`
}

// Post represents a photo/video post.
type Post struct {
	ID        string     `json:"id" bson:"_id" gorm:"primaryKey"`
	OwnerID   string     `json:"owner_id" bson:"owner_id" gorm:"index"`
	Caption   string     `json:"caption" bson:"caption"`
	Media     []MediaRef `json:"media" bson:"media" gorm:"serializer:json;type:text"`
	Likes     []string   `json:"likes" bson:"likes" gorm:"serializer:json;type:text"`
	Comments  []string   `json:"comments" bson:"comments" gorm:"serializer:json;type:text"`
	CreatedAt time.Time  `json:"created_at" bson:"created_at"`
	UpdatedAt time.Time  `json:"updated_at" bson:"updated_at"`
}

// Array returns a pointer to the named denormalized array, or nil for an unknown name.
func (p *Post) Array(field PostArray) *[]string {
	switch field {
	case PostLikes:
		return &p.Likes
	case PostComments:
		return &p.Comments
	}
	return nil
}

// NewPost returns a post owned by ownerID with empty caches.
func NewPost(ownerID, caption string, media []MediaRef) *Post {
	now := time.Now().UTC()
	if media == nil {
		media = []MediaRef{}
	}
	return &Post{
		ID:        NewID(),
		OwnerID:   ownerID,
		Caption:   caption,
		Media:     media,
		Likes:     []string{},
		Comments:  []string{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// CreatePostRequest defines the form fields for creating a new post
type CreatePostRequest struct {
	Caption string `form:"caption" json:"caption" validate:"max=2200"`
}
