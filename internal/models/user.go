package models

import (
	"time"
)

// UserArray names a denormalized id array stored on a user document.
type UserArray string

const (
	UserLikes     UserArray = "likes"     // post ids the user likes
	UserFollowers UserArray = "followers" // user ids following this user
	UserFollowing UserArray = "following" // user ids this user follows
	UserPosts     UserArray = "posts"
	UserComments  UserArray = "comments"
	UserMessages  UserArray = "messages"
)

// User is a profile document. Authentication data lives with the auth provider.
type User struct {
	ID         string    `json:"id" bson:"_id" gorm:"primaryKey"`
	Username   string    `json:"username" bson:"username" gorm:"uniqueIndex"`
	Likes      []string  `json:"likes" bson:"likes" gorm:"serializer:json;type:text"`
	Followers  []string  `json:"followers" bson:"followers" gorm:"serializer:json;type:text"`
	Following  []string  `json:"following" bson:"following" gorm:"serializer:json;type:text"`
	Posts      []string  `json:"posts" bson:"posts" gorm:"serializer:json;type:text"`
	Comments   []string  `json:"comments" bson:"comments" gorm:"serializer:json;type:text"`
	Messages   []string  `json:"messages" bson:"messages" gorm:"serializer:json;type:text"`
	LastSeenAt time.Time `json:"last_seen_at" bson:"last_seen_at"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}

// Array returns a pointer to the named denormalized array, or nil for an unknown name.
func (u *User) Array(field UserArray) *[]string {
	switch field {
	case UserLikes:
		return &u.Likes
	case UserFollowers:
		return &u.Followers
	case UserFollowing:
		return &u.Following
	case UserPosts:
		return &u.Posts
	case UserComments:
		return &u.Comments
	case UserMessages:
		return &u.Messages
	}
	return nil
}

// NewUser returns a user with empty arrays so every cache field is present in storage.
func NewUser(username string) *User {
	now := time.Now().UTC()
	return &User{
		ID:         NewID(),
		Username:   username,
		Likes:      []string{},
		Followers:  []string{},
		Following:  []string{},
		Posts:      []string{},
		Comments:   []string{},
		Messages:   []string{},
		LastSeenAt: now,
		CreatedAt:  now,
	}
}

// UserCompact is the public projection of a user returned by presence lookups.
type UserCompact struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	FollowersCount int       `json:"followers_count"`
	FollowingCount int       `json:"following_count"`
	Online         bool      `json:"online"`
	LastSeenAt     time.Time `json:"last_seen_at"`
}

// ToCompact projects a user, with online state computed by the caller.
func (u *User) ToCompact(online bool) UserCompact {
	return UserCompact{
		ID:             u.ID,
		Username:       u.Username,
		FollowersCount: len(u.Followers),
		FollowingCount: len(u.Following),
		Online:         online,
		LastSeenAt:     u.LastSeenAt,
	}
}

type CreateUserRequest struct {
	Username string `json:"username" validate:"required,min=2,max=50"`
}
