package models

import (
	"sort"
	"time"
)

type NotificationKind string

const (
	NotificationLike    NotificationKind = "like"
	NotificationComment NotificationKind = "comment"
	NotificationFollow  NotificationKind = "follow"
)

// Deduplicated reports whether at most one entry per (sender, kind, post) may exist.
// Comment notifications are never deduplicated: one comment is one notification.
func (k NotificationKind) Deduplicated() bool {
	return k == NotificationLike || k == NotificationFollow
}

// NotificationEvent is the closed set of things that notify a recipient.
// Each variant carries only the fields it needs.
type NotificationEvent interface {
	Kind() NotificationKind
	apply(n *Notification)
}

type LikeEvent struct {
	PostID string
}

func (LikeEvent) Kind() NotificationKind { return NotificationLike }
func (e LikeEvent) apply(n *Notification) { n.PostID = e.PostID }

type CommentEvent struct {
	PostID    string
	CommentID string
}

func (CommentEvent) Kind() NotificationKind { return NotificationComment }
func (e CommentEvent) apply(n *Notification) {
	n.PostID = e.PostID
	n.CommentID = e.CommentID
}

type FollowEvent struct{}

func (FollowEvent) Kind() NotificationKind { return NotificationFollow }
func (FollowEvent) apply(*Notification) {}

// Notification is one entry inside a recipient's inbox.
type Notification struct {
	ID        string           `json:"id" bson:"id"`
	SenderID  string           `json:"sender_id" bson:"sender_id"`
	Kind      NotificationKind `json:"kind" bson:"kind"`
	PostID    string           `json:"post_id,omitempty" bson:"post_id,omitempty"`
	CommentID string           `json:"comment_id,omitempty" bson:"comment_id,omitempty"`
	Read      bool             `json:"read" bson:"read"`
	CreatedAt time.Time        `json:"created_at" bson:"created_at"`
}

// NewNotification builds an unread entry with a fresh id.
func NewNotification(senderID string, ev NotificationEvent, now time.Time) Notification {
	n := Notification{
		ID:        NewID(),
		SenderID:  senderID,
		Kind:      ev.Kind(),
		CreatedAt: now.UTC(),
	}
	ev.apply(&n)
	return n
}

// NotificationMatcher selects entries by their business identity.
// Empty fields match anything.
type NotificationMatcher struct {
	ID        string
	SenderID  string
	Kind      NotificationKind
	PostID    string
	CommentID string
}

// DedupMatcher is the matcher for the (sender, kind, post) dedup tuple of n.
func DedupMatcher(n Notification) NotificationMatcher {
	return NotificationMatcher{SenderID: n.SenderID, Kind: n.Kind, PostID: n.PostID}
}

// MatcherFor returns the matcher that finds the entry a sender produced with ev.
func MatcherFor(senderID string, ev NotificationEvent) NotificationMatcher {
	n := Notification{SenderID: senderID, Kind: ev.Kind()}
	ev.apply(&n)
	return NotificationMatcher{SenderID: senderID, Kind: n.Kind, PostID: n.PostID, CommentID: n.CommentID}
}

// Matches applies the matcher to a single entry.
func (m NotificationMatcher) Matches(n Notification) bool {
	if m.ID != "" && n.ID != m.ID {
		return false
	}
	if m.SenderID != "" && n.SenderID != m.SenderID {
		return false
	}
	if m.Kind != "" && n.Kind != m.Kind {
		return false
	}
	if m.PostID != "" && n.PostID != m.PostID {
		return false
	}
	if m.CommentID != "" && n.CommentID != m.CommentID {
		return false
	}
	return true
}

// IsZero reports whether the matcher would select every entry.
func (m NotificationMatcher) IsZero() bool {
	return m == NotificationMatcher{}
}

// NotificationInbox is the per-recipient aggregate document.
// UnreadCount always equals the number of entries with Read == false.
type NotificationInbox struct {
	ID            string         `json:"-" bson:"-" gorm:"primaryKey"`
	RecipientID   string         `json:"recipient_id" bson:"recipient_id" gorm:"uniqueIndex"`
	Notifications []Notification `json:"notifications" bson:"notifications" gorm:"serializer:json;type:text"`
	UnreadCount   int            `json:"unread_count" bson:"unread_count"`
}

// CountUnread recounts unread entries.
func (in *NotificationInbox) CountUnread() int {
	count := 0
	for _, n := range in.Notifications {
		if !n.Read {
			count++
		}
	}
	return count
}

// Find returns the index of the first entry matching m, or -1.
func (in *NotificationInbox) Find(m NotificationMatcher) int {
	for i, n := range in.Notifications {
		if m.Matches(n) {
			return i
		}
	}
	return -1
}

// SortNewestFirst orders entries by created_at descending, keeping insertion order on ties.
func SortNewestFirst(list []Notification) {
	sort.SliceStable(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})
}
