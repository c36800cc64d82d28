package services

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/Blunt0FF/Krealgram-sub001/internal/models"
	"github.com/Blunt0FF/Krealgram-sub001/internal/repositories"
	"github.com/Blunt0FF/Krealgram-sub001/pkg/metrics"
	"github.com/Blunt0FF/Krealgram-sub001/pkg/realtime"
)

const maxCommentLength = 500

type CommentService struct {
	store    *repositories.Store
	notifier realtime.Notifier
	now      clock
}

func NewCommentService(store *repositories.Store, notifier realtime.Notifier) *CommentService {
	return &CommentService{store: store, notifier: notifier, now: systemClock}
}

// Create adds a comment under postID and notifies the post owner. Comment
// notifications are never deduplicated.
func (s *CommentService) Create(ctx context.Context, authorID, postID, body string) (*models.Comment, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, models.NewValidationError("comment body is required")
	}
	if utf8.RuneCountInString(body) > maxCommentLength {
		return nil, models.NewValidationError("comment body is too long")
	}

	comment := &models.Comment{
		ID:        models.NewID(),
		PostID:    postID,
		AuthorID:  authorID,
		Body:      body,
		CreatedAt: s.now(),
	}
	var owner string
	var added *models.Notification
	err := s.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		added = nil
		post, err := s.store.Posts.GetByID(ctx, postID)
		if err != nil {
			return err
		}
		owner = post.OwnerID
		if err := s.store.Comments.Create(ctx, comment); err != nil {
			return err
		}
		if _, err := s.store.Posts.AddToSet(ctx, postID, models.PostComments, comment.ID); err != nil {
			return err
		}
		if _, err := s.store.Users.AddToSet(ctx, authorID, models.UserComments, comment.ID); err != nil {
			return err
		}
		if owner == authorID {
			return nil
		}
		n := models.NewNotification(authorID, models.CommentEvent{PostID: postID, CommentID: comment.ID}, s.now())
		ok, err := s.store.Notifications.Add(ctx, owner, n)
		if err != nil {
			return err
		}
		if ok {
			added = &n
		}
		return nil
	})
	if err != nil {
		metrics.TxAbortTotal.WithLabelValues("comment_create").Inc()
		return nil, err
	}

	if added != nil {
		s.notifier.Notify(ctx, owner, realtime.EventNotificationNew, added)
	}
	return comment, nil
}

func (s *CommentService) ListByPost(ctx context.Context, postID string) ([]models.Comment, error) {
	ok, err := s.store.Posts.Exists(ctx, postID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, models.NewNotFoundError("post", postID)
	}
	return s.store.Comments.ListByPost(ctx, postID)
}

// Delete removes a comment written by requesterID, its ids in the post and
// author arrays and the notification it produced.
func (s *CommentService) Delete(ctx context.Context, requesterID, commentID string) error {
	var comment *models.Comment
	var owner string
	var removed bool
	err := s.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		owner, removed = "", false
		var err error
		comment, err = s.store.Comments.DeleteOwned(ctx, commentID, requesterID)
		if err != nil {
			return ownershipError(ctx, err, "comment", commentID, s.store.Comments.Exists)
		}

		post, err := s.store.Posts.Pull(ctx, comment.PostID, models.PostComments, comment.ID)
		if ignoreNotFound(err) != nil {
			return err
		}
		if _, err := s.store.Users.Pull(ctx, comment.AuthorID, models.UserComments, comment.ID); ignoreNotFound(err) != nil {
			return err
		}
		if post == nil || post.OwnerID == comment.AuthorID {
			return nil
		}
		owner = post.OwnerID
		ev := models.CommentEvent{PostID: comment.PostID, CommentID: comment.ID}
		removed, err = s.store.Notifications.Remove(ctx, owner, models.MatcherFor(comment.AuthorID, ev))
		return err
	})
	if err != nil {
		metrics.TxAbortTotal.WithLabelValues("comment_delete").Inc()
		return err
	}

	if removed {
		s.notifier.Notify(ctx, owner, realtime.EventNotificationRemoved, map[string]any{
			"sender_id":  comment.AuthorID,
			"kind":       models.NotificationComment,
			"post_id":    comment.PostID,
			"comment_id": comment.ID,
		})
	}
	if owner != "" {
		s.notifier.Notify(ctx, owner, realtime.EventCommentDeleted, map[string]any{
			"post_id":    comment.PostID,
			"comment_id": comment.ID,
		})
	}
	return nil
}
