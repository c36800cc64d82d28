package services

import (
	"context"

	"github.com/Blunt0FF/Krealgram-sub001/internal/models"
	"github.com/Blunt0FF/Krealgram-sub001/internal/repositories"
	"github.com/Blunt0FF/Krealgram-sub001/pkg/metrics"
	"github.com/Blunt0FF/Krealgram-sub001/pkg/realtime"
)

// NotificationPage is one page of an inbox, newest first.
type NotificationPage struct {
	Notifications []models.Notification `json:"notifications"`
	UnreadCount   int                   `json:"unread_count"`
	Total         int                   `json:"total"`
	Page          int                   `json:"page"`
	Limit         int                   `json:"limit"`
}

// NotificationService manages per-recipient inboxes. Each call runs in a
// transaction, joining the caller's when ctx already carries one.
type NotificationService struct {
	store    *repositories.Store
	notifier realtime.Notifier
	now      clock
}

func NewNotificationService(store *repositories.Store, notifier realtime.Notifier) *NotificationService {
	return &NotificationService{store: store, notifier: notifier, now: systemClock}
}

// Add records ev from sender in recipient's inbox. It reports false when
// the entry was deduplicated or sender and recipient are the same user.
func (s *NotificationService) Add(ctx context.Context, recipientID, senderID string, ev models.NotificationEvent) (*models.Notification, bool, error) {
	if recipientID == "" || senderID == "" {
		return nil, false, models.NewValidationError("recipient and sender are required")
	}
	if recipientID == senderID {
		return nil, false, nil
	}
	n := models.NewNotification(senderID, ev, s.now())
	var added bool
	err := s.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		added, err = s.store.Notifications.Add(ctx, recipientID, n)
		return err
	})
	if err != nil {
		metrics.NotificationOpsTotal.WithLabelValues("add", "error").Inc()
		return nil, false, err
	}
	if !added {
		metrics.NotificationOpsTotal.WithLabelValues("add", "deduplicated").Inc()
		return nil, false, nil
	}
	metrics.NotificationOpsTotal.WithLabelValues("add", "ok").Inc()
	s.notifier.Notify(ctx, recipientID, realtime.EventNotificationNew, n)
	return &n, true, nil
}

// Remove drops the entry sender produced with ev.
func (s *NotificationService) Remove(ctx context.Context, recipientID, senderID string, ev models.NotificationEvent) (bool, error) {
	m := models.MatcherFor(senderID, ev)
	var removed bool
	err := s.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		var err error
		removed, err = s.store.Notifications.Remove(ctx, recipientID, m)
		return err
	})
	if err != nil {
		metrics.NotificationOpsTotal.WithLabelValues("remove", "error").Inc()
		return false, err
	}
	metrics.NotificationOpsTotal.WithLabelValues("remove", "ok").Inc()
	if removed {
		s.notifier.Notify(ctx, recipientID, realtime.EventNotificationRemoved, map[string]any{
			"sender_id":  senderID,
			"kind":       ev.Kind(),
			"post_id":    m.PostID,
			"comment_id": m.CommentID,
		})
	}
	return removed, nil
}

// MarkRead marks one entry read and returns the new unread count. Marking an
// already read entry is a no-op.
func (s *NotificationService) MarkRead(ctx context.Context, recipientID, notificationID string) (int, error) {
	var unread int
	err := s.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		changed, err := s.store.Notifications.MarkRead(ctx, recipientID, notificationID)
		if err != nil {
			return err
		}
		inbox, err := s.store.Notifications.Get(ctx, recipientID)
		if err != nil {
			return err
		}
		if !changed && inbox.Find(models.NotificationMatcher{ID: notificationID}) < 0 {
			return models.NewNotFoundError("notification", notificationID)
		}
		unread = inbox.UnreadCount
		return nil
	})
	if err != nil {
		metrics.NotificationOpsTotal.WithLabelValues("mark_read", "error").Inc()
		return 0, err
	}
	metrics.NotificationOpsTotal.WithLabelValues("mark_read", "ok").Inc()
	s.notifier.Notify(ctx, recipientID, realtime.EventNotificationRead, map[string]any{
		"id":           notificationID,
		"unread_count": unread,
	})
	return unread, nil
}

func (s *NotificationService) MarkAllRead(ctx context.Context, recipientID string) error {
	err := s.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		return s.store.Notifications.MarkAllRead(ctx, recipientID)
	})
	if err != nil {
		metrics.NotificationOpsTotal.WithLabelValues("mark_all_read", "error").Inc()
		return err
	}
	metrics.NotificationOpsTotal.WithLabelValues("mark_all_read", "ok").Inc()
	s.notifier.Notify(ctx, recipientID, realtime.EventNotificationReadAll, nil)
	return nil
}

// Delete removes one entry by id.
func (s *NotificationService) Delete(ctx context.Context, recipientID, notificationID string) error {
	err := s.store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		removed, err := s.store.Notifications.Remove(ctx, recipientID, models.NotificationMatcher{ID: notificationID})
		if err != nil {
			return err
		}
		if !removed {
			return models.NewNotFoundError("notification", notificationID)
		}
		return nil
	})
	if err != nil {
		metrics.NotificationOpsTotal.WithLabelValues("delete", "error").Inc()
		return err
	}
	metrics.NotificationOpsTotal.WithLabelValues("delete", "ok").Inc()
	s.notifier.Notify(ctx, recipientID, realtime.EventNotificationRemoved, map[string]any{"id": notificationID})
	return nil
}

// List returns one page of the inbox ordered by created_at, newest first.
func (s *NotificationService) List(ctx context.Context, recipientID string, page Page) (NotificationPage, error) {
	page = page.normalize()
	inbox, err := s.store.Notifications.Get(ctx, recipientID)
	if err != nil {
		return NotificationPage{}, err
	}
	all := make([]models.Notification, len(inbox.Notifications))
	copy(all, inbox.Notifications)
	models.SortNewestFirst(all)

	skip := page.skip()
	start := len(all)
	if skip >= 0 && skip < int64(len(all)) {
		start = int(skip)
	}
	end := start + page.Limit
	if end > len(all) {
		end = len(all)
	}
	return NotificationPage{
		Notifications: all[start:end],
		UnreadCount:   inbox.UnreadCount,
		Total:         len(all),
		Page:          page.Page,
		Limit:         page.Limit,
	}, nil
}
