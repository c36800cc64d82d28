package services

import (
	"context"
	"testing"
	"time"

	"github.com/Blunt0FF/Krealgram-sub001/internal/models"
	"github.com/Blunt0FF/Krealgram-sub001/internal/testutil"
	"github.com/Blunt0FF/Krealgram-sub001/pkg/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// tickingClock returns a clock that advances one second per call.
func tickingClock() clock {
	t := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		t = t.Add(time.Second)
		return t
	}
}

func newNotificationService(t *testing.T) (*NotificationService, *testutil.Recorder) {
	t.Helper()
	rec := &testutil.Recorder{}
	svc := NewNotificationService(testutil.NewStore(t), rec)
	svc.now = tickingClock()
	return svc, rec
}

func TestNotificationService_Add(t *testing.T) {
	svc, rec := newNotificationService(t)
	ctx := context.Background()

	_, added, err := svc.Add(ctx, "owner", "owner", models.LikeEvent{PostID: "p1"})
	require.NoError(t, err)
	assert.False(t, added, "users are never notified about themselves")

	_, _, err = svc.Add(ctx, "", "fan", models.FollowEvent{})
	assert.ErrorIs(t, err, models.ErrValidation)

	n, added, err := svc.Add(ctx, "owner", "fan", models.LikeEvent{PostID: "p1"})
	require.NoError(t, err)
	require.True(t, added)
	assert.Equal(t, "p1", n.PostID)
	assert.False(t, n.Read)

	_, added, err = svc.Add(ctx, "owner", "fan", models.LikeEvent{PostID: "p1"})
	require.NoError(t, err)
	assert.False(t, added)

	assert.Len(t, rec.Named(realtime.EventNotificationNew), 1)
}

func TestNotificationService_ListNewestFirst(t *testing.T) {
	svc, _ := newNotificationService(t)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 5; i++ {
		n, _, err := svc.Add(ctx, "owner", "fan", models.CommentEvent{PostID: "p1", CommentID: models.NewID()})
		require.NoError(t, err)
		ids = append(ids, n.ID)
	}

	page, err := svc.List(ctx, "owner", Page{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, page.Total)
	assert.Equal(t, 5, page.UnreadCount)
	require.Len(t, page.Notifications, 2)
	assert.Equal(t, ids[4], page.Notifications[0].ID)
	assert.Equal(t, ids[3], page.Notifications[1].ID)

	page, err = svc.List(ctx, "owner", Page{Page: 3, Limit: 2})
	require.NoError(t, err)
	require.Len(t, page.Notifications, 1)
	assert.Equal(t, ids[0], page.Notifications[0].ID)

	page, err = svc.List(ctx, "owner", Page{Page: 9, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, page.Notifications)

	page, err = svc.List(ctx, "nobody", Page{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
	assert.Equal(t, defaultPageSize, page.Limit)
}

func TestNotificationService_ListHugePage(t *testing.T) {
	svc, _ := newNotificationService(t)
	ctx := context.Background()

	_, _, err := svc.Add(ctx, "owner", "fan", models.FollowEvent{})
	require.NoError(t, err)

	page, err := svc.List(ctx, "owner", Page{Page: 500000000000000000, Limit: 20})
	require.NoError(t, err)
	assert.Empty(t, page.Notifications)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, maxPage, page.Page)
}

func TestPageNormalize(t *testing.T) {
	p := Page{Page: 1 << 62, Limit: 1000}.normalize()
	assert.Equal(t, maxPage, p.Page)
	assert.Equal(t, maxPageSize, p.Limit)
	assert.Positive(t, p.skip())

	p = Page{Page: -3, Limit: 0}.normalize()
	assert.Equal(t, 1, p.Page)
	assert.Equal(t, defaultPageSize, p.Limit)
	assert.Zero(t, p.skip())
}

func TestNotificationService_MarkRead(t *testing.T) {
	svc, rec := newNotificationService(t)
	ctx := context.Background()
	first, _, err := svc.Add(ctx, "owner", "fan", models.LikeEvent{PostID: "p1"})
	require.NoError(t, err)
	_, _, err = svc.Add(ctx, "owner", "fan", models.FollowEvent{})
	require.NoError(t, err)

	unread, err := svc.MarkRead(ctx, "owner", first.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, unread)

	unread, err = svc.MarkRead(ctx, "owner", first.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, unread, "marking twice does not change the count")

	_, err = svc.MarkRead(ctx, "owner", "missing")
	assert.ErrorIs(t, err, models.ErrNotFound)

	require.NoError(t, svc.MarkAllRead(ctx, "owner"))
	page, err := svc.List(ctx, "owner", Page{})
	require.NoError(t, err)
	assert.Zero(t, page.UnreadCount)
	for _, n := range page.Notifications {
		assert.True(t, n.Read)
	}
	assert.Len(t, rec.Named(realtime.EventNotificationReadAll), 1)
}

func TestNotificationService_RemoveAndDelete(t *testing.T) {
	svc, rec := newNotificationService(t)
	ctx := context.Background()
	like, _, err := svc.Add(ctx, "owner", "fan", models.LikeEvent{PostID: "p1"})
	require.NoError(t, err)
	follow, _, err := svc.Add(ctx, "owner", "fan", models.FollowEvent{})
	require.NoError(t, err)

	_, err = svc.MarkRead(ctx, "owner", like.ID)
	require.NoError(t, err)

	removed, err := svc.Remove(ctx, "owner", "fan", models.LikeEvent{PostID: "p1"})
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = svc.Remove(ctx, "owner", "fan", models.LikeEvent{PostID: "p1"})
	require.NoError(t, err)
	assert.False(t, removed)

	page, err := svc.List(ctx, "owner", Page{})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 1, page.UnreadCount)

	require.NoError(t, svc.Delete(ctx, "owner", follow.ID))
	assert.ErrorIs(t, svc.Delete(ctx, "owner", follow.ID), models.ErrNotFound)

	page, err = svc.List(ctx, "owner", Page{})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
	assert.Zero(t, page.UnreadCount)
	assert.Len(t, rec.Named(realtime.EventNotificationRemoved), 2)
}
