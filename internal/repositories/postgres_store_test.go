package repositories

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Blunt0FF/Krealgram-sub001/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestStore runs the relational store on in-memory SQLite. A single
// connection keeps every query on the same database.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, AutoMigrate(db))

	store := NewPostgresStore(db)
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	return store
}

func seedUser(t *testing.T, s *Store, username string) *models.User {
	t.Helper()
	u := models.NewUser(username)
	require.NoError(t, s.Users.Create(context.Background(), u))
	return u
}

func TestRelationRepository_UniqueEdge(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Relations.Insert(ctx, models.NewRelation(models.RelationLike, "u1", "p1")))
	err := s.Relations.Insert(ctx, models.NewRelation(models.RelationLike, "u1", "p1"))
	assert.ErrorIs(t, err, ErrDuplicate)

	// same pair under another kind is a different edge
	require.NoError(t, s.Relations.Insert(ctx, models.NewRelation(models.RelationFollow, "u1", "p1")))

	rel, err := s.Relations.Find(ctx, models.RelationLike, "u1", "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", rel.ObjectID)

	_, err = s.Relations.Find(ctx, models.RelationLike, "u2", "p1")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestRelationRepository_DeleteAndCount(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, u := range []string{"u1", "u2", "u3"} {
		require.NoError(t, s.Relations.Insert(ctx, models.NewRelation(models.RelationLike, u, "p1")))
	}
	count, err := s.Relations.Count(ctx, models.RelationLike, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	deleted, err := s.Relations.Delete(ctx, models.RelationLike, "u1", "p1")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = s.Relations.Delete(ctx, models.RelationLike, "u1", "p1")
	require.NoError(t, err)
	assert.False(t, deleted)

	n, err := s.Relations.DeleteByObject(ctx, models.RelationLike, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	count, err = s.Relations.Count(ctx, models.RelationLike, "p1")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestUserRepository_Arrays(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "alice")

	got, err := s.Users.AddToSet(ctx, u.ID, models.UserLikes, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, got.Likes)

	got, err = s.Users.AddToSet(ctx, u.ID, models.UserLikes, "p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1"}, got.Likes, "add to set is idempotent")

	got, err = s.Users.Pull(ctx, u.ID, models.UserLikes, "p1")
	require.NoError(t, err)
	assert.Empty(t, got.Likes)

	got, err = s.Users.Pull(ctx, u.ID, models.UserLikes, "p1")
	require.NoError(t, err)
	assert.Empty(t, got.Likes, "pulling an absent value is a no-op")

	_, err = s.Users.AddToSet(ctx, "missing", models.UserLikes, "p1")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestUserRepository_PullFromAll(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	a := seedUser(t, s, "alice")
	b := seedUser(t, s, "bob")
	c := seedUser(t, s, "carol")

	for _, u := range []*models.User{a, b} {
		_, err := s.Users.AddToSet(ctx, u.ID, models.UserLikes, "p1")
		require.NoError(t, err)
	}
	_, err := s.Users.AddToSet(ctx, c.ID, models.UserLikes, "p10")
	require.NoError(t, err)

	n, err := s.Users.PullFromAll(ctx, models.UserLikes, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	got, err := s.Users.GetByID(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"p10"}, got.Likes)
}

func TestUserRepository_DuplicateUsername(t *testing.T) {
	s := newTestStore(t)
	seedUser(t, s, "alice")
	err := s.Users.Create(context.Background(), models.NewUser("alice"))
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestUserRepository_TouchLastSeen(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "alice")

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	require.NoError(t, s.Users.TouchLastSeen(ctx, u.ID, at))
	got, err := s.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, got.LastSeenAt.Equal(at))

	assert.ErrorIs(t, s.Users.TouchLastSeen(ctx, "missing", at), models.ErrNotFound)
}

func TestPostgresTxManager_RollsBack(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "alice")

	boom := errors.New("boom")
	err := s.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.Users.AddToSet(ctx, u.ID, models.UserLikes, "p1"); err != nil {
			return err
		}
		if err := s.Relations.Insert(ctx, models.NewRelation(models.RelationLike, u.ID, "p1")); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	got, err := s.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Likes)
	_, err = s.Relations.Find(ctx, models.RelationLike, u.ID, "p1")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestPostgresTxManager_InnerFailureKeepsOuterWork(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	u := seedUser(t, s, "alice")

	err := s.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := s.Users.Pull(ctx, "missing", models.UserComments, "c1"); !errors.Is(err, models.ErrNotFound) {
			return errors.New("expected not found")
		}
		_, err := s.Users.AddToSet(ctx, u.ID, models.UserComments, "c2")
		return err
	})
	require.NoError(t, err)

	got, err := s.Users.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"c2"}, got.Comments)
}

func TestPostRepository_DeleteOwned(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	post := models.NewPost("owner", "hello", []models.MediaRef{{BlobID: "b1", URL: "/b1"}})
	require.NoError(t, s.Posts.Create(ctx, post))

	_, err := s.Posts.DeleteOwned(ctx, post.ID, "intruder")
	assert.ErrorIs(t, err, models.ErrNotFound)
	ok, err := s.Posts.Exists(ctx, post.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	deleted, err := s.Posts.DeleteOwned(ctx, post.ID, "owner")
	require.NoError(t, err)
	assert.Equal(t, "b1", deleted.Media[0].BlobID)
	ok, err = s.Posts.Exists(ctx, post.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCommentRepository_ListAndDeleteByPost(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, body := range []string{"first", "second"} {
		require.NoError(t, s.Comments.Create(ctx, &models.Comment{
			ID: models.NewID(), PostID: "p1", AuthorID: "u1", Body: body,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	require.NoError(t, s.Comments.Create(ctx, &models.Comment{ID: models.NewID(), PostID: "p2", AuthorID: "u1", Body: "other", CreatedAt: base}))

	list, err := s.Comments.ListByPost(ctx, "p1")
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "first", list[0].Body)

	n, err := s.Comments.DeleteByPost(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	list, err = s.Comments.ListByPost(ctx, "p2")
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestMessageRepository_ListNewestFirst(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		require.NoError(t, s.Messages.Create(ctx, &models.Message{
			ID: models.NewID(), ConversationID: "c1", SenderID: "u1",
			Body: string(rune('a' + i)), CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	msgs, err := s.Messages.ListByConversation(ctx, "c1", 0, 2)
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "c", msgs[0].Body)
	assert.Equal(t, "b", msgs[1].Body)

	_, err = s.Messages.DeleteOwned(ctx, msgs[0].ID, "u2")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestNotificationRepository_AddDeduplicates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	added, err := s.Notifications.Add(ctx, "owner", models.NewNotification("fan", models.LikeEvent{PostID: "p1"}, now))
	require.NoError(t, err)
	assert.True(t, added)

	added, err = s.Notifications.Add(ctx, "owner", models.NewNotification("fan", models.LikeEvent{PostID: "p1"}, now))
	require.NoError(t, err)
	assert.False(t, added, "same sender, kind and post is deduplicated")

	added, err = s.Notifications.Add(ctx, "owner", models.NewNotification("fan", models.LikeEvent{PostID: "p2"}, now))
	require.NoError(t, err)
	assert.True(t, added)

	for i := 0; i < 2; i++ {
		added, err = s.Notifications.Add(ctx, "owner", models.NewNotification("fan", models.CommentEvent{PostID: "p1", CommentID: models.NewID()}, now))
		require.NoError(t, err)
		assert.True(t, added, "comments are never deduplicated")
	}

	inbox, err := s.Notifications.Get(ctx, "owner")
	require.NoError(t, err)
	assert.Len(t, inbox.Notifications, 4)
	assert.Equal(t, 4, inbox.UnreadCount)
}

func TestNotificationRepository_RemoveAndRead(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	like := models.NewNotification("fan", models.LikeEvent{PostID: "p1"}, time.Now())
	follow := models.NewNotification("fan", models.FollowEvent{}, time.Now())
	for _, n := range []models.Notification{like, follow} {
		_, err := s.Notifications.Add(ctx, "owner", n)
		require.NoError(t, err)
	}

	_, err := s.Notifications.Remove(ctx, "owner", models.NotificationMatcher{})
	assert.Error(t, err)

	changed, err := s.Notifications.MarkRead(ctx, "owner", like.ID)
	require.NoError(t, err)
	assert.True(t, changed)
	changed, err = s.Notifications.MarkRead(ctx, "owner", like.ID)
	require.NoError(t, err)
	assert.False(t, changed)

	removed, err := s.Notifications.Remove(ctx, "owner", models.MatcherFor("fan", models.LikeEvent{PostID: "p1"}))
	require.NoError(t, err)
	assert.True(t, removed)

	inbox, err := s.Notifications.Get(ctx, "owner")
	require.NoError(t, err)
	require.Len(t, inbox.Notifications, 1)
	assert.Equal(t, 1, inbox.UnreadCount, "removing a read entry leaves the unread count alone")

	require.NoError(t, s.Notifications.MarkAllRead(ctx, "owner"))
	inbox, err = s.Notifications.Get(ctx, "owner")
	require.NoError(t, err)
	assert.Zero(t, inbox.UnreadCount)

	removed, err = s.Notifications.Remove(ctx, "nobody", models.NotificationMatcher{ID: "x"})
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestNotificationRepository_PullByPost(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()
	for _, recipient := range []string{"a", "b"} {
		_, err := s.Notifications.Add(ctx, recipient, models.NewNotification("fan", models.LikeEvent{PostID: "p1"}, now))
		require.NoError(t, err)
	}
	_, err := s.Notifications.Add(ctx, "b", models.NewNotification("fan", models.LikeEvent{PostID: "p2"}, now))
	require.NoError(t, err)

	n, err := s.Notifications.PullByPost(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	inbox, err := s.Notifications.Get(ctx, "b")
	require.NoError(t, err)
	require.Len(t, inbox.Notifications, 1)
	assert.Equal(t, "p2", inbox.Notifications[0].PostID)
	assert.Equal(t, 1, inbox.UnreadCount)

	empty, err := s.Notifications.Get(ctx, "nobody")
	require.NoError(t, err)
	assert.Empty(t, empty.Notifications)
}
