package services

import (
	"context"
	"testing"

	"github.com/Blunt0FF/Krealgram-sub001/internal/models"
	"github.com/Blunt0FF/Krealgram-sub001/internal/repositories"
	"github.com/Blunt0FF/Krealgram-sub001/internal/testutil"
	"github.com/Blunt0FF/Krealgram-sub001/pkg/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEngine(t *testing.T) (*ToggleEngine, *repositories.Store, *testutil.Recorder) {
	t.Helper()
	store := testutil.NewStore(t)
	rec := &testutil.Recorder{}
	return NewToggleEngine(store, rec), store, rec
}

func TestToggleLike_RoundTrip(t *testing.T) {
	engine, store, rec := newEngine(t)
	ctx := context.Background()
	testutil.SeedUser(t, store, "owner", "owner")
	testutil.SeedUser(t, store, "fan", "fan")
	post := testutil.SeedPost(t, store, "owner")

	res, err := engine.ToggleLike(ctx, "fan", post.ID)
	require.NoError(t, err)
	assert.Equal(t, ToggleResult{Active: true, State: StateLiked, Count: 1}, res)

	gotPost, err := store.Posts.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"fan"}, gotPost.Likes)
	fan, err := store.Users.GetByID(ctx, "fan")
	require.NoError(t, err)
	assert.Equal(t, []string{post.ID}, fan.Likes)

	inbox, err := store.Notifications.Get(ctx, "owner")
	require.NoError(t, err)
	require.Len(t, inbox.Notifications, 1)
	assert.Equal(t, models.NotificationLike, inbox.Notifications[0].Kind)
	assert.Equal(t, 1, inbox.UnreadCount)
	firstID := inbox.Notifications[0].ID
	assert.Len(t, rec.Named(realtime.EventLikeToggled), 1)
	assert.Len(t, rec.Named(realtime.EventNotificationNew), 1)

	res, err = engine.ToggleLike(ctx, "fan", post.ID)
	require.NoError(t, err)
	assert.Equal(t, ToggleResult{Active: false, State: StateUnliked, Count: 0}, res)

	gotPost, err = store.Posts.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, gotPost.Likes)
	fan, err = store.Users.GetByID(ctx, "fan")
	require.NoError(t, err)
	assert.Empty(t, fan.Likes)
	_, err = store.Relations.Find(ctx, models.RelationLike, "fan", post.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	inbox, err = store.Notifications.Get(ctx, "owner")
	require.NoError(t, err)
	assert.Empty(t, inbox.Notifications)
	assert.Zero(t, inbox.UnreadCount)
	assert.Len(t, rec.Named(realtime.EventNotificationRemoved), 1)

	res, err = engine.ToggleLike(ctx, "fan", post.ID)
	require.NoError(t, err)
	assert.Equal(t, ToggleResult{Active: true, State: StateLiked, Count: 1}, res)

	inbox, err = store.Notifications.Get(ctx, "owner")
	require.NoError(t, err)
	require.Len(t, inbox.Notifications, 1)
	assert.NotEqual(t, firstID, inbox.Notifications[0].ID, "a re-like creates a fresh notification")
	assert.Equal(t, 1, inbox.UnreadCount)
	assert.Len(t, rec.Named(realtime.EventNotificationNew), 2)
}

func TestToggleLike_OwnPostHasNoNotification(t *testing.T) {
	engine, store, rec := newEngine(t)
	ctx := context.Background()
	testutil.SeedUser(t, store, "owner", "owner")
	post := testutil.SeedPost(t, store, "owner")

	res, err := engine.ToggleLike(ctx, "owner", post.ID)
	require.NoError(t, err)
	assert.True(t, res.Active)

	inbox, err := store.Notifications.Get(ctx, "owner")
	require.NoError(t, err)
	assert.Empty(t, inbox.Notifications)
	assert.Empty(t, rec.Named(realtime.EventLikeToggled))
}

func TestToggleLike_MissingPost(t *testing.T) {
	engine, store, _ := newEngine(t)
	ctx := context.Background()
	testutil.SeedUser(t, store, "fan", "fan")

	_, err := engine.ToggleLike(ctx, "fan", "nope")
	assert.ErrorIs(t, err, models.ErrNotFound)

	count, err := store.Relations.Count(ctx, models.RelationLike, "nope")
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestToggleLike_MissingActorRollsBack(t *testing.T) {
	engine, store, _ := newEngine(t)
	ctx := context.Background()
	testutil.SeedUser(t, store, "owner", "owner")
	post := testutil.SeedPost(t, store, "owner")

	_, err := engine.ToggleLike(ctx, "ghost", post.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)

	got, err := store.Posts.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Empty(t, got.Likes)
	_, err = store.Relations.Find(ctx, models.RelationLike, "ghost", post.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestFollow(t *testing.T) {
	engine, store, _ := newEngine(t)
	ctx := context.Background()
	testutil.SeedUser(t, store, "a", "alice")
	testutil.SeedUser(t, store, "b", "bob")

	_, err := engine.Follow(ctx, "a", "a")
	assert.ErrorIs(t, err, models.ErrValidation)

	_, err = engine.Unfollow(ctx, "a", "b")
	assert.ErrorIs(t, err, models.ErrConflict)

	res, err := engine.Follow(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, ToggleResult{Active: true, State: StateFollowing, Count: 1}, res)

	_, err = engine.Follow(ctx, "a", "b")
	assert.ErrorIs(t, err, models.ErrConflict)

	a, err := store.Users.GetByID(ctx, "a")
	require.NoError(t, err)
	b, err := store.Users.GetByID(ctx, "b")
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, a.Following)
	assert.Equal(t, []string{"a"}, b.Followers)

	inbox, err := store.Notifications.Get(ctx, "b")
	require.NoError(t, err)
	require.Len(t, inbox.Notifications, 1)
	assert.Equal(t, models.NotificationFollow, inbox.Notifications[0].Kind)

	res, err = engine.Unfollow(ctx, "a", "b")
	require.NoError(t, err)
	assert.Equal(t, StateUnfollowed, res.State)

	b, err = store.Users.GetByID(ctx, "b")
	require.NoError(t, err)
	assert.Empty(t, b.Followers)
	inbox, err = store.Notifications.Get(ctx, "b")
	require.NoError(t, err)
	assert.Empty(t, inbox.Notifications)
}

func TestToggle_UnknownKind(t *testing.T) {
	engine, _, _ := newEngine(t)
	_, err := engine.Toggle(context.Background(), "a", "b", models.RelationKind("block"))
	assert.ErrorIs(t, err, models.ErrValidation)
}

// staleRelations reports the first lookup as missing, as a reader that ran
// before a concurrent insert committed would see it.
type staleRelations struct {
	repositories.RelationRepository
	served bool
}

func (r *staleRelations) Find(ctx context.Context, kind models.RelationKind, subjectID, objectID string) (*models.Relation, error) {
	if !r.served {
		r.served = true
		return nil, models.NewNotFoundError(string(kind), subjectID+"->"+objectID)
	}
	return r.RelationRepository.Find(ctx, kind, subjectID, objectID)
}

func TestToggleLike_LostInsertRaceReportsCommittedState(t *testing.T) {
	engine, store, rec := newEngine(t)
	ctx := context.Background()
	testutil.SeedUser(t, store, "owner", "owner")
	testutil.SeedUser(t, store, "fan", "fan")
	post := testutil.SeedPost(t, store, "owner")

	_, err := engine.ToggleLike(ctx, "fan", post.ID)
	require.NoError(t, err)
	store.Relations = &staleRelations{RelationRepository: store.Relations}

	res, err := engine.ToggleLike(ctx, "fan", post.ID)
	require.NoError(t, err)
	assert.Equal(t, ToggleResult{Active: true, State: StateLiked, Count: 1}, res)

	got, err := store.Posts.GetByID(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"fan"}, got.Likes)
	inbox, err := store.Notifications.Get(ctx, "owner")
	require.NoError(t, err)
	assert.Len(t, inbox.Notifications, 1)
	assert.Len(t, rec.Named(realtime.EventNotificationNew), 1, "the losing request emits nothing")
}

func TestFollow_LostInsertRaceIsConflict(t *testing.T) {
	engine, store, _ := newEngine(t)
	ctx := context.Background()
	testutil.SeedUser(t, store, "a", "alice")
	testutil.SeedUser(t, store, "b", "bob")

	_, err := engine.Follow(ctx, "a", "b")
	require.NoError(t, err)
	store.Relations = &staleRelations{RelationRepository: store.Relations}

	_, err = engine.Follow(ctx, "a", "b")
	assert.ErrorIs(t, err, models.ErrConflict)
}

// phantomRelations reports the first lookup as present, as a reader that ran
// before a concurrent delete committed would see it.
type phantomRelations struct {
	repositories.RelationRepository
	served bool
}

func (r *phantomRelations) Find(ctx context.Context, kind models.RelationKind, subjectID, objectID string) (*models.Relation, error) {
	if !r.served {
		r.served = true
		return models.NewRelation(kind, subjectID, objectID), nil
	}
	return r.RelationRepository.Find(ctx, kind, subjectID, objectID)
}

func TestUnfollow_LostDeleteRaceIsConflict(t *testing.T) {
	engine, store, rec := newEngine(t)
	ctx := context.Background()
	testutil.SeedUser(t, store, "a", "alice")
	testutil.SeedUser(t, store, "b", "bob")

	_, err := engine.Follow(ctx, "a", "b")
	require.NoError(t, err)
	_, err = engine.Unfollow(ctx, "a", "b")
	require.NoError(t, err)
	removed := len(rec.Named(realtime.EventNotificationRemoved))
	store.Relations = &phantomRelations{RelationRepository: store.Relations}

	_, err = engine.Unfollow(ctx, "a", "b")
	assert.ErrorIs(t, err, models.ErrConflict)
	assert.Len(t, rec.Named(realtime.EventNotificationRemoved), removed, "the losing request emits nothing")
}

func TestToggleLike_LostDeleteRaceReportsCommittedState(t *testing.T) {
	engine, store, rec := newEngine(t)
	ctx := context.Background()
	testutil.SeedUser(t, store, "owner", "owner")
	testutil.SeedUser(t, store, "fan", "fan")
	post := testutil.SeedPost(t, store, "owner")
	store.Relations = &phantomRelations{RelationRepository: store.Relations}

	res, err := engine.ToggleLike(ctx, "fan", post.ID)
	require.NoError(t, err)
	assert.Equal(t, ToggleResult{Active: false, State: StateUnliked, Count: 0}, res)
	assert.Empty(t, rec.Named(realtime.EventLikeToggled))

	count, err := store.Relations.Count(ctx, models.RelationLike, post.ID)
	require.NoError(t, err)
	assert.Zero(t, count)
}
