package services

import (
	"bytes"
	"context"
	"errors"
	"image/color"
	"testing"

	"github.com/Blunt0FF/Krealgram-sub001/internal/media"
	"github.com/Blunt0FF/Krealgram-sub001/internal/models"
	"github.com/Blunt0FF/Krealgram-sub001/internal/repositories"
	"github.com/Blunt0FF/Krealgram-sub001/internal/testutil"
	"github.com/Blunt0FF/Krealgram-sub001/pkg/realtime"
	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type postFixture struct {
	store    *repositories.Store
	blobs    *testutil.MemBlobs
	rec      *testutil.Recorder
	posts    *PostService
	comments *CommentService
	engine   *ToggleEngine
}

func newPostFixture(t *testing.T) *postFixture {
	t.Helper()
	store := testutil.NewStore(t)
	blobs := testutil.NewMemBlobs()
	rec := &testutil.Recorder{}
	pipeline := &media.Pipeline{MaxBytes: 1 << 20, MaxEdge: 64, Blobs: blobs}
	testutil.SeedUser(t, store, "owner", "owner")
	testutil.SeedUser(t, store, "fan", "fan")
	return &postFixture{
		store:    store,
		blobs:    blobs,
		rec:      rec,
		posts:    NewPostService(store, pipeline, blobs, rec),
		comments: NewCommentService(store, rec),
		engine:   NewToggleEngine(store, rec),
	}
}

func pngUpload(t *testing.T, name string) media.Upload {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, imaging.New(128, 32, color.NRGBA{B: 255, A: 255}), imaging.PNG))
	return media.Upload{Filename: name, Data: buf.Bytes()}
}

func TestPostService_Create(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()

	post, err := f.posts.Create(ctx, "owner", "sunset", []media.Upload{pngUpload(t, "a.png"), pngUpload(t, "b.png")})
	require.NoError(t, err)
	require.Len(t, post.Media, 2)
	assert.Equal(t, 64, post.Media[0].Width)
	assert.Equal(t, 16, post.Media[0].Height)
	assert.Equal(t, 2, f.blobs.Len())

	owner, err := f.store.Users.GetByID(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, []string{post.ID}, owner.Posts)

	list, err := f.posts.ListByOwner(ctx, "owner", Page{})
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestPostService_CreateRejectsBadInput(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()

	_, err := f.posts.Create(ctx, "owner", "empty", nil)
	assert.ErrorIs(t, err, models.ErrValidation)

	tooMany := make([]media.Upload, maxPostMedia+1)
	_, err = f.posts.Create(ctx, "owner", "many", tooMany)
	assert.ErrorIs(t, err, models.ErrValidation)

	// the first file is stored before the second is rejected
	_, err = f.posts.Create(ctx, "owner", "mixed", []media.Upload{
		pngUpload(t, "ok.png"),
		{Filename: "notes.txt", Data: []byte("plain text")},
	})
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Zero(t, f.blobs.Len(), "stored blobs are discarded")
}

func TestPostService_CreateFailsWhenStorageFails(t *testing.T) {
	f := newPostFixture(t)
	f.blobs.FailUpload = errors.New("bucket offline")

	_, err := f.posts.Create(context.Background(), "owner", "x", []media.Upload{pngUpload(t, "a.png")})
	assert.Error(t, err)
	list, err := f.posts.ListByOwner(context.Background(), "owner", Page{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestPostService_DeleteCascades(t *testing.T) {
	f := newPostFixture(t)
	ctx := context.Background()
	post := testutil.SeedPost(t, f.store, "owner")
	other := testutil.SeedPost(t, f.store, "owner")

	_, err := f.engine.ToggleLike(ctx, "fan", post.ID)
	require.NoError(t, err)
	_, err = f.engine.ToggleLike(ctx, "fan", other.ID)
	require.NoError(t, err)
	comment, err := f.comments.Create(ctx, "fan", post.ID, "nice")
	require.NoError(t, err)

	assert.ErrorIs(t, f.posts.Delete(ctx, "fan", post.ID), models.ErrForbidden)
	require.NoError(t, f.posts.Delete(ctx, "owner", post.ID))
	assert.ErrorIs(t, f.posts.Delete(ctx, "owner", post.ID), models.ErrNotFound)

	_, err = f.store.Posts.GetByID(ctx, post.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	_, err = f.store.Comments.GetByID(ctx, comment.ID)
	assert.ErrorIs(t, err, models.ErrNotFound)
	count, err := f.store.Relations.Count(ctx, models.RelationLike, post.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	fan, err := f.store.Users.GetByID(ctx, "fan")
	require.NoError(t, err)
	assert.Equal(t, []string{other.ID}, fan.Likes)
	assert.Empty(t, fan.Comments)
	owner, err := f.store.Users.GetByID(ctx, "owner")
	require.NoError(t, err)
	assert.Equal(t, []string{other.ID}, owner.Posts)

	inbox, err := f.store.Notifications.Get(ctx, "owner")
	require.NoError(t, err)
	require.Len(t, inbox.Notifications, 1)
	assert.Equal(t, other.ID, inbox.Notifications[0].PostID)
	assert.Equal(t, 1, inbox.UnreadCount)

	assert.Contains(t, f.blobs.Deleted, post.Media[0].BlobID)
	assert.Len(t, f.rec.Named(realtime.EventPostDeleted), 1)
}
