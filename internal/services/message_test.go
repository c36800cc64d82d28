package services

import (
	"context"
	"testing"

	"github.com/Blunt0FF/Krealgram-sub001/internal/models"
	"github.com/Blunt0FF/Krealgram-sub001/internal/testutil"
	"github.com/Blunt0FF/Krealgram-sub001/pkg/realtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMessageService(t *testing.T) {
	store := testutil.NewStore(t)
	rec := &testutil.Recorder{}
	svc := NewMessageService(store, testutil.NewMemBlobs(), rec)
	svc.now = tickingClock()
	ctx := context.Background()
	testutil.SeedUser(t, store, "a", "alice")
	testutil.SeedUser(t, store, "b", "bob")
	testutil.SeedUser(t, store, "c", "carol")

	_, err := svc.CreateConversation(ctx, "a", []string{"a", " "})
	assert.ErrorIs(t, err, models.ErrValidation)
	_, err = svc.CreateConversation(ctx, "a", []string{"ghost"})
	assert.ErrorIs(t, err, models.ErrNotFound)

	conv, err := svc.CreateConversation(ctx, "a", []string{"b", "b"})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, conv.Participants)

	_, err = svc.Send(ctx, "c", conv.ID, "hi", nil)
	assert.ErrorIs(t, err, models.ErrForbidden)
	_, err = svc.Send(ctx, "a", conv.ID, "  ", nil)
	assert.ErrorIs(t, err, models.ErrValidation)

	first, err := svc.Send(ctx, "a", conv.ID, "hello", nil)
	require.NoError(t, err)
	second, err := svc.Send(ctx, "b", conv.ID, "hey", nil)
	require.NoError(t, err)
	assert.Len(t, rec.Named(realtime.EventMessageNew), 2)

	msgs, err := svc.List(ctx, "a", conv.ID, Page{})
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, second.ID, msgs[0].ID)
	_, err = svc.List(ctx, "c", conv.ID, Page{})
	assert.ErrorIs(t, err, models.ErrForbidden)

	assert.ErrorIs(t, svc.Delete(ctx, "b", first.ID), models.ErrForbidden)
	require.NoError(t, svc.Delete(ctx, "a", first.ID))
	assert.ErrorIs(t, svc.Delete(ctx, "a", first.ID), models.ErrNotFound)

	got, err := store.Conversations.GetByID(ctx, conv.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{second.ID}, got.Messages)
	alice, err := store.Users.GetByID(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, alice.Messages)
	assert.Len(t, rec.Named(realtime.EventMessageDeleted), 1)
}
