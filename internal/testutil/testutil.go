// Package testutil provides shared test doubles and fixtures for service and handler tests.
package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/Blunt0FF/Krealgram-sub001/internal/models"
	"github.com/Blunt0FF/Krealgram-sub001/internal/repositories"
	"github.com/Blunt0FF/Krealgram-sub001/pkg/blobstore"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// NewStore opens the relational store on in-memory SQLite with the schema migrated.
func NewStore(t *testing.T) *repositories.Store {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, repositories.AutoMigrate(db))

	store := repositories.NewPostgresStore(db)
	t.Cleanup(func() { _ = store.Close(context.Background()) })
	return store
}

// SeedUser stores a user with the given id and username.
func SeedUser(t *testing.T, store *repositories.Store, id, username string) *models.User {
	t.Helper()
	u := models.NewUser(username)
	u.ID = id
	require.NoError(t, store.Users.Create(context.Background(), u))
	return u
}

// SeedPost stores a post owned by ownerID and records it on the owner.
func SeedPost(t *testing.T, store *repositories.Store, ownerID string) *models.Post {
	t.Helper()
	ctx := context.Background()
	post := models.NewPost(ownerID, "caption", []models.MediaRef{{BlobID: "blob-" + models.NewID(), URL: "/x"}})
	require.NoError(t, store.Posts.Create(ctx, post))
	_, err := store.Users.AddToSet(ctx, ownerID, models.UserPosts, post.ID)
	require.NoError(t, err)
	return post
}

// Event is one delivery captured by Recorder.
type Event struct {
	Recipient string
	Name      string
	Payload   any
}

// Recorder is a realtime notifier that keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Notify(_ context.Context, recipientID, event string, payload any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Event{Recipient: recipientID, Name: event, Payload: payload})
}

// Named returns the events with the given name, in delivery order.
func (r *Recorder) Named(name string) []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []Event
	for _, e := range r.events {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

// MemBlobs is an in-memory blob store.
type MemBlobs struct {
	mu      sync.Mutex
	blobs   map[string][]byte
	next    int
	Deleted []string
	// FailUpload makes every Upload fail when set.
	FailUpload error
}

func NewMemBlobs() *MemBlobs {
	return &MemBlobs{blobs: map[string][]byte{}}
}

func (m *MemBlobs) Upload(_ context.Context, data []byte, filename, _ string, folder string) (blobstore.Blob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailUpload != nil {
		return blobstore.Blob{}, m.FailUpload
	}
	m.next++
	id := fmt.Sprintf("%s/%d-%s", folder, m.next, filename)
	m.blobs[id] = data
	return blobstore.Blob{ID: id, URL: "/blobs/" + id}, nil
}

func (m *MemBlobs) Delete(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Deleted = append(m.Deleted, id)
	if _, ok := m.blobs[id]; !ok {
		return false, nil
	}
	delete(m.blobs, id)
	return true, nil
}

// Len reports how many blobs are stored.
func (m *MemBlobs) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.blobs)
}
