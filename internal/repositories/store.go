package repositories

import (
	"context"
	"errors"
)

// ErrDuplicate is returned when an insert violates a unique constraint.
var ErrDuplicate = errors.New("duplicate key")

// TxManager runs fn as one all-or-nothing unit. Repositories called with the ctx
// handed to fn take part in the transaction. A nested call joins the outer
// transaction instead of opening a new one. Any error returned by fn aborts the
// transaction before it is returned; commit failures are reported as models.ErrTransient.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Store bundles the repositories of one backend.
type Store struct {
	Tx            TxManager
	Users         UserRepository
	Posts         PostRepository
	Comments      CommentRepository
	Conversations ConversationRepository
	Messages      MessageRepository
	Relations     RelationRepository
	Notifications NotificationRepository

	close func(ctx context.Context) error
}

// Close releases the backend connection.
func (s *Store) Close(ctx context.Context) error {
	if s.close == nil {
		return nil
	}
	return s.close(ctx)
}

// addToSet appends v unless present. It reports whether the slice changed.
func addToSet(list []string, v string) ([]string, bool) {
	for _, item := range list {
		if item == v {
			return list, false
		}
	}
	return append(list, v), true
}

// pull removes every occurrence of v. It reports whether the slice changed.
func pull(list []string, v string) ([]string, bool) {
	out := list[:0]
	changed := false
	for _, item := range list {
		if item == v {
			changed = true
			continue
		}
		out = append(out, item)
	}
	if out == nil {
		out = []string{}
	}
	return out, changed
}
