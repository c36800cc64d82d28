// Package realtime pushes events to connected clients after a change has
// been committed. Delivery is fire-and-forget: failures are logged and counted
// but never returned to the caller.
package realtime

import (
	"context"
	"encoding/json"
	"time"
)

const (
	EventNotificationNew     = "notification:new"
	EventNotificationRemoved = "notification:removed"
	EventNotificationRead    = "notification:read"
	EventNotificationReadAll = "notification:read_all"
	EventLikeToggled         = "like:toggled"
	EventFollowToggled       = "follow:toggled"
	EventCommentNew          = "comment:new"
	EventCommentDeleted      = "comment:deleted"
	EventMessageNew          = "message:new"
	EventMessageDeleted      = "message:deleted"
	EventPostDeleted         = "post:deleted"
)

type Notifier interface {
	Notify(ctx context.Context, recipientID, event string, payload any)
}

// Envelope is the wire form of one event.
type Envelope struct {
	Event     string          `json:"event"`
	Recipient string          `json:"recipient"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	SentAt    time.Time       `json:"sent_at"`
}

func newEnvelope(recipientID, event string, payload any) (Envelope, error) {
	env := Envelope{Event: event, Recipient: recipientID, SentAt: time.Now().UTC()}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return env, err
		}
		env.Payload = raw
	}
	return env, nil
}

type Noop struct{}

func (Noop) Notify(context.Context, string, string, any) {}

// Multi fans one event out to every notifier.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, recipientID, event string, payload any) {
	for _, n := range m {
		n.Notify(ctx, recipientID, event, payload)
	}
}
