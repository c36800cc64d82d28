package realtime

import (
	"context"

	"firebase.google.com/go/v4/messaging"
	"github.com/Blunt0FF/Krealgram-sub001/pkg/logger"
	"github.com/Blunt0FF/Krealgram-sub001/pkg/metrics"
)

// UserTopic is the FCM topic a user's devices subscribe to.
func UserTopic(userID string) string {
	return "user-" + userID
}

type messageSender interface {
	Send(ctx context.Context, msg *messaging.Message) (string, error)
}

// FCMNotifier sends data-only messages to the recipient's topic.
type FCMNotifier struct {
	client messageSender
}

func NewFCMNotifier(client *messaging.Client) *FCMNotifier {
	return &FCMNotifier{client: client}
}

func (n *FCMNotifier) Notify(ctx context.Context, recipientID, event string, payload any) {
	log := logger.Ctx(ctx)
	env, err := newEnvelope(recipientID, event, payload)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("realtime: encode payload")
		metrics.RealtimeFailures.WithLabelValues("fcm").Inc()
		return
	}
	msg := &messaging.Message{
		Topic: UserTopic(recipientID),
		Data: map[string]string{
			"event":   env.Event,
			"payload": string(env.Payload),
		},
	}
	if _, err := n.client.Send(context.WithoutCancel(ctx), msg); err != nil {
		log.Warn().Err(err).Str("event", event).Str(logger.FieldUserID, recipientID).Msg("realtime: fcm send failed")
		metrics.RealtimeFailures.WithLabelValues("fcm").Inc()
	}
}
