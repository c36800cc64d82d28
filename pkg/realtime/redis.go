package realtime

import (
	"context"
	"encoding/json"

	"github.com/Blunt0FF/Krealgram-sub001/pkg/logger"
	"github.com/Blunt0FF/Krealgram-sub001/pkg/metrics"
	"github.com/redis/go-redis/v9"
)

// UserChannel is the pub/sub channel a socket gateway subscribes to for one user.
func UserChannel(userID string) string {
	return "realtime:user:" + userID
}

type RedisNotifier struct {
	rdb *redis.Client
}

func NewRedisNotifier(rdb *redis.Client) *RedisNotifier {
	return &RedisNotifier{rdb: rdb}
}

func (n *RedisNotifier) Notify(ctx context.Context, recipientID, event string, payload any) {
	log := logger.Ctx(ctx)
	env, err := newEnvelope(recipientID, event, payload)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("realtime: encode payload")
		metrics.RealtimeFailures.WithLabelValues("redis").Inc()
		return
	}
	data, err := json.Marshal(env)
	if err != nil {
		log.Error().Err(err).Str("event", event).Msg("realtime: encode envelope")
		metrics.RealtimeFailures.WithLabelValues("redis").Inc()
		return
	}
	if err := n.rdb.Publish(context.WithoutCancel(ctx), UserChannel(recipientID), data).Err(); err != nil {
		log.Warn().Err(err).Str("event", event).Str(logger.FieldUserID, recipientID).Msg("realtime: redis publish failed")
		metrics.RealtimeFailures.WithLabelValues("redis").Inc()
	}
}
