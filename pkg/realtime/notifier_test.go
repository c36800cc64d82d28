package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"firebase.google.com/go/v4/messaging"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisNotifierPublishesEnvelope(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer func() { _ = rdb.Close() }()

	ctx := context.Background()
	sub := rdb.Subscribe(ctx, UserChannel("u1"))
	defer func() { _ = sub.Close() }()
	_, err = sub.Receive(ctx)
	require.NoError(t, err)

	NewRedisNotifier(rdb).Notify(ctx, "u1", EventNotificationNew, map[string]string{"id": "n1"})

	select {
	case msg := <-sub.Channel():
		var env Envelope
		require.NoError(t, json.Unmarshal([]byte(msg.Payload), &env))
		assert.Equal(t, EventNotificationNew, env.Event)
		assert.Equal(t, "u1", env.Recipient)
		assert.JSONEq(t, `{"id":"n1"}`, string(env.Payload))
	case <-time.After(time.Second):
		t.Fatal("no message published")
	}
}

func TestRedisNotifierSwallowsErrors(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	defer func() { _ = rdb.Close() }()
	mr.Close()

	assert.NotPanics(t, func() {
		NewRedisNotifier(rdb).Notify(context.Background(), "u1", EventLikeToggled, nil)
	})
}

type fakeSender struct {
	sent []*messaging.Message
	err  error
}

func (f *fakeSender) Send(_ context.Context, msg *messaging.Message) (string, error) {
	f.sent = append(f.sent, msg)
	return "id", f.err
}

func TestFCMNotifierTargetsUserTopic(t *testing.T) {
	sender := &fakeSender{}
	n := &FCMNotifier{client: sender}

	n.Notify(context.Background(), "u2", EventFollowToggled, map[string]bool{"active": true})

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "user-u2", sender.sent[0].Topic)
	assert.Equal(t, EventFollowToggled, sender.sent[0].Data["event"])
	assert.JSONEq(t, `{"active":true}`, sender.sent[0].Data["payload"])

	sender.err = errors.New("quota")
	assert.NotPanics(t, func() { n.Notify(context.Background(), "u2", EventFollowToggled, nil) })
}

type recorder struct{ events []string }

func (r *recorder) Notify(_ context.Context, recipientID, event string, _ any) {
	r.events = append(r.events, recipientID+":"+event)
}

func TestMultiFansOut(t *testing.T) {
	a, b := &recorder{}, &recorder{}
	Multi{a, Noop{}, b}.Notify(context.Background(), "u3", EventPostDeleted, nil)

	assert.Equal(t, []string{"u3:post:deleted"}, a.events)
	assert.Equal(t, []string{"u3:post:deleted"}, b.events)
}
