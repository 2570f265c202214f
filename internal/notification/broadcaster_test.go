package notification

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRedisBroadcaster_DeliversToSubscriber(t *testing.T) {
	client := newTestRedis(t)
	b := NewRedisBroadcaster(client)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch, err := b.Subscribe(ctx, "u1")
	require.NoError(t, err)

	require.NoError(t, b.Publish(ctx, &Notification{ID: "n1", UserID: "u1", Type: TypeNewMessage, Title: "Hi"}))
	require.NoError(t, b.Publish(ctx, &Notification{ID: "n2", UserID: "u2", Type: TypeNewMessage, Title: "Not yours"}))

	select {
	case n := <-ch:
		assert.Equal(t, "n1", n.ID)
		assert.Equal(t, "Hi", n.Title)
	case <-time.After(2 * time.Second):
		t.Fatal("notification not delivered")
	}

	select {
	case n := <-ch:
		t.Fatalf("unexpected notification for another user: %+v", n)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestRedisBroadcaster_ClosesOnCancel(t *testing.T) {
	client := newTestRedis(t)
	b := NewRedisBroadcaster(client)

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := b.Subscribe(ctx, "u1")
	require.NoError(t, err)

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(2 * time.Second):
		t.Fatal("subscription channel not closed after cancel")
	}
}

func TestChannel(t *testing.T) {
	assert.Equal(t, "notifications:abc", Channel("abc"))
}
