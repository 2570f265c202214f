package notification

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Broadcaster fans created notifications out to live SSE streams.
type Broadcaster interface {
	Publish(ctx context.Context, n *Notification) error
	Subscribe(ctx context.Context, userID string) (<-chan *Notification, error)
}

// Channel returns the Redis pub/sub channel of a user.
func Channel(userID string) string {
	return "notifications:" + userID
}

// RedisBroadcaster implements Broadcaster over Redis pub/sub.
type RedisBroadcaster struct {
	client *redis.Client
}

func NewRedisBroadcaster(client *redis.Client) *RedisBroadcaster {
	return &RedisBroadcaster{client: client}
}

func (b *RedisBroadcaster) Publish(ctx context.Context, n *Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}
	if err := b.client.Publish(ctx, Channel(n.UserID), data).Err(); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}

// Subscribe streams the user's notifications until ctx is cancelled.
func (b *RedisBroadcaster) Subscribe(ctx context.Context, userID string) (<-chan *Notification, error) {
	channel := Channel(userID)
	pubsub := b.client.Subscribe(ctx, channel)
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	out := make(chan *Notification, 16)
	go func() {
		defer close(out)
		defer pubsub.Close()

		msgs := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var n Notification
				if err := json.Unmarshal([]byte(msg.Payload), &n); err != nil {
					log.Warn().Err(err).Str("channel", channel).Msg("dropping malformed notification")
					continue
				}
				select {
				case out <- &n:
				default:
					log.Warn().Str("channel", channel).Str("notification_id", n.ID).Msg("subscriber buffer full, skipping notification")
				}
			}
		}
	}()

	return out, nil
}
