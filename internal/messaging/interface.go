package messaging

import (
	"context"

	"github.com/rs/zerolog/log"
)

// PublisherInterface is implemented by the RabbitMQ publisher and test doubles.
type PublisherInterface interface {
	Publish(ctx context.Context, routingKey string, eventData interface{}) error
	Close() error
}

var _ PublisherInterface = (*Publisher)(nil)

// Emit publishes event and logs, rather than returns, a failure.
// Callers use it after their write has committed.
func Emit(ctx context.Context, pub PublisherInterface, routingKey string, event interface{}) {
	if pub == nil {
		return
	}
	if err := pub.Publish(ctx, routingKey, event); err != nil {
		log.Warn().Err(err).Str("routing_key", routingKey).Msg("failed to publish event")
	}
}
