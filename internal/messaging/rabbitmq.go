package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
)

const (
	ExchangeName = "medconnect.events"
	ExchangeType = "topic"
)

var errNacked = errors.New("broker did not acknowledge the message")

// Publisher sends domain events to the medconnect.events topic exchange with
// publisher confirms. The channel is reopened when the broker closes it.
type Publisher struct {
	url      string
	exchange string

	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
}

func NewPublisher(rabbitmqURL string) (*Publisher, error) {
	p := &Publisher{url: rabbitmqURL, exchange: ExchangeName}
	if err := p.connect(); err != nil {
		return nil, err
	}
	log.Info().Str("exchange", p.exchange).Msg("connected to RabbitMQ")
	return p, nil
}

// connect dials and prepares a confirm-mode channel. Caller holds mu or owns p.
func (p *Publisher) connect() error {
	log.Info().Str("url", maskPassword(p.url)).Msg("connecting to RabbitMQ")

	conn, err := amqp.Dial(p.url)
	if err != nil {
		return fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(p.exchange, ExchangeType, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to declare exchange: %w", err)
	}
	if err := ch.Confirm(false); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to enable publisher confirms: %w", err)
	}

	p.conn, p.channel = conn, ch
	return nil
}

func (p *Publisher) ensureChannel() error {
	if p.channel != nil && !p.channel.IsClosed() {
		return nil
	}
	log.Warn().Msg("RabbitMQ channel closed, reconnecting")
	p.closeLocked()
	return p.connect()
}

// Publish sends eventData as a persistent JSON message carrying the caller's
// trace context, and waits for the broker confirm.
func (p *Publisher) Publish(ctx context.Context, routingKey string, eventData interface{}) error {
	if p == nil {
		log.Warn().Str("routing_key", routingKey).Msg("RabbitMQ publisher not initialized, skipping event")
		return nil
	}

	body, err := json.Marshal(eventData)
	if err != nil {
		return fmt.Errorf("failed to marshal event data: %w", err)
	}
	headers := amqp.Table{}
	otel.GetTextMapPropagator().Inject(ctx, headerCarrier(headers))

	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		MessageId:    uuid.NewString(),
		Type:         routingKey,
		Headers:      headers,
	}

	p.mu.Lock()
	if err := p.ensureChannel(); err != nil {
		p.mu.Unlock()
		return err
	}
	confirm, err := p.channel.PublishWithDeferredConfirmWithContext(ctx, p.exchange, routingKey, false, false, msg)
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to publish event to %s: %w", routingKey, err)
	}

	acked, err := confirm.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to confirm event %s: %w", routingKey, err)
	}
	if !acked {
		return fmt.Errorf("event %s: %w", routingKey, errNacked)
	}

	log.Debug().Str("routing_key", routingKey).Str("message_id", msg.MessageId).Msg("published event")
	return nil
}

func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.closeLocked()
}

func (p *Publisher) closeLocked() error {
	if p.channel != nil && !p.channel.IsClosed() {
		if err := p.channel.Close(); err != nil {
			log.Error().Err(err).Msg("error closing RabbitMQ channel")
		}
	}
	p.channel = nil
	var err error
	if p.conn != nil && !p.conn.IsClosed() {
		err = p.conn.Close()
	}
	p.conn = nil
	return err
}

// headerCarrier lets the OpenTelemetry propagator write into AMQP headers.
type headerCarrier amqp.Table

func (c headerCarrier) Get(key string) string {
	v, _ := c[key].(string)
	return v
}

func (c headerCarrier) Set(key, value string) {
	c[key] = value
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, 0, len(c))
	for k := range c {
		keys = append(keys, k)
	}
	return keys
}

func maskPassword(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "amqp://***"
	}
	if u.User != nil {
		u.User = url.UserPassword(u.User.Username(), "***")
	}
	return u.String()
}
