package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// SendTestMessage publishes payload as JSON to the consumed queue through the
// default exchange. It is meant for smoke tests of a running consumer.
func (c *Consumer) SendTestMessage(ctx context.Context, payload any) error {
	c.mu.RLock()
	state, ch := c.state, c.ch
	c.mu.RUnlock()

	if state == StateStopped {
		return ErrStopped
	}
	if state != StateConnected || ch == nil || ch.IsClosed() {
		return ErrNotConnected
	}

	var body []byte
	switch p := payload.(type) {
	case json.RawMessage:
		body = p
	case []byte:
		body = p
	default:
		encoded, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal test message: %w", err)
		}
		body = encoded
	}

	err := ch.PublishWithContext(
		ctx,
		"",      // default exchange
		c.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    uuid.NewString(),
			Timestamp:    time.Now().UTC(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish test message to %s: %w", c.queue, err)
	}
	c.log.WithField("bytes", len(body)).Info("test message published")
	return nil
}
