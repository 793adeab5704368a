package events

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Consumer reads ticket-created events from the queue and feeds the handler.
type Consumer struct {
	channel *amqp.Channel
	queue   string
	logger  *zap.Logger
}

// NewConsumer declares the queue and prepares a consumer.
func NewConsumer(conn *amqp.Connection, queue string, logger *zap.Logger) (*Consumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	if err := ch.Qos(1, 0, false); err != nil {
		ch.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}
	return &Consumer{channel: ch, queue: queue, logger: logger}, nil
}

// Run consumes messages until the context is cancelled. Every delivery is
// acked after the handler returns: a failed run has already exhausted its
// internal step retries, so requeueing would only repeat the failure.
func (c *Consumer) Run(ctx context.Context, handler Handler) error {
	deliveries, err := c.channel.Consume(c.queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume %s: %w", c.queue, err)
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-deliveries:
			if !ok {
				return fmt.Errorf("delivery channel closed")
			}
			var event TicketCreatedEvent
			if err := json.Unmarshal(delivery.Body, &event); err != nil {
				c.logger.Error("malformed event payload", zap.Error(err))
				_ = delivery.Nack(false, false)
				continue
			}
			if err := handler(ctx, event); err != nil {
				c.logger.Error("triage run failed",
					zap.String("ticket_id", event.TicketID), zap.Error(err))
			}
			_ = delivery.Ack(false)
		}
	}
}

// Close releases the channel.
func (c *Consumer) Close() {
	if c != nil && c.channel != nil {
		_ = c.channel.Close()
	}
}
