package events

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher delivers ticket-created events to the triage worker.
type Publisher interface {
	PublishTicketCreated(ctx context.Context, event TicketCreatedEvent) error
}

// Handler consumes a ticket-created event.
type Handler func(ctx context.Context, event TicketCreatedEvent) error

// AMQPPublisher publishes events onto a durable RabbitMQ queue.
type AMQPPublisher struct {
	channel *amqp.Channel
	queue   string
}

// NewAMQPPublisher declares the queue and returns a publisher bound to it.
func NewAMQPPublisher(conn *amqp.Connection, queue string) (*AMQPPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}
	return &AMQPPublisher{channel: ch, queue: queue}, nil
}

// PublishTicketCreated sends the event as a persistent JSON message.
func (p *AMQPPublisher) PublishTicketCreated(ctx context.Context, event TicketCreatedEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return p.channel.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Type:         TicketCreated,
		Body:         body,
	})
}

// Close releases the channel.
func (p *AMQPPublisher) Close() {
	if p != nil && p.channel != nil {
		_ = p.channel.Close()
	}
}

// InProcessPublisher invokes the handler synchronously in the API process.
// Used in development and tests when no broker is configured; the handler's
// outcome is logged and never surfaced to the HTTP caller.
type InProcessPublisher struct {
	handler Handler
	logger  *zap.Logger
}

// NewInProcessPublisher wraps a handler as a Publisher.
func NewInProcessPublisher(handler Handler, logger *zap.Logger) *InProcessPublisher {
	return &InProcessPublisher{handler: handler, logger: logger}
}

// PublishTicketCreated runs the handler inline.
func (p *InProcessPublisher) PublishTicketCreated(ctx context.Context, event TicketCreatedEvent) error {
	if p.handler == nil {
		return nil
	}
	if err := p.handler(ctx, event); err != nil {
		p.logger.Error("ticket-created handler failed",
			zap.String("ticket_id", event.TicketID), zap.Error(err))
	}
	return nil
}
