package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher handles message publishing to RabbitMQ
type Publisher struct {
	conn    *Connection
	channel *amqp.Channel
	logger  *zap.Logger
}

// NewPublisher creates a new RabbitMQ publisher. It declares both topic
// exchanges the worker writes to: the packet exchange for watchdog
// retriggers, and the status exchange for downstream consumers.
func NewPublisher(conn *Connection, exchanges []string, logger *zap.Logger) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	for _, exchange := range exchanges {
		err = ch.ExchangeDeclare(
			exchange,
			"topic",
			true,  // durable
			false, // auto-deleted
			false, // internal
			false, // no-wait
			nil,   // arguments
		)
		if err != nil {
			ch.Close()
			return nil, fmt.Errorf("failed to declare exchange %q: %w", exchange, err)
		}
	}

	return &Publisher{
		conn:    conn,
		channel: ch,
		logger:  logger,
	}, nil
}

// PacketNotification tells the worker a packet is waiting in the inbox.
// Producers publish one on packet creation; the watchdog publishes one when
// it rewrites a stranded packet.
type PacketNotification struct {
	PacketKey       string `json:"packet_key"`
	RequestID       string `json:"request_id,omitempty"`
	RetriggeredFrom string `json:"retriggered_from,omitempty"`
}

// StatusUpdatedEvent announces that a well's outgoing status document was
// replaced, so dashboard tabs can refresh without polling.
type StatusUpdatedEvent struct {
	WellName           string     `json:"well_name"`
	PacketID           string     `json:"packet_id"`
	CurrentLevelInches float64    `json:"current_level_inches"`
	FlowRateDays       float64    `json:"flow_rate_days"`
	NextPullTime       *time.Time `json:"next_pull_time,omitempty"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// PublishPacketNotification publishes a packet notification, typically a
// watchdog retrigger.
func (p *Publisher) PublishPacketNotification(ctx context.Context, exchange, routingKey string, n PacketNotification) error {
	if err := p.publish(ctx, exchange, routingKey, n); err != nil {
		return err
	}

	p.logger.Debug("published packet notification",
		zap.String("routing_key", routingKey),
		zap.String("packet_key", n.PacketKey),
	)

	return nil
}

// PublishStatusUpdated publishes a well status change event.
func (p *Publisher) PublishStatusUpdated(ctx context.Context, exchange, routingKey string, event StatusUpdatedEvent) error {
	if err := p.publish(ctx, exchange, routingKey, event); err != nil {
		return err
	}

	p.logger.Debug("published status updated event",
		zap.String("routing_key", routingKey),
		zap.String("well", event.WellName),
	)

	return nil
}

func (p *Publisher) publish(ctx context.Context, exchange, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.channel.PublishWithContext(
		ctx,
		exchange,
		routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		},
	)

	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// Close closes the publisher channel
func (p *Publisher) Close() error {
	if p.channel != nil {
		return p.channel.Close()
	}
	return nil
}
