// Package messaging publishes invoice domain events to RabbitMQ.
package messaging

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/garyjia/invoice-desk/internal/application/port"
	"github.com/garyjia/invoice-desk/internal/domain/event"
)

// Config holds AMQP connection settings
type Config struct {
	URL            string
	Exchange       string
	PublishTimeout time.Duration
}

// channel is the subset of *amqp.Channel the publisher uses
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// AMQPPublisher sends events to a topic exchange, routed by event type
type AMQPPublisher struct {
	cfg    Config
	conn   *amqp.Connection
	ch     channel
	mu     sync.Mutex
	logger *zap.Logger
}

// NewAMQPPublisher dials the broker and declares the exchange
func NewAMQPPublisher(cfg Config, logger *zap.Logger) (*AMQPPublisher, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	p, err := newPublisher(cfg, ch, logger)
	if err != nil {
		conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

func newPublisher(cfg Config, ch channel, logger *zap.Logger) (*AMQPPublisher, error) {
	if cfg.PublishTimeout <= 0 {
		cfg.PublishTimeout = 5 * time.Second
	}

	err := ch.ExchangeDeclare(
		cfg.Exchange, // name
		"topic",      // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &AMQPPublisher{cfg: cfg, ch: ch, logger: logger}, nil
}

// Publish implements port.EventPublisher
func (p *AMQPPublisher) Publish(ctx context.Context, e *event.Event) error {
	body, err := e.Marshal()
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.PublishTimeout)
	defer cancel()

	// amqp channels are not safe for concurrent publishes
	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.PublishWithContext(ctx,
		p.cfg.Exchange,  // exchange
		e.Type.String(), // routing key
		false,           // mandatory
		false,           // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    e.ID,
			Timestamp:    e.Timestamp,
			Type:         e.Type.String(),
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publish message: %w", err)
	}

	p.logger.Debug("Event published",
		zap.String("type", e.Type.String()),
		zap.String("invoice_id", e.InvoiceID),
		zap.String("exchange", p.cfg.Exchange))
	return nil
}

// Close closes the channel and connection
func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var firstErr error
	if p.ch != nil {
		if err := p.ch.Close(); err != nil {
			firstErr = err
		}
	}
	if p.conn != nil {
		if err := p.conn.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// NopPublisher drops events. It is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, e *event.Event) error { return nil }
func (NopPublisher) Close() error                                      { return nil }

var (
	_ port.EventPublisher = (*AMQPPublisher)(nil)
	_ port.EventPublisher = NopPublisher{}
)
