// Package queue publishes seat events to RabbitMQ so downstream consumers
// (reporting, notifications) see every ledger change. Publishing is
// best-effort: failures are logged and never reach the caller's command.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"event-seating/internal/realtime"
	"event-seating/pkg/utils"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// Publisher forwards realtime events to the broker.
type Publisher interface {
	Publish(ctx context.Context, ev realtime.Event)
	Close() error
}

const (
	minRedialBackoff = time.Second
	maxRedialBackoff = 30 * time.Second
)

// NewPublisher dials the broker and declares the topic exchange. An empty
// URL or an unreachable broker yields a Noop publisher.
func NewPublisher(config utils.AMQPConfig, log *zap.Logger) Publisher {
	log = log.With(zap.String("publisher", "amqp"))
	if config.URL == "" {
		return Noop{}
	}

	p, err := newAMQPPublisher(config.Exchange, func() (*link, error) { return dial(config, log) }, log)
	if err != nil {
		log.Warn("RabbitMQ unavailable, seat events will not be published", zap.Error(err))
		return Noop{}
	}
	return p
}

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
	Close() error
}

// link is one broker connection and its publishing channel.
type link struct {
	conn io.Closer
	ch   channel
}

func (l *link) close() {
	_ = l.ch.Close()
	_ = l.conn.Close()
}

type amqpPublisher struct {
	mu       sync.Mutex
	connect  func() (*link, error)
	link     *link
	exchange string
	backoff  time.Duration
	nextDial time.Time
	now      func() time.Time
	log      *zap.Logger
}

func newAMQPPublisher(exchange string, connect func() (*link, error), log *zap.Logger) (*amqpPublisher, error) {
	l, err := connect()
	if err != nil {
		return nil, err
	}
	return &amqpPublisher{
		connect:  connect,
		link:     l,
		exchange: exchange,
		backoff:  minRedialBackoff,
		now:      time.Now,
		log:      log,
	}, nil
}

func dial(config utils.AMQPConfig, log *zap.Logger) (*link, error) {
	conn, err := amqp.Dial(config.URL)
	if err != nil {
		return nil, fmt.Errorf("dial broker: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(
		config.Exchange, // name
		"topic",         // kind
		true,            // durable
		false,           // autoDelete
		false,           // internal
		false,           // noWait
		nil,             // args
	); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", config.Exchange, err)
	}

	log.Info("RabbitMQ publisher ready", zap.String("exchange", config.Exchange))
	return &link{conn: conn, ch: ch}, nil
}

// Publish routes ev by its kind, e.g. "seat_held". A closed connection is
// redialled once per call, no more often than the current backoff allows.
func (p *amqpPublisher) Publish(ctx context.Context, ev realtime.Event) {
	body, err := json.Marshal(ev)
	if err != nil {
		p.log.Warn("Failed to encode event", zap.Error(err))
		return
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	key := string(ev.Event)

	// amqp channels are not safe for concurrent publishes
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.link == nil || p.link.ch.IsClosed() {
		if err := p.redial(); err != nil {
			p.log.Warn("Dropping event, broker unavailable", zap.String("event", key), zap.Error(err))
			return
		}
	}

	err = p.link.ch.PublishWithContext(ctx, p.exchange, key, false, false, msg)
	if errors.Is(err, amqp.ErrClosed) {
		if err = p.redial(); err == nil {
			err = p.link.ch.PublishWithContext(ctx, p.exchange, key, false, false, msg)
		}
	}
	if err != nil {
		p.log.Warn("Failed to publish event",
			zap.String("event", key),
			zap.Error(err),
		)
	}
}

var errRedialBackoff = errors.New("waiting to redial broker")

// redial replaces the current link. Failures double the wait before the
// next attempt.
func (p *amqpPublisher) redial() error {
	if p.link != nil {
		p.link.close()
		p.link = nil
	}

	now := p.now()
	if now.Before(p.nextDial) {
		return errRedialBackoff
	}

	l, err := p.connect()
	if err != nil {
		p.nextDial = now.Add(p.backoff)
		p.backoff = min(p.backoff*2, maxRedialBackoff)
		return err
	}

	p.log.Info("Reconnected to RabbitMQ")
	p.link = l
	p.backoff = minRedialBackoff
	p.nextDial = time.Time{}
	return nil
}

func (p *amqpPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.link == nil {
		return nil
	}
	if err := p.link.ch.Close(); err != nil {
		p.log.Warn("Failed to close channel", zap.Error(err))
	}
	err := p.link.conn.Close()
	p.link = nil
	return err
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, realtime.Event) {}
func (Noop) Close() error                             { return nil }
