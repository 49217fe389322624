package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// dialTimeout bounds the TCP connect and the AMQP handshake.
	dialTimeout = 2 * time.Second
	// redialAfter is how long a failed dial keeps the publisher offline.
	redialAfter = 5 * time.Second
)

// ErrNotConnected is returned by Publish while the publisher waits to
// redial after a failed connection attempt.
var ErrNotConnected = errors.New("rabbitmq: not connected")

// Publisher publishes ReservationEvents to a durable queue through the
// default exchange.  The connection is opened lazily and re-opened after
// the broker closes it.  A failed dial is not retried for redialAfter, so
// writes do not pile up behind an unreachable broker.  Publishing never
// panics; errors are logged and returned so the caller can ignore them
// without interrupting the request.
type Publisher struct {
	url   string
	queue string
	log   *slog.Logger
	dial  func(ctx context.Context, url string) (*amqp.Connection, error)

	mu      sync.Mutex
	conn    *amqp.Connection
	ch      *amqp.Channel
	retryAt time.Time
}

// NewPublisher returns a publisher for the given broker URL and queue.
func NewPublisher(url, queue string, logger *slog.Logger) *Publisher {
	return &Publisher{url: url, queue: queue, log: logger, dial: dialBroker}
}

// dialBroker opens a connection whose connect and handshake end at the
// earlier of ctx's deadline and dialTimeout.
func dialBroker(ctx context.Context, url string) (*amqp.Connection, error) {
	deadline := time.Now().Add(dialTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	return amqp.DialConfig(url, amqp.Config{
		Locale: "en_US",
		Dial: func(network, addr string) (net.Conn, error) {
			d := net.Dialer{Deadline: deadline}
			conn, err := d.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			if err := conn.SetDeadline(deadline); err != nil {
				_ = conn.Close()
				return nil, err
			}
			return conn, nil
		},
	})
}

// channel returns an open channel, dialing and declaring the queue when
// needed.  Callers must hold p.mu.
func (p *Publisher) channel(ctx context.Context) (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() {
		return p.ch, nil
	}
	if p.conn == nil || p.conn.IsClosed() {
		if time.Now().Before(p.retryAt) {
			return nil, ErrNotConnected
		}
		conn, err := p.dial(ctx, p.url)
		if err != nil {
			p.retryAt = time.Now().Add(redialAfter)
			return nil, fmt.Errorf("dial: %w", err)
		}
		p.conn = conn
		p.retryAt = time.Time{}
	}
	ch, err := p.conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("channel open: %w", err)
	}
	// Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(p.queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("queue declare: %w", err)
	}
	p.ch = ch
	return ch, nil
}

// Publish sends ev as a persistent JSON message.
func (p *Publisher) Publish(ctx context.Context, ev ReservationEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		p.log.Error("rabbitmq: marshal event failed", "error", err)
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel(ctx)
	if err != nil {
		p.log.Warn("rabbitmq: publisher not connected", "error", err, "event", ev.Type)
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    ev.ID,
		Type:         ev.Type,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", p.queue, false, false, pub); err != nil {
		p.log.Warn("rabbitmq: publish failed", "error", err, "event", ev.Type)
		_ = ch.Close()
		p.ch = nil
		return err
	}
	return nil
}

// Close releases the channel and connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		err := p.conn.Close()
		p.conn = nil
		return err
	}
	return nil
}
