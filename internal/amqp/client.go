package amqp

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rabbitmq/amqp091-go"

	applog "fintrack/internal/log"
)

// Circuit breaker states
const (
	StateClosed int32 = iota
	StateOpen
	StateHalfOpen
)

const (
	maxFailures    = 5
	openTimeout    = 30 * time.Second
	publishTimeout = 5 * time.Second
	maxBackoff     = 30 * time.Second
	maxReconnects  = 5
	dialTimeout    = 5 * time.Second
	heartbeat      = 10 * time.Second
)

// Client publishes and consumes ledger events on a direct exchange.
type Client struct {
	url          string
	exchangeName string
	queueName    string

	mu      sync.RWMutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	// dialMu serializes redials so one caller's fresh connection is not
	// torn down by another caller holding the old channel.
	dialMu sync.Mutex

	state        int32
	failureCount int64
	lastFailure  time.Time
}

func NewClient(url, exchangeName, queueName string) (*Client, error) {
	client := &Client{
		url:          url,
		exchangeName: exchangeName,
		queueName:    queueName,
	}

	if err := client.connect(); err != nil {
		return nil, err
	}

	return client, nil
}

func (c *Client) connect() error {
	conn, err := amqp091.DialConfig(c.url, amqp091.Config{
		Heartbeat: heartbeat,
		Locale:    "en_US",
		Dial:      amqp091.DefaultDial(dialTimeout),
	})
	if err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("open channel: %w", err)
	}

	if err := setup(channel, c.exchangeName, c.queueName); err != nil {
		channel.Close()
		conn.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.channel = channel
	c.mu.Unlock()

	return nil
}

func setup(ch *amqp091.Channel, exchangeName, queueName string) error {
	// Declare exchange
	err := ch.ExchangeDeclare(
		exchangeName, // name
		"direct",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	// Declare queue
	_, err = ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key is the queue name on a direct exchange
	err = ch.QueueBind(queueName, queueName, exchangeName, false, nil)
	if err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}

	return nil
}

// redial replaces the connection unless another caller already replaced
// stale. It makes exactly one dial attempt and never sleeps.
func (c *Client) redial(stale *amqp091.Channel) error {
	c.dialMu.Lock()
	defer c.dialMu.Unlock()

	if cur := c.currentChannel(); cur != nil && cur != stale {
		return nil
	}
	c.closeConn()
	return c.connect()
}

// reconnect redials with exponential backoff. Only the consumer loop uses
// it; publishers make a single redial attempt.
func (c *Client) reconnect(ctx context.Context, stale *amqp091.Channel) error {
	var lastErr error
	for attempt := 0; attempt < maxReconnects; attempt++ {
		if attempt > 0 {
			wait := exponentialBackoff(attempt - 1)
			slog.WarnContext(ctx, "Reconnecting to AMQP",
				applog.FieldComponent, applog.ComponentAMQP,
				"attempt", attempt,
				"backoff", wait)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}
		if lastErr = c.redial(stale); lastErr == nil {
			slog.InfoContext(ctx, "Reconnected to AMQP",
				applog.FieldComponent, applog.ComponentAMQP,
				"exchange", c.exchangeName)
			return nil
		}
	}
	return fmt.Errorf("reconnect after %d attempts: %w", maxReconnects, lastErr)
}

func (c *Client) currentChannel() *amqp091.Channel {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.channel
}

// exponentialBackoff returns 1s doubled per attempt, capped at 30s.
func exponentialBackoff(attempt int) time.Duration {
	if attempt >= 5 {
		return maxBackoff
	}
	d := time.Second << uint(attempt)
	if d > maxBackoff {
		return maxBackoff
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{
		"connection refused",
		"connection closed",
		"connection reset",
		"eof",
		"broken pipe",
		"use of closed network connection",
		"channel/connection is not open",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

func (c *Client) isCircuitOpen() bool {
	switch atomic.LoadInt32(&c.state) {
	case StateOpen:
		c.mu.RLock()
		last := c.lastFailure
		c.mu.RUnlock()
		if time.Since(last) > openTimeout {
			atomic.CompareAndSwapInt32(&c.state, StateOpen, StateHalfOpen)
			return false
		}
		return true
	default:
		return false
	}
}

func (c *Client) recordSuccess() {
	atomic.StoreInt64(&c.failureCount, 0)
	atomic.StoreInt32(&c.state, StateClosed)
}

func (c *Client) recordFailure() {
	n := atomic.AddInt64(&c.failureCount, 1)
	c.mu.Lock()
	c.lastFailure = time.Now()
	c.mu.Unlock()

	// A failed trial publish while half-open reopens immediately.
	if n >= maxFailures || atomic.LoadInt32(&c.state) == StateHalfOpen {
		atomic.StoreInt32(&c.state, StateOpen)
	}
}

// PublishTransactionEvent publishes a persistent JSON event. It fails fast
// while the circuit breaker is open. A connection error triggers one
// immediate redial and one retry; callers are never held for a backoff.
func (c *Client) PublishTransactionEvent(ctx context.Context, ev *TransactionEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.isCircuitOpen() {
		return fmt.Errorf("circuit breaker is open, dropping %s event", ev.Type)
	}

	body, err := ev.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	ch := c.currentChannel()
	err = c.publish(ctx, ch, body)
	if err != nil && isConnectionError(err) {
		if rerr := c.redial(ch); rerr != nil {
			err = fmt.Errorf("%w (redial: %v)", err, rerr)
		} else {
			err = c.publish(ctx, c.currentChannel(), body)
		}
	}
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("publish message: %w", err)
	}
	c.recordSuccess()

	fields := applog.NewFields().
		WithComponent(applog.ComponentAMQP).
		WithOperation(applog.OpPublish)
	slog.InfoContext(ctx, "Published ledger event",
		append(fields.ToSlice(),
			"type", ev.Type,
			"exchange", c.exchangeName,
			"queue", c.queueName)...)

	return nil
}

func (c *Client) publish(ctx context.Context, ch *amqp091.Channel, body []byte) error {
	if ch == nil {
		return amqp091.ErrClosed
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	return ch.PublishWithContext(
		ctx,
		c.exchangeName, // exchange
		c.queueName,    // routing key
		false,          // mandatory
		false,          // immediate
		amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    time.Now(),
			Body:         body,
		},
	)
}

// EventHandler processes one decoded event. Returning an error requeues it.
type EventHandler func(ctx context.Context, ev *TransactionEvent) error

// ConsumeEvents delivers events to handler until ctx is cancelled,
// reconnecting when the broker drops the channel.
func (c *Client) ConsumeEvents(ctx context.Context, handler EventHandler) error {
	for {
		ch := c.currentChannel()
		err := c.consumeOnce(ctx, ch, handler)
		if ctx.Err() != nil {
			slog.InfoContext(ctx, "Stopping message consumption",
				applog.FieldComponent, applog.ComponentAMQP,
				"reason", ctx.Err())
			return ctx.Err()
		}
		if !isConnectionError(err) {
			return err
		}
		slog.WarnContext(ctx, "Consumer lost connection",
			applog.FieldComponent, applog.ComponentAMQP,
			applog.FieldError, err)
		if err := c.reconnect(ctx, ch); err != nil {
			return err
		}
	}
}

func (c *Client) consumeOnce(ctx context.Context, ch *amqp091.Channel, handler EventHandler) error {
	if ch == nil {
		return amqp091.ErrClosed
	}

	msgs, err := ch.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack (we want manual ack)
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	slog.InfoContext(ctx, "Started consuming ledger events",
		applog.FieldComponent, applog.ComponentAMQP,
		"queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel: %w", amqp091.ErrClosed)
			}
			dispatch(ctx, delivery.Body, delivery, handler)
		}
	}
}

// acknowledger is the subset of a delivery the dispatch loop needs.
type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func dispatch(ctx context.Context, body []byte, ack acknowledger, handler EventHandler) {
	ev, err := TransactionEventFromJSON(body)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to unmarshal message", "error", err)
		ack.Nack(false, false) // reject and don't requeue
		return
	}

	if err := handler(ctx, ev); err != nil {
		slog.ErrorContext(ctx, "Failed to handle message", "error", err, "type", ev.Type)
		ack.Nack(false, true) // reject and requeue
		return
	}

	ack.Ack(false)
	slog.DebugContext(ctx, "Processed ledger event", "type", ev.Type)
}

func (c *Client) closeConn() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
}

func (c *Client) Close() error {
	c.closeConn()
	return nil
}
