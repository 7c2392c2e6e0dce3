package events

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/dvloznov/family-ledger/internal/logger"
	"github.com/dvloznov/family-ledger/internal/pipeline"
	"github.com/rabbitmq/amqp091-go"
)

const (
	publishTimeout = 5 * time.Second
	maxAttempts    = 3
)

// channel is the subset of *amqp091.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// Publisher announces committed imports on a direct exchange.
type Publisher struct {
	url          string
	exchangeName string
	dial         func(url, exchangeName string) (channel, io.Closer, error)
	sleep        func(time.Duration)

	mu      sync.Mutex
	conn    io.Closer
	channel channel
}

// NewPublisher dials url and declares a durable direct exchange.
func NewPublisher(url, exchangeName string) (*Publisher, error) {
	ch, conn, err := dialExchange(url, exchangeName)
	if err != nil {
		return nil, err
	}

	return &Publisher{
		url:          url,
		exchangeName: exchangeName,
		dial:         dialExchange,
		sleep:        time.Sleep,
		conn:         conn,
		channel:      ch,
	}, nil
}

func dialExchange(url, exchangeName string) (channel, io.Closer, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial AMQP: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		exchangeName, // name
		"direct",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, nil, fmt.Errorf("declare exchange: %w", err)
	}

	return ch, conn, nil
}

// reconnect drops the current channel and connection and dials a fresh pair.
func (p *Publisher) reconnect() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.closeLocked()

	ch, conn, err := p.dial(p.url, p.exchangeName)
	if err != nil {
		return err
	}
	p.channel = ch
	p.conn = conn
	return nil
}

// Name implements pipeline.Hook.
func (p *Publisher) Name() string {
	return "amqp"
}

// OnCommit implements pipeline.Hook.
func (p *Publisher) OnCommit(ctx context.Context, receipt pipeline.CommitReceipt) error {
	body, err := NewImportCommitted(receipt).ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	msg := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    receipt.BatchID,
		Timestamp:    receipt.CommittedAt,
		Body:         body,
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			p.sleep(exponentialBackoff(attempt - 1))
			if lastErr = p.reconnect(); lastErr != nil {
				continue
			}
		}

		lastErr = p.publish(ctx, msg)
		if lastErr == nil {
			log := logger.FromContext(ctx)
			log.Info().
				Str("batch_id", receipt.BatchID).
				Int("count", receipt.Count()).
				Str("exchange", p.exchangeName).
				Msg("Published import committed message")
			return nil
		}
		if !isConnectionError(lastErr) {
			break
		}
	}

	return fmt.Errorf("publish message: %w", lastErr)
}

func (p *Publisher) publish(ctx context.Context, msg amqp091.Publishing) error {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	ch := p.channel
	p.mu.Unlock()
	if ch == nil {
		return amqp091.ErrClosed
	}

	return ch.PublishWithContext(
		ctx,
		p.exchangeName,            // exchange
		RoutingKeyImportCommitted, // routing key
		false,                     // mandatory
		false,                     // immediate
		msg,
	)
}

// Close closes the channel and the connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.closeLocked()
}

func (p *Publisher) closeLocked() error {
	if p.channel != nil {
		p.channel.Close()
		p.channel = nil
	}
	var err error
	if p.conn != nil {
		err = p.conn.Close()
		p.conn = nil
	}
	return err
}

// exponentialBackoff returns 1s, 2s, 4s ... capped at 30s.
func exponentialBackoff(attempt int) time.Duration {
	if attempt > 5 {
		attempt = 5
	}
	d := time.Duration(1<<uint(attempt)) * time.Second
	if d > 30*time.Second {
		return 30 * time.Second
	}
	return d
}

func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if err == amqp091.ErrClosed {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{"connection", "closed", "eof", "broken pipe", "reset by peer"} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

var _ pipeline.Hook = (*Publisher)(nil)
