package events

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/family-ledger/internal/domain"
	"github.com/dvloznov/family-ledger/internal/pipeline"
	"github.com/rabbitmq/amqp091-go"
	"github.com/shopspring/decimal"
)

type publishCall struct {
	exchange string
	key      string
	msg      amqp091.Publishing
}

type mockChannel struct {
	PublishFunc func(attempt int) error
	calls       []publishCall
	closed      bool
}

func (m *mockChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error {
	m.calls = append(m.calls, publishCall{exchange: exchange, key: key, msg: msg})
	if m.PublishFunc != nil {
		return m.PublishFunc(len(m.calls))
	}
	return nil
}

func (m *mockChannel) Close() error {
	m.closed = true
	return nil
}

type mockConn struct {
	closed int
}

func (m *mockConn) Close() error {
	m.closed++
	return nil
}

func newTestPublisher(ch *mockChannel) (*Publisher, *[]time.Duration) {
	var slept []time.Duration
	return &Publisher{
		channel:      ch,
		conn:         &mockConn{},
		exchangeName: "ledger",
		dial: func(url, exchangeName string) (channel, io.Closer, error) {
			ch.closed = false
			return ch, &mockConn{}, nil
		},
		sleep: func(d time.Duration) { slept = append(slept, d) },
	}, &slept
}

func testReceipt() pipeline.CommitReceipt {
	day := civil.Date{Year: 2024, Month: time.March, Day: 5}
	return pipeline.CommitReceipt{
		BatchID:     "batch-1",
		UserID:      "alice",
		AccountID:   "acc-1",
		AccountName: "Checking",
		Filename:    "march.pdf",
		Transactions: []domain.Transaction{
			{ID: "t1", Date: day, Amount: decimal.RequireFromString("1000"), Type: domain.Income},
			{ID: "t2", Date: day, Amount: decimal.RequireFromString("250.40"), Type: domain.Expense},
		},
		CommittedAt: time.Date(2024, 3, 6, 10, 0, 0, 0, time.UTC),
	}
}

func TestNewImportCommitted(t *testing.T) {
	msg := NewImportCommitted(testReceipt())

	if msg.Count != 2 {
		t.Errorf("Count = %d, want 2", msg.Count)
	}
	if !msg.Income.Equal(decimal.RequireFromString("1000")) {
		t.Errorf("Income = %s, want 1000", msg.Income)
	}
	if !msg.Expense.Equal(decimal.RequireFromString("250.40")) {
		t.Errorf("Expense = %s, want 250.40", msg.Expense)
	}
	if len(msg.TransactionIDs) != 2 || msg.TransactionIDs[0] != "t1" {
		t.Errorf("TransactionIDs = %v", msg.TransactionIDs)
	}
	if msg.UserID != "alice" {
		t.Errorf("UserID = %q, want alice", msg.UserID)
	}
}

func TestPublisher_OnCommit(t *testing.T) {
	ch := &mockChannel{}
	p, slept := newTestPublisher(ch)

	if err := p.OnCommit(context.Background(), testReceipt()); err != nil {
		t.Fatalf("OnCommit failed: %v", err)
	}
	if len(ch.calls) != 1 {
		t.Fatalf("published %d messages, want 1", len(ch.calls))
	}
	call := ch.calls[0]
	if call.exchange != "ledger" || call.key != RoutingKeyImportCommitted {
		t.Errorf("published to %s/%s", call.exchange, call.key)
	}
	if call.msg.DeliveryMode != amqp091.Persistent {
		t.Error("message should be persistent")
	}
	if call.msg.MessageId != "batch-1" {
		t.Errorf("MessageId = %q, want batch-1", call.msg.MessageId)
	}

	decoded, err := ImportCommittedFromJSON(call.msg.Body)
	if err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if decoded.BatchID != "batch-1" || decoded.Count != 2 {
		t.Errorf("decoded = %+v", decoded)
	}
	if len(*slept) != 0 {
		t.Errorf("unexpected backoff %v", *slept)
	}
}

func TestPublisher_RetriesConnectionErrors(t *testing.T) {
	ch := &mockChannel{
		PublishFunc: func(attempt int) error {
			if attempt < 3 {
				return errors.New("connection reset by peer")
			}
			return nil
		},
	}
	p, slept := newTestPublisher(ch)

	if err := p.OnCommit(context.Background(), testReceipt()); err != nil {
		t.Fatalf("OnCommit failed: %v", err)
	}
	if len(ch.calls) != 3 {
		t.Errorf("attempts = %d, want 3", len(ch.calls))
	}
	want := []time.Duration{time.Second, 2 * time.Second}
	if fmt.Sprint(*slept) != fmt.Sprint(want) {
		t.Errorf("backoff = %v, want %v", *slept, want)
	}
}

func TestPublisher_RedialsBeforeRetry(t *testing.T) {
	first := &mockChannel{PublishFunc: func(int) error { return amqp091.ErrClosed }}
	fresh := &mockChannel{}
	oldConn := &mockConn{}
	dials := 0

	p := &Publisher{
		url:          "amqp://localhost",
		exchangeName: "ledger",
		channel:      first,
		conn:         oldConn,
		dial: func(url, exchangeName string) (channel, io.Closer, error) {
			dials++
			if url != "amqp://localhost" || exchangeName != "ledger" {
				t.Errorf("dial(%q, %q)", url, exchangeName)
			}
			return fresh, &mockConn{}, nil
		},
		sleep: func(time.Duration) {},
	}

	if err := p.OnCommit(context.Background(), testReceipt()); err != nil {
		t.Fatalf("OnCommit failed: %v", err)
	}
	if dials != 1 {
		t.Errorf("dials = %d, want 1", dials)
	}
	if !first.closed || oldConn.closed != 1 {
		t.Error("stale channel and connection should be closed before redial")
	}
	if len(first.calls) != 1 || len(fresh.calls) != 1 {
		t.Errorf("calls = %d on stale channel, %d on fresh channel", len(first.calls), len(fresh.calls))
	}
}

func TestPublisher_DialFailureExhaustsAttempts(t *testing.T) {
	ch := &mockChannel{PublishFunc: func(int) error { return amqp091.ErrClosed }}
	dialErr := errors.New("dial AMQP: connection refused")
	dials := 0

	p := &Publisher{
		exchangeName: "ledger",
		channel:      ch,
		dial: func(string, string) (channel, io.Closer, error) {
			dials++
			return nil, nil, dialErr
		},
		sleep: func(time.Duration) {},
	}

	err := p.OnCommit(context.Background(), testReceipt())
	if !errors.Is(err, dialErr) {
		t.Errorf("error = %v, want %v", err, dialErr)
	}
	if dials != maxAttempts-1 {
		t.Errorf("dials = %d, want %d", dials, maxAttempts-1)
	}
	if len(ch.calls) != 1 {
		t.Errorf("calls = %d, want 1", len(ch.calls))
	}
}

func TestPublisher_GivesUp(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		attempts int
	}{
		{"connection error retried", amqp091.ErrClosed, maxAttempts},
		{"other error not retried", errors.New("exchange not found"), 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := &mockChannel{PublishFunc: func(int) error { return tt.err }}
			p, _ := newTestPublisher(ch)

			err := p.OnCommit(context.Background(), testReceipt())
			if !errors.Is(err, tt.err) {
				t.Errorf("error = %v, want %v", err, tt.err)
			}
			if len(ch.calls) != tt.attempts {
				t.Errorf("attempts = %d, want %d", len(ch.calls), tt.attempts)
			}
		})
	}
}

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{10, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := exponentialBackoff(tt.attempt); got != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
			}
		})
	}
}

func TestPublisher_Close(t *testing.T) {
	ch := &mockChannel{}
	p, _ := newTestPublisher(ch)

	if err := p.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if !ch.closed {
		t.Error("channel not closed")
	}
	if p.Name() != "amqp" {
		t.Errorf("Name = %q", p.Name())
	}
}
