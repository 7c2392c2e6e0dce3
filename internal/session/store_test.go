package session

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dvloznov/family-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestStore(ttl time.Duration) (*Store, *fakeClock) {
	clock := &fakeClock{now: time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)}
	s := NewStore(ttl)
	s.now = clock.Now
	return s, clock
}

func sampleRows() []domain.Candidate {
	return []domain.Candidate{
		{Description: "Mercado", Amount: decimal.RequireFromString("120.5"), Type: domain.Expense, Category: "Imported"},
	}
}

func TestStore_ImportLifecycle(t *testing.T) {
	s, _ := newTestStore(time.Hour)

	if _, ok := s.Get("sess"); ok {
		t.Fatal("new session should be idle")
	}

	batch, err := s.Begin("sess", "alice", "acc-1", "statement.pdf")
	if err != nil {
		t.Fatalf("Begin failed: %v", err)
	}
	if batch.State != StateUploaded || batch.ID == "" {
		t.Errorf("unexpected batch after Begin: %+v", batch)
	}

	staged, err := s.Stage("sess", batch.ID, sampleRows())
	if err != nil {
		t.Fatalf("Stage failed: %v", err)
	}
	if staged.State != StateStaged || len(staged.Rows) != 1 {
		t.Errorf("unexpected batch after Stage: %+v", staged)
	}

	got, ok := s.Get("sess")
	if !ok {
		t.Fatal("staged batch not found")
	}
	if got.UserID != "alice" || got.AccountID != "acc-1" {
		t.Errorf("batch owner/account = %s/%s", got.UserID, got.AccountID)
	}

	s.Clear("sess")
	if _, ok := s.Get("sess"); ok {
		t.Error("batch still present after Clear")
	}
	s.Clear("sess")
}

func TestStore_StageRequiresCurrentUploadedBatch(t *testing.T) {
	s, _ := newTestStore(time.Hour)

	if _, err := s.Stage("sess", "missing", nil); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("Stage without Begin: got %v, want ErrInvalidState", err)
	}

	first, _ := s.Begin("sess", "alice", "acc-1", "a.pdf")
	second, _ := s.Begin("sess", "alice", "acc-1", "b.pdf")

	if _, err := s.Stage("sess", first.ID, sampleRows()); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("Stage of replaced batch: got %v, want ErrInvalidState", err)
	}
	if _, err := s.Stage("sess", second.ID, sampleRows()); err != nil {
		t.Fatalf("Stage failed: %v", err)
	}
	if _, err := s.Stage("sess", second.ID, sampleRows()); !errors.Is(err, domain.ErrInvalidState) {
		t.Errorf("second Stage: got %v, want ErrInvalidState", err)
	}
}

func TestStore_AbortRestoresPriorBatch(t *testing.T) {
	s, _ := newTestStore(time.Hour)

	first, _ := s.Begin("sess", "alice", "acc-1", "a.pdf")
	prior, err := s.Stage("sess", first.ID, sampleRows())
	if err != nil {
		t.Fatalf("Stage failed: %v", err)
	}

	second, _ := s.Begin("sess", "alice", "acc-1", "b.pdf")
	s.Abort("sess", second.ID, prior)

	got, ok := s.Get("sess")
	if !ok {
		t.Fatal("prior batch not restored")
	}
	if got.ID != first.ID || got.State != StateStaged || len(got.Rows) != 1 {
		t.Errorf("restored batch = %+v", got)
	}

	third, _ := s.Begin("sess", "alice", "acc-1", "c.pdf")
	s.Abort("sess", second.ID, prior)
	if got, _ := s.Get("sess"); got.ID != third.ID {
		t.Errorf("Abort of a stale batch replaced %s with %s", third.ID, got.ID)
	}

	s.Abort("sess", third.ID, nil)
	if _, ok := s.Get("sess"); ok {
		t.Error("Abort without prior should leave the session idle")
	}
}

func TestStore_ReturnsCopies(t *testing.T) {
	s, _ := newTestStore(time.Hour)
	batch, _ := s.Begin("sess", "alice", "acc-1", "a.pdf")

	rows := sampleRows()
	if _, err := s.Stage("sess", batch.ID, rows); err != nil {
		t.Fatalf("Stage failed: %v", err)
	}
	rows[0].Description = "mutated"

	got, _ := s.Get("sess")
	got.Rows[0].Category = "mutated"
	got.State = StateCancelled

	again, _ := s.Get("sess")
	if again.Rows[0].Description != "Mercado" || again.Rows[0].Category != "Imported" {
		t.Errorf("stored rows were mutated: %+v", again.Rows[0])
	}
	if again.State != StateStaged {
		t.Errorf("stored state was mutated: %s", again.State)
	}
}

func TestStore_Expiry(t *testing.T) {
	s, clock := newTestStore(time.Hour)
	s.Begin("sess", "alice", "acc-1", "a.pdf")
	s.SaveFilter("other", domain.TransactionFilter{Year: 2024})

	clock.Advance(59 * time.Minute)
	if _, ok := s.Get("sess"); !ok {
		t.Fatal("batch expired too early")
	}

	clock.Advance(2 * time.Minute)
	if _, ok := s.Get("sess"); ok {
		t.Error("batch should have expired")
	}
	if _, ok := s.LoadFilter("other"); ok {
		t.Error("filter should have expired")
	}

	if removed := s.Sweep(); removed != 2 {
		t.Errorf("Sweep removed %d sessions, want 2", removed)
	}
}

func TestStore_WritesExtendExpiry(t *testing.T) {
	s, clock := newTestStore(time.Hour)
	s.SaveFilter("sess", domain.TransactionFilter{Year: 2024, Month: 3})

	clock.Advance(50 * time.Minute)
	s.Begin("sess", "alice", "acc-1", "a.pdf")

	clock.Advance(50 * time.Minute)
	f, ok := s.LoadFilter("sess")
	if !ok {
		t.Fatal("filter expired although the session was written to")
	}
	if f.Month != 3 {
		t.Errorf("Month = %d, want 3", f.Month)
	}
	if s.Sweep() != 0 {
		t.Error("live session was swept")
	}
}

func TestStore_Filter(t *testing.T) {
	s, _ := newTestStore(0)

	if _, ok := s.LoadFilter("sess"); ok {
		t.Fatal("unexpected filter on new session")
	}
	s.SaveFilter("sess", domain.TransactionFilter{Year: 2023})
	s.SaveFilter("sess", domain.TransactionFilter{Year: 2024, Month: 7})

	f, ok := s.LoadFilter("sess")
	if !ok || f.Year != 2024 || f.Month != 7 {
		t.Errorf("LoadFilter = %+v, %v", f, ok)
	}

	// Clearing the import keeps the filter.
	s.Clear("sess")
	if _, ok := s.LoadFilter("sess"); !ok {
		t.Error("Clear dropped the filter")
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := NewStore(time.Hour)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := NewID()
			b, err := s.Begin(id, "alice", "acc", "a.pdf")
			if err != nil {
				t.Error(err)
				return
			}
			if _, err := s.Stage(id, b.ID, sampleRows()); err != nil {
				t.Error(err)
			}
			s.Get(id)
			s.SaveFilter(id, domain.TransactionFilter{Year: 2024})
			s.Sweep()
		}()
	}
	wg.Wait()
}

func TestStore_RunSweeper(t *testing.T) {
	s, clock := newTestStore(time.Minute)
	s.SaveFilter("sess", domain.TransactionFilter{Year: 2024})
	clock.Advance(2 * time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	swept := make(chan int, 1)
	go s.RunSweeper(ctx, time.Millisecond, func(n int) {
		select {
		case swept <- n:
		default:
		}
	})
	defer cancel()

	select {
	case n := <-swept:
		if n != 1 {
			t.Errorf("swept %d sessions, want 1", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("sweeper did not run")
	}
}

func TestBegin_RequiresSessionID(t *testing.T) {
	s := NewStore(time.Hour)
	if _, err := s.Begin("", "alice", "acc", "a.pdf"); err == nil {
		t.Error("expected error for empty session ID")
	}
}
