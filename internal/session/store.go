package session

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/dvloznov/family-ledger/internal/domain"
	"github.com/google/uuid"
)

// DefaultTTL is how long an untouched session keeps its state.
const DefaultTTL = 24 * time.Hour

type entry struct {
	batch     *ImportBatch
	filter    *domain.TransactionFilter
	expiresAt time.Time
}

// Store is an in-memory session store, safe for concurrent use. State is
// lost on restart. Every write extends the session by the TTL.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	ttl      time.Duration
	now      func() time.Time
}

// NewStore creates a store whose sessions expire ttl after their last
// write. A non-positive ttl means DefaultTTL.
func NewStore(ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		sessions: make(map[string]*entry),
		ttl:      ttl,
		now:      time.Now,
	}
}

// NewID returns a fresh session identifier.
func NewID() string {
	return uuid.NewString()
}

// Begin starts a new import for the session, replacing any batch it
// already holds. The batch starts in StateUploaded.
func (s *Store) Begin(sessionID, userID, accountID, filename string) (*ImportBatch, error) {
	if sessionID == "" {
		return nil, fmt.Errorf("session ID is required")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e := s.touch(sessionID, now)
	e.batch = &ImportBatch{
		ID:        uuid.NewString(),
		UserID:    userID,
		AccountID: accountID,
		Filename:  filename,
		State:     StateUploaded,
		CreatedAt: now,
		ExpiresAt: e.expiresAt,
	}
	return e.batch.clone(), nil
}

// Stage stores the parsed rows of batchID and moves it to StateStaged.
// It fails with ErrInvalidState when the session holds another batch or
// the batch is not in StateUploaded.
func (s *Store) Stage(sessionID, batchID string, rows []domain.Candidate) (*ImportBatch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.live(sessionID, now)
	if !ok || e.batch == nil || e.batch.ID != batchID {
		return nil, fmt.Errorf("Stage: batch %s: %w", batchID, domain.ErrInvalidState)
	}
	if e.batch.State != StateUploaded {
		return nil, fmt.Errorf("Stage: batch is %s: %w", e.batch.State, domain.ErrInvalidState)
	}

	e = s.touch(sessionID, now)
	e.batch.Rows = make([]domain.Candidate, len(rows))
	copy(e.batch.Rows, rows)
	e.batch.State = StateStaged
	e.batch.ExpiresAt = e.expiresAt
	return e.batch.clone(), nil
}

// Abort drops batchID and puts prior back in its place, so a failed
// re-upload leaves the batch under review untouched. A nil prior leaves the
// session idle. Abort is a no-op when the session moved on to another batch.
func (s *Store) Abort(sessionID, batchID string, prior *ImportBatch) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[sessionID]
	if !ok || e.batch == nil || e.batch.ID != batchID {
		return
	}
	if prior == nil {
		e.batch = nil
		return
	}
	e.batch = prior.clone()
}

// Get returns a copy of the session's batch, or false when the session is
// idle or expired.
func (s *Store) Get(sessionID string) (*ImportBatch, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.live(sessionID, s.now())
	if !ok || e.batch == nil {
		return nil, false
	}
	return e.batch.clone(), true
}

// Clear drops the session's batch. Clearing an idle session is a no-op.
func (s *Store) Clear(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.sessions[sessionID]; ok {
		e.batch = nil
	}
}

// SaveFilter remembers the dashboard filter of the session.
func (s *Store) SaveFilter(sessionID string, filter domain.TransactionFilter) {
	if sessionID == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e := s.touch(sessionID, s.now())
	e.filter = &filter
}

// LoadFilter returns the remembered dashboard filter, if any.
func (s *Store) LoadFilter(sessionID string) (domain.TransactionFilter, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.live(sessionID, s.now())
	if !ok || e.filter == nil {
		return domain.TransactionFilter{}, false
	}
	return *e.filter, true
}

// Sweep removes expired sessions and returns how many were removed.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, e := range s.sessions {
		if !now.Before(e.expiresAt) {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}

// touch returns the live entry for sessionID, creating it if needed, and
// extends its expiry. Callers hold the write lock.
func (s *Store) touch(sessionID string, now time.Time) *entry {
	e, ok := s.live(sessionID, now)
	if !ok {
		e = &entry{}
		s.sessions[sessionID] = e
	}
	e.expiresAt = now.Add(s.ttl)
	return e
}

// live returns the entry for sessionID unless it has expired. Callers hold
// at least the read lock.
func (s *Store) live(sessionID string, now time.Time) (*entry, bool) {
	e, ok := s.sessions[sessionID]
	if !ok || !now.Before(e.expiresAt) {
		return nil, false
	}
	return e, true
}

// RunSweeper calls Sweep every interval until ctx is done.
func (s *Store) RunSweeper(ctx context.Context, interval time.Duration, onSweep func(removed int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.Sweep(); n > 0 && onSweep != nil {
				onSweep(n)
			}
		}
	}
}
