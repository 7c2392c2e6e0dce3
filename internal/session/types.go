// Package session keeps per-session state between requests: the import
// batch under review and the last dashboard filter.
package session

import (
	"time"

	"github.com/dvloznov/family-ledger/internal/domain"
)

// ImportState is the position of a session in the import flow.
type ImportState string

const (
	// StateIdle means no import is in progress.
	StateIdle ImportState = "idle"
	// StateUploaded means a file was accepted and is being parsed.
	StateUploaded ImportState = "uploaded"
	// StateStaged means parsed rows are waiting for confirmation.
	StateStaged ImportState = "staged"
	// StateCommitted means the rows were written to the ledger.
	StateCommitted ImportState = "committed"
	// StateCancelled means the staged rows were discarded.
	StateCancelled ImportState = "cancelled"
)

// ImportBatch is one statement import owned by a user.
type ImportBatch struct {
	ID        string             `json:"id"`
	UserID    string             `json:"-"`
	AccountID string             `json:"account_id"`
	Filename  string             `json:"filename"`
	State     ImportState        `json:"state"`
	Rows      []domain.Candidate `json:"rows"`
	CreatedAt time.Time          `json:"created_at"`
	ExpiresAt time.Time          `json:"expires_at"`
}

func (b *ImportBatch) clone() *ImportBatch {
	c := *b
	if b.Rows != nil {
		c.Rows = make([]domain.Candidate, len(b.Rows))
		copy(c.Rows, b.Rows)
	}
	return &c
}
