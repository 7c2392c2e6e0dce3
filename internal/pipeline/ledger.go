package pipeline

import (
	"context"

	"github.com/dvloznov/family-ledger/internal/infra/sqlite"
)

// SQLiteLedger adapts the SQLite store to TxLedger.
type SQLiteLedger struct {
	*sqlite.Store
}

// NewSQLiteLedger wraps store.
func NewSQLiteLedger(store *sqlite.Store) *SQLiteLedger {
	return &SQLiteLedger{Store: store}
}

// WithinTx runs fn inside one SQL transaction.
func (l *SQLiteLedger) WithinTx(ctx context.Context, fn func(tx Ledger) error) error {
	return l.Store.InTx(ctx, func(tx *sqlite.Store) error {
		return fn(tx)
	})
}

var _ TxLedger = (*SQLiteLedger)(nil)
