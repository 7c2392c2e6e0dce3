package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/dvloznov/family-ledger/internal/domain"
	"github.com/dvloznov/family-ledger/internal/logger"
	"golang.org/x/sync/errgroup"
)

// CommitReceipt describes one confirmed import.
type CommitReceipt struct {
	BatchID      string               `json:"batch_id"`
	UserID       string               `json:"-"`
	AccountID    string               `json:"account_id"`
	AccountName  string               `json:"account_name"`
	Filename     string               `json:"filename"`
	Transactions []domain.Transaction `json:"transactions"`
	CommittedAt  time.Time            `json:"committed_at"`
}

// Count is the number of transactions the import created.
func (r CommitReceipt) Count() int {
	return len(r.Transactions)
}

// Hooks runs a set of Hook concurrently.
type Hooks []Hook

// Run calls every hook and waits for all of them. Each failure is logged;
// the first one is returned.
func (h Hooks) Run(ctx context.Context, receipt CommitReceipt) error {
	log := logger.FromContext(ctx)

	var g errgroup.Group
	for _, hook := range h {
		g.Go(func() error {
			if err := hook.OnCommit(ctx, receipt); err != nil {
				log.Error().Err(err).
					Str("hook", hook.Name()).
					Str("batch_id", receipt.BatchID).
					Msg("Post-commit hook failed")
				return fmt.Errorf("hook %s: %w", hook.Name(), err)
			}
			return nil
		})
	}
	return g.Wait()
}
