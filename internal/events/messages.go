package events

import (
	"encoding/json"
	"time"

	"github.com/dvloznov/family-ledger/internal/pipeline"
	"github.com/dvloznov/family-ledger/internal/report"
	"github.com/shopspring/decimal"
)

// RoutingKeyImportCommitted is the routing key of ImportCommitted messages.
const RoutingKeyImportCommitted = "import.committed"

// ImportCommitted announces a confirmed statement import. Consumers fetch
// the transactions themselves; the message only carries IDs and totals.
type ImportCommitted struct {
	BatchID        string          `json:"batch_id"`
	UserID         string          `json:"user_id"`
	AccountID      string          `json:"account_id"`
	AccountName    string          `json:"account_name"`
	Filename       string          `json:"filename"`
	Count          int             `json:"count"`
	Income         decimal.Decimal `json:"income"`
	Expense        decimal.Decimal `json:"expense"`
	TransactionIDs []string        `json:"transaction_ids"`
	CommittedAt    time.Time       `json:"committed_at"`
}

// NewImportCommitted builds the message for a commit receipt.
func NewImportCommitted(receipt pipeline.CommitReceipt) *ImportCommitted {
	totals := report.TotalsOf(receipt.Transactions)
	ids := make([]string, 0, len(receipt.Transactions))
	for _, tx := range receipt.Transactions {
		ids = append(ids, tx.ID)
	}
	return &ImportCommitted{
		BatchID:        receipt.BatchID,
		UserID:         receipt.UserID,
		AccountID:      receipt.AccountID,
		AccountName:    receipt.AccountName,
		Filename:       receipt.Filename,
		Count:          receipt.Count(),
		Income:         totals.Income,
		Expense:        totals.Expense,
		TransactionIDs: ids,
		CommittedAt:    receipt.CommittedAt,
	}
}

// ToJSON converts the message to JSON bytes
func (m *ImportCommitted) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ImportCommittedFromJSON decodes a message body.
func ImportCommittedFromJSON(data []byte) (*ImportCommitted, error) {
	var msg ImportCommitted
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
