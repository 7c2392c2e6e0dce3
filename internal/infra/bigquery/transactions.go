package bigquery

import (
	"math/big"
	"time"

	"cloud.google.com/go/bigquery"
	"cloud.google.com/go/civil"
)

// TransactionRow is one committed ledger transaction in the analytics
// table.
type TransactionRow struct {
	TransactionID string `bigquery:"transaction_id"` // REQUIRED
	BatchID       string `bigquery:"batch_id"`       // REQUIRED

	UserID      string `bigquery:"user_id"`      // REQUIRED
	AccountID   string `bigquery:"account_id"`   // REQUIRED
	AccountName string `bigquery:"account_name"` // REQUIRED

	TransactionDate civil.Date `bigquery:"transaction_date"` // REQUIRED

	Amount    *big.Rat `bigquery:"amount"`    // REQUIRED NUMERIC
	Direction string   `bigquery:"direction"` // REQUIRED: income | expense

	Description  bigquery.NullString `bigquery:"description"`   // NULLABLE
	CategoryName bigquery.NullString `bigquery:"category_name"` // NULLABLE

	Fingerprint    string `bigquery:"fingerprint"`     // REQUIRED
	SourceFilename string `bigquery:"source_filename"` // REQUIRED

	CreatedTS   time.Time `bigquery:"created_ts"`   // REQUIRED
	CommittedTS time.Time `bigquery:"committed_ts"` // REQUIRED
}
