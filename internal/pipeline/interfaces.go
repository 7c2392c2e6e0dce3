package pipeline

import (
	"context"

	"github.com/dvloznov/family-ledger/internal/domain"
)

// Document is an uploaded statement ready to be sent to the model.
type Document struct {
	Filename string
	MIMEType string
	Data     []byte
}

// Extractor turns a statement into model output text.
// This interface enables mocking of the AI service in tests.
type Extractor interface {
	Extract(ctx context.Context, doc Document, prompt string) (string, error)
}

// Ledger is the part of the ledger store the import flow needs. Every
// method is scoped to userID.
type Ledger interface {
	GetAccount(ctx context.Context, userID, id string) (*domain.Account, error)
	ListCategories(ctx context.Context, userID string) ([]domain.Category, error)
	GetCategory(ctx context.Context, userID, id string) (*domain.Category, error)
	GetOrCreateCategory(ctx context.Context, userID, name string) (*domain.Category, error)
	CreateTransaction(ctx context.Context, userID string, in domain.TransactionInput) (*domain.Transaction, error)
}

// TxLedger is a Ledger that can run a group of writes atomically.
type TxLedger interface {
	Ledger
	WithinTx(ctx context.Context, fn func(tx Ledger) error) error
}

// Hook receives every committed import. Hooks run after the ledger
// transaction and cannot undo it.
type Hook interface {
	Name() string
	OnCommit(ctx context.Context, receipt CommitReceipt) error
}
