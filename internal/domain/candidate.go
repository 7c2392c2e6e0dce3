package domain

import (
	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// Candidate is a statement row extracted by the parser and held for
// review. It becomes a Transaction only when the user confirms it.
type Candidate struct {
	Date        civil.Date      `json:"date"`
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TxType          `json:"type"`
	// Category is the suggested category name, FallbackCategoryName when
	// the parser had no match.
	Category string `json:"category"`
}
