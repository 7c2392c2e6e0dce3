package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Account is a place money lives in: a bank account, a wallet, a card.
type Account struct {
	ID             string          `json:"id"`
	UserID         string          `json:"-"`
	Name           string          `json:"name"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	Institution    *string         `json:"institution,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// AccountInput carries the user-editable fields of an Account.
type AccountInput struct {
	Name           string          `json:"name"`
	OpeningBalance decimal.Decimal `json:"opening_balance"`
	Institution    *string         `json:"institution,omitempty"`
}

// Validate trims the input and checks required fields.
func (in *AccountInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return Invalid("name", "is required")
	}
	if len(in.Name) > 100 {
		return Invalid("name", "must be at most 100 characters")
	}
	opening, err := normalizeAmount("opening_balance", in.OpeningBalance)
	if err != nil {
		return err
	}
	if in.OpeningBalance.Sign() < 0 {
		opening = opening.Neg()
	}
	in.OpeningBalance = opening
	if in.Institution != nil {
		inst := strings.TrimSpace(*in.Institution)
		if inst == "" {
			in.Institution = nil
		} else {
			in.Institution = &inst
		}
	}
	return nil
}
