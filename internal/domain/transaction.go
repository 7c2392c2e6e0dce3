package domain

import (
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

// DateLayout is the only accepted textual date format.
const DateLayout = "2006-01-02"

// DefaultDescription replaces an empty description on manual entry.
const DefaultDescription = "No description"

// TxType says which way money moved. Amounts are always positive.
type TxType string

const (
	Income  TxType = "income"
	Expense TxType = "expense"
)

// ParseTxType accepts the canonical names plus the short codes and aliases
// bank statements and older exports use ("R"/"D", "credit"/"debit", ...).
func ParseTxType(s string) (TxType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income", "i", "r", "receita", "credit", "c", "in":
		return Income, nil
	case "expense", "e", "d", "despesa", "debit", "out":
		return Expense, nil
	default:
		return "", fmt.Errorf("unknown transaction type %q", s)
	}
}

// Label returns the human-readable name of t.
func (t TxType) Label() string {
	switch t {
	case Income:
		return "Income"
	case Expense:
		return "Expense"
	default:
		return string(t)
	}
}

// Transaction is one movement of money on an account.
type Transaction struct {
	ID           string          `json:"id"`
	UserID       string          `json:"-"`
	AccountID    string          `json:"account_id"`
	AccountName  string          `json:"account_name,omitempty"`
	CategoryID   *string         `json:"category_id,omitempty"`
	CategoryName *string         `json:"category_name,omitempty"`
	Date         civil.Date      `json:"date"`
	Description  *string         `json:"description,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	Type         TxType          `json:"type"`
	Notes        *string         `json:"notes,omitempty"`
	Fingerprint  string          `json:"fingerprint"`
	CreatedAt    time.Time       `json:"created_at"`
}

// TransactionInput carries the user-editable fields of a Transaction.
type TransactionInput struct {
	AccountID   string          `json:"account_id"`
	CategoryID  *string         `json:"category_id,omitempty"`
	Date        civil.Date      `json:"date"`
	Description *string         `json:"description,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Type        TxType          `json:"type"`
	Notes       *string         `json:"notes,omitempty"`
	Fingerprint string          `json:"-"`
}

// Validate normalises the input and checks required fields.
func (in *TransactionInput) Validate() error {
	in.AccountID = strings.TrimSpace(in.AccountID)
	if in.AccountID == "" {
		return Invalid("account_id", "is required")
	}
	if !in.Date.IsValid() {
		return Invalid("date", "must be a valid %s date", "YYYY-MM-DD")
	}
	if in.Amount.Sign() <= 0 {
		return Invalid("amount", "must be greater than zero")
	}
	amount, err := NormalizeAmount(in.Amount)
	if err != nil {
		return err
	}
	if amount.IsZero() {
		return Invalid("amount", "must be greater than zero")
	}
	in.Amount = amount
	if in.Type != Income && in.Type != Expense {
		return Invalid("type", "must be %q or %q", Income, Expense)
	}
	in.CategoryID = trimOptional(in.CategoryID)
	in.Notes = trimOptional(in.Notes)
	if in.Description != nil {
		d := strings.TrimSpace(*in.Description)
		in.Description = &d
		if len(d) > 200 {
			return Invalid("description", "must be at most 200 characters")
		}
	}
	return nil
}

// Fingerprint hashes the logical identity of a transaction. Two rows with
// the same date, amount and description collide on purpose: this is a
// coarse duplicate guard, not an identity.
func Fingerprint(date civil.Date, amount decimal.Decimal, description *string) string {
	desc := ""
	if description != nil {
		desc = *description
	}
	sum := md5.Sum([]byte(date.String() + amount.StringFixed(2) + desc))
	return hex.EncodeToString(sum[:])
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (civil.Date, error) {
	t, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return civil.Date{}, err
	}
	return civil.DateOf(t), nil
}

// ParseAmount parses a decimal, accepting a decimal comma, and normalises
// it with NormalizeAmount.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if strings.Contains(s, ",") && !strings.Contains(s, ".") {
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid amount %q", s)
	}
	return NormalizeAmount(d)
}

// MaxAmount is the exclusive upper bound of a stored amount: ten digits,
// two of them decimals.
var MaxAmount = decimal.New(1, maxAmountIntDigits)

const (
	maxAmountIntDigits = 8
	maxAmountScale     = 20
)

// NormalizeAmount returns the absolute value of d rounded to cents. The
// magnitude is checked before rounding, since rescaling a value with an
// extreme exponent costs time proportional to the exponent.
func NormalizeAmount(d decimal.Decimal) (decimal.Decimal, error) {
	return normalizeAmount("amount", d)
}

func normalizeAmount(field string, d decimal.Decimal) (decimal.Decimal, error) {
	if d.Sign() == 0 {
		return decimal.Zero, nil
	}
	if d.Exponent() < -maxAmountScale {
		return decimal.Zero, Invalid(field, "must have at most %d decimal places", maxAmountScale)
	}
	if d.NumDigits()+int(d.Exponent()) > maxAmountIntDigits {
		return decimal.Zero, Invalid(field, "must be less than %s", MaxAmount)
	}
	r := d.Abs().Round(2)
	if r.GreaterThanOrEqual(MaxAmount) {
		return decimal.Zero, Invalid(field, "must be less than %s", MaxAmount)
	}
	return r, nil
}

// TransactionFilter selects transactions for listing and reporting.
// Month 0 selects the whole year.
type TransactionFilter struct {
	Year       int
	Month      int
	AccountID  string
	CategoryID string
	Type       TxType
}

// WholeYear reports whether the filter spans the whole year.
func (f TransactionFilter) WholeYear() bool {
	return f.Month == 0
}

// Range returns the half-open [from, to) date interval of the filter.
func (f TransactionFilter) Range() (civil.Date, civil.Date) {
	if f.WholeYear() {
		return civil.Date{Year: f.Year, Month: time.January, Day: 1},
			civil.Date{Year: f.Year + 1, Month: time.January, Day: 1}
	}
	from := civil.Date{Year: f.Year, Month: time.Month(f.Month), Day: 1}
	if f.Month == 12 {
		return from, civil.Date{Year: f.Year + 1, Month: time.January, Day: 1}
	}
	return from, civil.Date{Year: f.Year, Month: time.Month(f.Month + 1), Day: 1}
}

// Validate checks the year and month bounds.
func (f TransactionFilter) Validate() error {
	if f.Year < 1900 || f.Year > 9999 {
		return Invalid("year", "must be between 1900 and 9999")
	}
	if f.Month < 0 || f.Month > 12 {
		return Invalid("month", "must be between 1 and 12")
	}
	if f.Type != "" && f.Type != Income && f.Type != Expense {
		return Invalid("type", "must be %q or %q", Income, Expense)
	}
	return nil
}

func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}
