package domain

import (
	"errors"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
)

func strPtr(s string) *string { return &s }

func TestFingerprint_Deterministic(t *testing.T) {
	date := civil.Date{Year: 2024, Month: time.March, Day: 5}
	a := Fingerprint(date, decimal.RequireFromString("120.5"), strPtr("Mercado"))
	b := Fingerprint(date, decimal.RequireFromString("120.50"), strPtr("Mercado"))

	if a != b {
		t.Errorf("equal amounts with different scale should collide: %s != %s", a, b)
	}
	if len(a) != 32 {
		t.Errorf("fingerprint length = %d, want 32", len(a))
	}

	c := Fingerprint(date, decimal.RequireFromString("120.51"), strPtr("Mercado"))
	if a == c {
		t.Error("different amounts should not collide")
	}

	d := Fingerprint(date, decimal.RequireFromString("120.50"), nil)
	e := Fingerprint(date, decimal.RequireFromString("120.50"), strPtr(""))
	if d != e {
		t.Error("nil and empty descriptions should hash the same")
	}
}

func TestParseTxType(t *testing.T) {
	tests := []struct {
		input   string
		want    TxType
		wantErr bool
	}{
		{"income", Income, false},
		{"Expense", Expense, false},
		{"D", Expense, false},
		{"r", Income, false},
		{" debit ", Expense, false},
		{"credit", Income, false},
		{"transfer", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseTxType(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseTxType(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseTxType(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"12.34", "12.34", false},
		{"12,34", "12.34", false},
		{"-20.5", "20.5", false},
		{"1.005", "1.01", false},
		{"99999999.99", "99999999.99", false},
		{"0e30000000", "0", false},
		{"100000000", "", true},
		{"99999999.995", "", true},
		{"1e30000000", "", true},
		{"99999999999999999999", "", true},
		{"1e-30000000", "", true},
		{"abc", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseAmount(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseAmount(%q) error = %v, wantErr %v", tt.input, err, tt.wantErr)
			}
			if !tt.wantErr && !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("ParseAmount(%q) = %s, want %s", tt.input, got, tt.want)
			}
		})
	}
}

func TestTransactionInput_Validate(t *testing.T) {
	valid := func() TransactionInput {
		return TransactionInput{
			AccountID: "acc-1",
			Date:      civil.Date{Year: 2024, Month: time.January, Day: 2},
			Amount:    decimal.RequireFromString("10"),
			Type:      Expense,
		}
	}

	tests := []struct {
		name   string
		mutate func(in *TransactionInput)
		field  string
	}{
		{"valid", func(in *TransactionInput) {}, ""},
		{"missing account", func(in *TransactionInput) { in.AccountID = " " }, "account_id"},
		{"zero amount", func(in *TransactionInput) { in.Amount = decimal.Zero }, "amount"},
		{"negative amount", func(in *TransactionInput) { in.Amount = decimal.RequireFromString("-1") }, "amount"},
		{"amount rounds to zero", func(in *TransactionInput) { in.Amount = decimal.RequireFromString("0.001") }, "amount"},
		{"amount too large", func(in *TransactionInput) { in.Amount = decimal.RequireFromString("1e30000000") }, "amount"},
		{"amount at bound", func(in *TransactionInput) { in.Amount = decimal.RequireFromString("100000000") }, "amount"},
		{"bad type", func(in *TransactionInput) { in.Type = "transfer" }, "type"},
		{"bad date", func(in *TransactionInput) { in.Date = civil.Date{Year: 2024, Month: time.February, Day: 30} }, "date"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := valid()
			tt.mutate(&in)
			err := in.Validate()
			if tt.field == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if ve.Field != tt.field {
				t.Errorf("field = %q, want %q", ve.Field, tt.field)
			}
		})
	}
}

func TestTransactionInput_ValidateRoundsAmount(t *testing.T) {
	in := TransactionInput{
		AccountID: "acc-1",
		Date:      civil.Date{Year: 2024, Month: time.January, Day: 2},
		Amount:    decimal.RequireFromString("12.345"),
		Type:      Income,
	}
	if err := in.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if in.Amount.String() != "12.35" {
		t.Errorf("Amount = %s, want 12.35", in.Amount)
	}
}

func TestTransactionInput_ValidateTrimsOptionalFields(t *testing.T) {
	in := TransactionInput{
		AccountID:  "acc-1",
		CategoryID: strPtr("  "),
		Notes:      strPtr(" note "),
		Date:       civil.Date{Year: 2024, Month: time.January, Day: 2},
		Amount:     decimal.RequireFromString("10"),
		Type:       Income,
	}
	if err := in.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if in.CategoryID != nil {
		t.Errorf("blank category should become nil, got %q", *in.CategoryID)
	}
	if in.Notes == nil || *in.Notes != "note" {
		t.Errorf("notes = %v, want trimmed 'note'", in.Notes)
	}
}

func TestTransactionFilter_Range(t *testing.T) {
	tests := []struct {
		name     string
		filter   TransactionFilter
		from, to string
	}{
		{"month", TransactionFilter{Year: 2024, Month: 3}, "2024-03-01", "2024-04-01"},
		{"december", TransactionFilter{Year: 2024, Month: 12}, "2024-12-01", "2025-01-01"},
		{"whole year", TransactionFilter{Year: 2024}, "2024-01-01", "2025-01-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			from, to := tt.filter.Range()
			if from.String() != tt.from || to.String() != tt.to {
				t.Errorf("Range() = [%s, %s), want [%s, %s)", from, to, tt.from, tt.to)
			}
		})
	}
}

func TestTransactionFilter_Validate(t *testing.T) {
	if err := (TransactionFilter{Year: 2024, Month: 13}).Validate(); !IsValidation(err) {
		t.Errorf("month 13 should be rejected, got %v", err)
	}
	if err := (TransactionFilter{Year: 20}).Validate(); !IsValidation(err) {
		t.Errorf("year 20 should be rejected, got %v", err)
	}
	if err := (TransactionFilter{Year: 2024}).Validate(); err != nil {
		t.Errorf("whole year filter should be valid, got %v", err)
	}
}
