package domain

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func TestAccountInput_Validate(t *testing.T) {
	tests := []struct {
		name    string
		opening string
		want    string
		field   string
	}{
		{"positive", "1500.555", "1500.56", ""},
		{"negative keeps sign", "-20.5", "-20.5", ""},
		{"zero", "0", "0", ""},
		{"too large", "1e30000000", "", "opening_balance"},
		{"too small", "-100000000", "", "opening_balance"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := AccountInput{Name: " Checking ", OpeningBalance: decimal.RequireFromString(tt.opening)}
			err := in.Validate()
			if tt.field != "" {
				var ve *ValidationError
				if !errors.As(err, &ve) || ve.Field != tt.field {
					t.Fatalf("error = %v, want ValidationError on %s", err, tt.field)
				}
				return
			}
			if err != nil {
				t.Fatalf("Validate failed: %v", err)
			}
			if in.Name != "Checking" {
				t.Errorf("Name = %q", in.Name)
			}
			if !in.OpeningBalance.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("OpeningBalance = %s, want %s", in.OpeningBalance, tt.want)
			}
		})
	}
}
