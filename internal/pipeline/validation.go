package pipeline

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dvloznov/family-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// fieldAliases lists the keys accepted for each candidate field, canonical
// name first. Older prompts produced Portuguese keys.
var fieldAliases = map[string][]string{
	"date":        {"date", "data"},
	"description": {"description", "descricao"},
	"amount":      {"amount", "valor"},
	"type":        {"type", "tipo"},
	"category":    {"category", "categoria"},
}

// RowResult is the outcome of validating one model row: either a
// Candidate or the reason the row was rejected.
type RowResult struct {
	Index     int
	Candidate domain.Candidate
	Reason    string
}

// OK reports whether the row was accepted.
func (r RowResult) OK() bool {
	return r.Reason == ""
}

// ParseModelResponse decodes the model's answer into raw rows. Blank text
// yields no rows and no error. A top-level object is accepted either as a
// single row or as a wrapper with a "transactions" array.
func ParseModelResponse(text string) ([]any, error) {
	clean := CleanModelJSON(text)
	if clean == "" {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader([]byte(clean)))
	dec.UseNumber()

	var parsed any
	if err := dec.Decode(&parsed); err != nil {
		return nil, fmt.Errorf("ParseModelResponse: unmarshal JSON: %w", err)
	}

	switch v := parsed.(type) {
	case []any:
		return v, nil
	case map[string]any:
		if inner, ok := v["transactions"].([]any); ok {
			return inner, nil
		}
		return []any{v}, nil
	case nil:
		return nil, nil
	default:
		return nil, fmt.Errorf("ParseModelResponse: top-level value is %T, want array", parsed)
	}
}

// ValidateRows checks every raw row independently. Rows missing date,
// description, amount or type are rejected, as are rows with a malformed
// date, a non-positive amount or an unknown type. A missing category
// becomes FallbackCategoryName. The result has one entry per input row.
func ValidateRows(rows []any) []RowResult {
	results := make([]RowResult, 0, len(rows))
	for i, raw := range rows {
		c, err := validateRow(raw)
		r := RowResult{Index: i, Candidate: c}
		if err != nil {
			r.Candidate = domain.Candidate{}
			r.Reason = err.Error()
		}
		results = append(results, r)
	}
	return results
}

// Accepted returns the candidates of the accepted results, in order.
func Accepted(results []RowResult) []domain.Candidate {
	out := make([]domain.Candidate, 0, len(results))
	for _, r := range results {
		if r.OK() {
			out = append(out, r.Candidate)
		}
	}
	return out
}

func validateRow(raw any) (domain.Candidate, error) {
	obj, ok := raw.(map[string]any)
	if !ok {
		return domain.Candidate{}, fmt.Errorf("row is %T, want object", raw)
	}

	for _, field := range []string{"date", "description", "amount", "type"} {
		if _, ok := lookup(obj, field); !ok {
			return domain.Candidate{}, fmt.Errorf("missing required field %q", field)
		}
	}

	dateStr, err := getStringField(obj, "date")
	if err != nil {
		return domain.Candidate{}, err
	}
	date, err := domain.ParseDate(dateStr)
	if err != nil {
		return domain.Candidate{}, fmt.Errorf("invalid date %q", dateStr)
	}

	desc, err := getStringField(obj, "description")
	if err != nil {
		return domain.Candidate{}, err
	}

	amount, err := getAmountField(obj, "amount")
	if err != nil {
		return domain.Candidate{}, err
	}
	if amount.Sign() <= 0 {
		return domain.Candidate{}, fmt.Errorf("amount must be greater than zero")
	}

	typeStr, err := getStringField(obj, "type")
	if err != nil {
		return domain.Candidate{}, err
	}
	typ, err := domain.ParseTxType(typeStr)
	if err != nil {
		return domain.Candidate{}, err
	}

	category := domain.FallbackCategoryName
	if v, ok := lookup(obj, "category"); ok {
		if s, ok := v.(string); ok && strings.TrimSpace(s) != "" {
			category = strings.TrimSpace(s)
		}
	}

	return domain.Candidate{
		Date:        date,
		Description: strings.TrimSpace(desc),
		Amount:      amount,
		Type:        typ,
		Category:    category,
	}, nil
}

// lookup returns the first alias of field present in obj. A JSON null
// counts as missing.
func lookup(obj map[string]any, field string) (any, bool) {
	for _, key := range fieldAliases[field] {
		if v, ok := obj[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

func getStringField(obj map[string]any, field string) (string, error) {
	v, _ := lookup(obj, field)
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("field %q has type %T, want string", field, v)
	}
	return s, nil
}

// getAmountField accepts JSON numbers and numeric strings and returns the
// absolute value rounded to cents, bounded by domain.MaxAmount.
func getAmountField(obj map[string]any, field string) (decimal.Decimal, error) {
	v, _ := lookup(obj, field)
	switch val := v.(type) {
	case json.Number:
		d, err := decimal.NewFromString(val.String())
		if err != nil {
			return decimal.Zero, fmt.Errorf("field %q: invalid number %q", field, val)
		}
		n, err := domain.NormalizeAmount(d)
		if err != nil {
			return decimal.Zero, fmt.Errorf("field %q: %w", field, err)
		}
		return n, nil
	case float64:
		n, err := domain.NormalizeAmount(decimal.NewFromFloat(val))
		if err != nil {
			return decimal.Zero, fmt.Errorf("field %q: %w", field, err)
		}
		return n, nil
	case string:
		d, err := domain.ParseAmount(val)
		if err != nil {
			return decimal.Zero, fmt.Errorf("field %q: %w", field, err)
		}
		return d, nil
	default:
		return decimal.Zero, fmt.Errorf("field %q has type %T, want number", field, v)
	}
}
