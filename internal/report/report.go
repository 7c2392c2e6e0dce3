// Package report aggregates ledger transactions for the dashboard.
package report

import (
	"sort"
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/family-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// NoCategoryLabel groups transactions without a category in breakdowns.
const NoCategoryLabel = "none"

// Period is the width of a time-series bucket.
type Period int

const (
	PeriodDay Period = iota
	PeriodMonth
)

// PeriodFor returns the bucket width the dashboard uses for filter: days
// within a month, months within a whole year.
func PeriodFor(filter domain.TransactionFilter) Period {
	if filter.WholeYear() {
		return PeriodMonth
	}
	return PeriodDay
}

// Totals holds the income and expense sums of a set of transactions.
type Totals struct {
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
	Balance decimal.Decimal `json:"balance"`
}

// Bucket is one point of the income/expense time series.
type Bucket struct {
	Label   string          `json:"label"`
	Start   civil.Date      `json:"start"`
	Income  decimal.Decimal `json:"income"`
	Expense decimal.Decimal `json:"expense"`
}

// Slice is one category's share of a breakdown.
type Slice struct {
	Category string          `json:"category"`
	Total    decimal.Decimal `json:"total"`
}

// Summary is everything the dashboard shows for one filter.
type Summary struct {
	Year             int                  `json:"year"`
	Month            int                  `json:"month,omitempty"`
	WholeYear        bool                 `json:"whole_year"`
	Totals           Totals               `json:"totals"`
	Series           []Bucket             `json:"series"`
	IncomeBreakdown  []Slice              `json:"income_by_category"`
	ExpenseBreakdown []Slice              `json:"expense_by_category"`
	Transactions     []domain.Transaction `json:"transactions"`
}

// TotalsOf sums txs by type. Balance is income minus expense and may be
// negative. An empty slice yields zeros.
func TotalsOf(txs []domain.Transaction) Totals {
	t := Totals{Income: decimal.Zero, Expense: decimal.Zero}
	for _, tx := range txs {
		switch tx.Type {
		case domain.Income:
			t.Income = t.Income.Add(tx.Amount)
		case domain.Expense:
			t.Expense = t.Expense.Add(tx.Amount)
		}
	}
	t.Balance = t.Income.Sub(t.Expense)
	return t
}

// Series groups txs into day or month buckets in ascending order. Every
// bucket reports both types; a type with no transactions in the bucket
// sums to zero.
func Series(txs []domain.Transaction, period Period) []Bucket {
	index := make(map[civil.Date]*Bucket)
	for _, tx := range txs {
		start := bucketStart(tx.Date, period)
		b, ok := index[start]
		if !ok {
			b = &Bucket{
				Label:   bucketLabel(start, period),
				Start:   start,
				Income:  decimal.Zero,
				Expense: decimal.Zero,
			}
			index[start] = b
		}
		switch tx.Type {
		case domain.Income:
			b.Income = b.Income.Add(tx.Amount)
		case domain.Expense:
			b.Expense = b.Expense.Add(tx.Amount)
		}
	}

	buckets := make([]Bucket, 0, len(index))
	for _, b := range index {
		buckets = append(buckets, *b)
	}
	sort.Slice(buckets, func(i, j int) bool {
		return buckets[i].Start.Before(buckets[j].Start)
	})
	return buckets
}

// Breakdown sums the transactions of one type per category name, largest
// first. Ties are ordered by name so the output is stable.
func Breakdown(txs []domain.Transaction, typ domain.TxType) []Slice {
	sums := make(map[string]decimal.Decimal)
	for _, tx := range txs {
		if tx.Type != typ {
			continue
		}
		name := NoCategoryLabel
		if tx.CategoryName != nil && *tx.CategoryName != "" {
			name = *tx.CategoryName
		}
		sums[name] = sums[name].Add(tx.Amount)
	}

	slices := make([]Slice, 0, len(sums))
	for name, total := range sums {
		slices = append(slices, Slice{Category: name, Total: total})
	}
	sort.Slice(slices, func(i, j int) bool {
		if c := slices[i].Total.Cmp(slices[j].Total); c != 0 {
			return c > 0
		}
		return slices[i].Category < slices[j].Category
	})
	return slices
}

// Build assembles the dashboard summary of txs, which are expected to
// already match filter.
func Build(txs []domain.Transaction, filter domain.TransactionFilter) Summary {
	if txs == nil {
		txs = []domain.Transaction{}
	}
	return Summary{
		Year:             filter.Year,
		Month:            filter.Month,
		WholeYear:        filter.WholeYear(),
		Totals:           TotalsOf(txs),
		Series:           Series(txs, PeriodFor(filter)),
		IncomeBreakdown:  Breakdown(txs, domain.Income),
		ExpenseBreakdown: Breakdown(txs, domain.Expense),
		Transactions:     txs,
	}
}

func bucketStart(d civil.Date, period Period) civil.Date {
	if period == PeriodMonth {
		return civil.Date{Year: d.Year, Month: d.Month, Day: 1}
	}
	return d
}

func bucketLabel(start civil.Date, period Period) string {
	t := start.In(time.UTC)
	if period == PeriodMonth {
		return t.Format("Jan")
	}
	return t.Format("02")
}
