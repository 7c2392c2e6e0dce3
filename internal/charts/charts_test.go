package charts

import (
	"bytes"
	"errors"
	"testing"

	"github.com/dvloznov/family-ledger/internal/report"
	"github.com/shopspring/decimal"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestFlow(t *testing.T) {
	g := NewGenerator()
	buckets := []report.Bucket{
		{Label: "01", Income: decimal.RequireFromString("100"), Expense: decimal.Zero},
		{Label: "02", Income: decimal.Zero, Expense: decimal.RequireFromString("42.50")},
	}

	img, err := g.Flow(buckets, "March 2024")
	if err != nil {
		t.Fatalf("Flow failed: %v", err)
	}
	if !bytes.HasPrefix(img, pngMagic) {
		t.Error("output is not a PNG")
	}
}

func TestFlow_NoData(t *testing.T) {
	if _, err := NewGenerator().Flow(nil, ""); !errors.Is(err, ErrNoData) {
		t.Errorf("got %v, want ErrNoData", err)
	}
}

func TestCategories(t *testing.T) {
	g := NewGenerator()
	slices := []report.Slice{
		{Category: "Rent", Total: decimal.RequireFromString("800")},
		{Category: "Food", Total: decimal.RequireFromString("200")},
		{Category: report.NoCategoryLabel, Total: decimal.RequireFromString("50")},
	}

	img, err := g.Categories(slices, "Expenses")
	if err != nil {
		t.Fatalf("Categories failed: %v", err)
	}
	if !bytes.HasPrefix(img, pngMagic) {
		t.Error("output is not a PNG")
	}
}

func TestCategories_NoData(t *testing.T) {
	tests := []struct {
		name   string
		slices []report.Slice
	}{
		{"nil", nil},
		{"all zero", []report.Slice{{Category: "Food", Total: decimal.Zero}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewGenerator().Categories(tt.slices, ""); !errors.Is(err, ErrNoData) {
				t.Errorf("got %v, want ErrNoData", err)
			}
		})
	}
}

func TestBarWidth(t *testing.T) {
	tests := []struct {
		canvas, bars, want int
	}{
		{1000, 2, 60},
		{1000, 62, 7},
		{1000, 1000, 4},
	}
	for _, tt := range tests {
		if got := barWidth(tt.canvas, tt.bars); got != tt.want {
			t.Errorf("barWidth(%d, %d) = %d, want %d", tt.canvas, tt.bars, got, tt.want)
		}
	}
}
