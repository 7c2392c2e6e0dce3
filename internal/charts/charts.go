// Package charts renders dashboard aggregates as PNG images.
package charts

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/dvloznov/family-ledger/internal/report"
	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"
)

// ErrNoData is returned when there is nothing to draw.
var ErrNoData = errors.New("no data to chart")

var (
	incomeColor  = drawing.ColorFromHex("2e7d32")
	expenseColor = drawing.ColorFromHex("c62828")
)

// Generator renders charts with a fixed canvas size.
type Generator struct {
	Width  int
	Height int
}

// NewGenerator returns a Generator with the dashboard's default size.
func NewGenerator() *Generator {
	return &Generator{Width: 1000, Height: 500}
}

// Flow draws an income bar and an expense bar for every bucket of the
// series, in bucket order.
func (g *Generator) Flow(buckets []report.Bucket, title string) ([]byte, error) {
	if len(buckets) == 0 {
		return nil, ErrNoData
	}

	bars := make([]chart.Value, 0, len(buckets)*2)
	peak := 0.0
	for _, b := range buckets {
		income := b.Income.InexactFloat64()
		expense := b.Expense.InexactFloat64()
		if income > peak {
			peak = income
		}
		if expense > peak {
			peak = expense
		}
		bars = append(bars,
			chart.Value{
				Label: b.Label,
				Value: income,
				Style: chart.Style{FillColor: incomeColor, StrokeColor: incomeColor},
			},
			chart.Value{
				Value: expense,
				Style: chart.Style{FillColor: expenseColor, StrokeColor: expenseColor},
			},
		)
	}
	if peak == 0 {
		peak = 1
	}

	graph := chart.BarChart{
		Title:      title,
		TitleStyle: chart.Style{FontSize: 14, FontColor: chart.ColorBlack},
		Width:      g.Width,
		Height:     g.Height,
		BarWidth:   barWidth(g.Width, len(bars)),
		Background: chart.Style{
			Padding:   chart.Box{Top: 50, Left: 20, Right: 20, Bottom: 20},
			FillColor: chart.ColorWhite,
		},
		YAxis: chart.YAxis{
			Range: &chart.ContinuousRange{Min: 0, Max: peak * 1.1},
			ValueFormatter: func(v interface{}) string {
				if f, ok := v.(float64); ok {
					return fmt.Sprintf("%.0f", f)
				}
				return ""
			},
			Style: chart.Style{FontSize: 10, FontColor: chart.ColorBlack},
		},
		Bars: bars,
	}

	var buf bytes.Buffer
	if err := graph.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("Flow: render: %w", err)
	}
	return buf.Bytes(), nil
}

// Categories draws a pie of a category breakdown. Slices are labelled
// with their share of the total.
func (g *Generator) Categories(slices []report.Slice, title string) ([]byte, error) {
	total := 0.0
	for _, s := range slices {
		total += s.Total.InexactFloat64()
	}
	if total <= 0 {
		return nil, ErrNoData
	}

	values := make([]chart.Value, 0, len(slices))
	for _, s := range slices {
		amount := s.Total.InexactFloat64()
		if amount <= 0 {
			continue
		}
		values = append(values, chart.Value{
			Label: fmt.Sprintf("%s: %s (%.1f%%)", s.Category, s.Total.StringFixed(2), amount/total*100),
			Value: amount,
			Style: chart.Style{FontSize: 10, FontColor: chart.ColorBlack},
		})
	}

	pie := chart.PieChart{
		Title:  title,
		Width:  g.Height,
		Height: g.Height,
		Values: values,
		Background: chart.Style{
			Padding:   chart.Box{Top: 40, Left: 40, Right: 40, Bottom: 40},
			FillColor: chart.ColorWhite,
		},
	}

	var buf bytes.Buffer
	if err := pie.Render(chart.PNG, &buf); err != nil {
		return nil, fmt.Errorf("Categories: render: %w", err)
	}
	return buf.Bytes(), nil
}

func barWidth(canvas, bars int) int {
	w := (canvas - 100) / (bars * 2)
	if w > 60 {
		return 60
	}
	if w < 4 {
		return 4
	}
	return w
}
