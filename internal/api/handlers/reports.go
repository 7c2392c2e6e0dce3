package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dvloznov/family-ledger/internal/api/middleware"
	"github.com/dvloznov/family-ledger/internal/charts"
	"github.com/dvloznov/family-ledger/internal/domain"
	"github.com/dvloznov/family-ledger/internal/logger"
	"github.com/dvloznov/family-ledger/internal/report"
	"github.com/dvloznov/family-ledger/internal/session"
	"github.com/rs/zerolog"
)

// ReportsHandler serves the dashboard summary and its charts.
type ReportsHandler struct {
	ledger   Ledger
	sessions *session.Store
	charts   *charts.Generator
	now      func() time.Time
}

// NewReportsHandler creates a new reports handler.
func NewReportsHandler(ledger Ledger, sessions *session.Store, gen *charts.Generator) *ReportsHandler {
	return &ReportsHandler{
		ledger:   ledger,
		sessions: sessions,
		charts:   gen,
		now:      time.Now,
	}
}

// Summary handles GET /api/summary?year=&month=&whole_year=
func (h *ReportsHandler) Summary(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	filter, txs, err := h.load(r)
	if err != nil {
		writeFailure(w, log, err, "Failed to build summary")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, report.Build(txs, filter))
}

// FlowChart handles GET /api/charts/flow.png
func (h *ReportsHandler) FlowChart(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	filter, txs, err := h.load(r)
	if err != nil {
		writeFailure(w, log, err, "Failed to load flow chart data")
		return
	}

	png, err := h.charts.Flow(report.Series(txs, report.PeriodFor(filter)), periodTitle("Income and expenses", filter))
	h.writePNG(w, log, png, err)
}

// CategoryChart handles GET /api/charts/categories.png?type=expense|income
func (h *ReportsHandler) CategoryChart(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	typ := domain.Expense
	if t := r.URL.Query().Get("type"); t != "" {
		parsed, err := domain.ParseTxType(t)
		if err != nil {
			writeFailure(w, log, domain.Invalid("type", "must be %q or %q", domain.Income, domain.Expense), "")
			return
		}
		typ = parsed
	}

	q := r.URL.Query()
	q.Del("type")
	r.URL.RawQuery = q.Encode()

	filter, txs, err := h.load(r)
	if err != nil {
		writeFailure(w, log, err, "Failed to load category chart data")
		return
	}

	png, err := h.charts.Categories(report.Breakdown(txs, typ), periodTitle(typ.Label()+" by category", filter))
	h.writePNG(w, log, png, err)
}

// load resolves the request's filter and lists the matching transactions.
// Period parts the request leaves out come from the session's last filter,
// falling back to the current month. The resolved filter is remembered.
func (h *ReportsHandler) load(r *http.Request) (domain.TransactionFilter, []domain.Transaction, error) {
	now := h.now()
	sid := sessionID(r)

	base := currentMonth(now)
	if saved, ok := h.sessions.LoadFilter(sid); ok {
		base = saved
	}

	filter, err := filterFromQuery(r.URL.Query(), base, now)
	if err != nil {
		return filter, nil, err
	}

	txs, err := h.ledger.ListTransactions(r.Context(), userID(r), filter)
	if err != nil {
		return filter, nil, err
	}

	h.sessions.SaveFilter(sid, domain.TransactionFilter{Year: filter.Year, Month: filter.Month})
	return filter, txs, nil
}

func (h *ReportsHandler) writePNG(w http.ResponseWriter, log zerolog.Logger, png []byte, err error) {
	if errors.Is(err, charts.ErrNoData) {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if err != nil {
		writeFailure(w, log, err, "Failed to render chart")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	w.Write(png)
}

func periodTitle(prefix string, filter domain.TransactionFilter) string {
	if filter.WholeYear() {
		return fmt.Sprintf("%s, %d", prefix, filter.Year)
	}
	return fmt.Sprintf("%s, %s %d", prefix, time.Month(filter.Month), filter.Year)
}
