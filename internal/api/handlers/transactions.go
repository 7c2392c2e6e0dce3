package handlers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dvloznov/family-ledger/internal/api/middleware"
	"github.com/dvloznov/family-ledger/internal/domain"
	"github.com/dvloznov/family-ledger/internal/logger"
	"github.com/shopspring/decimal"
)

// transactionRequest is the JSON body of a manual transaction. Date and
// type are strings so that bad values become field errors.
type transactionRequest struct {
	AccountID   string          `json:"account_id"`
	CategoryID  *string         `json:"category_id,omitempty"`
	Date        string          `json:"date"`
	Description *string         `json:"description,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Type        string          `json:"type"`
	Notes       *string         `json:"notes,omitempty"`
}

func (req transactionRequest) input() (domain.TransactionInput, error) {
	date, err := domain.ParseDate(req.Date)
	if err != nil {
		return domain.TransactionInput{}, domain.Invalid("date", "must be YYYY-MM-DD")
	}
	typ, err := domain.ParseTxType(req.Type)
	if err != nil {
		return domain.TransactionInput{}, domain.Invalid("type", "must be %q or %q", domain.Income, domain.Expense)
	}
	return domain.TransactionInput{
		AccountID:   req.AccountID,
		CategoryID:  req.CategoryID,
		Date:        date,
		Description: req.Description,
		Amount:      req.Amount,
		Type:        typ,
		Notes:       req.Notes,
	}, nil
}

// TransactionsHandler handles transaction endpoints.
type TransactionsHandler struct {
	ledger Ledger
	now    func() time.Time
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(ledger Ledger) *TransactionsHandler {
	return &TransactionsHandler{ledger: ledger, now: time.Now}
}

// List handles GET /api/transactions?year=&month=&whole_year=&account=&category=&type=
func (h *TransactionsHandler) List(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	now := h.now()
	filter, err := filterFromQuery(r.URL.Query(), currentMonth(now), now)
	if err != nil {
		writeFailure(w, log, err, "")
		return
	}

	txs, err := h.ledger.ListTransactions(r.Context(), userID(r), filter)
	if err != nil {
		writeFailure(w, log, err, "Failed to list transactions")
		return
	}
	if txs == nil {
		txs = []domain.Transaction{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": txs,
		"count":        len(txs),
	})
}

// Create handles POST /api/transactions. An empty description is stored
// as domain.DefaultDescription.
func (h *TransactionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, log, err, "")
		return
	}
	in, err := req.input()
	if err != nil {
		writeFailure(w, log, err, "")
		return
	}
	if in.Description == nil || strings.TrimSpace(*in.Description) == "" {
		desc := domain.DefaultDescription
		in.Description = &desc
	}

	tx, err := h.ledger.CreateTransaction(r.Context(), userID(r), in)
	if err != nil {
		writeFailure(w, log, err, "Failed to create transaction")
		return
	}

	log.Info().Str("transaction_id", tx.ID).Msg("Transaction created")
	middleware.WriteJSON(w, http.StatusCreated, tx)
}

// Get handles GET /api/transactions/{id}
func (h *TransactionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	tx, err := h.ledger.GetTransaction(r.Context(), userID(r), pathID(r))
	if err != nil {
		writeFailure(w, logger.FromContext(r.Context()), err, "Failed to get transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, tx)
}

// Update handles PUT /api/transactions/{id}
func (h *TransactionsHandler) Update(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var req transactionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeFailure(w, log, err, "")
		return
	}
	in, err := req.input()
	if err != nil {
		writeFailure(w, log, err, "")
		return
	}

	tx, err := h.ledger.UpdateTransaction(r.Context(), userID(r), pathID(r), in)
	if err != nil {
		writeFailure(w, log, err, "Failed to update transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, tx)
}

// Delete handles DELETE /api/transactions/{id}
func (h *TransactionsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.DeleteTransaction(r.Context(), userID(r), pathID(r)); err != nil {
		writeFailure(w, logger.FromContext(r.Context()), err, "Failed to delete transaction")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// currentMonth is the period used when neither the request nor the session
// names one.
func currentMonth(now time.Time) domain.TransactionFilter {
	return domain.TransactionFilter{Year: now.Year(), Month: int(now.Month())}
}

// filterFromQuery reads year, month, whole_year, account, category and type
// from q. Each period part the query leaves out comes from base on its own:
// a bare year keeps base's month, and an explicit whole_year=0 without a
// month turns a whole-year base into the current month.
func filterFromQuery(q url.Values, base domain.TransactionFilter, now time.Time) (filter domain.TransactionFilter, err error) {
	year := strings.TrimSpace(q.Get("year"))
	month := strings.TrimSpace(q.Get("month"))

	filter.Year = base.Year
	if year != "" {
		if filter.Year, err = strconv.Atoi(year); err != nil {
			return filter, domain.Invalid("year", "must be a number")
		}
	}

	filter.Month = base.Month
	switch {
	case q.Has("whole_year") && isTrue(q.Get("whole_year")):
		filter.Month = 0
	case month != "":
		if filter.Month, err = strconv.Atoi(month); err != nil || filter.Month == 0 {
			return filter, domain.Invalid("month", "must be between 1 and 12")
		}
	case q.Has("whole_year") && filter.Month == 0:
		filter.Month = int(now.Month())
	}

	filter.AccountID = strings.TrimSpace(q.Get("account"))
	filter.CategoryID = strings.TrimSpace(q.Get("category"))
	if t := strings.TrimSpace(q.Get("type")); t != "" {
		if filter.Type, err = domain.ParseTxType(t); err != nil {
			return filter, domain.Invalid("type", "must be %q or %q", domain.Income, domain.Expense)
		}
	}

	return filter, filter.Validate()
}

func isTrue(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "on", "yes":
		return true
	}
	return false
}
