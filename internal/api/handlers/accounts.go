package handlers

import (
	"net/http"

	"github.com/dvloznov/family-ledger/internal/api/middleware"
	"github.com/dvloznov/family-ledger/internal/domain"
	"github.com/dvloznov/family-ledger/internal/logger"
)

// AccountsHandler handles account endpoints.
type AccountsHandler struct {
	ledger Ledger
}

// NewAccountsHandler creates a new accounts handler.
func NewAccountsHandler(ledger Ledger) *AccountsHandler {
	return &AccountsHandler{ledger: ledger}
}

// List handles GET /api/accounts
func (h *AccountsHandler) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.ledger.ListAccounts(r.Context(), userID(r))
	if err != nil {
		writeFailure(w, logger.FromContext(r.Context()), err, "Failed to list accounts")
		return
	}
	if accounts == nil {
		accounts = []domain.Account{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": accounts,
		"count":    len(accounts),
	})
}

// Create handles POST /api/accounts
func (h *AccountsHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var in domain.AccountInput
	if err := decodeJSON(r, &in); err != nil {
		writeFailure(w, log, err, "")
		return
	}

	account, err := h.ledger.CreateAccount(r.Context(), userID(r), in)
	if err != nil {
		writeFailure(w, log, err, "Failed to create account")
		return
	}

	log.Info().Str("account_id", account.ID).Msg("Account created")
	middleware.WriteJSON(w, http.StatusCreated, account)
}

// Get handles GET /api/accounts/{id}
func (h *AccountsHandler) Get(w http.ResponseWriter, r *http.Request) {
	account, err := h.ledger.GetAccount(r.Context(), userID(r), pathID(r))
	if err != nil {
		writeFailure(w, logger.FromContext(r.Context()), err, "Failed to get account")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, account)
}

// Update handles PUT /api/accounts/{id}
func (h *AccountsHandler) Update(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var in domain.AccountInput
	if err := decodeJSON(r, &in); err != nil {
		writeFailure(w, log, err, "")
		return
	}

	account, err := h.ledger.UpdateAccount(r.Context(), userID(r), pathID(r), in)
	if err != nil {
		writeFailure(w, log, err, "Failed to update account")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, account)
}

// Delete handles DELETE /api/accounts/{id}. The account's transactions
// are deleted with it.
func (h *AccountsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	id := pathID(r)

	if err := h.ledger.DeleteAccount(r.Context(), userID(r), id); err != nil {
		writeFailure(w, log, err, "Failed to delete account")
		return
	}

	log.Info().Str("account_id", id).Msg("Account deleted")
	w.WriteHeader(http.StatusNoContent)
}
