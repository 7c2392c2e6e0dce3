package handlers

import (
	"net/http"
	"time"

	"github.com/dvloznov/family-ledger/internal/api/middleware"
)

// Handlers bundles every endpoint of the API.
type Handlers struct {
	Accounts     *AccountsHandler
	Categories   *CategoriesHandler
	Transactions *TransactionsHandler
	Reports      *ReportsHandler
	Imports      *ImportsHandler
}

// Routes registers the /api endpoints on a new mux. Every route goes
// through auth; /health does not.
func (h *Handlers) Routes(authHeader string) http.Handler {
	api := http.NewServeMux()

	api.HandleFunc("GET /api/accounts", h.Accounts.List)
	api.HandleFunc("POST /api/accounts", h.Accounts.Create)
	api.HandleFunc("GET /api/accounts/{id}", h.Accounts.Get)
	api.HandleFunc("PUT /api/accounts/{id}", h.Accounts.Update)
	api.HandleFunc("DELETE /api/accounts/{id}", h.Accounts.Delete)

	api.HandleFunc("GET /api/categories", h.Categories.List)
	api.HandleFunc("POST /api/categories", h.Categories.Create)
	api.HandleFunc("GET /api/categories/{id}", h.Categories.Get)
	api.HandleFunc("PUT /api/categories/{id}", h.Categories.Update)
	api.HandleFunc("DELETE /api/categories/{id}", h.Categories.Delete)

	api.HandleFunc("GET /api/transactions", h.Transactions.List)
	api.HandleFunc("POST /api/transactions", h.Transactions.Create)
	api.HandleFunc("GET /api/transactions/{id}", h.Transactions.Get)
	api.HandleFunc("PUT /api/transactions/{id}", h.Transactions.Update)
	api.HandleFunc("DELETE /api/transactions/{id}", h.Transactions.Delete)

	api.HandleFunc("GET /api/summary", h.Reports.Summary)
	api.HandleFunc("GET /api/charts/flow.png", h.Reports.FlowChart)
	api.HandleFunc("GET /api/charts/categories.png", h.Reports.CategoryChart)

	api.HandleFunc("POST /api/imports", h.Imports.Upload)
	api.HandleFunc("GET /api/imports/current", h.Imports.Current)
	api.HandleFunc("POST /api/imports/confirm", h.Imports.Confirm)
	api.HandleFunc("POST /api/imports/cancel", h.Imports.Cancel)

	mux := http.NewServeMux()
	mux.Handle("/api/", middleware.Auth(authHeader)(api))
	mux.HandleFunc("GET /health", Health)
	return mux
}

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}
