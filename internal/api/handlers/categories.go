package handlers

import (
	"net/http"

	"github.com/dvloznov/family-ledger/internal/api/middleware"
	"github.com/dvloznov/family-ledger/internal/domain"
	"github.com/dvloznov/family-ledger/internal/logger"
)

// CategoriesHandler handles category endpoints.
type CategoriesHandler struct {
	ledger Ledger
}

// NewCategoriesHandler creates a new categories handler.
func NewCategoriesHandler(ledger Ledger) *CategoriesHandler {
	return &CategoriesHandler{ledger: ledger}
}

// List handles GET /api/categories
func (h *CategoriesHandler) List(w http.ResponseWriter, r *http.Request) {
	categories, err := h.ledger.ListCategories(r.Context(), userID(r))
	if err != nil {
		writeFailure(w, logger.FromContext(r.Context()), err, "Failed to list categories")
		return
	}
	if categories == nil {
		categories = []domain.Category{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
		"count":      len(categories),
	})
}

// Create handles POST /api/categories
func (h *CategoriesHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var in domain.CategoryInput
	if err := decodeJSON(r, &in); err != nil {
		writeFailure(w, log, err, "")
		return
	}

	category, err := h.ledger.CreateCategory(r.Context(), userID(r), in)
	if err != nil {
		writeFailure(w, log, err, "Failed to create category")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, category)
}

// Get handles GET /api/categories/{id}
func (h *CategoriesHandler) Get(w http.ResponseWriter, r *http.Request) {
	category, err := h.ledger.GetCategory(r.Context(), userID(r), pathID(r))
	if err != nil {
		writeFailure(w, logger.FromContext(r.Context()), err, "Failed to get category")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, category)
}

// Update handles PUT /api/categories/{id}
func (h *CategoriesHandler) Update(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())

	var in domain.CategoryInput
	if err := decodeJSON(r, &in); err != nil {
		writeFailure(w, log, err, "")
		return
	}

	category, err := h.ledger.UpdateCategory(r.Context(), userID(r), pathID(r), in)
	if err != nil {
		writeFailure(w, log, err, "Failed to update category")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, category)
}

// Delete handles DELETE /api/categories/{id}. Transactions in the
// category become uncategorised.
func (h *CategoriesHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.DeleteCategory(r.Context(), userID(r), pathID(r)); err != nil {
		writeFailure(w, logger.FromContext(r.Context()), err, "Failed to delete category")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
