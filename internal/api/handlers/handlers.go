package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/dvloznov/family-ledger/internal/api/middleware"
	"github.com/dvloznov/family-ledger/internal/domain"
	"github.com/dvloznov/family-ledger/internal/pipeline"
	"github.com/rs/zerolog"
)

// Ledger is the storage the CRUD and report handlers need.
type Ledger interface {
	CreateAccount(ctx context.Context, userID string, in domain.AccountInput) (*domain.Account, error)
	GetAccount(ctx context.Context, userID, id string) (*domain.Account, error)
	ListAccounts(ctx context.Context, userID string) ([]domain.Account, error)
	UpdateAccount(ctx context.Context, userID, id string, in domain.AccountInput) (*domain.Account, error)
	DeleteAccount(ctx context.Context, userID, id string) error

	CreateCategory(ctx context.Context, userID string, in domain.CategoryInput) (*domain.Category, error)
	GetCategory(ctx context.Context, userID, id string) (*domain.Category, error)
	ListCategories(ctx context.Context, userID string) ([]domain.Category, error)
	UpdateCategory(ctx context.Context, userID, id string, in domain.CategoryInput) (*domain.Category, error)
	DeleteCategory(ctx context.Context, userID, id string) error

	CreateTransaction(ctx context.Context, userID string, in domain.TransactionInput) (*domain.Transaction, error)
	GetTransaction(ctx context.Context, userID, id string) (*domain.Transaction, error)
	ListTransactions(ctx context.Context, userID string, filter domain.TransactionFilter) ([]domain.Transaction, error)
	UpdateTransaction(ctx context.Context, userID, id string, in domain.TransactionInput) (*domain.Transaction, error)
	DeleteTransaction(ctx context.Context, userID, id string) error
}

// statusFor maps an error onto an HTTP status and a message safe to show.
func statusFor(err error) (int, string) {
	var ve *domain.ValidationError
	switch {
	case errors.As(err, &ve):
		return http.StatusBadRequest, ve.Error()
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, domain.ErrDuplicate):
		return http.StatusConflict, "Transaction already exists"
	case errors.Is(err, domain.ErrInvalidState):
		return http.StatusConflict, "No import in progress"
	case errors.Is(err, pipeline.ErrNoTransactions):
		return http.StatusUnprocessableEntity, "No transactions found in the statement, please try again"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// writeFailure writes err as a JSON error. Server errors are logged with
// msg; client errors are not.
func writeFailure(w http.ResponseWriter, log zerolog.Logger, err error, msg string) {
	status, text := statusFor(err)
	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Msg(msg)
	}
	middleware.WriteError(w, status, text)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return domain.Invalid("body", "invalid JSON: %v", err)
	}
	return nil
}

func userID(r *http.Request) string {
	return middleware.UserIDFromContext(r.Context())
}

func sessionID(r *http.Request) string {
	return middleware.SessionIDFromContext(r.Context())
}

func pathID(r *http.Request) string {
	return strings.TrimSpace(r.PathValue("id"))
}
