package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dvloznov/family-ledger/internal/domain"
	"github.com/dvloznov/family-ledger/internal/logger"
	"github.com/dvloznov/family-ledger/internal/session"
)

// ErrNoTransactions is returned when a statement yielded no usable rows.
// The user may retry with another file.
var ErrNoTransactions = errors.New("no transactions found")

// Upload is a statement submitted for import.
type Upload struct {
	AccountID string
	Filename  string
	Body      io.Reader
}

// ReviewRow is a staged candidate with the user's matching category, if
// the suggested name exists.
type ReviewRow struct {
	domain.Candidate
	CategoryID *string `json:"category_id,omitempty"`
}

// Review is the import state of a session as shown to its user.
type Review struct {
	State      session.ImportState `json:"state"`
	BatchID    string              `json:"batch_id,omitempty"`
	AccountID  string              `json:"account_id,omitempty"`
	Filename   string              `json:"filename,omitempty"`
	Rows       []ReviewRow         `json:"rows"`
	Categories []domain.Category   `json:"categories"`
}

// SubmittedRow is one confirmed row as edited by the user. Fields are raw
// form values. An empty CategoryID selects the fallback category.
type SubmittedRow struct {
	Date        string
	Description string
	Amount      string
	Type        string
	CategoryID  string
}

// Submission is the user's confirmation of a staged batch.
type Submission struct {
	AccountID string
	Rows      []SubmittedRow
}

// RowsFromForm zips the parallel form arrays of a confirmation into rows.
// categories may be shorter than the other arrays; missing entries select
// the fallback category.
func RowsFromForm(dates, descriptions, amounts, types, categories []string) ([]SubmittedRow, error) {
	n := len(dates)
	if len(descriptions) != n || len(amounts) != n || len(types) != n || len(categories) > n {
		return nil, domain.Invalid("rows", "field arrays have different lengths")
	}

	rows := make([]SubmittedRow, n)
	for i := range rows {
		rows[i] = SubmittedRow{
			Date:        dates[i],
			Description: descriptions[i],
			Amount:      amounts[i],
			Type:        types[i],
		}
		if i < len(categories) {
			rows[i].CategoryID = strings.TrimSpace(categories[i])
		}
	}
	return rows, nil
}

// Importer drives a session through upload, review and confirmation.
type Importer struct {
	ledger   TxLedger
	sessions *session.Store
	parser   *Parser
	hooks    Hooks
	now      func() time.Time
}

// NewImporter wires an Importer. hooks run after every successful commit.
func NewImporter(ledger TxLedger, sessions *session.Store, parser *Parser, hooks ...Hook) *Importer {
	return &Importer{
		ledger:   ledger,
		sessions: sessions,
		parser:   parser,
		hooks:    hooks,
		now:      time.Now,
	}
}

// Stage parses an upload into the session's batch for review. A
// successful parse replaces any batch the session held before. The target
// account must belong to userID. A statement without usable rows returns
// ErrNoTransactions and leaves the previous batch, if any, in place.
func (i *Importer) Stage(ctx context.Context, userID, sessionID string, up Upload) (*session.ImportBatch, error) {
	up.AccountID = strings.TrimSpace(up.AccountID)
	if up.AccountID == "" {
		return nil, domain.Invalid("account", "is required")
	}
	if up.Body == nil || strings.TrimSpace(up.Filename) == "" {
		return nil, domain.Invalid("file", "is required")
	}

	if _, err := i.ledger.GetAccount(ctx, userID, up.AccountID); err != nil {
		return nil, fmt.Errorf("Stage: %w", err)
	}
	categories, err := i.ledger.ListCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Stage: list categories: %w", err)
	}

	prior, _ := i.sessions.Get(sessionID)
	batch, err := i.sessions.Begin(sessionID, userID, up.AccountID, up.Filename)
	if err != nil {
		return nil, fmt.Errorf("Stage: %w", err)
	}

	log := logger.WithFields(logger.FromContext(ctx), map[string]interface{}{
		"batch_id":   batch.ID,
		"account_id": up.AccountID,
		"filename":   up.Filename,
	})
	ctx = logger.WithContext(ctx, log)

	rows := i.parser.Parse(ctx, up.Filename, up.Body, domain.CategoryNames(categories))
	if len(rows) == 0 {
		i.sessions.Abort(sessionID, batch.ID, prior)
		return nil, ErrNoTransactions
	}

	staged, err := i.sessions.Stage(sessionID, batch.ID, rows)
	if err != nil {
		return nil, fmt.Errorf("Stage: %w", err)
	}

	log.Info().Int("rows", len(rows)).Msg("Import staged")
	return staged, nil
}

// Current returns the session's import for review. A session without a
// batch of userID's reports StateIdle.
func (i *Importer) Current(ctx context.Context, userID, sessionID string) (*Review, error) {
	categories, err := i.ledger.ListCategories(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("Current: list categories: %w", err)
	}

	review := &Review{
		State:      session.StateIdle,
		Rows:       []ReviewRow{},
		Categories: categories,
	}

	batch, ok := i.sessions.Get(sessionID)
	if !ok || batch.UserID != userID {
		return review, nil
	}

	byName := make(map[string]string, len(categories))
	for _, c := range categories {
		byName[strings.ToLower(c.Name)] = c.ID
	}

	review.State = batch.State
	review.BatchID = batch.ID
	review.AccountID = batch.AccountID
	review.Filename = batch.Filename
	for _, c := range batch.Rows {
		row := ReviewRow{Candidate: c}
		if id, ok := byName[strings.ToLower(c.Category)]; ok {
			row.CategoryID = &id
		}
		review.Rows = append(review.Rows, row)
	}
	return review, nil
}

// Confirm writes the submitted rows of the session's staged batch to the
// ledger in one transaction. Rows without a category go to the user's
// fallback category, created on first use. A category or account that is
// not userID's aborts the whole batch with ErrNotFound. On failure the
// staged batch is kept so the user can correct it and retry.
func (i *Importer) Confirm(ctx context.Context, userID, sessionID string, sub Submission) (*CommitReceipt, error) {
	batch, ok := i.sessions.Get(sessionID)
	if !ok || batch.UserID != userID || batch.State != session.StateStaged {
		return nil, fmt.Errorf("Confirm: no staged import: %w", domain.ErrInvalidState)
	}
	if sub.AccountID != "" && sub.AccountID != batch.AccountID {
		return nil, domain.Invalid("account", "does not match the staged import")
	}

	inputs, err := i.buildInputs(batch.AccountID, sub.Rows)
	if err != nil {
		return nil, err
	}

	receipt := CommitReceipt{
		BatchID:   batch.ID,
		UserID:    userID,
		AccountID: batch.AccountID,
		Filename:  batch.Filename,
	}

	err = i.ledger.WithinTx(ctx, func(tx Ledger) error {
		account, err := tx.GetAccount(ctx, userID, batch.AccountID)
		if err != nil {
			return err
		}
		receipt.AccountName = account.Name

		var fallback *domain.Category
		created := make([]domain.Transaction, 0, len(inputs))
		for n, in := range inputs {
			if in.CategoryID != nil {
				if _, err := tx.GetCategory(ctx, userID, *in.CategoryID); err != nil {
					return fmt.Errorf("row %d: category: %w", n+1, err)
				}
			} else {
				if fallback == nil {
					fallback, err = tx.GetOrCreateCategory(ctx, userID, domain.FallbackCategoryName)
					if err != nil {
						return fmt.Errorf("row %d: fallback category: %w", n+1, err)
					}
				}
				in.CategoryID = &fallback.ID
			}

			t, err := tx.CreateTransaction(ctx, userID, in)
			if err != nil {
				return fmt.Errorf("row %d: %w", n+1, err)
			}
			created = append(created, *t)
		}
		receipt.Transactions = created
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("Confirm: %w", err)
	}

	receipt.CommittedAt = i.now()
	i.sessions.Clear(sessionID)

	log := logger.FromContext(ctx)
	log.Info().
		Str("batch_id", receipt.BatchID).
		Int("created", receipt.Count()).
		Msg("Import committed")

	if len(i.hooks) > 0 {
		// Hook failures never undo a commit; Run has already logged them.
		_ = i.hooks.Run(context.WithoutCancel(ctx), receipt)
	}
	return &receipt, nil
}

// Cancel discards the session's import. It is safe to call at any time.
func (i *Importer) Cancel(ctx context.Context, sessionID string) session.ImportState {
	i.sessions.Clear(sessionID)
	return session.StateCancelled
}

func (i *Importer) buildInputs(accountID string, rows []SubmittedRow) ([]domain.TransactionInput, error) {
	if len(rows) == 0 {
		return nil, domain.Invalid("rows", "at least one row is required")
	}

	inputs := make([]domain.TransactionInput, 0, len(rows))
	for n, r := range rows {
		field := func(name string) string { return fmt.Sprintf("rows[%d].%s", n, name) }

		date, err := domain.ParseDate(r.Date)
		if err != nil {
			return nil, domain.Invalid(field("date"), "must be YYYY-MM-DD")
		}
		amount, err := domain.ParseAmount(r.Amount)
		if err != nil {
			var ve *domain.ValidationError
			if errors.As(err, &ve) {
				return nil, domain.Invalid(field("amount"), "%s", ve.Message)
			}
			return nil, domain.Invalid(field("amount"), "must be a number")
		}
		typ, err := domain.ParseTxType(r.Type)
		if err != nil {
			return nil, domain.Invalid(field("type"), "must be %q or %q", domain.Income, domain.Expense)
		}

		desc := strings.TrimSpace(r.Description)
		in := domain.TransactionInput{
			AccountID:   accountID,
			Date:        date,
			Description: &desc,
			Amount:      amount,
			Type:        typ,
		}
		if r.CategoryID != "" {
			id := r.CategoryID
			in.CategoryID = &id
		}
		if err := in.Validate(); err != nil {
			var ve *domain.ValidationError
			if errors.As(err, &ve) {
				return nil, domain.Invalid(field(ve.Field), "%s", ve.Message)
			}
			return nil, err
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}
