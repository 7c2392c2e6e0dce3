package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/dvloznov/family-ledger/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const transactionSelect = `
	SELECT
		t.id,
		t.user_id,
		t.account_id,
		a.name,
		t.category_id,
		c.name,
		t.date,
		t.description,
		t.amount,
		t.type,
		t.notes,
		t.fingerprint,
		t.created_at
	FROM transactions t
	JOIN accounts a ON a.id = t.account_id
	LEFT JOIN categories c ON c.id = t.category_id
`

// CreateTransaction inserts a transaction on one of the user's accounts.
// The account and the optional category must belong to userID. The
// fingerprint is derived from date, amount and description unless the
// input carries one; a fingerprint already in the ledger yields
// ErrDuplicate.
func (s *Store) CreateTransaction(ctx context.Context, userID string, in domain.TransactionInput) (*domain.Transaction, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, userID, in); err != nil {
		return nil, fmt.Errorf("CreateTransaction: %w", err)
	}

	fingerprint := in.Fingerprint
	if fingerprint == "" {
		fingerprint = domain.Fingerprint(in.Date, in.Amount, in.Description)
	}

	id := uuid.NewString()
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO transactions (
			id, user_id, account_id, category_id,
			date, description, amount, type, notes,
			fingerprint, created_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		id, userID, in.AccountID, nullString(in.CategoryID),
		in.Date.String(), nullString(in.Description), in.Amount.StringFixed(2), string(in.Type), nullString(in.Notes),
		fingerprint, s.timestamp(),
	)
	if err != nil {
		if isUniqueViolation(err, "transactions.fingerprint") {
			return nil, fmt.Errorf("CreateTransaction: %w", domain.ErrDuplicate)
		}
		return nil, fmt.Errorf("CreateTransaction: insert: %w", err)
	}

	return s.GetTransaction(ctx, userID, id)
}

// GetTransaction returns a transaction if userID owns it.
func (s *Store) GetTransaction(ctx context.Context, userID, id string) (*domain.Transaction, error) {
	row := s.q.QueryRowContext(ctx, transactionSelect+`
		WHERE t.id = ? AND t.user_id = ?
	`, id, userID)

	tx, err := scanTransaction(row)
	if err != nil {
		return nil, notFound("GetTransaction", err)
	}
	return tx, nil
}

// ListTransactions returns the user's transactions matching filter, newest
// first.
func (s *Store) ListTransactions(ctx context.Context, userID string, filter domain.TransactionFilter) ([]domain.Transaction, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}

	from, to := filter.Range()
	var (
		where = []string{"t.user_id = ?", "t.date >= ?", "t.date < ?"}
		args  = []any{userID, from.String(), to.String()}
	)
	if filter.AccountID != "" {
		where = append(where, "t.account_id = ?")
		args = append(args, filter.AccountID)
	}
	if filter.CategoryID != "" {
		where = append(where, "t.category_id = ?")
		args = append(args, filter.CategoryID)
	}
	if filter.Type != "" {
		where = append(where, "t.type = ?")
		args = append(args, string(filter.Type))
	}

	query := transactionSelect + "WHERE " + strings.Join(where, " AND ") + `
		ORDER BY t.date DESC, t.created_at DESC
	`
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListTransactions: query: %w", err)
	}
	defer rows.Close()

	txs := []domain.Transaction{}
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("ListTransactions: scan: %w", err)
		}
		txs = append(txs, *tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListTransactions: iterate: %w", err)
	}
	return txs, nil
}

// UpdateTransaction replaces the editable fields of a transaction. The
// fingerprint is never recomputed.
func (s *Store) UpdateTransaction(ctx context.Context, userID, id string, in domain.TransactionInput) (*domain.Transaction, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	if err := s.checkReferences(ctx, userID, in); err != nil {
		return nil, fmt.Errorf("UpdateTransaction: %w", err)
	}

	res, err := s.q.ExecContext(ctx, `
		UPDATE transactions
		SET account_id = ?, category_id = ?, date = ?, description = ?,
		    amount = ?, type = ?, notes = ?
		WHERE id = ? AND user_id = ?
	`,
		in.AccountID, nullString(in.CategoryID), in.Date.String(), nullString(in.Description),
		in.Amount.StringFixed(2), string(in.Type), nullString(in.Notes),
		id, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("UpdateTransaction: update: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return nil, fmt.Errorf("UpdateTransaction: %w", err)
	}

	return s.GetTransaction(ctx, userID, id)
}

// DeleteTransaction removes a transaction.
func (s *Store) DeleteTransaction(ctx context.Context, userID, id string) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("DeleteTransaction: delete: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return fmt.Errorf("DeleteTransaction: %w", err)
	}
	return nil
}

// checkReferences makes sure the account and category of in belong to userID.
func (s *Store) checkReferences(ctx context.Context, userID string, in domain.TransactionInput) error {
	if _, err := s.GetAccount(ctx, userID, in.AccountID); err != nil {
		return err
	}
	if in.CategoryID != nil {
		if _, err := s.GetCategory(ctx, userID, *in.CategoryID); err != nil {
			return err
		}
	}
	return nil
}

func scanTransaction(r rowScanner) (*domain.Transaction, error) {
	var (
		tx           domain.Transaction
		categoryID   sql.NullString
		categoryName sql.NullString
		description  sql.NullString
		notes        sql.NullString
		date         string
		amount       string
		txType       string
		created      string
	)
	err := r.Scan(
		&tx.ID, &tx.UserID, &tx.AccountID, &tx.AccountName,
		&categoryID, &categoryName,
		&date, &description, &amount, &txType, &notes,
		&tx.Fingerprint, &created,
	)
	if err != nil {
		return nil, err
	}

	tx.Date, err = domain.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("date %q: %w", date, err)
	}
	tx.Amount, err = decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("amount %q: %w", amount, err)
	}
	tx.Type = domain.TxType(txType)
	tx.CategoryID = stringPtr(categoryID)
	tx.CategoryName = stringPtr(categoryName)
	tx.Description = stringPtr(description)
	tx.Notes = stringPtr(notes)
	tx.CreatedAt = parseTimestamp(created)
	return &tx, nil
}
