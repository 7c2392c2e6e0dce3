package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/dvloznov/family-ledger/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const accountColumns = `id, user_id, name, opening_balance, institution, created_at`

// CreateAccount inserts a new account owned by userID.
func (s *Store) CreateAccount(ctx context.Context, userID string, in domain.AccountInput) (*domain.Account, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	acc := &domain.Account{
		ID:             uuid.NewString(),
		UserID:         userID,
		Name:           in.Name,
		OpeningBalance: in.OpeningBalance,
		Institution:    in.Institution,
	}
	created := s.timestamp()

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO accounts (id, user_id, name, opening_balance, institution, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, acc.ID, userID, acc.Name, acc.OpeningBalance.String(), nullString(acc.Institution), created)
	if err != nil {
		return nil, fmt.Errorf("CreateAccount: insert: %w", err)
	}

	acc.CreatedAt = parseTimestamp(created)
	return acc, nil
}

// GetAccount returns the account with the given ID if userID owns it.
func (s *Store) GetAccount(ctx context.Context, userID, id string) (*domain.Account, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE id = ? AND user_id = ?
	`, id, userID)

	acc, err := scanAccount(row)
	if err != nil {
		return nil, notFound("GetAccount", err)
	}
	return acc, nil
}

// ListAccounts returns every account of userID ordered by name.
func (s *Store) ListAccounts(ctx context.Context, userID string) ([]domain.Account, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+accountColumns+`
		FROM accounts
		WHERE user_id = ?
		ORDER BY name COLLATE NOCASE, created_at
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("ListAccounts: query: %w", err)
	}
	defer rows.Close()

	accounts := []domain.Account{}
	for rows.Next() {
		acc, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("ListAccounts: scan: %w", err)
		}
		accounts = append(accounts, *acc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListAccounts: iterate: %w", err)
	}
	return accounts, nil
}

// UpdateAccount replaces the editable fields of an account.
func (s *Store) UpdateAccount(ctx context.Context, userID, id string, in domain.AccountInput) (*domain.Account, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	res, err := s.q.ExecContext(ctx, `
		UPDATE accounts
		SET name = ?, opening_balance = ?, institution = ?
		WHERE id = ? AND user_id = ?
	`, in.Name, in.OpeningBalance.String(), nullString(in.Institution), id, userID)
	if err != nil {
		return nil, fmt.Errorf("UpdateAccount: update: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return nil, fmt.Errorf("UpdateAccount: %w", err)
	}

	return s.GetAccount(ctx, userID, id)
}

// DeleteAccount removes an account together with all of its transactions.
func (s *Store) DeleteAccount(ctx context.Context, userID, id string) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM accounts WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("DeleteAccount: delete: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return fmt.Errorf("DeleteAccount: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(r rowScanner) (*domain.Account, error) {
	var (
		acc         domain.Account
		balance     string
		institution sql.NullString
		created     string
	)
	if err := r.Scan(&acc.ID, &acc.UserID, &acc.Name, &balance, &institution, &created); err != nil {
		return nil, err
	}

	opening, err := decimal.NewFromString(balance)
	if err != nil {
		return nil, fmt.Errorf("opening_balance %q: %w", balance, err)
	}
	acc.OpeningBalance = opening
	acc.Institution = stringPtr(institution)
	acc.CreatedAt = parseTimestamp(created)
	return &acc, nil
}
