package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dvloznov/family-ledger/internal/domain"
	"github.com/google/uuid"
)

const categoryColumns = `id, user_id, name, created_at`

// CreateCategory inserts a new category owned by userID. Names are unique
// per user.
func (s *Store) CreateCategory(ctx context.Context, userID string, in domain.CategoryInput) (*domain.Category, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	cat := &domain.Category{ID: uuid.NewString(), UserID: userID, Name: in.Name}
	created := s.timestamp()

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO categories (id, user_id, name, created_at)
		VALUES (?, ?, ?, ?)
	`, cat.ID, userID, cat.Name, created)
	if err != nil {
		if isUniqueViolation(err, "categories.") {
			return nil, domain.Invalid("name", "category %q already exists", in.Name)
		}
		return nil, fmt.Errorf("CreateCategory: insert: %w", err)
	}

	cat.CreatedAt = parseTimestamp(created)
	return cat, nil
}

// GetCategory returns the category with the given ID if userID owns it.
func (s *Store) GetCategory(ctx context.Context, userID, id string) (*domain.Category, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT `+categoryColumns+`
		FROM categories
		WHERE id = ? AND user_id = ?
	`, id, userID)

	cat, err := scanCategory(row)
	if err != nil {
		return nil, notFound("GetCategory", err)
	}
	return cat, nil
}

// ListCategories returns every category of userID ordered by name.
func (s *Store) ListCategories(ctx context.Context, userID string) ([]domain.Category, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+categoryColumns+`
		FROM categories
		WHERE user_id = ?
		ORDER BY name COLLATE NOCASE
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("ListCategories: query: %w", err)
	}
	defer rows.Close()

	categories := []domain.Category{}
	for rows.Next() {
		cat, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("ListCategories: scan: %w", err)
		}
		categories = append(categories, *cat)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ListCategories: iterate: %w", err)
	}
	return categories, nil
}

// UpdateCategory renames a category.
func (s *Store) UpdateCategory(ctx context.Context, userID, id string, in domain.CategoryInput) (*domain.Category, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	res, err := s.q.ExecContext(ctx, `
		UPDATE categories SET name = ? WHERE id = ? AND user_id = ?
	`, in.Name, id, userID)
	if err != nil {
		if isUniqueViolation(err, "categories.") {
			return nil, domain.Invalid("name", "category %q already exists", in.Name)
		}
		return nil, fmt.Errorf("UpdateCategory: update: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return nil, fmt.Errorf("UpdateCategory: %w", err)
	}

	return s.GetCategory(ctx, userID, id)
}

// DeleteCategory removes a category. Its transactions are kept and become
// uncategorised.
func (s *Store) DeleteCategory(ctx context.Context, userID, id string) error {
	res, err := s.q.ExecContext(ctx, `DELETE FROM categories WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return fmt.Errorf("DeleteCategory: delete: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return fmt.Errorf("DeleteCategory: %w", err)
	}
	return nil
}

// GetOrCreateCategory returns the user's category called name, creating it
// on first use. Repeated calls return the same category.
func (s *Store) GetOrCreateCategory(ctx context.Context, userID, name string) (*domain.Category, error) {
	in := domain.CategoryInput{Name: name}
	if err := in.Validate(); err != nil {
		return nil, err
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO categories (id, user_id, name, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (user_id, name) DO NOTHING
	`, uuid.NewString(), userID, in.Name, s.timestamp())
	if err != nil {
		return nil, fmt.Errorf("GetOrCreateCategory: insert: %w", err)
	}

	row := s.q.QueryRowContext(ctx, `
		SELECT `+categoryColumns+`
		FROM categories
		WHERE user_id = ? AND name = ?
	`, userID, in.Name)

	cat, err := scanCategory(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("GetOrCreateCategory: category %q vanished: %w", in.Name, domain.ErrNotFound)
		}
		return nil, fmt.Errorf("GetOrCreateCategory: select: %w", err)
	}
	return cat, nil
}

func scanCategory(r rowScanner) (*domain.Category, error) {
	var (
		cat     domain.Category
		created string
	)
	if err := r.Scan(&cat.ID, &cat.UserID, &cat.Name, &created); err != nil {
		return nil, err
	}
	cat.CreatedAt = parseTimestamp(created)
	return &cat, nil
}
