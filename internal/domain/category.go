package domain

import (
	"strings"
	"time"
)

// FallbackCategoryName is the bucket imported rows land in when no category
// applies. It is created per user on first use.
const FallbackCategoryName = "Imported"

// Category groups transactions for reporting.
type Category struct {
	ID        string    `json:"id"`
	UserID    string    `json:"-"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// CategoryInput carries the user-editable fields of a Category.
type CategoryInput struct {
	Name string `json:"name"`
}

// Validate trims the input and checks required fields.
func (in *CategoryInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	if in.Name == "" {
		return Invalid("name", "is required")
	}
	if len(in.Name) > 100 {
		return Invalid("name", "must be at most 100 characters")
	}
	return nil
}

// CategoryNames returns the names of cats in order.
func CategoryNames(cats []Category) []string {
	names := make([]string, 0, len(cats))
	for _, c := range cats {
		names = append(names, c.Name)
	}
	return names
}
