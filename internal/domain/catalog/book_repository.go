package catalog

import (
	"context"

	"github.com/google/uuid"

	"github.com/openlib/backend/internal/domain/shared"
)

// CategoryCount holds per-category inventory counts for the catalog summary
type CategoryCount struct {
	Category  string `json:"category"`
	Total     int64  `json:"total"`
	Available int64  `json:"available"`
	Borrowed  int64  `json:"borrowed"`
}

// BookRepository defines the interface for book persistence (the Catalog Store)
type BookRepository interface {
	// FindByID finds a book by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Book, error)

	// FindAll finds all books matching the filter; filter.Search matches
	// title, author and ISBN
	FindAll(ctx context.Context, filter shared.Filter) ([]Book, error)

	// FindByCategory finds all books in a category
	FindByCategory(ctx context.Context, category string, filter shared.Filter) ([]Book, error)

	// Create persists a new book
	Create(ctx context.Context, book *Book) error

	// Save updates a book's descriptive fields without touching the
	// Available flag
	Save(ctx context.Context, book *Book) error

	// SaveAvailability persists an availability flip with an optimistic
	// version check. Returns shared.ErrConcurrencyConflict when the book
	// was modified concurrently - the caller re-reads and re-decides.
	SaveAvailability(ctx context.Context, book *Book) error

	// Delete deletes a book
	Delete(ctx context.Context, id uuid.UUID) error

	// Count counts books matching the filter
	Count(ctx context.Context, filter shared.Filter) (int64, error)

	// CountByCategory returns total/available/borrowed counts per category
	CountByCategory(ctx context.Context) ([]CategoryCount, error)
}
