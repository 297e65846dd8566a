package lending

import (
	"context"

	"github.com/google/uuid"

	"github.com/openlib/backend/internal/domain/shared"
)

// BookLoanCount pairs a book with how often it has been borrowed
type BookLoanCount struct {
	BookID uuid.UUID `json:"book_id"`
	Loans  int64     `json:"loans"`
}

// LoanRepository defines the interface for loan persistence (the Loan Store).
// Open loans are the authoritative circulation state.
type LoanRepository interface {
	// FindByID finds a loan by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Loan, error)

	// FindOpenByBookID finds the open loan for a book, shared.ErrNotFound
	// when the book is not on loan
	FindOpenByBookID(ctx context.Context, bookID uuid.UUID) (*Loan, error)

	// FindByUserID finds all loans for a user, open and closed
	FindByUserID(ctx context.Context, userID string, filter shared.Filter) ([]Loan, error)

	// FindOpen finds all open loans
	FindOpen(ctx context.Context, filter shared.Filter) ([]Loan, error)

	// Create persists a new loan
	Create(ctx context.Context, loan *Loan) error

	// Close persists the settlement of an open loan. The write is guarded
	// by "returned_at IS NULL" so a racing double return settles exactly
	// once; the loser gets shared.ErrInvalidLoan.
	Close(ctx context.Context, loan *Loan) error

	// DeleteByBookID removes all loans for a book, returning how many were
	// removed. Used by the catalog delete cascade.
	DeleteByBookID(ctx context.Context, bookID uuid.UUID) (int64, error)

	// CountOpen counts open loans
	CountOpen(ctx context.Context) (int64, error)

	// CountByBook returns per-book loan totals ordered by count descending,
	// ties broken by book ID ascending
	CountByBook(ctx context.Context, limit int) ([]BookLoanCount, error)
}
