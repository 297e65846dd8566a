package lending

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/openlib/backend/internal/domain/shared"
)

// Loan represents one borrowing of one book by one user.
// The loan store is the source of truth for circulation: a book is on loan
// exactly when an open (ReturnedAt == nil) loan references it. The catalog's
// Available flag is derived from this and repaired against it.
type Loan struct {
	shared.BaseAggregateRoot
	BookID     uuid.UUID  `gorm:"type:uuid;not null;index"`
	UserID     string     `gorm:"type:varchar(100);not null;index"`
	BorrowedAt time.Time  `gorm:"not null"`
	DueDate    time.Time  `gorm:"not null;index"`
	ReturnedAt *time.Time `gorm:"index"`
}

// TableName returns the table name for GORM
func (Loan) TableName() string {
	return "loans"
}

// NewLoan opens a loan for the given book and user
func NewLoan(bookID uuid.UUID, userID string, borrowedAt, dueDate time.Time) (*Loan, error) {
	if bookID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_BOOK_ID", "Book ID cannot be empty")
	}
	if strings.TrimSpace(userID) == "" {
		return nil, shared.NewDomainError("INVALID_USER_ID", "User ID cannot be empty")
	}
	if !dueDate.After(borrowedAt) {
		return nil, shared.NewDomainError("INVALID_DUE_DATE", "Due date must be after the borrow time")
	}

	loan := &Loan{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		BookID:            bookID,
		UserID:            strings.TrimSpace(userID),
		BorrowedAt:        borrowedAt,
		DueDate:           dueDate,
	}

	loan.AddDomainEvent(NewLoanOpenedEvent(loan))

	return loan, nil
}

// IsOpen returns true while the book has not been returned
func (l *Loan) IsOpen() bool {
	return l.ReturnedAt == nil
}

// IsOverdueAt returns true if the loan is open and past due at the given time
func (l *Loan) IsOverdueAt(now time.Time) bool {
	return l.IsOpen() && now.After(l.DueDate)
}

// Close settles the loan at the given time. Closing an already closed loan
// fails so that a double return surfaces as INVALID_LOAN rather than silently
// moving the settlement time.
func (l *Loan) Close(now time.Time) error {
	if !l.IsOpen() {
		return shared.ErrInvalidLoan
	}

	returnedAt := now
	l.ReturnedAt = &returnedAt
	l.UpdatedAt = now
	l.IncrementVersion()

	l.AddDomainEvent(NewLoanClosedEvent(l))

	return nil
}
