package lending

import (
	"time"

	"github.com/google/uuid"

	"github.com/openlib/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeLoan = "Loan"

// Event type constants
const (
	EventTypeLoanOpened = "LoanOpened"
	EventTypeLoanClosed = "LoanClosed"
)

// LoanOpenedEvent is published when a book is borrowed
type LoanOpenedEvent struct {
	shared.BaseDomainEvent
	LoanID     uuid.UUID `json:"loan_id"`
	BookID     uuid.UUID `json:"book_id"`
	UserID     string    `json:"user_id"`
	BorrowedAt time.Time `json:"borrowed_at"`
	DueDate    time.Time `json:"due_date"`
}

// NewLoanOpenedEvent creates a new LoanOpenedEvent
func NewLoanOpenedEvent(loan *Loan) *LoanOpenedEvent {
	return &LoanOpenedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLoanOpened, AggregateTypeLoan, loan.ID),
		LoanID:          loan.ID,
		BookID:          loan.BookID,
		UserID:          loan.UserID,
		BorrowedAt:      loan.BorrowedAt,
		DueDate:         loan.DueDate,
	}
}

// LoanClosedEvent is published when a borrowed book is returned
type LoanClosedEvent struct {
	shared.BaseDomainEvent
	LoanID     uuid.UUID `json:"loan_id"`
	BookID     uuid.UUID `json:"book_id"`
	UserID     string    `json:"user_id"`
	ReturnedAt time.Time `json:"returned_at"`
	WasOverdue bool      `json:"was_overdue"`
}

// NewLoanClosedEvent creates a new LoanClosedEvent
func NewLoanClosedEvent(loan *Loan) *LoanClosedEvent {
	event := &LoanClosedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLoanClosed, AggregateTypeLoan, loan.ID),
		LoanID:          loan.ID,
		BookID:          loan.BookID,
		UserID:          loan.UserID,
	}
	if loan.ReturnedAt != nil {
		event.ReturnedAt = *loan.ReturnedAt
		event.WasOverdue = loan.ReturnedAt.After(loan.DueDate)
	}
	return event
}
