package lending

import (
	"time"

	"github.com/google/uuid"

	"github.com/openlib/backend/internal/domain/lending"
	"github.com/openlib/backend/internal/domain/shared/valueobject"
)

// LoanResponse represents a loan in API responses. Fine is the amount owed
// as observed at response time: accruing for open loans, frozen for closed.
type LoanResponse struct {
	ID         uuid.UUID         `json:"id"`
	BookID     uuid.UUID         `json:"book_id"`
	UserID     string            `json:"user_id"`
	BorrowedAt time.Time         `json:"borrowed_at"`
	DueDate    time.Time         `json:"due_date"`
	ReturnedAt *time.Time        `json:"returned_at,omitempty"`
	Open       bool              `json:"open"`
	Overdue    bool              `json:"overdue"`
	DaysLate   int               `json:"days_late"`
	Fine       valueobject.Money `json:"fine"`
	Version    int               `json:"version"`
}

// ToLoanResponse converts a domain loan to a response DTO, pricing the fine
// with the given policy at the given time
func ToLoanResponse(loan *lending.Loan, policy lending.FinePolicy, now time.Time) LoanResponse {
	settledAt := now
	if loan.ReturnedAt != nil {
		settledAt = *loan.ReturnedAt
	}
	return LoanResponse{
		ID:         loan.ID,
		BookID:     loan.BookID,
		UserID:     loan.UserID,
		BorrowedAt: loan.BorrowedAt,
		DueDate:    loan.DueDate,
		ReturnedAt: loan.ReturnedAt,
		Open:       loan.IsOpen(),
		Overdue:    loan.IsOverdueAt(now) || (loan.ReturnedAt != nil && loan.ReturnedAt.After(loan.DueDate)),
		DaysLate:   lending.DaysLate(loan.DueDate, settledAt),
		Fine:       policy.CalculateFine(loan, now),
		Version:    loan.Version,
	}
}

// ToLoanResponses converts a slice of domain loans to response DTOs
func ToLoanResponses(loans []lending.Loan, policy lending.FinePolicy, now time.Time) []LoanResponse {
	responses := make([]LoanResponse, len(loans))
	for i := range loans {
		responses[i] = ToLoanResponse(&loans[i], policy, now)
	}
	return responses
}

// BorrowRequest represents a request to borrow a book
type BorrowRequest struct {
	BookID   uuid.UUID `json:"book_id" binding:"required"`
	UserID   string    `json:"user_id" binding:"required,min=1,max=100"`
	LoanDays int       `json:"loan_days" binding:"omitempty,min=1,max=90"`
}

// ReturnResponse represents the outcome of returning a book
type ReturnResponse struct {
	Loan LoanResponse      `json:"loan"`
	Fine valueobject.Money `json:"fine"`
}

// ReconcileBookResponse reports a single-book reconciliation outcome
type ReconcileBookResponse struct {
	BookID    uuid.UUID `json:"book_id"`
	Available bool      `json:"available"`
	Repaired  bool      `json:"repaired"`
}

// ReconcileAllResponse reports a full catalog reconciliation sweep
type ReconcileAllResponse struct {
	Scanned  int64 `json:"scanned"`
	Repaired int64 `json:"repaired"`
}

// LoanListFilter represents filter options for loan lists
type LoanListFilter struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by" binding:"omitempty,oneof=created_at borrowed_at due_date returned_at"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}
