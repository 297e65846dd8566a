package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")

	// Circulation errors. BookUnavailable and InvalidLoan are expected
	// user-facing outcomes; StoreUnavailable is retried before surfacing.
	ErrBookUnavailable  = NewDomainError("BOOK_UNAVAILABLE", "Book is not available for borrowing")
	ErrInvalidLoan      = NewDomainError("INVALID_LOAN", "Loan does not exist or is already returned")
	ErrStoreUnavailable = NewDomainError("STORE_UNAVAILABLE", "Backing store failed or timed out")
)
