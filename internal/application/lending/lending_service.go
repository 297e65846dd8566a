package lending

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openlib/backend/internal/domain/catalog"
	"github.com/openlib/backend/internal/domain/lending"
	"github.com/openlib/backend/internal/domain/shared"
)

const (
	// DefaultLoanDays is the default loan period when the request does not set one
	DefaultLoanDays = 14

	// DefaultFlagWriteAttempts bounds the retries on the availability flag CAS
	DefaultFlagWriteAttempts = 3

	// DefaultRetryBackoff is the pause between flag write attempts
	DefaultRetryBackoff = 25 * time.Millisecond
)

// LendingService drives the borrow/return lifecycle and keeps the catalog's
// Available flag consistent with the loan store. The loan store is the source
// of truth; the flag is a cache that this service writes through an optimistic
// version check and repairs via reconciliation when writes half-land.
type LendingService struct {
	bookRepo       catalog.BookRepository
	loanRepo       lending.LoanRepository
	finePolicy     lending.FinePolicy
	eventPublisher shared.EventPublisher
	logger         *zap.Logger

	loanDays     int
	flagAttempts int
	retryBackoff time.Duration
	now          func() time.Time
}

// NewLendingService creates a new LendingService
func NewLendingService(
	bookRepo catalog.BookRepository,
	loanRepo lending.LoanRepository,
	finePolicy lending.FinePolicy,
	logger *zap.Logger,
) *LendingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LendingService{
		bookRepo:     bookRepo,
		loanRepo:     loanRepo,
		finePolicy:   finePolicy,
		logger:       logger,
		loanDays:     DefaultLoanDays,
		flagAttempts: DefaultFlagWriteAttempts,
		retryBackoff: DefaultRetryBackoff,
		now:          time.Now,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *LendingService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetLoanDays overrides the default loan period
func (s *LendingService) SetLoanDays(days int) {
	if days > 0 {
		s.loanDays = days
	}
}

// SetFlagWriteAttempts overrides the availability write retry budget
func (s *LendingService) SetFlagWriteAttempts(attempts int) {
	if attempts > 0 {
		s.flagAttempts = attempts
	}
}

// SetRetryBackoff overrides the pause between flag write attempts
func (s *LendingService) SetRetryBackoff(backoff time.Duration) {
	if backoff >= 0 {
		s.retryBackoff = backoff
	}
}

// SetClock overrides the time source, used by tests
func (s *LendingService) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// FinePolicy returns the fine policy in effect
func (s *LendingService) FinePolicy() lending.FinePolicy {
	return s.finePolicy
}

func (s *LendingService) publishEvents(ctx context.Context, root shared.AggregateRoot) {
	if s.eventPublisher == nil {
		return
	}
	events := root.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
	root.ClearDomainEvents()
}

// Borrow checks a book out to a user. The availability flag write is the
// serialization point: it carries the book's version, so of two racing
// borrowers exactly one CAS lands and the loser re-reads to find the book
// already gone. Only after the flag lands is the loan row created.
func (s *LendingService) Borrow(ctx context.Context, req BorrowRequest) (*LoanResponse, error) {
	loanDays := s.loanDays
	if req.LoanDays > 0 {
		loanDays = req.LoanDays
	}

	book, err := s.claimBook(ctx, req.BookID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	loan, err := lending.NewLoan(book.ID, req.UserID, now, now.AddDate(0, 0, loanDays))
	if err != nil {
		s.releaseClaim(ctx, book.ID)
		return nil, err
	}

	if err := s.loanRepo.Create(ctx, loan); err != nil {
		// The flag flipped but the loan row never landed. Undo the claim so
		// the book is not stranded unavailable; reconciliation catches the
		// cases where even the undo fails.
		s.releaseClaim(ctx, book.ID)
		s.logger.Error("loan create failed after availability claim",
			zap.String("book_id", book.ID.String()),
			zap.Error(err))
		return nil, shared.ErrStoreUnavailable
	}

	s.publishEvents(ctx, book)
	s.publishEvents(ctx, loan)

	response := ToLoanResponse(loan, s.finePolicy, now)
	return &response, nil
}

// claimBook flips the book's Available flag to false with a bounded CAS loop.
// A version conflict means another writer got there first; the re-read then
// reports BOOK_UNAVAILABLE if that writer was a borrower.
func (s *LendingService) claimBook(ctx context.Context, bookID uuid.UUID) (*catalog.Book, error) {
	var lastErr error
	for attempt := 0; attempt < s.flagAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.retryBackoff):
			}
		}

		book, err := s.bookRepo.FindByID(ctx, bookID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, err
			}
			lastErr = err
			continue
		}

		if err := book.MarkBorrowed(); err != nil {
			return nil, err
		}

		err = s.bookRepo.SaveAvailability(ctx, book)
		if err == nil {
			return book, nil
		}
		if errors.Is(err, shared.ErrConcurrencyConflict) {
			// Lost the race; loop re-reads the current state.
			continue
		}
		lastErr = err
	}

	if lastErr != nil {
		s.logger.Error("availability claim exhausted retries",
			zap.String("book_id", bookID.String()),
			zap.Error(lastErr))
		return nil, shared.ErrStoreUnavailable
	}
	return nil, shared.ErrBookUnavailable
}

// releaseClaim is the best-effort undo of claimBook
func (s *LendingService) releaseClaim(ctx context.Context, bookID uuid.UUID) {
	if err := s.writeAvailability(ctx, bookID, true); err != nil {
		s.logger.Warn("availability release failed, flag left for reconciliation",
			zap.String("book_id", bookID.String()),
			zap.Error(err))
	}
}

// Return settles a loan. The loan row closes first because it is the source
// of truth; the availability flag follows. If the flag write keeps failing
// the return still succeeds, the divergence is logged, and the next
// reconciliation repairs the flag from the now-closed loan.
func (s *LendingService) Return(ctx context.Context, loanID uuid.UUID) (*ReturnResponse, error) {
	loan, err := s.loanRepo.FindByID(ctx, loanID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidLoan
		}
		return nil, err
	}

	now := s.now()
	if err := loan.Close(now); err != nil {
		return nil, err
	}

	if err := s.loanRepo.Close(ctx, loan); err != nil {
		return nil, err
	}

	if err := s.writeAvailability(ctx, loan.BookID, true); err != nil {
		s.logger.Warn("availability restore failed after return, flag left for reconciliation",
			zap.String("book_id", loan.BookID.String()),
			zap.String("loan_id", loan.ID.String()),
			zap.Error(err))
	}

	s.publishEvents(ctx, loan)

	fine := s.finePolicy.CalculateFine(loan, now)
	return &ReturnResponse{
		Loan: ToLoanResponse(loan, s.finePolicy, now),
		Fine: fine,
	}, nil
}

// ReturnByBook settles the open loan of a book, for callers that only know
// the book
func (s *LendingService) ReturnByBook(ctx context.Context, bookID uuid.UUID) (*ReturnResponse, error) {
	loan, err := s.loanRepo.FindOpenByBookID(ctx, bookID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrInvalidLoan
		}
		return nil, err
	}
	return s.Return(ctx, loan.ID)
}

// writeAvailability drives the book's flag to the desired value through the
// CAS, retrying version conflicts
func (s *LendingService) writeAvailability(ctx context.Context, bookID uuid.UUID, available bool) error {
	var lastErr error
	for attempt := 0; attempt < s.flagAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(s.retryBackoff):
			}
		}

		book, err := s.bookRepo.FindByID(ctx, bookID)
		if err != nil {
			lastErr = err
			continue
		}
		if book.Available == available {
			return nil
		}

		if changed := book.Reconcile(!available); !changed {
			return nil
		}
		if err := s.bookRepo.SaveAvailability(ctx, book); err != nil {
			lastErr = err
			continue
		}
		s.publishEvents(ctx, book)
		return nil
	}
	return lastErr
}

// ReconcileBook recomputes a book's Available flag from the loan store and
// repairs it when they disagree
func (s *LendingService) ReconcileBook(ctx context.Context, bookID uuid.UUID) (*ReconcileBookResponse, error) {
	var result *ReconcileBookResponse

	var lastErr error
	for attempt := 0; attempt < s.flagAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.retryBackoff):
			}
		}

		book, err := s.bookRepo.FindByID(ctx, bookID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				return nil, err
			}
			lastErr = err
			continue
		}

		hasOpenLoan, err := s.hasOpenLoan(ctx, bookID)
		if err != nil {
			lastErr = err
			continue
		}

		repaired := book.Reconcile(hasOpenLoan)
		if repaired {
			if err := s.bookRepo.SaveAvailability(ctx, book); err != nil {
				lastErr = err
				continue
			}
			s.publishEvents(ctx, book)
			s.logger.Info("availability flag repaired",
				zap.String("book_id", bookID.String()),
				zap.Bool("available", book.Available))
		}

		result = &ReconcileBookResponse{
			BookID:    book.ID,
			Available: book.Available,
			Repaired:  repaired,
		}
		return result, nil
	}

	if lastErr != nil {
		return nil, shared.ErrStoreUnavailable
	}
	return result, nil
}

// ReconcileAll sweeps the whole catalog, repairing every diverged flag
func (s *LendingService) ReconcileAll(ctx context.Context) (*ReconcileAllResponse, error) {
	response := &ReconcileAllResponse{}

	filter := shared.DefaultFilter()
	filter.PageSize = 100
	filter.OrderBy = "created_at"
	filter.OrderDir = "asc"

	for {
		books, err := s.bookRepo.FindAll(ctx, filter)
		if err != nil {
			return nil, shared.ErrStoreUnavailable
		}
		if len(books) == 0 {
			break
		}

		for i := range books {
			response.Scanned++
			outcome, err := s.ReconcileBook(ctx, books[i].ID)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					// Deleted mid-sweep, nothing to repair.
					continue
				}
				return nil, err
			}
			if outcome.Repaired {
				response.Repaired++
			}
		}

		if len(books) < filter.PageSize {
			break
		}
		filter.Page++
	}

	return response, nil
}

// GetLoan retrieves a single loan with its current fine
func (s *LendingService) GetLoan(ctx context.Context, loanID uuid.UUID) (*LoanResponse, error) {
	loan, err := s.loanRepo.FindByID(ctx, loanID)
	if err != nil {
		return nil, err
	}
	response := ToLoanResponse(loan, s.finePolicy, s.now())
	return &response, nil
}

// ListOpenLoans retrieves open loans with pagination
func (s *LendingService) ListOpenLoans(ctx context.Context, filter LoanListFilter) ([]LoanResponse, error) {
	domainFilter := s.toDomainFilter(filter)
	loans, err := s.loanRepo.FindOpen(ctx, domainFilter)
	if err != nil {
		return nil, err
	}
	return ToLoanResponses(loans, s.finePolicy, s.now()), nil
}

// ListUserLoans retrieves all loans for a user, open and closed
func (s *LendingService) ListUserLoans(ctx context.Context, userID string, filter LoanListFilter) ([]LoanResponse, error) {
	domainFilter := s.toDomainFilter(filter)
	loans, err := s.loanRepo.FindByUserID(ctx, userID, domainFilter)
	if err != nil {
		return nil, err
	}
	return ToLoanResponses(loans, s.finePolicy, s.now()), nil
}

func (s *LendingService) toDomainFilter(filter LoanListFilter) shared.Filter {
	domainFilter := shared.DefaultFilter()
	if filter.Page > 0 {
		domainFilter.Page = filter.Page
	}
	if filter.PageSize > 0 {
		domainFilter.PageSize = filter.PageSize
	}
	if filter.OrderBy != "" {
		domainFilter.OrderBy = filter.OrderBy
	}
	if filter.OrderDir != "" {
		domainFilter.OrderDir = filter.OrderDir
	}
	return domainFilter
}

func (s *LendingService) hasOpenLoan(ctx context.Context, bookID uuid.UUID) (bool, error) {
	_, err := s.loanRepo.FindOpenByBookID(ctx, bookID)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, shared.ErrNotFound) {
		return false, nil
	}
	return false, err
}
