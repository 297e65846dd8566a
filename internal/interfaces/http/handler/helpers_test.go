package handler

import (
	"context"
	"sort"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	catalogapp "github.com/openlib/backend/internal/application/catalog"
	lendingapp "github.com/openlib/backend/internal/application/lending"
	"github.com/openlib/backend/internal/application/reporting"
	"github.com/openlib/backend/internal/domain/catalog"
	"github.com/openlib/backend/internal/domain/lending"
	"github.com/openlib/backend/internal/domain/shared"
	"github.com/openlib/backend/internal/interfaces/http/middleware"
	"github.com/openlib/backend/internal/interfaces/http/router"
)

// fakeBookRepo is an in-memory catalog store for handler tests
type fakeBookRepo struct {
	mu    sync.Mutex
	books map[uuid.UUID]catalog.Book
}

func newFakeBookRepo() *fakeBookRepo {
	return &fakeBookRepo{books: make(map[uuid.UUID]catalog.Book)}
}

func (r *fakeBookRepo) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	book, ok := r.books[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &book, nil
}

func (r *fakeBookRepo) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	books := make([]catalog.Book, 0, len(r.books))
	for _, book := range r.books {
		books = append(books, book)
	}
	sort.Slice(books, func(i, j int) bool { return books[i].Title < books[j].Title })
	return books, nil
}

func (r *fakeBookRepo) FindByCategory(ctx context.Context, category string, filter shared.Filter) ([]catalog.Book, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	books := make([]catalog.Book, 0)
	for _, book := range r.books {
		if book.Category == category {
			books = append(books, book)
		}
	}
	return books, nil
}

func (r *fakeBookRepo) Create(ctx context.Context, book *catalog.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.books[book.ID] = *book
	return nil
}

func (r *fakeBookRepo) Save(ctx context.Context, book *catalog.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.books[book.ID]
	if !ok {
		return shared.ErrNotFound
	}
	// Availability is written through SaveAvailability only.
	available := stored.Available
	updated := *book
	updated.Available = available
	r.books[book.ID] = updated
	return nil
}

func (r *fakeBookRepo) SaveAvailability(ctx context.Context, book *catalog.Book) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.books[book.ID]
	if !ok {
		return shared.ErrConcurrencyConflict
	}
	if stored.Version != book.Version-1 {
		return shared.ErrConcurrencyConflict
	}
	r.books[book.ID] = *book
	return nil
}

func (r *fakeBookRepo) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.books[id]; !ok {
		return shared.ErrNotFound
	}
	delete(r.books, id)
	return nil
}

func (r *fakeBookRepo) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.books)), nil
}

func (r *fakeBookRepo) CountByCategory(ctx context.Context) ([]catalog.CategoryCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byCategory := make(map[string]*catalog.CategoryCount)
	for _, book := range r.books {
		count, ok := byCategory[book.Category]
		if !ok {
			count = &catalog.CategoryCount{Category: book.Category}
			byCategory[book.Category] = count
		}
		count.Total++
		if book.Available {
			count.Available++
		} else {
			count.Borrowed++
		}
	}
	counts := make([]catalog.CategoryCount, 0, len(byCategory))
	for _, count := range byCategory {
		counts = append(counts, *count)
	}
	sort.Slice(counts, func(i, j int) bool { return counts[i].Category < counts[j].Category })
	return counts, nil
}

// fakeLoanRepo is an in-memory loan store for handler tests
type fakeLoanRepo struct {
	mu    sync.Mutex
	loans map[uuid.UUID]lending.Loan
}

func newFakeLoanRepo() *fakeLoanRepo {
	return &fakeLoanRepo{loans: make(map[uuid.UUID]lending.Loan)}
}

func (r *fakeLoanRepo) FindByID(ctx context.Context, id uuid.UUID) (*lending.Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	loan, ok := r.loans[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &loan, nil
}

func (r *fakeLoanRepo) FindOpenByBookID(ctx context.Context, bookID uuid.UUID) (*lending.Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, loan := range r.loans {
		if loan.BookID == bookID && loan.IsOpen() {
			open := loan
			return &open, nil
		}
	}
	return nil, shared.ErrNotFound
}

func (r *fakeLoanRepo) FindByUserID(ctx context.Context, userID string, filter shared.Filter) ([]lending.Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	loans := make([]lending.Loan, 0)
	for _, loan := range r.loans {
		if loan.UserID == userID {
			loans = append(loans, loan)
		}
	}
	return loans, nil
}

func (r *fakeLoanRepo) FindOpen(ctx context.Context, filter shared.Filter) ([]lending.Loan, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	loans := make([]lending.Loan, 0)
	for _, loan := range r.loans {
		if loan.IsOpen() {
			loans = append(loans, loan)
		}
	}
	return loans, nil
}

func (r *fakeLoanRepo) Create(ctx context.Context, loan *lending.Loan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.loans[loan.ID] = *loan
	return nil
}

func (r *fakeLoanRepo) Close(ctx context.Context, loan *lending.Loan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.loans[loan.ID]
	if !ok || !stored.IsOpen() {
		return shared.ErrInvalidLoan
	}
	r.loans[loan.ID] = *loan
	return nil
}

func (r *fakeLoanRepo) DeleteByBookID(ctx context.Context, bookID uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int64
	for id, loan := range r.loans {
		if loan.BookID == bookID {
			delete(r.loans, id)
			removed++
		}
	}
	return removed, nil
}

func (r *fakeLoanRepo) CountOpen(ctx context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, loan := range r.loans {
		if loan.IsOpen() {
			count++
		}
	}
	return count, nil
}

func (r *fakeLoanRepo) CountByBook(ctx context.Context, limit int) ([]lending.BookLoanCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	byBook := make(map[uuid.UUID]int64)
	for _, loan := range r.loans {
		byBook[loan.BookID]++
	}
	counts := make([]lending.BookLoanCount, 0, len(byBook))
	for bookID, loans := range byBook {
		counts = append(counts, lending.BookLoanCount{BookID: bookID, Loans: loans})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Loans != counts[j].Loans {
			return counts[i].Loans > counts[j].Loans
		}
		return counts[i].BookID.String() < counts[j].BookID.String()
	})
	if len(counts) > limit {
		counts = counts[:limit]
	}
	return counts, nil
}

// testEnv bundles the fakes, services and router for an end-to-end handler test
type testEnv struct {
	engine   *gin.Engine
	bookRepo *fakeBookRepo
	loanRepo *fakeLoanRepo
}

func newTestEnv() *testEnv {
	gin.SetMode(gin.TestMode)
	middleware.SetupValidator()

	bookRepo := newFakeBookRepo()
	loanRepo := newFakeLoanRepo()

	policy := lending.NewFinePolicy(lending.DefaultDailyFineRate)
	bookService := catalogapp.NewBookService(bookRepo, loanRepo)
	lendingService := lendingapp.NewLendingService(bookRepo, loanRepo, policy, nil)
	lendingService.SetRetryBackoff(0)
	reportService := reporting.NewReportService(bookRepo, loanRepo, policy, nil)

	engine := gin.New()
	router.NewRouter(engine).
		Register(NewBookHandler(bookService)).
		Register(NewLendingHandler(lendingService)).
		Register(NewReportHandler(reportService)).
		Register(NewSystemHandler(nil, "openlib-backend", "1.0.0")).
		Setup()

	return &testEnv{
		engine:   engine,
		bookRepo: bookRepo,
		loanRepo: loanRepo,
	}
}
