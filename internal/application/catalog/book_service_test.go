package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/openlib/backend/internal/domain/catalog"
	"github.com/openlib/backend/internal/domain/lending"
	"github.com/openlib/backend/internal/domain/shared"
)

// MockBookRepository is a mock implementation of catalog.BookRepository
type MockBookRepository struct {
	mock.Mock
}

func (m *MockBookRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Book, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*catalog.Book), args.Error(1)
}

func (m *MockBookRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Book, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Book), args.Error(1)
}

func (m *MockBookRepository) FindByCategory(ctx context.Context, category string, filter shared.Filter) ([]catalog.Book, error) {
	args := m.Called(ctx, category, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.Book), args.Error(1)
}

func (m *MockBookRepository) Create(ctx context.Context, book *catalog.Book) error {
	return m.Called(ctx, book).Error(0)
}

func (m *MockBookRepository) Save(ctx context.Context, book *catalog.Book) error {
	return m.Called(ctx, book).Error(0)
}

func (m *MockBookRepository) SaveAvailability(ctx context.Context, book *catalog.Book) error {
	return m.Called(ctx, book).Error(0)
}

func (m *MockBookRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockBookRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockBookRepository) CountByCategory(ctx context.Context) ([]catalog.CategoryCount, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]catalog.CategoryCount), args.Error(1)
}

// MockLoanRepository is a mock implementation of lending.LoanRepository
type MockLoanRepository struct {
	mock.Mock
}

func (m *MockLoanRepository) FindByID(ctx context.Context, id uuid.UUID) (*lending.Loan, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*lending.Loan), args.Error(1)
}

func (m *MockLoanRepository) FindOpenByBookID(ctx context.Context, bookID uuid.UUID) (*lending.Loan, error) {
	args := m.Called(ctx, bookID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*lending.Loan), args.Error(1)
}

func (m *MockLoanRepository) FindByUserID(ctx context.Context, userID string, filter shared.Filter) ([]lending.Loan, error) {
	args := m.Called(ctx, userID, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]lending.Loan), args.Error(1)
}

func (m *MockLoanRepository) FindOpen(ctx context.Context, filter shared.Filter) ([]lending.Loan, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]lending.Loan), args.Error(1)
}

func (m *MockLoanRepository) Create(ctx context.Context, loan *lending.Loan) error {
	return m.Called(ctx, loan).Error(0)
}

func (m *MockLoanRepository) Close(ctx context.Context, loan *lending.Loan) error {
	return m.Called(ctx, loan).Error(0)
}

func (m *MockLoanRepository) DeleteByBookID(ctx context.Context, bookID uuid.UUID) (int64, error) {
	args := m.Called(ctx, bookID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLoanRepository) CountOpen(ctx context.Context) (int64, error) {
	args := m.Called(ctx)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockLoanRepository) CountByBook(ctx context.Context, limit int) ([]lending.BookLoanCount, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]lending.BookLoanCount), args.Error(1)
}

func validCreateRequest() CreateBookRequest {
	return CreateBookRequest{
		Title:    "Dune",
		Author:   "Frank Herbert",
		ISBN:     "978-0441172719",
		Category: "Sci-Fi",
	}
}

func TestBookService_AddBook(t *testing.T) {
	ctx := context.Background()

	t.Run("creates an available book", func(t *testing.T) {
		bookRepo := new(MockBookRepository)
		loanRepo := new(MockLoanRepository)
		service := NewBookService(bookRepo, loanRepo)

		bookRepo.On("Create", ctx, mock.AnythingOfType("*catalog.Book")).Return(nil)

		response, err := service.AddBook(ctx, validCreateRequest())
		require.NoError(t, err)

		assert.Equal(t, "Dune", response.Title)
		assert.True(t, response.Available)
		assert.Equal(t, "9780441172719", response.ISBN)
		bookRepo.AssertExpectations(t)
	})

	t.Run("rejects invalid details before touching the store", func(t *testing.T) {
		bookRepo := new(MockBookRepository)
		loanRepo := new(MockLoanRepository)
		service := NewBookService(bookRepo, loanRepo)

		req := validCreateRequest()
		req.Title = " "

		_, err := service.AddBook(ctx, req)
		assert.Error(t, err)
		bookRepo.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
	})
}

func TestBookService_UpdateBook(t *testing.T) {
	ctx := context.Background()

	t.Run("saves through the descriptive path", func(t *testing.T) {
		bookRepo := new(MockBookRepository)
		loanRepo := new(MockLoanRepository)
		service := NewBookService(bookRepo, loanRepo)

		book, err := catalog.NewBook(catalog.Details{Title: "Dune", Author: "Frank Herbert"})
		require.NoError(t, err)
		require.NoError(t, book.MarkBorrowed())
		book.ClearDomainEvents()

		bookRepo.On("FindByID", ctx, book.ID).Return(book, nil)
		bookRepo.On("Save", ctx, book).Return(nil)

		req := UpdateBookRequest{Title: "Dune Messiah", Author: "Frank Herbert"}
		response, err := service.UpdateBook(ctx, book.ID, req)
		require.NoError(t, err)

		assert.Equal(t, "Dune Messiah", response.Title)
		assert.False(t, response.Available, "update must not resurrect availability")
		bookRepo.AssertNotCalled(t, "SaveAvailability", mock.Anything, mock.Anything)
	})

	t.Run("unknown book surfaces NOT_FOUND", func(t *testing.T) {
		bookRepo := new(MockBookRepository)
		loanRepo := new(MockLoanRepository)
		service := NewBookService(bookRepo, loanRepo)

		id := uuid.New()
		bookRepo.On("FindByID", ctx, id).Return(nil, shared.ErrNotFound)

		_, err := service.UpdateBook(ctx, id, UpdateBookRequest{Title: "X", Author: "Y"})
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestBookService_DeleteBook(t *testing.T) {
	ctx := context.Background()

	t.Run("cascades loans before removing the book", func(t *testing.T) {
		bookRepo := new(MockBookRepository)
		loanRepo := new(MockLoanRepository)
		service := NewBookService(bookRepo, loanRepo)

		book, err := catalog.NewBook(catalog.Details{Title: "Dune", Author: "Frank Herbert"})
		require.NoError(t, err)
		book.ClearDomainEvents()

		bookRepo.On("FindByID", ctx, book.ID).Return(book, nil)
		loanRepo.On("DeleteByBookID", ctx, book.ID).Return(int64(3), nil)
		bookRepo.On("Delete", ctx, book.ID).Return(nil)

		response, err := service.DeleteBook(ctx, book.ID)
		require.NoError(t, err)

		assert.Equal(t, int64(3), response.LoansRemoved)
		loanRepo.AssertExpectations(t)
		bookRepo.AssertExpectations(t)
	})

	t.Run("missing book aborts the cascade", func(t *testing.T) {
		bookRepo := new(MockBookRepository)
		loanRepo := new(MockLoanRepository)
		service := NewBookService(bookRepo, loanRepo)

		id := uuid.New()
		bookRepo.On("FindByID", ctx, id).Return(nil, shared.ErrNotFound)

		_, err := service.DeleteBook(ctx, id)
		assert.ErrorIs(t, err, shared.ErrNotFound)
		loanRepo.AssertNotCalled(t, "DeleteByBookID", mock.Anything, mock.Anything)
	})
}

func TestBookService_ListBooks(t *testing.T) {
	ctx := context.Background()

	t.Run("lists with pagination metadata", func(t *testing.T) {
		bookRepo := new(MockBookRepository)
		loanRepo := new(MockLoanRepository)
		service := NewBookService(bookRepo, loanRepo)

		book, err := catalog.NewBook(catalog.Details{Title: "Dune", Author: "Frank Herbert"})
		require.NoError(t, err)

		bookRepo.On("FindAll", ctx, mock.Anything).Return([]catalog.Book{*book}, nil)
		bookRepo.On("Count", ctx, mock.Anything).Return(int64(41), nil)

		result, err := service.ListBooks(ctx, BookListFilter{Page: 2, PageSize: 20})
		require.NoError(t, err)

		assert.Len(t, result.Items, 1)
		assert.Equal(t, int64(41), result.Total)
		assert.Equal(t, 2, result.Page)
		assert.Equal(t, 3, result.TotalPages)
	})

	t.Run("category filter routes to FindByCategory", func(t *testing.T) {
		bookRepo := new(MockBookRepository)
		loanRepo := new(MockLoanRepository)
		service := NewBookService(bookRepo, loanRepo)

		bookRepo.On("FindByCategory", ctx, "Sci-Fi", mock.Anything).Return([]catalog.Book{}, nil)
		bookRepo.On("Count", ctx, mock.Anything).Return(int64(0), nil)

		_, err := service.ListBooks(ctx, BookListFilter{Category: "Sci-Fi"})
		require.NoError(t, err)
		bookRepo.AssertNotCalled(t, "FindAll", mock.Anything, mock.Anything)
	})
}
