package catalog

import (
	"context"

	"github.com/google/uuid"

	"github.com/openlib/backend/internal/domain/catalog"
	"github.com/openlib/backend/internal/domain/lending"
	"github.com/openlib/backend/internal/domain/shared"
)

// BookService handles catalog-related business operations
type BookService struct {
	bookRepo       catalog.BookRepository
	loanRepo       lending.LoanRepository
	eventPublisher shared.EventPublisher
}

// NewBookService creates a new BookService
func NewBookService(bookRepo catalog.BookRepository, loanRepo lending.LoanRepository) *BookService {
	return &BookService{
		bookRepo: bookRepo,
		loanRepo: loanRepo,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *BookService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

func (s *BookService) publishDomainEvents(ctx context.Context, book *catalog.Book) {
	if s.eventPublisher == nil {
		return
	}
	events := book.GetDomainEvents()
	if len(events) == 0 {
		return
	}
	_ = s.eventPublisher.Publish(ctx, events...)
	book.ClearDomainEvents()
}

// AddBook adds a new book to the catalog. New books start available.
func (s *BookService) AddBook(ctx context.Context, req CreateBookRequest) (*BookResponse, error) {
	book, err := catalog.NewBook(catalog.Details{
		Title:         req.Title,
		Author:        req.Author,
		ISBN:          req.ISBN,
		Category:      req.Category,
		PublishedYear: req.PublishedYear,
		Thumbnail:     req.Thumbnail,
		Description:   req.Description,
		PageCount:     req.PageCount,
		Publisher:     req.Publisher,
		Language:      req.Language,
	})
	if err != nil {
		return nil, err
	}

	if err := s.bookRepo.Create(ctx, book); err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, book)

	response := ToBookResponse(book)
	return &response, nil
}

// UpdateBook replaces a book's descriptive fields. The Available flag is not
// reachable from here; it belongs to the circulation flows.
func (s *BookService) UpdateBook(ctx context.Context, bookID uuid.UUID, req UpdateBookRequest) (*BookResponse, error) {
	book, err := s.bookRepo.FindByID(ctx, bookID)
	if err != nil {
		return nil, err
	}

	if err := book.Update(catalog.Details{
		Title:         req.Title,
		Author:        req.Author,
		ISBN:          req.ISBN,
		Category:      req.Category,
		PublishedYear: req.PublishedYear,
		Thumbnail:     req.Thumbnail,
		Description:   req.Description,
		PageCount:     req.PageCount,
		Publisher:     req.Publisher,
		Language:      req.Language,
	}); err != nil {
		return nil, err
	}

	if err := s.bookRepo.Save(ctx, book); err != nil {
		return nil, err
	}

	s.publishDomainEvents(ctx, book)

	response := ToBookResponse(book)
	return &response, nil
}

// GetBook retrieves a single book
func (s *BookService) GetBook(ctx context.Context, bookID uuid.UUID) (*BookResponse, error) {
	book, err := s.bookRepo.FindByID(ctx, bookID)
	if err != nil {
		return nil, err
	}
	response := ToBookResponse(book)
	return &response, nil
}

// ListBooks retrieves books with filtering and pagination
func (s *BookService) ListBooks(ctx context.Context, filter BookListFilter) (*shared.Paginated[BookResponse], error) {
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
	domainFilter.Search = filter.Search

	var (
		books []catalog.Book
		err   error
	)
	if filter.Category != "" {
		books, err = s.bookRepo.FindByCategory(ctx, filter.Category, domainFilter)
	} else {
		books, err = s.bookRepo.FindAll(ctx, domainFilter)
	}
	if err != nil {
		return nil, err
	}

	total, err := s.bookRepo.Count(ctx, domainFilter)
	if err != nil {
		return nil, err
	}

	result := shared.NewPaginated(ToBookResponses(books), total, domainFilter.Page, domainFilter.Limit())
	return &result, nil
}

// DeleteBook removes a book and cascades to its loan history. The loan rows
// go first: a book that briefly outlives its loans reads as available, while
// orphaned loans for a missing book would poison every report join.
func (s *BookService) DeleteBook(ctx context.Context, bookID uuid.UUID) (*DeleteBookResponse, error) {
	book, err := s.bookRepo.FindByID(ctx, bookID)
	if err != nil {
		return nil, err
	}

	loansRemoved, err := s.loanRepo.DeleteByBookID(ctx, bookID)
	if err != nil {
		return nil, err
	}

	if err := s.bookRepo.Delete(ctx, bookID); err != nil {
		return nil, err
	}

	book.AddDomainEvent(catalog.NewBookRemovedEvent(book, loansRemoved))
	s.publishDomainEvents(ctx, book)

	return &DeleteBookResponse{BookID: bookID, LoansRemoved: loansRemoved}, nil
}

// CategorySummary returns total/available/borrowed counts per category
func (s *BookService) CategorySummary(ctx context.Context) (*CategorySummaryResponse, error) {
	counts, err := s.bookRepo.CountByCategory(ctx)
	if err != nil {
		return nil, err
	}
	return &CategorySummaryResponse{Categories: counts}, nil
}
