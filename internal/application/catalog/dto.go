package catalog

import (
	"time"

	"github.com/google/uuid"

	"github.com/openlib/backend/internal/domain/catalog"
)

// BookResponse represents a book in API responses
type BookResponse struct {
	ID            uuid.UUID `json:"id"`
	Title         string    `json:"title"`
	Author        string    `json:"author"`
	ISBN          string    `json:"isbn,omitempty"`
	Category      string    `json:"category,omitempty"`
	PublishedYear int       `json:"published_year,omitempty"`
	Thumbnail     string    `json:"thumbnail,omitempty"`
	Description   string    `json:"description,omitempty"`
	PageCount     int       `json:"page_count,omitempty"`
	Publisher     string    `json:"publisher,omitempty"`
	Language      string    `json:"language,omitempty"`
	Available     bool      `json:"available"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
	Version       int       `json:"version"`
}

// ToBookResponse converts a domain book to a response DTO
func ToBookResponse(book *catalog.Book) BookResponse {
	return BookResponse{
		ID:            book.ID,
		Title:         book.Title,
		Author:        book.Author,
		ISBN:          book.ISBN,
		Category:      book.Category,
		PublishedYear: book.PublishedYear,
		Thumbnail:     book.Thumbnail,
		Description:   book.Description,
		PageCount:     book.PageCount,
		Publisher:     book.Publisher,
		Language:      book.Language,
		Available:     book.Available,
		CreatedAt:     book.CreatedAt,
		UpdatedAt:     book.UpdatedAt,
		Version:       book.Version,
	}
}

// ToBookResponses converts a slice of domain books to response DTOs
func ToBookResponses(books []catalog.Book) []BookResponse {
	responses := make([]BookResponse, len(books))
	for i := range books {
		responses[i] = ToBookResponse(&books[i])
	}
	return responses
}

// CreateBookRequest represents a request to add a book to the catalog
type CreateBookRequest struct {
	Title         string `json:"title" binding:"required,min=1,max=300"`
	Author        string `json:"author" binding:"required,min=1,max=200"`
	ISBN          string `json:"isbn" binding:"omitempty,max=17"`
	Category      string `json:"category" binding:"omitempty,max=100"`
	PublishedYear int    `json:"published_year" binding:"omitempty,min=0"`
	Thumbnail     string `json:"thumbnail"`
	Description   string `json:"description"`
	PageCount     int    `json:"page_count" binding:"omitempty,min=0"`
	Publisher     string `json:"publisher" binding:"omitempty,max=200"`
	Language      string `json:"language" binding:"omitempty,max=20"`
}

// UpdateBookRequest represents a request to update a book's descriptive fields
type UpdateBookRequest struct {
	Title         string `json:"title" binding:"required,min=1,max=300"`
	Author        string `json:"author" binding:"required,min=1,max=200"`
	ISBN          string `json:"isbn" binding:"omitempty,max=17"`
	Category      string `json:"category" binding:"omitempty,max=100"`
	PublishedYear int    `json:"published_year" binding:"omitempty,min=0"`
	Thumbnail     string `json:"thumbnail"`
	Description   string `json:"description"`
	PageCount     int    `json:"page_count" binding:"omitempty,min=0"`
	Publisher     string `json:"publisher" binding:"omitempty,max=200"`
	Language      string `json:"language" binding:"omitempty,max=20"`
}

// BookListFilter represents filter options for the book list
type BookListFilter struct {
	Search   string `form:"search"`
	Category string `form:"category"`
	Page     int    `form:"page" binding:"omitempty,min=1"`
	PageSize int    `form:"page_size" binding:"omitempty,min=1,max=100"`
	OrderBy  string `form:"order_by" binding:"omitempty,oneof=created_at updated_at title author published_year"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// DeleteBookResponse reports the outcome of a catalog delete cascade
type DeleteBookResponse struct {
	BookID       uuid.UUID `json:"book_id"`
	LoansRemoved int64     `json:"loans_removed"`
}

// CategorySummaryResponse represents per-category inventory counts
type CategorySummaryResponse struct {
	Categories []catalog.CategoryCount `json:"categories"`
}
