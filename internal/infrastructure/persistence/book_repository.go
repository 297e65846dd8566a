package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openlib/backend/internal/domain/catalog"
	"github.com/openlib/backend/internal/domain/shared"
)

// GormBookRepository implements catalog.BookRepository using GORM
type GormBookRepository struct {
	db *gorm.DB
}

// NewGormBookRepository creates a new GormBookRepository
func NewGormBookRepository(db *gorm.DB) *GormBookRepository {
	return &GormBookRepository{db: db}
}

// FindByID finds a book by its ID
func (r *GormBookRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Book, error) {
	var book catalog.Book
	if err := r.db.WithContext(ctx).First(&book, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &book, nil
}

// FindAll finds all books matching the filter
func (r *GormBookRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Book, error) {
	var books []catalog.Book
	query := r.applyFilter(r.db.WithContext(ctx).Model(&catalog.Book{}), filter)
	if err := query.Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

// FindByCategory finds all books in a category
func (r *GormBookRepository) FindByCategory(ctx context.Context, category string, filter shared.Filter) ([]catalog.Book, error) {
	var books []catalog.Book
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&catalog.Book{}).Where("category = ?", category),
		filter,
	)
	if err := query.Find(&books).Error; err != nil {
		return nil, err
	}
	return books, nil
}

// Create persists a new book
func (r *GormBookRepository) Create(ctx context.Context, book *catalog.Book) error {
	return r.db.WithContext(ctx).Create(book).Error
}

// Save updates a book's descriptive fields. The availability flag and its
// guarding version are deliberately absent from the column list; only
// SaveAvailability may move them.
func (r *GormBookRepository) Save(ctx context.Context, book *catalog.Book) error {
	result := r.db.WithContext(ctx).
		Model(book).
		Where("id = ?", book.ID).
		Updates(map[string]interface{}{
			"title":          book.Title,
			"author":         book.Author,
			"isbn":           book.ISBN,
			"category":       book.Category,
			"published_year": book.PublishedYear,
			"thumbnail":      book.Thumbnail,
			"description":    book.Description,
			"page_count":     book.PageCount,
			"publisher":      book.Publisher,
			"language":       book.Language,
			"updated_at":     book.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// SaveAvailability persists an availability flip with an optimistic version
// check. The aggregate already incremented its version in memory, so the row
// must still hold the previous one; zero rows affected means a concurrent
// writer won and the caller must re-read.
func (r *GormBookRepository) SaveAvailability(ctx context.Context, book *catalog.Book) error {
	result := r.db.WithContext(ctx).
		Model(book).
		Where("id = ? AND version = ?", book.ID, book.Version-1).
		Updates(map[string]interface{}{
			"available":  book.Available,
			"version":    book.Version,
			"updated_at": book.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// Delete deletes a book
func (r *GormBookRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&catalog.Book{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Count counts books matching the filter
func (r *GormBookRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := r.applySearch(r.db.WithContext(ctx).Model(&catalog.Book{}), filter)
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountByCategory returns total/available/borrowed counts per category
func (r *GormBookRepository) CountByCategory(ctx context.Context) ([]catalog.CategoryCount, error) {
	var counts []catalog.CategoryCount
	err := r.db.WithContext(ctx).
		Model(&catalog.Book{}).
		Select(`category,
			COUNT(*) AS total,
			COUNT(*) FILTER (WHERE available) AS available,
			COUNT(*) FILTER (WHERE NOT available) AS borrowed`).
		Group("category").
		Order("category ASC").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *GormBookRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
	query = r.applySearch(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.Limit())
	}

	if filter.OrderBy != "" {
		orderDir := "ASC"
		if strings.ToLower(filter.OrderDir) == "desc" {
			orderDir = "DESC"
		}
		query = query.Order(filter.OrderBy + " " + orderDir)
	} else {
		query = query.Order("created_at DESC")
	}

	return query
}

func (r *GormBookRepository) applySearch(query *gorm.DB, filter shared.Filter) *gorm.DB {
	if filter.Search != "" {
		pattern := "%" + filter.Search + "%"
		query = query.Where("title ILIKE ? OR author ILIKE ? OR isbn ILIKE ?", pattern, pattern, pattern)
	}
	return query
}
