package persistence

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/openlib/backend/internal/domain/lending"
	"github.com/openlib/backend/internal/domain/shared"
)

// GormLoanRepository implements lending.LoanRepository using GORM
type GormLoanRepository struct {
	db *gorm.DB
}

// NewGormLoanRepository creates a new GormLoanRepository
func NewGormLoanRepository(db *gorm.DB) *GormLoanRepository {
	return &GormLoanRepository{db: db}
}

// FindByID finds a loan by its ID
func (r *GormLoanRepository) FindByID(ctx context.Context, id uuid.UUID) (*lending.Loan, error) {
	var loan lending.Loan
	if err := r.db.WithContext(ctx).First(&loan, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &loan, nil
}

// FindOpenByBookID finds the open loan for a book
func (r *GormLoanRepository) FindOpenByBookID(ctx context.Context, bookID uuid.UUID) (*lending.Loan, error) {
	var loan lending.Loan
	if err := r.db.WithContext(ctx).
		Where("book_id = ? AND returned_at IS NULL", bookID).
		First(&loan).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &loan, nil
}

// FindByUserID finds all loans for a user, open and closed
func (r *GormLoanRepository) FindByUserID(ctx context.Context, userID string, filter shared.Filter) ([]lending.Loan, error) {
	var loans []lending.Loan
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&lending.Loan{}).Where("user_id = ?", userID),
		filter,
	)
	if err := query.Find(&loans).Error; err != nil {
		return nil, err
	}
	return loans, nil
}

// FindOpen finds all open loans
func (r *GormLoanRepository) FindOpen(ctx context.Context, filter shared.Filter) ([]lending.Loan, error) {
	var loans []lending.Loan
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&lending.Loan{}).Where("returned_at IS NULL"),
		filter,
	)
	if err := query.Find(&loans).Error; err != nil {
		return nil, err
	}
	return loans, nil
}

// Create persists a new loan
func (r *GormLoanRepository) Create(ctx context.Context, loan *lending.Loan) error {
	return r.db.WithContext(ctx).Create(loan).Error
}

// Close persists the settlement of an open loan. The returned_at IS NULL
// guard makes a racing double return settle exactly once.
func (r *GormLoanRepository) Close(ctx context.Context, loan *lending.Loan) error {
	result := r.db.WithContext(ctx).
		Model(loan).
		Where("id = ? AND returned_at IS NULL", loan.ID).
		Updates(map[string]interface{}{
			"returned_at": loan.ReturnedAt,
			"version":     loan.Version,
			"updated_at":  loan.UpdatedAt,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrInvalidLoan
	}
	return nil
}

// DeleteByBookID removes all loans for a book
func (r *GormLoanRepository) DeleteByBookID(ctx context.Context, bookID uuid.UUID) (int64, error) {
	result := r.db.WithContext(ctx).Delete(&lending.Loan{}, "book_id = ?", bookID)
	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}

// CountOpen counts open loans
func (r *GormLoanRepository) CountOpen(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&lending.Loan{}).
		Where("returned_at IS NULL").
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

// CountByBook returns per-book loan totals, most borrowed first, ties broken
// by book ID for a stable ranking
func (r *GormLoanRepository) CountByBook(ctx context.Context, limit int) ([]lending.BookLoanCount, error) {
	var counts []lending.BookLoanCount
	query := r.db.WithContext(ctx).
		Model(&lending.Loan{}).
		Select("book_id, COUNT(*) AS loans").
		Group("book_id").
		Order("loans DESC, book_id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Scan(&counts).Error; err != nil {
		return nil, err
	}
	return counts, nil
}

func (r *GormLoanRepository) applyFilter(query *gorm.DB, filter shared.Filter) *gorm.DB {
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
