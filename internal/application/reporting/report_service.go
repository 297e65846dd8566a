package reporting

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openlib/backend/internal/domain/catalog"
	"github.com/openlib/backend/internal/domain/lending"
	"github.com/openlib/backend/internal/domain/shared"
	"github.com/openlib/backend/internal/domain/shared/valueobject"
)

// Cache keys for the TTL-cached reports
const (
	cacheKeyDashboard    = "report:dashboard"
	cacheKeyPopularBooks = "report:popular_books"

	// DefaultCacheTTL bounds how stale a cached report may be
	DefaultCacheTTL = 30 * time.Second

	// DefaultTopN is the default popularity ranking size
	DefaultTopN = 10
)

// ReportCache caches serialized report payloads. Implementations return
// shared.ErrNotFound on a miss.
type ReportCache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Invalidate(ctx context.Context, keys ...string) error
}

// OverdueLoanResponse represents one overdue loan with its accrued fine
type OverdueLoanResponse struct {
	LoanID      uuid.UUID         `json:"loan_id"`
	BookID      uuid.UUID         `json:"book_id"`
	BookTitle   string            `json:"book_title,omitempty"`
	BookAuthor  string            `json:"book_author,omitempty"`
	UserID      string            `json:"user_id"`
	BorrowedAt  time.Time         `json:"borrowed_at"`
	DueDate     time.Time         `json:"due_date"`
	DaysLate    int               `json:"days_late"`
	AccruedFine valueobject.Money `json:"accrued_fine"`
}

// OverdueReportResponse represents the overdue report
type OverdueReportResponse struct {
	AsOf       time.Time             `json:"as_of"`
	Loans      []OverdueLoanResponse `json:"loans"`
	TotalOwed  valueobject.Money     `json:"total_owed"`
	LoansTotal int                   `json:"loans_total"`
}

// UserLoanSummaryResponse aggregates one user's borrowing history
type UserLoanSummaryResponse struct {
	UserID          string            `json:"user_id"`
	OpenLoans       int               `json:"open_loans"`
	ClosedLoans     int               `json:"closed_loans"`
	OverdueLoans    int               `json:"overdue_loans"`
	OutstandingFine valueobject.Money `json:"outstanding_fine"`
	SettledFine     valueobject.Money `json:"settled_fine"`
	TotalFine       valueobject.Money `json:"total_fine"`
}

// PopularBookResponse represents one entry of the popularity ranking
type PopularBookResponse struct {
	Rank      int       `json:"rank"`
	BookID    uuid.UUID `json:"book_id"`
	Title     string    `json:"title,omitempty"`
	Author    string    `json:"author,omitempty"`
	LoanCount int64     `json:"loan_count"`
	Available bool      `json:"available"`
}

// DashboardResponse represents the library dashboard snapshot
type DashboardResponse struct {
	TotalBooks     int64                   `json:"total_books"`
	AvailableBooks int64                   `json:"available_books"`
	BorrowedBooks  int64                   `json:"borrowed_books"`
	OpenLoans      int64                   `json:"open_loans"`
	OverdueLoans   int64                   `json:"overdue_loans"`
	Categories     []catalog.CategoryCount `json:"categories"`
	GeneratedAt    time.Time               `json:"generated_at"`
}

// ReportService answers read-side questions over the catalog and the loan
// store. Reports always price fines through the same policy the lending flows
// use, so a loan never owes a different amount depending on who asked.
type ReportService struct {
	bookRepo   catalog.BookRepository
	loanRepo   lending.LoanRepository
	finePolicy lending.FinePolicy
	cache      ReportCache
	cacheTTL   time.Duration
	logger     *zap.Logger
	now        func() time.Time
}

// NewReportService creates a new ReportService
func NewReportService(
	bookRepo catalog.BookRepository,
	loanRepo lending.LoanRepository,
	finePolicy lending.FinePolicy,
	logger *zap.Logger,
) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReportService{
		bookRepo:   bookRepo,
		loanRepo:   loanRepo,
		finePolicy: finePolicy,
		cacheTTL:   DefaultCacheTTL,
		logger:     logger,
		now:        time.Now,
	}
}

// SetCache enables TTL caching for the dashboard and popularity reports
func (s *ReportService) SetCache(cache ReportCache) {
	s.cache = cache
}

// SetCacheTTL overrides the report cache TTL
func (s *ReportService) SetCacheTTL(ttl time.Duration) {
	if ttl > 0 {
		s.cacheTTL = ttl
	}
}

// SetClock overrides the time source, used by tests
func (s *ReportService) SetClock(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Overdue lists every open loan past its due date with the fine accrued so
// far. Results are computed live: overdue state changes at midnight, not on a
// write, so there is no write hook to invalidate a cache from.
func (s *ReportService) Overdue(ctx context.Context) (*OverdueReportResponse, error) {
	now := s.now()

	filter := shared.DefaultFilter()
	filter.OrderBy = "due_date"
	filter.OrderDir = "asc"
	filter.PageSize = 100

	report := &OverdueReportResponse{
		AsOf:      now,
		Loans:     make([]OverdueLoanResponse, 0),
		TotalOwed: valueobject.Zero(s.finePolicy.DailyRate().Currency()),
	}

	for {
		loans, err := s.loanRepo.FindOpen(ctx, filter)
		if err != nil {
			return nil, err
		}
		if len(loans) == 0 {
			break
		}

		for i := range loans {
			loan := &loans[i]
			if !loan.IsOverdueAt(now) {
				continue
			}

			entry := OverdueLoanResponse{
				LoanID:      loan.ID,
				BookID:      loan.BookID,
				UserID:      loan.UserID,
				BorrowedAt:  loan.BorrowedAt,
				DueDate:     loan.DueDate,
				DaysLate:    lending.DaysLate(loan.DueDate, now),
				AccruedFine: s.finePolicy.CalculateFine(loan, now),
			}
			if book, err := s.bookRepo.FindByID(ctx, loan.BookID); err == nil {
				entry.BookTitle = book.Title
				entry.BookAuthor = book.Author
			}

			report.Loans = append(report.Loans, entry)
			report.TotalOwed = report.TotalOwed.MustAdd(entry.AccruedFine)
		}

		if len(loans) < filter.PageSize {
			break
		}
		filter.Page++
	}

	report.LoansTotal = len(report.Loans)
	return report, nil
}

// UserSummary aggregates a user's loans: open and settled counts, what they
// owe right now and what their closed loans settled at
func (s *ReportService) UserSummary(ctx context.Context, userID string) (*UserLoanSummaryResponse, error) {
	now := s.now()

	filter := shared.DefaultFilter()
	filter.OrderBy = "borrowed_at"
	filter.OrderDir = "asc"
	filter.PageSize = 100

	currency := s.finePolicy.DailyRate().Currency()
	summary := &UserLoanSummaryResponse{
		UserID:          userID,
		OutstandingFine: valueobject.Zero(currency),
		SettledFine:     valueobject.Zero(currency),
	}

	for {
		loans, err := s.loanRepo.FindByUserID(ctx, userID, filter)
		if err != nil {
			return nil, err
		}
		if len(loans) == 0 {
			break
		}

		for i := range loans {
			loan := &loans[i]
			fine := s.finePolicy.CalculateFine(loan, now)
			if loan.IsOpen() {
				summary.OpenLoans++
				if loan.IsOverdueAt(now) {
					summary.OverdueLoans++
				}
				summary.OutstandingFine = summary.OutstandingFine.MustAdd(fine)
			} else {
				summary.ClosedLoans++
				summary.SettledFine = summary.SettledFine.MustAdd(fine)
			}
		}

		if len(loans) < filter.PageSize {
			break
		}
		filter.Page++
	}

	summary.TotalFine = summary.OutstandingFine.MustAdd(summary.SettledFine)
	return summary, nil
}

// PopularBooks ranks books by how often they have been borrowed, most
// borrowed first, ties broken by book ID so the ranking is stable
func (s *ReportService) PopularBooks(ctx context.Context, topN int) ([]PopularBookResponse, error) {
	if topN <= 0 {
		topN = DefaultTopN
	}

	if cached, ok := s.fromCache(ctx, cacheKeyPopularBooks, topN); ok {
		return cached, nil
	}

	counts, err := s.loanRepo.CountByBook(ctx, topN)
	if err != nil {
		return nil, err
	}

	ranking := make([]PopularBookResponse, 0, len(counts))
	for _, count := range counts {
		entry := PopularBookResponse{
			Rank:      len(ranking) + 1,
			BookID:    count.BookID,
			LoanCount: count.Loans,
		}
		book, err := s.bookRepo.FindByID(ctx, count.BookID)
		if err != nil {
			if errors.Is(err, shared.ErrNotFound) {
				// Loan history can outlive a book only transiently during a
				// delete cascade; skip the orphan.
				continue
			}
			return nil, err
		}
		entry.Title = book.Title
		entry.Author = book.Author
		entry.Available = book.Available
		ranking = append(ranking, entry)
	}

	s.toCache(ctx, cacheKeyPopularBooks, topN, ranking)
	return ranking, nil
}

// Dashboard returns the library-wide snapshot used by the landing page
func (s *ReportService) Dashboard(ctx context.Context) (*DashboardResponse, error) {
	if s.cache != nil {
		if data, err := s.cache.Get(ctx, cacheKeyDashboard); err == nil {
			var cached DashboardResponse
			if json.Unmarshal(data, &cached) == nil {
				return &cached, nil
			}
		}
	}

	now := s.now()

	categories, err := s.bookRepo.CountByCategory(ctx)
	if err != nil {
		return nil, err
	}

	totalBooks, err := s.bookRepo.Count(ctx, shared.Filter{})
	if err != nil {
		return nil, err
	}

	openLoans, err := s.loanRepo.CountOpen(ctx)
	if err != nil {
		return nil, err
	}

	overdue, err := s.countOverdue(ctx, now)
	if err != nil {
		return nil, err
	}

	var available int64
	for _, c := range categories {
		available += c.Available
	}

	dashboard := &DashboardResponse{
		TotalBooks:     totalBooks,
		AvailableBooks: available,
		BorrowedBooks:  totalBooks - available,
		OpenLoans:      openLoans,
		OverdueLoans:   overdue,
		Categories:     categories,
		GeneratedAt:    now,
	}

	if s.cache != nil {
		if data, err := json.Marshal(dashboard); err == nil {
			if err := s.cache.Set(ctx, cacheKeyDashboard, data, s.cacheTTL); err != nil {
				s.logger.Debug("dashboard cache write failed", zap.Error(err))
			}
		}
	}

	return dashboard, nil
}

// InvalidateCaches drops the cached reports, called after bulk changes
func (s *ReportService) InvalidateCaches(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, cacheKeyDashboard, cacheKeyPopularBooks); err != nil {
		s.logger.Debug("report cache invalidation failed", zap.Error(err))
	}
}

func (s *ReportService) countOverdue(ctx context.Context, now time.Time) (int64, error) {
	filter := shared.DefaultFilter()
	filter.OrderBy = "due_date"
	filter.OrderDir = "asc"
	filter.PageSize = 100

	var overdue int64
	for {
		loans, err := s.loanRepo.FindOpen(ctx, filter)
		if err != nil {
			return 0, err
		}
		if len(loans) == 0 {
			break
		}
		for i := range loans {
			if loans[i].IsOverdueAt(now) {
				overdue++
			}
		}
		if len(loans) < filter.PageSize {
			break
		}
		filter.Page++
	}
	return overdue, nil
}

type popularCacheEntry struct {
	TopN    int                   `json:"top_n"`
	Ranking []PopularBookResponse `json:"ranking"`
}

func (s *ReportService) fromCache(ctx context.Context, key string, topN int) ([]PopularBookResponse, bool) {
	if s.cache == nil {
		return nil, false
	}
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, false
	}
	var entry popularCacheEntry
	if json.Unmarshal(data, &entry) != nil || entry.TopN != topN {
		return nil, false
	}
	return entry.Ranking, true
}

func (s *ReportService) toCache(ctx context.Context, key string, topN int, ranking []PopularBookResponse) {
	if s.cache == nil {
		return
	}
	data, err := json.Marshal(popularCacheEntry{TopN: topN, Ranking: ranking})
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.cacheTTL); err != nil {
		s.logger.Debug("popularity cache write failed", zap.Error(err))
	}
}
