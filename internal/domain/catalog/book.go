package catalog

import (
	"regexp"
	"strings"
	"time"

	"github.com/openlib/backend/internal/domain/shared"
)

var isbnPattern = regexp.MustCompile(`^(?:\d{9}[\dXx]|\d{13})$`)

// Book represents a title in the library catalog.
// It is the aggregate root for catalog operations. The Available flag is a
// derived cache of "no open loan references this book" and is only mutated
// through MarkBorrowed/MarkReturned/Reconcile, never through Update.
type Book struct {
	shared.BaseAggregateRoot
	Title         string `gorm:"type:varchar(300);not null"`
	Author        string `gorm:"type:varchar(200);not null"`
	ISBN          string `gorm:"type:varchar(17);index"`
	Category      string `gorm:"type:varchar(100);index"`
	PublishedYear int    `gorm:"not null;default:0"`
	Thumbnail     string `gorm:"type:text"`
	Description   string `gorm:"type:text"`
	PageCount     int    `gorm:"not null;default:0"`
	Publisher     string `gorm:"type:varchar(200)"`
	Language      string `gorm:"type:varchar(20)"`
	Available     bool   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (Book) TableName() string {
	return "books"
}

// Details holds the descriptive (non invariant-bearing) fields of a book
type Details struct {
	Title         string
	Author        string
	ISBN          string
	Category      string
	PublishedYear int
	Thumbnail     string
	Description   string
	PageCount     int
	Publisher     string
	Language      string
}

// NewBook creates a new book. New books start available.
func NewBook(details Details) (*Book, error) {
	if err := validateDetails(details); err != nil {
		return nil, err
	}

	book := &Book{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Title:             strings.TrimSpace(details.Title),
		Author:            strings.TrimSpace(details.Author),
		ISBN:              normalizeISBN(details.ISBN),
		Category:          strings.TrimSpace(details.Category),
		PublishedYear:     details.PublishedYear,
		Thumbnail:         details.Thumbnail,
		Description:       details.Description,
		PageCount:         details.PageCount,
		Publisher:         details.Publisher,
		Language:          details.Language,
		Available:         true,
	}

	book.AddDomainEvent(NewBookAddedEvent(book))

	return book, nil
}

// Update replaces the book's descriptive fields. The Available flag is
// deliberately out of reach here; only the circulation state machine and the
// reconciliation escape hatch may touch it.
func (b *Book) Update(details Details) error {
	if err := validateDetails(details); err != nil {
		return err
	}

	b.Title = strings.TrimSpace(details.Title)
	b.Author = strings.TrimSpace(details.Author)
	b.ISBN = normalizeISBN(details.ISBN)
	b.Category = strings.TrimSpace(details.Category)
	b.PublishedYear = details.PublishedYear
	b.Thumbnail = details.Thumbnail
	b.Description = details.Description
	b.PageCount = details.PageCount
	b.Publisher = details.Publisher
	b.Language = details.Language
	b.UpdatedAt = time.Now()
	b.IncrementVersion()

	b.AddDomainEvent(NewBookUpdatedEvent(b))

	return nil
}

// MarkBorrowed transitions the book from available to on-loan.
// The version increment is the serialization point for concurrent borrows:
// the repository persists this flip with a version check, so of two racing
// borrowers exactly one write lands.
func (b *Book) MarkBorrowed() error {
	if !b.Available {
		return shared.ErrBookUnavailable
	}

	b.Available = false
	b.UpdatedAt = time.Now()
	b.IncrementVersion()

	b.AddDomainEvent(NewBookAvailabilityChangedEvent(b, AvailabilityReasonBorrowed))

	return nil
}

// MarkReturned transitions the book from on-loan back to available
func (b *Book) MarkReturned() error {
	if b.Available {
		return shared.NewDomainError("INVALID_STATE", "Book is not on loan")
	}

	b.Available = true
	b.UpdatedAt = time.Now()
	b.IncrementVersion()

	b.AddDomainEvent(NewBookAvailabilityChangedEvent(b, AvailabilityReasonReturned))

	return nil
}

// Reconcile overwrites the cached Available flag with the value derived from
// the loan store. This is the administrative escape hatch for repairing
// partial-write divergence; normal flows must go through MarkBorrowed and
// MarkReturned. Returns true if the flag actually changed.
func (b *Book) Reconcile(hasOpenLoan bool) bool {
	derived := !hasOpenLoan
	if b.Available == derived {
		return false
	}

	b.Available = derived
	b.UpdatedAt = time.Now()
	b.IncrementVersion()

	b.AddDomainEvent(NewBookAvailabilityChangedEvent(b, AvailabilityReasonReconciled))

	return true
}

func validateDetails(d Details) error {
	if strings.TrimSpace(d.Title) == "" {
		return shared.NewDomainError("INVALID_TITLE", "Title cannot be empty")
	}
	if strings.TrimSpace(d.Author) == "" {
		return shared.NewDomainError("INVALID_AUTHOR", "Author cannot be empty")
	}
	if isbn := normalizeISBN(d.ISBN); isbn != "" && !isbnPattern.MatchString(isbn) {
		return shared.NewDomainError("INVALID_ISBN", "ISBN must be 10 or 13 digits")
	}
	if d.PublishedYear < 0 {
		return shared.NewDomainError("INVALID_YEAR", "Published year cannot be negative")
	}
	if d.PageCount < 0 {
		return shared.NewDomainError("INVALID_PAGE_COUNT", "Page count cannot be negative")
	}
	return nil
}

func normalizeISBN(isbn string) string {
	return strings.NewReplacer("-", "", " ", "").Replace(strings.TrimSpace(isbn))
}
