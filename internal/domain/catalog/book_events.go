package catalog

import (
	"github.com/google/uuid"

	"github.com/openlib/backend/internal/domain/shared"
)

// Aggregate type constant
const AggregateTypeBook = "Book"

// Event type constants
const (
	EventTypeBookAdded               = "BookAdded"
	EventTypeBookUpdated             = "BookUpdated"
	EventTypeBookRemoved             = "BookRemoved"
	EventTypeBookAvailabilityChanged = "BookAvailabilityChanged"
)

// AvailabilityReason says why an availability flip happened
type AvailabilityReason string

const (
	AvailabilityReasonBorrowed   AvailabilityReason = "borrowed"
	AvailabilityReasonReturned   AvailabilityReason = "returned"
	AvailabilityReasonReconciled AvailabilityReason = "reconciled"
)

// BookAddedEvent is published when a new book enters the catalog
type BookAddedEvent struct {
	shared.BaseDomainEvent
	BookID   uuid.UUID `json:"book_id"`
	Title    string    `json:"title"`
	Author   string    `json:"author"`
	ISBN     string    `json:"isbn,omitempty"`
	Category string    `json:"category,omitempty"`
}

// NewBookAddedEvent creates a new BookAddedEvent
func NewBookAddedEvent(book *Book) *BookAddedEvent {
	return &BookAddedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBookAdded, AggregateTypeBook, book.ID),
		BookID:          book.ID,
		Title:           book.Title,
		Author:          book.Author,
		ISBN:            book.ISBN,
		Category:        book.Category,
	}
}

// BookUpdatedEvent is published when a book's descriptive fields change
type BookUpdatedEvent struct {
	shared.BaseDomainEvent
	BookID uuid.UUID `json:"book_id"`
	Title  string    `json:"title"`
	Author string    `json:"author"`
}

// NewBookUpdatedEvent creates a new BookUpdatedEvent
func NewBookUpdatedEvent(book *Book) *BookUpdatedEvent {
	return &BookUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBookUpdated, AggregateTypeBook, book.ID),
		BookID:          book.ID,
		Title:           book.Title,
		Author:          book.Author,
	}
}

// BookRemovedEvent is published when a book is deleted from the catalog,
// together with its loan history (cascade).
type BookRemovedEvent struct {
	shared.BaseDomainEvent
	BookID       uuid.UUID `json:"book_id"`
	Title        string    `json:"title"`
	LoansRemoved int64     `json:"loans_removed"`
}

// NewBookRemovedEvent creates a new BookRemovedEvent
func NewBookRemovedEvent(book *Book, loansRemoved int64) *BookRemovedEvent {
	return &BookRemovedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBookRemoved, AggregateTypeBook, book.ID),
		BookID:          book.ID,
		Title:           book.Title,
		LoansRemoved:    loansRemoved,
	}
}

// BookAvailabilityChangedEvent is published whenever the cached Available
// flag flips, including reconciliation repairs.
type BookAvailabilityChangedEvent struct {
	shared.BaseDomainEvent
	BookID    uuid.UUID          `json:"book_id"`
	Available bool               `json:"available"`
	Reason    AvailabilityReason `json:"reason"`
}

// NewBookAvailabilityChangedEvent creates a new BookAvailabilityChangedEvent
func NewBookAvailabilityChangedEvent(book *Book, reason AvailabilityReason) *BookAvailabilityChangedEvent {
	return &BookAvailabilityChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBookAvailabilityChanged, AggregateTypeBook, book.ID),
		BookID:          book.ID,
		Available:       book.Available,
		Reason:          reason,
	}
}
