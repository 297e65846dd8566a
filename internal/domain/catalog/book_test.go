package catalog

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openlib/backend/internal/domain/shared"
)

func validDetails() Details {
	return Details{
		Title:         "The Go Programming Language",
		Author:        "Alan A. A. Donovan",
		ISBN:          "978-0134190440",
		Category:      "Programming",
		PublishedYear: 2015,
		PageCount:     380,
		Publisher:     "Addison-Wesley",
		Language:      "en",
	}
}

func TestNewBook(t *testing.T) {
	t.Run("creates an available book with normalized ISBN", func(t *testing.T) {
		book, err := NewBook(validDetails())
		require.NoError(t, err)

		assert.NotEqual(t, uuid.Nil, book.ID)
		assert.True(t, book.Available)
		assert.Equal(t, 1, book.Version)
		assert.Equal(t, "9780134190440", book.ISBN)
	})

	t.Run("emits BookAdded event", func(t *testing.T) {
		book, err := NewBook(validDetails())
		require.NoError(t, err)

		events := book.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeBookAdded, events[0].EventType())
	})

	t.Run("rejects empty title", func(t *testing.T) {
		details := validDetails()
		details.Title = "   "

		_, err := NewBook(details)
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_TITLE", domainErr.Code)
	})

	t.Run("rejects empty author", func(t *testing.T) {
		details := validDetails()
		details.Author = ""

		_, err := NewBook(details)
		assert.Error(t, err)
	})

	t.Run("rejects malformed ISBN", func(t *testing.T) {
		details := validDetails()
		details.ISBN = "not-an-isbn"

		_, err := NewBook(details)
		require.Error(t, err)

		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "INVALID_ISBN", domainErr.Code)
	})

	t.Run("accepts empty ISBN", func(t *testing.T) {
		details := validDetails()
		details.ISBN = ""

		_, err := NewBook(details)
		assert.NoError(t, err)
	})
}

func TestBook_Update(t *testing.T) {
	t.Run("replaces descriptive fields and bumps version", func(t *testing.T) {
		book, err := NewBook(validDetails())
		require.NoError(t, err)
		book.ClearDomainEvents()

		details := validDetails()
		details.Title = "The Go Programming Language, 2nd Edition"

		require.NoError(t, book.Update(details))
		assert.Equal(t, details.Title, book.Title)
		assert.Equal(t, 2, book.Version)

		events := book.GetDomainEvents()
		require.Len(t, events, 1)
		assert.Equal(t, EventTypeBookUpdated, events[0].EventType())
	})

	t.Run("cannot flip availability", func(t *testing.T) {
		book, err := NewBook(validDetails())
		require.NoError(t, err)
		require.NoError(t, book.MarkBorrowed())
		require.False(t, book.Available)

		require.NoError(t, book.Update(validDetails()))
		assert.False(t, book.Available, "Update must not touch the Available flag")
	})
}

func TestBook_MarkBorrowed(t *testing.T) {
	t.Run("flips available to false", func(t *testing.T) {
		book, err := NewBook(validDetails())
		require.NoError(t, err)
		book.ClearDomainEvents()

		require.NoError(t, book.MarkBorrowed())
		assert.False(t, book.Available)
		assert.Equal(t, 2, book.Version)

		events := book.GetDomainEvents()
		require.Len(t, events, 1)
		changed, ok := events[0].(*BookAvailabilityChangedEvent)
		require.True(t, ok)
		assert.Equal(t, AvailabilityReasonBorrowed, changed.Reason)
	})

	t.Run("fails when already on loan", func(t *testing.T) {
		book, err := NewBook(validDetails())
		require.NoError(t, err)
		require.NoError(t, book.MarkBorrowed())

		err = book.MarkBorrowed()
		assert.ErrorIs(t, err, shared.ErrBookUnavailable)
		assert.Equal(t, 2, book.Version, "failed transition must not bump the version")
	})
}

func TestBook_MarkReturned(t *testing.T) {
	t.Run("flips available back to true", func(t *testing.T) {
		book, err := NewBook(validDetails())
		require.NoError(t, err)
		require.NoError(t, book.MarkBorrowed())

		require.NoError(t, book.MarkReturned())
		assert.True(t, book.Available)
		assert.Equal(t, 3, book.Version)
	})

	t.Run("fails when not on loan", func(t *testing.T) {
		book, err := NewBook(validDetails())
		require.NoError(t, err)

		assert.Error(t, book.MarkReturned())
	})

	t.Run("book cycles through multiple loans", func(t *testing.T) {
		book, err := NewBook(validDetails())
		require.NoError(t, err)

		for i := 0; i < 3; i++ {
			require.NoError(t, book.MarkBorrowed())
			require.NoError(t, book.MarkReturned())
		}
		assert.True(t, book.Available)
	})
}

func TestBook_Reconcile(t *testing.T) {
	t.Run("repairs a stale available flag", func(t *testing.T) {
		book, err := NewBook(validDetails())
		require.NoError(t, err)
		book.ClearDomainEvents()

		// Flag says available but an open loan exists: derived value wins.
		changed := book.Reconcile(true)
		assert.True(t, changed)
		assert.False(t, book.Available)

		events := book.GetDomainEvents()
		require.Len(t, events, 1)
		availEvent, ok := events[0].(*BookAvailabilityChangedEvent)
		require.True(t, ok)
		assert.Equal(t, AvailabilityReasonReconciled, availEvent.Reason)
	})

	t.Run("no-op when flag already matches", func(t *testing.T) {
		book, err := NewBook(validDetails())
		require.NoError(t, err)
		book.ClearDomainEvents()

		changed := book.Reconcile(false)
		assert.False(t, changed)
		assert.True(t, book.Available)
		assert.Empty(t, book.GetDomainEvents())
		assert.Equal(t, 1, book.Version)
	})
}
