package persistence

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/openlib/backend/internal/domain/catalog"
	"github.com/openlib/backend/internal/domain/shared"
)

// newMockBookRepository creates a GormBookRepository with a mocked SQL connection
func newMockBookRepository(t *testing.T) (*GormBookRepository, sqlmock.Sqlmock, *sql.DB) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
	})
	require.NoError(t, err)

	return NewGormBookRepository(gormDB), mock, mockDB
}

func bookRows(bookID uuid.UUID, title string, available bool, version int) *sqlmock.Rows {
	return sqlmock.NewRows([]string{
		"id", "created_at", "updated_at", "version",
		"title", "author", "isbn", "category", "published_year",
		"thumbnail", "description", "page_count", "publisher", "language", "available",
	}).AddRow(
		bookID, time.Now(), time.Now(), version,
		title, "Frank Herbert", "9780441172719", "Sci-Fi", 1965,
		"", "", 412, "Chilton", "en", available,
	)
}

func TestGormBookRepository_FindByID(t *testing.T) {
	t.Run("finds existing book", func(t *testing.T) {
		repo, mock, mockDB := newMockBookRepository(t)
		defer mockDB.Close()

		bookID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "books" WHERE id = \$1`).
			WithArgs(bookID, 1).
			WillReturnRows(bookRows(bookID, "Dune", true, 1))

		book, err := repo.FindByID(context.Background(), bookID)

		assert.NoError(t, err)
		require.NotNil(t, book)
		assert.Equal(t, bookID, book.ID)
		assert.Equal(t, "Dune", book.Title)
		assert.True(t, book.Available)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("returns ErrNotFound for missing book", func(t *testing.T) {
		repo, mock, mockDB := newMockBookRepository(t)
		defer mockDB.Close()

		bookID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "books" WHERE id = \$1`).
			WithArgs(bookID, 1).
			WillReturnError(gorm.ErrRecordNotFound)

		book, err := repo.FindByID(context.Background(), bookID)

		assert.Nil(t, book)
		assert.Equal(t, shared.ErrNotFound, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormBookRepository_SaveAvailability(t *testing.T) {
	newBorrowedBook := func(t *testing.T) *catalog.Book {
		t.Helper()
		book, err := catalog.NewBook(catalog.Details{Title: "Dune", Author: "Frank Herbert"})
		require.NoError(t, err)
		require.NoError(t, book.MarkBorrowed())
		return book
	}

	t.Run("persists the flip when the version matches", func(t *testing.T) {
		repo, mock, mockDB := newMockBookRepository(t)
		defer mockDB.Close()

		book := newBorrowedBook(t)
		require.Equal(t, 2, book.Version)

		mock.ExpectExec(`UPDATE "books" SET .* WHERE id = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := repo.SaveAvailability(context.Background(), book)

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("reports a conflict when no row matches the expected version", func(t *testing.T) {
		repo, mock, mockDB := newMockBookRepository(t)
		defer mockDB.Close()

		book := newBorrowedBook(t)

		mock.ExpectExec(`UPDATE "books" SET .* WHERE id = \$\d+ AND version = \$\d+`).
			WillReturnResult(sqlmock.NewResult(0, 0))

		err := repo.SaveAvailability(context.Background(), book)

		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormBookRepository_Save(t *testing.T) {
	t.Run("leaves the availability columns untouched", func(t *testing.T) {
		repo, mock, mockDB := newMockBookRepository(t)
		defer mockDB.Close()

		book, err := catalog.NewBook(catalog.Details{Title: "Dune", Author: "Frank Herbert"})
		require.NoError(t, err)

		mock.ExpectExec(`UPDATE "books" SET `).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.Save(context.Background(), book))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row surfaces ErrNotFound", func(t *testing.T) {
		repo, mock, mockDB := newMockBookRepository(t)
		defer mockDB.Close()

		book, err := catalog.NewBook(catalog.Details{Title: "Dune", Author: "Frank Herbert"})
		require.NoError(t, err)

		mock.ExpectExec(`UPDATE "books" SET `).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.Save(context.Background(), book), shared.ErrNotFound)
	})
}

func TestGormBookRepository_FindAll(t *testing.T) {
	t.Run("search matches title author and isbn", func(t *testing.T) {
		repo, mock, mockDB := newMockBookRepository(t)
		defer mockDB.Close()

		bookID := uuid.New()
		mock.ExpectQuery(`SELECT \* FROM "books" WHERE title ILIKE \$1 OR author ILIKE \$2 OR isbn ILIKE \$3`).
			WithArgs("%dune%", "%dune%", "%dune%").
			WillReturnRows(bookRows(bookID, "Dune", true, 1))

		filter := shared.DefaultFilter()
		filter.Search = "dune"
		filter.Page = 0 // no pagination for this query

		books, err := repo.FindAll(context.Background(), filter)

		assert.NoError(t, err)
		require.Len(t, books, 1)
		assert.Equal(t, bookID, books[0].ID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormBookRepository_CountByCategory(t *testing.T) {
	t.Run("aggregates per category", func(t *testing.T) {
		repo, mock, mockDB := newMockBookRepository(t)
		defer mockDB.Close()

		rows := sqlmock.NewRows([]string{"category", "total", "available", "borrowed"}).
			AddRow("History", 2, 2, 0).
			AddRow("Sci-Fi", 3, 1, 2)

		mock.ExpectQuery(`SELECT category,`).WillReturnRows(rows)

		counts, err := repo.CountByCategory(context.Background())

		assert.NoError(t, err)
		require.Len(t, counts, 2)
		assert.Equal(t, "Sci-Fi", counts[1].Category)
		assert.Equal(t, int64(3), counts[1].Total)
		assert.Equal(t, int64(2), counts[1].Borrowed)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestGormBookRepository_Delete(t *testing.T) {
	t.Run("deletes existing book", func(t *testing.T) {
		repo, mock, mockDB := newMockBookRepository(t)
		defer mockDB.Close()

		bookID := uuid.New()
		mock.ExpectExec(`DELETE FROM "books" WHERE id = \$1`).
			WithArgs(bookID).
			WillReturnResult(sqlmock.NewResult(0, 1))

		assert.NoError(t, repo.Delete(context.Background(), bookID))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing book surfaces ErrNotFound", func(t *testing.T) {
		repo, mock, mockDB := newMockBookRepository(t)
		defer mockDB.Close()

		bookID := uuid.New()
		mock.ExpectExec(`DELETE FROM "books" WHERE id = \$1`).
			WithArgs(bookID).
			WillReturnResult(sqlmock.NewResult(0, 0))

		assert.ErrorIs(t, repo.Delete(context.Background(), bookID), shared.ErrNotFound)
	})
}
