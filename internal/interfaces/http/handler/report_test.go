package handler

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportHandler_Overdue(t *testing.T) {
	env := newTestEnv()
	bookID := createBook(t, env, "Dune")
	borrowBook(t, env, bookID, "student-42")

	w := performRequest(env, http.MethodGet, "/api/v1/reports/overdue", nil)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeResponse(t, w).Data.(map[string]interface{})
	// The loan was just opened, so nothing is overdue yet.
	assert.Equal(t, float64(0), data["loans_total"])
}

func TestReportHandler_UserSummary(t *testing.T) {
	env := newTestEnv()
	bookID := createBook(t, env, "Dune")
	borrowBook(t, env, bookID, "student-42")

	w := performRequest(env, http.MethodGet, "/api/v1/reports/users/student-42", nil)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeResponse(t, w).Data.(map[string]interface{})
	assert.Equal(t, float64(1), data["open_loans"])
	assert.Equal(t, float64(0), data["closed_loans"])
}

func TestReportHandler_PopularBooks(t *testing.T) {
	t.Run("ranks by borrow count", func(t *testing.T) {
		env := newTestEnv()
		first := createBook(t, env, "Dune")
		second := createBook(t, env, "Foundation")

		borrowBook(t, env, first, "student-42")
		performRequest(env, http.MethodPost, "/api/v1/books/"+first+"/return", nil)
		borrowBook(t, env, first, "student-43")
		borrowBook(t, env, second, "student-44")

		w := performRequest(env, http.MethodGet, "/api/v1/reports/popular", nil)

		require.Equal(t, http.StatusOK, w.Code)
		items := decodeResponse(t, w).Data.([]interface{})
		require.Len(t, items, 2)
		top := items[0].(map[string]interface{})
		assert.Equal(t, first, top["book_id"])
		assert.Equal(t, float64(2), top["loan_count"])
	})

	t.Run("rejects a limit out of range", func(t *testing.T) {
		env := newTestEnv()

		w := performRequest(env, http.MethodGet, "/api/v1/reports/popular?limit=0", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestReportHandler_Dashboard(t *testing.T) {
	env := newTestEnv()
	bookID := createBook(t, env, "Dune")
	createBook(t, env, "Foundation")
	borrowBook(t, env, bookID, "student-42")

	w := performRequest(env, http.MethodGet, "/api/v1/reports/dashboard", nil)

	require.Equal(t, http.StatusOK, w.Code)
	data := decodeResponse(t, w).Data.(map[string]interface{})
	assert.Equal(t, float64(2), data["total_books"])
	assert.Equal(t, float64(1), data["open_loans"])
}
