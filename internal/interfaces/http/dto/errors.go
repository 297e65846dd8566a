package dto

import "net/http"

// Transport-level error codes. Domain errors carry their own codes
// (NOT_FOUND, BOOK_UNAVAILABLE, ...); the ones below originate in the HTTP
// layer itself.
const (
	ErrCodeInternal    = "INTERNAL_ERROR"
	ErrCodeBadRequest  = "BAD_REQUEST"
	ErrCodeValidation  = "VALIDATION_ERROR"
	ErrCodeInvalidJSON = "INVALID_JSON"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes.
//
// BOOK_UNAVAILABLE and INVALID_LOAN are well-formed requests rejected by
// circulation rules, so they map to 422 rather than 400 or 404.
// STORE_UNAVAILABLE means the backing store failed after retries and the
// caller may retry, which is what 503 communicates.
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:    http.StatusInternalServerError,
	ErrCodeBadRequest:  http.StatusBadRequest,
	ErrCodeValidation:  http.StatusBadRequest,
	ErrCodeInvalidJSON: http.StatusBadRequest,

	"NOT_FOUND":            http.StatusNotFound,
	"ALREADY_EXISTS":       http.StatusConflict,
	"CONCURRENCY_CONFLICT": http.StatusConflict,
	"INVALID_INPUT":        http.StatusBadRequest,
	"INVALID_STATE":        http.StatusUnprocessableEntity,

	"BOOK_UNAVAILABLE":  http.StatusUnprocessableEntity,
	"INVALID_LOAN":      http.StatusUnprocessableEntity,
	"STORE_UNAVAILABLE": http.StatusServiceUnavailable,

	"INVALID_TITLE":      http.StatusBadRequest,
	"INVALID_AUTHOR":     http.StatusBadRequest,
	"INVALID_ISBN":       http.StatusBadRequest,
	"INVALID_YEAR":       http.StatusBadRequest,
	"INVALID_PAGE_COUNT": http.StatusBadRequest,
	"INVALID_DUE_DATE":   http.StatusBadRequest,
	"INVALID_USER_ID":    http.StatusBadRequest,
	"INVALID_BOOK_ID":    http.StatusBadRequest,
}

// GetHTTPStatus returns the HTTP status for an error code, defaulting to 500
// for codes the map does not know
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
