package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"fireant/domain"
)

// StatusClientClosedRequest is reported when the caller went away before the
// query finished.
const StatusClientClosedRequest = 499

// notFoundError is returned for unknown datasets and fields.
type notFoundError struct{ msg string }

func (e *notFoundError) Error() string { return e.msg }

// badRequestError wraps a malformed request body.
type badRequestError struct{ err error }

func (e *badRequestError) Error() string { return "invalid request body: " + e.err.Error() }
func (e *badRequestError) Unwrap() error { return e.err }

// httpStatusFromError maps query errors to HTTP status codes.
func httpStatusFromError(err error) int {
	var notFound *notFoundError
	var bad *badRequestError
	var cancelled *domain.QueryCancelledError
	var plan *domain.PlanError

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &bad), domain.IsSpecError(err), errors.As(err, &plan):
		return http.StatusBadRequest
	case errors.As(err, &cancelled):
		if errors.Is(err, context.DeadlineExceeded) {
			return http.StatusGatewayTimeout
		}
		return StatusClientClosedRequest
	default:
		return http.StatusInternalServerError
	}
}

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
