package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"datagate/internal/domain"
)

// errorResponse is the uniform error body. The message comes from
// domain.Classify, so backend internals never leak to clients.
type errorResponse struct {
	Code      int    `json:"code"`
	Kind      string `json:"kind,omitempty"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// httpStatusFromError maps domain errors to HTTP status codes. A timed-out
// execution is distinguished from other failures so clients can retry with a
// narrower query.
func httpStatusFromError(err error) int {
	var notFound *domain.NotFoundError
	var accessDenied *domain.AccessDeniedError
	var validation *domain.ValidationError
	var execution *domain.ExecutionError

	switch {
	case errors.As(err, &notFound):
		return http.StatusNotFound
	case errors.As(err, &accessDenied):
		return http.StatusForbidden
	case errors.As(err, &validation):
		return http.StatusBadRequest
	case errors.As(err, &execution):
		if execution.Timeout {
			return http.StatusGatewayTimeout
		}
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, requestID string, err error) {
	code := httpStatusFromError(err)
	kind, message := domain.Classify(err)
	writeJSON(w, code, errorResponse{
		Code:      code,
		Kind:      kind,
		Message:   message,
		RequestID: requestID,
	})
}

func writeJSON(w http.ResponseWriter, code int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
