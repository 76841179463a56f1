package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/memoir-labs/memoir/internal/domain"
)

// ErrorCode is a machine-readable error identifier returned to clients.
type ErrorCode string

const (
	CodeBadRequest       ErrorCode = "bad_request"
	CodeValidationFailed ErrorCode = "validation_failed"
	CodeUnauthorized     ErrorCode = "unauthorized"
	CodeForbidden        ErrorCode = "forbidden"
	CodeMemoryNotFound   ErrorCode = "memory_not_found"
	CodeCategoryNotFound ErrorCode = "category_not_found"
	CodeProviderError    ErrorCode = "provider_error"
	CodeSearchFailed     ErrorCode = "search_failed"
	CodeInternalError    ErrorCode = "internal_error"
)

// ErrorResponse is the JSON error envelope for every non-2xx answer.
type ErrorResponse struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Message: message,
	})
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	sentinels := []error{
		domain.ErrMemoryNotFound,
		domain.ErrCategoryNotFound,
		domain.ErrNotFound,
		domain.ErrForbidden,
		domain.ErrInvalidInput,
		domain.ErrVectorDimMismatch,
		domain.ErrEmbeddingProviderError,
		domain.ErrLLMProviderError,
		domain.ErrSearchFailed,
	}
	for _, s := range sentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// sentinelHandler returns an errorHandler that matches a single sentinel error.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error, msg string) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		writeError(w, status, code, msg)
		return true
	}
}
