package chi

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/nexusplanner/nexusrag/internal/domain"
)

// ErrorCode is the machine-readable error code of an API error response.
type ErrorCode string

// API error codes.
const (
	CodeBadRequest             ErrorCode = "bad_request"
	CodeValidationFailed       ErrorCode = "validation_failed"
	CodeUnauthorized           ErrorCode = "unauthorized"
	CodeNotFound               ErrorCode = "not_found"
	CodeDocumentNotFound       ErrorCode = "document_not_found"
	CodeCustomerNotFound       ErrorCode = "customer_not_found"
	CodeVectorDimMismatch      ErrorCode = "vector_dim_mismatch"
	CodeEmbeddingQuotaExceeded ErrorCode = "embedding_quota_exceeded"
	CodeEmbeddingProviderError ErrorCode = "embedding_provider_error"
	CodeEmbeddingNotConfigured ErrorCode = "embedding_not_configured"
	CodeInternalError          ErrorCode = "internal_error"
)

type errorResponse struct {
	Code    ErrorCode         `json:"code"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error, msg string) bool

// exposedSentinels are the errors whose text may reach clients.
var exposedSentinels = []error{
	domain.ErrDocumentNotFound,
	domain.ErrCustomerNotFound,
	domain.ErrNotFound,
	domain.ErrVectorDimMismatch,
	domain.ErrInvalidRequest,
	domain.ErrEmbeddingQuotaExceeded,
	domain.ErrEmbeddingProviderError,
	domain.ErrEmbeddingNotConfigured,
}

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		sentinelHandler(domain.ErrDocumentNotFound, http.StatusNotFound, CodeDocumentNotFound),
		sentinelHandler(domain.ErrCustomerNotFound, http.StatusNotFound, CodeCustomerNotFound),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		dimMismatchHandler,
		invalidRequestHandler,
		sentinelHandler(domain.ErrEmbeddingQuotaExceeded,
			http.StatusPaymentRequired, CodeEmbeddingQuotaExceeded),
		sentinelHandler(domain.ErrEmbeddingProviderError,
			http.StatusBadGateway, CodeEmbeddingProviderError),
		sentinelHandler(domain.ErrEmbeddingNotConfigured,
			http.StatusServiceUnavailable, CodeEmbeddingNotConfigured),
	}
}

// safeDomainMessage returns a sentinel error message for the client without exposing internals.
func safeDomainMessage(err error) string {
	for _, s := range exposedSentinels {
		if errors.Is(err, s) {
			return s.Error()
		}
	}
	return "internal error"
}

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

// dimMismatchHandler reports both lengths, which carry no internals.
func dimMismatchHandler(w http.ResponseWriter, err error, msg string) bool {
	var dme *domain.DimMismatchError
	if errors.As(err, &dme) {
		writeError(w, http.StatusBadRequest, CodeVectorDimMismatch,
			fmt.Sprintf("%s: got %d, want %d", msg, dme.Got, dme.Want))
		return true
	}
	if errors.Is(err, domain.ErrVectorDimMismatch) {
		writeError(w, http.StatusBadRequest, CodeVectorDimMismatch, msg)
		return true
	}
	return false
}

// invalidRequestHandler passes the full message through: validation errors
// are built from client input only.
func invalidRequestHandler(w http.ResponseWriter, err error, _ string) bool {
	if !errors.Is(err, domain.ErrInvalidRequest) {
		return false
	}
	writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
	return true
}

// validationFields maps validator failures to per-field messages.
func validationFields(errs validator.ValidationErrors) map[string]string {
	fields := make(map[string]string, len(errs))
	for _, fe := range errs {
		name := fe.Field()
		switch fe.Tag() {
		case "required":
			fields[name] = name + " is required"
		case "min", "gte":
			fields[name] = fmt.Sprintf("%s must be at least %s", name, fe.Param())
		case "max", "lte":
			fields[name] = fmt.Sprintf("%s must be at most %s", name, fe.Param())
		case "oneof":
			fields[name] = fmt.Sprintf("%s must be one of: %s", name, fe.Param())
		default:
			fields[name] = fmt.Sprintf("%s failed on %q", name, fe.Tag())
		}
	}
	return fields
}
