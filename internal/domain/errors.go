package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrCustomerNotFound signals a missing CRM customer.
	ErrCustomerNotFound = errors.New("customer not found")
	// ErrVectorDimMismatch signals a vector dimension mismatch.
	ErrVectorDimMismatch = errors.New("vector dimension mismatch")
	// ErrInvalidRequest signals a malformed request (bad id, filter, top_k...).
	ErrInvalidRequest = errors.New("invalid request")

	// ErrEmbeddingQuotaExceeded signals an exhausted embedding budget.
	ErrEmbeddingQuotaExceeded = errors.New("embedding quota exceeded")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrEmbeddingNotConfigured signals that no embedding provider is wired.
	ErrEmbeddingNotConfigured = errors.New("embedding provider not configured")
)

// DimMismatchError wraps ErrVectorDimMismatch with the offending sizes.
type DimMismatchError struct {
	Got  int
	Want int
}

func (e *DimMismatchError) Error() string {
	return fmt.Sprintf("%s: got %d, want %d", ErrVectorDimMismatch.Error(), e.Got, e.Want)
}

func (e *DimMismatchError) Unwrap() error { return ErrVectorDimMismatch }

// NewDimMismatch creates a dimension mismatch error.
func NewDimMismatch(got, want int) error {
	return &DimMismatchError{Got: got, Want: want}
}
