package nexusrag

import "github.com/nexusplanner/nexusrag/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrDocumentNotFound       = domain.ErrDocumentNotFound
	ErrCustomerNotFound       = domain.ErrCustomerNotFound
	ErrVectorDimMismatch      = domain.ErrVectorDimMismatch
	ErrInvalidRequest         = domain.ErrInvalidRequest
	ErrEmbeddingQuotaExceeded = domain.ErrEmbeddingQuotaExceeded
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
)
