package domain

import "errors"

// Engine error taxonomy. Callers match with errors.Is; producers wrap
// these with fmt.Errorf("%w: ...") to add detail.
var (
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrDimensionMismatch    = errors.New("vector dimension mismatch")
	ErrExtractionFailed     = errors.New("text extraction failed")
	ErrEmbeddingFailed      = errors.New("embedding failed")
	ErrNotFound             = errors.New("not found")
	ErrTimeout              = errors.New("collaborator call timed out")
)
