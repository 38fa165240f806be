package internalerr

import "errors"

// Sentinel errors for common cases
var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrDuplicate        = errors.New("duplicate entry")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalidConfig    = errors.New("invalid configuration")

	// ErrRetryable marks transient failures (e.g. the LLM collaborator
	// being unreachable) that the caller may safely retry.
	ErrRetryable = errors.New("retryable failure")
)
