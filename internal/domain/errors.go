package domain

import "errors"

var (
	// ErrValidation marks malformed or missing input on order creation.
	ErrValidation = errors.New("validation failed")

	// ErrOrderNotFound is returned for lookups of unknown order IDs.
	ErrOrderNotFound = errors.New("order not found")

	// ErrJobNotFound is returned for lookups of unknown job IDs.
	ErrJobNotFound = errors.New("job not found")

	// ErrConflict is returned when a compare-and-swap state transition finds
	// the record in a different state than expected.
	ErrConflict = errors.New("conflicting state transition")

	// ErrJobAlreadyClaimed is returned when claiming a job that is no longer
	// in QUEUED status.
	ErrJobAlreadyClaimed = errors.New("job already claimed or not queued")
)

// RetryableError wraps transient errors that should trigger a redelivery of
// the underlying queue message.
type RetryableError struct {
	Err error
}

func (e *RetryableError) Error() string {
	return "retryable error: " + e.Err.Error()
}

func (e *RetryableError) Unwrap() error {
	return e.Err
}

// NewRetryableError wraps err as retryable.
func NewRetryableError(err error) error {
	return &RetryableError{Err: err}
}
