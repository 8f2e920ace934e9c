package retry

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidMaxAttempts is returned when maxAttempts is not positive.
	ErrInvalidMaxAttempts = errors.New("max attempts must be greater than 0")

	// ErrInvalidBackoffFactor is returned when backoffFactor is less than 1.
	ErrInvalidBackoffFactor = errors.New("backoff factor must be at least 1")
)

// FatalError marks an error as non-retryable. Do returns it immediately
// without consuming further attempts.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return "fatal: " + e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// Fatal wraps err so Do treats it as non-retryable.
// Returns nil if err is nil.
func Fatal(err error) error {
	if err == nil {
		return nil
	}
	return &FatalError{Err: err}
}

// ExhaustedError is returned by Do when every attempt failed.
// It wraps the error from the last attempt.
type ExhaustedError struct {
	Attempts int
	Err      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempts: %v", e.Attempts, e.Err)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Err
}
