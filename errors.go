package admission

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNilOperation is returned when Admit is called with a nil operation.
	ErrNilOperation = errors.New("admission: operation is nil")

	// ErrClosed is returned for admissions made after Close.
	ErrClosed = errors.New("admission: scheduler closed")

	// ErrCleared settles records dropped from the pending set by Clear.
	ErrCleared = errors.New("admission: task cleared before dispatch")

	// ErrPanic wraps a value recovered from a panicking operation.
	ErrPanic = errors.New("admission: operation panicked")

	// ErrRetriesExhausted is joined with the last error of a record
	// that was still rate limited after its final retry.
	ErrRetriesExhausted = errors.New("admission: retries exhausted")
)

// StatusCoder is implemented by errors that carry an HTTP-style status code.
type StatusCoder interface {
	StatusCode() int
}

// StatusError is a failure reported by a remote endpoint.
type StatusError struct {
	Code int
	Err  error
}

func (e *StatusError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("status %d: %v", e.Code, e.Err)
	}
	return fmt.Sprintf("status %d %s", e.Code, http.StatusText(e.Code))
}

func (e *StatusError) Unwrap() error   { return e.Err }
func (e *StatusError) StatusCode() int { return e.Code }

// StatusCode returns the status code carried anywhere in err's chain,
// or 0 if there is none.
func StatusCode(err error) int {
	var sc StatusCoder
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return 0
}

// IsRateLimited reports whether err carries a 429 Too Many Requests status.
func IsRateLimited(err error) bool {
	return StatusCode(err) == http.StatusTooManyRequests
}
