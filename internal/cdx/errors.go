package cdx

import (
	"errors"
	"fmt"
)

// ErrMalformedResponse is returned when an index response cannot be parsed:
// the payload is not a JSON array, the header row is missing an expected
// column, or a data row is shorter than the header promises.
// Wrap it with details; callers match it with errors.Is().
var ErrMalformedResponse = errors.New("malformed index response")

// FetchError is the typed error for failed HTTP calls. It carries the URL
// that failed and, for non-2xx responses, the status code. The client never
// retries; retry policy belongs to the caller, and the crawler treats any
// fetch failure as terminal for that unit of work.
type FetchError struct {
	// URL is the request URL that failed.
	URL string

	// StatusCode is the HTTP status for non-2xx responses, zero for
	// transport errors.
	StatusCode int

	// Err is the underlying cause.
	Err error
}

// Error implements the error interface.
func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("fetch %s: unexpected status %d", e.URL, e.StatusCode)
	}
	return fmt.Sprintf("fetch %s: %v", e.URL, e.Err)
}

// Unwrap returns the underlying cause for errors.Is/As chains.
func (e *FetchError) Unwrap() error {
	return e.Err
}
