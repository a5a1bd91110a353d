package port

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	ErrTransport      = errors.New("transport failure")
	ErrClient         = errors.New("client error")
	ErrAuthExpired    = errors.New("authentication expired")
	ErrServer         = errors.New("server error")
	ErrSilentRefresh  = errors.New("silent refresh failed")
	ErrSchemaMismatch = errors.New("response schema mismatch")
	ErrStaleResult    = errors.New("stale search result")
	ErrMissingID      = errors.New("missing resource identifier")
	// ErrReviewNotFound is the API's 204 answer for a review that does not exist.
	ErrReviewNotFound = errors.New("review not found")
)

// APIError is a non-2xx response from the review API.
type APIError struct {
	Status  int
	Method  string
	Path    string
	Message string
	Body    []byte
	// RefreshErr is set when the 401 is returned because the silent refresh failed.
	RefreshErr error
}

func (e *APIError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = http.StatusText(e.Status)
	}
	if e.RefreshErr != nil {
		return fmt.Sprintf("%s %s: %d %s (silent refresh: %v)", e.Method, e.Path, e.Status, msg, e.RefreshErr)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Status, msg)
}

// Kind returns the sentinel matching the status class.
func (e *APIError) Kind() error {
	switch {
	case e.Status == http.StatusUnauthorized:
		return ErrAuthExpired
	case e.Status >= 500:
		return ErrServer
	default:
		return ErrClient
	}
}

func (e *APIError) Unwrap() []error {
	errs := []error{e.Kind()}
	if e.RefreshErr != nil {
		errs = append(errs, ErrSilentRefresh, e.RefreshErr)
	}
	return errs
}

// SchemaError reports a payload that could not be decoded into, or failed validation
// as, the expected response type.
type SchemaError struct {
	Operation string
	Err       error
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: response schema mismatch: %v", e.Operation, e.Err)
}

func (e *SchemaError) Unwrap() []error {
	return []error{ErrSchemaMismatch, e.Err}
}

// StatusOf returns the HTTP status carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status
	}
	return 0
}
