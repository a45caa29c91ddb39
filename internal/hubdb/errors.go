package hubdb

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound is matched by an *APIError carrying a 404 status.
	ErrNotFound = errors.New("hubdb: not found")
	// ErrMalformedRow is returned when a row body cannot be decoded or the
	// requested cell is missing or not an integer.
	ErrMalformedRow = errors.New("hubdb: malformed row")
)

// APIError is a non-2xx answer from the table service.
type APIError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hubdb: %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Body)
}

// Is lets errors.Is(err, ErrNotFound) match a 404 response.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}
