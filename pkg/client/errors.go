package client

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// APIError is returned for every non-2xx NetBox response. The raw body is
// kept because NetBox reports validation and integrity failures there.
type APIError struct {
	StatusCode int
	Method     string
	URL        string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s %s returned %d: %s", e.Method, e.URL, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s %s returned %d", e.Method, e.URL, e.StatusCode)
}

// conflictMarkers are substrings NetBox (and the database beneath it) use
// when a write collides with an existing record.
var conflictMarkers = []string{
	"duplicate key",
	"already exists",
	"must be unique",
	"unique constraint",
}

// IsNotFound() reports whether err is a 404 from NetBox.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusNotFound
	}
	return false
}

// IsConflict() reports whether err is a uniqueness/integrity conflict.
// NetBox returns these either as 409 or as a 400/500 whose body carries
// the database message, so the body is inspected too.
func IsConflict(err error) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	if apiErr.StatusCode == http.StatusConflict {
		return true
	}
	body := strings.ToLower(apiErr.Body)
	for _, marker := range conflictMarkers {
		if strings.Contains(body, marker) {
			return true
		}
	}
	return false
}

// Mentions() reports whether the error body names the given field. It is
// used to detect servers that reject write-only fields they do not know.
func Mentions(err error, field string) bool {
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		return false
	}
	return apiErr.StatusCode == http.StatusBadRequest && strings.Contains(apiErr.Body, field)
}
