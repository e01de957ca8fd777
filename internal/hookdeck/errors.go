package hookdeck

import (
	"errors"
	"fmt"
)

// APIError is returned for any non-2xx upstream response. The response body
// is kept verbatim for diagnosis.
type APIError struct {
	Op         string
	Method     string
	URL        string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("hookdeck %s: %s %s failed with status %d: %s", e.Op, e.Method, e.URL, e.StatusCode, e.Body)
}

// StatusOf returns the upstream status code carried by err, or 0.
func StatusOf(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
