package crawler

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrPermissionDenied is returned by Driver.Run when the permission gate refuses the crawl.
	ErrPermissionDenied = errors.New("robots.txt appears to restrict crawling of this site")

	// ErrInvalidTemplate is returned when the index path template has no {bucket} placeholder.
	ErrInvalidTemplate = errors.New("index template must contain a {bucket} placeholder")

	// ErrInvalidBaseURL is returned when the base URL is not absolute.
	ErrInvalidBaseURL = errors.New("base URL must be absolute (scheme and host)")
)

// HTTPError reports a non-success status for an index page.
type HTTPError struct {
	StatusCode int
	URL        string
}

// Error formats the status the way an HTTP client library would.
func (e *HTTPError) Error() string {
	kind := "Client"
	if e.StatusCode >= http.StatusInternalServerError {
		kind = "Server"
	}
	return fmt.Sprintf("%d %s Error: %s for url: %s", e.StatusCode, kind, http.StatusText(e.StatusCode), e.URL)
}
