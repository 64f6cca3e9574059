package httpclient

import (
	"fmt"
	"net/http"
)

// HTTPError is returned when an upstream answers with an unexpected status
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("%s %s returned %s", e.Method, e.URL, e.Status)
}

// newHTTPError describes resp, using the URL the request was made for
func newHTTPError(method, rawURL string, resp *http.Response) error {
	status := resp.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	}
	return &HTTPError{
		Method:     method,
		URL:        rawURL,
		StatusCode: resp.StatusCode,
		Status:     status,
	}
}
