package httputil

import (
	"net/http"
	"time"
)

const DefaultTimeout = 10 * time.Second

const UserAgent = "weatheretl/1.0"

// NewClient returns an HTTP client for provider calls. Lambda invocations
// are short, so the timeout stays well under the function timeout.
func NewClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &http.Client{
		Timeout: timeout,
	}
}
