package httputil

import (
	"net/http"
	"time"
)

// DefaultTimeout bounds any single remote source fetch.
const DefaultTimeout = 30 * time.Second

// NewClient returns the HTTP client used for remote CSV sources.
func NewClient() *http.Client {
	return &http.Client{
		Timeout: DefaultTimeout,
	}
}
