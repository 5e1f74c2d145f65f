// Package lookup provides clients for the external IP-intelligence and
// weather services consulted by the enrichment pipeline.
package lookup

import (
	"fmt"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"
)

const (
	defaultTimeout = 10 * time.Second
	defaultVersion = "dev"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Error represents a structured error from a lookup client
type Error struct {
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("lookup error (status %d): %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("lookup error: %v", e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// userAgent builds the User-Agent header value for lookup requests
func userAgent(version string) string {
	return fmt.Sprintf("addressinfo/%s", version)
}

// newHTTPClient builds the default HTTP client shared by both lookups
func newHTTPClient() *http.Client {
	return &http.Client{
		Timeout: defaultTimeout,
	}
}
