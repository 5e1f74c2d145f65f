package lookup

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	defaultInfoURL = "http://ip-api.com"

	// Field list requested from the intelligence service; status and message
	// carry the service's in-band failure signalling.
	infoFields = "status,message,offset,isp,org,as,lat,lon,regionName,city"
)

// AddressInfo represents the response from the IP-intelligence service
type AddressInfo struct {
	Status     string  `json:"status,omitempty"`
	Message    string  `json:"message,omitempty"`
	Offset     int     `json:"offset"`
	ISP        string  `json:"isp"`
	Org        string  `json:"org"`
	AS         string  `json:"as"`
	Lat        float64 `json:"lat"`
	Lon        float64 `json:"lon"`
	RegionName string  `json:"regionName"`
	City       string  `json:"city"`
}

// InfoClient queries the IP-intelligence service
type InfoClient struct {
	httpClient *http.Client
	url        string
	version    string
}

// InfoOption configures an InfoClient
type InfoOption func(*InfoClient)

// WithInfoURL sets a custom service base URL
func WithInfoURL(u string) InfoOption {
	return func(c *InfoClient) {
		c.url = u
	}
}

// WithInfoTimeout sets a custom timeout for HTTP requests
func WithInfoTimeout(timeout time.Duration) InfoOption {
	return func(c *InfoClient) {
		c.httpClient.Timeout = timeout
	}
}

// WithInfoVersion sets the version string for the User-Agent header
func WithInfoVersion(version string) InfoOption {
	return func(c *InfoClient) {
		c.version = version
	}
}

// NewInfoClient creates a new IP-intelligence client with the given options
func NewInfoClient(opts ...InfoOption) *InfoClient {
	client := &InfoClient{
		httpClient: newHTTPClient(),
		url:        defaultInfoURL,
		version:    defaultVersion,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Lookup fetches ownership and geolocation data for address. An empty address
// queries the service for the caller's own public address (used for the
// observer-distance supplement).
func (c *InfoClient) Lookup(ctx context.Context, address string) (*AddressInfo, error) {
	endpoint := c.url + "/json"
	if address != "" {
		endpoint += "/" + url.PathEscape(address)
	}
	endpoint += "?fields=" + url.QueryEscape(infoFields)

	log.Debugf("Fetching address info for %q from %s", address, c.url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &Error{Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("User-Agent", userAgent(c.version))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Err: fmt.Errorf("info lookup failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("info service returned status %d", resp.StatusCode),
		}
	}

	var info AddressInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		// A success status with an undecodable payload is still a lookup failure.
		return nil, &Error{Err: fmt.Errorf("failed to parse info response: %w", err)}
	}

	if info.Status != "" && info.Status != "success" {
		return nil, &Error{Err: fmt.Errorf("info service rejected query: %s", info.Message)}
	}

	log.Debugf(
		"Address info for %q: %s, %s (AS %s, offset %ds)",
		address, info.City, info.RegionName, info.AS, info.Offset,
	)
	return &info, nil
}
