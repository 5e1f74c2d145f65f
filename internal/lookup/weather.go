package lookup

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	defaultWeatherURL = "https://wttr.in"

	// Condensed condition + temperature + wind display format
	weatherFormat = "%C %t %w"

	// Weather summaries are one display line; anything bigger is junk
	maxWeatherBody = 4096
)

// WeatherClient queries the weather service. The service replies with a plain
// display string, not JSON.
type WeatherClient struct {
	httpClient *http.Client
	url        string
	version    string
}

// WeatherOption configures a WeatherClient
type WeatherOption func(*WeatherClient)

// WithWeatherURL sets a custom service base URL
func WithWeatherURL(u string) WeatherOption {
	return func(c *WeatherClient) {
		c.url = u
	}
}

// WithWeatherTimeout sets a custom timeout for HTTP requests
func WithWeatherTimeout(timeout time.Duration) WeatherOption {
	return func(c *WeatherClient) {
		c.httpClient.Timeout = timeout
	}
}

// WithWeatherVersion sets the version string for the User-Agent header
func WithWeatherVersion(version string) WeatherOption {
	return func(c *WeatherClient) {
		c.version = version
	}
}

// NewWeatherClient creates a new weather client with the given options
func NewWeatherClient(opts ...WeatherOption) *WeatherClient {
	client := &WeatherClient{
		httpClient: newHTTPClient(),
		url:        defaultWeatherURL,
		version:    defaultVersion,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// Lookup fetches a condensed weather summary for the given location key
// (an address in the reference behavior, but any key the service resolves).
func (c *WeatherClient) Lookup(ctx context.Context, locationKey string) (string, error) {
	endpoint := fmt.Sprintf(
		"%s/%s?format=%s",
		c.url,
		url.PathEscape(locationKey),
		url.QueryEscape(weatherFormat),
	)

	log.Debugf("Fetching weather for %q from %s", locationKey, c.url)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", &Error{Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("User-Agent", userAgent(c.version))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", &Error{Err: fmt.Errorf("weather lookup failed: %w", err)}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return "", &Error{
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("weather service returned status %d", resp.StatusCode),
		}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxWeatherBody))
	if err != nil {
		return "", &Error{Err: fmt.Errorf("failed to read weather response: %w", err)}
	}

	summary := strings.TrimSpace(string(body))
	if summary == "" {
		return "", &Error{Err: fmt.Errorf("weather service returned an empty summary")}
	}

	log.Debugf("Weather for %q: %s", locationKey, summary)
	return summary, nil
}
