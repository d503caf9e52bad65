package napkin

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ajitpratap0/napkin-mcp-go/pkg/logging"
)

const (
	// DefaultBaseURL is the public Napkin API endpoint.
	DefaultBaseURL = "https://api.napkin.ai"
	// DefaultTimeout bounds a single attempt, not the whole logical call.
	DefaultTimeout = 20 * time.Second
	// DefaultMaxRetries is the number of retries after the first attempt.
	DefaultMaxRetries = 2
)

// Version is reported in the User-Agent header.
var Version = "0.1.0"

// ErrMissingAPIKey is returned by New when no API key is configured. It is a
// fatal configuration error: no network call is ever made.
var ErrMissingAPIKey = errors.New("missing NAPKIN_API_KEY environment variable")

// Config holds the connection settings of a Client. It is copied into the
// client by New and never changes afterwards.
type Config struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	MaxRetries int
}

// DefaultConfig returns a Config with the default base URL, timeout and
// retry budget. The API key is left empty.
func DefaultConfig() Config {
	return Config{
		BaseURL:    DefaultBaseURL,
		Timeout:    DefaultTimeout,
		MaxRetries: DefaultMaxRetries,
	}
}

func (c Config) normalize() (Config, error) {
	c.APIKey = strings.TrimSpace(c.APIKey)
	if c.APIKey == "" {
		return c, ErrMissingAPIKey
	}
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
	if c.BaseURL == "" {
		c.BaseURL = DefaultBaseURL
	}
	if c.Timeout <= 0 {
		c.Timeout = DefaultTimeout
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	return c, nil
}

// Option configures optional collaborators of a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying *http.Client. Its Timeout should be
// zero; per-attempt timeouts are applied through the request context.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger used for attempt and retry diagnostics.
func WithLogger(logger logging.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithObserver registers hooks called around calls and attempts.
func WithObserver(o Observer) Option {
	return func(c *Client) {
		if o != nil {
			c.observer = o
		}
	}
}

// WithRateLimiter makes every attempt wait on the limiter first.
func WithRateLimiter(l *rate.Limiter) Option {
	return func(c *Client) {
		c.limiter = l
	}
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}
