package napkin

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/ajitpratap0/napkin-mcp-go/pkg/logging"
)

// Response is a successful (2xx) outcome of a logical request.
type Response struct {
	Status int
	// Body is the decoded JSON value, {"raw": text} for non-JSON content and
	// an empty object for an empty body.
	Body     interface{}
	Header   http.Header
	Raw      []byte
	URL      string
	Attempts int
}

// Decode unmarshals the response body into v.
func (r *Response) Decode(v interface{}) error {
	data, err := json.Marshal(r.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// Client talks to the Napkin API. It is safe for concurrent use; the
// configuration is read-only after New.
type Client struct {
	cfg        Config
	httpClient *http.Client
	rc         *resty.Client
	logger     logging.Logger
	observer   Observer
	limiter    *rate.Limiter
	userAgent  string

	// backoff and sleep are replaced in tests.
	backoff func(n int) time.Duration
	sleep   func(ctx context.Context, d time.Duration) error
}

// New validates cfg and builds a Client. It returns ErrMissingAPIKey when no
// API key is set.
func New(cfg Config, opts ...Option) (*Client, error) {
	normalized, err := cfg.normalize()
	if err != nil {
		return nil, err
	}

	c := &Client{
		cfg:        normalized,
		httpClient: &http.Client{},
		logger:     logging.NewNop(),
		observer:   nopObserver{},
		userAgent:  "napkin-mcp-go/" + Version,
		backoff:    Backoff,
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.rc = resty.NewWithClient(c.httpClient).
		SetRetryCount(0).
		SetAuthToken(normalized.APIKey).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", c.userAgent).
		SetLogger(logging.NewRestyAdapter(c.logger)).
		SetDisableWarn(true)

	c.logger = c.logger.WithFields(logging.String("component", "napkin"))
	return c, nil
}

// BaseURL returns the normalized base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.cfg.BaseURL
}

// Config returns a copy of the client configuration.
func (c *Client) Config() Config {
	return c.cfg
}

// Get executes a GET request.
func (c *Client) Get(ctx context.Context, path string) (*Response, error) {
	return c.Execute(ctx, http.MethodGet, path, nil)
}

// Post executes a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body interface{}) (*Response, error) {
	return c.Execute(ctx, http.MethodPost, path, body)
}

// Execute performs one logical request. path is either an absolute http(s)
// URL or a path relative to the base URL. A non-nil body is sent as JSON.
//
// On failure the returned error is a *Fault unless the request could not be
// built at all (unsupported method, unencodable body).
func (c *Client) Execute(ctx context.Context, method, path string, body interface{}) (*Response, error) {
	if method != http.MethodGet && method != http.MethodPost {
		return nil, fmt.Errorf("napkin: unsupported method %q", method)
	}

	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return nil, fmt.Errorf("napkin: encode request body: %w", err)
		}
	}

	url := c.resolveURL(path)
	callID := uuid.NewString()
	logger := c.logger.WithContext(ctx).WithFields(
		logging.String("call_id", callID),
		logging.String("method", method),
		logging.String("url", url),
	)

	start := time.Now()
	ctx = c.observer.CallStarted(ctx, method, url)

	resp, attempts, err := c.run(ctx, logger, Attempt{CallID: callID, Method: method, URL: url, Body: payload})
	c.observer.CallFinished(ctx, method, url, attempts, err, time.Since(start))
	if err != nil {
		logger.WithError(err).Debug("Napkin request failed", logging.Int("attempts", attempts))
		return nil, err
	}
	return resp, nil
}

func (c *Client) run(ctx context.Context, logger logging.Logger, a Attempt) (*Response, int, error) {
	var last *Fault
	for a.Index = 0; a.Index <= c.cfg.MaxRetries; a.Index++ {
		if a.Index > 0 {
			wait := c.backoff(a.Index - 1)
			logger.WithError(last).Warn("Retrying Napkin request", logging.Duration("backoff", wait))
			if err := c.sleep(ctx, wait); err != nil {
				return nil, a.Index, c.transportFault(ctx, a, err)
			}
		}

		if fault := c.waitLimiter(ctx, a); fault != nil {
			// Nothing was sent for this attempt.
			return nil, a.Index, fault
		}

		resp, fault := c.attempt(ctx, a)
		if fault == nil {
			resp.Attempts = a.Index + 1
			return resp, resp.Attempts, nil
		}
		last = fault

		// Caller cancellation ends the call regardless of budget.
		if !fault.Retriable() || ctx.Err() != nil {
			return nil, a.Index + 1, fault
		}
	}
	return nil, c.cfg.MaxRetries + 1, last
}

// attempt performs one network try. The per-attempt context is released on
// every return path.
func (c *Client) attempt(ctx context.Context, a Attempt) (*Response, *Fault) {
	attemptCtx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	c.observer.AttemptStarted(attemptCtx, a)
	start := time.Now()

	req := c.rc.R().SetContext(attemptCtx)
	if a.Body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(a.Body)
	}

	res, err := req.Execute(a.Method, a.URL)
	if err != nil {
		fault := c.transportFault(attemptCtx, a, err)
		c.observer.AttemptFinished(attemptCtx, a, 0, fault, time.Since(start))
		return nil, fault
	}

	status := res.StatusCode()
	raw := res.Body()
	contentType := res.Header().Get("Content-Type")

	parsed, err := decodeBody(raw, contentType)
	if err != nil {
		fault := &Fault{
			Kind:        FaultDecode,
			Method:      a.Method,
			URL:         a.URL,
			Attempt:     a.Index,
			Status:      status,
			RawBody:     string(raw),
			ContentType: contentType,
			Err:         err,
		}
		c.observer.AttemptFinished(attemptCtx, a, status, fault, time.Since(start))
		return nil, fault
	}

	if status >= 200 && status < 300 {
		c.observer.AttemptFinished(attemptCtx, a, status, nil, time.Since(start))
		return &Response{
			Status: status,
			Body:   parsed,
			Header: res.Header(),
			Raw:    raw,
			URL:    a.URL,
		}, nil
	}

	fault := &Fault{
		Kind:        FaultHTTP,
		Method:      a.Method,
		URL:         a.URL,
		Attempt:     a.Index,
		Status:      status,
		Body:        parsed,
		RawBody:     string(raw),
		ContentType: contentType,
	}
	c.observer.AttemptFinished(attemptCtx, a, status, fault, time.Since(start))
	return nil, fault
}

// waitLimiter blocks until the rate limiter admits attempt a. The limiter
// refuses up front when the wait would outlast the context deadline; that is
// reported as a timeout like an elapsed deadline.
func (c *Client) waitLimiter(ctx context.Context, a Attempt) *Fault {
	if c.limiter == nil {
		return nil
	}
	err := c.limiter.Wait(ctx)
	if err == nil {
		return nil
	}

	fault := c.transportFault(ctx, a, err)
	if _, ok := ctx.Deadline(); ok && strings.Contains(err.Error(), "deadline") {
		fault.Kind = FaultTimeout
	}
	return fault
}

func (c *Client) transportFault(ctx context.Context, a Attempt, err error) *Fault {
	kind := FaultNetwork
	if ctx.Err() != nil || errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, context.Canceled) || isTimeout(err) {
		kind = FaultTimeout
	}
	return &Fault{
		Kind:    kind,
		Method:  a.Method,
		URL:     a.URL,
		Attempt: a.Index,
		Err:     err,
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func (c *Client) resolveURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.cfg.BaseURL + path
}

// decodeBody parses raw as JSON when the content type is JSON or unknown.
func decodeBody(raw []byte, contentType string) (interface{}, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return map[string]interface{}{}, nil
	}
	if !isJSONContentType(contentType) {
		return map[string]interface{}{"raw": string(raw)}, nil
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// isJSONContentType treats a missing content type as JSON.
func isJSONContentType(contentType string) bool {
	if strings.TrimSpace(contentType) == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		return strings.Contains(strings.ToLower(contentType), "application/json")
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
