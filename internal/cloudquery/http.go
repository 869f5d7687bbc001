package cloudquery

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Transport defaults.
const (
	DefaultTimeout        = 30 * time.Second
	DefaultMaxRetries     = 3
	DefaultInitialBackoff = 300 * time.Millisecond
	DefaultMaxBackoff     = 3 * time.Second
	DefaultUserAgent      = "scan-go/0.1"

	headerAppID = "X-Parse-Application-Id"
	maxRetries  = 10
)

// HTTPCaller calls cloud functions over the Parse REST API:
// POST {ServerURL}/functions/{name} with the params as a JSON body.
// 429 and 5xx responses are retried with jittered exponential backoff.
type HTTPCaller struct {
	ServerURL string
	AppID     string

	HTTPClient *http.Client
	UserAgent  string

	MaxRetries     int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	Logger zerolog.Logger

	timeout time.Duration
}

// HTTPOption customizes an HTTPCaller.
type HTTPOption func(*HTTPCaller)

// WithHTTPClient replaces the tuned default client. A nil client keeps the default.
func WithHTTPClient(h *http.Client) HTTPOption { return func(c *HTTPCaller) { c.HTTPClient = h } }

// WithTimeout sets the per-attempt HTTP timeout. Non-positive values keep the
// client's own timeout. A client passed to WithHTTPClient is copied, not modified.
func WithTimeout(d time.Duration) HTTPOption { return func(c *HTTPCaller) { c.timeout = d } }

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) HTTPOption { return func(c *HTTPCaller) { c.UserAgent = ua } }

// WithRetries sets the number of retries after the first attempt.
func WithRetries(n int) HTTPOption { return func(c *HTTPCaller) { c.MaxRetries = n } }

// WithBackoff sets the initial and maximum retry delay.
func WithBackoff(initial, maximum time.Duration) HTTPOption {
	return func(c *HTTPCaller) {
		c.InitialBackoff = initial
		c.MaxBackoff = maximum
	}
}

// WithLogger attaches a logger for per-attempt diagnostics.
func WithLogger(l zerolog.Logger) HTTPOption { return func(c *HTTPCaller) { c.Logger = l } }

// NewHTTPCaller builds a caller for serverURL (for example https://xyz.moralis.io:2053/server).
func NewHTTPCaller(serverURL, appID string, opts ...HTTPOption) *HTTPCaller {
	c := &HTTPCaller{
		ServerURL:      strings.TrimRight(serverURL, "/"),
		AppID:          appID,
		HTTPClient:     newDefaultHTTPClient(),
		UserAgent:      DefaultUserAgent,
		MaxRetries:     DefaultMaxRetries,
		InitialBackoff: DefaultInitialBackoff,
		MaxBackoff:     DefaultMaxBackoff,
		Logger:         zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.HTTPClient == nil {
		c.HTTPClient = newDefaultHTTPClient()
	}
	if c.timeout > 0 {
		client := *c.HTTPClient
		client.Timeout = c.timeout
		c.HTTPClient = &client
	}
	return c
}

func newDefaultHTTPClient() *http.Client {
	return &http.Client{
		Timeout: DefaultTimeout,
		Transport: &http.Transport{
			Proxy: http.ProxyFromEnvironment,
			DialContext: (&net.Dialer{
				Timeout:   10 * time.Second, //nolint:mnd // Dial timeout.
				KeepAlive: 30 * time.Second, //nolint:mnd // Keep-alive period.
			}).DialContext,
			TLSHandshakeTimeout: 10 * time.Second, //nolint:mnd // TLS handshake timeout.
			MaxIdleConns:        100,              //nolint:mnd // Idle pool size.
			IdleConnTimeout:     90 * time.Second, //nolint:mnd // Idle timeout.
		},
	}
}

// Call implements Caller. The {"result": ...} envelope is removed.
func (c *HTTPCaller) Call(ctx context.Context, method string, params map[string]any) (json.RawMessage, error) {
	if method == "" {
		return nil, ErrEmptyMethod
	}
	if params == nil {
		params = map[string]any{}
	}

	body, err := json.Marshal(params)
	if err != nil {
		return nil, fmt.Errorf("marshal params: %w", err)
	}
	endpoint := c.ServerURL + "/functions/" + url.PathEscape(method)

	retries := min(max(c.MaxRetries, 0), maxRetries)
	backoff := c.InitialBackoff
	if backoff <= 0 {
		backoff = DefaultInitialBackoff
	}
	maxBackoff := max(c.MaxBackoff, backoff)

	var lastErr error
	for attempt := 0; attempt <= retries; attempt++ {
		result, retryAfter, callErr := c.attempt(ctx, endpoint, body)
		if callErr == nil {
			return result, nil
		}
		lastErr = callErr

		var ce *CallError
		if errors.As(callErr, &ce) && !ce.Retryable() {
			return nil, callErr
		}
		if ctx.Err() != nil {
			return nil, callErr
		}

		c.Logger.Debug().
			Str("component", "cloudquery").
			Str("function", method).
			Int("attempt", attempt).
			Err(callErr).
			Msg("cloud function attempt failed")

		if attempt < retries {
			if !sleepJitter(ctx, backoff, maxBackoff, retryAfter) {
				return nil, ctx.Err()
			}
			backoff = min(backoff*2, maxBackoff) //nolint:mnd // Exponential factor.
		}
	}
	return nil, fmt.Errorf("cloud function %s failed after %d attempts: %w", method, retries+1, lastErr)
}

// attempt performs one POST. retryAfter is non-zero when the server asked for a delay.
func (c *HTTPCaller) attempt(ctx context.Context, endpoint string, body []byte) (json.RawMessage, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(headerAppID, c.AppID)
	if c.UserAgent != "" {
		req.Header.Set("User-Agent", c.UserAgent)
	}

	res, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("POST %s: %w", endpoint, err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("read response: %w", err)
	}

	if res.StatusCode/100 != 2 { //nolint:mnd // Status class.
		return nil, parseRetryAfter(res.Header.Get("Retry-After")), parseCallError(res.StatusCode, raw)
	}

	var env struct {
		Result json.RawMessage `json:"result"`
	}
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, 0, fmt.Errorf("decode response envelope: %w", err)
	}
	return env.Result, 0, nil
}

// parseRetryAfter understands delay-seconds and HTTP-date values.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(v); err == nil {
		return time.Until(at)
	}
	return 0
}

// sleepJitter waits between d/2 and d (capped at maxDelay), but never less
// than retryAfter, which the server asked for and is not capped. It returns
// false if ctx ended first.
func sleepJitter(ctx context.Context, d, maxDelay, retryAfter time.Duration) bool {
	d = min(d, maxDelay)
	half := d / 2 //nolint:mnd // Jitter window.
	wait := half
	if half > 0 {
		wait += rand.N(half)
	}
	wait = max(wait, retryAfter)

	t := time.NewTimer(wait)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
