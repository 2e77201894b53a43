package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultBaseURL is the Gemini REST endpoint root.
const DefaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// RetryPolicy bounds how often a temporary failure is retried. Attempts
// counts every request, so 1 means no retry.
type RetryPolicy struct {
	Attempts  int
	BaseDelay time.Duration
	MaxDelay  time.Duration
}

// DefaultRetry makes a single attempt.
var DefaultRetry = RetryPolicy{Attempts: 1, BaseDelay: 500 * time.Millisecond, MaxDelay: 4 * time.Second}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.Attempts <= 0 {
		p.Attempts = DefaultRetry.Attempts
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = DefaultRetry.BaseDelay
	}
	if p.MaxDelay <= 0 {
		p.MaxDelay = DefaultRetry.MaxDelay
	}
	return p
}

// backoff returns the wait before the next attempt. A server-provided
// Retry-After wins; otherwise the delay doubles per attempt with 20% jitter.
func (p RetryPolicy) backoff(attempt int, retryAfter time.Duration) time.Duration {
	if retryAfter > 0 {
		return retryAfter
	}
	d := p.BaseDelay << min(attempt-1, 30)
	if d <= 0 || d > p.MaxDelay {
		d = p.MaxDelay
	}
	return time.Duration(float64(d) * (0.8 + 0.4*rand.Float64()))
}

// Client talks to the Gemini generateContent REST endpoint.
type Client struct {
	hc    *http.Client
	key   string
	base  string
	retry RetryPolicy
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithBaseURL points the client at another endpoint root.
func WithBaseURL(u string) ClientOption {
	return func(c *Client) {
		if u != "" {
			c.base = strings.TrimRight(u, "/")
		}
	}
}

// WithHTTPTimeout bounds each request.
func WithHTTPTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.hc.Timeout = d
		}
	}
}

// WithRetry sets the retry policy for temporary failures.
func WithRetry(p RetryPolicy) ClientOption {
	return func(c *Client) { c.retry = p.normalized() }
}

// NewClient returns a client with a 60s timeout and DefaultRetry.
func NewClient(apiKey string, opts ...ClientOption) *Client {
	c := &Client{
		hc:    &http.Client{Timeout: 60 * time.Second},
		key:   apiKey,
		base:  DefaultBaseURL,
		retry: DefaultRetry,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// ValidateModel rejects names that would escape the models/ path segment.
func ValidateModel(model string) error {
	if model == "" {
		return errors.New("model cannot be empty")
	}
	if strings.ContainsAny(model, "/?#") {
		return fmt.Errorf("invalid model name %q", model)
	}
	return nil
}

// GenerateContent calls models/{model}:generateContent, retrying temporary
// failures as the client's RetryPolicy allows.
func (c *Client) GenerateContent(ctx context.Context, model string, req GenerateContentRequest) (*GenerateContentResponse, error) {
	if c.key == "" {
		return nil, ErrMissingAPIKey
	}
	if err := ValidateModel(model); err != nil {
		return nil, err
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	endpoint := c.base + "/models/" + url.PathEscape(model) + ":generateContent"

	for attempt := 1; ; attempt++ {
		out, err := c.post(ctx, endpoint, body)
		if err == nil {
			return out, nil
		}
		var ge *GeminiError
		if !errors.As(err, &ge) || !ge.Temporary() || attempt >= c.retry.Attempts {
			return nil, err
		}
		if werr := wait(ctx, c.retry.backoff(attempt, ge.RetryAfter)); werr != nil {
			return nil, werr
		}
	}
}

func (c *Client) post(ctx context.Context, endpoint string, body []byte) (*GenerateContentResponse, error) {
	hreq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	hreq.Header.Set("Content-Type", "application/json")
	hreq.Header.Set("x-goog-api-key", c.key)

	resp, err := c.hc.Do(hreq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &GeminiError{Kind: KindUnreachable, Message: c.base, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		return nil, readGeminiError(resp)
	}
	var out GenerateContentResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	out.RequestID = requestID(resp.Header)
	return &out, nil
}

// readGeminiError decodes a google.rpc error body:
// {"error":{"code":429,"status":"RESOURCE_EXHAUSTED","message":"..."}}.
func readGeminiError(resp *http.Response) *GeminiError {
	var body struct {
		Error struct {
			Status  string `json:"status"`
			Message string `json:"message"`
		} `json:"error"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 8<<10))
	_ = json.Unmarshal(raw, &body)

	ge := &GeminiError{
		HTTPStatus: resp.StatusCode,
		Status:     body.Error.Status,
		Message:    body.Error.Message,
		RequestID:  requestID(resp.Header),
		RetryAfter: retryAfter(resp.Header.Get("Retry-After"), time.Now()),
	}
	if ge.Message == "" && len(raw) > 0 && body.Error.Status == "" {
		ge.Message = strings.TrimSpace(string(raw))
	}
	ge.classify()
	return ge
}

// retryAfter parses a Retry-After value given in seconds or as an HTTP date.
func retryAfter(v string, now time.Time) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil && t.After(now) {
		return t.Sub(now)
	}
	return 0
}

var requestIDHeaders = []string{"X-Request-Id", "X-Goog-Request-Id", "X-Cloud-Trace-Context"}

func requestID(h http.Header) string {
	for _, k := range requestIDHeaders {
		if v := h.Get(k); v != "" {
			return v
		}
	}
	return ""
}

func wait(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
