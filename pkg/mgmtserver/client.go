package mgmtserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
)

const (
	defaultClientTimeout = 10 * time.Second
	maxDrainSize         = 1 << 20
)

// APIError is a problem response returned by the management server.
type APIError struct {
	Status int
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("management api: %d %s", e.Status, http.StatusText(e.Status))
	}
	return fmt.Sprintf("management api: %d: %s", e.Status, e.Detail)
}

// Client calls a management server. Every call is idempotent, so network
// errors, 5xx and 429 responses are retried with exponential backoff.
type Client struct {
	baseURL    string
	httpClient *http.Client
	retries    uint64
	backoff    time.Duration
}

// ClientOption configures a Client.
type ClientOption func(*Client)

func WithHTTPClient(c *http.Client) ClientOption {
	return func(cl *Client) {
		if c != nil {
			cl.httpClient = c
		}
	}
}

// WithRetry sets the retry budget and the initial backoff.
func WithRetry(retries int, initial time.Duration) ClientOption {
	return func(cl *Client) {
		cl.retries = uint64(max(retries, 0))
		if initial > 0 {
			cl.backoff = initial
		}
	}
}

// NewClient targets addr, either a URL or a host:port.
func NewClient(addr string, opts ...ClientOption) *Client {
	base := strings.TrimRight(addr, "/")
	if !strings.Contains(base, "://") {
		if strings.HasPrefix(base, ":") {
			base = "localhost" + base
		}
		base = "http://" + base
	}
	c := &Client{
		baseURL:    base,
		httpClient: &http.Client{Timeout: defaultClientTimeout},
		retries:    2,
		backoff:    200 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) LoggerNames(ctx context.Context) ([]string, error) {
	var body LoggerNamesResponse
	if err := c.do(ctx, http.MethodGet, "/loggers", nil, &body); err != nil {
		return nil, err
	}
	return body.Loggers, nil
}

func (c *Client) LoggerLevel(ctx context.Context, name string) (LoggerLevelResponse, error) {
	var body LoggerLevelResponse
	err := c.do(ctx, http.MethodGet, "/loggers/level", url.Values{"logger": {name}}, &body)
	return body, err
}

// SetLoggerLevel sets the level of name; an empty level clears it.
func (c *Client) SetLoggerLevel(ctx context.Context, name, level string) (LoggerLevelResponse, error) {
	var body LoggerLevelResponse
	err := c.do(ctx, http.MethodPut, "/loggers/level", url.Values{"logger": {name}, "level": {level}}, &body)
	return body, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, out any) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.backoff
	retrier := backoff.WithContext(backoff.WithMaxRetries(policy, c.retries), ctx)

	return backoff.Retry(func() error {
		req, err := http.NewRequestWithContext(ctx, method, target, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return backoff.Permanent(err)
			}
			return err
		}
		defer drain(resp)

		if resp.StatusCode >= 400 {
			apiErr := decodeProblem(resp)
			if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
				return apiErr
			}
			return backoff.Permanent(apiErr)
		}

		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return backoff.Permanent(fmt.Errorf("management api: decode response: %w", err))
		}
		return nil
	}, retrier)
}

func decodeProblem(resp *http.Response) *APIError {
	var problem ProblemDetail
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxDrainSize)).Decode(&problem); err != nil {
		return &APIError{Status: resp.StatusCode}
	}
	return &APIError{Status: resp.StatusCode, Detail: problem.Detail}
}

func drain(resp *http.Response) {
	_, _ = io.CopyN(io.Discard, resp.Body, maxDrainSize)
	_ = resp.Body.Close()
}
