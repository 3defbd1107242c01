// Package lemmy is a client for the instance's v3 JSON API. It covers the
// listing and comment endpoints the aggregation core consumes.
package lemmy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/lemmywalk/internal/retry"
)

const defaultUserAgent = "lemmywalk/0.1"

// Config configures a Client
type Config struct {
	BaseURL       string
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
	Retry         retry.Config
	UserAgent     string
}

// TokenSource returns the credential to attach to the next request. An
// empty token sends the request anonymously.
type TokenSource func() string

// Client talks to a single instance. Safe for concurrent use.
type Client struct {
	baseURL     string
	userAgent   string
	httpClient  *http.Client
	RateLimiter *rate.Limiter
	retry       retry.Config
	token       TokenSource
	logger      zerolog.Logger
}

// New creates a client for the instance at cfg.BaseURL.
func New(cfg Config, token TokenSource) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("instance url is empty")
	}
	u, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse instance url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid instance url: %s", cfg.BaseURL)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = defaultUserAgent
	}
	if token == nil {
		token = func() string { return "" }
	}

	r := cfg.Retry
	if r.ShouldRetry == nil {
		r.ShouldRetry = IsRetryable
	}

	return &Client{
		baseURL:     strings.TrimSuffix(cfg.BaseURL, "/") + "/api/v3",
		userAgent:   cfg.UserAgent,
		httpClient:  &http.Client{Timeout: cfg.Timeout},
		RateLimiter: rate.NewLimiter(limit, cfg.Burst),
		retry:       r,
		token:       token,
		logger:      log.With().Str("instance", u.Host).Logger(),
	}, nil
}

// get performs an idempotent GET, retrying per the client's retry config.
func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	if query == nil {
		query = url.Values{}
	}
	if tok := c.token(); tok != "" {
		query.Set("auth", tok)
	}
	requestURL := c.baseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	result := retry.Do(ctx, c.retry, c.logger, func(ctx context.Context) error {
		return c.do(ctx, http.MethodGet, requestURL, nil, out)
	})
	return result.LastError
}

// post performs a single POST. Writes are never retried here; whether to
// resubmit is the caller's decision.
func (c *Client) post(ctx context.Context, path string, body map[string]interface{}, out interface{}) error {
	if tok := c.token(); tok != "" {
		body["auth"] = tok
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}
	return c.do(ctx, http.MethodPost, c.baseURL+path, payload, out)
}

func (c *Client) do(ctx context.Context, method, requestURL string, payload []byte, out interface{}) error {
	if err := c.RateLimiter.Wait(ctx); err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, requestURL, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if tok := c.token(); tok != "" {
		req.Header.Set("Authorization", "Bearer "+tok)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return transportError("failed to execute request", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError("failed to read response", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Body: string(raw)}
		var e struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &e) == nil {
			apiErr.Code = e.Error
		}
		c.logger.Debug().Int("status", resp.StatusCode).Str("method", method).Str("code", apiErr.Code).Msg("Instance returned an error")
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return transportError("failed to decode response", err)
	}
	return nil
}
