// Package generator provides the LLM-backed implementation of
// core.Generator plus a scripted in-memory double for tests.
package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"

	"github.com/vampirenirmal/narratology/internal/core"
)

// Provider selects the wire format of the backend.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
)

const anthropicVersion = "2023-06-01"

// Client talks to an LLM completion API. It rate-limits and retries
// transport-level failures itself; semantic retry policy (regenerating a
// scene that scored badly) belongs to the engine.
type Client struct {
	apiKey     string
	baseURL    string
	provider   Provider
	httpClient *http.Client
	maxRetries int
	limiter    *rate.Limiter
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithProvider selects the wire format and its default endpoint.
func WithProvider(p Provider) Option {
	return func(c *Client) {
		c.provider = p
		if p == ProviderOpenAI {
			c.baseURL = "https://api.openai.com/v1"
		} else {
			c.baseURL = "https://api.anthropic.com/v1"
		}
	}
}

// WithBaseURL overrides the endpoint, for proxies and test servers.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// WithRetry sets how many times a transient failure is retried.
func WithRetry(maxRetries int) Option {
	return func(c *Client) {
		if maxRetries >= 0 {
			c.maxRetries = maxRetries
		}
	}
}

// WithTimeout bounds a single HTTP round trip.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		transport := c.httpClient.Transport
		c.httpClient = &http.Client{
			Timeout:   timeout,
			Transport: transport,
		}
	}
}

// WithRateLimit throttles outgoing requests.
func WithRateLimit(requestsPerMinute, burst int) Option {
	return func(c *Client) {
		if requestsPerMinute >= 1 && burst >= 1 {
			c.limiter = rate.NewLimiter(rate.Limit(float64(requestsPerMinute)/60.0), burst)
		}
	}
}

// WithLogger attaches a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient builds a client for the given credential. Defaults: the
// Anthropic wire format, 3 retries, 20 requests per minute.
func NewClient(apiKey string, opts ...Option) *Client {
	transport := &http.Transport{
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     10,
		IdleConnTimeout:     90 * time.Second,
		ForceAttemptHTTP2:   true,
	}

	c := &Client{
		apiKey:   apiKey,
		baseURL:  "https://api.anthropic.com/v1",
		provider: ProviderAnthropic,
		httpClient: &http.Client{
			Timeout:   120 * time.Second,
			Transport: transport,
		},
		maxRetries: 3,
		limiter:    rate.NewLimiter(rate.Limit(20.0/60.0), 5),
		logger:     slog.Default().With("component", "generator"),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.logger.Debug("generator client initialized",
		"provider", c.provider,
		"base_url", c.baseURL,
		"max_retries", c.maxRetries,
		"rate_limit", fmt.Sprintf("%v req/s", c.limiter.Limit()),
	)
	return c
}

// Generate implements core.Generator. Unavailable backends are retried
// with linear backoff up to maxRetries; rejections return immediately
// since the same prompt cannot succeed.
func (c *Client) Generate(ctx context.Context, prompt string, params core.GenerationParams) (string, error) {
	requestID := fmt.Sprintf("gen_%d", time.Now().UnixNano())
	start := time.Now()

	if err := c.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * time.Second
			c.logger.Debug("retry backoff",
				"request_id", requestID,
				"attempt", attempt,
				"backoff_seconds", backoff.Seconds(),
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		text, err := c.doRequest(ctx, prompt, params)
		if err == nil {
			c.logger.Info("generation request succeeded",
				"request_id", requestID,
				"attempt", attempt,
				"duration_ms", time.Since(start).Milliseconds(),
				"response_length", len(text),
			)
			return text, nil
		}

		lastErr = err
		if !core.IsUnavailable(err) {
			c.logger.Error("generation request failed",
				"request_id", requestID,
				"attempt", attempt,
				"error", err,
			)
			return "", err
		}
		c.logger.Warn("backend unavailable, will retry",
			"request_id", requestID,
			"attempt", attempt,
			"error", err,
		)
	}

	return "", fmt.Errorf("retries exhausted: %w", lastErr)
}

func (c *Client) doRequest(ctx context.Context, prompt string, params core.GenerationParams) (string, error) {
	if c.provider == ProviderOpenAI {
		return c.doOpenAIRequest(ctx, prompt, params)
	}
	return c.doAnthropicRequest(ctx, prompt, params)
}

func (c *Client) doOpenAIRequest(ctx context.Context, prompt string, params core.GenerationParams) (string, error) {
	requestBody := map[string]any{
		"model": params.Model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"max_tokens":  params.MaxTokens,
		"temperature": params.Temperature,
	}
	respBody, err := c.post(ctx, "/chat/completions", requestBody, func(h http.Header) {
		h.Set("Authorization", "Bearer "+c.apiKey)
	})
	if err != nil {
		return "", err
	}

	var response struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(respBody, &response); err != nil {
		return "", fmt.Errorf("parsing response: %w: %w", err, core.ErrGenerationUnavailable)
	}
	if len(response.Choices) == 0 {
		return "", fmt.Errorf("empty choices in response: %w", core.ErrGenerationRejected)
	}
	return response.Choices[0].Message.Content, nil
}

func (c *Client) doAnthropicRequest(ctx context.Context, prompt string, params core.GenerationParams) (string, error) {
	requestBody := map[string]any{
		"model": params.Model,
		"messages": []map[string]string{
			{"role": "user", "content": prompt},
		},
		"max_tokens":  params.MaxTokens,
		"temperature": params.Temperature,
	}
	respBody, err := c.post(ctx, "/messages", requestBody, func(h http.Header) {
		h.Set("x-api-key", c.apiKey)
		h.Set("anthropic-version", anthropicVersion)
	})
	if err != nil {
		return "", err
	}

	var response struct {
		Content []struct {
			Text string `json:"text"`
		} `json:"content"`
	}
	if err := json.Unmarshal(respBody, &response); err != nil {
		return "", fmt.Errorf("parsing response: %w: %w", err, core.ErrGenerationUnavailable)
	}
	if len(response.Content) == 0 {
		return "", fmt.Errorf("empty content in response: %w", core.ErrGenerationRejected)
	}
	return response.Content[0].Text, nil
}

// post sends one request and classifies the outcome into the generation
// error kinds.
func (c *Client) post(ctx context.Context, path string, requestBody any, setAuth func(http.Header)) ([]byte, error) {
	body, err := json.Marshal(requestBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	setAuth(req.Header)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("making request: %w: %w", err, core.ErrGenerationUnavailable)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w: %w", err, core.ErrGenerationUnavailable)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp.StatusCode, respBody)
	}
	return respBody, nil
}

// classifyStatus maps HTTP failures onto the two generation error kinds:
// server-side and throttling trouble is unavailability, anything the
// backend refused outright is a rejection.
func classifyStatus(status int, body []byte) error {
	kind := core.ErrGenerationRejected
	if status >= 500 || status == http.StatusTooManyRequests || status == http.StatusRequestTimeout {
		kind = core.ErrGenerationUnavailable
	}
	return fmt.Errorf("backend status %d: %s: %w", status, truncate(string(body), 200), kind)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
