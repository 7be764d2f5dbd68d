// Package llm provides the completion-service client used by workflow
// stages. It is deliberately thin: one request, one response, with
// transport-level retry for transient failures. Logic-level retries
// (the self-healing loop) live in the executor, not here.
package llm

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
)

// maxResponseSize limits the response body read to prevent memory
// exhaustion on a misbehaving endpoint.
const maxResponseSize = 10 * 1024 * 1024 // 10MB

// Completer is the completion boundary consumed by the stage executor.
type Completer interface {
	Complete(ctx context.Context, req Request) (*Response, error)
}

// Request defines a single completion call.
type Request struct {
	// System is the optional system text.
	System string
	// Prompt is the user prompt.
	Prompt string
	// MaxTokens limits output size. 0 uses the endpoint default.
	MaxTokens int
	// Temperature controls randomness. nil uses the endpoint default.
	Temperature *float64
}

// Usage holds token consumption for a call, when the provider reports it.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is the completion result.
type Response struct {
	// RequestID uniquely identifies this call.
	RequestID string
	// Content is the generated text.
	Content string
	// Model is the model that served the call.
	Model string
	// Usage holds token counts, zero when unreported.
	Usage Usage
	// FinishReason indicates why generation stopped.
	FinishReason string
}

// Endpoint describes one completion endpoint.
type Endpoint struct {
	// Provider names the registered provider ("anthropic", "openai", "ollama").
	Provider string
	// Model is the model identifier, passed through uninterpreted.
	Model string
	// BaseURL overrides the provider default when set.
	BaseURL string
	// APIKeyEnv names the environment variable holding the API key.
	APIKeyEnv string
}

// Client sends completion requests to a single configured endpoint.
type Client struct {
	endpoint   Endpoint
	httpClient *http.Client
	retry      RetryConfig
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithRetryConfig sets the transport retry configuration.
func WithRetryConfig(cfg RetryConfig) Option {
	return func(client *Client) {
		client.retry = cfg
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(client *Client) {
		client.logger = logger
	}
}

// NewClient creates a client for the given endpoint.
func NewClient(endpoint Endpoint, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		retry:    DefaultRetryConfig(),
		httpClient: &http.Client{
			Timeout: 180 * time.Second, // Generation can take a while.
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Complete sends a completion request, retrying transient failures with
// exponential backoff and jitter.
func (c *Client) Complete(ctx context.Context, req Request) (*Response, error) {
	if req.Prompt == "" {
		return nil, fmt.Errorf("prompt is required")
	}

	provider := GetProvider(c.endpoint.Provider)
	if provider == nil {
		return nil, NewFatalError(fmt.Errorf("unknown provider: %s", c.endpoint.Provider))
	}

	requestID := uuid.New().String()

	var lastErr error
	for attempt := 1; attempt <= c.retry.MaxAttempts; attempt++ {
		resp, err := c.doRequest(ctx, provider, req)
		if err == nil {
			resp.RequestID = requestID
			return resp, nil
		}
		lastErr = err

		if IsFatal(err) {
			return nil, err
		}
		if attempt == c.retry.MaxAttempts {
			break
		}

		backoff := c.backoff(attempt)
		c.logger.Debug("completion request failed, retrying",
			"request_id", requestID,
			"attempt", attempt,
			"max_attempts", c.retry.MaxAttempts,
			"backoff", backoff,
			"error", err)

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}

	return nil, fmt.Errorf("completion failed after %d attempts: %w", c.retry.MaxAttempts, lastErr)
}

// backoff computes the exponential backoff for an attempt, with +/- 25%
// jitter to avoid synchronized retries.
func (c *Client) backoff(attempt int) time.Duration {
	multiplier := 1.0
	for i := 1; i < attempt; i++ {
		multiplier *= c.retry.BackoffMultiplier
	}

	d := time.Duration(float64(c.retry.BackoffBase) * multiplier)
	if d > c.retry.MaxBackoff {
		d = c.retry.MaxBackoff
	}

	jitter := float64(d) * 0.25 * (rand.Float64()*2 - 1)
	return d + time.Duration(jitter)
}

// doRequest executes a single HTTP request against the endpoint.
func (c *Client) doRequest(ctx context.Context, provider Provider, req Request) (*Response, error) {
	body, err := provider.BuildRequestBody(c.endpoint.Model, req)
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("build request body: %w", err))
	}

	url := provider.BuildURL(c.endpoint.BaseURL)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, NewFatalError(fmt.Errorf("create HTTP request: %w", err))
	}

	httpReq.Header.Set("Content-Type", "application/json")
	provider.SetHeaders(httpReq, c.apiKey())

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// Network errors are transient.
		return nil, NewTransientError(fmt.Errorf("HTTP request failed: %w", err))
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, NewTransientError(fmt.Errorf("read response body: %w", err))
	}

	if httpResp.StatusCode != http.StatusOK {
		return nil, classifyHTTPError(httpResp.StatusCode, respBody)
	}

	return provider.ParseResponse(respBody, c.endpoint.Model)
}

func (c *Client) apiKey() string {
	if c.endpoint.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.endpoint.APIKeyEnv)
}

// classifyHTTPError decides whether an HTTP failure is worth retrying.
func classifyHTTPError(statusCode int, body []byte) error {
	bodyStr := string(body)
	if len(bodyStr) > 200 {
		bodyStr = bodyStr[:200] + "..."
	}

	err := fmt.Errorf("completion API error (status %d): %s", statusCode, bodyStr)

	switch {
	case statusCode == http.StatusTooManyRequests:
		return NewTransientError(err)
	case statusCode >= 500:
		return NewTransientError(err)
	case statusCode == http.StatusUnauthorized,
		statusCode == http.StatusForbidden,
		statusCode == http.StatusBadRequest:
		return NewFatalError(err)
	default:
		return NewFatalError(err)
	}
}
