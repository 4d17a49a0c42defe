// Package apiclient performs HTTP calls against provider backends using the
// strategies in a provider.Descriptor.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/elee1766/quorum/src/provider"
	"github.com/tidwall/gjson"
)

const (
	defaultTimeout  = 60 * time.Second
	defaultCacheTTL = time.Hour
	maxBodyBytes    = 8 << 20
)

// Client issues completion and model listing requests.
type Client struct {
	config     Config
	httpClient *http.Client
	logger     *slog.Logger
	modelCache *ModelCache
}

// NewClient creates a new provider client.
func NewClient(config Config) *Client {
	if config.Timeout == 0 {
		config.Timeout = defaultTimeout
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = defaultCacheTTL
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		// per-call deadlines come from the context
		httpClient = &http.Client{}
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "api_client")

	return &Client{
		config:     config,
		httpClient: httpClient,
		logger:     logger,
		modelCache: NewModelCache(config.CacheTTL),
	}
}

// Timeout returns the per-call timeout
func (c *Client) Timeout() time.Duration {
	return c.config.Timeout
}

// Complete sends prompt to the provider and returns the parsed answer.
//
// Transport failures, non-2xx statuses and payloads that are not JSON are
// returned as errors. A payload of the wrong shape is not an error: the
// descriptor's parser degrades to provider.ParseFailure.
func (c *Client) Complete(ctx context.Context, d provider.Descriptor, credential, model, prompt string) (string, error) {
	logger := c.logger.With("method", "Complete", "provider", d.ID, "model", model)
	logger.Debug("sending completion request")

	body, err := json.Marshal(d.Body(model, prompt))
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	start := time.Now()
	raw, err := c.do(ctx, http.MethodPost, d.URL(credential, model), d.Headers(credential), body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			err = &TimeoutError{Operation: fmt.Sprintf("%s completion", d.Name), Duration: c.config.Timeout, Cause: err}
		}
		logger.Warn("completion failed", "error", err, "elapsed", time.Since(start))
		return "", err
	}

	if !gjson.ValidBytes(raw) {
		logger.Warn("completion returned malformed JSON", "bytes", len(raw))
		return "", fmt.Errorf("failed to decode response: %w", provider.ErrMalformedPayload)
	}

	text := d.Parse(raw)
	logger.Info("completion finished", "elapsed", time.Since(start), "parsed", !provider.IsParseFailure(text))
	return text, nil
}

// do performs a single request and returns the body of a 2xx response.
func (c *Client) do(ctx context.Context, method, url string, headers map[string]string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if c.config.UserAgent != "" {
		req.Header.Set("User-Agent", c.config.UserAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, c.handleError(resp)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return raw, nil
}

// handleError turns a non-2xx response into an *APIError carrying the raw body.
func (c *Client) handleError(resp *http.Response) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("failed to read error response: %w", err)
	}

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Message:    string(body),
		RequestID:  resp.Header.Get("X-Request-ID"),
	}
	if gjson.ValidBytes(body) {
		apiErr.Type = gjson.GetBytes(body, "error.type").String()
		apiErr.Code = gjson.GetBytes(body, "error.code").String()
	}
	if resp.StatusCode == http.StatusTooManyRequests {
		apiErr.RetryAfter = resp.Header.Get("Retry-After")
	}
	return apiErr
}
