package advisor

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/agentictax/taxpilot/internal/common"
)

// anthropicCompleter implements the Completer interface for the Anthropic API.
type anthropicCompleter struct {
	httpClient  *http.Client
	apiKey      string
	model       string
	temperature float64
	maxTokens   int
	retryOpts   common.RetryOptions
}

// newAnthropicCompleter creates a new Anthropic API completer.
func newAnthropicCompleter(cfg Config) (Completer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: anthropic API key is required", common.ErrMissingConfig)
	}

	model := cfg.Model
	if model == "" {
		model = "claude-3-sonnet-20240229"
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.3
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}

	return &anthropicCompleter{
		apiKey:      cfg.APIKey,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		retryOpts: common.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 500 * time.Millisecond,
			MaxDelay:     5 * time.Second,
			Multiplier:   2.0,
		},
	}, nil
}

type anthropicResponse struct {
	Content []struct {
		Text string `json:"text"`
	} `json:"content"`
}

// Complete sends a single-turn completion request to Anthropic. Transient
// failures (network errors, 429, 5xx) are retried with backoff before the
// error is surfaced to the advisor.
func (c *anthropicCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	requestBody := map[string]any{
		"model":       c.model,
		"max_tokens":  c.maxTokens,
		"temperature": c.temperature,
		"messages": []map[string]string{
			{
				"role":    "user",
				"content": prompt,
			},
		},
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var answer string

	err = common.WithRetry(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, "https://api.anthropic.com/v1/messages", strings.NewReader(string(jsonBody)))
		if err != nil {
			return &common.RetryableError{Err: fmt.Errorf("failed to create request: %w", err), Retryable: false}
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", c.apiKey)
		req.Header.Set("anthropic-version", "2023-06-01")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return &common.RetryableError{Err: fmt.Errorf("request failed: %w", err), Retryable: true}
		}
		defer func() { _ = resp.Body.Close() }()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return &common.RetryableError{Err: fmt.Errorf("failed to read response: %w", err), Retryable: true}
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= http.StatusInternalServerError {
			return &common.RetryableError{Err: fmt.Errorf("anthropic API error (status %d): %s", resp.StatusCode, string(body)), Retryable: true}
		}
		if resp.StatusCode != http.StatusOK {
			return &common.RetryableError{Err: fmt.Errorf("anthropic API error (status %d): %s", resp.StatusCode, string(body)), Retryable: false}
		}

		var response anthropicResponse
		if err := json.Unmarshal(body, &response); err != nil {
			return &common.RetryableError{Err: fmt.Errorf("failed to parse response: %w", err), Retryable: false}
		}

		if len(response.Content) == 0 {
			return &common.RetryableError{Err: fmt.Errorf("no content in response"), Retryable: false}
		}

		answer = response.Content[0].Text
		return nil
	}, c.retryOpts)
	if err != nil {
		return "", fmt.Errorf("completion failed: %w", err)
	}

	return answer, nil
}
