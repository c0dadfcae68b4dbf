// Package gemini provides a client for the Google Gemini generateContent API.
package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// Model tiers, fastest to most capable. Callers pick per task: the
// lightning flow runs on the cheapest models while full analysis gets the
// premium tier.
const (
	ModelLightning = "gemini-1.5-flash"
	ModelUltraFast = "gemini-1.5-flash-8b"
	ModelFast      = "gemini-2.0-flash-exp"
	ModelBalanced  = "gemini-2.5-flash"
	ModelPremium   = "gemini-1.5-pro"
)

// Sentinel errors.
var (
	// ErrMissingAPIKey is returned when no API key is configured.
	ErrMissingAPIKey = errors.New("missing GEMINI_API_KEY")

	// ErrRateLimited is returned when the API rejects the request for
	// quota reasons even after the retry.
	ErrRateLimited = errors.New("gemini rate limit exceeded")

	// ErrUnavailable is returned for transient server-side failures
	// that survive the retry.
	ErrUnavailable = errors.New("gemini unavailable")

	// ErrEmptyResponse is returned when the API answers without any
	// candidate text.
	ErrEmptyResponse = errors.New("gemini returned no candidates")
)

// defaultRetryDelay is the pause before the single retry on a transient
// failure.
const defaultRetryDelay = 2 * time.Second

// Client calls the Gemini REST API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	retryDelay time.Duration
}

// Config holds client configuration.
type Config struct {
	APIKey  string
	BaseURL string        // defaults to the public Gemini endpoint
	Timeout time.Duration // defaults to 45s, well under typical request timeouts
}

// NewClient creates a Gemini client. Returns ErrMissingAPIKey when no key
// is configured.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 45 * time.Second
	}
	return &Client{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
		retryDelay: defaultRetryDelay,
	}, nil
}

type generateRequest struct {
	Contents []content `json:"contents"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Complete sends a prompt to the given model and returns the response text.
// Transient failures (429 and 5xx) are retried exactly once after a short
// delay, then surfaced as ErrRateLimited or ErrUnavailable. There is no
// structural contract on the returned text beyond "text"; callers must
// parse defensively.
func (c *Client) Complete(ctx context.Context, model, promptText string) (string, error) {
	text, err := c.generate(ctx, model, promptText)
	if err == nil {
		return text, nil
	}
	if !errors.Is(err, ErrRateLimited) && !errors.Is(err, ErrUnavailable) {
		return "", err
	}

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case <-time.After(c.retryDelay):
	}
	return c.generate(ctx, model, promptText)
}

func (c *Client) generate(ctx context.Context, model, promptText string) (string, error) {
	payload := generateRequest{
		Contents: []content{{Parts: []part{{Text: promptText}}}},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return "", ErrRateLimited
	case resp.StatusCode >= 500:
		return "", fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return "", fmt.Errorf("gemini error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		return "", fmt.Errorf("parsing response: %w", err)
	}
	if parsed.Error != nil {
		return "", fmt.Errorf("gemini error: %s", parsed.Error.Message)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", ErrEmptyResponse
	}

	var text strings.Builder
	for _, p := range parsed.Candidates[0].Content.Parts {
		text.WriteString(p.Text)
	}
	return strings.TrimSpace(text.String()), nil
}
