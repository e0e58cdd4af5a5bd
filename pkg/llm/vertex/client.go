// Package vertex implements llm.Provider against the Vertex AI
// generateContent REST endpoint. The content cleaner's narrowing pass is
// the only consumer: it wants a single bounded completion per call, so
// this client is deliberately non-streaming.
package vertex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2/google"
)

const (
	// DefaultModel is the model used when the config names none.
	DefaultModel = "gemini-2.5-flash"

	// DefaultMaxRetries bounds retries of transient API failures.
	DefaultMaxRetries = 3

	// DefaultBaseDelay is the base delay for exponential backoff.
	DefaultBaseDelay = 100 * time.Millisecond

	// DefaultMaxDelay caps the backoff delay.
	DefaultMaxDelay = 10 * time.Second

	// DefaultTimeout is the HTTP timeout per request.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxOutputTokens bounds a narrowing completion. Narrowed
	// passages are shorter than their inputs, so this sits well below the
	// model ceiling.
	DefaultMaxOutputTokens = 8192
)

// Config holds the configuration for the Vertex AI completion client.
type Config struct {
	ProjectID       string
	Location        string
	Model           string
	Timeout         time.Duration
	Temperature     float64
	MaxOutputTokens int
}

// Client is a Vertex AI completion client implementing llm.Provider.
type Client struct {
	projectID       string
	location        string
	model           string
	httpClient      *http.Client
	creds           *google.Credentials
	log             *slog.Logger
	temperature     float64
	maxOutputTokens int

	maxRetries int
	baseDelay  time.Duration
	maxDelay   time.Duration
}

// ClientOption configures the Client.
type ClientOption func(*Client)

// WithMaxRetries sets the maximum number of retries.
func WithMaxRetries(n int) ClientOption {
	return func(c *Client) {
		c.maxRetries = n
	}
}

// WithBaseDelay sets the base delay for exponential backoff.
func WithBaseDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.baseDelay = d
	}
}

// WithMaxDelay caps the backoff delay.
func WithMaxDelay(d time.Duration) ClientOption {
	return func(c *Client) {
		c.maxDelay = d
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) ClientOption {
	return func(c *Client) {
		c.log = log
	}
}

// NewClient creates a Vertex AI completion client using application
// default credentials.
func NewClient(ctx context.Context, cfg Config, opts ...ClientOption) (*Client, error) {
	if cfg.ProjectID == "" {
		return nil, fmt.Errorf("project ID is required")
	}
	if cfg.Location == "" {
		return nil, fmt.Errorf("location is required")
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxOutputTokens == 0 {
		cfg.MaxOutputTokens = DefaultMaxOutputTokens
	}

	creds, err := google.FindDefaultCredentials(ctx, "https://www.googleapis.com/auth/cloud-platform")
	if err != nil {
		return nil, fmt.Errorf("failed to find default credentials: %w", err)
	}

	c := &Client{
		projectID: cfg.ProjectID,
		location:  cfg.Location,
		model:     cfg.Model,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		creds:           creds,
		log:             slog.Default(),
		temperature:     cfg.Temperature,
		maxOutputTokens: cfg.MaxOutputTokens,
		maxRetries:      DefaultMaxRetries,
		baseDelay:       DefaultBaseDelay,
		maxDelay:        DefaultMaxDelay,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// generateRequest is the generateContent request body.
type generateRequest struct {
	Contents         []contentBlock   `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type contentBlock struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type part struct {
	Text string `json:"text"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
}

// generateResponse is the generateContent response body, narrowed to the
// fields this client reads.
type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []part `json:"parts"`
		} `json:"content"`
		FinishReason string `json:"finishReason,omitempty"`
	} `json:"candidates"`
}

// Complete implements llm.Provider: one prompt in, the model's full text
// out, with bounded retries on transient API failures.
func (c *Client) Complete(ctx context.Context, prompt string) (string, error) {
	url := fmt.Sprintf(
		"https://%s-aiplatform.googleapis.com/v1/projects/%s/locations/%s/publishers/google/models/%s:generateContent",
		c.location, c.projectID, c.location, c.model,
	)

	body, err := json.Marshal(generateRequest{
		Contents: []contentBlock{
			{Role: "user", Parts: []part{{Text: prompt}}},
		},
		GenerationConfig: generationConfig{
			Temperature:     c.temperature,
			MaxOutputTokens: c.maxOutputTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.calculateBackoff(attempt)
			c.log.Debug("retrying completion request",
				slog.Int("attempt", attempt),
				slog.Duration("delay", delay),
			)
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(delay):
			}
		}

		var text string
		text, lastErr = c.doRequest(ctx, url, body)
		if lastErr == nil {
			return text, nil
		}

		if ctx.Err() != nil {
			return "", ctx.Err()
		}

		if _, ok := lastErr.(*retryableError); !ok {
			return "", lastErr
		}

		c.log.Warn("completion request failed",
			slog.Int("attempt", attempt),
			slog.String("error", lastErr.Error()),
		)
	}

	return "", fmt.Errorf("all retries exhausted: %w", lastErr)
}

// doRequest executes a single generateContent call and extracts the
// response text.
func (c *Client) doRequest(ctx context.Context, url string, body []byte) (string, error) {
	token, err := c.creds.TokenSource.Token()
	if err != nil {
		return "", fmt.Errorf("failed to get access token: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+token.AccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return "", &retryableError{statusCode: resp.StatusCode, body: string(respBody)}
		}
		return "", fmt.Errorf("API error %d: %s", resp.StatusCode, string(respBody))
	}

	var gr generateResponse
	if err := json.Unmarshal(respBody, &gr); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}

	var text strings.Builder
	for _, candidate := range gr.Candidates {
		if candidate.FinishReason == "SAFETY" {
			return "", fmt.Errorf("response blocked by safety filters")
		}
		if candidate.FinishReason == "RECITATION" {
			return "", fmt.Errorf("response blocked by recitation detection")
		}
		for _, p := range candidate.Content.Parts {
			text.WriteString(p.Text)
		}
	}
	if text.Len() == 0 {
		return "", fmt.Errorf("empty completion")
	}

	return text.String(), nil
}

// calculateBackoff returns the delay before a given retry attempt.
func (c *Client) calculateBackoff(attempt int) time.Duration {
	delay := float64(c.baseDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(c.maxDelay) {
		delay = float64(c.maxDelay)
	}
	return time.Duration(delay)
}

// retryableError marks an API failure worth retrying.
type retryableError struct {
	statusCode int
	body       string
}

func (e *retryableError) Error() string {
	return fmt.Sprintf("retryable API error %d: %s", e.statusCode, e.body)
}

// IsConfigured implements llm.Provider.
func (c *Client) IsConfigured() bool {
	return c.projectID != "" && c.location != "" && c.creds != nil
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}
