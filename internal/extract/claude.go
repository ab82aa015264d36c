package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/dgallion1/docsplit/internal/outline"
)

const defaultBaseURL = "https://api.anthropic.com"

// ClaudeClient asks the Anthropic Messages API for a document's headings.
type ClaudeClient struct {
	apiKey     string
	model      string
	baseURL    string
	attempts   uint
	delay      time.Duration
	httpClient *http.Client
}

// Option configures a ClaudeClient.
type Option func(*ClaudeClient)

// WithBaseURL points the client at another endpoint, e.g. a test server.
func WithBaseURL(u string) Option {
	return func(c *ClaudeClient) { c.baseURL = strings.TrimRight(u, "/") }
}

// WithRetry sets the attempt count and initial backoff for transient failures.
func WithRetry(attempts uint, delay time.Duration) Option {
	if attempts == 0 {
		attempts = 1
	}
	return func(c *ClaudeClient) {
		c.attempts = attempts
		c.delay = delay
	}
}

func NewClaudeClient(apiKey, model string, opts ...Option) *ClaudeClient {
	c := &ClaudeClient{
		apiKey:   apiKey,
		model:    model,
		baseURL:  defaultBaseURL,
		attempts: 4,
		delay:    2 * time.Second,
		httpClient: &http.Client{
			Timeout: 180 * time.Second,
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}

// ExtractOutline sends the page texts to Claude and returns the outline it
// reports. A non-empty types replaces the reply's type list; otherwise the
// model names the hierarchy itself. A heading whose type is not in the
// resulting list fails with *outline.UnknownTypeError.
func (c *ClaudeClient) ExtractOutline(ctx context.Context, title string, pages []string, types outline.TypeList) (outline.Outline, error) {
	if len(pages) == 0 {
		return outline.Outline{}, fmt.Errorf("no page text to extract from")
	}
	prompt := BuildOutlinePrompt(title, pages, types)

	var text string
	err := retry.Do(
		func() error {
			var err error
			text, err = c.complete(ctx, prompt)
			return err
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.DelayType(retry.BackOffDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(IsRetryable),
	)
	if err != nil {
		return outline.Outline{}, err
	}

	o, err := decodeOutline(stripCodeBlock(text))
	if err != nil {
		return outline.Outline{}, err
	}
	if len(types) > 0 {
		o.Types = types
	}
	if err := o.Types.Validate(); err != nil {
		return outline.Outline{}, fmt.Errorf("claude outline: %w", err)
	}
	if err := o.CheckTypes(); err != nil {
		return outline.Outline{}, err
	}
	return o, nil
}

// complete performs one Messages API call and returns the first text block.
func (c *ClaudeClient) complete(ctx context.Context, prompt string) (string, error) {
	reqBody := anthropicRequest{
		Model:     c.model,
		MaxTokens: 8192,
		System:    SystemPrompt,
		Messages: []anthropicMessage{
			{Role: "user", Content: prompt},
		},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("claude api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return "", &RetryableError{
			StatusCode: resp.StatusCode,
			Message:    string(respBody),
		}
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("claude api status %d: %s", resp.StatusCode, truncate(string(respBody), 200))
	}

	var apiResp anthropicResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if apiResp.Error != nil {
		return "", fmt.Errorf("claude error: %s: %s", apiResp.Error.Type, apiResp.Error.Message)
	}
	for _, block := range apiResp.Content {
		if block.Type == "text" || block.Type == "" {
			return block.Text, nil
		}
	}
	return "", fmt.Errorf("empty response from claude")
}

var codeBlockRe = regexp.MustCompile("(?s)^```(?:json)?\\s*(.*?)\\s*```$")

func stripCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if m := codeBlockRe.FindStringSubmatch(s); len(m) > 1 {
		return m[1]
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// RetryableError indicates a transient failure that can be retried.
type RetryableError struct {
	StatusCode int
	Message    string
}

func (e *RetryableError) Error() string {
	return fmt.Sprintf("retryable error (status %d): %s", e.StatusCode, truncate(e.Message, 200))
}

// IsRetryable reports whether err wraps a *RetryableError.
func IsRetryable(err error) bool {
	var re *RetryableError
	return errors.As(err, &re)
}

// Close releases resources.
func (c *ClaudeClient) Close() {
	c.httpClient.CloseIdleConnections()
}
