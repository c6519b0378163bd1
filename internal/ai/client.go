// Package ai provides the HTTP client for the external chat-completion
// service used by the coaching endpoints. The client is transport-only:
// persona selection, crisis screening, and degradation policy live in the
// coach service.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultBaseURL = "https://api.openai.com/v1"

// Message roles on the completion wire format.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// completionRequest is the /chat/completions request body.
type completionRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature float64   `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

// completionResponse is the subset of the response body we consume.
type completionResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

// apiErrorResponse is the provider's error envelope.
type apiErrorResponse struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Client performs chat-completion requests.
//
// The zero value is not usable; construct with NewClient. A missing API key
// makes Configured() false and every call fail fast, which the coach layer
// turns into an eager 503.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	model   string
}

// NewClient builds a completion client. An empty baseURL selects the
// provider default; the HTTP client's own timeout sits slightly above the
// per-call context deadline so the context is always what fires first.
func NewClient(apiKey, baseURL, model string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	baseURL = strings.TrimRight(baseURL, "/")
	if timeout <= 0 {
		timeout = 25 * time.Second
	}
	return &Client{
		http:    &http.Client{Timeout: timeout + 5*time.Second},
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
	}
}

// Configured reports whether a credential is present.
func (c *Client) Configured() bool { return c.apiKey != "" }

// Complete sends messages to /chat/completions and returns the first choice.
// Cancellation and the 25-second abort both arrive through ctx; callers
// distinguish a deadline from other failures with errors.Is on
// context.DeadlineExceeded.
func (c *Client) Complete(ctx context.Context, messages []Message, maxTokens int) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("ai: api key is empty")
	}

	body, err := json.Marshal(completionRequest{
		Model:       c.model,
		Messages:    messages,
		Temperature: 0.7,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("ai: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("ai: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("ai: do request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("ai: read response: %w", err)
	}
	if resp.StatusCode >= 400 {
		var apiErr apiErrorResponse
		if jerr := json.Unmarshal(respBody, &apiErr); jerr == nil && apiErr.Error.Message != "" {
			return "", fmt.Errorf("ai: %s", apiErr.Error.Message)
		}
		return "", fmt.Errorf("ai: unexpected status %d", resp.StatusCode)
	}

	var completion completionResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return "", fmt.Errorf("ai: decode response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("ai: empty choice list")
	}
	return completion.Choices[0].Message.Content, nil
}
