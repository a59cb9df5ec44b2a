package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Completion failure categories. Callers branch on these to decide whether to
// surface a user-facing failure (bad request) or an upstream outage notice.
var (
	// ErrBadRequest means the completion request itself was rejected
	ErrBadRequest = errors.New("completion request rejected")
	// ErrUpstream means the completion provider failed or returned garbage
	ErrUpstream = errors.New("completion provider unavailable")
)

// ChatMessage is one turn of a chat-completion prompt
type ChatMessage struct {
	Role    string `json:"role"` // "system", "user" or "assistant"
	Content string `json:"content"`
}

// Completer produces a text completion for an ordered list of prompt messages
type Completer interface {
	Complete(ctx context.Context, messages []ChatMessage, temperature float64, maxTokens int) (string, error)
}

type requestPayload struct {
	Model       string        `json:"model"`
	Messages    []ChatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type apiResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Client talks to an OpenAI-compatible chat completions endpoint
type Client struct {
	baseURL string
	model   string
	apiKey  string
	http    *http.Client
}

// NewClient returns a completion client for the given endpoint and model
func NewClient(baseURL, model, apiKey string) *Client {
	return &Client{
		baseURL: baseURL,
		model:   model,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

// Complete sends the prompt messages and returns the first choice's content
func (c *Client) Complete(ctx context.Context, messages []ChatMessage, temperature float64, maxTokens int) (string, error) {
	body, err := json.Marshal(requestPayload{
		Model:       c.model,
		Messages:    messages,
		Temperature: temperature,
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadRequest, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBadRequest, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: reading response: %v", ErrUpstream, err)
	}

	switch {
	case resp.StatusCode >= 500:
		return "", fmt.Errorf("%w: status %d", ErrUpstream, resp.StatusCode)
	case resp.StatusCode >= 400:
		return "", fmt.Errorf("%w: status %d: %s", ErrBadRequest, resp.StatusCode, raw)
	}

	var parsed apiResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("%w: decoding response: %v", ErrUpstream, err)
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices returned", ErrUpstream)
	}
	return parsed.Choices[0].Message.Content, nil
}
