package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/JanWillemSteur65/mas-ai-agent-mcp/pkg/logging"
)

// Message is a single chat message in provider wire format.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a provider-requested tool invocation.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall names the function and carries its arguments as a raw
// JSON-encoded string, exactly as providers emit it.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ChatRequest is the chat completion request body. A zero temperature is
// omitted from the wire so the provider default applies.
type ChatRequest struct {
	Model       string          `json:"model"`
	Temperature float64         `json:"temperature,omitempty"`
	Messages    []Message       `json:"messages"`
	Tools       []CanonicalTool `json:"tools,omitempty"`
	ToolChoice  string          `json:"tool_choice,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message Message `json:"message"`
	} `json:"choices"`
}

type modelsResponse struct {
	Data []struct {
		ID string `json:"id"`
	} `json:"data"`
}

// RequestError is a failed provider HTTP exchange. Status is zero when the
// request never produced a response.
type RequestError struct {
	Provider string
	Status   int
	Detail   string
}

func (e *RequestError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s request failed with status %d: %s", e.Provider, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s request failed: %s", e.Provider, e.Detail)
}

const excerptLimit = 300

// Excerpt truncates an upstream response body for error reporting.
func Excerpt(body []byte) string {
	s := string(body)
	if len(s) > excerptLimit {
		return s[:excerptLimit]
	}
	return s
}

// Client calls OpenAI-compatible chat completion APIs.
type Client struct {
	httpClient *http.Client
	logger     logging.Logger
}

// NewClient creates a provider client with a generous timeout; chat
// completions with large contexts routinely take tens of seconds.
func NewClient(logger logging.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		logger:     logger,
	}
}

// ChatCompletion performs one non-streaming chat completion round and
// returns the assistant message of the first choice.
func (c *Client) ChatCompletion(ctx context.Context, cfg ProviderConfig, request ChatRequest) (Message, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return Message{}, fmt.Errorf("marshal chat request: %w", err)
	}

	url := cfg.BaseURL + "/v1/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Message{}, &RequestError{Provider: cfg.Name, Detail: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Message{}, &RequestError{Provider: cfg.Name, Detail: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Message{}, &RequestError{Provider: cfg.Name, Status: resp.StatusCode, Detail: Excerpt(raw)}
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return Message{}, &RequestError{Provider: cfg.Name, Detail: "decode response: " + err.Error()}
	}
	if len(parsed.Choices) == 0 {
		return Message{}, &RequestError{Provider: cfg.Name, Detail: "response contained no choices"}
	}

	c.logger.WithFields(logging.Fields{
		"provider":   cfg.Name,
		"model":      request.Model,
		"tools":      len(request.Tools),
		"latency_ms": time.Since(start).Milliseconds(),
	}).Debug("Chat completion round finished")

	return parsed.Choices[0].Message, nil
}

// ListModels returns the model IDs the provider advertises.
func (c *Client) ListModels(ctx context.Context, cfg ProviderConfig) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cfg.BaseURL+"/v1/models", nil)
	if err != nil {
		return nil, &RequestError{Provider: cfg.Name, Detail: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RequestError{Provider: cfg.Name, Detail: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &RequestError{Provider: cfg.Name, Status: resp.StatusCode, Detail: Excerpt(raw)}
	}

	var parsed modelsResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, &RequestError{Provider: cfg.Name, Detail: "decode response: " + err.Error()}
	}

	models := make([]string, 0, len(parsed.Data))
	for _, m := range parsed.Data {
		models = append(models, m.ID)
	}
	return models, nil
}
