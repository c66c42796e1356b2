package broker

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/JanWillemSteur65/mas-ai-agent-mcp/pkg/logging"
)

// InvokeResult is the outcome of one tool invocation. OK reflects the HTTP
// status class; tool-level errors travel inside Body as ordinary payload.
type InvokeResult struct {
	OK     bool
	Status int
	Body   any
}

// Client talks to the tool broker's plain JSON endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     logging.Logger
}

// NewClient creates a broker client for the given base URL.
func NewClient(baseURL string, logger logging.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
		logger:     logger,
	}
}

// ListTools fetches the tool catalog. Any failure, from a missing broker URL
// to a malformed body, yields an empty catalog and no error: a chat turn
// must proceed without tools rather than fail on catalog trouble.
func (c *Client) ListTools(ctx context.Context, tenantID string) []json.RawMessage {
	if c.baseURL == "" {
		return nil
	}

	catalogURL := c.baseURL + "/tools"
	if tenantID != "" {
		catalogURL += "?tenant=" + url.QueryEscape(tenantID)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, catalogURL, nil)
	if err != nil {
		return nil
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithError(err).Debug("Tool catalog fetch failed; continuing without tools")
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.WithField("status", resp.StatusCode).Debug("Tool catalog fetch returned non-OK; continuing without tools")
		return nil
	}

	var payload struct {
		Tools []json.RawMessage `json:"tools"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.logger.WithError(err).Debug("Tool catalog body malformed; continuing without tools")
		return nil
	}
	return payload.Tools
}

type invokeRequest struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments,omitempty"`
	Tenant    string         `json:"tenant,omitempty"`
}

// Invoke executes a named tool. A non-2xx response is not an error: the
// status and body are handed back so the orchestrator can fold the outcome
// into the conversation. Only a transport-level failure returns an error.
func (c *Client) Invoke(ctx context.Context, name string, arguments map[string]any, tenantID string) (InvokeResult, error) {
	body, err := json.Marshal(invokeRequest{Name: name, Arguments: arguments, Tenant: tenantID})
	if err != nil {
		return InvokeResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/invoke", bytes.NewReader(body))
	if err != nil {
		return InvokeResult{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return InvokeResult{}, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return InvokeResult{}, err
	}

	result := InvokeResult{
		OK:     resp.StatusCode >= 200 && resp.StatusCode < 300,
		Status: resp.StatusCode,
	}
	var decoded any
	if json.Unmarshal(raw, &decoded) == nil {
		result.Body = decoded
	} else {
		result.Body = string(raw)
	}
	return result, nil
}
