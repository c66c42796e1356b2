package maximo

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/JanWillemSteur65/mas-ai-agent-mcp/pkg/logging"
)

// Envelope is the backend list response. Matching records live under member;
// everything else is kept raw so callers can pass the payload through
// untouched.
type Envelope struct {
	Member []map[string]any `json:"member"`
	Raw    json.RawMessage  `json:"-"`
}

// RequestError is a failed backend HTTP exchange. Status is zero when no
// response was received.
type RequestError struct {
	Status int
	Detail string
}

func (e *RequestError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("backend request failed with status %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("backend request failed: %s", e.Detail)
}

const bodyExcerptLimit = 300

func excerpt(body []byte) string {
	s := string(body)
	if len(s) > bodyExcerptLimit {
		return s[:bodyExcerptLimit]
	}
	return s
}

// Client talks to the work-management backend REST API.
type Client struct {
	httpClient *http.Client
	logger     logging.Logger
}

// NewClient creates a backend client.
func NewClient(logger logging.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// ListObjectTypes returns the object-type names the backend exposes.
func (c *Client) ListObjectTypes(ctx context.Context, tenant ResolvedTenant) ([]string, error) {
	if tenant.APIBase == "" {
		return nil, &RequestError{Detail: "no backend base URL configured"}
	}

	raw, err := c.get(ctx, tenant, tenant.APIBase+"/os")
	if err != nil {
		return nil, err
	}

	// The catalog endpoint returns either an object keyed by type name or a
	// member array of {name} records depending on the backend version.
	var keyed map[string]json.RawMessage
	if err := json.Unmarshal(raw, &keyed); err == nil {
		if member, ok := keyed["member"]; ok {
			var records []struct {
				Name string `json:"name"`
			}
			if err := json.Unmarshal(member, &records); err == nil {
				names := make([]string, 0, len(records))
				for _, r := range records {
					if r.Name != "" {
						names = append(names, r.Name)
					}
				}
				return names, nil
			}
		}
		names := make([]string, 0, len(keyed))
		for name := range keyed {
			names = append(names, name)
		}
		return names, nil
	}
	return nil, &RequestError{Detail: "decode object type catalog: " + excerpt(raw)}
}

// Query executes a BackendQuery and returns the raw response envelope.
func (c *Client) Query(ctx context.Context, tenant ResolvedTenant, q BackendQuery) (Envelope, error) {
	if tenant.APIBase == "" {
		return Envelope{}, &RequestError{Detail: "no backend base URL configured"}
	}

	url := tenant.APIBase + "/os/" + q.ObjectType
	if params := q.Encode(); params != "" {
		url += "?" + params
	}

	raw, err := c.get(ctx, tenant, url)
	if err != nil {
		return Envelope{}, err
	}

	envelope := Envelope{Raw: raw}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return Envelope{}, &RequestError{Detail: "decode response: " + excerpt(raw)}
	}
	return envelope, nil
}

func (c *Client) get(ctx context.Context, tenant ResolvedTenant, url string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, &RequestError{Detail: err.Error()}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("apikey", tenant.APIKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &RequestError{Detail: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 10<<20))
	if err != nil {
		return nil, &RequestError{Detail: "read response: " + err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &RequestError{Status: resp.StatusCode, Detail: excerpt(body)}
	}

	c.logger.WithFields(logging.Fields{
		"tenant":     tenant.ID,
		"url":        url,
		"status":     resp.StatusCode,
		"latency_ms": time.Since(start).Milliseconds(),
	}).Debug("Backend request finished")

	return body, nil
}
