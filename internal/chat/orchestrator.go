package chat

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/JanWillemSteur65/mas-ai-agent-mcp/internal/broker"
	"github.com/JanWillemSteur65/mas-ai-agent-mcp/internal/llm"
	"github.com/JanWillemSteur65/mas-ai-agent-mcp/internal/settings"
	"github.com/JanWillemSteur65/mas-ai-agent-mcp/pkg/logging"
)

// CompletionClient performs chat completion rounds against a provider.
type CompletionClient interface {
	ChatCompletion(ctx context.Context, cfg llm.ProviderConfig, request llm.ChatRequest) (llm.Message, error)
}

// ToolBroker supplies the tool catalog and executes tool invocations.
type ToolBroker interface {
	ListTools(ctx context.Context, tenantID string) []json.RawMessage
	Invoke(ctx context.Context, name string, arguments map[string]any, tenantID string) (broker.InvokeResult, error)
}

// TurnRequest is one user turn.
type TurnRequest struct {
	Provider    string  `json:"provider"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	System      string  `json:"system"`
	Text        string  `json:"text"`
	Tenant      string  `json:"tenant"`
}

// ToolCallRecord describes one tool invocation made during a turn.
type ToolCallRecord struct {
	Name   string `json:"name"`
	OK     bool   `json:"ok"`
	Status int    `json:"status"`
}

// TurnResult is the completed turn.
type TurnResult struct {
	Reply     string           `json:"reply"`
	ToolCalls []ToolCallRecord `json:"toolCalls,omitempty"`
}

// Orchestrator runs the tool-calling loop: at most two provider rounds per
// turn, with tool calls executed sequentially between them.
type Orchestrator struct {
	store  *settings.Store
	client CompletionClient
	broker ToolBroker
	logger logging.Logger
}

// NewOrchestrator creates a chat orchestrator. The broker may be nil when no
// tool broker is configured; turns then run without tools.
func NewOrchestrator(store *settings.Store, client CompletionClient, toolBroker ToolBroker, logger logging.Logger) *Orchestrator {
	return &Orchestrator{store: store, client: client, broker: toolBroker, logger: logger}
}

// Run executes one chat turn. Settings are re-read at the start of every
// turn so credential rotations and settings edits apply immediately.
func (o *Orchestrator) Run(ctx context.Context, request TurnRequest) (TurnResult, error) {
	activeTurns.Inc()
	defer activeTurns.Dec()

	if strings.TrimSpace(request.Text) == "" {
		return TurnResult{}, invalidInput("text is required")
	}

	effective := o.store.LoadEffective()

	providerName := request.Provider
	if providerName == "" {
		providerName = effective.UI.Provider
	}
	model := request.Model
	if model == "" {
		model = effective.UI.Model
	}
	temperature := request.Temperature
	if temperature == 0 {
		temperature = effective.UI.Temperature
	}

	cfg := llm.ResolveProvider(providerName, effective)
	if cfg.Name == "" {
		return TurnResult{}, missingConfiguration("unknown provider: " + providerName)
	}
	if cfg.APIKey == "" {
		return TurnResult{}, missingCredential(cfg.Name)
	}
	if model == "" {
		return TurnResult{}, missingConfiguration("no model selected")
	}

	var tools []llm.CanonicalTool
	if o.broker != nil && effective.MCP.Enabled {
		tools = llm.NormalizeTools(o.broker.ListTools(ctx, request.Tenant))
	}

	messages := make([]llm.Message, 0, 4)
	if request.System != "" {
		messages = append(messages, llm.Message{Role: "system", Content: request.System})
	}
	messages = append(messages, llm.Message{Role: "user", Content: request.Text})

	first := llm.ChatRequest{
		Model:       model,
		Temperature: temperature,
		Messages:    messages,
	}
	if len(tools) > 0 {
		first.Tools = tools
		first.ToolChoice = "auto"
	}

	assistant, err := o.complete(ctx, cfg, first)
	if err != nil {
		return TurnResult{}, err
	}

	if len(assistant.ToolCalls) == 0 {
		return TurnResult{Reply: assistant.Content}, nil
	}

	messages = append(messages, assistant)
	records := make([]ToolCallRecord, 0, len(assistant.ToolCalls))
	for _, call := range assistant.ToolCalls {
		result, record := o.executeToolCall(ctx, call, request.Tenant)
		records = append(records, record)
		messages = append(messages, llm.Message{
			Role:       "tool",
			Content:    result,
			ToolCallID: call.ID,
		})
	}

	// Second and final round: tools are withheld so the provider must answer.
	second := llm.ChatRequest{
		Model:       model,
		Temperature: temperature,
		Messages:    messages,
	}
	assistant, err = o.complete(ctx, cfg, second)
	if err != nil {
		return TurnResult{}, err
	}

	return TurnResult{Reply: assistant.Content, ToolCalls: records}, nil
}

func (o *Orchestrator) complete(ctx context.Context, cfg llm.ProviderConfig, request llm.ChatRequest) (llm.Message, error) {
	start := time.Now()
	message, err := o.client.ChatCompletion(ctx, cfg, request)
	providerCallDuration.WithLabelValues(cfg.Name).Observe(time.Since(start).Seconds())
	if err != nil {
		providerCallsTotal.WithLabelValues(cfg.Name, request.Model, "error").Inc()
		var reqErr *llm.RequestError
		if errors.As(err, &reqErr) {
			return llm.Message{}, providerRequestFailed(reqErr.Error())
		}
		return llm.Message{}, providerRequestFailed(err.Error())
	}
	providerCallsTotal.WithLabelValues(cfg.Name, request.Model, "success").Inc()
	return message, nil
}

// executeToolCall invokes one provider-requested tool and renders the result
// as the tool message content. Malformed argument JSON is forwarded wrapped
// as {"raw": ...} rather than dropped; the backend decides what to make of it.
func (o *Orchestrator) executeToolCall(ctx context.Context, call llm.ToolCall, tenantID string) (string, ToolCallRecord) {
	name := call.Function.Name
	record := ToolCallRecord{Name: name}

	var arguments map[string]any
	if err := json.Unmarshal([]byte(call.Function.Arguments), &arguments); err != nil || arguments == nil {
		if strings.TrimSpace(call.Function.Arguments) != "" && call.Function.Arguments != "null" {
			arguments = map[string]any{"raw": call.Function.Arguments}
		} else {
			arguments = map[string]any{}
		}
	}

	if o.broker == nil {
		toolCallsTotal.WithLabelValues(name, "error").Inc()
		return `{"error":"no tool broker configured"}`, record
	}

	result, err := o.broker.Invoke(ctx, name, arguments, tenantID)
	if err != nil {
		o.logger.WithError(err).WithField("tool", name).Warn("Tool invocation failed")
		toolCallsTotal.WithLabelValues(name, "error").Inc()
		payload, _ := json.Marshal(map[string]any{"error": err.Error()})
		return string(payload), record
	}

	record.OK = result.OK
	record.Status = result.Status
	status := "success"
	if !result.OK {
		status = "error"
	}
	toolCallsTotal.WithLabelValues(name, status).Inc()

	switch body := result.Body.(type) {
	case string:
		return body, record
	default:
		payload, err := json.Marshal(body)
		if err != nil {
			return `{"error":"unrenderable tool result"}`, record
		}
		return string(payload), record
	}
}
