package chat

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/JanWillemSteur65/mas-ai-agent-mcp/internal/broker"
	"github.com/JanWillemSteur65/mas-ai-agent-mcp/internal/llm"
	"github.com/JanWillemSteur65/mas-ai-agent-mcp/internal/settings"
	"github.com/JanWillemSteur65/mas-ai-agent-mcp/pkg/logging"
)

type fakeCompletion struct {
	responses []llm.Message
	calls     int
	requests  []llm.ChatRequest
}

func (f *fakeCompletion) ChatCompletion(_ context.Context, _ llm.ProviderConfig, request llm.ChatRequest) (llm.Message, error) {
	f.requests = append(f.requests, request)
	message := f.responses[f.calls]
	f.calls++
	return message, nil
}

type fakeToolBroker struct {
	tools       []json.RawMessage
	invokeBody  any
	listCalls   int
	invocations []struct {
		Name      string
		Arguments map[string]any
		Tenant    string
	}
}

func (f *fakeToolBroker) ListTools(context.Context, string) []json.RawMessage {
	f.listCalls++
	return f.tools
}

func (f *fakeToolBroker) Invoke(_ context.Context, name string, arguments map[string]any, tenant string) (broker.InvokeResult, error) {
	f.invocations = append(f.invocations, struct {
		Name      string
		Arguments map[string]any
		Tenant    string
	}{name, arguments, tenant})
	return broker.InvokeResult{OK: true, Status: 200, Body: f.invokeBody}, nil
}

func seededStore(t *testing.T, toolsEnabled bool) *settings.Store {
	t.Helper()
	store := settings.NewStore(filepath.Join(t.TempDir(), "settings.json"), nil)
	t.Setenv("OPENAI_API_KEY", "sk-test")
	ui := settings.UISettings{Provider: "openai", Model: "gpt-4o-mini", Temperature: 0.2, ToolsEnabled: true}
	mcp := settings.MCPSettings{ServerURL: "http://broker", Enabled: toolsEnabled}
	if _, err := store.Save(settings.SavePayload{UI: &ui, MCP: &mcp}); err != nil {
		t.Fatalf("seed settings: %v", err)
	}
	return store
}

func brokerCatalog(t *testing.T) []json.RawMessage {
	t.Helper()
	entry, err := json.Marshal(map[string]any{"name": "queryObjectType", "description": "query"})
	if err != nil {
		t.Fatal(err)
	}
	return []json.RawMessage{entry}
}

func TestRunZeroToolTurn(t *testing.T) {
	client := &fakeCompletion{responses: []llm.Message{{Role: "assistant", Content: "All quiet."}}}
	toolBroker := &fakeToolBroker{tools: brokerCatalog(t)}
	o := NewOrchestrator(seededStore(t, true), client, toolBroker, logging.NewLogger())

	result, err := o.Run(context.Background(), TurnRequest{Text: "status?"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Reply != "All quiet." {
		t.Errorf("unexpected reply %q", result.Reply)
	}
	if client.calls != 1 {
		t.Errorf("expected exactly 1 provider call, got %d", client.calls)
	}
	if len(toolBroker.invocations) != 0 {
		t.Errorf("expected no tool invocations, got %d", len(toolBroker.invocations))
	}
}

func TestRunSingleToolCallTurn(t *testing.T) {
	client := &fakeCompletion{responses: []llm.Message{
		{
			Role: "assistant",
			ToolCalls: []llm.ToolCall{{
				ID:   "call_1",
				Type: "function",
				Function: llm.FunctionCall{
					Name:      "queryObjectType",
					Arguments: `{"objectType":"mxwo"}`,
				},
			}},
		},
		{Role: "assistant", Content: "Found 3 work orders."},
	}}
	toolBroker := &fakeToolBroker{
		tools:      brokerCatalog(t),
		invokeBody: map[string]any{"ok": true, "envelope": map[string]any{"member": []any{}}},
	}
	o := NewOrchestrator(seededStore(t, true), client, toolBroker, logging.NewLogger())

	result, err := o.Run(context.Background(), TurnRequest{Text: "list work orders", Tenant: "prod"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Reply != "Found 3 work orders." {
		t.Errorf("unexpected reply %q", result.Reply)
	}
	if client.calls != 2 {
		t.Errorf("expected exactly 2 provider calls, got %d", client.calls)
	}
	if len(toolBroker.invocations) != 1 {
		t.Fatalf("expected 1 tool invocation, got %d", len(toolBroker.invocations))
	}
	inv := toolBroker.invocations[0]
	if inv.Name != "queryObjectType" || inv.Tenant != "prod" {
		t.Errorf("unexpected invocation: %+v", inv)
	}
	if inv.Arguments["objectType"] != "mxwo" {
		t.Errorf("unexpected arguments: %v", inv.Arguments)
	}

	// First round carries the tools; the second must not.
	if len(client.requests[0].Tools) != 1 || client.requests[0].ToolChoice != "auto" {
		t.Errorf("expected tools on first round, got %+v", client.requests[0])
	}
	if len(client.requests[1].Tools) != 0 || client.requests[1].ToolChoice != "" {
		t.Errorf("expected no tools on second round, got %+v", client.requests[1])
	}

	// The tool result is folded back with the matching tool_call_id.
	second := client.requests[1].Messages
	last := second[len(second)-1]
	if last.Role != "tool" || last.ToolCallID != "call_1" {
		t.Errorf("expected tool message with matching id, got %+v", last)
	}
	var folded map[string]any
	if err := json.Unmarshal([]byte(last.Content), &folded); err != nil {
		t.Fatalf("tool message content is not JSON: %v", err)
	}
	if folded["ok"] != true {
		t.Errorf("unexpected folded content: %v", folded)
	}
}

func TestRunMalformedToolArgumentsWrappedAsRaw(t *testing.T) {
	client := &fakeCompletion{responses: []llm.Message{
		{
			Role: "assistant",
			ToolCalls: []llm.ToolCall{{
				ID:       "call_1",
				Type:     "function",
				Function: llm.FunctionCall{Name: "queryObjectType", Arguments: `{not valid json`},
			}},
		},
		{Role: "assistant", Content: "done"},
	}}
	toolBroker := &fakeToolBroker{tools: brokerCatalog(t), invokeBody: map[string]any{"ok": true}}
	o := NewOrchestrator(seededStore(t, true), client, toolBroker, logging.NewLogger())

	if _, err := o.Run(context.Background(), TurnRequest{Text: "go"}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(toolBroker.invocations) != 1 {
		t.Fatalf("expected the tool to still be invoked, got %d invocations", len(toolBroker.invocations))
	}
	if toolBroker.invocations[0].Arguments["raw"] != `{not valid json` {
		t.Errorf("expected raw-wrapped arguments, got %v", toolBroker.invocations[0].Arguments)
	}
}

func TestRunEmptyToolArgumentsSentAsEmptyObject(t *testing.T) {
	for _, arguments := range []string{"", "null", "  "} {
		client := &fakeCompletion{responses: []llm.Message{
			{
				Role: "assistant",
				ToolCalls: []llm.ToolCall{{
					ID:       "call_1",
					Type:     "function",
					Function: llm.FunctionCall{Name: "listObjectTypes", Arguments: arguments},
				}},
			},
			{Role: "assistant", Content: "done"},
		}}
		toolBroker := &fakeToolBroker{tools: brokerCatalog(t), invokeBody: map[string]any{"ok": true}}
		o := NewOrchestrator(seededStore(t, true), client, toolBroker, logging.NewLogger())

		if _, err := o.Run(context.Background(), TurnRequest{Text: "go"}); err != nil {
			t.Fatalf("arguments %q: Run failed: %v", arguments, err)
		}
		if len(toolBroker.invocations) != 1 {
			t.Fatalf("arguments %q: expected 1 invocation, got %d", arguments, len(toolBroker.invocations))
		}
		if got := toolBroker.invocations[0].Arguments; len(got) != 0 {
			t.Errorf("arguments %q: expected empty argument object, got %v", arguments, got)
		}
	}
}

func TestRunMissingCredentialZeroNetworkCalls(t *testing.T) {
	store := settings.NewStore(filepath.Join(t.TempDir(), "settings.json"), nil)
	t.Setenv("OPENAI_API_KEY", "")
	mcp := settings.MCPSettings{ServerURL: "http://broker", Enabled: true}
	if _, err := store.Save(settings.SavePayload{MCP: &mcp}); err != nil {
		t.Fatalf("seed settings: %v", err)
	}

	client := &fakeCompletion{}
	toolBroker := &fakeToolBroker{tools: brokerCatalog(t)}
	o := NewOrchestrator(store, client, toolBroker, logging.NewLogger())

	_, err := o.Run(context.Background(), TurnRequest{Provider: "openai", Model: "gpt-4o-mini", Text: "hi"})
	turnErr, ok := err.(*TurnError)
	if !ok {
		t.Fatalf("expected *TurnError, got %v", err)
	}
	if turnErr.Code != CodeMissingCredential {
		t.Errorf("expected missing_credential, got %s", turnErr.Code)
	}
	if client.calls != 0 {
		t.Errorf("expected zero provider calls, got %d", client.calls)
	}
	if toolBroker.listCalls != 0 || len(toolBroker.invocations) != 0 {
		t.Errorf("expected zero broker calls, got list=%d invoke=%d", toolBroker.listCalls, len(toolBroker.invocations))
	}
}

func TestRunUnknownProvider(t *testing.T) {
	o := NewOrchestrator(seededStore(t, true), &fakeCompletion{}, &fakeToolBroker{}, logging.NewLogger())

	_, err := o.Run(context.Background(), TurnRequest{Provider: "anthropic", Text: "hi"})
	turnErr, ok := err.(*TurnError)
	if !ok || turnErr.Code != CodeMissingConfiguration {
		t.Fatalf("expected missing_configuration, got %v", err)
	}
}

func TestRunEmptyText(t *testing.T) {
	o := NewOrchestrator(seededStore(t, true), &fakeCompletion{}, &fakeToolBroker{}, logging.NewLogger())

	_, err := o.Run(context.Background(), TurnRequest{Text: "   "})
	turnErr, ok := err.(*TurnError)
	if !ok || turnErr.Code != CodeInvalidInput {
		t.Fatalf("expected invalid_input, got %v", err)
	}
}

func TestRunToolsDisabledSkipsCatalog(t *testing.T) {
	client := &fakeCompletion{responses: []llm.Message{{Role: "assistant", Content: "ok"}}}
	toolBroker := &fakeToolBroker{tools: brokerCatalog(t)}
	o := NewOrchestrator(seededStore(t, false), client, toolBroker, logging.NewLogger())

	if _, err := o.Run(context.Background(), TurnRequest{Text: "hi"}); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if toolBroker.listCalls != 0 {
		t.Errorf("expected no catalog fetch with tools disabled, got %d", toolBroker.listCalls)
	}
	if len(client.requests[0].Tools) != 0 {
		t.Errorf("expected no tools on the request, got %v", client.requests[0].Tools)
	}
}

func TestRunEmptyCatalogProceedsWithoutTools(t *testing.T) {
	client := &fakeCompletion{responses: []llm.Message{{Role: "assistant", Content: "ok"}}}
	toolBroker := &fakeToolBroker{} // broker returns nothing, as it does on any catalog failure
	o := NewOrchestrator(seededStore(t, true), client, toolBroker, logging.NewLogger())

	result, err := o.Run(context.Background(), TurnRequest{Text: "hi"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Reply != "ok" {
		t.Errorf("unexpected reply %q", result.Reply)
	}
	if len(client.requests[0].Tools) != 0 || client.requests[0].ToolChoice != "" {
		t.Errorf("expected bare request without tools, got %+v", client.requests[0])
	}
}

func TestRunSequentialToolCallsPreserveOrder(t *testing.T) {
	client := &fakeCompletion{responses: []llm.Message{
		{
			Role: "assistant",
			ToolCalls: []llm.ToolCall{
				{ID: "call_1", Type: "function", Function: llm.FunctionCall{Name: "listObjectTypes", Arguments: `{}`}},
				{ID: "call_2", Type: "function", Function: llm.FunctionCall{Name: "queryObjectType", Arguments: `{"objectType":"mxwo"}`}},
			},
		},
		{Role: "assistant", Content: "done"},
	}}
	toolBroker := &fakeToolBroker{tools: brokerCatalog(t), invokeBody: map[string]any{"ok": true}}
	o := NewOrchestrator(seededStore(t, true), client, toolBroker, logging.NewLogger())

	result, err := o.Run(context.Background(), TurnRequest{Text: "both"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if len(toolBroker.invocations) != 2 {
		t.Fatalf("expected 2 invocations, got %d", len(toolBroker.invocations))
	}
	if toolBroker.invocations[0].Name != "listObjectTypes" || toolBroker.invocations[1].Name != "queryObjectType" {
		t.Errorf("invocations out of order: %+v", toolBroker.invocations)
	}
	if len(result.ToolCalls) != 2 {
		t.Errorf("expected 2 tool call records, got %+v", result.ToolCalls)
	}
	if client.calls != 2 {
		t.Errorf("expected exactly 2 provider calls, got %d", client.calls)
	}
}
