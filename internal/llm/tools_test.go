package llm

import (
	"encoding/json"
	"testing"
)

func mustRaw(t *testing.T, v any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal test tool: %v", err)
	}
	return data
}

func TestNormalizeToolsBrokerShape(t *testing.T) {
	raw := []json.RawMessage{
		mustRaw(t, map[string]any{
			"name":        "queryObjectType",
			"description": "Query records of an object type",
			"inputSchema": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"objectType": map[string]any{"type": "string"},
				},
			},
		}),
	}

	tools := NormalizeTools(raw)
	if len(tools) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(tools))
	}
	tool := tools[0]
	if tool.Type != "function" {
		t.Errorf("expected type function, got %q", tool.Type)
	}
	if tool.Function.Name != "queryObjectType" {
		t.Errorf("expected name queryObjectType, got %q", tool.Function.Name)
	}
	if tool.Function.Parameters["type"] != "object" {
		t.Errorf("expected schema carried over, got %v", tool.Function.Parameters)
	}
}

func TestNormalizeToolsCanonicalPassThrough(t *testing.T) {
	raw := []json.RawMessage{
		mustRaw(t, CanonicalTool{
			Type: "function",
			Function: FunctionDef{
				Name:        "listObjectTypes",
				Description: "List object types",
				Parameters:  map[string]any{"type": "object", "properties": map[string]any{}},
			},
		}),
	}

	tools := NormalizeTools(raw)
	if len(tools) != 1 {
		t.Fatalf("expected 1 tool, got %d", len(tools))
	}
	if tools[0].Function.Name != "listObjectTypes" {
		t.Errorf("expected name listObjectTypes, got %q", tools[0].Function.Name)
	}
}

func TestNormalizeToolsDefaultsEmptySchema(t *testing.T) {
	raw := []json.RawMessage{
		mustRaw(t, map[string]any{"name": "listObjectTypes"}),
		mustRaw(t, map[string]any{
			"type":     "function",
			"function": map[string]any{"name": "ping"},
		}),
	}

	tools := NormalizeTools(raw)
	if len(tools) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(tools))
	}
	for _, tool := range tools {
		params := tool.Function.Parameters
		if params == nil {
			t.Fatalf("tool %q has nil parameters", tool.Function.Name)
		}
		if params["type"] != "object" {
			t.Errorf("tool %q: expected open object schema, got %v", tool.Function.Name, params)
		}
		if _, ok := params["properties"]; !ok {
			t.Errorf("tool %q: expected properties key, got %v", tool.Function.Name, params)
		}
	}
}

func TestNormalizeToolsMalformedSchemaDefaults(t *testing.T) {
	raw := []json.RawMessage{
		json.RawMessage(`{"name":"listObjectTypes","inputSchema":"not an object"}`),
		json.RawMessage(`{"type":"function","function":{"name":"ping","parameters":42}}`),
	}

	tools := NormalizeTools(raw)
	if len(tools) != 2 {
		t.Fatalf("expected 2 tools, got %d", len(tools))
	}
	for _, tool := range tools {
		if tool.Function.Parameters["type"] != "object" {
			t.Errorf("tool %q: expected open object schema, got %v", tool.Function.Name, tool.Function.Parameters)
		}
	}
}

func TestNormalizeToolsDropsUnusable(t *testing.T) {
	raw := []json.RawMessage{
		mustRaw(t, map[string]any{"description": "no name here"}),
		mustRaw(t, map[string]any{"type": "function", "function": map[string]any{"description": "nameless"}}),
		json.RawMessage(`not even json`),
		mustRaw(t, map[string]any{"name": "kept"}),
	}

	tools := NormalizeTools(raw)
	if len(tools) != 1 || tools[0].Function.Name != "kept" {
		t.Fatalf("expected only the named tool to survive, got %+v", tools)
	}
}

func TestNormalizeToolsPreservesOrder(t *testing.T) {
	raw := []json.RawMessage{
		mustRaw(t, map[string]any{"name": "first"}),
		mustRaw(t, map[string]any{"name": "second"}),
		mustRaw(t, map[string]any{"name": "third"}),
	}

	tools := NormalizeTools(raw)
	want := []string{"first", "second", "third"}
	if len(tools) != len(want) {
		t.Fatalf("expected %d tools, got %d", len(want), len(tools))
	}
	for i, name := range want {
		if tools[i].Function.Name != name {
			t.Errorf("position %d: expected %q, got %q", i, name, tools[i].Function.Name)
		}
	}
}

func TestNormalizeToolsIdempotent(t *testing.T) {
	raw := []json.RawMessage{
		mustRaw(t, map[string]any{"name": "queryObjectType", "description": "query"}),
		mustRaw(t, map[string]any{"name": "listObjectTypes"}),
	}

	once := NormalizeTools(raw)

	reEncoded := make([]json.RawMessage, len(once))
	for i, tool := range once {
		reEncoded[i] = mustRaw(t, tool)
	}
	twice := NormalizeTools(reEncoded)

	a, _ := json.Marshal(once)
	b, _ := json.Marshal(twice)
	if string(a) != string(b) {
		t.Errorf("normalization is not idempotent:\nonce:  %s\ntwice: %s", a, b)
	}
}
