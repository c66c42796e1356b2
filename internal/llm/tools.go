package llm

import (
	"encoding/json"
)

// FunctionDef is the function block of a canonical tool definition.
type FunctionDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters"`
}

// CanonicalTool is a tool definition in the shape every supported provider
// accepts on chat completion requests.
type CanonicalTool struct {
	Type     string      `json:"type"`
	Function FunctionDef `json:"function"`
}

// rawTool covers both shapes a tool definition may arrive in: the canonical
// provider shape and the broker-native catalog shape. Schema fields stay raw
// so a malformed schema degrades to the open default instead of discarding
// the whole record.
type rawTool struct {
	Type     string `json:"type"`
	Function *struct {
		Name        string          `json:"name"`
		Description string          `json:"description"`
		Parameters  json.RawMessage `json:"parameters"`
	} `json:"function"`

	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`
}

// openObjectSchema is the minimal schema providers accept for a tool that
// declares no parameters.
func openObjectSchema() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}

// schemaOrDefault decodes a schema if it is a non-empty JSON object and
// falls back to the open object schema otherwise.
func schemaOrDefault(raw json.RawMessage) map[string]any {
	var schema map[string]any
	if len(raw) > 0 && json.Unmarshal(raw, &schema) == nil && len(schema) > 0 {
		return schema
	}
	return openObjectSchema()
}

// NormalizeTools converts a mixed catalog of tool definitions into the
// canonical provider shape. Canonical entries pass through unchanged apart
// from schema defaulting; broker-native entries are wrapped. Entries without
// a usable name are dropped. Order is preserved and the transformation is
// idempotent: normalizing its own output is a no-op.
func NormalizeTools(raw []json.RawMessage) []CanonicalTool {
	tools := make([]CanonicalTool, 0, len(raw))
	for _, entry := range raw {
		var tool rawTool
		if err := json.Unmarshal(entry, &tool); err != nil {
			continue
		}

		switch {
		case tool.Type == "function" && tool.Function != nil && tool.Function.Name != "":
			tools = append(tools, CanonicalTool{
				Type: "function",
				Function: FunctionDef{
					Name:        tool.Function.Name,
					Description: tool.Function.Description,
					Parameters:  schemaOrDefault(tool.Function.Parameters),
				},
			})
		case tool.Name != "":
			tools = append(tools, CanonicalTool{
				Type: "function",
				Function: FunctionDef{
					Name:        tool.Name,
					Description: tool.Description,
					Parameters:  schemaOrDefault(tool.InputSchema),
				},
			})
		}
	}
	return tools
}
