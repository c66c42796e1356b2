package broker

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/JanWillemSteur65/mas-ai-agent-mcp/internal/maximo"
	"github.com/JanWillemSteur65/mas-ai-agent-mcp/pkg/version"
)

// NewMCPServer exposes the broker's capabilities as MCP tools so MCP-native
// clients can use the backend alongside the plain JSON endpoints.
func NewMCPServer(s *Server) *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "mas-tool-broker",
		Version: version.Version,
	}, nil)

	registerListObjectTypes(srv, s)
	registerQueryObjectType(srv, s)

	return srv
}

// MCPHandler mounts the MCP server as a stateless streamable HTTP handler.
func MCPHandler(srv *mcp.Server) http.Handler {
	return mcp.NewStreamableHTTPHandler(
		func(*http.Request) *mcp.Server { return srv },
		&mcp.StreamableHTTPOptions{Stateless: true},
	)
}

type listObjectTypesInput struct {
	Tenant string `json:"tenant,omitempty" jsonschema_description:"Tenant ID selecting the backend scope"`
}

func registerListObjectTypes(srv *mcp.Server, s *Server) {
	mcp.AddTool(srv,
		&mcp.Tool{
			Name:        "listObjectTypes",
			Description: "List the object types the work-management backend exposes.",
		},
		func(ctx context.Context, _ *mcp.CallToolRequest, args listObjectTypesInput) (*mcp.CallToolResult, any, error) {
			tenant := maximo.ResolveTenant(args.Tenant, s.store.LoadEffective())
			names, err := s.backend.ListObjectTypes(ctx, tenant)
			if err != nil {
				return toolError(fmt.Sprintf("listObjectTypes failed: %v", err))
			}
			return toolSuccess(map[string]any{"objectTypes": names})
		},
	)
}

type queryObjectTypeInput struct {
	ObjectType string                `json:"objectType" jsonschema:"required" jsonschema_description:"Backend object type name, e.g. mxwo"`
	Params     maximo.QueryOverrides `json:"params,omitempty" jsonschema_description:"Optional filter, projection, ordering, and pageSize overrides"`
	Tenant     string                `json:"tenant,omitempty" jsonschema_description:"Tenant ID selecting the backend scope"`
}

func registerQueryObjectType(srv *mcp.Server, s *Server) {
	mcp.AddTool(srv,
		&mcp.Tool{
			Name:        "queryObjectType",
			Description: "Query records of an object type with optional filter, projection, ordering, and pageSize overrides.",
		},
		func(ctx context.Context, _ *mcp.CallToolRequest, args queryObjectTypeInput) (*mcp.CallToolResult, any, error) {
			if args.ObjectType == "" {
				return toolError("objectType is required")
			}

			tenant := maximo.ResolveTenant(args.Tenant, s.store.LoadEffective())
			query := maximo.BuildQuery(args.ObjectType, args.Params, tenant)

			envelope, err := s.backend.Query(ctx, tenant, query)
			if err != nil {
				return toolError(fmt.Sprintf("queryObjectType failed: %v", err))
			}
			return toolSuccess(map[string]any{
				"envelope": json.RawMessage(envelope.Raw),
				"trace":    traceRecord(tenant, query),
			})
		},
	)
}

func toolError(message string) (*mcp.CallToolResult, any, error) {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: message}},
		IsError: true,
	}, nil, nil
}

func toolSuccess(result any) (*mcp.CallToolResult, any, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return toolError(fmt.Sprintf("failed to format result: %v", err))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, result, nil
}
