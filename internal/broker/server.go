package broker

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/JanWillemSteur65/mas-ai-agent-mcp/internal/maximo"
	"github.com/JanWillemSteur65/mas-ai-agent-mcp/internal/settings"
	"github.com/JanWillemSteur65/mas-ai-agent-mcp/pkg/logging"
)

// Backend executes resolved queries against the work-management backend.
type Backend interface {
	ListObjectTypes(ctx context.Context, tenant maximo.ResolvedTenant) ([]string, error)
	Query(ctx context.Context, tenant maximo.ResolvedTenant, q maximo.BackendQuery) (maximo.Envelope, error)
}

// Server exposes the broker's two capabilities over plain JSON endpoints.
// Tool-level failures are ordinary 200 payloads so callers can fold them
// into a conversation; only malformed requests get a 4xx.
type Server struct {
	store   *settings.Store
	backend Backend
	logger  logging.Logger
}

// NewServer creates a broker server.
func NewServer(store *settings.Store, backend Backend, logger logging.Logger) *Server {
	return &Server{store: store, backend: backend, logger: logger}
}

// RegisterRoutes mounts the broker endpoints on the given router.
func (s *Server) RegisterRoutes(router gin.IRoutes) {
	router.GET("/tools", s.handleListTools)
	router.POST("/invoke", s.handleInvoke)
}

const credentialMask = "********"

// catalog returns the broker-native tool records. The agent's normalizer
// converts these into the canonical provider shape.
func catalog() []map[string]any {
	return []map[string]any{
		{
			"name":        "listObjectTypes",
			"description": "List the object types the work-management backend exposes.",
			"inputSchema": map[string]any{
				"type":       "object",
				"properties": map[string]any{},
			},
		},
		{
			"name":        "queryObjectType",
			"description": "Query records of an object type. Accepts optional filter, projection, ordering, and pageSize overrides; defaults scope to the tenant's site.",
			"inputSchema": map[string]any{
				"type": "object",
				"properties": map[string]any{
					"objectType": map[string]any{
						"type":        "string",
						"description": "Backend object type name, e.g. mxwo",
					},
					"params": map[string]any{
						"type":        "object",
						"description": "Optional filter, projection, ordering, and pageSize overrides",
					},
				},
				"required": []string{"objectType"},
			},
		},
	}
}

func (s *Server) handleListTools(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tools": catalog()})
}

type invokePayload struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
	Tenant    string         `json:"tenant"`
}

func (s *Server) handleInvoke(c *gin.Context) {
	var payload invokePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid invoke payload: " + err.Error()})
		return
	}

	start := time.Now()
	var result gin.H
	switch payload.Name {
	case "listObjectTypes":
		result = s.invokeListObjectTypes(c.Request.Context(), payload)
	case "queryObjectType":
		result = s.invokeQueryObjectType(c.Request.Context(), payload)
	default:
		result = toolErrorPayload("unknown_tool", "unknown tool: "+payload.Name)
	}

	status := "ok"
	if result["ok"] == false {
		status = "error"
	}
	toolInvocationsTotal.WithLabelValues(payload.Name, status).Inc()
	toolInvocationDuration.WithLabelValues(payload.Name).Observe(time.Since(start).Seconds())

	c.JSON(http.StatusOK, result)
}

func toolErrorPayload(code, message string) gin.H {
	return gin.H{
		"ok": false,
		"error": gin.H{
			"code":    code,
			"message": message,
		},
	}
}

func (s *Server) invokeListObjectTypes(ctx context.Context, payload invokePayload) gin.H {
	tenant := maximo.ResolveTenant(payload.Tenant, s.store.LoadEffective())
	names, err := s.backend.ListObjectTypes(ctx, tenant)
	if err != nil {
		s.logger.WithError(err).WithField("tenant", tenant.ID).Warn("listObjectTypes failed")
		return toolErrorPayload("backend_request_failed", err.Error())
	}
	return gin.H{"ok": true, "objectTypes": names}
}

func (s *Server) invokeQueryObjectType(ctx context.Context, payload invokePayload) gin.H {
	objectType, _ := payload.Arguments["objectType"].(string)
	if objectType == "" {
		return toolErrorPayload("invalid_input", "objectType is required")
	}

	var overrides maximo.QueryOverrides
	if params, ok := payload.Arguments["params"]; ok {
		raw, err := json.Marshal(params)
		if err == nil {
			// Unrecognized override keys are ignored rather than rejected.
			_ = json.Unmarshal(raw, &overrides)
		}
	}

	tenant := maximo.ResolveTenant(payload.Tenant, s.store.LoadEffective())
	query := maximo.BuildQuery(objectType, overrides, tenant)

	envelope, err := s.backend.Query(ctx, tenant, query)
	if err != nil {
		s.logger.WithError(err).WithFields(logging.Fields{
			"tenant":     tenant.ID,
			"objectType": objectType,
		}).Warn("queryObjectType failed")
		return toolErrorPayload("backend_request_failed", err.Error())
	}

	return gin.H{
		"ok":       true,
		"envelope": json.RawMessage(envelope.Raw),
		"trace":    traceRecord(tenant, query),
	}
}

// traceRecord describes the backend call that was made. The credential is
// always masked; the real value never leaves the broker.
func traceRecord(tenant maximo.ResolvedTenant, query maximo.BackendQuery) gin.H {
	apikey := ""
	if tenant.APIKey != "" {
		apikey = credentialMask
	}
	return gin.H{
		"tenant":     tenant.ID,
		"url":        tenant.APIBase + "/os/" + query.ObjectType,
		"query":      query.Encode(),
		"apikey":     apikey,
		"site":       tenant.Site,
		"objectType": query.ObjectType,
	}
}
