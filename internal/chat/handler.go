package chat

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JanWillemSteur65/mas-ai-agent-mcp/internal/llm"
	"github.com/JanWillemSteur65/mas-ai-agent-mcp/internal/settings"
	"github.com/JanWillemSteur65/mas-ai-agent-mcp/pkg/logging"
)

// ModelLister fetches the model catalog from a provider.
type ModelLister interface {
	ListModels(ctx context.Context, cfg llm.ProviderConfig) ([]string, error)
}

// Handler serves the chat and tool HTTP endpoints.
type Handler struct {
	orchestrator *Orchestrator
	store        *settings.Store
	models       ModelLister
	broker       ToolBroker
	logger       logging.Logger
}

// NewHandler creates the chat HTTP handler.
func NewHandler(orchestrator *Orchestrator, store *settings.Store, models ModelLister, toolBroker ToolBroker, logger logging.Logger) *Handler {
	return &Handler{
		orchestrator: orchestrator,
		store:        store,
		models:       models,
		broker:       toolBroker,
		logger:       logger,
	}
}

// RegisterRoutes mounts the chat endpoints on the given route group.
func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	group.POST("/chat", h.HandleChat)
	group.GET("/tools", h.HandleListTools)
	group.POST("/tools/invoke", h.HandleInvokeTool)
	group.GET("/models", h.HandleListModels)
}

func (h *Handler) writeTurnError(c *gin.Context, err error) {
	var turnErr *TurnError
	if errors.As(err, &turnErr) {
		c.JSON(turnErr.Status, gin.H{"error": turnErr.Detail, "code": string(turnErr.Code)})
		return
	}
	h.logger.WithError(err).Error("Unexpected chat failure")
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

// HandleChat runs one chat turn.
func (h *Handler) HandleChat(c *gin.Context) {
	var request TurnRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid chat payload: " + err.Error(), "code": string(CodeInvalidInput)})
		return
	}
	c.Set("tenant", request.Tenant)

	result, err := h.orchestrator.Run(c.Request.Context(), request)
	if err != nil {
		h.writeTurnError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// HandleListTools returns the normalized tool catalog. A broker failure is
// an empty catalog, not an error.
func (h *Handler) HandleListTools(c *gin.Context) {
	tools := []llm.CanonicalTool{}
	if h.broker != nil {
		tools = llm.NormalizeTools(h.broker.ListTools(c.Request.Context(), c.Query("tenant")))
	}
	c.JSON(http.StatusOK, gin.H{"tools": tools})
}

type invokeToolRequest struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
	Tenant    string         `json:"tenant"`
}

// HandleInvokeTool executes a single tool directly, bypassing the provider.
func (h *Handler) HandleInvokeTool(c *gin.Context) {
	var request invokeToolRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid invoke payload: " + err.Error(), "code": string(CodeInvalidInput)})
		return
	}
	if request.Name == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "name is required", "code": string(CodeInvalidInput)})
		return
	}
	if h.broker == nil {
		h.writeTurnError(c, backendRequestFailed("no tool broker configured"))
		return
	}

	result, err := h.broker.Invoke(c.Request.Context(), request.Name, request.Arguments, request.Tenant)
	if err != nil {
		h.writeTurnError(c, backendRequestFailed(err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": result.OK, "status": result.Status, "body": result.Body})
}

// HandleListModels returns the model IDs of the selected provider.
func (h *Handler) HandleListModels(c *gin.Context) {
	effective := h.store.LoadEffective()
	providerName := c.Query("provider")
	if providerName == "" {
		providerName = effective.UI.Provider
	}

	cfg := llm.ResolveProvider(providerName, effective)
	if cfg.Name == "" {
		h.writeTurnError(c, missingConfiguration("unknown provider: "+providerName))
		return
	}
	if cfg.APIKey == "" {
		h.writeTurnError(c, missingCredential(cfg.Name))
		return
	}

	models, err := h.models.ListModels(c.Request.Context(), cfg)
	if err != nil {
		h.writeTurnError(c, providerRequestFailed(err.Error()))
		return
	}
	c.JSON(http.StatusOK, gin.H{"provider": cfg.Name, "models": models})
}
