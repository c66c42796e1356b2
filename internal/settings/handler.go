package settings

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/JanWillemSteur65/mas-ai-agent-mcp/pkg/logging"
)

// Handler serves the settings REST endpoints.
type Handler struct {
	store  *Store
	logger logging.Logger
}

// NewHandler creates a settings handler backed by the given store.
func NewHandler(store *Store, logger logging.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

// RegisterRoutes mounts the settings endpoints on the given route group.
func (h *Handler) RegisterRoutes(group *gin.RouterGroup) {
	group.GET("/settings", h.GetSettings)
	group.PUT("/settings", h.SaveSettings)
}

// GetSettings returns the effective settings with credentials masked.
func (h *Handler) GetSettings(c *gin.Context) {
	c.JSON(http.StatusOK, Masked(h.store.LoadEffective()))
}

// SaveSettings applies a partial update. Credentials in the payload are
// dropped before anything is persisted, so a client echoing back a masked
// value can never corrupt the real key.
func (h *Handler) SaveSettings(c *gin.Context) {
	var payload SavePayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid settings payload: " + err.Error()})
		return
	}

	saved, err := h.store.Save(payload)
	if err != nil {
		h.logger.WithError(err).Error("Failed to save settings")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, Masked(saved))
}
