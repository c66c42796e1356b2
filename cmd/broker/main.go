package main

import (
	"github.com/gin-gonic/gin"

	"github.com/JanWillemSteur65/mas-ai-agent-mcp/internal/broker"
	"github.com/JanWillemSteur65/mas-ai-agent-mcp/internal/maximo"
	"github.com/JanWillemSteur65/mas-ai-agent-mcp/internal/settings"
	"github.com/JanWillemSteur65/mas-ai-agent-mcp/pkg/config"
	"github.com/JanWillemSteur65/mas-ai-agent-mcp/pkg/logging"
	"github.com/JanWillemSteur65/mas-ai-agent-mcp/pkg/monitoring"
	"github.com/JanWillemSteur65/mas-ai-agent-mcp/pkg/server"
	"github.com/JanWillemSteur65/mas-ai-agent-mcp/pkg/version"
)

func main() {
	// Setup logger
	logger := logging.NewLoggerWithService("broker")

	// Load environment variables
	config.LoadEnv(logger)

	logger.Info("Starting MAS Tool Broker")

	store := settings.NewStore(config.GetEnv("SETTINGS_PATH", "settings.json"), logger)
	effective := store.LoadEffective()

	// Setup monitoring
	healthChecker := monitoring.NewHealthChecker("broker", version.Version)
	healthChecker.AddCheck("config", monitoring.ConfigurationHealthCheck(map[string]string{
		"MAXIMO_BASE_URL": effective.Maximo.BaseURL,
	}))

	backend := maximo.NewClient(logger)
	brokerServer := broker.NewServer(store, backend, logger)

	// Setup router
	router := server.SetupServiceRouter(logger, "broker", healthChecker)
	brokerServer.RegisterRoutes(router)

	// MCP surface for MCP-native clients, next to the plain JSON endpoints.
	mcpServer := broker.NewMCPServer(brokerServer)
	router.Any("/mcp", gin.WrapH(broker.MCPHandler(mcpServer)))

	// Start server with graceful shutdown
	serverConfig := server.DefaultConfig("broker", "18081")
	if err := server.Start(serverConfig, router, logger); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}
}
