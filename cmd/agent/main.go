package main

import (
	"github.com/JanWillemSteur65/mas-ai-agent-mcp/internal/broker"
	"github.com/JanWillemSteur65/mas-ai-agent-mcp/internal/chat"
	"github.com/JanWillemSteur65/mas-ai-agent-mcp/internal/llm"
	"github.com/JanWillemSteur65/mas-ai-agent-mcp/internal/settings"
	"github.com/JanWillemSteur65/mas-ai-agent-mcp/pkg/config"
	"github.com/JanWillemSteur65/mas-ai-agent-mcp/pkg/logging"
	"github.com/JanWillemSteur65/mas-ai-agent-mcp/pkg/monitoring"
	"github.com/JanWillemSteur65/mas-ai-agent-mcp/pkg/server"
	"github.com/JanWillemSteur65/mas-ai-agent-mcp/pkg/version"
)

func main() {
	// Setup logger
	logger := logging.NewLoggerWithService("agent")

	// Load environment variables
	config.LoadEnv(logger)

	logger.Info("Starting MAS AI Agent")

	store := settings.NewStore(config.GetEnv("SETTINGS_PATH", "settings.json"), logger)
	effective := store.LoadEffective()

	brokerURL := effective.MCP.ServerURL

	// Setup monitoring
	healthChecker := monitoring.NewHealthChecker("agent", version.Version)
	healthChecker.AddCheck("broker", monitoring.HTTPHealthCheck(brokerURL+"/tools"))

	llmClient := llm.NewClient(logger)
	brokerClient := broker.NewClient(brokerURL, logger)
	orchestrator := chat.NewOrchestrator(store, llmClient, brokerClient, logger)

	// Setup router
	router := server.SetupServiceRouter(logger, "agent", healthChecker)

	api := router.Group("/api")
	chat.NewHandler(orchestrator, store, llmClient, brokerClient, logger).RegisterRoutes(api)
	settings.NewHandler(store, logger).RegisterRoutes(api)

	// Start server with graceful shutdown
	serverConfig := server.DefaultConfig("agent", "18080")
	if err := server.Start(serverConfig, router, logger); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}
}
