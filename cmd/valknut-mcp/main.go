package main

import (
	"fmt"
	"os"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/sibyllinesoft/valknut-sub001/internal/config"
	"github.com/sibyllinesoft/valknut-sub001/internal/observability"
	"github.com/sibyllinesoft/valknut-sub001/internal/version"
	"github.com/sibyllinesoft/valknut-sub001/mcp"
)

const serverName = "valknut"

func main() {
	// Config path may be supplied by the MCP client launcher
	configPath := os.Getenv("VALKNUT_CONFIG")
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	// stdout carries JSON-RPC, so logs go to stderr
	logger, err := observability.NewLogger(cfg.Logging.Level, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Logger error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	deps := mcp.NewDependencies(cfg, configPath, logger)
	defer func() {
		if err := deps.Close(); err != nil {
			logger.Warn("failed to close cache", zap.Error(err))
		}
	}()

	server := mcpserver.NewMCPServer(
		serverName,
		version.Short(),
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithLogging(),
	)
	mcp.RegisterTools(server, mcp.NewHandlerSet(deps))

	logger.Info("starting MCP server",
		zap.String("name", serverName),
		zap.String("version", version.Short()),
		zap.Strings("tools", []string{mcp.ToolRankCandidates}))

	// Blocks until the client disconnects
	if err := mcpserver.ServeStdio(server); err != nil {
		logger.Error("server error", zap.Error(err))
		os.Exit(1)
	}
}
