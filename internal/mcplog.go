package internal

import (
	"log/slog"
	"os"
	"path/filepath"
	"sync"
)

var (
	mcpLogger     *slog.Logger
	mcpLoggerOnce sync.Once
)

// initMCPLogger opens the MCP log file; stdio transport owns stdout so tool
// activity goes to a file instead.
func initMCPLogger(cacheDir string, enabled, verbose bool) *slog.Logger {
	if !enabled {
		return discardLogger()
	}

	if err := os.MkdirAll(cacheDir, 0755); err != nil {
		return discardLogger()
	}

	logPath := filepath.Join(cacheDir, "mcp.log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return discardLogger()
	}

	return newLoggerTo(logFile, verbose).With(slog.String("component", "mcp"))
}

// InitMCPLogging initializes MCP logging based on config and returns the logger
func InitMCPLogging(config *Config) *slog.Logger {
	mcpLoggerOnce.Do(func() {
		mcpLogger = initMCPLogger(config.CacheDir, config.MCPLogEnabled, config.Verbose)
	})
	return mcpLogger
}
