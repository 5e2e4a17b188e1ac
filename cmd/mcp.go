package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/rtzll/viraldna/internal"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run an MCP server exposing extraction and generation as tools",
	Long: `Run a Model Context Protocol (MCP) server that exposes viraldna functionality as tools.

The MCP server provides these tools:
- list_popular_videos: A channel's most viewed videos
- extract_channel_transcripts: Build the transcript corpus (uses Apify credits)
- get_corpus: Corpus of the last extraction
- analyze_viral_style: Generate the Viral DNA style guide
- generate_viral_script: Write a script in the analysed style

Tool activity is logged to $XDG_CACHE_HOME/viraldna/mcp.log.

Transport options:
- stdio (default): Standard MCP transport via stdin/stdout
- http: HTTP transport on specified port (use --port to configure)`,
	Example: `  # Run MCP server with stdio transport (e.g. for Claude Desktop)
  viraldna mcp

  # Run MCP server with HTTP transport on port 8080
  viraldna mcp --transport=http --port=8080

  # Set up Claude Desktop integration
  viraldna mcp setup-claude`,
	PreRunE: func(cmd *cobra.Command, args []string) error {
		// MCP uses stdio protocol, so keep progress output off stdout
		config.Quiet = true
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		transport, _ := cmd.Flags().GetString("transport")
		port, _ := cmd.Flags().GetInt("port")

		logger := internal.InitMCPLogging(config)
		app := internal.NewApp(config, internal.WithLogger(logger))

		mcpServer := internal.NewMCPServer(app, version)

		logger.Info("starting MCP server", slog.String("transport", transport), slog.Int("port", port))
		if transport == "http" {
			fmt.Fprintf(os.Stderr, "Starting viraldna MCP server on HTTP port %d...\n", port)
		}

		// Start the server (this will block until context is cancelled)
		return mcpServer.Start(cmd.Context(), transport, port)
	},
}

func init() {
	mcpCmd.Flags().String("transport", "stdio", "Transport protocol (stdio or http)")
	mcpCmd.Flags().Int("port", 8080, "Port for HTTP transport (only used with --transport=http)")
	rootCmd.AddCommand(mcpCmd)
}
