package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/rtzll/viraldna/internal"
)

// serveCmd runs the HTTP and WebSocket backend
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP/WebSocket backend",
	Long: `Serve the extraction and generation API used by the web frontend.

Routes:
  POST /api/extract             start an extraction {channel_url, limit}
  GET  /api/status              current extraction status
  GET  /api/download            download the corpus file
  GET  /api/subtitles           corpus of the last run
  GET  /api/events?since=N      buffered progress events after N
  POST /api/generate-viral-dna  analyse a corpus {subtitles}
  POST /api/generate-script     write a script {viral_dna, topic}
  GET  /ws?since=N              live progress events
  GET  /health, /metrics`,
	Example: `  # Serve on the default port
  viraldna serve

  # Serve on another port with debug logging
  viraldna serve --port 8080 -v`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Flags().Changed("port") {
			config.Port, _ = cmd.Flags().GetInt("port")
		}
		if err := internal.ApplyLLMFlags(cmd, config); err != nil {
			return err
		}

		app := internal.NewApp(config)
		logger := app.Logger()

		if config.GeminiAPIKey == "" {
			logger.Warn("GEMINI_API_KEY not set, generation endpoints will fail")
		}
		if config.ApifyAPIKey == "" {
			logger.Warn("APIFY_API_KEY not set, every transcript fetch will fail")
		}
		logger.Info("starting server",
			slog.Int("port", config.Port),
			slog.String("provider", config.LLMProvider),
			slog.String("model", config.GeminiModel),
			slog.String("output_file", config.OutputFile))

		server := app.NewServer(cmd.Context())
		return server.ListenAndServe(cmd.Context(), fmt.Sprintf(":%d", config.Port))
	},
}

func init() {
	serveCmd.Flags().IntP("port", "p", 5002, "Port to listen on")
	internal.AddLLMFlags(serveCmd)
	rootCmd.AddCommand(serveCmd)
}
