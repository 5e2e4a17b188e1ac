package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// MCPServer wraps the MCP server and application dependencies
type MCPServer struct {
	app       *App
	mcpServer *server.MCPServer
	version   string
}

// NewMCPServer creates a new MCP server instance
func NewMCPServer(app *App, version string) *MCPServer {
	mcpServer := server.NewMCPServer(
		"viraldna-server",
		version,
		server.WithToolCapabilities(true),
	)

	s := &MCPServer{
		app:       app,
		mcpServer: mcpServer,
		version:   version,
	}

	s.registerTools()

	return s
}

// registerTools registers all available MCP tools
func (s *MCPServer) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_popular_videos",
		mcp.WithDescription("List a YouTube channel's most viewed videos (id, title, views). Accepts a channel URL, @handle or UC channel id."),
		mcp.WithString("channel",
			mcp.Description("YouTube channel URL, @handle or channel id"),
			mcp.Required(),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of videos (default from config)"),
		),
	), s.handleListVideos)

	s.mcpServer.AddTool(mcp.NewTool("extract_channel_transcripts",
		mcp.WithDescription("Fetch transcripts of a channel's most popular videos through Apify (PAID, uses Apify credits) and build the Viral DNA corpus. Takes roughly 1-2 seconds plus actor time per video. Only one extraction can run at a time."),
		mcp.WithString("channel",
			mcp.Description("YouTube channel URL, @handle or channel id"),
			mcp.Required(),
		),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of videos (default 20)"),
		),
	), s.handleExtract)

	s.mcpServer.AddTool(mcp.NewTool("get_corpus",
		mcp.WithDescription("Return the transcript corpus of the last completed extraction."),
	), s.handleGetCorpus)

	s.mcpServer.AddTool(mcp.NewTool("analyze_viral_style",
		mcp.WithDescription("Reverse-engineer the creator's hook, retention loops and sentence rhythm into a structural style guide (the Viral DNA). Uses the last extracted corpus unless one is given. Requires GEMINI_API_KEY."),
		mcp.WithString("corpus",
			mcp.Description("Transcript corpus to analyze (optional)"),
		),
	), s.handleAnalyze)

	s.mcpServer.AddTool(mcp.NewTool("generate_viral_script",
		mcp.WithDescription("Write a script on a topic that follows a Viral DNA style guide. Requires GEMINI_API_KEY."),
		mcp.WithString("viral_dna",
			mcp.Description("Style guide produced by analyze_viral_style"),
			mcp.Required(),
		),
		mcp.WithString("topic",
			mcp.Description("Video topic"),
			mcp.Required(),
		),
	), s.handleGenerateScript)
}

func (s *MCPServer) handleListVideos(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	channel, err := request.RequireString("channel")
	if err != nil {
		return mcp.NewToolResultError("channel parameter is required and must be a string"), nil
	}
	limit := request.GetInt("limit", s.app.config.DefaultLimit)

	s.app.logger.Info("list_popular_videos", slog.String("channel", channel), slog.Int("limit", limit))
	videos, err := s.app.ListVideos(ctx, channel, limit)
	if err != nil {
		s.app.logger.Error("list_popular_videos failed", slog.Any("error", err))
		return mcp.NewToolResultErrorFromErr("listing videos failed", err), nil
	}

	var buf strings.Builder
	for i, v := range videos {
		fmt.Fprintf(&buf, "%d. %s\n   %s", i+1, v.Title, v.ShortURL())
		if v.ViewCount > 0 {
			fmt.Fprintf(&buf, " (%d views)", v.ViewCount)
		}
		buf.WriteString("\n")
	}

	return mcp.NewToolResultText(buf.String()), nil
}

func (s *MCPServer) handleExtract(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	channel, err := request.RequireString("channel")
	if err != nil {
		return mcp.NewToolResultError("channel parameter is required and must be a string"), nil
	}
	limit := request.GetInt("limit", s.app.config.DefaultLimit)

	s.app.logger.Info("extract_channel_transcripts", slog.String("channel", channel), slog.Int("limit", limit))
	result, err := s.app.Extract(ctx, channel, limit, false)
	if err != nil {
		s.app.logger.Error("extract_channel_transcripts failed", slog.Any("error", err))
		if errors.Is(err, ErrRunInProgress) {
			return mcp.NewToolResultError("an extraction is already running - try again when it has finished"), nil
		}
		return mcp.NewToolResultErrorFromErr("extraction failed", err), nil
	}

	summary := fmt.Sprintf("Extracted %d transcripts, saved to %s\n\n", result.VideosProcessed, result.OutputFile)
	return mcp.NewToolResultText(summary + result.Content), nil
}

func (s *MCPServer) handleGetCorpus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	corpus := s.app.state.Corpus()
	if corpus.Content == "" {
		return mcp.NewToolResultError("no corpus available - run extract_channel_transcripts first"), nil
	}
	return mcp.NewToolResultText(corpus.Content), nil
}

func (s *MCPServer) handleAnalyze(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	corpus := request.GetString("corpus", "")

	s.app.logger.Info("analyze_viral_style", slog.Int("corpus_chars", len(corpus)))
	dna, err := s.app.AnalyzeStyle(ctx, &corpus)
	if err != nil {
		s.app.logger.Error("analyze_viral_style failed", slog.Any("error", err))
		return mcp.NewToolResultErrorFromErr("analysis failed", err), nil
	}
	return mcp.NewToolResultText(dna), nil
}

func (s *MCPServer) handleGenerateScript(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	dna, err := request.RequireString("viral_dna")
	if err != nil {
		return mcp.NewToolResultError("viral_dna parameter is required and must be a string"), nil
	}
	topic, err := request.RequireString("topic")
	if err != nil {
		return mcp.NewToolResultError("topic parameter is required and must be a string"), nil
	}

	s.app.logger.Info("generate_viral_script", slog.String("topic", topic))
	script, err := s.app.GenerateScript(ctx, dna, topic)
	if err != nil {
		s.app.logger.Error("generate_viral_script failed", slog.Any("error", err))
		return mcp.NewToolResultErrorFromErr("script generation failed", err), nil
	}
	return mcp.NewToolResultText(script), nil
}

// Start starts the MCP server using the specified transport
func (s *MCPServer) Start(ctx context.Context, transport string, port int) error {
	if transport == "http" {
		httpServer := server.NewStreamableHTTPServer(s.mcpServer)
		addr := fmt.Sprintf(":%d", port)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		go func() {
			<-ctx.Done()
			_ = httpServer.Shutdown(context.Background())
		}()
		return httpServer.Start(addr)
	}

	// Default to stdio transport
	return server.ServeStdio(s.mcpServer)
}

// GetServer returns the underlying MCP server for advanced configuration
func (s *MCPServer) GetServer() *server.MCPServer {
	return s.mcpServer
}
