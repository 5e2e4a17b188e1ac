package internal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// App holds the application state and dependencies
type App struct {
	config *Config
	logger *slog.Logger
	ui     UIManager

	lister    ChannelLister
	fetcher   TranscriptFetcher
	llm       LLMClient
	prompts   *PromptManager
	state     *RunManager
	bus       *EventBus
	metrics   *Metrics
	extractor *Extractor
	generator *Generator

	delayOverride *[2]time.Duration
}

// AppOption customizes App creation
type AppOption func(*App)

// WithLister sets a custom channel lister
func WithLister(lister ChannelLister) AppOption {
	return func(a *App) {
		a.lister = lister
	}
}

// WithFetcher sets a custom transcript fetcher
func WithFetcher(fetcher TranscriptFetcher) AppOption {
	return func(a *App) {
		a.fetcher = fetcher
	}
}

// WithLLMClient sets a custom LLM backend
func WithLLMClient(client LLMClient) AppOption {
	return func(a *App) {
		a.llm = client
	}
}

// WithLogger sets the structured logger
func WithLogger(logger *slog.Logger) AppOption {
	return func(a *App) {
		a.logger = logger
	}
}

// WithUI sets the terminal UI manager
func WithUI(ui UIManager) AppOption {
	return func(a *App) {
		a.ui = ui
	}
}

// WithDelay overrides the pause between transcript fetches
func WithDelay(lo, hi time.Duration) AppOption {
	return func(a *App) {
		a.delayOverride = &[2]time.Duration{lo, hi}
	}
}

// NewApp initializes the application
func NewApp(config *Config, options ...AppOption) *App {
	app := &App{
		config:  config,
		prompts: NewPromptManager(config.ConfigDir),
		state:   NewRunManager(),
		bus:     NewEventBus(config.EventLogSize),
		metrics: &Metrics{},
	}

	// Apply any custom options
	for _, option := range options {
		option(app)
	}

	if app.logger == nil {
		app.logger = NewLogger(config.Verbose)
	}
	if app.ui == nil {
		app.ui = NewUIManager(config.Verbose, config.Quiet)
	}
	if app.lister == nil {
		app.lister = NewYouTube(app.logger)
	}
	if app.fetcher == nil {
		app.fetcher = NewApifyClient(config.ApifyBaseURL, config.ApifyAPIKey, config.ApifyActorID, config.ApifyTimeout, app.logger)
	}

	delayMin, delayMax := config.DelayMin, config.DelayMax
	if app.delayOverride != nil {
		delayMin, delayMax = app.delayOverride[0], app.delayOverride[1]
	}

	app.extractor = NewExtractor(app.lister, app.fetcher, app.state, app.bus, app.metrics, app.logger, ExtractorConfig{
		OutputFile:   config.OutputFile,
		DefaultLimit: config.DefaultLimit,
		DelayMin:     delayMin,
		DelayMax:     delayMax,
	})

	app.generator = NewGenerator(config, app.prompts, app.metrics, app.logger)
	if app.llm != nil {
		app.generator.SetClient(app.llm)
	}

	return app
}

// Config returns the application configuration
func (app *App) Config() *Config { return app.config }

// Logger returns the application logger
func (app *App) Logger() *slog.Logger { return app.logger }

// UI returns the terminal UI manager
func (app *App) UI() UIManager { return app.ui }

// State returns the run manager
func (app *App) State() *RunManager { return app.state }

// Bus returns the progress event bus
func (app *App) Bus() *EventBus { return app.bus }

// Metrics returns the process counters
func (app *App) Metrics() *Metrics { return app.metrics }

// Generator returns the generation service
func (app *App) Generator() *Generator { return app.generator }

// ResolveChannel accepts a URL, @handle or channel id and returns a channel URL
func (app *App) ResolveChannel(arg string) (string, error) {
	ref, err := ParseChannelRef(arg)
	if err != nil {
		return "", err
	}
	app.logger.Debug("resolved channel", slog.String("ref", ref.String()))
	return ref.URL, nil
}

// Extract runs a full extraction in the foreground, optionally drawing a progress bar
func (app *App) Extract(ctx context.Context, channel string, limit int, showProgress bool) (*ExtractionResult, error) {
	channelURL, err := app.ResolveChannel(channel)
	if err != nil {
		return nil, err
	}

	if !showProgress {
		return app.extractor.Run(ctx, channelURL, limit)
	}

	events, cancel := app.bus.Subscribe(wsBuffer)
	bar := app.ui.NewProgressBar(100, "Starting")

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ev := range events {
			bar.Describe(truncate(ev.Message, 60))
			bar.Set(ev.Progress)
			if ev.Status == StatusWarning || ev.Status == StatusError {
				app.ui.Verbose("%s\n", ev.Message)
			}
		}
	}()

	result, err := app.extractor.Run(ctx, channelURL, limit)
	cancel()
	wg.Wait()
	bar.Finish()

	return result, err
}

// ListVideos returns the most popular videos of a channel
func (app *App) ListVideos(ctx context.Context, channel string, limit int) ([]VideoEntry, error) {
	channelURL, err := app.ResolveChannel(channel)
	if err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = app.config.DefaultLimit
	}

	videos, err := app.lister.ListPopular(ctx, NormalizeChannelURL(channelURL), limit)
	if err != nil {
		return nil, err
	}
	app.metrics.VideosListed.Add(int64(len(videos)))
	return videos, nil
}

// Transcript fetches a single video transcript through the actor
func (app *App) Transcript(ctx context.Context, video string) (string, error) {
	videoID, err := ExtractVideoID(video)
	if err != nil {
		return "", err
	}

	app.metrics.TranscriptRequests.Add(1)
	text, err := app.fetcher.FetchTranscript(ctx, videoID)
	if err != nil {
		app.metrics.TranscriptErrors.Add(1)
		return "", fmt.Errorf("fetching transcript for %s: %w", videoID, err)
	}
	return text, nil
}

// AnalyzeStyle produces the Viral DNA. A nil or blank corpus falls back to the
// corpus of the last completed run.
func (app *App) AnalyzeStyle(ctx context.Context, corpus *string) (string, error) {
	text := ""
	if corpus != nil {
		text = *corpus
	}
	if strings.TrimSpace(text) == "" {
		text = app.state.Corpus().Content
	}
	return app.generator.AnalyzeStyle(ctx, text)
}

// GenerateScript writes a script on topic that follows the given Viral DNA
func (app *App) GenerateScript(ctx context.Context, viralDNA, topic string) (string, error) {
	return app.generator.GenerateScript(ctx, viralDNA, topic)
}

// NewServer creates the HTTP façade for this app
func (app *App) NewServer(ctx context.Context) *Server {
	return NewServer(ctx, app)
}
