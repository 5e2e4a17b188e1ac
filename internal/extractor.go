package internal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/google/uuid"
)

const corpusHeader = "=== VIRAL DNA ANALYSIS ===\n(Sorted by Most Popular of All Time)\n\n"

// slowFetchThreshold is when a single transcript fetch gets a warning in the log
const slowFetchThreshold = 2 * time.Minute

// Extractor lists a channel's popular videos, fetches their transcripts and
// assembles the corpus, reporting progress as it goes.
type Extractor struct {
	lister     ChannelLister
	fetcher    TranscriptFetcher
	state      *RunManager
	bus        *EventBus
	metrics    *Metrics
	logger     *slog.Logger
	outputFile string
	limit      int
	delayMin   time.Duration
	delayMax   time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

// ExtractorConfig carries the tunables of an Extractor
type ExtractorConfig struct {
	OutputFile   string
	DefaultLimit int
	DelayMin     time.Duration
	DelayMax     time.Duration
}

// NewExtractor wires an extractor from its collaborators
func NewExtractor(lister ChannelLister, fetcher TranscriptFetcher, state *RunManager, bus *EventBus, metrics *Metrics, logger *slog.Logger, cfg ExtractorConfig) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = &Metrics{}
	}
	if cfg.OutputFile == "" {
		cfg.OutputFile = "viral_dna.txt"
	}
	if cfg.DefaultLimit <= 0 {
		cfg.DefaultLimit = 20
	}
	if cfg.DelayMax < cfg.DelayMin {
		cfg.DelayMax = cfg.DelayMin
	}
	return &Extractor{
		lister:     lister,
		fetcher:    fetcher,
		state:      state,
		bus:        bus,
		metrics:    metrics,
		logger:     logger,
		outputFile: cfg.OutputFile,
		limit:      cfg.DefaultLimit,
		delayMin:   cfg.DelayMin,
		delayMax:   cfg.DelayMax,
		sleep:      sleepContext,
	}
}

// OutputFile returns the path the corpus is written to
func (e *Extractor) OutputFile() string { return e.outputFile }

// Start admits a run and executes it in the background. It fails fast with a
// ValidationError for an empty URL or ErrRunInProgress when a run is active.
func (e *Extractor) Start(ctx context.Context, channelURL string, limit int) (*Run, error) {
	channelURL = strings.TrimSpace(channelURL)
	if channelURL == "" {
		return nil, &ValidationError{Field: "channel_url", Message: "Channel URL is required"}
	}
	if limit <= 0 {
		limit = e.limit
	}

	run, err := e.state.Begin(uuid.NewString())
	if err != nil {
		e.metrics.RunsRejected.Add(1)
		return nil, err
	}
	e.metrics.RunsStarted.Add(1)
	e.logger.Info("extraction started",
		slog.String("run_id", run.ID()),
		slog.String("channel", channelURL),
		slog.Int("limit", limit))

	go e.execute(ctx, run, channelURL, limit)
	return run, nil
}

// Run executes an extraction and blocks until it has finished
func (e *Extractor) Run(ctx context.Context, channelURL string, limit int) (*ExtractionResult, error) {
	run, err := e.Start(ctx, channelURL, limit)
	if err != nil {
		return nil, err
	}
	<-run.Done()
	return run.result, run.err
}

// execute supervises one run: every exit path ends in Finish
func (e *Extractor) execute(ctx context.Context, run *Run, channelURL string, limit int) {
	var (
		result *ExtractionResult
		err    error
	)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("extraction panicked: %v", r)
			e.emit(run, ProgressEvent{Status: StatusError, Message: "Error: " + err.Error(), Progress: 0})
			result = nil
		}
		if err != nil {
			e.metrics.RunsFailed.Add(1)
			e.logger.Error("extraction failed", slog.String("run_id", run.ID()), slog.Any("error", err))
		} else {
			e.metrics.RunsCompleted.Add(1)
			e.logger.Info("extraction completed",
				slog.String("run_id", run.ID()),
				slog.Int("videos_processed", result.VideosProcessed),
				slog.Duration("elapsed", time.Since(run.StartedAt())))
		}
		e.state.Finish(run, result, err)
	}()

	result, err = e.extract(ctx, run, channelURL, limit)
	if err != nil && !errors.Is(err, ErrNoVideos) {
		e.emit(run, ProgressEvent{Status: StatusError, Message: "Error: " + err.Error(), Progress: 0})
	}
}

func (e *Extractor) extract(ctx context.Context, run *Run, channelURL string, limit int) (*ExtractionResult, error) {
	e.emit(run, ProgressEvent{Status: StatusStarting, Message: "Initializing Viral Extractor...", Progress: 0})

	targetURL := NormalizeChannelURL(channelURL)
	e.emit(run, ProgressEvent{Status: StatusScanning, Message: "Targeted URL: " + targetURL, Progress: 5})

	videos, err := e.lister.ListPopular(ctx, targetURL, limit)
	if err != nil || len(videos) == 0 {
		if err != nil {
			e.logger.Warn("channel listing failed", slog.String("url", targetURL), slog.Any("error", err))
		}
		e.emit(run, ProgressEvent{Status: StatusError, Message: "No videos found. Check URL.", Progress: 0})
		if err == nil || errors.Is(err, ErrNoVideos) {
			return nil, ErrNoVideos
		}
		return nil, fmt.Errorf("%w: %w", ErrNoVideos, err)
	}
	if len(videos) > limit {
		videos = videos[:limit]
	}

	total := len(videos)
	e.metrics.VideosListed.Add(int64(total))
	e.emit(run, ProgressEvent{
		Status:   StatusExtracting,
		Message:  fmt.Sprintf("Found %d Viral Hits. Extracting transcripts via Apify...", total),
		Progress: 10,
	})

	var sb strings.Builder
	sb.WriteString(corpusHeader)
	count := 0

	for idx, v := range videos {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		title := v.Title
		if title == "" {
			title = "Unknown"
		}
		progress := 10 + idx*80/total

		e.emit(run, ProgressEvent{
			Status:   StatusExtracting,
			Message:  fmt.Sprintf("[%d/%d] Extracting via Apify: %s...", idx+1, total, truncate(title, 50)),
			Progress: progress,
			Current:  intPtr(idx + 1),
			Total:    intPtr(total),
		})

		text, ferr := e.fetch(ctx, v.ID)
		switch {
		case ferr == nil && text != "":
			writeCorpusBlock(&sb, title, v.ShortURL(), text)
			count++
			e.emit(run, ProgressEvent{
				Status:   StatusSuccess,
				Message:  fmt.Sprintf("[%d/%d] Successfully extracted: %s", idx+1, total, truncate(title, 40)),
				Progress: progress,
			})
		default:
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			e.logger.Debug("transcript unavailable", slog.String("video_id", v.ID), slog.Any("error", ferr))
			e.emit(run, ProgressEvent{
				Status:   StatusWarning,
				Message:  "No subtitles found for: " + truncate(title, 40),
				Progress: progress,
			})
		}

		if idx < total-1 {
			if err := e.sleep(ctx, e.delay()); err != nil {
				return nil, err
			}
		}
	}

	content := sb.String()
	if err := WriteOutputFile(e.outputFile, content); err != nil {
		return nil, err
	}

	// stored before the complete event so listeners can fetch it right away
	e.state.StoreCorpus(Corpus{Content: content, VideosProcessed: count})

	e.emit(run, ProgressEvent{
		Status:          StatusComplete,
		Message:         fmt.Sprintf("DONE! Saved %d viral scripts to %q", count, e.outputFile),
		Progress:        100,
		OutputFile:      e.outputFile,
		VideosProcessed: intPtr(count),
	})

	return &ExtractionResult{
		Success:         true,
		OutputFile:      e.outputFile,
		VideosProcessed: count,
		Content:         content,
	}, nil
}

// fetch gets one transcript, counting requests and failures
func (e *Extractor) fetch(ctx context.Context, videoID string) (string, error) {
	e.metrics.TranscriptRequests.Add(1)
	var text string
	err := TrackOperation(ctx, e.logger, "transcript:"+videoID, slowFetchThreshold, func(ctx context.Context) error {
		var err error
		text, err = e.fetcher.FetchTranscript(ctx, videoID)
		return err
	})
	if err != nil {
		e.metrics.TranscriptErrors.Add(1)
		return "", err
	}
	return text, nil
}

// emit applies an event to the snapshot and then publishes it
func (e *Extractor) emit(run *Run, ev ProgressEvent) {
	ev.RunID = run.ID()
	e.state.Apply(ev)
	if e.bus != nil {
		e.bus.Publish(ev)
	}
}

// delay picks a uniform duration in [delayMin, delayMax]
func (e *Extractor) delay() time.Duration {
	span := e.delayMax - e.delayMin
	if span <= 0 {
		return e.delayMin
	}
	return e.delayMin + rand.N(span+1)
}

func writeCorpusBlock(sb *strings.Builder, title, shortURL, text string) {
	fmt.Fprintf(sb, "### VIDEO: %s ###\nURL: %s\n\n%s\n\n", title, shortURL, text)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
