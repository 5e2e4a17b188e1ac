package internal

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractSkipsVideosWithoutTranscript(t *testing.T) {
	cfg := testConfig(t)
	lister := &fakeLister{videos: []VideoEntry{
		{ID: "a", Title: "T1"},
		{ID: "b", Title: "T2"},
	}}
	fetcher := &fakeFetcher{transcripts: map[string]string{"a": "hello"}}
	app := newTestApp(t, cfg, WithLister(lister), WithFetcher(fetcher))

	result, err := app.extractor.Run(context.Background(), "https://www.youtube.com/@creator", 2)
	require.NoError(t, err)

	want := corpusHeader + "### VIDEO: T1 ###\nURL: https://youtu.be/a\n\nhello\n\n"
	assert.True(t, result.Success)
	assert.Equal(t, 1, result.VideosProcessed)
	assert.Equal(t, want, result.Content)
	assert.Equal(t, cfg.OutputFile, result.OutputFile)
	assert.Equal(t, []string{"a", "b"}, fetcher.Calls())
	assert.Equal(t, "https://www.youtube.com/@creator/videos?view=0&sort=p", lister.gotURL)
	assert.Equal(t, 2, lister.gotLimit)

	data, err := os.ReadFile(cfg.OutputFile)
	require.NoError(t, err)
	assert.Equal(t, want, string(data))

	corpus := app.state.Corpus()
	assert.Equal(t, want, corpus.Content)
	assert.Equal(t, 1, corpus.VideosProcessed)

	events := app.bus.Since(0)
	require.NotEmpty(t, events)
	last := events[len(events)-1]
	assert.Equal(t, StatusComplete, last.Status)
	assert.Equal(t, 100, last.Progress)
	assert.Equal(t, cfg.OutputFile, last.OutputFile)
	require.NotNil(t, last.VideosProcessed)
	assert.Equal(t, 1, *last.VideosProcessed)

	statuses := make([]RunStatus, 0, len(events))
	for _, ev := range events {
		statuses = append(statuses, ev.Status)
	}
	assert.Equal(t, []RunStatus{
		StatusStarting,
		StatusScanning,
		StatusExtracting,
		StatusExtracting,
		StatusSuccess,
		StatusExtracting,
		StatusWarning,
		StatusComplete,
	}, statuses)
	assert.Equal(t, "No subtitles found for: T2", events[6].Message)

	status := app.state.Status()
	assert.False(t, status.Running)
	assert.Equal(t, StatusComplete, status.Status)
	assert.Equal(t, 100, status.Progress)
}

func TestExtractProgressIsMonotonic(t *testing.T) {
	videos := make([]VideoEntry, 0, 7)
	transcripts := map[string]string{}
	for _, id := range []string{"v1", "v2", "v3", "v4", "v5", "v6", "v7"} {
		videos = append(videos, VideoEntry{ID: id, Title: "Title " + id})
		transcripts[id] = "text " + id
	}
	app := newTestApp(t, testConfig(t),
		WithLister(&fakeLister{videos: videos}),
		WithFetcher(&fakeFetcher{transcripts: transcripts}))

	result, err := app.extractor.Run(context.Background(), "https://www.youtube.com/@creator", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, result.VideosProcessed)

	prev := -1
	var prevSeq int64
	for _, ev := range app.bus.Since(0) {
		assert.GreaterOrEqual(t, ev.Progress, prev, "progress went backwards at %q", ev.Message)
		assert.Greater(t, ev.Seq, prevSeq)
		assert.GreaterOrEqual(t, ev.Progress, 0)
		assert.LessOrEqual(t, ev.Progress, 100)
		prev = ev.Progress
		prevSeq = ev.Seq
	}
	assert.Equal(t, 100, prev)
}

func TestExtractCapsListingAtLimit(t *testing.T) {
	lister := &fakeLister{videos: []VideoEntry{{ID: "a", Title: "A"}, {ID: "b", Title: "B"}, {ID: "c", Title: "C"}}}
	fetcher := &fakeFetcher{transcripts: map[string]string{"a": "x", "b": "y", "c": "z"}}
	app := newTestApp(t, testConfig(t), WithLister(lister), WithFetcher(fetcher))

	result, err := app.extractor.Run(context.Background(), "https://www.youtube.com/@creator", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, result.VideosProcessed)
	assert.Equal(t, []string{"a", "b"}, fetcher.Calls())
}

func TestExtractUsesUnknownForEmptyTitle(t *testing.T) {
	app := newTestApp(t, testConfig(t),
		WithLister(&fakeLister{videos: []VideoEntry{{ID: "a"}}}),
		WithFetcher(&fakeFetcher{transcripts: map[string]string{"a": "hi"}}))

	result, err := app.extractor.Run(context.Background(), "https://www.youtube.com/@creator", 1)
	require.NoError(t, err)
	assert.Contains(t, result.Content, "### VIDEO: Unknown ###")
}

func TestExtractNoVideos(t *testing.T) {
	tests := []struct {
		name   string
		lister *fakeLister
	}{
		{name: "empty listing", lister: &fakeLister{}},
		{name: "listing error", lister: &fakeLister{err: errors.New("yt-dlp exited 1")}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			fetcher := &fakeFetcher{}
			app := newTestApp(t, cfg, WithLister(tt.lister), WithFetcher(fetcher))

			result, err := app.extractor.Run(context.Background(), "https://www.youtube.com/@creator", 5)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrNoVideos)
			assert.Nil(t, result)
			assert.Empty(t, fetcher.Calls())
			assert.NoFileExists(t, cfg.OutputFile)

			events := app.bus.Since(0)
			require.NotEmpty(t, events)
			last := events[len(events)-1]
			assert.Equal(t, StatusError, last.Status)
			assert.Equal(t, "No videos found. Check URL.", last.Message)

			errorEvents := 0
			for _, ev := range events {
				if ev.Status == StatusError {
					errorEvents++
				}
			}
			assert.Equal(t, 1, errorEvents)

			status := app.state.Status()
			assert.False(t, status.Running)
			assert.Equal(t, StatusError, status.Status)
		})
	}
}

func TestExtractEmptyURLIsRejected(t *testing.T) {
	app := newTestApp(t, testConfig(t), WithLister(&fakeLister{}), WithFetcher(&fakeFetcher{}))

	_, err := app.extractor.Start(context.Background(), "  ", 5)
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
	assert.Equal(t, "Channel URL is required", err.Error())
	assert.False(t, app.state.IsRunning())
	assert.Zero(t, app.bus.LastSeq())
}

func TestExtractRejectsConcurrentRun(t *testing.T) {
	release := make(chan struct{})
	lister := &fakeLister{videos: []VideoEntry{{ID: "a", Title: "T1"}}, release: release}
	app := newTestApp(t, testConfig(t),
		WithLister(lister),
		WithFetcher(&fakeFetcher{transcripts: map[string]string{"a": "hello"}}))

	run, err := app.extractor.Start(context.Background(), "https://www.youtube.com/@creator", 1)
	require.NoError(t, err)
	before := app.state.Status()

	_, err = app.extractor.Start(context.Background(), "https://www.youtube.com/@other", 1)
	require.ErrorIs(t, err, ErrRunInProgress)
	assert.Equal(t, before.RunID, app.state.Status().RunID)
	assert.EqualValues(t, 1, app.metrics.RunsRejected.Load())

	close(release)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, err := run.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, result.VideosProcessed)

	// a new run is admitted once the first has finished
	lister.mu.Lock()
	lister.release = nil
	lister.mu.Unlock()
	result, err = app.extractor.Run(context.Background(), "https://www.youtube.com/@creator", 1)
	require.NoError(t, err)
	assert.Equal(t, 1, result.VideosProcessed)
	assert.EqualValues(t, 2, app.metrics.RunsCompleted.Load())
}

func TestExtractCancellation(t *testing.T) {
	cfg := testConfig(t)
	lister := &fakeLister{videos: []VideoEntry{{ID: "a", Title: "T1"}}, release: make(chan struct{})}
	app := newTestApp(t, cfg, WithLister(lister), WithFetcher(&fakeFetcher{}))

	ctx, cancel := context.WithCancel(context.Background())
	run, err := app.extractor.Start(ctx, "https://www.youtube.com/@creator", 1)
	require.NoError(t, err)
	cancel()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	_, err = run.Wait(waitCtx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNoVideos)
	assert.False(t, app.state.IsRunning())
	assert.NoFileExists(t, cfg.OutputFile)
}

func TestExtractCancelledDuringDelay(t *testing.T) {
	cfg := testConfig(t)
	app := newTestApp(t, cfg,
		WithLister(&fakeLister{videos: []VideoEntry{{ID: "a", Title: "T1"}, {ID: "b", Title: "T2"}}}),
		WithFetcher(&fakeFetcher{transcripts: map[string]string{"a": "x", "b": "y"}}))

	ctx, cancel := context.WithCancel(context.Background())
	app.extractor.sleep = func(ctx context.Context, d time.Duration) error {
		cancel()
		return ctx.Err()
	}

	result, err := app.extractor.Run(ctx, "https://www.youtube.com/@creator", 2)
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result)
	assert.NoFileExists(t, cfg.OutputFile)

	status := app.state.Status()
	assert.False(t, status.Running)
	assert.Equal(t, StatusError, status.Status)
	assert.Equal(t, "Error: context canceled", status.Message)
}

func TestExtractDelayBetweenVideosOnly(t *testing.T) {
	app := newTestApp(t, testConfig(t),
		WithLister(&fakeLister{videos: []VideoEntry{{ID: "a"}, {ID: "b"}, {ID: "c"}}}),
		WithFetcher(&fakeFetcher{}))

	sleeps := 0
	app.extractor.sleep = func(ctx context.Context, d time.Duration) error {
		sleeps++
		return nil
	}

	result, err := app.extractor.Run(context.Background(), "https://www.youtube.com/@creator", 3)
	require.NoError(t, err)
	assert.Equal(t, 0, result.VideosProcessed)
	assert.Equal(t, corpusHeader, result.Content)
	assert.Equal(t, 2, sleeps)
}

func TestExtractorDelayRange(t *testing.T) {
	e := NewExtractor(nil, nil, NewRunManager(), nil, nil, discardLogger(), ExtractorConfig{
		DelayMin: time.Second,
		DelayMax: 2 * time.Second,
	})
	for range 50 {
		d := e.delay()
		assert.GreaterOrEqual(t, d, time.Second)
		assert.LessOrEqual(t, d, 2*time.Second)
	}
}

func TestExtractorRecoversFromPanic(t *testing.T) {
	app := newTestApp(t, testConfig(t),
		WithLister(&fakeLister{videos: []VideoEntry{{ID: "a"}}}),
		WithFetcher(panicFetcher{}))

	_, err := app.extractor.Run(context.Background(), "https://www.youtube.com/@creator", 1)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "panicked")
	assert.False(t, app.state.IsRunning())
	assert.Equal(t, StatusError, app.state.Status().Status)
}

type panicFetcher struct{}

func (panicFetcher) FetchTranscript(ctx context.Context, videoID string) (string, error) {
	panic("boom")
}
