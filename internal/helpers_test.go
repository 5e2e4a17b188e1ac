package internal

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

// fakeLister returns a fixed listing, optionally blocking until release is closed
type fakeLister struct {
	mu       sync.Mutex
	videos   []VideoEntry
	err      error
	release  chan struct{}
	calls    int
	gotURL   string
	gotLimit int
}

func (f *fakeLister) ListPopular(ctx context.Context, channelURL string, limit int) ([]VideoEntry, error) {
	f.mu.Lock()
	f.calls++
	f.gotURL = channelURL
	f.gotLimit = limit
	release := f.release
	f.mu.Unlock()

	if release != nil {
		select {
		case <-release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.videos, f.err
}

// fakeFetcher serves transcripts from a map; missing ids have no transcript
type fakeFetcher struct {
	mu          sync.Mutex
	transcripts map[string]string
	errs        map[string]error
	calls       []string
}

func (f *fakeFetcher) FetchTranscript(ctx context.Context, videoID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, videoID)

	if err := f.errs[videoID]; err != nil {
		return "", err
	}
	text, ok := f.transcripts[videoID]
	if !ok || text == "" {
		return "", ErrNoTranscript
	}
	return text, nil
}

func (f *fakeFetcher) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

type llmCall struct {
	System string
	User   string
}

// fakeLLM records every call and answers with reply or err
type fakeLLM struct {
	mu    sync.Mutex
	calls []llmCall
	reply string
	err   error
}

func (f *fakeLLM) Generate(ctx context.Context, systemInstruction, userMessage string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, llmCall{System: systemInstruction, User: userMessage})
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeLLM) Calls() []llmCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]llmCall(nil), f.calls...)
}

func testConfig(t *testing.T) *Config {
	t.Helper()
	dir := t.TempDir()
	return &Config{
		Port:              0,
		AllowedOrigins:    []string{"*"},
		EventLogSize:      100,
		OutputFile:        filepath.Join(dir, "out", "viral_dna.txt"),
		DefaultLimit:      20,
		LLMProvider:       ProviderGemini,
		GeminiAPIKey:      "test-key",
		GeminiModel:       "gemini-2.5-flash",
		Temperature:       1.0,
		MaxOutputTokens:   8192,
		GenerationTimeout: time.Minute,
		Quiet:             true,
		ConfigDir:         filepath.Join(dir, "config"),
		CacheDir:          filepath.Join(dir, "cache"),
	}
}

func newTestApp(t *testing.T, cfg *Config, opts ...AppOption) *App {
	t.Helper()
	base := []AppOption{
		WithLogger(discardLogger()),
		WithUI(NewUIManager(false, true)),
		WithDelay(0, 0),
	}
	return NewApp(cfg, append(base, opts...)...)
}

func ptr[T any](v T) *T { return &v }
