package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type serverFixture struct {
	app     *App
	srv     *httptest.Server
	lister  *fakeLister
	fetcher *fakeFetcher
	llm     *fakeLLM
}

func newServerFixture(t *testing.T, cfg *Config) *serverFixture {
	t.Helper()
	f := &serverFixture{
		lister:  &fakeLister{videos: []VideoEntry{{ID: "a", Title: "T1"}, {ID: "b", Title: "T2"}}},
		fetcher: &fakeFetcher{transcripts: map[string]string{"a": "hello"}},
		llm:     &fakeLLM{reply: "generated"},
	}
	f.app = newTestApp(t, cfg, WithLister(f.lister), WithFetcher(f.fetcher), WithLLMClient(f.llm))

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	f.srv = httptest.NewServer(f.app.NewServer(ctx).Handler())
	t.Cleanup(f.srv.Close)
	return f
}

func (f *serverFixture) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, f.srv.URL+path, reader)
	require.NoError(t, err)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func (f *serverFixture) waitForRun(t *testing.T) {
	t.Helper()
	run := f.app.state.Current()
	require.NotNil(t, run)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, _ = run.Wait(ctx)
	require.NoError(t, ctx.Err())
}

func decodeBody(t *testing.T, data []byte) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out), "body: %s", data)
	return out
}

func TestServerHealth(t *testing.T) {
	f := newServerFixture(t, testConfig(t))
	resp, body := f.do(t, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", decodeBody(t, body)["status"])
}

// lockedBuffer is shared between the server goroutine and the test
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestServerLogsRequestsThroughSlog(t *testing.T) {
	logs := &lockedBuffer{}
	app := newTestApp(t, testConfig(t), WithLogger(newLoggerTo(logs, false)))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	srv := httptest.NewServer(app.NewServer(ctx).Handler())
	defer srv.Close()

	resp, err := srv.Client().Get(srv.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Eventually(t, func() bool {
		return strings.Contains(logs.String(), `msg="request completed"`)
	}, time.Second, 10*time.Millisecond)
	out := logs.String()
	assert.Contains(t, out, "component=http")
	assert.Contains(t, out, "method=GET")
	assert.Contains(t, out, "path=/health")
	assert.Contains(t, out, "status=200")
	assert.Contains(t, out, "request_id=")
}

func TestServerStatusIdle(t *testing.T) {
	f := newServerFixture(t, testConfig(t))
	resp, body := f.do(t, http.MethodGet, "/api/status", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	status := decodeBody(t, body)
	assert.Equal(t, false, status["running"])
	assert.Equal(t, "idle", status["status"])
	assert.EqualValues(t, 0, status["progress"])
}

func TestServerExtractFlow(t *testing.T) {
	cfg := testConfig(t)
	f := newServerFixture(t, cfg)

	resp, body := f.do(t, http.MethodPost, "/api/extract", `{"channel_url":"https://www.youtube.com/@creator","limit":2}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	started := decodeBody(t, body)
	assert.Equal(t, "Extraction started", started["message"])
	assert.Equal(t, "started", started["status"])
	assert.NotEmpty(t, started["run_id"])

	f.waitForRun(t)

	_, body = f.do(t, http.MethodGet, "/api/status", "")
	status := decodeBody(t, body)
	assert.Equal(t, false, status["running"])
	assert.Equal(t, "complete", status["status"])
	assert.EqualValues(t, 100, status["progress"])
	assert.EqualValues(t, 1, status["videos_processed"])
	assert.Equal(t, cfg.OutputFile, status["output_file"])
	assert.Equal(t, started["run_id"], status["run_id"])

	resp, body = f.do(t, http.MethodGet, "/api/subtitles", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	subs := decodeBody(t, body)
	assert.Equal(t, corpusHeader+"### VIDEO: T1 ###\nURL: https://youtu.be/a\n\nhello\n\n", subs["content"])
	assert.EqualValues(t, 1, subs["videos_processed"])

	resp, body = f.do(t, http.MethodGet, "/api/download", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), `attachment; filename="viral_dna.txt"`)
	assert.Equal(t, subs["content"], string(body))

	resp, body = f.do(t, http.MethodGet, "/api/events?since=0", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var events []ProgressEvent
	require.NoError(t, json.Unmarshal(body, &events))
	require.NotEmpty(t, events)
	assert.Equal(t, StatusComplete, events[len(events)-1].Status)
}

func TestServerExtractDefaultsLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.DefaultLimit = 1
	f := newServerFixture(t, cfg)

	resp, _ := f.do(t, http.MethodPost, "/api/extract", `{"channel_url":"https://www.youtube.com/@creator"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	f.waitForRun(t)
	assert.Equal(t, 1, f.lister.gotLimit)
}

func TestServerExtractValidation(t *testing.T) {
	f := newServerFixture(t, testConfig(t))

	resp, body := f.do(t, http.MethodPost, "/api/extract", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Channel URL is required", decodeBody(t, body)["error"])

	resp, body = f.do(t, http.MethodPost, "/api/extract", `{"channel_url":`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Contains(t, decodeBody(t, body)["error"], "invalid JSON body")

	assert.Nil(t, f.app.state.Current())
}

func TestServerExtractAlreadyRunning(t *testing.T) {
	f := newServerFixture(t, testConfig(t))
	release := make(chan struct{})
	f.lister.release = release

	resp, _ := f.do(t, http.MethodPost, "/api/extract", `{"channel_url":"https://www.youtube.com/@creator"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := f.do(t, http.MethodPost, "/api/extract", `{"channel_url":"https://www.youtube.com/@other"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Extraction already running", decodeBody(t, body)["error"])

	close(release)
	f.waitForRun(t)
	assert.Equal(t, 1, f.lister.calls)
}

func TestServerNotFoundBeforeExtraction(t *testing.T) {
	f := newServerFixture(t, testConfig(t))

	resp, body := f.do(t, http.MethodGet, "/api/download", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "File not found", decodeBody(t, body)["error"])

	resp, body = f.do(t, http.MethodGet, "/api/subtitles", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "No subtitles available. Please extract videos first.", decodeBody(t, body)["error"])
}

func TestServerEventsSince(t *testing.T) {
	f := newServerFixture(t, testConfig(t))
	f.app.bus.Publish(ProgressEvent{Status: StatusStarting})
	f.app.bus.Publish(ProgressEvent{Status: StatusScanning})

	_, body := f.do(t, http.MethodGet, "/api/events?since=1", "")
	var events []ProgressEvent
	require.NoError(t, json.Unmarshal(body, &events))
	require.Len(t, events, 1)
	assert.EqualValues(t, 2, events[0].Seq)

	_, body = f.do(t, http.MethodGet, "/api/events?since=2", "")
	assert.JSONEq(t, `[]`, string(body))

	resp, _ := f.do(t, http.MethodGet, "/api/events?since=abc", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServerGenerateViralDNA(t *testing.T) {
	f := newServerFixture(t, testConfig(t))

	resp, body := f.do(t, http.MethodPost, "/api/generate-viral-dna", `{"subtitles":"some corpus"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	out := decodeBody(t, body)
	assert.Equal(t, "generated", out["viral_dna"])
	assert.Equal(t, true, out["success"])
	assert.Equal(t, "some corpus", f.llm.Calls()[0].User)
}

func TestServerGenerateViralDNAUsesStoredCorpus(t *testing.T) {
	f := newServerFixture(t, testConfig(t))

	resp, body := f.do(t, http.MethodPost, "/api/generate-viral-dna", `{}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "No subtitles provided", decodeBody(t, body)["error"])

	resp, body = f.do(t, http.MethodPost, "/api/generate-viral-dna", `{"subtitles":"   "}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "No subtitles provided", decodeBody(t, body)["error"])
	assert.Empty(t, f.llm.Calls())

	f.app.state.StoreCorpus(Corpus{Content: "stored", VideosProcessed: 1})
	resp, _ = f.do(t, http.MethodPost, "/api/generate-viral-dna", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp, body = f.do(t, http.MethodPost, "/api/generate-viral-dna", `{"subtitles":"   "}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	calls := f.llm.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, "stored", calls[0].User)
	assert.Equal(t, "stored", calls[1].User)
}

func TestServerGenerateScript(t *testing.T) {
	f := newServerFixture(t, testConfig(t))

	resp, body := f.do(t, http.MethodPost, "/api/generate-script", `{"viral_dna":"dna","topic":"coffee"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, string(body))
	out := decodeBody(t, body)
	assert.Equal(t, "generated", out["script"])
	assert.Equal(t, true, out["success"])

	resp, body = f.do(t, http.MethodPost, "/api/generate-script", `{"viral_dna":"dna"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Video topic is required", decodeBody(t, body)["error"])

	resp, body = f.do(t, http.MethodPost, "/api/generate-script", `{"topic":"coffee"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "Viral DNA is required", decodeBody(t, body)["error"])
}

func TestServerGenerationErrors(t *testing.T) {
	f := newServerFixture(t, testConfig(t))
	f.llm.err = errors.New("quota exceeded")

	resp, body := f.do(t, http.MethodPost, "/api/generate-script", `{"viral_dna":"dna","topic":"coffee"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Failed to generate script: quota exceeded", decodeBody(t, body)["error"])

	resp, body = f.do(t, http.MethodPost, "/api/generate-viral-dna", `{"subtitles":"corpus"}`)
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "Failed to generate Viral DNA: quota exceeded", decodeBody(t, body)["error"])
}

func TestServerMissingAPIKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.GeminiAPIKey = ""
	f := newServerFixture(t, cfg)

	for _, path := range []string{"/api/generate-viral-dna", "/api/generate-script"} {
		resp, body := f.do(t, http.MethodPost, path, `{}`)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode, path)
		assert.Equal(t, msgMissingAPIKey, decodeBody(t, body)["error"], path)
	}
	assert.Empty(t, f.llm.Calls())
}

func TestServerMetrics(t *testing.T) {
	f := newServerFixture(t, testConfig(t))
	f.app.metrics.RunsStarted.Add(3)

	resp, body := f.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), "runs_started 3\n")
	assert.Contains(t, string(body), "events_dropped 0\n")
}

func TestServerCORS(t *testing.T) {
	f := newServerFixture(t, testConfig(t))

	req, err := http.NewRequest(http.MethodOptions, f.srv.URL+"/api/extract", nil)
	require.NoError(t, err)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", "POST")
	resp, err := f.srv.Client().Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}
