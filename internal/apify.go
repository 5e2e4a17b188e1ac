package internal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// TranscriptFetcher returns the plain transcript text of one video
type TranscriptFetcher interface {
	FetchTranscript(ctx context.Context, videoID string) (string, error)
}

// Apify run states that end polling
const (
	apifyStatusSucceeded = "SUCCEEDED"
	apifyStatusFailed    = "FAILED"
	apifyStatusAborted   = "ABORTED"
	apifyStatusTimedOut  = "TIMED-OUT"
)

// apifyWaitSeconds is the server-side long-poll window per request
const apifyWaitSeconds = 60

// ApifyClient runs the transcript actor through the Apify REST API
type ApifyClient struct {
	httpClient *http.Client
	baseURL    string
	token      string
	actorID    string
	timeout    time.Duration
	logger     *slog.Logger
}

// ApifyOption customizes an ApifyClient
type ApifyOption func(*ApifyClient)

// WithHTTPClient sets the HTTP client used for API calls
func WithHTTPClient(c *http.Client) ApifyOption {
	return func(a *ApifyClient) {
		a.httpClient = c
	}
}

// NewApifyClient creates a transcript fetcher for the given actor
func NewApifyClient(baseURL, token, actorID string, timeout time.Duration, logger *slog.Logger, opts ...ApifyOption) *ApifyClient {
	if logger == nil {
		logger = slog.Default()
	}
	a := &ApifyClient{
		// long polls hold the connection for up to apifyWaitSeconds
		httpClient: &http.Client{Timeout: (apifyWaitSeconds + 30) * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		actorID:    actorID,
		timeout:    timeout,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type apifyRun struct {
	ID               string `json:"id"`
	Status           string `json:"status"`
	StatusMessage    string `json:"statusMessage"`
	DefaultDatasetID string `json:"defaultDatasetId"`
}

type apifyRunEnvelope struct {
	Data apifyRun `json:"data"`
}

// transcriptSegment reads only the text; timing fields vary in type between actor versions
type transcriptSegment struct {
	Text string `json:"text"`
}

// transcriptItem is one dataset row. Data is kept raw: rows without a segment list are skipped.
type transcriptItem struct {
	Data json.RawMessage `json:"data"`
}

// segments decodes the row's segment list, or returns nil when data is not a list
func (it transcriptItem) segments() []transcriptSegment {
	var raw []json.RawMessage
	if err := json.Unmarshal(it.Data, &raw); err != nil {
		return nil
	}
	segs := make([]transcriptSegment, 0, len(raw))
	for _, r := range raw {
		var seg transcriptSegment
		if err := json.Unmarshal(r, &seg); err != nil {
			continue
		}
		segs = append(segs, seg)
	}
	return segs
}

// FetchTranscript runs the actor for one video and joins the returned segments
func (a *ApifyClient) FetchTranscript(ctx context.Context, videoID string) (string, error) {
	if a.token == "" {
		return "", errors.New("apify API key not configured - set APIFY_API_KEY environment variable")
	}
	if videoID == "" {
		return "", errors.New("video id is empty")
	}

	if a.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.timeout)
		defer cancel()
	}

	log := a.logger.With(slog.String("video_id", videoID))
	log.Debug("starting transcript actor", slog.String("actor", a.actorID))

	run, err := a.startRun(ctx, WatchURL(videoID))
	if err != nil {
		return "", err
	}

	for !isTerminalRunStatus(run.Status) {
		log.Debug("waiting for actor run", slog.String("run_id", run.ID), slog.String("status", run.Status))
		run, err = a.getRun(ctx, run.ID)
		if err != nil {
			return "", err
		}
	}

	if run.Status != apifyStatusSucceeded {
		return "", fmt.Errorf("actor run %s ended with status %s: %s", run.ID, run.Status, run.StatusMessage)
	}

	items, err := a.datasetItems(ctx, run.DefaultDatasetID)
	if err != nil {
		return "", err
	}

	text := joinSegments(items)
	if text == "" {
		log.Debug("actor returned no transcript text", slog.Int("items", len(items)))
		return "", ErrNoTranscript
	}

	log.Debug("transcript fetched", slog.Int("chars", len(text)))
	return text, nil
}

func (a *ApifyClient) startRun(ctx context.Context, videoURL string) (*apifyRun, error) {
	body, err := json.Marshal(map[string]string{"videoUrl": videoURL})
	if err != nil {
		return nil, fmt.Errorf("encoding actor input: %w", err)
	}

	endpoint := fmt.Sprintf("%s/acts/%s/runs?waitForFinish=%d", a.baseURL, url.PathEscape(a.actorID), apifyWaitSeconds)
	var env apifyRunEnvelope
	if err := a.do(ctx, http.MethodPost, endpoint, bytes.NewReader(body), &env); err != nil {
		return nil, fmt.Errorf("starting actor run: %w", err)
	}
	return &env.Data, nil
}

func (a *ApifyClient) getRun(ctx context.Context, runID string) (*apifyRun, error) {
	endpoint := fmt.Sprintf("%s/actor-runs/%s?waitForFinish=%d", a.baseURL, url.PathEscape(runID), apifyWaitSeconds)
	var env apifyRunEnvelope
	if err := a.do(ctx, http.MethodGet, endpoint, nil, &env); err != nil {
		return nil, fmt.Errorf("polling actor run: %w", err)
	}
	return &env.Data, nil
}

func (a *ApifyClient) datasetItems(ctx context.Context, datasetID string) ([]transcriptItem, error) {
	if datasetID == "" {
		return nil, errors.New("actor run has no dataset")
	}
	endpoint := fmt.Sprintf("%s/datasets/%s/items?clean=true&format=json", a.baseURL, url.PathEscape(datasetID))
	var rows []json.RawMessage
	if err := a.do(ctx, http.MethodGet, endpoint, nil, &rows); err != nil {
		return nil, fmt.Errorf("reading dataset items: %w", err)
	}

	items := make([]transcriptItem, 0, len(rows))
	for _, row := range rows {
		var item transcriptItem
		if err := json.Unmarshal(row, &item); err != nil {
			a.logger.Debug("skipping dataset row", slog.String("dataset_id", datasetID), slog.Any("error", err))
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func (a *ApifyClient) do(ctx context.Context, method, endpoint string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+a.token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("apify returned %s: %s", resp.Status, strings.TrimSpace(string(snippet)))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func isTerminalRunStatus(status string) bool {
	switch status {
	case apifyStatusSucceeded, apifyStatusFailed, apifyStatusAborted, apifyStatusTimedOut:
		return true
	}
	return false
}

// joinSegments concatenates every non-empty segment text across all rows
func joinSegments(items []transcriptItem) string {
	var parts []string
	for _, item := range items {
		for _, seg := range item.segments() {
			if seg.Text != "" {
				parts = append(parts, seg.Text)
			}
		}
	}
	return strings.Join(parts, " ")
}
