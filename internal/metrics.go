package internal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"
)

// Metrics tracks operational counters for the process.
type Metrics struct {
	RunsStarted        atomic.Int64
	RunsRejected       atomic.Int64
	RunsCompleted      atomic.Int64
	RunsFailed         atomic.Int64
	VideosListed       atomic.Int64
	TranscriptRequests atomic.Int64
	TranscriptErrors   atomic.Int64
	LLMCalls           atomic.Int64
	LLMErrors          atomic.Int64
	WSConnections      atomic.Int64
}

var metricKeys = []string{
	"runs_started", "runs_rejected", "runs_completed", "runs_failed",
	"videos_listed", "transcript_requests", "transcript_errors",
	"llm_calls", "llm_errors",
	"ws_connections", "ws_subscribers", "events_published", "events_dropped",
}

// Snapshot returns every counter, including event bus figures when bus is set.
func (m *Metrics) Snapshot(bus *EventBus) map[string]int64 {
	out := map[string]int64{
		"runs_started":        m.RunsStarted.Load(),
		"runs_rejected":       m.RunsRejected.Load(),
		"runs_completed":      m.RunsCompleted.Load(),
		"runs_failed":         m.RunsFailed.Load(),
		"videos_listed":       m.VideosListed.Load(),
		"transcript_requests": m.TranscriptRequests.Load(),
		"transcript_errors":   m.TranscriptErrors.Load(),
		"llm_calls":           m.LLMCalls.Load(),
		"llm_errors":          m.LLMErrors.Load(),
		"ws_connections":      m.WSConnections.Load(),
	}
	if bus != nil {
		out["ws_subscribers"] = int64(bus.Subscribers())
		out["events_published"] = bus.LastSeq()
		out["events_dropped"] = bus.Dropped()
	}
	return out
}

// FormatMetrics returns metrics as a simple text format for HTTP endpoint.
func (m *Metrics) FormatMetrics(bus *EventBus) string {
	snap := m.Snapshot(bus)
	var sb strings.Builder
	for _, k := range metricKeys {
		fmt.Fprintf(&sb, "%s %d\n", k, snap[k])
	}
	return sb.String()
}

// TrackOperation logs a warning if an operation takes longer than threshold.
func TrackOperation(ctx context.Context, logger *slog.Logger, name string, threshold time.Duration, fn func(context.Context) error) error {
	start := time.Now()
	err := fn(ctx)
	elapsed := time.Since(start)
	if elapsed > threshold {
		logger.Warn("slow operation", slog.String("op", name), slog.Duration("elapsed", elapsed))
	}
	return err
}
