package internal

import (
	"fmt"
	"time"
)

// RunStatus is the phase tag carried by progress events and the status snapshot
type RunStatus string

const (
	StatusIdle       RunStatus = "idle"
	StatusStarting   RunStatus = "starting"
	StatusScanning   RunStatus = "scanning"
	StatusExtracting RunStatus = "extracting"
	StatusSuccess    RunStatus = "success"
	StatusWarning    RunStatus = "warning"
	StatusComplete   RunStatus = "complete"
	StatusError      RunStatus = "error"
)

// IsTerminal reports whether a run has nothing left to do after this status
func (s RunStatus) IsTerminal() bool {
	return s == StatusComplete || s == StatusError
}

// VideoEntry is one video produced by the channel lister
type VideoEntry struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	URL       string  `json:"url,omitempty"`
	ViewCount int64   `json:"view_count,omitempty"`
	Duration  float64 `json:"duration,omitempty"`
}

// WatchURL is the canonical URL submitted to the transcript actor
func (v VideoEntry) WatchURL() string {
	return WatchURL(v.ID)
}

// ShortURL is the URL written into the corpus
func (v VideoEntry) ShortURL() string {
	return "https://youtu.be/" + v.ID
}

// ProgressEvent is a status update emitted by the extractor and pushed to listeners
type ProgressEvent struct {
	Seq             int64     `json:"seq"`
	RunID           string    `json:"run_id,omitempty"`
	Timestamp       time.Time `json:"timestamp"`
	Status          RunStatus `json:"status"`
	Message         string    `json:"message"`
	Progress        int       `json:"progress"`
	Current         *int      `json:"current,omitempty"`
	Total           *int      `json:"total,omitempty"`
	OutputFile      string    `json:"output_file,omitempty"`
	VideosProcessed *int      `json:"videos_processed,omitempty"`
}

// StatusSnapshot is the current state of the extraction, as served by /api/status
type StatusSnapshot struct {
	Running         bool      `json:"running"`
	Progress        int       `json:"progress"`
	Message         string    `json:"message"`
	Status          RunStatus `json:"status"`
	RunID           string    `json:"run_id,omitempty"`
	Current         *int      `json:"current,omitempty"`
	Total           *int      `json:"total,omitempty"`
	OutputFile      string    `json:"output_file,omitempty"`
	VideosProcessed *int      `json:"videos_processed,omitempty"`
}

// apply merges an event into the snapshot the way a dict update would:
// optional fields absent from the event keep their previous value.
func (s *StatusSnapshot) apply(ev ProgressEvent) {
	s.Status = ev.Status
	s.Message = ev.Message
	s.Progress = ev.Progress
	if ev.RunID != "" {
		s.RunID = ev.RunID
	}
	if ev.Current != nil {
		s.Current = intPtr(*ev.Current)
	}
	if ev.Total != nil {
		s.Total = intPtr(*ev.Total)
	}
	if ev.OutputFile != "" {
		s.OutputFile = ev.OutputFile
	}
	if ev.VideosProcessed != nil {
		s.VideosProcessed = intPtr(*ev.VideosProcessed)
	}
}

// Corpus is the concatenated transcript text of the last completed run
type Corpus struct {
	Content         string `json:"content"`
	VideosProcessed int    `json:"videos_processed"`
}

// ExtractionResult is returned by a completed run
type ExtractionResult struct {
	Success         bool   `json:"success"`
	OutputFile      string `json:"output_file"`
	VideosProcessed int    `json:"videos_processed"`
	Content         string `json:"content"`
}

// RefKind classifies what a channel argument looks like
type RefKind int

const (
	RefUnknown RefKind = iota
	RefURL
	RefHandle
	RefChannelID
)

// String returns a human-readable representation of the reference kind
func (k RefKind) String() string {
	switch k {
	case RefURL:
		return "url"
	case RefHandle:
		return "handle"
	case RefChannelID:
		return "channel_id"
	default:
		return "unknown"
	}
}

// ChannelRef is the result of parsing a channel argument
type ChannelRef struct {
	Kind          RefKind
	OriginalInput string
	URL           string
}

// String returns a formatted representation of the parsed reference
func (c ChannelRef) String() string {
	return fmt.Sprintf("ChannelRef{kind=%s, url=%s}", c.Kind, c.URL)
}

func intPtr(v int) *int { return &v }
