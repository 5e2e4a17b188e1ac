package internal

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/lrstanley/go-ytdlp"
)

// ChannelLister lists a channel's videos ordered by popularity
type ChannelLister interface {
	ListPopular(ctx context.Context, channelURL string, limit int) ([]VideoEntry, error)
}

// flatPlaylist is the subset of yt-dlp's --flat-playlist JSON we read
type flatPlaylist struct {
	ID      string      `json:"id"`
	Title   string      `json:"title"`
	Channel string      `json:"channel"`
	Entries []flatEntry `json:"entries"`
}

type flatEntry struct {
	ID        string  `json:"id"`
	Title     string  `json:"title"`
	URL       string  `json:"url"`
	ViewCount int64   `json:"view_count"`
	Duration  float64 `json:"duration"`
}

// YouTube lists channel videos through yt-dlp
type YouTube struct {
	logger *slog.Logger

	installOnce sync.Once
	installErr  error
}

// NewYouTube creates a new channel lister backed by yt-dlp
func NewYouTube(logger *slog.Logger) *YouTube {
	if logger == nil {
		logger = slog.Default()
	}
	return &YouTube{logger: logger}
}

// ensureInstalled makes sure a yt-dlp binary is available, once per process
func (yt *YouTube) ensureInstalled(ctx context.Context) error {
	yt.installOnce.Do(func() {
		if _, err := ytdlp.Install(ctx, nil); err != nil {
			yt.installErr = fmt.Errorf("installing yt-dlp: %w", err)
		}
	})
	return yt.installErr
}

// ListPopular returns up to limit entries from the channel's popular videos tab
func (yt *YouTube) ListPopular(ctx context.Context, channelURL string, limit int) ([]VideoEntry, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("limit must be positive, got %d", limit)
	}

	if err := yt.ensureInstalled(ctx); err != nil {
		return nil, err
	}

	yt.logger.Debug("listing channel videos", slog.String("url", channelURL), slog.Int("limit", limit))

	dl := ytdlp.New().
		FlatPlaylist().                             // Entries only, no per-video extraction
		DumpSingleJSON().                           // Whole playlist as one JSON document
		PlaylistItems("1:" + strconv.Itoa(limit)). // First N of the sorted tab
		SkipDownload().
		Quiet().
		NoWarnings()

	result, err := dl.Run(ctx, channelURL)
	if err != nil {
		if result != nil {
			yt.logger.Debug("yt-dlp failed", slog.String("stderr", result.Stderr))
		}
		return nil, fmt.Errorf("listing channel videos: %w", err)
	}

	entries, err := parseFlatPlaylist([]byte(result.Stdout), limit)
	if err != nil {
		return nil, err
	}

	yt.logger.Debug("channel listing completed", slog.Int("videos", len(entries)))
	return entries, nil
}

// parseFlatPlaylist decodes yt-dlp output, skipping entries without an id
func parseFlatPlaylist(data []byte, limit int) ([]VideoEntry, error) {
	var playlist flatPlaylist
	if err := json.Unmarshal(data, &playlist); err != nil {
		return nil, fmt.Errorf("parsing channel listing: %w", err)
	}

	videos := make([]VideoEntry, 0, len(playlist.Entries))
	for _, e := range playlist.Entries {
		if e.ID == "" {
			continue
		}
		videos = append(videos, VideoEntry{
			ID:        e.ID,
			Title:     e.Title,
			URL:       e.URL,
			ViewCount: e.ViewCount,
			Duration:  e.Duration,
		})
		if limit > 0 && len(videos) == limit {
			break
		}
	}

	if len(videos) == 0 {
		return nil, ErrNoVideos
	}

	return videos, nil
}
