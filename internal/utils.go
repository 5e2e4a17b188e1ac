package internal

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"golang.org/x/term"
)

var (
	youTubeIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{11}$`)
	channelIDPattern = regexp.MustCompile(`^UC[A-Za-z0-9_-]{22}$`)
	handlePattern    = regexp.MustCompile(`^@[A-Za-z0-9._-]{3,30}$`)
)

// ParseChannelRef turns a channel argument (URL, @handle or UC… id) into a channel URL
func ParseChannelRef(arg string) (ChannelRef, error) {
	arg = strings.TrimSpace(arg)
	ref := ChannelRef{OriginalInput: arg}

	switch {
	case arg == "":
		return ref, &ValidationError{Field: "channel_url", Message: "Channel URL is required"}
	case strings.HasPrefix(arg, "https://") || strings.HasPrefix(arg, "http://"):
		ref.Kind = RefURL
		ref.URL = arg
	case strings.HasPrefix(arg, "youtube.com/") || strings.HasPrefix(arg, "www.youtube.com/"):
		ref.Kind = RefURL
		ref.URL = "https://" + arg
	case handlePattern.MatchString(arg):
		ref.Kind = RefHandle
		ref.URL = "https://www.youtube.com/" + arg
	case channelIDPattern.MatchString(arg):
		ref.Kind = RefChannelID
		ref.URL = "https://www.youtube.com/channel/" + arg
	default:
		return ref, fmt.Errorf("unrecognized channel reference: %s", arg)
	}

	return ref, nil
}

// NormalizeChannelURL points a channel URL at its videos tab sorted by popularity.
// Applying it twice yields the same URL.
func NormalizeChannelURL(channelURL string) string {
	channelURL = strings.TrimSpace(channelURL)

	u, err := url.Parse(channelURL)
	if err != nil || u.Host == "" {
		return normalizeChannelString(channelURL)
	}

	if !strings.Contains(u.Path, "/videos") {
		u.Path = strings.TrimRight(u.Path, "/") + "/videos"
	}

	if !strings.Contains(u.RawQuery, "sort=p") {
		if u.RawQuery == "" {
			u.RawQuery = "view=0&sort=p"
		} else {
			q := u.Query()
			q.Set("view", "0")
			q.Set("sort", "p")
			u.RawQuery = q.Encode()
		}
	}

	return u.String()
}

// normalizeChannelString is the plain string fallback for inputs url.Parse rejects
func normalizeChannelString(s string) string {
	if !strings.Contains(s, "/videos") {
		s = strings.TrimRight(s, "/") + "/videos"
	}
	if !strings.Contains(s, "sort=p") {
		s += "?view=0&sort=p"
	}
	return s
}

// WatchURL builds the canonical watch URL for a video id
func WatchURL(videoID string) string {
	return "https://www.youtube.com/watch?v=" + videoID
}

// ExtractVideoID accepts a bare id or a YouTube URL and returns the video id
func ExtractVideoID(arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if IsValidYouTubeID(arg) {
		return arg, nil
	}

	u, err := url.Parse(arg)
	if err != nil {
		return "", fmt.Errorf("parsing URL: %w", err)
	}

	switch u.Host {
	case "www.youtube.com", "youtube.com", "m.youtube.com":
		if v := u.Query().Get("v"); v != "" {
			return v, nil
		}
		if rest, ok := strings.CutPrefix(u.Path, "/shorts/"); ok && rest != "" {
			return strings.Trim(rest, "/"), nil
		}
	case "youtu.be":
		if id := strings.Trim(u.Path, "/"); id != "" {
			return id, nil
		}
	default:
		return "", fmt.Errorf("not a YouTube URL: %s", arg)
	}

	return "", fmt.Errorf("could not extract video ID from URL: %s", arg)
}

// IsValidYouTubeID checks if a string looks like a valid YouTube video ID
func IsValidYouTubeID(id string) bool {
	return youTubeIDPattern.MatchString(id)
}

// getTerminalWidth gets terminal width with fallback
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil {
		return 80
	}

	if width > 10 {
		return width - 4
	}

	return width
}

// RenderMarkdown renders markdown content with glamour
func RenderMarkdown(content string) (string, error) {
	width := getTerminalWidth()
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
		glamour.WithColorProfile(termenv.EnvColorProfile()),
	)
	if err != nil {
		return "", fmt.Errorf("creating terminal renderer: %w", err)
	}

	renderedContent, err := r.Render(content)
	if err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}

	return renderedContent, nil
}

// FileExists checks if a file exists
func FileExists(filename string) bool {
	_, err := os.Stat(filename)
	return !os.IsNotExist(err)
}

// EnsureDirs creates directories if needed
func EnsureDirs(dir ...string) error {
	for _, dir := range dir {
		if dir == "" || dir == "." {
			continue
		}
		if !FileExists(dir) {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return err
			}
		}
	}
	return nil
}

// WriteOutputFile writes content to path, creating parent directories and overwriting any previous file
func WriteOutputFile(path, content string) error {
	if err := EnsureDirs(filepath.Dir(path)); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		return fmt.Errorf("writing output file: %w", err)
	}
	return nil
}

// truncate shortens s to at most n runes
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
