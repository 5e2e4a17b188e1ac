package internal

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5/middleware"
)

// NewLogger returns a text logger on stderr, at debug level when verbose
func NewLogger(verbose bool) *slog.Logger {
	return newLoggerTo(os.Stderr, verbose)
}

func newLoggerTo(w io.Writer, verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// discardLogger drops everything; used where stdout/stderr must stay clean
func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// requestLogFormatter routes chi's request log through slog
type requestLogFormatter struct {
	logger *slog.Logger
}

func (f *requestLogFormatter) NewLogEntry(r *http.Request) middleware.LogEntry {
	return &requestLogEntry{
		logger: f.logger.With(
			slog.String("request_id", middleware.GetReqID(r.Context())),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.String("remote", r.RemoteAddr),
		),
	}
}

type requestLogEntry struct {
	logger *slog.Logger
}

func (e *requestLogEntry) Write(status, bytes int, _ http.Header, elapsed time.Duration, _ interface{}) {
	level := slog.LevelInfo
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	e.logger.Log(context.Background(), level, "request completed",
		slog.Int("status", status),
		slog.Int("bytes", bytes),
		slog.Duration("elapsed", elapsed),
	)
}

func (e *requestLogEntry) Panic(v interface{}, stack []byte) {
	e.logger.Error("request panicked", slog.Any("panic", v), slog.String("stack", string(stack)))
}
