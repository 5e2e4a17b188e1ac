package internal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// maxBodyBytes bounds request bodies; a full corpus can be posted back for analysis
const maxBodyBytes = 32 << 20

// Messages returned in {"error": ...} bodies
const (
	msgAlreadyRunning = "Extraction already running"
	msgFileNotFound   = "File not found"
	msgNoSubtitles    = "No subtitles available. Please extract videos first."
	msgMissingAPIKey  = "Gemini API key not configured. Set GEMINI_API_KEY environment variable."
)

// Server exposes extraction and generation over HTTP and WebSocket
type Server struct {
	app     *App
	baseCtx context.Context
	logger  *slog.Logger
	router  chi.Router
}

// NewServer builds the router. baseCtx bounds background runs started by requests.
func NewServer(baseCtx context.Context, app *App) *Server {
	s := &Server{
		app:     app,
		baseCtx: baseCtx,
		logger:  app.logger.With(slog.String("component", "http")),
	}
	s.router = s.routes()
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&requestLogFormatter{logger: s.logger}))
	r.Use(middleware.Recoverer)

	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			req.Body = http.MaxBytesReader(w, req.Body, maxBodyBytes)
			next.ServeHTTP(w, req)
		})
	})

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.app.config.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/metrics", s.handleMetrics)
	r.Get("/ws", s.handleWebSocket)

	r.Route("/api", func(r chi.Router) {
		r.Post("/extract", s.handleExtract)
		r.Get("/status", s.handleStatus)
		r.Get("/download", s.handleDownload)
		r.Get("/subtitles", s.handleSubtitles)
		r.Get("/events", s.handleEvents)
		r.Post("/generate-viral-dna", s.handleGenerateViralDNA)
		r.Post("/generate-script", s.handleGenerateScript)
	})

	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(_ net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("listening", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serving http: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutting down http server: %w", err)
	}
	s.logger.Info("server shut down")
	return nil
}

type extractRequest struct {
	ChannelURL string `json:"channel_url"`
	Limit      *int   `json:"limit"`
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	if s.app.state.IsRunning() {
		s.app.metrics.RunsRejected.Add(1)
		writeError(w, http.StatusBadRequest, msgAlreadyRunning)
		return
	}

	var req extractRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	limit := 0
	if req.Limit != nil {
		limit = *req.Limit
	}

	run, err := s.app.extractor.Start(s.baseCtx, req.ChannelURL, limit)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Extraction started",
		"status":  "started",
		"run_id":  run.ID(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.app.state.Status())
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	path := s.app.extractor.OutputFile()
	if !FileExists(path) {
		writeError(w, http.StatusNotFound, msgFileNotFound)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filepath.Base(path)))
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	http.ServeFile(w, r, path)
}

func (s *Server) handleSubtitles(w http.ResponseWriter, r *http.Request) {
	corpus := s.app.state.Corpus()
	if corpus.Content == "" {
		writeError(w, http.StatusNotFound, msgNoSubtitles)
		return
	}
	writeJSON(w, http.StatusOK, corpus)
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	since, err := parseSince(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	events := s.app.bus.Since(since)
	if events == nil {
		events = []ProgressEvent{}
	}
	writeJSON(w, http.StatusOK, events)
}

type viralDNARequest struct {
	Subtitles *string `json:"subtitles"`
}

func (s *Server) handleGenerateViralDNA(w http.ResponseWriter, r *http.Request) {
	if !s.app.generator.Configured() {
		writeError(w, http.StatusInternalServerError, msgMissingAPIKey)
		return
	}

	var req viralDNARequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	dna, err := s.app.AnalyzeStyle(r.Context(), req.Subtitles)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"viral_dna": dna, "success": true})
}

type scriptRequest struct {
	ViralDNA string `json:"viral_dna"`
	Topic    string `json:"topic"`
}

func (s *Server) handleGenerateScript(w http.ResponseWriter, r *http.Request) {
	if !s.app.generator.Configured() {
		writeError(w, http.StatusInternalServerError, msgMissingAPIKey)
		return
	}

	var req scriptRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	script, err := s.app.generator.GenerateScript(r.Context(), req.ViralDNA, req.Topic)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"script": script, "success": true})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, s.app.metrics.FormatMetrics(s.app.bus))
}

// writeDomainError maps service errors onto status codes and messages
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	var (
		verr *ValidationError
		gerr *GenerationError
	)
	switch {
	case errors.Is(err, ErrRunInProgress):
		writeError(w, http.StatusBadRequest, msgAlreadyRunning)
	case errors.Is(err, ErrMissingAPIKey):
		writeError(w, http.StatusInternalServerError, msgMissingAPIKey)
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Message)
	case errors.As(err, &gerr):
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to generate %s: %v", gerr.Op, gerr.Err))
	default:
		s.logger.Error("request failed", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// decodeJSON reads an optional JSON body; an empty body leaves v untouched
func decodeJSON(r *http.Request, v any) error {
	if r.Body == nil {
		return nil
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func parseSince(r *http.Request) (int64, error) {
	raw := r.URL.Query().Get("since")
	if raw == "" {
		return 0, nil
	}
	since, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || since < 0 {
		return 0, fmt.Errorf("invalid since parameter: %q", raw)
	}
	return since, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
