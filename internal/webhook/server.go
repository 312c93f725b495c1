package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/mattjoyce/gitevents/internal/dispatch"
	"github.com/mattjoyce/gitevents/internal/eventstore"
	"github.com/mattjoyce/gitevents/internal/feed"
	"github.com/mattjoyce/gitevents/internal/interaction"
	"github.com/mattjoyce/gitevents/internal/log"
	"github.com/mattjoyce/gitevents/internal/metrics"
	"github.com/mattjoyce/gitevents/internal/response"
)

// Server represents the interactions HTTP server.
type Server struct {
	config     Config
	verifier   RequestVerifier
	dispatcher Dispatcher
	events     EventReader
	metrics    *metrics.Recorder
	feed       *feed.Feed
	logger     *slog.Logger
	server     *http.Server
}

// Option configures optional Server collaborators.
type Option func(*Server)

// WithEvents serves stored events under Config.EventsPath.
func WithEvents(r EventReader) Option {
	return func(s *Server) { s.events = r }
}

// WithMetrics records pipeline results and serves them under
// Config.MetricsPath.
func WithMetrics(m *metrics.Recorder) Option {
	return func(s *Server) { s.metrics = m }
}

// WithFeed publishes handled interactions and serves them under
// Config.FeedPath.
func WithFeed(f *feed.Feed) Option {
	return func(s *Server) { s.feed = f }
}

// New creates a new webhook server instance.
func New(config Config, verifier RequestVerifier, dispatcher Dispatcher, logger *slog.Logger, opts ...Option) *Server {
	if config.MaxBodySize <= 0 {
		config.MaxBodySize = DefaultMaxBodySize
	}
	if config.Path == "" {
		config.Path = DefaultPath
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		config:     config,
		verifier:   verifier,
		dispatcher: dispatcher,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

// Start starts the webhook HTTP server (blocking).
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      s.setupRoutes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("webhook server starting", "listen", s.config.Listen, "path", s.config.Path)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("webhook server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("webhook server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("webhook server error: %w", err)
	}
}

// setupRoutes configures the HTTP router.
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	r.Post(s.config.Path, s.handleInteraction)
	r.Get("/healthz", s.handleHealth)

	if s.events != nil && s.config.EventsPath != "" {
		r.Get(s.config.EventsPath+"/{id}", s.handleGetEvent)
	}
	if s.metrics != nil && s.config.MetricsPath != "" {
		r.Handle(s.config.MetricsPath, s.metrics.Handler())
	}
	if s.feed != nil && s.config.FeedPath != "" {
		r.Get(s.config.FeedPath, s.feed.Handler().ServeHTTP)
	}

	return r
}

// loggingMiddleware logs HTTP requests (excludes payloads).
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info("webhook request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
			"remote_addr", r.RemoteAddr,
		)
	})
}

// handleInteraction runs verify, decode, dispatch and render for one request.
func (s *Server) handleInteraction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	reqID := middleware.GetReqID(ctx)
	logger := log.WithRequest(s.logger, reqID)

	body, err := io.ReadAll(io.LimitReader(r.Body, s.config.MaxBodySize+1))
	if err != nil {
		s.reject(w, logger, fmt.Errorf("read body: %w", err), "failed to read request body")
		return
	}
	if int64(len(body)) > s.config.MaxBodySize {
		logger.Warn("interaction body too large", "limit", s.config.MaxBodySize)
		s.metrics.Rejected("payload_too_large")
		response.Write(w, response.PayloadTooLarge())
		return
	}

	if err := s.verifier.Verify(r.Header, body); err != nil {
		s.reject(w, logger, err, "interaction verification failed")
		return
	}

	in, err := interaction.Decode(body)
	if err != nil {
		s.reject(w, logger, err, "interaction decode failed")
		return
	}

	start := time.Now()
	outcome := s.dispatcher.Dispatch(ctx, in)
	s.metrics.Interaction(in.Type().String(), outcome.Name(), time.Since(start).Seconds())

	logger.Debug("interaction handled",
		"type", in.Type().String(),
		"outcome", outcome.Name(),
	)
	s.publish(reqID, in, outcome)
	response.Write(w, response.Render(outcome))
}

// publish records the handled interaction on the activity feed.
func (s *Server) publish(reqID string, in interaction.Interaction, outcome dispatch.Outcome) {
	if s.feed == nil {
		return
	}
	s.feed.Publish(feed.KindInteraction, map[string]string{
		"request_id": reqID,
		"type":       in.Type().String(),
		"outcome":    outcome.Name(),
	})
	if succeeded, ok := outcome.(dispatch.ActionSucceeded); ok {
		s.feed.Publish(feed.KindEventCreated, map[string]string{"reference": succeeded.Reference})
	}
}

// reject logs err without the body and writes its fixed error response.
func (s *Server) reject(w http.ResponseWriter, logger *slog.Logger, err error, msg string) {
	kind := interaction.KindOf(err)
	logger.Warn(msg,
		"kind", kind.String(),
		"reason", string(interaction.ReasonOf(err)),
		"error", err,
	)
	s.metrics.Rejected(kind.String())
	response.Write(w, response.RenderError(err))
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.respondJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	ev, err := s.events.Get(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, eventstore.ErrNotFound) {
		s.respondJSON(w, http.StatusNotFound, response.ErrorBody{Message: "event not found"})
		return
	}
	if err != nil {
		s.logger.Error("failed to read event", "error", err)
		s.respondJSON(w, http.StatusInternalServerError, response.ErrorBody{Message: "internal server error"})
		return
	}
	s.respondJSON(w, http.StatusOK, ev)
}

// respondJSON sends a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", response.ContentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}
