// Package server exposes the pipeline over HTTP: the host webhook
// receiver, a small run API, and health checking.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/relgate/relgate/internal/event"
	"github.com/relgate/relgate/internal/pipeline"
	"github.com/relgate/relgate/internal/storage"
)

// PipelineRunner evaluates one run for the given canonical parameters.
type PipelineRunner interface {
	Run(ctx context.Context, params pipeline.Parameters) *pipeline.Run
}

// Config carries the server's own settings plus the trigger-normalization
// defaults handlers need.
type Config struct {
	Port          int
	WebhookSecret string
	RunTimeout    time.Duration
	Defaults      event.Defaults
}

type Server struct {
	Router *chi.Mux
	cfg    Config
	runner PipelineRunner
	store  storage.RunStore
	logger *slog.Logger
}

func New(cfg Config, runner PipelineRunner, store storage.RunStore, logger *slog.Logger) *Server {
	if cfg.RunTimeout <= 0 {
		cfg.RunTimeout = 30 * time.Minute
	}

	s := &Server{
		cfg:    cfg,
		runner: runner,
		store:  store,
		logger: logger,
	}

	r := chi.NewRouter()

	// Apply middleware in order
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(TimeoutMiddleware(30 * time.Second))
	r.Use(middleware.Recoverer)

	// Wrap with OpenTelemetry HTTP instrumentation
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "relgate")
	})

	r.Get("/healthz", s.handleHealth)
	r.Post("/webhook/github", s.handleWebhook)
	r.Route("/api/runs", func(r chi.Router) {
		r.Post("/", s.handleDispatch)
		r.Get("/", s.handleListRuns)
		r.Get("/{runID}", s.handleGetRun)
	})

	s.Router = r
	return s
}

func (s *Server) Start() error {
	s.logger.Info("starting server", slog.Int("port", s.cfg.Port))
	return http.ListenAndServe(fmt.Sprintf(":%d", s.cfg.Port), s.Router)
}
