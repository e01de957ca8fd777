package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mattjoyce/hookrelay/internal/connection"
	"github.com/mattjoyce/hookrelay/internal/events"
)

// Publisher emits an event into the provisioned source.
type Publisher interface {
	Publish(ctx context.Context, payload json.RawMessage) error
}

// Lister returns the provisioned connection's events with full detail.
type Lister interface {
	List(ctx context.Context, q events.Query) (*events.Page, error)
}

// WebhookMounter registers the inbound webhook route on a router.
type WebhookMounter interface {
	Mount(r chi.Router)
}

// Config holds API server configuration
type Config struct {
	Listen string
	// APIKey guards /publish and /events. Empty leaves them open.
	APIKey string
	// AllPages is the default for GET /events when the query omits all_pages.
	AllPages bool
}

// Server represents the local HTTP server: operational endpoints plus the
// catch-all webhook intake.
type Server struct {
	config    Config
	webhook   WebhookMounter
	publisher Publisher
	lister    Lister
	conn      *connection.Context
	logger    *slog.Logger
	server    *http.Server
	startedAt time.Time
	now       func() time.Time
}

// New creates a new API server instance. conn is nil when provisioning was
// skipped; publisher and lister then report not-provisioned on their own.
func New(config Config, webhook WebhookMounter, publisher Publisher, lister Lister, conn *connection.Context, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		config:    config,
		webhook:   webhook,
		publisher: publisher,
		lister:    lister,
		conn:      conn,
		logger:    logger,
		startedAt: time.Now(),
		now:       time.Now,
	}
}

// Handler returns the fully routed HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.setupRoutes()
}

// Start starts the HTTP server (blocking)
func (s *Server) Start(ctx context.Context) error {
	s.server = &http.Server{
		Addr:         s.config.Listen,
		Handler:      s.setupRoutes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 2 * time.Minute, // event listing may fan out to many detail calls
		IdleTimeout:  60 * time.Second,
	}

	s.logger.Info("API server starting", "listen", s.config.Listen)

	errCh := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("API server shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return ctx.Err()
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	}
}

// setupRoutes configures the HTTP router
func (s *Server) setupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	// Unauthenticated ops endpoints.
	r.Get("/", s.handleRoot)
	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(s.authMiddleware)
		r.Get("/publish", s.handlePublish)
		r.Get("/events", s.handleEvents)
	})

	// Inbound webhooks on every other POST path.
	if s.webhook != nil {
		s.webhook.Mount(r)
	}

	return r
}

// loggingMiddleware logs HTTP requests
func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}
