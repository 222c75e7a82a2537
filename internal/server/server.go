// Package server exposes the suggestion service over HTTP.
package server

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/FranksOps/finch/internal/probe"
	"github.com/FranksOps/finch/internal/storage"
	"github.com/FranksOps/finch/internal/suggest"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const (
	// ServiceName identifies the service in metadata and health payloads.
	ServiceName = "finch"
	// ServiceVersion is reported by / and /health.
	ServiceVersion = "1.0.0"
)

// Options wires the server's collaborators. Probe and Audit are optional.
type Options struct {
	Service   *suggest.Service
	Probe     *probe.Client
	Audit     storage.Backend
	TargetURL string
	Logger    *slog.Logger
}

// Server is the HTTP front for the suggestion service.
type Server struct {
	svc       *suggest.Service
	probe     *probe.Client
	audit     storage.Backend
	targetURL string
	logger    *slog.Logger
	router    *chi.Mux
}

// New creates a Server and sets up its routes.
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	s := &Server{
		svc:       opts.Service,
		probe:     opts.Probe,
		audit:     opts.Audit,
		targetURL: opts.TargetURL,
		logger:    opts.Logger,
	}
	s.setupRouter()
	return s
}

func (s *Server) setupRouter() {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	r.Get("/", s.handleRoot)
	r.Get("/health", s.handleHealth)
	r.Get("/ready", s.handleReady)
	r.Get("/stats", s.handleStats)
	r.Post("/suggestions", s.handleSuggestions)

	s.router = r
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// requestLogger logs one line per request with status and duration.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
