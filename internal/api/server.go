// Package api provides the HTTP API server and handlers for Bottleservice.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/bottleservice/bottleservice-server/internal/backend"
	"github.com/bottleservice/bottleservice-server/internal/session"
	"github.com/bottleservice/bottleservice-server/internal/sse"
	"github.com/bottleservice/bottleservice-server/internal/validation"
)

// Options configures a Server.
type Options struct {
	AllowedOrigins []string
	Version        string
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	services   *Services
	sessions   *session.Store
	backend    backend.Backend
	sseManager *sse.Manager
	sseHandler *sse.Handler
	validator  *validation.Validator
	router     *chi.Mux
	api        huma.API
	logger     *slog.Logger

	authRateLimiter *RateLimiter
	chatRateLimiter *RateLimiter
	scanRateLimiter *RateLimiter
}

// NewServer creates a new HTTP server with all routes configured.
func NewServer(services *Services, sessions *session.Store, b backend.Backend, sseManager *sse.Manager, logger *slog.Logger, opts Options) *Server {
	if opts.Version == "" {
		opts.Version = "1.0.0"
	}

	router := chi.NewRouter()

	s := &Server{
		services:   services,
		sessions:   sessions,
		backend:    b,
		sseManager: sseManager,
		validator:  validation.New(),
		router:     router,
		logger:     logger,

		// 20 sign-in attempts per minute per IP.
		authRateLimiter: NewRateLimiter(20, time.Minute, 10),
		// A chat turn already blocks further questions; this caps reconnect loops.
		chatRateLimiter: NewRateLimiter(30, time.Minute, 5),
		// Scans call the vision model.
		scanRateLimiter: NewRateLimiter(10, time.Minute, 3),
	}
	s.sseHandler = sse.NewHandler(sseManager, userFromRequest, logger)

	s.setupMiddleware(opts.AllowedOrigins)

	humaConfig := huma.DefaultConfig("Bottleservice API", opts.Version)
	humaConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "PASETO",
		},
	}
	humaConfig.Transformers = append(humaConfig.Transformers, EnvelopeTransformer)
	s.api = humachi.New(router, humaConfig)
	RegisterErrorHandler()

	s.setupRoutes()

	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// API returns the huma API, for tests and OpenAPI export.
func (s *Server) API() huma.API {
	return s.api
}

// Close stops the rate limiter cleanup goroutines.
func (s *Server) Close() {
	s.authRateLimiter.Stop()
	s.chatRateLimiter.Stop()
	s.scanRateLimiter.Stop()
}

// setupMiddleware configures middleware stack.
func (s *Server) setupMiddleware(origins []string) {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(middleware.Logger)
	s.router.Use(middleware.Recoverer)

	if len(origins) > 0 {
		s.router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   origins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	s.router.Use(middleware.Compress(5))
	s.router.Use(authMiddleware(s.sessions))
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.registerHealthRoutes()
	s.registerSessionRoutes()
	s.registerCatalogRoutes()
	s.registerShelfRoutes()
	s.registerCustomBottleRoutes()
	s.registerAddBottleRoutes()
	s.registerSettingsRoutes()
	s.registerChatRoutes()
	s.registerScanRoutes()

	// Streaming endpoints stay on plain chi.
	s.router.Get("/api/v1/events", s.sseHandler.ServeHTTP)
	s.router.With(s.rateLimitByUser(s.chatRateLimiter)).Post("/api/v1/chat", s.handleChatStream)
}
