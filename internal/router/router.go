package router

import (
	"net/http"

	"purchasebot/internal/handler"
	"purchasebot/internal/middleware"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler        *handler.Handler
	WebhookHandler *handler.WebhookHandler
	AdminHandler   *handler.AdminHandler
	Metrics        http.Handler
	AuthMiddleware func(http.Handler) http.Handler
	// QuietPaths are left out of the access log while they succeed.
	QuietPaths []string
}

// ProbePaths are the routes polled by load balancers and scrapers.
var ProbePaths = []string{"/", "/api/v1/health", "/api/v1/ready", "/metrics"}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recovery)
	r.Use(middleware.AccessLog(cfg.QuietPaths...))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-API-Key"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	// Telegram delivers updates here
	if cfg.WebhookHandler != nil {
		r.Post("/webhook-{botID}", cfg.WebhookHandler.Receive)
	}

	if cfg.Handler != nil {
		r.Get("/", cfg.Handler.Root)
		r.Get("/api/status", cfg.Handler.Status)
		r.Get("/api/v1/health", cfg.Handler.Health)
		r.Get("/api/v1/ready", cfg.Handler.Ready)
	}

	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	if cfg.AdminHandler != nil {
		r.Group(func(r chi.Router) {
			if cfg.AuthMiddleware != nil {
				r.Use(cfg.AuthMiddleware)
			}
			r.Get("/api/v1/admin/stats", cfg.AdminHandler.GetStats)
		})
	}

	return r
}
