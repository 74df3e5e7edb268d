package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Priya8975/address-monitor-registry/internal/registry"
	ws "github.com/Priya8975/address-monitor-registry/internal/websocket"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

const Version = "1.0.0"

// Deps are the collaborators the HTTP layer is built from. Events, Hub and
// Limiter are optional.
type Deps struct {
	Registry       *registry.Registry
	Clock          registry.Clock
	Events         EventSource
	Hub            *ws.Hub
	Limiter        RateLimiter
	RateLimit      int
	JWTSecret      []byte
	AllowedOrigins []string
	Logger         *slog.Logger
}

// NewRouter creates and configures the HTTP router.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()

	// Middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	if d.Logger != nil {
		r.Use(requestLogger(d.Logger))
	}
	r.Use(middleware.Recoverer)
	r.Use(middleware.Heartbeat("/ping"))
	r.Use(cors.Handler(corsOptions(d.AllowedOrigins)))

	subHandler := NewSubscriptionHandler(d.Registry)
	adminHandler := NewAdminHandler(d.Registry)
	eventHandler := NewEventHandler(d.Events)
	dashHandler := NewDashboardHandler(d.Registry, d.Events, d.Hub)

	if d.Hub != nil {
		r.Get("/ws", d.Hub.HandleWebSocket)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		r.Get("/health", HealthHandler(Version, d.Clock))

		// public reads
		r.Get("/subscriptions/{id}", subHandler.Get)
		r.Get("/users/{principal}/subscriptions", subHandler.ByUser)
		r.Get("/addresses/{principal}/subscriptions", subHandler.ByAddress)
		r.Get("/addresses/{principal}/monitored", subHandler.Monitored)
		r.Get("/balances/{principal}", subHandler.Balance)
		r.Get("/stats", subHandler.Stats)
		r.Get("/settings", subHandler.Settings)
		r.Get("/events", eventHandler.List)
		r.Get("/metrics", dashHandler.Metrics)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(d.JWTSecret))
			r.Use(RateLimitMiddleware(d.Limiter, d.RateLimit))

			r.Post("/subscriptions", subHandler.Create)
			r.Post("/subscriptions/{id}/renew", subHandler.Renew)
			r.Put("/subscriptions/{id}/parameters", subHandler.UpdateParameters)
			r.Post("/subscriptions/{id}/cancel", subHandler.Cancel)

			r.Route("/admin", func(r chi.Router) {
				r.Post("/withdraw", adminHandler.Withdraw)
				r.Put("/duration", adminHandler.SetDuration)
				r.Put("/fee", adminHandler.SetFee)
			})
		})
	})

	return r
}

func corsOptions(origins []string) cors.Options {
	if len(origins) == 0 {
		origins = []string{"https://*", "http://*"}
	}
	return cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"Retry-After"},
		MaxAge:         300,
	}
}

// requestLogger logs one structured line per request.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"duration_ms", time.Since(start).Milliseconds(),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}
