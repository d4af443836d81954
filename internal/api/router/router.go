package router

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/vetchat/internal/appointments"
	"github.com/wolfman30/vetchat/internal/chat"
	httpmiddleware "github.com/wolfman30/vetchat/internal/http/middleware"
	"github.com/wolfman30/vetchat/internal/http/response"
	"github.com/wolfman30/vetchat/internal/observability/metrics"
	"github.com/wolfman30/vetchat/pkg/logging"
)

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Config holds router configuration
type Config struct {
	Logger        *logging.Logger
	Metrics       *metrics.ChatMetrics
	Chat          *chat.Handler
	Conversations *chat.ConversationsHandler
	Appointments  *appointments.Handler

	AdminToken         string
	CORSAllowedOrigins []string
	RateLimitPerMinute int
	RateLimitBurst     int
	MetricsHandler     http.Handler
	// Production hides panic details from clients.
	Production   bool
	HealthChecks map[string]HealthCheck
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(httpmiddleware.Recoverer(cfg.Logger, cfg.Production))
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	r.Use(httpmiddleware.RequestLogger(cfg.Logger, cfg.Metrics))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusNotFound, "Route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		response.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	r.Get("/health", healthHandler(cfg.HealthChecks))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		if cfg.RateLimitPerMinute > 0 {
			api.Use(httpmiddleware.NewRateLimiter(cfg.RateLimitPerMinute, cfg.RateLimitBurst).Middleware)
		}

		if cfg.Chat != nil {
			api.Route("/chat", func(c chi.Router) {
				c.Post("/message", cfg.Chat.Message)
				c.Post("/init", cfg.Chat.Init)
				c.Get("/status", cfg.Chat.Status)
				c.Get("/ws", cfg.Chat.WebSocket)
			})
		}

		api.Group(func(admin chi.Router) {
			admin.Use(httpmiddleware.AdminToken(cfg.AdminToken))
			if cfg.Appointments != nil {
				admin.Route("/appointments", func(a chi.Router) {
					a.Get("/", cfg.Appointments.List)
					a.Get("/stats", cfg.Appointments.Stats)
					a.Get("/{id}", cfg.Appointments.Get)
					a.Patch("/{id}", cfg.Appointments.UpdateStatus)
					a.Patch("/{id}/status", cfg.Appointments.UpdateStatus)
				})
			}
			if cfg.Conversations != nil {
				admin.Get("/conversations", cfg.Conversations.List)
				admin.Get("/conversations/{sessionId}", cfg.Conversations.Get)
			}
		})
	})

	return r
}

type healthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
		defer cancel()

		resp := healthResponse{Status: "healthy", Timestamp: time.Now().UTC()}
		status := http.StatusOK
		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
			for name, check := range checks {
				if err := check(ctx); err != nil {
					resp.Checks[name] = err.Error()
					resp.Status = "degraded"
					status = http.StatusServiceUnavailable
					continue
				}
				resp.Checks[name] = "ok"
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
