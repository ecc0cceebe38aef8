package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/ashureev/valentine/internal/valentine"
	"github.com/go-chi/chi/v5"
)

const healthCheckTimeout = 5 * time.Second

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	db       Pinger
	sessions *valentine.Registry
}

// NewHealthHandler creates a new health handler. db may be nil when the
// audit store is disabled.
func NewHealthHandler(db Pinger, sessions *valentine.Registry) *HealthHandler {
	return &HealthHandler{db: db, sessions: sessions}
}

// Health returns the health status of the API and its dependencies. The
// audit store is best-effort, so an unreachable database degrades the
// status without failing it.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	checks := map[string]string{"api": "ok"}
	status := map[string]interface{}{
		"status":   "healthy",
		"checks":   checks,
		"sessions": h.sessions.Len(),
	}

	switch {
	case h.db == nil:
		checks["database"] = "disabled"
	case h.db.Ping(ctx) != nil:
		slog.Warn("Health check: database unreachable")
		status["status"] = "degraded"
		checks["database"] = "unreachable"
	default:
		checks["database"] = "ok"
	}

	JSON(w, http.StatusOK, status)
}

// RegisterHealth registers the health check route.
func (h *HealthHandler) RegisterHealth(r chi.Router) {
	r.Get("/health", h.Health)
}

// ClientConfig is what the frontend needs to pace its animations.
type ClientConfig struct {
	TickMillis      int64  `json:"tick_ms"`
	ResultCountdown int    `json:"result_countdown"`
	BasePath        string `json:"base_path"`
	Persistence     bool   `json:"persistence"`
}

// ConfigHandler serves the frontend configuration.
type ConfigHandler struct {
	cfg ClientConfig
}

// NewConfigHandler creates a new config handler.
func NewConfigHandler(cfg ClientConfig) *ConfigHandler {
	return &ConfigHandler{cfg: cfg}
}

// RegisterRoutes registers the config route.
func (h *ConfigHandler) RegisterRoutes(r chi.Router) {
	r.Get("/api/config", h.GetConfig)
}

// GetConfig returns the server configuration for the frontend.
func (h *ConfigHandler) GetConfig(w http.ResponseWriter, _ *http.Request) {
	JSON(w, http.StatusOK, h.cfg)
}
