// Package handlers provides HTTP request handlers for the API endpoints.
// Handlers coordinate between the HTTP layer and the service/store layers,
// handling request parsing, validation, and response formatting.
//
// This package includes handlers for:
//   - Health checks and readiness probes
//   - Task and task-list CRUD
//   - User profiles and settings
//   - Google Calendar sync, push/email notifications, and analytics
package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/teccUI/inteliTASK/pkg/config"
	"github.com/teccUI/inteliTASK/pkg/utils"
)

// Pinger checks connectivity to a backing service.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health check endpoints for monitoring and
// orchestration. Provides a simple liveness check, a readiness check that
// verifies Firestore and Redis connectivity, and the integrations
// self-diagnostic.
type HealthHandler struct {
	firestore Pinger
	redis     Pinger
	cfg       *config.Config
}

// NewHealthHandler creates a health handler over the two backing stores.
func NewHealthHandler(firestore, redis Pinger, cfg *config.Config) *HealthHandler {
	return &HealthHandler{
		firestore: firestore,
		redis:     redis,
		cfg:       cfg,
	}
}

// HealthResponse is the shape returned by the health and readiness checks.
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Services  map[string]string `json:"services,omitempty"`
}

// Health is the liveness probe: it only confirms the process is serving,
// never touching dependencies.
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	utils.RespondWithJSON(w, r, http.StatusOK, HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
	})
}

// Ready is the readiness probe: it pings Firestore and Redis with a short
// timeout and reports 503 when either is down, so load balancers stop
// routing here until the dependency recovers.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	services := map[string]string{
		"firestore": "healthy",
		"redis":     "healthy",
	}
	status := "ok"
	code := http.StatusOK

	if err := h.firestore.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("Firestore health check failed")
		services["firestore"] = "unhealthy"
		status = "degraded"
		code = http.StatusServiceUnavailable
	}
	if err := h.redis.Ping(ctx); err != nil {
		log.Warn().Err(err).Msg("Redis health check failed")
		services["redis"] = "unhealthy"
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	utils.RespondWithJSON(w, r, code, HealthResponse{
		Status:    status,
		Timestamp: time.Now(),
		Services:  services,
	})
}

// IntegrationsTest reports the configuration state of every third-party
// integration plus live pings of the stores. Used by the settings page to
// show which integrations are wired up in this deployment.
//
// POST /api/v1/integrations/test
func (h *HealthHandler) IntegrationsTest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	results := map[string]string{}

	if err := h.firestore.Ping(ctx); err != nil {
		results["firestore"] = "unreachable"
	} else {
		results["firestore"] = "ok"
	}

	if err := h.redis.Ping(ctx); err != nil {
		results["redis"] = "unreachable"
	} else {
		results["redis"] = "ok"
	}

	results["googleOAuth"] = configuredState(h.cfg.OAuth.ClientID != "" && h.cfg.OAuth.ClientSecret != "")
	results["firebaseMessaging"] = configuredState(h.cfg.Firebase.ProjectID != "")
	results["sendgrid"] = configuredState(h.cfg.Email.SendGridKey != "")

	utils.RespondWithJSON(w, r, http.StatusOK, map[string]interface{}{
		"integrations": results,
		"timestamp":    time.Now(),
	})
}

func configuredState(configured bool) string {
	if configured {
		return "configured"
	}
	return "not_configured"
}
