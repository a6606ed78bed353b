package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"redisclient-go/internal/models"
)

// Pinger checks the Redis connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthHandler handles health and readiness checks
type HealthHandler struct {
	redis  Pinger
	logger *zap.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(redis Pinger, logger *zap.Logger) *HealthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HealthHandler{
		redis:  redis,
		logger: logger,
	}
}

// HandleHealth handles GET /api/v1/health (liveness probe).
// Returns 200 unconditionally; liveness must not depend on Redis.
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, models.HealthResponse{Status: "ok"})
}

// HandleReady handles GET /api/v1/ready (readiness probe)
func (h *HealthHandler) HandleReady(w http.ResponseWriter, r *http.Request) {
	if err := h.redis.Ping(r.Context()); err != nil {
		h.logger.Error("readiness check failed: redis unavailable", zap.Error(err))
		respondWithError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	}
	respondWithJSON(w, http.StatusOK, models.HealthResponse{Status: "ready"})
}
