package handlers

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"redisclient-go/internal/models"
)

// StatusSource exposes the Redis connection state.
type StatusSource interface {
	Pinger
	DB() int
}

// AccountCounter counts stored accounts.
type AccountCounter interface {
	Count(ctx context.Context) (total, vip int64, err error)
}

// StatusHandler handles status requests
type StatusHandler struct {
	redis    StatusSource
	accounts AccountCounter
	logger   *zap.Logger
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(redis StatusSource, accounts AccountCounter, logger *zap.Logger) *StatusHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StatusHandler{
		redis:    redis,
		accounts: accounts,
		logger:   logger,
	}
}

// Handle handles GET /api/v1/status
func (h *StatusHandler) Handle(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	response := models.StatusResponse{Status: "up", DB: -1}
	if err := h.redis.Ping(ctx); err != nil {
		response.Status = "down"
		h.logger.Error("status check: redis down", zap.Error(err))
		respondWithJSON(w, http.StatusOK, response)
		return
	}
	response.DB = h.redis.DB()

	total, vip, err := h.accounts.Count(ctx)
	if err != nil {
		h.logger.Warn("failed to count accounts", zap.Error(err))
	}
	response.Accounts = total
	response.VIP = vip

	h.logger.Debug("status request served",
		zap.Int("db", response.DB),
		zap.Int64("accounts", total),
	)

	respondWithJSON(w, http.StatusOK, response)
}
