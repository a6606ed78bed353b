package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	store "redisclient-go/internal/datastore/redis"
	"redisclient-go/internal/api/middleware"
	"redisclient-go/internal/models"
	"redisclient-go/pkg/redisclient"
)

const (
	defaultListLimit  = 50
	maxListLimit      = 500
	defaultSessionTTL = 24 * time.Hour
)

// AccountStore is the account persistence the handlers need.
type AccountStore interface {
	AccountCounter
	Create(ctx context.Context, req models.CreateAccountRequest) (*models.Account, error)
	Get(ctx context.Context, id int64) (*models.Account, error)
	Update(ctx context.Context, id int64, req models.UpdateAccountRequest) (*models.Account, error)
	PromoteVIP(ctx context.Context, id int64, levels int64) (int, error)
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, offset, limit int64) (*models.AccountList, error)
	Events(ctx context.Context, id int64) ([]models.AccountEvent, error)
	TopVIP(ctx context.Context, n int64) ([]redisclient.ScoredMember, error)
	OpenSession(ctx context.Context, id int64, ttl time.Duration) (string, error)
	Session(ctx context.Context, token string) (int64, time.Duration, error)
	RefreshSession(ctx context.Context, token string, ttl time.Duration) error
	CloseSession(ctx context.Context, token string) error
}

// SessionRequest sets the lifetime of a session. Zero picks the default
// for new sessions and makes a refreshed session permanent.
type SessionRequest struct {
	TTLSeconds int64 `json:"ttl_seconds"`
}

// SessionResponse describes a session.
type SessionResponse struct {
	Token      string `json:"token"`
	AccountID  int64  `json:"account_id"`
	TTLSeconds int64  `json:"ttl_seconds"`
}

// AccountHandler handles account and session requests
type AccountHandler struct {
	accounts AccountStore
	logger   *zap.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(accounts AccountStore, logger *zap.Logger) *AccountHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AccountHandler{
		accounts: accounts,
		logger:   logger,
	}
}

// Create handles POST /api/v1/accounts
func (h *AccountHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateAccountRequest
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("failed to decode create request", zap.Error(err))
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Username == "" {
		respondWithError(w, http.StatusBadRequest, "username is required")
		return
	}

	acct, err := h.accounts.Create(r.Context(), req)
	if err != nil {
		h.fail(w, "create", err, zap.String("username", req.Username))
		return
	}

	middleware.AccountsCreatedTotal.Inc()
	respondWithJSON(w, http.StatusCreated, acct)
}

// List handles GET /api/v1/accounts?offset=&limit=
func (h *AccountHandler) List(w http.ResponseWriter, r *http.Request) {
	offset, ok := queryInt64(r, "offset", 0)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid offset")
		return
	}
	limit, ok := queryInt64(r, "limit", defaultListLimit)
	if !ok || limit > maxListLimit {
		respondWithError(w, http.StatusBadRequest, "invalid limit")
		return
	}

	list, err := h.accounts.List(r.Context(), offset, limit)
	if err != nil {
		h.fail(w, "list", err)
		return
	}
	respondWithJSON(w, http.StatusOK, list)
}

// Get handles GET /api/v1/accounts/{id}
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	acct, err := h.accounts.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get", err, zap.Int64("id", id))
		return
	}
	respondWithJSON(w, http.StatusOK, acct)
}

// Update handles PATCH /api/v1/accounts/{id}
func (h *AccountHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	var req models.UpdateAccountRequest
	defer r.Body.Close()
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	acct, err := h.accounts.Update(r.Context(), id, req)
	if err != nil {
		h.fail(w, "update", err, zap.Int64("id", id))
		return
	}
	respondWithJSON(w, http.StatusOK, acct)
}

// Delete handles DELETE /api/v1/accounts/{id}
func (h *AccountHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	if err := h.accounts.Delete(r.Context(), id); err != nil {
		h.fail(w, "delete", err, zap.Int64("id", id))
		return
	}

	middleware.AccountsDeletedTotal.Inc()
	w.WriteHeader(http.StatusNoContent)
}

// Promote handles POST /api/v1/accounts/{id}/promote
func (h *AccountHandler) Promote(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	req := models.PromoteRequest{Levels: 1}
	defer r.Body.Close()
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	level, err := h.accounts.PromoteVIP(r.Context(), id, req.Levels)
	if err != nil {
		h.fail(w, "promote", err, zap.Int64("id", id))
		return
	}

	middleware.VIPPromotionsTotal.Inc()
	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"id":  id,
		"vip": level,
	})
}

// Events handles GET /api/v1/accounts/{id}/events
func (h *AccountHandler) Events(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	events, err := h.accounts.Events(r.Context(), id)
	if err != nil {
		h.fail(w, "events", err, zap.Int64("id", id))
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"events": events})
}

// TopVIP handles GET /api/v1/vip?limit=
func (h *AccountHandler) TopVIP(w http.ResponseWriter, r *http.Request) {
	limit, ok := queryInt64(r, "limit", 10)
	if !ok || limit > maxListLimit {
		respondWithError(w, http.StatusBadRequest, "invalid limit")
		return
	}

	top, err := h.accounts.TopVIP(r.Context(), limit)
	if err != nil {
		h.fail(w, "top vip", err)
		return
	}
	respondWithJSON(w, http.StatusOK, map[string]interface{}{"accounts": top})
}

// OpenSession handles POST /api/v1/accounts/{id}/sessions
func (h *AccountHandler) OpenSession(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(r)
	if !ok {
		respondWithError(w, http.StatusBadRequest, "invalid account id")
		return
	}

	req, ok := h.decodeSession(w, r)
	if !ok {
		return
	}
	ttl := time.Duration(req.TTLSeconds) * time.Second
	if ttl == 0 {
		ttl = defaultSessionTTL
	}

	token, err := h.accounts.OpenSession(r.Context(), id, ttl)
	if err != nil {
		h.fail(w, "open session", err, zap.Int64("id", id))
		return
	}
	respondWithJSON(w, http.StatusCreated, SessionResponse{
		Token:      token,
		AccountID:  id,
		TTLSeconds: int64(ttl / time.Second),
	})
}

// GetSession handles GET /api/v1/sessions/{token}. A permanent session
// reports ttl_seconds -1.
func (h *AccountHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	id, ttl, err := h.accounts.Session(r.Context(), token)
	if err != nil {
		h.fail(w, "get session", err)
		return
	}

	seconds := int64(ttl / time.Second)
	if ttl == redisclient.NoExpiry {
		seconds = -1
	}
	respondWithJSON(w, http.StatusOK, SessionResponse{
		Token:      token,
		AccountID:  id,
		TTLSeconds: seconds,
	})
}

// RefreshSession handles PUT /api/v1/sessions/{token}
func (h *AccountHandler) RefreshSession(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")

	req, ok := h.decodeSession(w, r)
	if !ok {
		return
	}

	if err := h.accounts.RefreshSession(r.Context(), token, time.Duration(req.TTLSeconds)*time.Second); err != nil {
		h.fail(w, "refresh session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CloseSession handles DELETE /api/v1/sessions/{token}
func (h *AccountHandler) CloseSession(w http.ResponseWriter, r *http.Request) {
	if err := h.accounts.CloseSession(r.Context(), chi.URLParam(r, "token")); err != nil {
		h.fail(w, "close session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AccountHandler) decodeSession(w http.ResponseWriter, r *http.Request) (SessionRequest, bool) {
	var req SessionRequest
	defer r.Body.Close()
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, "invalid request body")
			return req, false
		}
	}
	if req.TTLSeconds < 0 {
		respondWithError(w, http.StatusBadRequest, "ttl_seconds must not be negative")
		return req, false
	}
	return req, true
}

// fail maps repository errors to HTTP statuses.
func (h *AccountHandler) fail(w http.ResponseWriter, op string, err error, fields ...zap.Field) {
	switch {
	case errors.Is(err, store.ErrAccountNotFound):
		respondWithError(w, http.StatusNotFound, "account not found")
	case errors.Is(err, store.ErrSessionNotFound):
		respondWithError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, store.ErrUsernameTaken):
		respondWithError(w, http.StatusConflict, "username already taken")
	case errors.Is(err, store.ErrInvalidUsername), errors.Is(err, store.ErrInvalidLevels):
		respondWithError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(op+" failed", append(fields, zap.Error(err))...)
		respondWithError(w, http.StatusInternalServerError, op+" failed")
	}
}
