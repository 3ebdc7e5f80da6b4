package usage

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/chatforge/entitlement/pkg/billing"
	"github.com/chatforge/entitlement/pkg/entitlement"
	"github.com/chatforge/entitlement/pkg/logger"
)

type handler struct {
	svc *entitlement.Service
	log *slog.Logger
}

// limitsResponse is the wire shape consumed by the front end.
type limitsResponse struct {
	CanGenerate bool    `json:"can_generate"`
	Remaining   int64   `json:"remaining"`
	Limit       int64   `json:"limit"`
	ResetDate   *string `json:"reset_date"`
}

type consumeResponse struct {
	Consumed bool `json:"consumed"`
}

type resetResponse struct {
	Used  int64 `json:"used"`
	Limit int64 `json:"limit"`
}

type syncResponse struct {
	Outcome entitlement.SyncOutcome `json:"outcome"`
}

type sweepResponse struct {
	Cleaned int `json:"cleaned"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *handler) checkLimit(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}

	limits, err := h.svc.CheckLimit(r.Context(), userID)
	if err != nil {
		// Degrade to "cannot generate" rather than failing open.
		h.log.ErrorContext(r.Context(), "check limit failed",
			logger.UserID(userID), logger.Error(err))
		writeJSON(w, http.StatusInternalServerError, limitsResponse{})
		return
	}

	writeJSON(w, http.StatusOK, toLimitsResponse(limits))
}

func (h *handler) consumeOne(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}

	consumed, err := h.svc.ConsumeOne(r.Context(), userID)
	if err != nil {
		h.log.ErrorContext(r.Context(), "consume failed",
			logger.UserID(userID), logger.Error(err))
		writeJSON(w, http.StatusInternalServerError, consumeResponse{Consumed: false})
		return
	}

	writeJSON(w, http.StatusOK, consumeResponse{Consumed: consumed})
}

func (h *handler) resetManually(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}

	limits, err := h.svc.ResetManually(r.Context(), userID)
	switch {
	case errors.Is(err, entitlement.ErrNoActiveSubscription):
		writeJSON(w, http.StatusConflict, errorResponse{Error: "no_active_subscription"})
		return
	case err != nil:
		h.log.ErrorContext(r.Context(), "manual reset failed",
			logger.UserID(userID), logger.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal_error"})
		return
	}

	writeJSON(w, http.StatusOK, resetResponse{Used: limits.Used, Limit: limits.Limit})
}

func (h *handler) syncWithProvider(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: "unauthorized"})
		return
	}

	outcome, err := h.svc.SyncWithProvider(r.Context(), userID)
	switch {
	case errors.Is(err, entitlement.ErrSyncCooldown):
		writeJSON(w, http.StatusTooManyRequests, errorResponse{Error: "sync_cooldown"})
		return
	case errors.Is(err, billing.ErrProviderUnavailable):
		writeJSON(w, http.StatusBadGateway, errorResponse{Error: "provider_unavailable"})
		return
	case err != nil:
		h.log.ErrorContext(r.Context(), "provider sync failed",
			logger.UserID(userID), logger.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal_error"})
		return
	}

	writeJSON(w, http.StatusOK, syncResponse{Outcome: outcome})
}

func (h *handler) sweep(w http.ResponseWriter, r *http.Request) {
	cleaned, err := h.svc.Sweep(r.Context())
	if err != nil {
		h.log.ErrorContext(r.Context(), "manual sweep failed", logger.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal_error"})
		return
	}

	writeJSON(w, http.StatusOK, sweepResponse{Cleaned: cleaned})
}

func toLimitsResponse(limits entitlement.UsageLimits) limitsResponse {
	resp := limitsResponse{
		CanGenerate: limits.CanConsume,
		Remaining:   limits.Remaining(),
		Limit:       limits.Limit,
	}
	if limits.PeriodEnd != nil {
		reset := limits.PeriodEnd.UTC().Format(time.RFC3339)
		resp.ResetDate = &reset
	}
	return resp
}

func writeJSON[T any](w http.ResponseWriter, status int, v T) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Default().Error("usage: encode response", slog.Int("status", status), slog.Any("error", err))
	}
}
