package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/wonny/momentumchaser/internal/contracts"
	"github.com/wonny/momentumchaser/internal/s0_data/quality"
	"github.com/wonny/momentumchaser/pkg/logger"
)

// Cache is the read-through cache used by handlers
type Cache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// DataHandler handles data-related API endpoints
// ⭐ SSOT: 데이터 API 핸들러는 이 구조체에서만
type DataHandler struct {
	checker  *quality.FreshnessChecker
	universe contracts.UniverseResolver
	logger   *logger.Logger
}

// NewDataHandler creates a new data handler
func NewDataHandler(checker *quality.FreshnessChecker, universe contracts.UniverseResolver, log *logger.Logger) *DataHandler {
	return &DataHandler{
		checker:  checker,
		universe: universe,
		logger:   log,
	}
}

// HealthResponse is the readiness signal for the front-end
type HealthResponse struct {
	Status string `json:"status"` // always "ok" when the server answers
	*contracts.DataQualitySnapshot
	StaleCount int `json:"stale_count"`
}

// Health returns data freshness
// GET /health
func (h *DataHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var symbols []string
	if h.universe != nil {
		if u, err := h.universe.Resolve(ctx, time.Now()); err == nil {
			symbols = u.Symbols
		} else {
			h.logger.WithError(err).Warn("Universe unavailable for health check")
		}
	}

	snap, err := h.checker.Check(ctx, symbols)
	if err != nil {
		h.logger.WithError(err).Error("Failed to check freshness")
		respondError(w, http.StatusInternalServerError, "Failed to check data freshness")
		return
	}
	// 목록은 /health 응답에서 제외 (크기)
	staleCount := len(snap.StaleSymbols)
	snap.StaleSymbols = nil

	respondJSON(w, http.StatusOK, HealthResponse{
		Status:              "ok",
		DataQualitySnapshot: snap,
		StaleCount:          staleCount,
	})
}

// GetUniverse returns the current universe
// GET /api/universe
func (h *DataHandler) GetUniverse(w http.ResponseWriter, r *http.Request) {
	universe, err := h.universe.Resolve(r.Context(), time.Now())
	if err != nil {
		h.logger.WithError(err).Error("Failed to get universe")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve universe")
		return
	}

	respondJSON(w, http.StatusOK, universe)
}

// Helper functions

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{
		"error": message,
	})
}

// noCache stands in when no cache is configured
type noCache struct{}

func (noCache) Get(context.Context, string, interface{}) (bool, error) { return false, nil }
func (noCache) Set(context.Context, string, interface{}, time.Duration) error { return nil }
