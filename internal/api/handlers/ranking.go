package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/momentumchaser/internal/contracts"
	"github.com/wonny/momentumchaser/pkg/logger"
	"github.com/wonny/momentumchaser/pkg/redis"
)

// ScanHandler serves stored scan results
// ⭐ SSOT: 스캔 결과 API는 이 구조체에서만
type ScanHandler struct {
	store  contracts.ScanStore
	cache  Cache
	ttl    time.Duration
	logger *logger.Logger
}

// NewScanHandler creates a new scan handler. cache may be nil.
func NewScanHandler(store contracts.ScanStore, cache Cache, log *logger.Logger) *ScanHandler {
	if cache == nil {
		cache = noCache{}
	}
	return &ScanHandler{
		store:  store,
		cache:  cache,
		ttl:    redis.TTLShort,
		logger: log,
	}
}

// ScanResponse wraps a scan with its run metadata
type ScanResponse struct {
	Status string                `json:"status"` // ok, no_scan
	Result *contracts.ScanResult `json:"result,omitempty"`
	Run    *contracts.ScanRun    `json:"run,omitempty"`
}

// GetLatest returns the newest scan.
// 404 {"status":"no_scan"} until the first scan is stored.
// GET /api/scan/latest
func (h *ScanHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var resp ScanResponse
	if found, err := h.cache.Get(ctx, redis.LatestScanKey(), &resp); err != nil {
		h.logger.WithError(err).Warn("Scan cache read failed")
	} else if found {
		respondJSON(w, http.StatusOK, resp)
		return
	}

	result, run, err := h.store.LatestScan(ctx)
	if errors.Is(err, contracts.ErrNotFound) {
		respondJSON(w, http.StatusNotFound, ScanResponse{Status: "no_scan"})
		return
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to get latest scan")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve latest scan")
		return
	}

	resp = ScanResponse{Status: "ok", Result: result, Run: run}
	if err := h.cache.Set(ctx, redis.LatestScanKey(), resp, h.ttl); err != nil {
		h.logger.WithError(err).Warn("Scan cache write failed")
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetByDate returns the scan stored for one as-of date
// GET /api/scan/{date}
func (h *ScanHandler) GetByDate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	raw := mux.Vars(r)["date"]

	date, err := contracts.ParseDate(raw)
	if err != nil {
		respondError(w, http.StatusBadRequest, "Invalid date format (expected YYYY-MM-DD)")
		return
	}

	var resp ScanResponse
	key := redis.ScanKey(raw)
	if found, err := h.cache.Get(ctx, key, &resp); err == nil && found {
		respondJSON(w, http.StatusOK, resp)
		return
	}

	result, run, err := h.store.ScanByDate(ctx, date)
	if errors.Is(err, contracts.ErrNotFound) {
		respondJSON(w, http.StatusNotFound, ScanResponse{Status: "no_scan"})
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("date", raw).Error("Failed to get scan")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve scan")
		return
	}

	// 과거 스캔은 거의 바뀌지 않음
	resp = ScanResponse{Status: "ok", Result: result, Run: run}
	_ = h.cache.Set(ctx, key, resp, redis.TTLDaily)
	respondJSON(w, http.StatusOK, resp)
}

// GetDates lists as-of dates with a stored scan, newest first
// GET /api/scan/dates
func (h *ScanHandler) GetDates(w http.ResponseWriter, r *http.Request) {
	dates, err := h.store.ScanDates(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list scan dates")
		respondError(w, http.StatusInternalServerError, "Failed to list scan dates")
		return
	}

	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.Format(contracts.DateLayout)
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"dates": out,
		"count": len(out),
	})
}
