package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/wonny/momentumchaser/internal/contracts"
	"github.com/wonny/momentumchaser/pkg/logger"
	"github.com/wonny/momentumchaser/pkg/redis"
)

// SymbolHandler serves stored bars
// ⭐ SSOT: 종목 데이터 API 핸들러는 이 구조체에서만
type SymbolHandler struct {
	store  contracts.BarStore
	cache  Cache
	logger *logger.Logger
	now    func() time.Time
}

// NewSymbolHandler creates a new symbol handler. cache may be nil.
func NewSymbolHandler(store contracts.BarStore, cache Cache, log *logger.Logger) *SymbolHandler {
	if cache == nil {
		cache = noCache{}
	}
	return &SymbolHandler{
		store:  store,
		cache:  cache,
		logger: log,
		now:    time.Now,
	}
}

// BarResponse represents a daily bar for API response
type BarResponse struct {
	Date   string  `json:"date"`
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// SeriesResponse is one symbol's bars over a window
type SeriesResponse struct {
	Symbol string        `json:"symbol"`
	From   string        `json:"from"`
	To     string        `json:"to"`
	Count  int           `json:"count"`
	Bars   []BarResponse `json:"bars"`
}

// GetBars returns daily bars for a symbol
// GET /api/symbols/{symbol}/bars?from=YYYY-MM-DD&to=YYYY-MM-DD (default: last 365 days)
func (h *SymbolHandler) GetBars(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	symbol := strings.ToUpper(strings.TrimSpace(mux.Vars(r)["symbol"]))
	if symbol == "" {
		respondError(w, http.StatusBadRequest, "symbol is required")
		return
	}

	to := contracts.NormalizeDate(h.now())
	if s := r.URL.Query().Get("to"); s != "" {
		d, err := contracts.ParseDate(s)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid 'to' date format (expected YYYY-MM-DD)")
			return
		}
		to = d
	}
	from := to.AddDate(0, 0, -365)
	if s := r.URL.Query().Get("from"); s != "" {
		d, err := contracts.ParseDate(s)
		if err != nil {
			respondError(w, http.StatusBadRequest, "Invalid 'from' date format (expected YYYY-MM-DD)")
			return
		}
		from = d
	}
	if from.After(to) {
		respondError(w, http.StatusBadRequest, "'from' must not be after 'to'")
		return
	}

	// 오늘까지 포함하는 구간은 수집 중 바뀌므로 캐시하지 않음
	cacheable := to.Before(contracts.NormalizeDate(h.now()))

	var resp SeriesResponse
	key := redis.SeriesKey(symbol, from.Format(contracts.DateLayout), to.Format(contracts.DateLayout))
	if cacheable {
		if found, err := h.cache.Get(ctx, key, &resp); err == nil && found {
			respondJSON(w, http.StatusOK, resp)
			return
		}
	}

	series, err := h.store.Range(ctx, symbol, contracts.NewDateRange(from, to))
	if err != nil {
		h.logger.WithError(err).WithSymbol(symbol).Error("Failed to get bars")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve bars")
		return
	}

	resp = SeriesResponse{
		Symbol: symbol,
		From:   from.Format(contracts.DateLayout),
		To:     to.Format(contracts.DateLayout),
		Count:  series.Len(),
		Bars:   make([]BarResponse, series.Len()),
	}
	for i, b := range series.Bars {
		resp.Bars[i] = BarResponse{
			Date:   b.Date.Format(contracts.DateLayout),
			Open:   b.Open,
			High:   b.High,
			Low:    b.Low,
			Close:  b.Close,
			Volume: b.Volume,
		}
	}

	if cacheable {
		_ = h.cache.Set(ctx, key, resp, redis.TTLMedium)
	}
	respondJSON(w, http.StatusOK, resp)
}

// GetSymbols lists symbols with stored bars
// GET /api/symbols
func (h *SymbolHandler) GetSymbols(w http.ResponseWriter, r *http.Request) {
	symbols, err := h.store.Symbols(r.Context())
	if err != nil {
		h.logger.WithError(err).Error("Failed to list symbols")
		respondError(w, http.StatusInternalServerError, "Failed to list symbols")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"symbols": symbols,
		"count":   len(symbols),
	})
}
