package contracts

import (
	"time"
)

// SkipReason explains why a universe member is absent from the ranking
type SkipReason string

const (
	SkipInsufficientHistory SkipReason = "InsufficientHistory"
	SkipMalformedData       SkipReason = "MalformedData"
	SkipBelowPriceFloor     SkipReason = "BelowPriceFloor"
	SkipBelowTradedValue    SkipReason = "BelowTradedValue"
	SkipStoreError          SkipReason = "StoreError"
)

// ScanResult is one ranked snapshot for an as-of date
// ⭐ SSOT: S4 스캔 → 퍼블리셔/API 전달. 벽시계 필드 금지 (재현성)
type ScanResult struct {
	AsOf         time.Time       `json:"as_of"`
	ConfigHash   string          `json:"config_hash"`
	Scorer       string          `json:"scorer"`
	UniverseSize int             `json:"universe_size"`
	Ranked       []RankedSymbol  `json:"ranked"`
	Skipped      []SkippedSymbol `json:"skipped"`
	Stale        []string        `json:"stale"` // ranked, but last bar is before AsOf
}

// RankedSymbol is one row of the ranking
type RankedSymbol struct {
	Rank    int      `json:"rank"` // 1-based ranking
	Symbol  string   `json:"symbol"`
	Score   float64  `json:"score"`
	Metrics Metrics  `json:"metrics"`
	Tags    []string `json:"tags,omitempty"`
}

// SkippedSymbol records a universe member that was not ranked
type SkippedSymbol struct {
	Symbol string     `json:"symbol"`
	Reason SkipReason `json:"reason"`
	Detail string     `json:"detail,omitempty"`
}

// Metrics are the supporting indicators behind a score
type Metrics struct {
	LastDate      time.Time `json:"last_date"`
	Bars          int       `json:"bars"`
	Close         float64   `json:"close"`
	TradedValueCr float64   `json:"traded_value_cr"` // 20-day mean close×volume in crore

	// consolidation box
	BoxSpan     float64 `json:"box_span"`
	Pivot       float64 `json:"pivot"`
	DistToPivot float64 `json:"dist_to_pivot"`

	// volatility and volume contraction
	ATR        float64 `json:"atr"`
	ATRRatio   float64 `json:"atr_ratio"`
	VolRatio   float64 `json:"vol_ratio"`
	Volatility float64 `json:"volatility"` // stdev of daily returns, 20 bars

	// trend
	ROC20       float64 `json:"roc_20"`
	ROC60       float64 `json:"roc_60"`
	SMA50       float64 `json:"sma_50"`
	SMA200      float64 `json:"sma_200"`
	High52w     float64 `json:"high_52w"`
	Uptrend     bool    `json:"uptrend"`
	Near52wHigh bool    `json:"near_52w_high"`

	EMA4        float64 `json:"ema_4"`
	EMA9        float64 `json:"ema_9"`
	EMA18       float64 `json:"ema_18"`
	EMA50       float64 `json:"ema_50"`
	EMA200      float64 `json:"ema_200"`
	EMATrend    string  `json:"ema_trend"` // bullish, bearish
	AboveEMA9   bool    `json:"above_ema_9"`
	AboveEMA50  bool    `json:"above_ema_50"`
	AboveEMA200 bool    `json:"above_ema_200"`

	// candle patterns
	NR7       bool `json:"nr7"`
	InsideDay bool `json:"inside_day"`

	Components ScoreComponents `json:"components"`
}

// ScoreComponents is the per-factor breakdown of a score
type ScoreComponents struct {
	Box   float64 `json:"box"`
	ATR   float64 `json:"atr"`
	Vol   float64 `json:"vol"`
	Pivot float64 `json:"pivot"`
	Trend float64 `json:"trend"`
	Bonus float64 `json:"bonus"`
}

// ScanRun is run metadata stored beside a ScanResult.
// Kept out of ScanResult so the result itself stays reproducible.
type ScanRun struct {
	RunID         string        `json:"run_id"`
	AsOf          time.Time     `json:"as_of"`
	TotalSymbols  int           `json:"total_symbols"`
	RankedSymbols int           `json:"ranked_symbols"`
	Duration      time.Duration `json:"duration"`
	CreatedAt     time.Time     `json:"created_at"`
}

// Top returns the first n ranked symbols
func (r *ScanResult) Top(n int) []RankedSymbol {
	if n <= 0 || n >= len(r.Ranked) {
		return r.Ranked
	}
	return r.Ranked[:n]
}

// Find returns the ranked row for symbol
func (r *ScanResult) Find(symbol string) (RankedSymbol, bool) {
	for _, row := range r.Ranked {
		if row.Symbol == symbol {
			return row, true
		}
	}
	return RankedSymbol{}, false
}

// SkipCounts groups skipped symbols by reason
func (r *ScanResult) SkipCounts() map[SkipReason]int {
	counts := make(map[SkipReason]int)
	for _, s := range r.Skipped {
		counts[s.Reason]++
	}
	return counts
}

// IsTopRanked checks if the symbol is in top N ranks
func (r *RankedSymbol) IsTopRanked(n int) bool {
	return r.Rank <= n && r.Rank > 0
}
