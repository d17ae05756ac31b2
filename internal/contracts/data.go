package contracts

import "time"

// Health is the readiness signal consumed by the front-end
type Health string

const (
	HealthNoData Health = "no-data"
	HealthStale  Health = "stale"
	HealthFresh  Health = "fresh"
)

// DataQualitySnapshot summarizes store freshness against the current trading day
// ⭐ SSOT: S0 데이터 신선도 정보 전달
type DataQualitySnapshot struct {
	TradingDate    time.Time  `json:"trading_date"`              // last trading day at check time
	LatestIngested *time.Time `json:"latest_ingested,omitempty"` // newest bar in the store
	LatestScan     *time.Time `json:"latest_scan,omitempty"`
	Health         Health     `json:"health"`
	TotalSymbols   int        `json:"total_symbols"`
	CurrentSymbols int        `json:"current_symbols"`
	StaleSymbols   []string   `json:"stale_symbols,omitempty"`
}

// Coverage returns the share of symbols whose data reaches TradingDate
func (d *DataQualitySnapshot) Coverage() float64 {
	if d.TotalSymbols == 0 {
		return 0.0
	}
	return float64(d.CurrentSymbols) / float64(d.TotalSymbols)
}

// IsFresh reports whether the store has data for the current trading day
func (d *DataQualitySnapshot) IsFresh() bool {
	return d.Health == HealthFresh
}
