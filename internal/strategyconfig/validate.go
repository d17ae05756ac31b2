package strategyconfig

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// Validate returns every violated constraint, nil when the config is usable
func (c *Config) Validate() []ValidationError {
	var errs []ValidationError
	add := func(field, msg string) {
		errs = append(errs, ValidationError{field, msg})
	}

	// === Scorer ===
	switch c.Scorer {
	case ScorerSwing, ScorerMomentum:
	default:
		add("scorer", fmt.Sprintf("must be %s or %s, got %q", ScorerSwing, ScorerMomentum, c.Scorer))
	}

	// === Filters ===
	f := c.Filters
	if f.MinHistory < 1 {
		add("filters.min_history", "must be >= 1")
	}
	if f.PriceFloor < 0 {
		add("filters.price_floor", "must be >= 0")
	}
	if f.MinTradedValueCr < 0 {
		add("filters.min_traded_value_cr", "must be >= 0")
	}
	// 거래일 < 달력일
	if f.HistoryDays < f.MinHistory {
		add("filters.history_days", fmt.Sprintf("must be >= min_history=%d", f.MinHistory))
	}

	// === Indicators ===
	ind := c.Indicators
	for field, v := range map[string]int{
		"indicators.box_len":           ind.BoxLen,
		"indicators.atr_period":        ind.ATRPeriod,
		"indicators.atr_base_len":      ind.ATRBaseLen,
		"indicators.vol_fast":          ind.VolFast,
		"indicators.vol_slow":          ind.VolSlow,
		"indicators.traded_value_days": ind.TradedValueDays,
		"indicators.high_lookback":     ind.HighLookback,
	} {
		if v < 1 {
			add(field, "must be >= 1")
		}
	}
	if ind.VolatilityLen < 2 {
		add("indicators.volatility_len", "must be >= 2")
	}
	if ind.VolFast > ind.VolSlow {
		add("indicators", "vol_fast must be <= vol_slow")
	}
	if ind.NearHighPct <= 0 || ind.NearHighPct >= 1 {
		add("indicators.near_high_pct", "must be in (0, 1)")
	}

	// === Swing ===
	s := c.Swing
	for field, v := range map[string]float64{
		"swing.caps.box":   s.Caps.Box,
		"swing.caps.atr":   s.Caps.ATR,
		"swing.caps.vol":   s.Caps.Vol,
		"swing.caps.pivot": s.Caps.Pivot,
	} {
		if v <= 0 {
			add(field, "must be > 0")
		}
	}
	if err := validateWeightsSum([]float64{s.Weights.Box, s.Weights.ATR, s.Weights.Vol, s.Weights.Pivot}, 1.0, 1e-6); err != nil {
		add("swing.weights", err.Error())
	}
	if s.Bonus.Uptrend < 0 || s.Bonus.NearHigh < 0 {
		add("swing.bonus", "must be >= 0")
	}

	// === Momentum ===
	m := c.Momentum
	if len(m.LookbacksDays) != len(m.Weights) {
		add("momentum", "lookbacks_days length must match weights length")
	}
	for i, n := range m.LookbacksDays {
		if n < 1 {
			add(fmt.Sprintf("momentum.lookbacks_days[%d]", i), "must be >= 1")
		}
	}
	if err := validateWeightsSum(m.Weights, 1.0, 1e-6); err != nil {
		add("momentum.weights", err.Error())
	}

	// === Scan ===
	if c.Scan.Workers < 1 {
		add("scan.workers", "must be >= 1")
	}
	if c.Scan.TopN < 0 {
		add("scan.top_n", "must be >= 0")
	}

	sortErrors(errs)
	return errs
}

// Warn checks recommended constraints (non-fatal)
func Warn(c *Config) []Warning {
	var warnings []Warning

	// SMA200 + 5일 기울기 확인 불가
	if c.Filters.MinHistory < 205 {
		warnings = append(warnings, Warning{
			Code:    "SHORT_HISTORY",
			Message: fmt.Sprintf("min_history=%d < 205: uptrend is never detected", c.Filters.MinHistory),
		})
	}
	// 주 5거래일 기준 대략치
	if c.Filters.HistoryDays*5/7 < c.Indicators.HighLookback {
		warnings = append(warnings, Warning{
			Code:    "NO_52W_HIGH",
			Message: "history_days cannot reach high_lookback bars: near-high bonus never applies",
		})
	}
	if c.Filters.MinTradedValueCr == 0 {
		warnings = append(warnings, Warning{
			Code:    "NO_LIQUIDITY_FILTER",
			Message: "min_traded_value_cr is 0: illiquid symbols will be ranked",
		})
	}

	return warnings
}

// === Helper Functions ===

func validateWeightsSum(weights []float64, target float64, epsilon float64) error {
	if len(weights) == 0 {
		return errors.New("must not be empty")
	}
	sum := 0.0
	for _, w := range weights {
		if w < 0 {
			return fmt.Errorf("must be >= 0, got %.4f", w)
		}
		sum += w
	}
	if math.Abs(sum-target) > epsilon {
		return fmt.Errorf("must sum to %.2f, got %.4f", target, sum)
	}
	return nil
}

// map 순회 순서와 무관하게 같은 출력
func sortErrors(errs []ValidationError) {
	sort.SliceStable(errs, func(i, j int) bool { return errs[i].Field < errs[j].Field })
}
