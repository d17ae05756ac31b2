package strategyconfig

// Config는 스캔 전략의 전체 설정
// ⭐ SSOT: 점수 파라미터는 YAML에서만 (코드 상수 금지)
type Config struct {
	Meta       Meta       `yaml:"meta" json:"meta"`
	Scorer     string     `yaml:"scorer" json:"scorer"` // swing, momentum
	Filters    Filters    `yaml:"filters" json:"filters"`
	Indicators Indicators `yaml:"indicators" json:"indicators"`
	Swing      Swing      `yaml:"swing" json:"swing"`
	Momentum   Momentum   `yaml:"momentum" json:"momentum"`
	Scan       Scan       `yaml:"scan" json:"scan"`
}

// Meta 메타 정보
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
	Version    string `yaml:"version" json:"version"`
}

// Filters decide which universe members are eligible for ranking
type Filters struct {
	MinHistory       int     `yaml:"min_history" json:"min_history"`               // bars
	PriceFloor       float64 `yaml:"price_floor" json:"price_floor"`               // last close
	MinTradedValueCr float64 `yaml:"min_traded_value_cr" json:"min_traded_value_cr"` // crore, 20-day mean
	HistoryDays      int     `yaml:"history_days" json:"history_days"`             // calendar days read per symbol
}

// Indicators are the metric windows
type Indicators struct {
	BoxLen          int     `yaml:"box_len" json:"box_len"`
	ATRPeriod       int     `yaml:"atr_period" json:"atr_period"`
	ATRBaseLen      int     `yaml:"atr_base_len" json:"atr_base_len"`
	VolFast         int     `yaml:"vol_fast" json:"vol_fast"`
	VolSlow         int     `yaml:"vol_slow" json:"vol_slow"`
	TradedValueDays int     `yaml:"traded_value_days" json:"traded_value_days"`
	HighLookback    int     `yaml:"high_lookback" json:"high_lookback"`
	NearHighPct     float64 `yaml:"near_high_pct" json:"near_high_pct"`
	VolatilityLen   int     `yaml:"volatility_len" json:"volatility_len"`
}

// Swing 박스 돌파 점수
type Swing struct {
	Caps    SwingFactors `yaml:"caps" json:"caps"`
	Weights SwingFactors `yaml:"weights" json:"weights"`
	Bonus   SwingBonus   `yaml:"bonus" json:"bonus"`
}

// SwingFactors holds one value per contraction factor
type SwingFactors struct {
	Box   float64 `yaml:"box" json:"box"`
	ATR   float64 `yaml:"atr" json:"atr"`
	Vol   float64 `yaml:"vol" json:"vol"`
	Pivot float64 `yaml:"pivot" json:"pivot"`
}

// Sum 가중치 합계
func (f SwingFactors) Sum() float64 {
	return f.Box + f.ATR + f.Vol + f.Pivot
}

type SwingBonus struct {
	Uptrend  float64 `yaml:"uptrend" json:"uptrend"`
	NearHigh float64 `yaml:"near_high" json:"near_high"`
}

// Momentum 변동성 정규화 ROC 점수
type Momentum struct {
	LookbacksDays []int     `yaml:"lookbacks_days" json:"lookbacks_days"`
	Weights       []float64 `yaml:"weights" json:"weights"`
}

// Scan controls execution, not scoring
type Scan struct {
	Workers int `yaml:"workers" json:"workers"` // parallel series reads
	TopN    int `yaml:"top_n" json:"top_n"`     // rows printed by the CLI, 0 = all
}

// Default returns the swing scan defaults. YAML values are merged on top.
func Default() *Config {
	return &Config{
		Meta:   Meta{StrategyID: "nifty500_swing", Version: "1"},
		Scorer: ScorerSwing,
		Filters: Filters{
			MinHistory:       220,
			PriceFloor:       100,
			MinTradedValueCr: 5,
			HistoryDays:      420,
		},
		Indicators: Indicators{
			BoxLen:          12,
			ATRPeriod:       14,
			ATRBaseLen:      59,
			VolFast:         5,
			VolSlow:         50,
			TradedValueDays: 20,
			HighLookback:    252,
			NearHighPct:     0.20,
			VolatilityLen:   20,
		},
		Swing: Swing{
			Caps:    SwingFactors{Box: 0.12, ATR: 1.20, Vol: 1.20, Pivot: 0.03},
			Weights: SwingFactors{Box: 0.30, ATR: 0.25, Vol: 0.20, Pivot: 0.25},
			Bonus:   SwingBonus{Uptrend: 0.05, NearHigh: 0.05},
		},
		Momentum: Momentum{
			LookbacksDays: []int{20, 60},
			Weights:       []float64{0.6, 0.4},
		},
		Scan: Scan{Workers: 8, TopN: 50},
	}
}

const (
	ScorerSwing    = "swing"
	ScorerMomentum = "momentum"
)
