package s2_signals

import (
	"math"

	"github.com/wonny/momentumchaser/internal/contracts"
)

// Ratio sentinel used when a baseline is missing or zero
const NoBaseline = 9.99

// Params are the indicator windows
type Params struct {
	BoxLen        int     // consolidation window
	ATRPeriod     int     // true range averaging
	ATRBaseLen    int     // prior ATR values whose median is the baseline
	VolFast       int     // recent volume mean
	VolSlow       int     // baseline volume mean
	TradedValueN  int     // traded value averaging window
	HighLookback  int     // 52-week high window in bars
	NearHighPct   float64 // max drawdown from the 52-week high
	VolatilityLen int     // daily returns used for volatility
}

// DefaultParams are the swing scan defaults
func DefaultParams() Params {
	return Params{
		BoxLen:        12,
		ATRPeriod:     14,
		ATRBaseLen:    59,
		VolFast:       5,
		VolSlow:       50,
		TradedValueN:  20,
		HighLookback:  252,
		NearHighPct:   0.20,
		VolatilityLen: 20,
	}
}

// Builder turns a stored series into the metrics behind a score
// ⭐ SSOT: 시그널(지표) 생성은 여기서만
type Builder struct {
	params Params
}

// NewBuilder creates a metrics builder
func NewBuilder(params Params) *Builder {
	return &Builder{params: params}
}

// Build computes metrics from the full series, whose last bar is "today".
// The series must be non-empty and already validated.
func (b *Builder) Build(series contracts.Series) contracts.Metrics {
	p := b.params
	bars := series.Bars
	last, ok := series.Last()
	if !ok {
		return contracts.Metrics{}
	}

	closes := series.Closes()
	volumes := series.Volumes()
	close := last.Close

	m := contracts.Metrics{
		LastDate: last.Date,
		Bars:     len(bars),
		Close:    close,
	}

	// 유동성
	if len(bars) >= p.TradedValueN {
		tv := make([]float64, 0, p.TradedValueN)
		for _, bar := range tail(bars, p.TradedValueN) {
			tv = append(tv, bar.TradedValue())
		}
		m.TradedValueCr = Mean(tv) / 1e7
	}

	// 박스권
	high, low := MaxHigh(bars, p.BoxLen), MinLow(bars, p.BoxLen)
	m.BoxSpan = NoBaseline
	if close > 0 {
		m.BoxSpan = (high - low) / close
	}
	m.Pivot = high
	if m.Pivot > 0 {
		m.DistToPivot = math.Abs(m.Pivot-close) / m.Pivot
	}

	// ATR 수축
	atrs := ATRSeries(bars, p.ATRPeriod)
	atrNow := atrs[len(atrs)-1]
	m.ATRRatio = NoBaseline
	if !math.IsNaN(atrNow) {
		m.ATR = atrNow
		base := atrNow
		if len(atrs) >= p.ATRBaseLen+2 {
			base = Median(atrs[len(atrs)-1-p.ATRBaseLen : len(atrs)-1])
		}
		if base > 0 && !math.IsNaN(base) {
			m.ATRRatio = atrNow / base
		}
	}

	// 거래량 수축
	m.VolRatio = NoBaseline
	fast, okFast := SMA(volumes, p.VolFast)
	slow, okSlow := SMA(volumes, p.VolSlow)
	if okFast && okSlow && slow > 0 {
		m.VolRatio = fast / slow
	}

	// 추세
	m.ROC20 = ROC(closes, 20)
	m.ROC60 = ROC(closes, 60)
	m.Volatility = Volatility(closes, p.VolatilityLen)

	sma50, ok50 := SMA(closes, 50)
	sma200, ok200 := SMA(closes, 200)
	sma50Prior, okPrior := SMAAt(closes, 50, len(closes)-5)
	m.SMA50, m.SMA200 = sma50, sma200
	m.Uptrend = ok50 && ok200 && okPrior && close > sma50 && sma50 > sma200 && sma50 > sma50Prior

	if len(bars) >= p.HighLookback {
		m.High52w = MaxHigh(bars, p.HighLookback)
		m.Near52wHigh = m.High52w > 0 && (m.High52w-close)/m.High52w <= p.NearHighPct
	}

	m.EMA4 = EMA(closes, 4)
	m.EMA9 = EMA(closes, 9)
	m.EMA18 = EMA(closes, 18)
	m.EMA50 = EMA(closes, 50)
	m.EMA200 = EMA(closes, 200)
	switch {
	case m.EMA4 > m.EMA9:
		m.EMATrend = "bullish"
	case m.EMA4 < m.EMA9:
		m.EMATrend = "bearish"
	default:
		m.EMATrend = "neutral"
	}
	m.AboveEMA9 = close > m.EMA9
	m.AboveEMA50 = close > m.EMA50
	m.AboveEMA200 = close > m.EMA200

	m.NR7 = NR7(bars)
	m.InsideDay = InsideDay(bars)
	return m
}

// Tags lists the pattern and trend labels for m
func Tags(m contracts.Metrics) []string {
	var tags []string
	if m.NR7 {
		tags = append(tags, "NR7")
	}
	if m.InsideDay {
		tags = append(tags, "INSIDE")
	}
	if m.Uptrend {
		tags = append(tags, "UPTREND")
	}
	if m.Near52wHigh {
		tags = append(tags, "NEAR_52W_HIGH")
	}
	return tags
}
