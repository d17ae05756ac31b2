package s2_signals

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/momentumchaser/internal/contracts"
)

// rising builds n bars with close growing by step, each with a 2% range
func rising(n int, start, step float64) contracts.Series {
	s := contracts.Series{Symbol: "UP"}
	day := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < n; i++ {
		c := start + step*float64(i)
		s.Bars = append(s.Bars, contracts.Bar{
			Symbol: "UP",
			Date:   day.AddDate(0, 0, i),
			Open:   c,
			High:   c * 1.01,
			Low:    c * 0.99,
			Close:  c,
			Volume: 200_000,
		})
	}
	return s
}

func TestBuilder_UptrendSeries(t *testing.T) {
	series := rising(260, 100, 1)
	m := NewBuilder(DefaultParams()).Build(series)

	last := series.Bars[259]
	assert.Equal(t, last.Date, m.LastDate)
	assert.Equal(t, 260, m.Bars)
	assert.Equal(t, 359.0, m.Close)

	assert.True(t, m.Uptrend)
	assert.True(t, m.Near52wHigh)
	assert.InDelta(t, 359*1.01, m.High52w, 1e-9)
	assert.InDelta(t, 359*1.01, m.Pivot, 1e-9)
	assert.InDelta(t, 0.01/1.01, m.DistToPivot, 1e-9)

	wantBox := (359*1.01 - 348*0.99) / 359
	assert.InDelta(t, wantBox, m.BoxSpan, 1e-9)

	assert.InDelta(t, 1.0, m.VolRatio, 1e-12, "flat volume")
	assert.Greater(t, m.ATRRatio, 1.0, "range grows with price")
	assert.Less(t, m.ATRRatio, 1.2)

	// 20-bar mean close × 200k / 1e7
	assert.InDelta(t, (349.5*200_000)/1e7, m.TradedValueCr, 1e-9)

	assert.InDelta(t, 20.0/339.0, m.ROC20, 1e-12)
	assert.Equal(t, "bullish", m.EMATrend)
	assert.True(t, m.AboveEMA9)
	assert.True(t, m.AboveEMA200)
	assert.Equal(t, []string{"UPTREND", "NEAR_52W_HIGH"}, Tags(m))
}

func TestBuilder_ShortHistoryKeepsSentinels(t *testing.T) {
	m := NewBuilder(DefaultParams()).Build(rising(10, 100, 1))

	assert.False(t, m.Uptrend)
	assert.False(t, m.Near52wHigh)
	assert.Zero(t, m.High52w)
	assert.Equal(t, NoBaseline, m.ATRRatio)
	assert.Equal(t, NoBaseline, m.VolRatio)
	assert.Zero(t, m.TradedValueCr)
	assert.False(t, math.IsNaN(m.ATR))
}

func TestBuilder_ZeroVolumeBaseline(t *testing.T) {
	series := rising(80, 100, 0.5)
	for i := range series.Bars {
		series.Bars[i].Volume = 0
	}

	m := NewBuilder(DefaultParams()).Build(series)
	assert.Equal(t, NoBaseline, m.VolRatio)
	assert.Zero(t, m.TradedValueCr)
}

func TestBuilder_Empty(t *testing.T) {
	m := NewBuilder(DefaultParams()).Build(contracts.Series{})
	assert.Equal(t, contracts.Metrics{}, m)
}

func TestBuilder_DoesNotMutateSeries(t *testing.T) {
	series := rising(230, 50, 0.25)
	before := append([]contracts.Bar(nil), series.Bars...)

	NewBuilder(DefaultParams()).Build(series)
	require.Equal(t, before, series.Bars)
}
