package s2_signals

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/momentumchaser/internal/contracts"
)

func mkBars(hl [][2]float64) []contracts.Bar {
	bars := make([]contracts.Bar, len(hl))
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, v := range hl {
		mid := (v[0] + v[1]) / 2
		bars[i] = contracts.Bar{Symbol: "X", Date: start.AddDate(0, 0, i), Open: mid, High: v[0], Low: v[1], Close: mid, Volume: 100}
	}
	return bars
}

func TestSMA(t *testing.T) {
	values := []float64{1, 2, 3, 4, 5}

	v, ok := SMA(values, 2)
	assert.True(t, ok)
	assert.Equal(t, 4.5, v)

	v, ok = SMAAt(values, 3, 2)
	assert.True(t, ok)
	assert.Equal(t, 2.0, v)

	_, ok = SMA(values, 6)
	assert.False(t, ok)
	_, ok = SMAAt(values, 3, 1)
	assert.False(t, ok)
}

func TestEMA(t *testing.T) {
	assert.Equal(t, 0.0, EMA(nil, 5))
	assert.Equal(t, 7.0, EMA([]float64{7, 7, 7}, 3))

	// alpha = 0.5: 1 → 1.5 → 2.25
	assert.InDelta(t, 2.25, EMA([]float64{1, 2, 3}, 3), 1e-12)
}

func TestATRSeries(t *testing.T) {
	bars := []contracts.Bar{
		{High: 10, Low: 8, Close: 9},
		{High: 12, Low: 9, Close: 11},  // tr = max(3, 3, 0) = 3
		{High: 11, Low: 10, Close: 10}, // tr = max(1, 0, 1) = 1
	}

	tr := TrueRanges(bars)
	assert.True(t, math.IsNaN(tr[0]))
	assert.Equal(t, []float64{3, 1}, tr[1:])

	atr := ATRSeries(bars, 2)
	assert.True(t, math.IsNaN(atr[0]))
	assert.True(t, math.IsNaN(atr[1]))
	assert.Equal(t, 2.0, atr[2])
}

func TestMedian(t *testing.T) {
	assert.Equal(t, 2.0, Median([]float64{3, 1, 2}))
	assert.Equal(t, 2.5, Median([]float64{4, 1, 3, 2}))
	assert.Equal(t, 2.0, Median([]float64{math.NaN(), 2}))
	assert.True(t, math.IsNaN(Median(nil)))
}

func TestHighLowWindow(t *testing.T) {
	bars := mkBars([][2]float64{{20, 1}, {12, 9}, {11, 10}})

	assert.Equal(t, 12.0, MaxHigh(bars, 2))
	assert.Equal(t, 9.0, MinLow(bars, 2))
	assert.Equal(t, 20.0, MaxHigh(bars, 10))
	assert.Equal(t, 0.0, MaxHigh(nil, 3))
}

func TestNR7(t *testing.T) {
	narrowLast := mkBars([][2]float64{{10, 5}, {10, 6}, {10, 4}, {10, 7}, {10, 5}, {10, 6}, {10, 8}})
	assert.True(t, NR7(narrowLast))

	tie := mkBars([][2]float64{{10, 8}, {10, 6}, {10, 4}, {10, 7}, {10, 5}, {10, 6}, {10, 8}})
	assert.True(t, NR7(tie), "ties count as narrowest")

	wide := mkBars([][2]float64{{10, 9}, {10, 6}, {10, 4}, {10, 7}, {10, 5}, {10, 6}, {10, 8}})
	assert.False(t, NR7(wide))

	assert.False(t, NR7(narrowLast[:6]))
}

func TestInsideDay(t *testing.T) {
	assert.True(t, InsideDay(mkBars([][2]float64{{10, 5}, {9, 6}})))
	assert.False(t, InsideDay(mkBars([][2]float64{{10, 5}, {10, 6}})), "equal high is not inside")
	assert.False(t, InsideDay(mkBars([][2]float64{{10, 5}})))
}

func TestROCAndVolatility(t *testing.T) {
	closes := []float64{100, 110, 121}

	assert.InDelta(t, 0.21, ROC(closes, 2), 1e-12)
	assert.Equal(t, 0.0, ROC(closes, 3))

	// constant 10% returns have no dispersion
	assert.InDelta(t, 0.0, Volatility(closes, 2), 1e-12)
	assert.Equal(t, 0.0, Volatility(closes, 5))

	assert.Greater(t, Volatility([]float64{100, 110, 99, 120}, 3), 0.0)
}

func TestNormalizedROC(t *testing.T) {
	assert.Equal(t, 0.0, NormalizedROC(0.2, 0, 20))

	up := NormalizedROC(0.2, 0.02, 20)
	down := NormalizedROC(-0.2, 0.02, 20)
	assert.Greater(t, up, 0.0)
	assert.Less(t, up, 1.0)
	assert.InDelta(t, -up, down, 1e-12)
}
