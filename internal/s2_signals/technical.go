package s2_signals

import (
	"math"
	"sort"

	"github.com/wonny/momentumchaser/internal/contracts"
)

// ⭐ SSOT: 기술적 지표 계산은 여기서만
// All functions read the tail of chronological slices and never look past
// the last element.

// Mean returns the arithmetic mean of values, 0 for none
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// SMA returns the mean of the last n values
func SMA(values []float64, n int) (float64, bool) {
	return SMAAt(values, n, len(values)-1)
}

// SMAAt returns the mean of the n values ending at index end
func SMAAt(values []float64, n, end int) (float64, bool) {
	if n <= 0 || end < n-1 || end >= len(values) {
		return 0, false
	}
	return Mean(values[end-n+1 : end+1]), true
}

// EMA returns the last value of the exponential moving average with span n,
// seeded with the first value (alpha = 2/(n+1), no bias adjustment)
func EMA(values []float64, n int) float64 {
	if len(values) == 0 || n <= 0 {
		return 0
	}
	alpha := 2.0 / float64(n+1)
	ema := values[0]
	for _, v := range values[1:] {
		ema = alpha*v + (1-alpha)*ema
	}
	return ema
}

// TrueRanges returns the true range per bar. The first bar has no previous
// close, so its entry is NaN.
func TrueRanges(bars []contracts.Bar) []float64 {
	tr := make([]float64, len(bars))
	for i, b := range bars {
		if i == 0 {
			tr[i] = math.NaN()
			continue
		}
		prev := bars[i-1].Close
		tr[i] = math.Max(b.High-b.Low, math.Max(math.Abs(b.High-prev), math.Abs(b.Low-prev)))
	}
	return tr
}

// ATRSeries is the simple n-bar mean of true range; NaN until n ranges exist
func ATRSeries(bars []contracts.Bar, n int) []float64 {
	tr := TrueRanges(bars)
	out := make([]float64, len(bars))
	for i := range out {
		out[i] = math.NaN()
		if i < n || n <= 0 {
			continue
		}
		out[i] = Mean(tr[i-n+1 : i+1])
	}
	return out
}

// Median returns the median of the finite values, NaN when there are none
func Median(values []float64) float64 {
	finite := make([]float64, 0, len(values))
	for _, v := range values {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			finite = append(finite, v)
		}
	}
	if len(finite) == 0 {
		return math.NaN()
	}
	sort.Float64s(finite)
	mid := len(finite) / 2
	if len(finite)%2 == 1 {
		return finite[mid]
	}
	return (finite[mid-1] + finite[mid]) / 2
}

// MaxHigh returns the highest high of the last n bars
func MaxHigh(bars []contracts.Bar, n int) float64 {
	bars = tail(bars, n)
	if len(bars) == 0 {
		return 0
	}
	max := bars[0].High
	for _, b := range bars[1:] {
		max = math.Max(max, b.High)
	}
	return max
}

// MinLow returns the lowest low of the last n bars
func MinLow(bars []contracts.Bar, n int) float64 {
	bars = tail(bars, n)
	if len(bars) == 0 {
		return 0
	}
	min := bars[0].Low
	for _, b := range bars[1:] {
		min = math.Min(min, b.Low)
	}
	return min
}

// NR7 reports whether the last bar has the narrowest range of the last seven
func NR7(bars []contracts.Bar) bool {
	if len(bars) < 7 {
		return false
	}
	window := tail(bars, 7)
	last := window[6].Range()
	for _, b := range window[:6] {
		if b.Range() < last {
			return false
		}
	}
	return true
}

// InsideDay reports whether the last bar's range sits strictly inside the previous bar's
func InsideDay(bars []contracts.Bar) bool {
	if len(bars) < 2 {
		return false
	}
	prev, last := bars[len(bars)-2], bars[len(bars)-1]
	return last.High < prev.High && last.Low > prev.Low
}

func tail(bars []contracts.Bar, n int) []contracts.Bar {
	if n <= 0 {
		return nil
	}
	if len(bars) <= n {
		return bars
	}
	return bars[len(bars)-n:]
}
