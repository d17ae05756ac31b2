package s2_signals

import "math"

// ROC is the n-bar rate of change of the last close, 0 without enough history
func ROC(closes []float64, n int) float64 {
	if n <= 0 || len(closes) < n+1 {
		return 0
	}
	past := closes[len(closes)-1-n]
	if past == 0 {
		return 0
	}
	return (closes[len(closes)-1] - past) / past
}

// Volatility is the sample standard deviation of the last n daily returns
func Volatility(closes []float64, n int) float64 {
	if n < 2 || len(closes) < n+1 {
		return 0
	}

	returns := make([]float64, 0, n)
	for i := len(closes) - n; i < len(closes); i++ {
		if closes[i-1] == 0 {
			continue
		}
		returns = append(returns, closes[i]/closes[i-1]-1)
	}
	if len(returns) < 2 {
		return 0
	}

	mean := Mean(returns)
	ss := 0.0
	for _, r := range returns {
		ss += (r - mean) * (r - mean)
	}
	return math.Sqrt(ss / float64(len(returns)-1))
}

// NormalizedROC scales an n-bar return by the volatility expected over n bars
// and squashes it into (-1, 1) with tanh
func NormalizedROC(roc, vol float64, n int) float64 {
	if vol <= 0 || n <= 0 {
		return 0
	}
	return math.Tanh(roc / (vol * math.Sqrt(float64(n))))
}
