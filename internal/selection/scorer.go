package selection

import (
	"fmt"
	"math"

	"github.com/wonny/momentumchaser/internal/contracts"
	"github.com/wonny/momentumchaser/internal/s2_signals"
	"github.com/wonny/momentumchaser/internal/strategyconfig"
)

// Scorer turns a symbol's metrics into one comparable number.
// Implementations fill m.Components and must return a finite score.
type Scorer interface {
	Name() string
	Score(series contracts.Series, m *contracts.Metrics) float64
}

// NewScorer picks the scorer named in the scan config
func NewScorer(cfg *strategyconfig.Config) (Scorer, error) {
	switch cfg.Scorer {
	case strategyconfig.ScorerSwing:
		return &SwingScorer{cfg: cfg.Swing}, nil
	case strategyconfig.ScorerMomentum:
		return &MomentumScorer{cfg: cfg.Momentum, volLen: cfg.Indicators.VolatilityLen}, nil
	default:
		return nil, fmt.Errorf("unknown scorer %q", cfg.Scorer)
	}
}

// SwingScorer rewards tight consolidation under a pivot, in an uptrend
type SwingScorer struct {
	cfg strategyconfig.Swing
}

func (s *SwingScorer) Name() string { return strategyconfig.ScorerSwing }

// Score = Σ weight·contraction + trend bonuses
func (s *SwingScorer) Score(_ contracts.Series, m *contracts.Metrics) float64 {
	w, caps := s.cfg.Weights, s.cfg.Caps

	c := contracts.ScoreComponents{
		Box:   w.Box * contraction(m.BoxSpan, caps.Box),
		ATR:   w.ATR * contraction(m.ATRRatio, caps.ATR),
		Vol:   w.Vol * contraction(m.VolRatio, caps.Vol),
		Pivot: w.Pivot * contraction(m.DistToPivot, caps.Pivot),
	}
	if m.Uptrend {
		c.Trend = s.cfg.Bonus.Uptrend
	}
	if m.Near52wHigh {
		c.Bonus = s.cfg.Bonus.NearHigh
	}
	m.Components = c

	return finite(c.Box + c.ATR + c.Vol + c.Pivot + c.Trend + c.Bonus)
}

// MomentumScorer is a weighted sum of volatility-normalized returns
type MomentumScorer struct {
	cfg    strategyconfig.Momentum
	volLen int
}

func (s *MomentumScorer) Name() string { return strategyconfig.ScorerMomentum }

func (s *MomentumScorer) Score(series contracts.Series, m *contracts.Metrics) float64 {
	closes := series.Closes()
	vol := s2_signals.Volatility(closes, s.volLen)

	total := 0.0
	for i, n := range s.cfg.LookbacksDays {
		total += s.cfg.Weights[i] * s2_signals.NormalizedROC(s2_signals.ROC(closes, n), vol, n)
	}
	m.Components = contracts.ScoreComponents{Trend: total}

	return finite(total)
}

// contraction is 1 when x is 0 and falls linearly to 0 at limit
func contraction(x, limit float64) float64 {
	if limit <= 0 {
		return 0
	}
	return clamp01(1 - math.Min(x, limit)/limit)
}

func clamp01(x float64) float64 {
	switch {
	case x < 0:
		return 0
	case x > 1:
		return 1
	default:
		return x
	}
}

func finite(x float64) float64 {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return x
}
