package selection

import (
	"fmt"

	"github.com/wonny/momentumchaser/internal/contracts"
	"github.com/wonny/momentumchaser/internal/s0_data/quality"
	"github.com/wonny/momentumchaser/internal/strategyconfig"
	"github.com/wonny/momentumchaser/pkg/logger"
)

// Screener implements the hard cuts before scoring
// ⭐ SSOT: 스킵 사유 판정은 여기서만
type Screener struct {
	filters   strategyconfig.Filters
	validator *quality.Validator
}

// NewScreener creates a new screener
func NewScreener(filters strategyconfig.Filters, log *logger.Logger) *Screener {
	return &Screener{
		filters:   filters,
		validator: quality.NewValidator(log),
	}
}

// CheckSeries runs the cuts that need only raw bars
func (s *Screener) CheckSeries(series contracts.Series) *contracts.SkippedSymbol {
	if n := series.Len(); n < s.filters.MinHistory {
		return skip(series.Symbol, contracts.SkipInsufficientHistory, fmt.Sprintf("%d bars, need %d", n, s.filters.MinHistory))
	}
	if err := s.validator.CheckSeries(series); err != nil {
		return skip(series.Symbol, contracts.SkipMalformedData, err.Error())
	}
	return nil
}

// CheckMetrics runs the liquidity cuts
func (s *Screener) CheckMetrics(symbol string, m contracts.Metrics) *contracts.SkippedSymbol {
	if m.Close < s.filters.PriceFloor {
		return skip(symbol, contracts.SkipBelowPriceFloor, fmt.Sprintf("close %.2f < %.2f", m.Close, s.filters.PriceFloor))
	}
	if m.TradedValueCr < s.filters.MinTradedValueCr {
		return skip(symbol, contracts.SkipBelowTradedValue, fmt.Sprintf("%.2f cr < %.2f cr", m.TradedValueCr, s.filters.MinTradedValueCr))
	}
	return nil
}

func skip(symbol string, reason contracts.SkipReason, detail string) *contracts.SkippedSymbol {
	return &contracts.SkippedSymbol{Symbol: symbol, Reason: reason, Detail: detail}
}
