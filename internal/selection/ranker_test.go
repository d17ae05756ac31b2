package selection

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/momentumchaser/internal/contracts"
	"github.com/wonny/momentumchaser/pkg/logger"
)

func row(symbol string, score, box float64) contracts.RankedSymbol {
	return contracts.RankedSymbol{Symbol: symbol, Score: score, Metrics: contracts.Metrics{BoxSpan: box}}
}

func TestRanker_TotalOrder(t *testing.T) {
	rows := []contracts.RankedSymbol{
		row("B", 0.5, 0.05),
		row("A", 0.5, 0.05),
		row("C", 0.5, 0.03),
		row("D", 0.9, 0.20),
		row("E", 0.1, 0.01),
	}

	ranked := NewRanker(logger.Nop()).Rank(rows)

	var got []string
	for i, r := range ranked {
		got = append(got, r.Symbol)
		assert.Equal(t, i+1, r.Rank)
	}
	// score desc, box asc, symbol asc
	assert.Equal(t, []string{"D", "C", "A", "B", "E"}, got)
}

func TestRanker_InputOrderIrrelevant(t *testing.T) {
	a := []contracts.RankedSymbol{row("X", 0.4, 0.1), row("Y", 0.4, 0.1), row("Z", 0.4, 0.1)}
	b := []contracts.RankedSymbol{row("Z", 0.4, 0.1), row("X", 0.4, 0.1), row("Y", 0.4, 0.1)}

	r := NewRanker(logger.Nop())
	assert.Equal(t, r.Rank(a), r.Rank(b))
}

func TestRanker_Empty(t *testing.T) {
	assert.Empty(t, NewRanker(logger.Nop()).Rank(nil))
}
