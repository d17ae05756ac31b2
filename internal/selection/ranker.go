package selection

import (
	"sort"

	"github.com/wonny/momentumchaser/internal/contracts"
	"github.com/wonny/momentumchaser/pkg/logger"
)

// Ranker orders scored symbols
// ⭐ SSOT: 랭킹 순서 규칙은 여기서만
type Ranker struct {
	logger *logger.Logger
}

// NewRanker creates a new ranker
func NewRanker(log *logger.Logger) *Ranker {
	return &Ranker{logger: log}
}

// Rank sorts rows in place and assigns 1-based ranks.
// Order: score desc, box span asc (tighter box first), symbol asc.
func (r *Ranker) Rank(rows []contracts.RankedSymbol) []contracts.RankedSymbol {
	sort.SliceStable(rows, func(i, j int) bool {
		return less(rows[i], rows[j])
	})
	for i := range rows {
		rows[i].Rank = i + 1
	}

	if len(rows) > 0 {
		r.logger.WithFields(map[string]interface{}{
			"total":     len(rows),
			"top_score": rows[0].Score,
			"top":       rows[0].Symbol,
		}).Info("Ranking completed")
	}
	return rows
}

func less(a, b contracts.RankedSymbol) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	if a.Metrics.BoxSpan != b.Metrics.BoxSpan {
		return a.Metrics.BoxSpan < b.Metrics.BoxSpan
	}
	return a.Symbol < b.Symbol
}
