package quality

import (
	"errors"
	"sort"

	"github.com/wonny/momentumchaser/internal/contracts"
	"github.com/wonny/momentumchaser/pkg/logger"
)

// Validator checks fetched bars before they reach the store
// ⭐ SSOT: S0 → 저장 전 바 검증
type Validator struct {
	logger *logger.Logger
}

// NewValidator creates a new Validator
func NewValidator(log *logger.Logger) *Validator {
	return &Validator{logger: log}
}

// Result is the outcome of validating one symbol's batch
type Result struct {
	Valid    []contracts.Bar
	Rejected []*contracts.DataIntegrityError
}

// Filter splits bars into valid and rejected.
// Valid bars come back sorted by date with one bar per date; a later
// duplicate replaces an earlier one. Rejected bars are logged, never written.
func (v *Validator) Filter(symbol string, bars []contracts.Bar) Result {
	var res Result
	byDate := make(map[int64]int, len(bars))

	for _, b := range bars {
		if b.Symbol == "" {
			b.Symbol = symbol
		}
		b.Date = contracts.NormalizeDate(b.Date)

		err := b.Validate()
		if err == nil && b.Symbol != symbol {
			err = &contracts.DataIntegrityError{Symbol: b.Symbol, Date: b.Date, Reason: "symbol mismatch"}
		}
		if err != nil {
			var die *contracts.DataIntegrityError
			if errors.As(err, &die) {
				res.Rejected = append(res.Rejected, die)
			}
			v.logger.WithSymbol(symbol).WithError(err).Warn("Rejected bar")
			continue
		}

		key := b.Date.Unix()
		if i, dup := byDate[key]; dup {
			res.Valid[i] = b
			continue
		}
		byDate[key] = len(res.Valid)
		res.Valid = append(res.Valid, b)
	}

	sort.Slice(res.Valid, func(i, j int) bool {
		return res.Valid[i].Date.Before(res.Valid[j].Date)
	})
	return res
}

// CheckSeries returns the first stored bar that breaks the invariants
func (v *Validator) CheckSeries(series contracts.Series) error {
	var prev contracts.Bar
	for i, b := range series.Bars {
		if err := b.Validate(); err != nil {
			return err
		}
		if i > 0 && !b.Date.After(prev.Date) {
			return &contracts.DataIntegrityError{Symbol: b.Symbol, Date: b.Date, Reason: "dates out of order"}
		}
		prev = b
	}
	return nil
}
