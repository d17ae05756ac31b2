package collector

import (
	"errors"
	"time"

	"github.com/wonny/momentumchaser/internal/contracts"
)

// ErrBudgetExceeded is the cancellation cause when a run outlives its budget
var ErrBudgetExceeded = errors.New("run budget exceeded")

// State is a step of the ingestion state machine
type State string

const (
	StateStart             State = "Start"
	StateResolvingUniverse State = "ResolvingUniverse"
	StateFetching          State = "Fetching"
	StateCommitting        State = "Committing"
	StateDone              State = "Done"
	StateAborted           State = "Aborted"
)

// RunStatus is the verdict of a finished run
type RunStatus string

const (
	RunSucceeded RunStatus = "Succeeded"
	RunFailed    RunStatus = "Failed"
)

// OutcomeStatus is what happened to one symbol
type OutcomeStatus string

const (
	OutcomeCommitted    OutcomeStatus = "Committed"
	OutcomeUpToDate     OutcomeStatus = "UpToDate"
	OutcomeNoNewData    OutcomeStatus = "NoNewData"
	OutcomeFailed       OutcomeStatus = "Failed"
	OutcomeNotAttempted OutcomeStatus = "NotAttempted"
)

// FetchJob is one symbol's pending work, never persisted
type FetchJob struct {
	Symbol string
	Range  contracts.DateRange
}

// SymbolOutcome records one symbol's result
type SymbolOutcome struct {
	Symbol    string              `json:"symbol"`
	Status    OutcomeStatus       `json:"status"`
	Range     contracts.DateRange `json:"range"`
	Fetched   int                 `json:"fetched"`
	Committed int                 `json:"committed"`
	Rejected  int                 `json:"rejected"`
	Err       error               `json:"-"`
}

// Current reports whether the symbol counts as current for the run verdict
func (o SymbolOutcome) Current() bool {
	return o.Status == OutcomeCommitted || o.Status == OutcomeUpToDate
}

// RunReport is the full account of one ingestion run
type RunReport struct {
	RunID       string          `json:"run_id"`
	Target      time.Time       `json:"target"`
	State       State           `json:"state"`
	Status      RunStatus       `json:"status"`
	Partial     bool            `json:"partial"`
	Transitions []State         `json:"transitions"`
	Outcomes    []SymbolOutcome `json:"outcomes"`
	AbortCause  string          `json:"abort_cause,omitempty"`
	StartedAt   time.Time       `json:"started_at"`
	FinishedAt  time.Time       `json:"finished_at"`
}

func (r *RunReport) transition(s State) {
	r.State = s
	r.Transitions = append(r.Transitions, s)
}

// Counts groups outcomes by status
func (r *RunReport) Counts() map[OutcomeStatus]int {
	counts := make(map[OutcomeStatus]int)
	for _, o := range r.Outcomes {
		counts[o.Status]++
	}
	return counts
}

// Outcome returns the outcome recorded for symbol
func (r *RunReport) Outcome(symbol string) (SymbolOutcome, bool) {
	for _, o := range r.Outcomes {
		if o.Symbol == symbol {
			return o, true
		}
	}
	return SymbolOutcome{}, false
}

// Duration is the wall time of the run
func (r *RunReport) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
