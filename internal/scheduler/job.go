package scheduler

import (
	"context"
	"time"
)

// historyLimit is how many results each job keeps
const historyLimit = 100

// Job is one unit of pipeline work the scheduler triggers
// ⭐ SSOT: 스케줄 작업 인터페이스는 여기서만
type Job interface {
	Name() string

	// Run must honour ctx: the scheduler cancels it on Stop
	Run(ctx context.Context) error

	// Schedule is a 6-field cron spec (with seconds) in the scheduler's timezone,
	// e.g. "0 30 18 * * MON-FRI", or a descriptor such as "@hourly"
	Schedule() string
}

// JobResult is the outcome of one trigger, retries included
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Attempts  int           `json:"attempts"`
	Success   bool          `json:"success"`
	Skipped   bool          `json:"skipped,omitempty"` // previous trigger still running
	Error     string        `json:"error,omitempty"`
}

// JobHistory keeps the most recent results of one job, oldest first
type JobHistory struct {
	Results []JobResult
}

// Add appends result, dropping the oldest past historyLimit
func (h *JobHistory) Add(result JobResult) {
	h.Results = append(h.Results, result)
	if over := len(h.Results) - historyLimit; over > 0 {
		h.Results = append([]JobResult(nil), h.Results[over:]...)
	}
}

// Latest returns up to n newest results
func (h *JobHistory) Latest(n int) []JobResult {
	if n > len(h.Results) {
		n = len(h.Results)
	}
	if n <= 0 {
		return []JobResult{}
	}
	return h.Results[len(h.Results)-n:]
}

// Failures counts failed results
func (h *JobHistory) Failures() int {
	n := 0
	for _, r := range h.Results {
		if !r.Success {
			n++
		}
	}
	return n
}

// SuccessRate is successes over total, 0 when empty
func (h *JobHistory) SuccessRate() float64 {
	if len(h.Results) == 0 {
		return 0.0
	}
	return float64(len(h.Results)-h.Failures()) / float64(len(h.Results))
}

// Stats summarizes the history of a job with the given schedule
func (h *JobHistory) Stats(jobName, schedule string) JobStats {
	stats := JobStats{
		JobName:      jobName,
		Schedule:     schedule,
		TotalRuns:    len(h.Results),
		FailureCount: h.Failures(),
		SuccessRate:  h.SuccessRate(),
	}
	stats.SuccessCount = stats.TotalRuns - stats.FailureCount

	for i := len(h.Results) - 1; i >= 0; i-- {
		r := h.Results[i]
		start := r.StartTime
		if stats.LastRun == nil {
			stats.LastRun = &start
		}
		if r.Success && stats.LastSuccess == nil {
			stats.LastSuccess = &start
		}
		if !r.Success && stats.LastFailure == nil {
			stats.LastFailure = &start
		}
		if stats.LastSuccess != nil && stats.LastFailure != nil {
			break
		}
	}
	return stats
}

// JobStats represents statistics for a job
type JobStats struct {
	JobName      string     `json:"job_name"`
	Schedule     string     `json:"schedule"`
	TotalRuns    int        `json:"total_runs"`
	SuccessCount int        `json:"success_count"`
	FailureCount int        `json:"failure_count"`
	SuccessRate  float64    `json:"success_rate"`
	LastRun      *time.Time `json:"last_run,omitempty"`
	LastSuccess  *time.Time `json:"last_success,omitempty"`
	LastFailure  *time.Time `json:"last_failure,omitempty"`
}
