package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/momentumchaser/internal/contracts"
	"github.com/wonny/momentumchaser/pkg/logger"
)

type fakeJob struct {
	name  string
	calls atomic.Int32
	errs  []error // returned per call, nil once exhausted
}

func (j *fakeJob) Name() string     { return j.name }
func (j *fakeJob) Schedule() string { return "0 0 18 * * MON-FRI" }
func (j *fakeJob) Run(ctx context.Context) error {
	n := int(j.calls.Add(1))
	if n <= len(j.errs) {
		return j.errs[n-1]
	}
	return nil
}

func newScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s := New(logger.Nop(), Options{MaxRetries: 2})
	t.Cleanup(s.Stop)
	return s
}

func TestRunNow_Retries(t *testing.T) {
	tests := []struct {
		name      string
		errs      []error
		wantCalls int32
		success   bool
	}{
		{"first try", nil, 1, true},
		{"recovers", []error{errors.New("502")}, 2, true},
		{"gives up", []error{errors.New("a"), errors.New("b"), errors.New("c")}, 3, false},
		{"auth expired is final", []error{fmt.Errorf("ingest: %w", contracts.ErrAuthExpired)}, 1, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newScheduler(t)
			job := &fakeJob{name: "j", errs: tc.errs}
			require.NoError(t, s.AddJob(job))

			res, err := s.RunNow(context.Background(), "j")
			assert.Equal(t, tc.success, err == nil)
			assert.Equal(t, tc.success, res.Success)
			assert.Equal(t, tc.wantCalls, job.calls.Load())
			assert.Equal(t, int(tc.wantCalls), res.Attempts)

			history, err := s.GetJobHistory("j")
			require.NoError(t, err)
			require.Len(t, history.Results, 1)
			assert.Equal(t, tc.success, history.Results[0].Success)
		})
	}
}

func TestRunNow_CanceledStopsRetrying(t *testing.T) {
	s := newScheduler(t)
	job := &fakeJob{name: "j", errs: []error{context.Canceled, context.Canceled, context.Canceled}}
	require.NoError(t, s.AddJob(job))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.RunNow(ctx, "j")
	assert.Error(t, err)
	assert.Equal(t, int32(1), job.calls.Load())
}

func TestAddJob(t *testing.T) {
	s := newScheduler(t)

	require.NoError(t, s.AddJob(&fakeJob{name: "b"}))
	require.NoError(t, s.AddJob(&fakeJob{name: "a"}))
	assert.Error(t, s.AddJob(&fakeJob{name: "a"}), "duplicate")

	assert.Equal(t, []string{"a", "b"}, s.GetAllJobs())

	require.NoError(t, s.RemoveJob("a"))
	assert.Equal(t, []string{"b"}, s.GetAllJobs())
	assert.Error(t, s.RemoveJob("a"))

	_, err := s.RunNow(context.Background(), "missing")
	assert.Error(t, err)
}

type badSchedule struct{ fakeJob }

func (*badSchedule) Schedule() string { return "every tuesday" }

func TestAddJob_InvalidSchedule(t *testing.T) {
	s := newScheduler(t)
	assert.Error(t, s.AddJob(&badSchedule{fakeJob{name: "x"}}))
}

func TestGetJobStats(t *testing.T) {
	s := newScheduler(t)
	require.NoError(t, s.AddJob(&fakeJob{name: "ok"}))
	require.NoError(t, s.AddJob(&fakeJob{name: "bad", errs: []error{contracts.ErrAuthExpired}}))

	_, _ = s.RunNow(context.Background(), "ok")
	_, _ = s.RunNow(context.Background(), "bad")

	stats := s.GetJobStats()
	assert.Equal(t, 1, stats["ok"].SuccessCount)
	assert.NotNil(t, stats["ok"].LastSuccess)
	assert.Equal(t, 1, stats["bad"].FailureCount)
	assert.NotNil(t, stats["bad"].LastFailure)
	assert.Equal(t, 0.0, stats["bad"].SuccessRate)
}

func TestJobHistory_KeepsLast100(t *testing.T) {
	h := &JobHistory{}
	for i := 0; i < 120; i++ {
		h.Add(JobResult{Attempts: i, Success: i%2 == 0})
	}
	assert.Len(t, h.Results, 100)
	assert.Equal(t, 20, h.Results[0].Attempts)
	assert.Len(t, h.Latest(5), 5)
	assert.InDelta(t, 0.5, h.SuccessRate(), 1e-9)
}

func TestJobHistory_Stats(t *testing.T) {
	t0 := time.Date(2025, 3, 14, 13, 0, 0, 0, time.UTC)
	h := &JobHistory{}
	h.Add(JobResult{StartTime: t0, Success: true})
	h.Add(JobResult{StartTime: t0.Add(time.Hour), Success: false, Error: "boom"})
	h.Add(JobResult{StartTime: t0.Add(2 * time.Hour), Success: true})

	stats := h.Stats("daily_pipeline", "0 30 18 * * MON-FRI")
	assert.Equal(t, 3, stats.TotalRuns)
	assert.Equal(t, 2, stats.SuccessCount)
	assert.Equal(t, 1, stats.FailureCount)
	require.NotNil(t, stats.LastRun)
	assert.Equal(t, t0.Add(2*time.Hour), *stats.LastRun)
	assert.Equal(t, t0.Add(2*time.Hour), *stats.LastSuccess)
	assert.Equal(t, t0.Add(time.Hour), *stats.LastFailure)

	empty := (&JobHistory{}).Stats("x", "@hourly")
	assert.Nil(t, empty.LastRun)
	assert.Equal(t, 0.0, empty.SuccessRate)
}
