package jobs

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/momentumchaser/internal/calendar"
	"github.com/wonny/momentumchaser/internal/contracts"
	"github.com/wonny/momentumchaser/internal/s0_data/quality"
	"github.com/wonny/momentumchaser/internal/s1_universe"
	"github.com/wonny/momentumchaser/pkg/config"
	"github.com/wonny/momentumchaser/pkg/httputil"
	"github.com/wonny/momentumchaser/pkg/logger"
)

type fakeFreshness struct {
	latest time.Time
	err    error
}

func (f *fakeFreshness) LatestDates(_ context.Context) (map[string]time.Time, error) {
	if f.latest.IsZero() {
		return map[string]time.Time{}, nil
	}
	return map[string]time.Time{"TCS": f.latest}, nil
}

func (f *fakeFreshness) LatestIngestedDate(_ context.Context) (time.Time, bool, error) {
	return f.latest, !f.latest.IsZero(), f.err
}

func (f *fakeFreshness) LatestScan(_ context.Context) (*contracts.ScanResult, *contracts.ScanRun, error) {
	return nil, nil, contracts.ErrNotFound
}

func TestFreshnessJob(t *testing.T) {
	// 금요일 저녁
	clock := func() time.Time { return friday.Add(18 * time.Hour) }
	universe := s1_universe.NewStaticResolver([]string{"TCS"})

	tests := []struct {
		name    string
		store   *fakeFreshness
		wantErr bool
	}{
		{"fresh", &fakeFreshness{latest: friday}, false},
		{"stale is logged, not returned", &fakeFreshness{latest: friday.AddDate(0, 0, -1)}, false},
		{"empty store", &fakeFreshness{}, false},
		{"store error", &fakeFreshness{err: errors.New("db gone")}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := quality.NewFreshnessChecker(tt.store, calendar.Weekdays(), time.UTC).WithClock(clock)
			err := NewFreshnessJob(checker, universe, logger.Nop()).Run(context.Background())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestUniverseJob(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		fmt.Fprint(w, "Company Name,Industry,Symbol,Series,ISIN Code\nTata Consultancy Services Ltd.,IT,TCS,EQ,INE467B01029\n")
	}))
	defer srv.Close()

	path := filepath.Join(t.TempDir(), "universe.txt")
	client := httputil.New(&config.Config{Fetch: config.FetchConfig{Timeout: 2 * time.Second}}, logger.Nop())
	job := NewUniverseJob(s1_universe.NewRefresher(client, path, logger.Nop(), srv.URL), logger.Nop())

	assert.Equal(t, "universe_refresh", job.Name())
	require.NoError(t, job.Run(context.Background()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "TCS\n", string(data))
}

func TestUniverseJob_NoSource(t *testing.T) {
	client := httputil.New(&config.Config{}, logger.Nop())
	job := NewUniverseJob(s1_universe.NewRefresher(client, filepath.Join(t.TempDir(), "u.txt"), logger.Nop()), logger.Nop())
	assert.Error(t, job.Run(context.Background()))
}
