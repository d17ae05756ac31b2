package kite

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/momentumchaser/internal/contracts"
	"github.com/wonny/momentumchaser/pkg/config"
	"github.com/wonny/momentumchaser/pkg/httputil"
	"github.com/wonny/momentumchaser/pkg/logger"
)

const instrumentCSV = `instrument_token,exchange_token,tradingsymbol,name,last_price,expiry,strike,tick_size,lot_size,instrument_type,segment,exchange
738561,2885,RELIANCE,RELIANCE INDUSTRIES,0,,0,0.05,1,EQ,NSE,NSE
2953217,11536,TCS,TATA CONSULTANCY SERV,0,,0,0.05,1,EQ,NSE,NSE
12345,678,NIFTY24DECFUT,NIFTY,0,2024-12-26,0,0.05,50,FUT,NFO-FUT,NFO
`

type countingGate struct{ n atomic.Int32 }

func (g *countingGate) Wait(ctx context.Context) error {
	g.n.Add(1)
	return ctx.Err()
}

// fakeKite serves the instrument master plus a handler for everything else
type fakeKite struct {
	mu       sync.Mutex
	requests []*http.Request
	handle   func(w http.ResponseWriter, r *http.Request)
}

func (f *fakeKite) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.Clone(context.Background()))
	f.mu.Unlock()

	if r.URL.Path == "/instruments/NSE" {
		w.Header().Set("Content-Type", "text/csv")
		_, _ = fmt.Fprint(w, instrumentCSV)
		return
	}
	f.handle(w, r)
}

func (f *fakeKite) historicalCalls() []*http.Request {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []*http.Request
	for _, r := range f.requests {
		if strings.HasPrefix(r.URL.Path, "/instruments/historical/") {
			out = append(out, r)
		}
	}
	return out
}

func newTestClient(t *testing.T, handle func(w http.ResponseWriter, r *http.Request), maxDays int) (*Client, *fakeKite, *countingGate) {
	t.Helper()

	fake := &fakeKite{handle: handle}
	server := httptest.NewServer(fake)
	t.Cleanup(server.Close)

	cfg := &config.Config{
		Fetch: config.FetchConfig{
			Timeout:        2 * time.Second,
			MaxRetries:     2,
			InitialBackoff: time.Millisecond,
			MaxBackoff:     2 * time.Millisecond,
		},
	}
	gate := &countingGate{}
	cred := Credential{APIKey: "key", AccessToken: "secret"}
	kcfg := config.KiteConfig{BaseURL: server.URL, Exchange: "NSE", MaxDaysPerRequest: maxDays}

	return NewClient(kcfg, cred, httputil.New(cfg, logger.Nop()), gate, logger.Nop()), fake, gate
}

func candlesJSON(days ...string) string {
	rows := make([]string, 0, len(days))
	for i, d := range days {
		rows = append(rows, fmt.Sprintf(`["%sT00:00:00+0530", %d, %d, %d, %d, %d]`, d, 100+i, 110+i, 95+i, 105+i, 1000*(i+1)))
	}
	return `{"status":"success","data":{"candles":[` + strings.Join(rows, ",") + `]}}`
}

func date(s string) time.Time {
	t, _ := contracts.ParseDate(s)
	return t
}

func TestFetch_ParsesCandles(t *testing.T) {
	client, fake, gate := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, candlesJSON("2025-01-06", "2025-01-07"))
	}, 0)

	series, err := client.Fetch(context.Background(), "RELIANCE", contracts.NewDateRange(date("2025-01-06"), date("2025-01-07")))
	require.NoError(t, err)
	require.Len(t, series.Bars, 2)

	first := series.Bars[0]
	assert.Equal(t, "RELIANCE", first.Symbol)
	assert.Equal(t, date("2025-01-06"), first.Date, "IST timestamp keeps its exchange date")
	assert.Equal(t, 100.0, first.Open)
	assert.Equal(t, 110.0, first.High)
	assert.Equal(t, 95.0, first.Low)
	assert.Equal(t, 105.0, first.Close)
	assert.Equal(t, int64(1000), first.Volume)

	calls := fake.historicalCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "/instruments/historical/738561/day", calls[0].URL.Path)
	assert.Equal(t, "2025-01-06", calls[0].URL.Query().Get("from"))
	assert.Equal(t, "2025-01-07", calls[0].URL.Query().Get("to"))
	assert.Equal(t, "3", calls[0].Header.Get("X-Kite-Version"))
	assert.Equal(t, "token key:secret", calls[0].Header.Get("Authorization"))

	// instrument master + one candle request
	assert.Equal(t, int32(2), gate.n.Load())
}

func TestFetch_DropsBarsOutsideWindow(t *testing.T) {
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, candlesJSON("2025-01-03", "2025-01-06", "2025-01-08"))
	}, 0)

	series, err := client.Fetch(context.Background(), "TCS", contracts.NewDateRange(date("2025-01-06"), date("2025-01-07")))
	require.NoError(t, err)
	require.Len(t, series.Bars, 1)
	assert.Equal(t, date("2025-01-06"), series.Bars[0].Date)
}

func TestFetch_EmptyWindowMakesNoCalls(t *testing.T) {
	client, fake, gate := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("unexpected request")
	}, 0)

	series, err := client.Fetch(context.Background(), "TCS", contracts.DateRange{})
	require.NoError(t, err)
	assert.True(t, series.Empty())
	assert.Empty(t, fake.requests)
	assert.Zero(t, gate.n.Load())
}

func TestFetch_ChunksLongWindows(t *testing.T) {
	client, fake, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, candlesJSON(r.URL.Query().Get("from")))
	}, 10)

	window := contracts.NewDateRange(date("2025-01-01"), date("2025-01-25"))
	series, err := client.Fetch(context.Background(), "TCS", window)
	require.NoError(t, err)

	calls := fake.historicalCalls()
	require.Len(t, calls, 3)
	assert.Equal(t, "2025-01-01", calls[0].URL.Query().Get("from"))
	assert.Equal(t, "2025-01-10", calls[0].URL.Query().Get("to"))
	assert.Equal(t, "2025-01-11", calls[1].URL.Query().Get("from"))
	assert.Equal(t, "2025-01-21", calls[2].URL.Query().Get("from"))
	assert.Equal(t, "2025-01-25", calls[2].URL.Query().Get("to"))

	require.Len(t, series.Bars, 3)
	assert.True(t, series.Bars[0].Date.Before(series.Bars[1].Date))
}

func TestFetch_AuthExpired(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"403 token exception", http.StatusForbidden, `{"status":"error","error_type":"TokenException","message":"Incorrect api_key or access_token."}`},
		{"401 without body", http.StatusUnauthorized, ``},
		{"token exception in 200 envelope", http.StatusOK, `{"status":"error","error_type":"TokenException","message":"expired"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, fake, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = fmt.Fprint(w, tt.body)
			}, 0)

			_, err := client.Fetch(context.Background(), "TCS", contracts.NewDateRange(date("2025-01-06"), date("2025-01-06")))
			require.Error(t, err)
			assert.True(t, contracts.IsAuthExpired(err), "got %v", err)
			assert.Len(t, fake.historicalCalls(), 1, "auth failures are never retried")
		})
	}
}

func TestFetch_TransientAfterRetries(t *testing.T) {
	client, fake, gate := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}, 0)

	_, err := client.Fetch(context.Background(), "TCS", contracts.NewDateRange(date("2025-01-06"), date("2025-01-06")))
	require.Error(t, err)
	assert.True(t, errors.Is(err, contracts.ErrTransient))

	var tf *contracts.TransientFailure
	require.ErrorAs(t, err, &tf)
	assert.Equal(t, "TCS", tf.Symbol)
	assert.Equal(t, 3, tf.Attempts)
	assert.Len(t, fake.historicalCalls(), 3)
	assert.Equal(t, int32(4), gate.n.Load(), "every retry passes the gate")
}

func TestFetch_RecoversFromTransient(t *testing.T) {
	var hits atomic.Int32
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if hits.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = fmt.Fprint(w, candlesJSON("2025-01-06"))
	}, 0)

	series, err := client.Fetch(context.Background(), "TCS", contracts.NewDateRange(date("2025-01-06"), date("2025-01-06")))
	require.NoError(t, err)
	assert.Len(t, series.Bars, 1)
}

func TestFetch_UnknownSymbol(t *testing.T) {
	client, fake, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("unexpected request")
	}, 0)

	_, err := client.Fetch(context.Background(), "NIFTY24DECFUT", contracts.NewDateRange(date("2025-01-06"), date("2025-01-06")))
	assert.ErrorIs(t, err, contracts.ErrUnknownSymbol)
	assert.Empty(t, fake.historicalCalls())
}

func TestFetch_Canceled(t *testing.T) {
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, candlesJSON("2025-01-06"))
	}, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Fetch(ctx, "TCS", contracts.NewDateRange(date("2025-01-06"), date("2025-01-06")))
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, errors.Is(err, contracts.ErrTransient))
}

func TestInstruments_LoadedOnce(t *testing.T) {
	client, fake, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, candlesJSON("2025-01-06"))
	}, 0)

	window := contracts.NewDateRange(date("2025-01-06"), date("2025-01-06"))
	for _, sym := range []string{"TCS", "RELIANCE", "TCS"} {
		_, err := client.Fetch(context.Background(), sym, window)
		require.NoError(t, err)
	}

	masters := 0
	for _, r := range fake.requests {
		if r.URL.Path == "/instruments/NSE" {
			masters++
		}
	}
	assert.Equal(t, 1, masters)

	instruments, err := client.Instruments(context.Background())
	require.NoError(t, err)
	assert.Len(t, instruments, 2, "derivatives are filtered out")
	assert.Equal(t, int64(2953217), instruments["TCS"].Token)
}

func TestProfile(t *testing.T) {
	client, _, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user/profile", r.URL.Path)
		_, _ = fmt.Fprint(w, `{"status":"success","data":{"user_id":"AB1234","user_name":"Test","email":"t@example.com","broker":"ZERODHA"}}`)
	}, 0)

	p, err := client.Profile(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "AB1234", p.UserID)
	assert.Equal(t, "ZERODHA", p.Broker)
}

func TestSplitWindow(t *testing.T) {
	w := contracts.NewDateRange(date("2025-01-01"), date("2025-01-05"))

	assert.Equal(t, []contracts.DateRange{w}, splitWindow(w, 0))
	assert.Equal(t, []contracts.DateRange{w}, splitWindow(w, 5))
	assert.Nil(t, splitWindow(contracts.DateRange{}, 5))

	parts := splitWindow(w, 2)
	require.Len(t, parts, 3)
	assert.Equal(t, date("2025-01-05"), parts[2].From)
	assert.Equal(t, date("2025-01-05"), parts[2].To)
}
