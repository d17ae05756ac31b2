package kite

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/wonny/momentumchaser/internal/contracts"
	"github.com/wonny/momentumchaser/pkg/config"
	"github.com/wonny/momentumchaser/pkg/httputil"
	"github.com/wonny/momentumchaser/pkg/logger"
	"github.com/wonny/momentumchaser/pkg/ratelimit"
)

const apiVersion = "3"

// Client handles communication with the Kite Connect API
// ⭐ SSOT: Kite API 호출은 이 클라이언트에서만
//
// A Client is scoped to one run: it holds that run's credential and the
// instrument master loaded for it. Every request, retries included, passes
// through the gate handed to NewClient.
type Client struct {
	http   *httputil.Client
	logger *logger.Logger
	cfg    config.KiteConfig
	cred   Credential

	// Instrument master, loaded on first use
	instruments map[string]Instrument
	instMu      sync.Mutex
}

// NewClient creates a Kite client bound to one credential and one shared gate
func NewClient(cfg config.KiteConfig, cred Credential, httpClient *httputil.Client, gate ratelimit.Gate, log *logger.Logger) *Client {
	if cfg.MaxDaysPerRequest <= 0 {
		cfg.MaxDaysPerRequest = 2000
	}
	if cfg.Exchange == "" {
		cfg.Exchange = "NSE"
	}

	return &Client{
		http:   httpClient.WithGate(gate),
		logger: log,
		cfg:    cfg,
		cred:   cred,
	}
}

// Fetch returns the daily bars of symbol inside window, oldest first.
//
// Errors: contracts.ErrAuthExpired on a rejected token, *contracts.TransientFailure
// once retries are exhausted, contracts.ErrUnknownSymbol when the instrument
// master has no such symbol.
func (c *Client) Fetch(ctx context.Context, symbol string, window contracts.DateRange) (contracts.Series, error) {
	series := contracts.Series{Symbol: symbol}
	if window.Empty() {
		return series, nil
	}

	inst, err := c.instrument(ctx, symbol)
	if err != nil {
		return series, err
	}

	for _, chunk := range splitWindow(window, c.cfg.MaxDaysPerRequest) {
		bars, err := c.fetchChunk(ctx, symbol, inst.Token, chunk)
		if err != nil {
			return series, err
		}
		series.Bars = append(series.Bars, bars...)
	}

	sort.SliceStable(series.Bars, func(i, j int) bool {
		return series.Bars[i].Date.Before(series.Bars[j].Date)
	})

	c.logger.WithFields(map[string]interface{}{
		"symbol": symbol,
		"from":   window.From.Format(contracts.DateLayout),
		"to":     window.To.Format(contracts.DateLayout),
		"bars":   len(series.Bars),
	}).Debug("Fetched historical candles")

	return series, nil
}

// fetchChunk requests one window no longer than the per-request cap
func (c *Client) fetchChunk(ctx context.Context, symbol string, token int64, window contracts.DateRange) ([]contracts.Bar, error) {
	q := url.Values{}
	q.Set("from", window.From.Format(contracts.DateLayout))
	q.Set("to", window.To.Format(contracts.DateLayout))
	path := fmt.Sprintf("/instruments/historical/%d/day?%s", token, q.Encode())

	body, err := c.get(ctx, symbol, path)
	if err != nil {
		return nil, err
	}

	var data historicalData
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("%s: decode candles: %w", symbol, err)
	}

	bars := make([]contracts.Bar, 0, len(data.Candles))
	for _, cd := range data.Candles {
		date := contracts.NormalizeDate(cd.Time)
		if !window.Contains(date) {
			continue
		}
		bars = append(bars, contracts.Bar{
			Symbol: symbol,
			Date:   date,
			Open:   cd.Open,
			High:   cd.High,
			Low:    cd.Low,
			Close:  cd.Close,
			Volume: cd.Volume,
		})
	}
	return bars, nil
}

// Profile calls /user/profile, the cheapest way to prove the token works
func (c *Client) Profile(ctx context.Context) (*Profile, error) {
	body, err := c.get(ctx, "", "/user/profile")
	if err != nil {
		return nil, err
	}

	var p Profile
	if err := json.Unmarshal(body, &p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return &p, nil
}

// Instruments returns the loaded instrument master, loading it if needed
func (c *Client) Instruments(ctx context.Context) (map[string]Instrument, error) {
	c.instMu.Lock()
	defer c.instMu.Unlock()

	if c.instruments != nil {
		return c.instruments, nil
	}

	resp, err := c.do(ctx, "/instruments/"+url.PathEscape(c.cfg.Exchange))
	if err != nil {
		return nil, c.classify("", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError("", resp)
	}

	instruments, err := parseInstruments(resp.Body, c.cfg.Exchange)
	if err != nil {
		return nil, err
	}

	c.instruments = instruments
	c.logger.WithField("count", len(instruments)).Info("Loaded instrument master")
	return instruments, nil
}

func (c *Client) instrument(ctx context.Context, symbol string) (Instrument, error) {
	instruments, err := c.Instruments(ctx)
	if err != nil {
		return Instrument{}, err
	}
	inst, ok := instruments[symbol]
	if !ok {
		return Instrument{}, fmt.Errorf("%s: %w", symbol, contracts.ErrUnknownSymbol)
	}
	return inst, nil
}

// get performs an authenticated GET and returns the envelope's data field
func (c *Client) get(ctx context.Context, symbol, path string) (json.RawMessage, error) {
	resp, err := c.do(ctx, path)
	if err != nil {
		return nil, c.classify(symbol, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(symbol, resp)
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("%s: decode response: %w", symbol, err)
	}
	if env.Status != "success" {
		if env.ErrorType == "TokenException" {
			return nil, fmt.Errorf("%s: %s: %w", symbol, env.Message, contracts.ErrAuthExpired)
		}
		return nil, fmt.Errorf("%s: kite %s: %s", symbol, env.ErrorType, env.Message)
	}
	return env.Data, nil
}

func (c *Client) do(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("X-Kite-Version", apiVersion)
	req.Header.Set("Authorization", c.cred.authorization())
	return c.http.Do(req)
}

// classify maps transport errors onto the pipeline taxonomy
func (c *Client) classify(symbol string, err error) error {
	if re, ok := httputil.IsRetryError(err); ok {
		if re.StatusCode == http.StatusUnauthorized || re.StatusCode == http.StatusForbidden {
			return fmt.Errorf("%s: %w", symbol, contracts.ErrAuthExpired)
		}
		return &contracts.TransientFailure{Symbol: symbol, Attempts: re.Attempts, Err: re}
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return &contracts.TransientFailure{Symbol: symbol, Attempts: 1, Err: err}
}

// statusError turns a non-retryable, non-200 response into an error
func (c *Client) statusError(symbol string, resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var env envelope
	_ = json.Unmarshal(raw, &env)
	msg := env.Message
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden ||
		env.ErrorType == "TokenException" {
		return fmt.Errorf("%s: %s (status %d): %w", symbol, msg, resp.StatusCode, contracts.ErrAuthExpired)
	}

	return fmt.Errorf("%s: kite status %s: %s", symbol, strconv.Itoa(resp.StatusCode), msg)
}

// splitWindow cuts window into consecutive pieces of at most maxDays calendar days
func splitWindow(window contracts.DateRange, maxDays int) []contracts.DateRange {
	if window.Empty() {
		return nil
	}
	if maxDays <= 0 || window.Days() <= maxDays {
		return []contracts.DateRange{window}
	}

	var out []contracts.DateRange
	step := time.Duration(maxDays) * 24 * time.Hour
	for from := window.From; !from.After(window.To); from = from.Add(step) {
		to := from.Add(step - 24*time.Hour)
		if to.After(window.To) {
			to = window.To
		}
		out = append(out, contracts.DateRange{From: from, To: to})
	}
	return out
}
