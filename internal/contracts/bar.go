package contracts

import (
	"fmt"
	"math"
	"time"
)

// DateLayout is the wire and storage format for trading dates
const DateLayout = "2006-01-02"

// Bar is one daily OHLCV record for a symbol
// ⭐ SSOT: S0 수집 → 저장 → S2 스캔 공통 단위
type Bar struct {
	Symbol string    `json:"symbol"`
	Date   time.Time `json:"date"` // midnight UTC
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// TradedValue is close × volume, persisted beside the bar
func (b Bar) TradedValue() float64 {
	return b.Close * float64(b.Volume)
}

// Range is the high-low spread of the bar
func (b Bar) Range() float64 {
	return b.High - b.Low
}

// Validate checks the bar invariants.
// Returns *DataIntegrityError describing the first violation.
func (b Bar) Validate() error {
	reason := ""
	switch {
	case b.Symbol == "":
		reason = "empty symbol"
	case b.Date.IsZero():
		reason = "missing date"
	case !positive(b.Open) || !positive(b.High) || !positive(b.Low) || !positive(b.Close):
		reason = "non-positive or non-finite price"
	case b.Volume < 0:
		reason = "negative volume"
	case b.High < math.Max(b.Open, b.Close):
		reason = fmt.Sprintf("high %.4f below max(open, close)", b.High)
	case b.Low > math.Min(b.Open, b.Close):
		reason = fmt.Sprintf("low %.4f above min(open, close)", b.Low)
	}

	if reason == "" {
		return nil
	}
	return &DataIntegrityError{Symbol: b.Symbol, Date: b.Date, Reason: reason}
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

// Series is the chronological sequence of bars for one symbol
type Series struct {
	Symbol string `json:"symbol"`
	Bars   []Bar  `json:"bars"`
}

// Len returns the number of bars
func (s Series) Len() int {
	return len(s.Bars)
}

// Empty reports whether the series has no bars
func (s Series) Empty() bool {
	return len(s.Bars) == 0
}

// Last returns the most recent bar
func (s Series) Last() (Bar, bool) {
	if len(s.Bars) == 0 {
		return Bar{}, false
	}
	return s.Bars[len(s.Bars)-1], true
}

// Until returns the prefix of the series dated on or before asOf
func (s Series) Until(asOf time.Time) Series {
	asOf = NormalizeDate(asOf)
	n := len(s.Bars)
	for n > 0 && s.Bars[n-1].Date.After(asOf) {
		n--
	}
	return Series{Symbol: s.Symbol, Bars: s.Bars[:n]}
}

// Closes returns close prices in order
func (s Series) Closes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Close
	}
	return out
}

// Highs returns high prices in order
func (s Series) Highs() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.High
	}
	return out
}

// Lows returns low prices in order
func (s Series) Lows() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = b.Low
	}
	return out
}

// Volumes returns volumes in order as floats
func (s Series) Volumes() []float64 {
	out := make([]float64, len(s.Bars))
	for i, b := range s.Bars {
		out[i] = float64(b.Volume)
	}
	return out
}

// DateRange is an inclusive span of calendar days.
// The zero value is the empty range.
type DateRange struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// NewDateRange normalizes both ends to midnight UTC
func NewDateRange(from, to time.Time) DateRange {
	return DateRange{From: NormalizeDate(from), To: NormalizeDate(to)}
}

// Empty reports whether the range contains no days
func (r DateRange) Empty() bool {
	return r.From.IsZero() || r.To.IsZero() || r.To.Before(r.From)
}

// Contains reports whether d falls inside the range
func (r DateRange) Contains(d time.Time) bool {
	if r.Empty() {
		return false
	}
	d = NormalizeDate(d)
	return !d.Before(r.From) && !d.After(r.To)
}

// Days returns the number of calendar days covered
func (r DateRange) Days() int {
	if r.Empty() {
		return 0
	}
	return int(r.To.Sub(r.From).Hours()/24) + 1
}

func (r DateRange) String() string {
	if r.Empty() {
		return "[]"
	}
	return fmt.Sprintf("[%s, %s]", r.From.Format(DateLayout), r.To.Format(DateLayout))
}

// NormalizeDate drops the clock, keeping the calendar day as seen in t's location
func NormalizeDate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses YYYY-MM-DD into a normalized date
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}
