// Package calendar knows which days the exchange trades and which days a
// symbol is still missing. Everything here is pure: no clock, no I/O.
package calendar

import (
	"time"

	"github.com/wonny/momentumchaser/internal/contracts"
)

const day = 24 * time.Hour

// Calendar is a weekday calendar with optional exchange holidays
type Calendar struct {
	holidays map[time.Time]struct{}
}

// New creates a calendar. Holidays are normalized to calendar days.
func New(holidays []time.Time) *Calendar {
	c := &Calendar{holidays: make(map[time.Time]struct{}, len(holidays))}
	for _, h := range holidays {
		c.holidays[contracts.NormalizeDate(h)] = struct{}{}
	}
	return c
}

// Weekdays is the calendar with no holidays
func Weekdays() *Calendar {
	return New(nil)
}

// IsTradingDay reports whether the exchange is open on d
func (c *Calendar) IsTradingDay(d time.Time) bool {
	d = contracts.NormalizeDate(d)
	switch d.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	_, holiday := c.holidays[d]
	return !holiday
}

// LastTradingDay returns the latest trading day on or before t
func (c *Calendar) LastTradingDay(t time.Time) time.Time {
	d := contracts.NormalizeDate(t)
	for !c.IsTradingDay(d) {
		d = d.Add(-day)
	}
	return d
}

// NextTradingDay returns the first trading day strictly after d
func (c *Calendar) NextTradingDay(d time.Time) time.Time {
	d = contracts.NormalizeDate(d).Add(day)
	for !c.IsTradingDay(d) {
		d = d.Add(day)
	}
	return d
}

// TradingDays lists the trading days inside r
func (c *Calendar) TradingDays(r contracts.DateRange) []time.Time {
	if r.Empty() {
		return nil
	}
	var out []time.Time
	for d := r.From; !d.After(r.To); d = d.Add(day) {
		if c.IsTradingDay(d) {
			out = append(out, d)
		}
	}
	return out
}

// MissingRange returns the trailing window a symbol still needs so that its
// data reaches the last trading day on or before target.
//
// latest is the newest stored date, zero when the symbol has no bars. A new
// symbol is bootstrapped with bootstrapDays calendar days of history ending at
// that trading day. The result is empty when the store is already current.
func (c *Calendar) MissingRange(latest, target time.Time, bootstrapDays int) contracts.DateRange {
	end := c.LastTradingDay(target)

	if latest.IsZero() {
		if bootstrapDays < 1 {
			bootstrapDays = 1
		}
		return contracts.DateRange{From: end.Add(-time.Duration(bootstrapDays-1) * day), To: end}
	}

	latest = contracts.NormalizeDate(latest)
	if !latest.Before(end) {
		return contracts.DateRange{}
	}

	return contracts.DateRange{From: c.NextTradingDay(latest), To: end}
}

// IsCurrent reports whether a symbol whose newest bar is latest needs nothing for target
func (c *Calendar) IsCurrent(latest, target time.Time) bool {
	if latest.IsZero() {
		return false
	}
	return !contracts.NormalizeDate(latest).Before(c.LastTradingDay(target))
}

// MissingRange applies the weekday calendar
func MissingRange(latest, target time.Time, bootstrapDays int) contracts.DateRange {
	return Weekdays().MissingRange(latest, target, bootstrapDays)
}
