// Package ratelimit holds the outbound request gate shared by every upstream call.
package ratelimit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Gate must be acquired once before each outbound request.
// Implementations are safe for concurrent use.
type Gate interface {
	Wait(ctx context.Context) error
}

// WindowGate grants at most Limit acquisitions in any sliding Window.
// ⭐ SSOT: 업스트림 호출 속도 제한은 이 게이트 하나로만
//
// A rate.Limiter spaces grants evenly, and a log of the last Limit grant
// times enforces the hard ceiling. Timer jitter in the pacer can never
// let a window exceed Limit.
type WindowGate struct {
	limit  int
	window time.Duration
	pacer  *rate.Limiter

	mu      sync.Mutex
	grants  []time.Time // ring buffer, next points at the oldest grant
	next    int
	granted int64
	observe func(time.Time)
}

// NewWindowGate creates a gate allowing limit requests per window
func NewWindowGate(limit int, window time.Duration) (*WindowGate, error) {
	if limit <= 0 || window <= 0 {
		return nil, fmt.Errorf("invalid gate: limit=%d window=%s", limit, window)
	}

	return &WindowGate{
		limit:  limit,
		window: window,
		pacer:  rate.NewLimiter(rate.Every(window/time.Duration(limit)), 1),
		grants: make([]time.Time, limit),
	}, nil
}

// OnGrant registers fn to be called with each grant time while the gate lock is held.
// fn must not block.
func (g *WindowGate) OnGrant(fn func(time.Time)) *WindowGate {
	g.mu.Lock()
	g.observe = fn
	g.mu.Unlock()
	return g
}

// Wait blocks until a request may be issued or ctx is done
func (g *WindowGate) Wait(ctx context.Context) error {
	if err := g.pacer.Wait(ctx); err != nil {
		return fmt.Errorf("rate gate: %w", err)
	}

	for {
		g.mu.Lock()
		now := time.Now()
		oldest := g.grants[g.next]
		if oldest.IsZero() || now.Sub(oldest) >= g.window {
			g.grants[g.next] = now
			g.next = (g.next + 1) % g.limit
			g.granted++
			if g.observe != nil {
				g.observe(now)
			}
			g.mu.Unlock()
			return nil
		}
		delay := g.window - now.Sub(oldest)
		g.mu.Unlock()

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("rate gate: %w", ctx.Err())
		case <-timer.C:
		}
	}
}

// Granted returns how many requests have passed the gate
func (g *WindowGate) Granted() int64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.granted
}

// Limit returns the configured ceiling
func (g *WindowGate) Limit() (int, time.Duration) {
	return g.limit, g.window
}
