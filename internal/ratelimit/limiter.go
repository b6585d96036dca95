// Package ratelimit throttles the wavecal MCP tools with per-key token
// buckets.
package ratelimit

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrRateLimited is returned by CheckLimit when a tool's bucket is empty.
var ErrRateLimited = errors.New("ratelimit: rate limit exceeded")

// Rate is a bucket's refill rate and capacity.
type Rate struct {
	PerMinute float64
	Burst     int
}

// Limiter holds one token bucket per key. Buckets start full. It is safe
// for concurrent use.
type Limiter struct {
	mu      sync.Mutex
	rate    Rate
	buckets map[string]*bucket
	now     func() time.Time
}

type bucket struct {
	tokens float64
	seen   time.Time
}

// NewLimiter returns a limiter refilling at r.PerMinute up to r.Burst.
func NewLimiter(r Rate) *Limiter {
	return &Limiter{rate: r, buckets: make(map[string]*bucket), now: time.Now}
}

func (l *Limiter) perSecond() float64 { return l.rate.PerMinute / 60 }

// Take spends a token for key. When none is left it returns false and how
// long until one will be.
func (l *Limiter) Take(key string) (time.Duration, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	capacity := float64(l.rate.Burst)
	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: capacity, seen: now}
		l.buckets[key] = b
	}
	if dt := now.Sub(b.seen).Seconds(); dt > 0 {
		b.tokens = min(capacity, b.tokens+dt*l.perSecond())
		b.seen = now
	}

	if b.tokens >= 1 {
		b.tokens--
		return 0, true
	}
	if l.perSecond() <= 0 {
		return 0, false
	}
	wait := (1 - b.tokens) / l.perSecond()
	return time.Duration(wait * float64(time.Second)), false
}

// Allow reports whether key may proceed, spending a token if so.
func (l *Limiter) Allow(key string) bool {
	_, ok := l.Take(key)
	return ok
}

// ToolLimiters maps tool names to their limiters.
type ToolLimiters map[string]*Limiter

// DefaultRates are the MCP tool budgets. A run renders and validates a full
// scene, so it is the tightest.
var DefaultRates = map[string]Rate{
	"wavecal_run":       {PerMinute: 6, Burst: 2},
	"wavecal_scenarios": {PerMinute: 60, Burst: 10},
	"wavecal_history":   {PerMinute: 60, Burst: 10},
}

// NewToolLimiters builds limiters for DefaultRates.
func NewToolLimiters() ToolLimiters {
	out := make(ToolLimiters, len(DefaultRates))
	for tool, r := range DefaultRates {
		out[tool] = NewLimiter(r)
	}
	return out
}

// CheckLimit spends a token for tool. Tools without a limiter always pass.
func CheckLimit(limiters ToolLimiters, tool string) error {
	l, ok := limiters[tool]
	if !ok {
		return nil
	}
	if wait, ok := l.Take(tool); !ok {
		return fmt.Errorf("%w for %s, retry in %s", ErrRateLimited, tool, wait.Round(100*time.Millisecond))
	}
	return nil
}
