package ratelimit

import (
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

// fakeClock returns a limiter whose clock the test advances by hand.
func fakeClock(r Rate) (*Limiter, *time.Time) {
	now := time.Unix(1_700_000_000, 0)
	l := NewLimiter(r)
	l.now = func() time.Time { return now }
	return l, &now
}

func TestTake(t *testing.T) {
	tests := []struct {
		name    string
		rate    Rate
		spend   int           // tokens taken before the probe
		advance time.Duration // clock advance before the probe
		wantOK  bool
		wantMax time.Duration // upper bound on the reported wait
	}{
		{"within burst", Rate{PerMinute: 60, Burst: 3}, 2, 0, true, 0},
		{"burst exhausted", Rate{PerMinute: 60, Burst: 2}, 2, 0, false, time.Second},
		{"refilled", Rate{PerMinute: 600, Burst: 2}, 2, 200 * time.Millisecond, true, 0},
		{"partially refilled", Rate{PerMinute: 60, Burst: 1}, 1, 500 * time.Millisecond, false, 500 * time.Millisecond},
		{"run budget", DefaultRates["wavecal_run"], 2, 0, false, 11 * time.Second},
		{"zero rate never refills", Rate{PerMinute: 0, Burst: 1}, 1, time.Hour, false, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, now := fakeClock(tt.rate)
			for i := 0; i < tt.spend; i++ {
				if !l.Allow("k") {
					t.Fatalf("token %d denied inside the burst", i+1)
				}
			}
			*now = now.Add(tt.advance)

			wait, ok := l.Take("k")
			if ok != tt.wantOK {
				t.Fatalf("Take() ok = %v, want %v", ok, tt.wantOK)
			}
			if wait < 0 || wait > tt.wantMax {
				t.Errorf("Take() wait = %v, want within [0, %v]", wait, tt.wantMax)
			}
		})
	}
}

func TestTakeNeverExceedsBurst(t *testing.T) {
	l, now := fakeClock(Rate{PerMinute: 60, Burst: 2})
	*now = now.Add(time.Hour)
	l.Allow("k")
	*now = now.Add(time.Hour)

	allowed := 0
	for i := 0; i < 5; i++ {
		if l.Allow("k") {
			allowed++
		}
	}
	if allowed != 2 {
		t.Errorf("allowed %d after a long idle period, want burst of 2", allowed)
	}
}

func TestKeysAreIndependent(t *testing.T) {
	l, _ := fakeClock(Rate{PerMinute: 60, Burst: 1})
	if !l.Allow("a") || l.Allow("a") {
		t.Fatal("key a should allow exactly one request")
	}
	if !l.Allow("b") {
		t.Error("key b should have its own bucket")
	}
}

func TestConcurrentTake(t *testing.T) {
	l, _ := fakeClock(Rate{PerMinute: 60, Burst: 50})

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		allowed int
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if l.Allow("k") {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if allowed != 50 {
		t.Errorf("allowed = %d, want 50", allowed)
	}
}

func TestNewToolLimiters(t *testing.T) {
	limiters := NewToolLimiters()
	for _, tool := range []string{"wavecal_run", "wavecal_scenarios", "wavecal_history"} {
		if limiters[tool] == nil {
			t.Errorf("no limiter for %s", tool)
		}
	}
	if len(limiters) != len(DefaultRates) {
		t.Errorf("got %d limiters, want %d", len(limiters), len(DefaultRates))
	}
}

func TestCheckLimit(t *testing.T) {
	limiters := ToolLimiters{"wavecal_run": NewLimiter(Rate{PerMinute: 6, Burst: 1})}

	if err := CheckLimit(limiters, "wavecal_run"); err != nil {
		t.Fatalf("first call: %v", err)
	}
	err := CheckLimit(limiters, "wavecal_run")
	if !errors.Is(err, ErrRateLimited) {
		t.Fatalf("second call error = %v, want ErrRateLimited", err)
	}
	if !strings.Contains(err.Error(), "wavecal_run") || !strings.Contains(err.Error(), "retry in") {
		t.Errorf("error %q should name the tool and the wait", err)
	}

	for i := 0; i < 10; i++ {
		if err := CheckLimit(limiters, "unlimited_tool"); err != nil {
			t.Fatalf("unconfigured tool limited: %v", err)
		}
	}
	if err := CheckLimit(nil, "wavecal_run"); err != nil {
		t.Errorf("nil limiters: %v", err)
	}
}
