package rate

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newClock() *testClock {
	return &testClock{now: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func newRedisWindow(t *testing.T, clock *testClock) *RedisWindow {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisWindow(rdb, "rl", time.Hour, clock.Now)
}

func newLimiter(t *testing.T, backend string, clock *testClock) Limiter {
	t.Helper()
	if backend == "redis" {
		return newRedisWindow(t, clock)
	}
	return NewWindow(time.Hour, clock.Now)
}

func TestAllowExactlyLimitThenReset(t *testing.T) {
	for _, backend := range []string{"memory", "redis"} {
		t.Run(backend, func(t *testing.T) {
			clock := newClock()
			l := newLimiter(t, backend, clock)
			ctx := context.Background()

			for i := 1; i <= 3; i++ {
				d, err := l.Allow(ctx, "ip:10.0.0.1", 3)
				if err != nil {
					t.Fatalf("allow %d: %v", i, err)
				}
				if !d.Allowed || d.Remaining != 3-i {
					t.Fatalf("call %d: unexpected decision %+v", i, d)
				}
			}
			d, err := l.Allow(ctx, "ip:10.0.0.1", 3)
			if err != nil {
				t.Fatalf("allow 4: %v", err)
			}
			if d.Allowed || d.Limit != 3 || d.RetryAfter != time.Hour {
				t.Fatalf("expected rejection with limit and retry-after, got %+v", d)
			}

			other, _ := l.Allow(ctx, "ip:10.0.0.2", 3)
			if !other.Allowed {
				t.Fatal("unrelated key must have its own budget")
			}

			clock.Advance(time.Hour)
			d, err = l.Allow(ctx, "ip:10.0.0.1", 3)
			if err != nil || !d.Allowed {
				t.Fatalf("expected allow after window, got %+v %v", d, err)
			}
		})
	}
}

func TestRejectedCallsDoNotConsumeQuota(t *testing.T) {
	clock := newClock()
	w := NewWindow(time.Hour, clock.Now)
	ctx := context.Background()

	_, _ = w.Allow(ctx, "k", 1)
	for i := 0; i < 5; i++ {
		if d, _ := w.Allow(ctx, "k", 1); d.Allowed {
			t.Fatal("expected rejection")
		}
	}
	clock.Advance(time.Hour)
	if d, _ := w.Allow(ctx, "k", 1); !d.Allowed {
		t.Fatal("expected a fresh window")
	}
}

func TestWindowConcurrentNeverExceedsLimit(t *testing.T) {
	w := NewWindow(time.Hour, newClock().Now)
	ctx := context.Background()

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if d, _ := w.Allow(ctx, "user:acc-1", 50); d.Allowed {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	if got := allowed.Load(); got != 50 {
		t.Fatalf("expected exactly 50 admissions, got %d", got)
	}
}

func TestSweepEvictsStaleWindows(t *testing.T) {
	clock := newClock()
	w := NewWindow(time.Hour, clock.Now)
	ctx := context.Background()

	_, _ = w.Allow(ctx, "old", 10)
	clock.Advance(90 * time.Minute)
	_, _ = w.Allow(ctx, "fresh", 10)

	if removed := w.Sweep(); removed != 0 {
		t.Fatalf("nothing is older than two windows yet, removed %d", removed)
	}
	clock.Advance(31 * time.Minute)
	if removed := w.Sweep(); removed != 1 {
		t.Fatalf("expected one eviction, got %d", removed)
	}
	if w.Len() != 1 {
		t.Fatalf("expected one remaining key, got %d", w.Len())
	}
}

func TestSweptEntryIsNotCounted(t *testing.T) {
	clock := newClock()
	w := NewWindow(time.Hour, clock.Now)
	ctx := context.Background()

	// A lookup that races a sweep: the entry is fetched, then evicted before
	// the hit lands.
	held := w.entry("k")
	if removed := w.Sweep(); removed != 1 {
		t.Fatalf("expected the untouched entry to be evicted, got %d", removed)
	}
	if _, ok := w.hit(held, 1); ok {
		t.Fatal("hit on an evicted entry must ask for a fresh lookup")
	}

	d, err := w.Allow(ctx, "k", 1)
	if err != nil || !d.Allowed {
		t.Fatalf("first call should pass, got %+v %v", d, err)
	}
	d, err = w.Allow(ctx, "k", 1)
	if err != nil || d.Allowed {
		t.Fatalf("second call must be limited, got %+v %v", d, err)
	}
	if w.Len() != 1 {
		t.Fatalf("expected one tracked key, got %d", w.Len())
	}
}

func TestStartStop(t *testing.T) {
	w := NewWindow(time.Hour, nil)
	w.Start(time.Millisecond)
	w.Stop()
	w.Stop()
}
