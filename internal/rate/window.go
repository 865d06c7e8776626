package rate

import (
	"context"
	"sync"
	"time"
)

// DefaultWindow is the window length.
const DefaultWindow = time.Hour

// Decision is the outcome of one Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter is implemented by Window and RedisWindow.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int) (Decision, error)
}

type windowEntry struct {
	mu    sync.Mutex
	start time.Time
	count int
	// dead is set by Sweep once the entry has left the map.
	dead bool
}

// Window is the in-memory limiter. State is lost on restart and is per
// process; it throttles, it never authorizes.
type Window struct {
	length time.Duration
	now    func() time.Time

	mu      sync.RWMutex
	entries map[string]*windowEntry

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewWindow returns a limiter with the given window length. A nil clock
// selects time.Now.
func NewWindow(length time.Duration, now func() time.Time) *Window {
	if length <= 0 {
		length = DefaultWindow
	}
	if now == nil {
		now = time.Now
	}
	return &Window{
		length:  length,
		now:     now,
		entries: make(map[string]*windowEntry),
		stopCh:  make(chan struct{}),
	}
}

// Allow performs the reset-check-increment sequence atomically for key.
// Unrelated keys never contend on the same lock.
func (w *Window) Allow(_ context.Context, key string, limit int) (Decision, error) {
	for {
		if d, ok := w.hit(w.entry(key), limit); ok {
			return d, nil
		}
	}
}

// hit counts one request against e. It reports false when e was swept after
// the caller looked it up, in which case the caller must fetch a new entry.
func (w *Window) hit(e *windowEntry, limit int) (Decision, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dead {
		return Decision{}, false
	}

	now := w.now()
	if e.start.IsZero() || now.Sub(e.start) >= w.length {
		e.start = now
		e.count = 0
	}
	if e.count >= limit {
		return Decision{Limit: limit, RetryAfter: w.length}, true
	}
	e.count++
	return Decision{
		Allowed:    true,
		Limit:      limit,
		Remaining:  limit - e.count,
		RetryAfter: w.length,
	}, true
}

func (w *Window) entry(key string) *windowEntry {
	w.mu.RLock()
	e, ok := w.entries[key]
	w.mu.RUnlock()
	if ok {
		return e
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if e, ok = w.entries[key]; ok {
		return e
	}
	e = &windowEntry{}
	w.entries[key] = e
	return e
}

// Sweep drops windows that started more than two window lengths ago and
// returns how many were removed.
func (w *Window) Sweep() int {
	cutoff := w.now().Add(-2 * w.length)

	w.mu.Lock()
	defer w.mu.Unlock()

	removed := 0
	for key, e := range w.entries {
		e.mu.Lock()
		stale := !e.start.After(cutoff)
		if stale {
			e.dead = true
		}
		e.mu.Unlock()
		if stale {
			delete(w.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (w *Window) Len() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.entries)
}

// Start runs Sweep every interval until Stop is called.
func (w *Window) Start(interval time.Duration) {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				w.Sweep()
			case <-w.stopCh:
				return
			}
		}
	}()
}

// Stop ends the sweeper started by Start. It is safe to call more than once
// and without a prior Start.
func (w *Window) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
	})
}
