package pluginrpc

import (
	"sync"
	"sync/atomic"
	"time"
)

// pluginBudget tracks one plugin's request budget for the current
// one-second window. scalar is the stable per-second limit; vector is
// the volatile count of requests admitted so far this window. This
// mirrors the scalar/vector accumulator shape used for volatile
// counters elsewhere in the pack (a stable base plus a fast in-memory
// delta), specialized here to a rate limit: instead of periodically
// committing the vector into the scalar, each window's vector resets to
// zero once windowStart falls more than a second behind.
type pluginBudget struct {
	scalar       int64
	mu           sync.Mutex
	vector       int64
	windowStart  time.Time
	lastAccessed int64 // UnixNano, atomic
}

// tryConsume admits one request if the current window has budget left,
// rolling over to a fresh window first if a second has elapsed. It
// returns false (RateLimitExceeded territory) once scalar requests have
// already been admitted in the current window.
func (b *pluginBudget) tryConsume(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if now.Sub(b.windowStart) >= time.Second {
		b.windowStart = now
		b.vector = 0
	}
	if b.vector >= b.scalar {
		return false
	}
	b.vector++
	return true
}

// RateLimiter enforces a per-plugin-name request budget over fixed
// one-second windows: the count resets once a window has elapsed, and
// requests are not weighted across window boundaries. It is safe for
// concurrent use.
//
// Grounded on etalazz-vsa/internal/ratelimiter/core/store.go's Store:
// a sync.Map keyed by name, a fast Load-only path on the hit case, and
// lazy allocation only on a miss — and on etalazz-vsa/pkg/vsa/vsa.go's
// VSA type, whose Available = scalar - |vector| / TryConsume pattern
// this reimplements as a one-second rolling window rather than
// importing the vsa package directly (it is not a fetchable module —
// its own go.mod names itself simply "vsa").
type RateLimiter struct {
	budgets sync.Map // string -> *pluginBudget
}

// NewRateLimiter returns an empty RateLimiter.
func NewRateLimiter() *RateLimiter { return &RateLimiter{} }

// Allow reports whether name may make one more request right now, given
// its manifest's RateLimitPerSecond. limit must be positive; a
// non-positive limit always allows (unbounded).
func (r *RateLimiter) Allow(name string, limit int) bool {
	if limit <= 0 {
		return true
	}
	now := time.Now()

	if actual, ok := r.budgets.Load(name); ok {
		b := actual.(*pluginBudget)
		atomic.StoreInt64(&b.lastAccessed, now.UnixNano())
		return b.tryConsume(now)
	}

	fresh := &pluginBudget{scalar: int64(limit), windowStart: now, lastAccessed: now.UnixNano()}
	if actual, loaded := r.budgets.LoadOrStore(name, fresh); loaded {
		b := actual.(*pluginBudget)
		atomic.StoreInt64(&b.lastAccessed, now.UnixNano())
		return b.tryConsume(now)
	}
	return fresh.tryConsume(now)
}

// Reset clears a plugin's tracked budget, so its next request starts a
// fresh window. Used when a plugin re-registers with a new manifest.
func (r *RateLimiter) Reset(name string) {
	r.budgets.Delete(name)
}
