package auth

import (
	"context"
	"sync"
	"time"
)

// sweepInterval is how often Allow drops keys whose window has emptied.
const sweepInterval = time.Minute

type slidingWindow struct {
	timestamps []time.Time
	window     time.Duration
}

func (w *slidingWindow) prune(now time.Time) {
	cutoff := now.Add(-w.window)
	kept := w.timestamps[:0]
	for _, ts := range w.timestamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	w.timestamps = kept
}

// MemoryRateLimiter is a sliding-window RateLimiter kept in process memory.
// Use RedisRateLimiter when several instances share the limit.
type MemoryRateLimiter struct {
	mu        sync.Mutex
	entries   map[string]*slidingWindow
	lastSweep time.Time
	now       func() time.Time
}

// NewMemoryRateLimiter creates an empty MemoryRateLimiter.
func NewMemoryRateLimiter() *MemoryRateLimiter {
	return &MemoryRateLimiter{
		entries: make(map[string]*slidingWindow),
		now:     time.Now,
	}
}

func (r *MemoryRateLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if now.Sub(r.lastSweep) >= sweepInterval {
		r.sweep(now)
	}

	entry, ok := r.entries[key]
	if !ok {
		entry = &slidingWindow{}
		r.entries[key] = entry
	}
	entry.window = window
	entry.prune(now)

	if len(entry.timestamps) >= limit {
		return false, 0, nil
	}

	entry.timestamps = append(entry.timestamps, now)
	return true, limit - len(entry.timestamps), nil
}

func (r *MemoryRateLimiter) Reset(_ context.Context, key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.entries, key)
	return nil
}

// sweep deletes every key with no events left in its window. r.mu must be held.
func (r *MemoryRateLimiter) sweep(now time.Time) {
	for key, entry := range r.entries {
		entry.prune(now)
		if len(entry.timestamps) == 0 {
			delete(r.entries, key)
		}
	}
	r.lastSweep = now
}
