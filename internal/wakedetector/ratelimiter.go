package wakedetector

import (
	"sync"
	"time"
)

// sessionRateLimiter enforces a per-session cooldown and a trailing
// 60-second admission cap, per spec.md §4.1 step 5. It is safe for
// concurrent use.
type sessionRateLimiter struct {
	mu       sync.Mutex
	lastSeen map[string]time.Time
	history  map[string][]time.Time
}

func newSessionRateLimiter() *sessionRateLimiter {
	return &sessionRateLimiter{
		lastSeen: make(map[string]time.Time),
		history:  make(map[string][]time.Time),
	}
}

// Allow reports whether a Command may be admitted for sessionUID at now,
// and if so records the admission.
func (rl *sessionRateLimiter) Allow(cfg RateLimitConfig, sessionUID string, now time.Time) bool {
	if !cfg.Enabled {
		return true
	}

	rl.mu.Lock()
	defer rl.mu.Unlock()

	cooldown := time.Duration(cfg.CooldownS * float64(time.Second))
	if last, ok := rl.lastSeen[sessionUID]; ok && now.Sub(last) < cooldown {
		return false
	}

	window := now.Add(-60 * time.Second)
	admissions := rl.history[sessionUID]
	kept := admissions[:0]
	for _, t := range admissions {
		if t.After(window) {
			kept = append(kept, t)
		}
	}

	if cfg.MaxPerMinute > 0 && len(kept) >= cfg.MaxPerMinute {
		rl.history[sessionUID] = kept
		return false
	}

	kept = append(kept, now)
	rl.history[sessionUID] = kept
	rl.lastSeen[sessionUID] = now
	return true
}
