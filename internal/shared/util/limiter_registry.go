package util

import (
	"sync"
	"time"
)

// LimiterRegistry manages one limiter per client key (usually the client IP).
type LimiterRegistry struct {
	mu       sync.Mutex
	limiters map[string]*limiterEntry
	rate     float64
	burst    int
	ttl      time.Duration

	stop     chan struct{}
	stopOnce sync.Once
}

type limiterEntry struct {
	limiter  *Limiter
	lastUsed time.Time
}

// NewLimiterRegistry creates a registry and starts its idle-entry sweeper.
// r: tokens per second. b: burst size. ttl: how long an idle limiter is kept.
func NewLimiterRegistry(r float64, b int, ttl time.Duration) *LimiterRegistry {
	reg := &LimiterRegistry{
		limiters: make(map[string]*limiterEntry),
		rate:     r,
		burst:    b,
		ttl:      ttl,
		stop:     make(chan struct{}),
	}
	go reg.cleanupLoop()
	return reg
}

// NewLimiterRegistryPerMinute is NewLimiterRegistry with a requests-per-minute rate.
func NewLimiterRegistryPerMinute(perMinute, burst int, ttl time.Duration) *LimiterRegistry {
	return NewLimiterRegistry(float64(perMinute)/60.0, burst, ttl)
}

// Get returns the limiter for the given key.
func (r *LimiterRegistry) Get(key string) *Limiter {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.limiters[key]
	if !ok {
		entry = &limiterEntry{
			limiter: NewLimiter(r.rate, r.burst),
		}
		r.limiters[key] = entry
	}
	entry.lastUsed = time.Now()
	return entry.limiter
}

// Update changes rate and burst for existing and future limiters.
func (r *LimiterRegistry) Update(rate float64, burst int) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.rate = rate
	r.burst = burst
	for _, entry := range r.limiters {
		entry.limiter.setLimit(rate, burst)
	}
}

// Len returns the number of tracked keys.
func (r *LimiterRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.limiters)
}

// Close stops the sweeper goroutine.
func (r *LimiterRegistry) Close() {
	r.stopOnce.Do(func() { close(r.stop) })
}

func (r *LimiterRegistry) cleanupLoop() {
	ticker := time.NewTicker(r.ttl / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.cleanup()
		case <-r.stop:
			return
		}
	}
}

func (r *LimiterRegistry) cleanup() {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	for key, entry := range r.limiters {
		if now.Sub(entry.lastUsed) > r.ttl {
			delete(r.limiters, key)
		}
	}
}
