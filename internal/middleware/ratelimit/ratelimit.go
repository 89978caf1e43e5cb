// Package ratelimit caps requests per client key with a fixed window.
package ratelimit

import (
	"net/http"
	"strconv"
	"sync"
	"sync/atomic"
	"time"
)

type Config struct {
	RequestsPerWindow int
	Window            time.Duration

	// Now overrides time.Now; nil uses the wall clock.
	Now func() time.Time
}

func DefaultConfig() Config {
	return Config{RequestsPerWindow: 60, Window: time.Minute}
}

type Metrics struct {
	TotalHits   int64
	ClientCount int64
}

type window struct {
	start time.Time
	last  time.Time
	count int
}

// Limiter keeps one window per key. Keys idle for ten windows are dropped
// by CleanExpired, which the cache manager calls with the other sweeps.
type Limiter struct {
	limit  int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*window

	hits atomic.Int64
}

func NewLimiter(config Config) *Limiter {
	def := DefaultConfig()
	if config.RequestsPerWindow <= 0 {
		config.RequestsPerWindow = def.RequestsPerWindow
	}
	if config.Window <= 0 {
		config.Window = def.Window
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	return &Limiter{
		limit:   config.RequestsPerWindow,
		window:  config.Window,
		now:     config.Now,
		windows: make(map[string]*window),
	}
}

// Allow reports whether another request from key fits in its window.
// Rejected requests do not move the window.
func (rl *Limiter) Allow(key string) bool {
	ok, _ := rl.take(key)
	return ok
}

// take is Allow that also returns how long until the window resets.
func (rl *Limiter) take(key string) (bool, time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	w, ok := rl.windows[key]
	if !ok || now.Sub(w.start) >= rl.window {
		w = &window{start: now}
		rl.windows[key] = w
	}
	w.last = now
	w.count++

	if w.count > rl.limit {
		rl.hits.Add(1)
		return false, w.start.Add(rl.window).Sub(now)
	}
	return true, 0
}

// CleanExpired drops keys idle for ten windows and returns how many.
func (rl *Limiter) CleanExpired() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := rl.now().Add(-10 * rl.window)
	removed := 0
	for key, w := range rl.windows {
		if w.last.Before(cutoff) {
			delete(rl.windows, key)
			removed++
		}
	}
	return removed
}

func (rl *Limiter) ActiveClients() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.windows)
}

func (rl *Limiter) GetMetrics() Metrics {
	return Metrics{
		TotalHits:   rl.hits.Load(),
		ClientCount: int64(rl.ActiveClients()),
	}
}

// Middleware rejects requests over the limit. onLimit renders the
// rejection; nil sends a plain 429 with Retry-After.
func (rl *Limiter) Middleware(extractKey func(*http.Request) string, onLimit func(http.ResponseWriter, *http.Request)) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, wait := rl.take(extractKey(r))
			if ok {
				next.ServeHTTP(w, r)
				return
			}
			if onLimit != nil {
				onLimit(w, r)
				return
			}
			seconds := int((wait + time.Second - 1) / time.Second)
			w.Header().Set("Retry-After", strconv.Itoa(seconds))
			http.Error(w, "Too many requests, try again later.", http.StatusTooManyRequests)
		})
	}
}
