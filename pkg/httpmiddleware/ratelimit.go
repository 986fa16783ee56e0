package httpmiddleware

import (
	"context"
	"encoding/json"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

// RateLimitConfig configures the sliding window rate limiter.
type RateLimitConfig struct {
	// Max is the number of requests allowed per window.
	Max int
	// Window is the sliding window duration.
	Window time.Duration
	// KeyFunc extracts the limiting key from a request. Defaults to the
	// client IP.
	KeyFunc func(*http.Request) string
}

// window tracks counts over two adjacent intervals so the effective rate
// can be interpolated across the boundary.
type window struct {
	prevCount float64
	currCount float64
	currStart time.Time
}

type rateLimiter struct {
	cfg RateLimitConfig
	now func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

func newRateLimiter(cfg RateLimitConfig) *rateLimiter {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = clientIP
	}
	return &rateLimiter{
		cfg:     cfg,
		now:     time.Now,
		windows: make(map[string]*window),
	}
}

// allow reports whether one more request under key fits the limit, along
// with the remaining quota and the window reset time.
func (rl *rateLimiter) allow(key string) (remaining int, resetAt time.Time, ok bool) {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	w, found := rl.windows[key]
	if !found {
		w = &window{currStart: now}
		rl.windows[key] = w
	}

	if elapsed := now.Sub(w.currStart); elapsed >= rl.cfg.Window {
		if elapsed >= 2*rl.cfg.Window {
			w.prevCount = 0
		} else {
			w.prevCount = w.currCount
		}
		w.currCount = 0
		w.currStart = now.Truncate(rl.cfg.Window)
	}

	// Weight the previous window by its remaining overlap with the
	// sliding interval ending now.
	overlap := 1 - now.Sub(w.currStart).Seconds()/rl.cfg.Window.Seconds()
	if overlap < 0 {
		overlap = 0
	}
	effective := w.prevCount*overlap + w.currCount
	resetAt = w.currStart.Add(rl.cfg.Window)

	if effective >= float64(rl.cfg.Max) {
		return 0, resetAt, false
	}

	w.currCount++
	remaining = int(float64(rl.cfg.Max) - effective - 1)
	if remaining < 0 {
		remaining = 0
	}
	return remaining, resetAt, true
}

func (rl *rateLimiter) evictStale() {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, w := range rl.windows {
		if now.Sub(w.currStart) >= 2*rl.cfg.Window {
			delete(rl.windows, key)
		}
	}
}

// RateLimit returns a middleware enforcing a per-key sliding window limit.
// Rejected requests get 429 with a JSON body; every response carries the
// X-RateLimit-Limit, X-RateLimit-Remaining and X-RateLimit-Reset headers.
func RateLimit(cfg RateLimitConfig) Middleware {
	return newRateLimiter(cfg).middleware()
}

// RateLimitWithCleanup is RateLimit plus a background goroutine evicting
// stale per-key state every two windows. It stops when ctx is cancelled.
func RateLimitWithCleanup(ctx context.Context, cfg RateLimitConfig) Middleware {
	rl := newRateLimiter(cfg)
	go func() {
		ticker := time.NewTicker(2 * rl.cfg.Window)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				rl.evictStale()
			}
		}
	}()
	return rl.middleware()
}

func (rl *rateLimiter) middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			remaining, resetAt, ok := rl.allow(rl.cfg.KeyFunc(r))

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.cfg.Max))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

			if !ok {
				retryAfter := math.Ceil(time.Until(resetAt).Seconds())
				if retryAfter < 0 {
					retryAfter = 0
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(retryAfter)))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"code":    http.StatusTooManyRequests,
					"message": "rate limit exceeded",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// clientIP extracts the caller address: X-Forwarded-For first, then
// X-Real-IP, then RemoteAddr.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i > 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
