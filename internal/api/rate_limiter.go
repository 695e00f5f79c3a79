package api

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"dbcheck/internal/logger"
)

// RateLimiter is an in-memory token bucket per API key (or client IP).
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    float64 // tokens per second
	burst   int
	now     func() time.Time
}

type bucket struct {
	tokens    float64
	lastCheck time.Time
}

// NewRateLimiter creates a limiter allowing ratePerMinute requests with the given burst.
// Stale buckets are pruned until ctx is done.
func NewRateLimiter(ctx context.Context, ratePerMinute float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		buckets: make(map[string]*bucket),
		rate:    ratePerMinute / 60.0,
		burst:   burst,
		now:     time.Now,
	}

	go rl.cleanupLoop(ctx, 5*time.Minute, 10*time.Minute)

	return rl
}

// Allow checks if a request from the given key is allowed.
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	b, exists := rl.buckets[key]

	if !exists {
		rl.buckets[key] = &bucket{
			tokens:    float64(rl.burst) - 1,
			lastCheck: now,
		}
		return true
	}

	b.tokens += now.Sub(b.lastCheck).Seconds() * rl.rate
	if b.tokens > float64(rl.burst) {
		b.tokens = float64(rl.burst)
	}
	b.lastCheck = now

	if b.tokens >= 1 {
		b.tokens--
		return true
	}

	return false
}

// Middleware rate limits by client IP. It runs ahead of authentication so
// unauthenticated clients cannot force unbounded bcrypt comparisons.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !rl.Allow("ip:" + extractIP(r)) {
			logger.Info.Printf("Rate limit exceeded for IP on %s", r.URL.Path)
			writeError(w, http.StatusTooManyRequests, "Too Many Requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// MiddlewareByAPIKey rate limits by the API key that AuthMiddleware verified.
// Requests without a verified key are left to the IP limiter.
func (rl *RateLimiter) MiddlewareByAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key, ok := verifiedAPIKey(r.Context())
		if !ok {
			next.ServeHTTP(w, r)
			return
		}

		if !rl.Allow("key:" + key) {
			logger.Info.Printf("Rate limit exceeded for API key on %s", r.URL.Path)
			writeError(w, http.StatusTooManyRequests, "Too Many Requests")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// extractIP gets the client IP from the request.
func extractIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return xff
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}

func (rl *RateLimiter) prune(maxIdle time.Duration) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	for key, b := range rl.buckets {
		if now.Sub(b.lastCheck) > maxIdle {
			delete(rl.buckets, key)
		}
	}
}

func (rl *RateLimiter) cleanupLoop(ctx context.Context, every, maxIdle time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rl.prune(maxIdle)
		}
	}
}
