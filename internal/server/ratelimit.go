package server

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"airecruiter/internal/errors"
	"airecruiter/internal/observability"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/time/rate"
)

// idleBucketTTL is how long an unused client bucket is kept
const idleBucketTTL = 10 * time.Minute

type bucket struct {
	limiter *rate.Limiter
	seen    time.Time
}

// RateLimiter keeps one token bucket per client key (API key or IP)
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	rate    rate.Limit
	burst   int
	stop    chan struct{}
	stopped sync.Once
	logger  *errors.Logger
}

// NewRateLimiter allows requestsPerMin per key with the given burst
func NewRateLimiter(requestsPerMin, burstCapacity int, logger *errors.Logger) *RateLimiter {
	rl := &RateLimiter{
		buckets: make(map[string]*bucket),
		rate:    rate.Every(time.Minute / time.Duration(max(requestsPerMin, 1))),
		burst:   burstCapacity,
		stop:    make(chan struct{}),
		logger:  logger,
	}
	go rl.evictLoop()
	return rl
}

// Allow takes a token from key's bucket, creating the bucket on first use
func (rl *RateLimiter) Allow(key string) bool {
	rl.mu.Lock()
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.buckets[key] = b
	}
	b.seen = time.Now()
	rl.mu.Unlock()

	return b.limiter.Allow()
}

// GetStats reports the bucket count and configured budget
func (rl *RateLimiter) GetStats() map[string]any {
	rl.mu.Lock()
	active := len(rl.buckets)
	rl.mu.Unlock()

	return map[string]any{
		"active_limiters": active,
		"rate_per_second": float64(rl.rate),
		"rate_per_minute": float64(rl.rate) * 60,
		"burst_capacity":  rl.burst,
	}
}

func (rl *RateLimiter) evictLoop() {
	ticker := time.NewTicker(idleBucketTTL)
	defer ticker.Stop()
	for {
		select {
		case now := <-ticker.C:
			rl.evictIdle(now.Add(-idleBucketTTL))
		case <-rl.stop:
			return
		}
	}
}

// evictIdle drops buckets not used since cutoff
func (rl *RateLimiter) evictIdle(cutoff time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for key, b := range rl.buckets {
		if b.seen.Before(cutoff) {
			delete(rl.buckets, key)
		}
	}
	if rl.logger != nil {
		rl.logger.Debug("Idle rate limit buckets evicted", "remaining", len(rl.buckets))
	}
}

// Close stops the eviction goroutine. It is safe on a nil limiter.
func (rl *RateLimiter) Close() {
	if rl == nil {
		return
	}
	rl.stopped.Do(func() { close(rl.stop) })
}

// rateLimitMiddleware answers 429 once a client's bucket is empty and
// counts the rejection
func (s *Server) rateLimitMiddleware() func(http.HandlerFunc) http.HandlerFunc {
	if s.RateLimit == nil || !s.RateLimit.Enabled || s.RateLimiter == nil {
		return func(next http.HandlerFunc) http.HandlerFunc { return next }
	}

	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			key := clientKey(r, s.RateLimit.ByAPIKey, s.RateLimit.ByIP)
			if key == "" || s.RateLimiter.Allow(key) {
				next(w, r)
				return
			}

			s.Logger.Info("Rate limit exceeded", "endpoint", r.URL.Path, "client_ip", getClientIP(r))
			s.Observer.GetMetrics().RecordBusinessMetric(r.Context(), observability.MetricRateLimitHit, true, s.Observer,
				attribute.String("endpoint", r.Pattern),
				attribute.String("method", r.Method))
			writeErrorResponse(w, "Rate limit exceeded", "Too many requests", http.StatusTooManyRequests)
		}
	}
}

// clientKey prefers the API key and falls back to the client IP
func clientKey(r *http.Request, byAPIKey, byIP bool) string {
	if byAPIKey {
		if key := requestAPIKey(r); key != "" {
			return "api:" + key
		}
	}
	if byIP {
		return "ip:" + getClientIP(r)
	}
	return ""
}

// getClientIP trusts X-Forwarded-For, then X-Real-IP, then the peer address
func getClientIP(r *http.Request) string {
	for part := range strings.SplitSeq(r.Header.Get("X-Forwarded-For"), ",") {
		if ip := strings.TrimSpace(part); net.ParseIP(ip) != nil {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); net.ParseIP(ip) != nil {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
