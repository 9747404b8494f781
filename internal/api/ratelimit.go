package api

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// rateLimitWindow is the fixed window over which requests are counted.
const rateLimitWindow = time.Minute

// rateLimiterMaxKeys caps the number of tracked client IPs to bound memory.
const rateLimiterMaxKeys = 10000

// rateLimiter is a fixed-window in-memory request counter keyed by client IP.
// Counts reset when the window elapses; expired entries are collected lazily
// when the key cap is reached.
type rateLimiter struct {
	mu      sync.Mutex
	now     func() time.Time
	buckets map[string]*rateBucket
	maxKeys int
}

type rateBucket struct {
	count     int
	windowEnd time.Time
}

func newRateLimiter() *rateLimiter {
	return &rateLimiter{
		now:     time.Now,
		buckets: make(map[string]*rateBucket),
		maxKeys: rateLimiterMaxKeys,
	}
}

// allow records a request for key and reports whether it is within the limit.
// It also returns when the current window resets.
func (l *rateLimiter) allow(key string, limit int, window time.Duration) (bool, time.Time) {
	if limit <= 0 {
		return true, time.Time{}
	}
	now := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()

	bucket, ok := l.buckets[key]
	if ok && now.After(bucket.windowEnd) {
		delete(l.buckets, key)
		ok = false
	}
	if !ok {
		if len(l.buckets) >= l.maxKeys {
			l.gc(now)
		}
		if len(l.buckets) >= l.maxKeys {
			// Full of live entries; fail open rather than block all clients.
			return true, time.Time{}
		}
		bucket = &rateBucket{windowEnd: now.Add(window)}
		l.buckets[key] = bucket
	}

	if bucket.count < limit {
		bucket.count++
		return true, bucket.windowEnd
	}
	return false, bucket.windowEnd
}

func (l *rateLimiter) gc(now time.Time) {
	for key, bucket := range l.buckets {
		if now.After(bucket.windowEnd) {
			delete(l.buckets, key)
		}
	}
}

// rateLimitMiddleware rejects clients that exceed the configured request rate
// with a 429 response. Disabled entirely when the config says so.
func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	if !s.secCfg.RateLimit.Enabled {
		return next
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientIP(r)
		allowed, resetAt := s.limiter.allow(key, s.secCfg.RateLimit.RequestsPerMinute, rateLimitWindow)
		if !allowed {
			retryAfter := int(time.Until(resetAt).Seconds()) + 1
			w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
			writeJSON(w, http.StatusTooManyRequests, envelope{
				Success:    false,
				StatusCode: http.StatusTooManyRequests,
				Message:    "Too many requests, please try again later",
				Errors:     []string{},
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP extracts the client address without the port.
func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
