package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/baharkarakas/tappay-backend/internal/api/httpx"
)

// sweepEvery is how often idle buckets are dropped.
const sweepEvery = time.Minute

type tokenBucket struct {
	tokens float64
	last   time.Time
}

type bucketLimiter struct {
	mu        sync.Mutex
	rate      float64
	buckets   map[string]*tokenBucket
	lastSweep time.Time
}

func newBucketLimiter(rps int, now time.Time) *bucketLimiter {
	return &bucketLimiter{rate: float64(rps), buckets: map[string]*tokenBucket{}, lastSweep: now}
}

func (l *bucketLimiter) allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if now.Sub(l.lastSweep) >= sweepEvery {
		l.sweep(now)
	}

	b, ok := l.buckets[key]
	if !ok {
		b = &tokenBucket{tokens: l.rate, last: now}
		l.buckets[key] = b
	}
	b.tokens = l.refill(b, now)
	b.last = now
	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func (l *bucketLimiter) refill(b *tokenBucket, now time.Time) float64 {
	t := b.tokens + now.Sub(b.last).Seconds()*l.rate
	if t > l.rate {
		t = l.rate
	}
	return t
}

// sweep drops buckets that have refilled completely; a new bucket for the
// same key would start in the same state. Callers hold mu.
func (l *bucketLimiter) sweep(now time.Time) {
	for k, b := range l.buckets {
		if l.refill(b, now) >= l.rate {
			delete(l.buckets, k)
		}
	}
	l.lastSweep = now
}

// RateLimit is a token bucket per merchant (per client IP before
// authentication) refilled at rps tokens per second with a burst of rps.
func RateLimit(rps int) func(http.Handler) http.Handler {
	if rps <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	l := newBucketLimiter(rps, time.Now())

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.allow(limitKey(r), time.Now()) {
				httpx.WriteError(w, http.StatusTooManyRequests, "rate_limited", "too many requests", nil)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func limitKey(r *http.Request) string {
	if id := MerchantID(r.Context()); id != "" {
		return "m:" + id
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return "ip:" + r.RemoteAddr
	}
	return "ip:" + host
}
