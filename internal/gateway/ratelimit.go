package gateway

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/baharkarakas/tappay-backend/internal/api/httpx"
	"github.com/baharkarakas/tappay-backend/internal/metrics"
	"github.com/baharkarakas/tappay-backend/internal/repository"
)

// Limiter is a sliding-window limiter keyed by client IP. The window store
// decides the scope: LocalWindow counts per process, the postgres store is
// shared by every instance.
type Limiter struct {
	store  repository.RateWindow
	limit  int
	window time.Duration
	now    func() time.Time
	log    *slog.Logger
}

func NewLimiter(store repository.RateWindow, limit int, window time.Duration, log *slog.Logger) *Limiter {
	if store == nil {
		store = NewLocalWindow()
	}
	if log == nil {
		log = slog.Default()
	}
	return &Limiter{store: store, limit: limit, window: window, now: time.Now, log: log}
}

func (l *Limiter) Allow(ctx context.Context, key string) (bool, error) {
	if l.limit <= 0 {
		return true, nil
	}
	ok, err := l.store.Admit(ctx, key, l.now(), l.window, l.limit)
	if err != nil {
		return true, err
	}
	return ok, nil
}

// Middleware rejects over-limit clients with 429. A failing store lets the
// request through.
func (l *Limiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ok, err := l.Allow(r.Context(), clientIP(r))
		if err != nil {
			l.log.Warn("rate limit store unavailable", "err", err)
		}
		if !ok {
			metrics.RateLimited.Inc()
			w.Header().Set("Retry-After", strconv.Itoa(int(l.window.Seconds())))
			httpx.WriteJSON(w, http.StatusTooManyRequests, errorBody{Error: "too many requests", Code: "rate_limited"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// LocalWindow is a process-local sliding log of hit times per key.
type LocalWindow struct {
	mu   sync.Mutex
	hits map[string][]time.Time
}

func NewLocalWindow() *LocalWindow {
	return &LocalWindow{hits: map[string][]time.Time{}}
}

func (w *LocalWindow) Admit(_ context.Context, key string, now time.Time, window time.Duration, limit int) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	cutoff := now.Add(-window)
	kept := w.hits[key][:0]
	for _, t := range w.hits[key] {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= limit {
		w.hits[key] = kept
		return false, nil
	}
	w.hits[key] = append(kept, now)
	return true, nil
}

// Sweep drops keys whose hits have all expired.
func (w *LocalWindow) Sweep(now time.Time, window time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	cutoff := now.Add(-window)
	for k, hits := range w.hits {
		if len(hits) == 0 || !hits[len(hits)-1].After(cutoff) {
			delete(w.hits, k)
		}
	}
}
