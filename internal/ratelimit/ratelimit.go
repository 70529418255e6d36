// Package ratelimit throttles API clients by IP address.
package ratelimit

import (
	"context"
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/isdelr/bizops-api/internal/api/response"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Limiter decides whether a client identified by key may proceed. When it
// may not, retryAfter says how long to wait.
type Limiter interface {
	Allow(ctx context.Context, key string) (ok bool, retryAfter time.Duration, err error)
}

// Counter is a shared fixed window request counter, such as cache.Client.
type Counter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, time.Duration, error)
}

// MemoryLimiter is a per-key token bucket kept in process memory.
type MemoryLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	limit     rate.Limit
	burst     int
	expiresIn time.Duration
	lastSweep time.Time
	now       func() time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewMemoryLimiter allows requests per window with bursts up to requests.
func NewMemoryLimiter(requests int, window time.Duration) *MemoryLimiter {
	return &MemoryLimiter{
		visitors:  make(map[string]*visitor),
		limit:     rate.Limit(float64(requests) / window.Seconds()),
		burst:     requests,
		expiresIn: 3 * time.Minute,
		now:       time.Now,
	}
}

// Allow takes one token from the bucket of key.
func (m *MemoryLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweep(now)

	v, ok := m.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(m.limit, m.burst)}
		m.visitors[key] = v
	}
	v.lastSeen = now

	if v.limiter.AllowN(now, 1) {
		return true, 0, nil
	}
	wait := time.Duration(math.Round(float64(time.Second) / float64(m.limit)))
	return false, wait, nil
}

func (m *MemoryLimiter) sweep(now time.Time) {
	if now.Sub(m.lastSweep) < m.expiresIn {
		return
	}
	m.lastSweep = now
	for key, v := range m.visitors {
		if now.Sub(v.lastSeen) > m.expiresIn {
			delete(m.visitors, key)
		}
	}
}

// RedisLimiter counts requests in fixed windows shared by every replica.
type RedisLimiter struct {
	counter  Counter
	requests int64
	window   time.Duration
}

// NewRedisLimiter allows requests per window using counter.
func NewRedisLimiter(counter Counter, requests int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{counter: counter, requests: int64(requests), window: window}
}

// Allow counts the request and compares it to the window budget.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	count, left, err := l.counter.Hit(ctx, key, l.window)
	if err != nil {
		return false, 0, err
	}
	if count > l.requests {
		return false, left, nil
	}
	return true, 0, nil
}

// Middleware rejects clients over their budget with a 429 envelope.
// Limiter errors let the request through.
func Middleware(l Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := clientIP(r)
			ok, retryAfter, err := l.Allow(r.Context(), key)
			if err != nil {
				log.Warn().Err(err).Str("client", key).Msg("Rate limiter unavailable")
				next.ServeHTTP(w, r)
				return
			}
			if !ok {
				seconds := int(math.Ceil(retryAfter.Seconds()))
				w.Header().Set("Retry-After", strconv.Itoa(max(seconds, 1)))
				response.Error(w, response.CodeTooManyRequests, "Too many requests, please slow down.")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIP strips the port chi's RealIP leaves on RemoteAddr when no proxy header is set.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
