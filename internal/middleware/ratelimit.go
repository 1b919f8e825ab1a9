package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/SwipeSavdev/camp-card-sub001/internal/handler"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// RateLimiter implements a per-IP token bucket rate limiter. When a shared
// window is attached, it is consulted first so limits hold across replicas.
type RateLimiter struct {
	visitors map[string]*visitor
	mu       sync.Mutex
	rate     rate.Limit
	burst    int
	shared   *RedisWindow
	scope    string
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a rate limiter with the given requests per second and burst size.
func NewRateLimiter(rps float64, burst int) *RateLimiter {
	rl := &RateLimiter{
		visitors: make(map[string]*visitor),
		rate:     rate.Limit(rps),
		burst:    burst,
		scope:    "api",
	}
	go rl.cleanup()
	return rl
}

// WithShared attaches a Redis fixed window under the given scope.
func (rl *RateLimiter) WithShared(w *RedisWindow, scope string) *RateLimiter {
	rl.shared = w
	if scope != "" {
		rl.scope = scope
	}
	return rl
}

// Allow reports whether a request from key may proceed, and if not, how many
// seconds the caller should wait.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, int) {
	if rl.shared != nil {
		ok, retryAfter, err := rl.shared.Allow(ctx, rl.scope, key)
		if err == nil {
			return ok, retryAfter
		}
		slog.Warn("shared rate limiter unavailable, using local limiter", "error", err)
	}

	rl.mu.Lock()
	v, exists := rl.visitors[key]
	if !exists {
		v = &visitor{limiter: rate.NewLimiter(rl.rate, rl.burst)}
		rl.visitors[key] = v
	}
	v.lastSeen = time.Now()
	rl.mu.Unlock()

	return v.limiter.Allow(), 1
}

// Middleware returns an HTTP middleware that rate limits by client IP.
func (rl *RateLimiter) Middleware() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, retryAfter := rl.Allow(r.Context(), extractClientIP(r))
			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				handler.JSON(w, http.StatusTooManyRequests, map[string]string{
					"error": "rate limit exceeded, try again later",
					"code":  "RATE_LIMITED",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// StrictRateLimiter returns a stricter rate limiter for the login endpoint.
func StrictRateLimiter(shared *RedisWindow) func(next http.Handler) http.Handler {
	rl := NewRateLimiter(1, 5)
	if shared != nil {
		rl.WithShared(shared.WithLimit(5, time.Minute), "login")
	}
	return rl.Middleware()
}

func (rl *RateLimiter) cleanup() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		rl.mu.Lock()
		for ip, v := range rl.visitors {
			if time.Since(v.lastSeen) > 3*time.Minute {
				delete(rl.visitors, ip)
			}
		}
		rl.mu.Unlock()
	}
}

var windowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// RedisWindow is a fixed-window counter shared through Redis.
type RedisWindow struct {
	client redis.UniversalClient
	prefix string
	limit  int
	window time.Duration
}

// NewRedisWindow creates a shared window allowing limit requests per window.
func NewRedisWindow(client redis.UniversalClient, prefix string, limit int, window time.Duration) *RedisWindow {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ":")
	if prefix == "" {
		prefix = "campcard:rate_limit"
	}
	return &RedisWindow{client: client, prefix: prefix, limit: limit, window: window}
}

// WithLimit returns a copy sharing the client with a different limit.
func (rw *RedisWindow) WithLimit(limit int, window time.Duration) *RedisWindow {
	cp := *rw
	cp.limit = limit
	cp.window = window
	return &cp
}

// Allow consumes one slot for subject under scope.
func (rw *RedisWindow) Allow(ctx context.Context, scope, subject string) (bool, int, error) {
	if rw == nil || rw.client == nil || rw.limit <= 0 || rw.window <= 0 {
		return true, 0, nil
	}

	windowMs := rw.window.Milliseconds()
	if windowMs < 1000 {
		windowMs = 1000
	}

	key := fmt.Sprintf("%s:%s:%s", rw.prefix, scope, subject)
	raw, err := windowScript.Run(ctx, rw.client, []string{key}, windowMs).Result()
	if err != nil {
		return false, 0, err
	}

	values, ok := raw.([]interface{})
	if !ok || len(values) != 2 {
		return false, 0, fmt.Errorf("unexpected redis limiter response shape: %T", raw)
	}
	count, ok := values[0].(int64)
	if !ok {
		return false, 0, fmt.Errorf("unexpected redis limiter count type: %T", values[0])
	}
	ttlMs, ok := values[1].(int64)
	if !ok || ttlMs < 0 {
		ttlMs = windowMs
	}

	retryAfter := int(math.Ceil(float64(ttlMs) / 1000.0))
	if retryAfter < 1 {
		retryAfter = 1
	}
	return count <= int64(rw.limit), retryAfter, nil
}

// extractClientIP returns the client IP, preferring proxy headers if available.
func extractClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.SplitN(xff, ",", 2)
		return strings.TrimSpace(parts[0])
	}
	ip, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return ip
}
