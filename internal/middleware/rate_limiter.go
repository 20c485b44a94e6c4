package middleware

import (
	"context"
	"net/http"
	"strconv"
	"sync"
	"time"

	"staffdesk/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Limiter counts hits per key in fixed windows.
type Limiter interface {
	// Allow records a hit for key and reports whether it is within the limit,
	// and how long until the current window resets.
	Allow(ctx context.Context, key string) (bool, time.Duration, error)
}

// ── In-memory limiter ────────────────────────────────────────────────────────

type window struct {
	count int
	end   time.Time
}

// MemoryLimiter is a per-process fixed-window limiter.
type MemoryLimiter struct {
	limit  int
	period time.Duration
	now    func() time.Time

	mu      sync.Mutex
	windows map[string]*window
}

func NewMemoryLimiter(limit int, period time.Duration) *MemoryLimiter {
	return &MemoryLimiter{limit: limit, period: period, now: time.Now, windows: make(map[string]*window)}
}

func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	w, ok := l.windows[key]
	if !ok || now.After(w.end) {
		w = &window{end: now.Add(l.period)}
		l.windows[key] = w
	}
	w.count++
	return w.count <= l.limit, w.end.Sub(now), nil
}

// Purge drops expired windows and returns how many were removed.
func (l *MemoryLimiter) Purge() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	n := 0
	for k, w := range l.windows {
		if now.After(w.end) {
			delete(l.windows, k)
			n++
		}
	}
	return n
}

// RunPurge purges expired windows every interval until ctx is done, so that
// IPs that never return do not accumulate.
func (l *MemoryLimiter) RunPurge(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := l.Purge(); n > 0 {
				log.Debug().Int("purged", n).Msg("rate limiter windows purged")
			}
		}
	}
}

// ── Redis limiter ────────────────────────────────────────────────────────────

// RedisLimiter shares windows across replicas using INCR + EXPIRE.
type RedisLimiter struct {
	rdb    *redis.Client
	prefix string
	limit  int
	period time.Duration
}

func NewRedisLimiter(rdb *redis.Client, prefix string, limit int, period time.Duration) *RedisLimiter {
	return &RedisLimiter{rdb: rdb, prefix: prefix, limit: limit, period: period}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	k := "ratelimit:" + l.prefix + ":" + key
	pipe := l.rdb.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.ExpireNX(ctx, k, l.period)
	ttl := pipe.PTTL(ctx, k)
	if _, err := pipe.Exec(ctx); err != nil {
		return true, 0, err
	}
	return incr.Val() <= int64(l.limit), ttl.Val(), nil
}

// ── Middleware ───────────────────────────────────────────────────────────────

// RateLimit rejects clients over the limit with 429. Limiter failures let the
// request through, and a nil limiter disables the check.
func RateLimit(l Limiter, msg string) gin.HandlerFunc {
	if l == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		ok, retry, err := l.Allow(c.Request.Context(), c.ClientIP())
		if err != nil {
			log.Warn().Err(err).Str("request_id", c.GetString(RequestIDKey)).Msg("rate limiter unavailable")
			c.Next()
			return
		}
		if !ok {
			c.Header("Retry-After", strconv.Itoa(int(retry.Round(time.Second).Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, apierror.New(msg))
			return
		}
		c.Next()
	}
}
