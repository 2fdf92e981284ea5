// Package ratelimit throttles requests per owner. A local token bucket takes
// the fast path and a Redis fixed window enforces the limit across instances.
package ratelimit

import (
	"context"
	"log/slog"
	"strconv"
	"sync"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"

	"github.com/noblepay-ledger/internal/config"
	"github.com/noblepay-ledger/internal/platform/metrics"
)

const (
	keyPrefix   = "ratelimit:"
	maxTracked  = 10000
	idleTimeout = 10 * time.Minute
)

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// OwnerLimiter decides whether a caller may proceed. A nil Redis client or a
// zero window limit leaves only the local bucket in force.
type OwnerLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int

	client      goredis.Cmdable
	windowLimit int
	window      time.Duration

	now    func() time.Time
	logger *slog.Logger
}

// NewOwnerLimiter returns nil when throttling is disabled. A nil limiter allows everything.
func NewOwnerLimiter(cfg *config.RateLimitConfig, client goredis.Cmdable, logger *slog.Logger) *OwnerLimiter {
	if cfg.RequestsPerSecond <= 0 {
		return nil
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = int(cfg.RequestsPerSecond)
	}
	if burst <= 0 {
		burst = 1
	}
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}
	return &OwnerLimiter{
		buckets:     make(map[string]*bucket),
		limit:       rate.Limit(cfg.RequestsPerSecond),
		burst:       burst,
		client:      client,
		windowLimit: cfg.WindowLimit,
		window:      window,
		now:         time.Now,
		logger:      logger,
	}
}

// Allow reports whether key may make one more request now
func (l *OwnerLimiter) Allow(ctx context.Context, key string) bool {
	if l == nil {
		return true
	}

	if !l.local(key).Allow() {
		metrics.RateLimited.WithLabelValues("local").Inc()
		return false
	}

	if l.client == nil || l.windowLimit <= 0 {
		return true
	}

	windowKey := l.windowKey(key)
	pipe := l.client.Pipeline()
	incr := pipe.Incr(ctx, windowKey)
	pipe.Expire(ctx, windowKey, l.window)
	if _, err := pipe.Exec(ctx); err != nil {
		l.logger.Error("Redis rate limit error; falling back to local", "key", key, "error", err)
		return true
	}

	if count := incr.Val(); count > int64(l.windowLimit) {
		metrics.RateLimited.WithLabelValues("shared").Inc()
		l.logger.Warn("Shared rate limit exceeded", "key", key, "count", count)
		return false
	}
	return true
}

func (l *OwnerLimiter) local(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		if len(l.buckets) >= maxTracked {
			l.sweep(now)
		}
		b = &bucket{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter
}

// sweep drops buckets idle long enough to have refilled. Caller holds mu.
func (l *OwnerLimiter) sweep(now time.Time) {
	for k, b := range l.buckets {
		if now.Sub(b.lastSeen) > idleTimeout {
			delete(l.buckets, k)
		}
	}
}

func (l *OwnerLimiter) windowKey(key string) string {
	slot := l.now().UnixNano() / int64(l.window)
	return keyPrefix + key + ":" + strconv.FormatInt(slot, 10)
}
