package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// ipRateLimiterStore holds per-IP rate limiters with automatic cleanup.
type ipRateLimiterStore struct {
	limiters sync.Map // map[string]*ipRateLimiterEntry
	rps      float64
	burst    int
}

type ipRateLimiterEntry struct {
	limiter    *rate.Limiter
	lastAccess time.Time
	mu         sync.Mutex
}

// AuthRateLimitMiddleware enforces per-IP rate limiting on the unauthenticated
// register and login endpoints to slow down credential stuffing.
//
// The client address comes from c.ClientIP(), so trusted proxy settings of the engine apply.
// Limiters idle for an hour are dropped by a background sweep that stops when ctx is done.
//
// Returns 429 Too Many Requests with a Retry-After header when the bucket is empty.
func AuthRateLimitMiddleware(ctx context.Context, rps float64, burst int, logger *slog.Logger) gin.HandlerFunc {
	store := &ipRateLimiterStore{
		rps:   rps,
		burst: burst,
	}

	go store.cleanupStale(ctx, 5*time.Minute, time.Hour)

	return func(c *gin.Context) {
		clientIP := c.ClientIP()
		limiter := store.getLimiter(clientIP)

		if !limiter.Allow() {
			reservation := limiter.Reserve()
			retryAfter := int(reservation.Delay().Seconds())
			reservation.Cancel()
			if retryAfter < 1 {
				retryAfter = 1
			}

			logger.Debug("auth rate limit exceeded",
				slog.String("client_ip", clientIP),
				slog.Int("retry_after", retryAfter))

			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limit_exceeded",
				"message": "Too many authentication attempts from this IP. Please retry after the specified delay.",
			})
			c.Abort()
			return
		}

		c.Next()
	}
}

func (s *ipRateLimiterStore) getLimiter(ip string) *rate.Limiter {
	now := time.Now()
	if val, ok := s.limiters.Load(ip); ok {
		entry := val.(*ipRateLimiterEntry)
		entry.mu.Lock()
		entry.lastAccess = now
		entry.mu.Unlock()
		return entry.limiter
	}

	entry := &ipRateLimiterEntry{
		limiter:    rate.NewLimiter(rate.Limit(s.rps), s.burst),
		lastAccess: now,
	}
	actual, _ := s.limiters.LoadOrStore(ip, entry)
	return actual.(*ipRateLimiterEntry).limiter
}

func (s *ipRateLimiterStore) cleanupStale(ctx context.Context, interval, maxIdle time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(time.Now().Add(-maxIdle))
		}
	}
}

// sweep removes limiters last used before threshold.
func (s *ipRateLimiterStore) sweep(threshold time.Time) {
	s.limiters.Range(func(key, value any) bool {
		entry := value.(*ipRateLimiterEntry)
		entry.mu.Lock()
		stale := entry.lastAccess.Before(threshold)
		entry.mu.Unlock()

		if stale {
			s.limiters.Delete(key)
		}
		return true
	})
}
