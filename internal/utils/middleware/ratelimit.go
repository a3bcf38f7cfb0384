package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	// RateLimitRemaining is the header for remaining requests.
	RateLimitRemaining = "X-RateLimit-Remaining"
	// RateLimitLimit is the header for the limit.
	RateLimitLimit = "X-RateLimit-Limit"
	// RateLimitReset is the header for reset time.
	RateLimitReset = "X-RateLimit-Reset"
	// RetryAfter is the header for retry time.
	RetryAfter = "Retry-After"
)

// Limiter checks whether a request under a key fits in a time window.
type Limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	Remaining(ctx context.Context, key string, limit int, window time.Duration) (int, error)
}

// RateLimitConfig holds rate limit configuration.
type RateLimitConfig struct {
	// Limit is the maximum number of requests.
	Limit int
	// Window is the time window.
	Window time.Duration
	// KeyFunc generates the rate limit key from request.
	// Default uses client IP.
	KeyFunc func(*gin.Context) string
}

// RateLimit returns a middleware that limits requests using the given limiter.
// A nil limiter disables limiting.
func RateLimit(limiter Limiter, cfg RateLimitConfig) gin.HandlerFunc {
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c *gin.Context) string {
			return "ip:" + c.ClientIP()
		}
	}

	return func(c *gin.Context) {
		if limiter == nil {
			c.Next()
			return
		}

		key := cfg.KeyFunc(c)
		ctx := c.Request.Context()

		allowed, err := limiter.Allow(ctx, key, cfg.Limit, cfg.Window)
		if err != nil {
			// On limiter error, allow the request
			c.Next()
			return
		}

		remaining, _ := limiter.Remaining(ctx, key, cfg.Limit, cfg.Window)

		c.Header(RateLimitLimit, strconv.Itoa(cfg.Limit))
		c.Header(RateLimitRemaining, strconv.Itoa(remaining))
		c.Header(RateLimitReset, strconv.FormatInt(time.Now().Add(cfg.Window).Unix(), 10))

		if !allowed {
			c.Header(RetryAfter, strconv.Itoa(int(cfg.Window.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": gin.H{
					"code":    "RATE_LIMIT_EXCEEDED",
					"message": "Too many requests, please try again later",
				},
			})
			return
		}

		c.Next()
	}
}

// RateLimitByUser returns a rate limiter that limits by user ID.
// Falls back to IP if user is not authenticated.
func RateLimitByUser(limiter Limiter, limit int, window time.Duration) gin.HandlerFunc {
	return RateLimit(limiter, RateLimitConfig{
		Limit:  limit,
		Window: window,
		KeyFunc: func(c *gin.Context) string {
			if userID := GetUserID(c); userID != uuid.Nil {
				return "user:" + userID.String()
			}
			return "ip:" + c.ClientIP()
		},
	})
}

// RateLimitByEndpoint returns a rate limiter that limits by endpoint and IP.
func RateLimitByEndpoint(limiter Limiter, limit int, window time.Duration) gin.HandlerFunc {
	return RateLimit(limiter, RateLimitConfig{
		Limit:  limit,
		Window: window,
		KeyFunc: func(c *gin.Context) string {
			return fmt.Sprintf("endpoint:%s:%s:%s", c.Request.Method, c.FullPath(), c.ClientIP())
		},
	})
}
