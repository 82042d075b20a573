package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/closeio/authalligator/internal/shared/logger"
	"github.com/closeio/authalligator/internal/shared/utils"
)

type limiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// RateLimiter limits requests per client IP.
type RateLimiter struct {
	limiter limiter
	limit   int
	window  time.Duration
	logger  logger.Interface
}

func NewRateLimiter(l limiter, limit int, window time.Duration, log logger.Interface) *RateLimiter {
	return &RateLimiter{limiter: l, limit: limit, window: window, logger: log}
}

// Limit answers 429 once a client exceeds the limit. Limiter failures let
// the request through.
func (r *RateLimiter) Limit() gin.HandlerFunc {
	return func(c *gin.Context) {
		if r == nil || r.limit <= 0 {
			c.Next()
			return
		}

		allowed, err := r.limiter.Allow(c.Request.Context(), c.ClientIP(), r.limit, r.window)
		if err != nil {
			r.logger.Warnw("rate limiter unavailable", "error", err)
			c.Next()
			return
		}
		if !allowed {
			c.Header("Retry-After", strconv.Itoa(int(r.window.Seconds())))
			utils.ErrorResponse(c, http.StatusTooManyRequests, "too many requests")
			c.Abort()
			return
		}

		c.Next()
	}
}
