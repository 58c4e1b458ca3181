package middleware

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"stratum/internal/infrastructure/ratelimit"
	"stratum/internal/shared/config"
	"stratum/internal/shared/logger"
	"stratum/internal/shared/utils"
)

// RateLimit enforces the per-client request budget. Keys combine the
// client IP with the tenant hint so one tenant's burst cannot exhaust
// another tenant's budget from the same gateway IP.
func RateLimit(limiter ratelimit.RateLimiter, cfg config.RateLimitConfig, log logger.Interface) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()
		if hint := HintFromContext(c); !hint.Empty() {
			key = fmt.Sprintf("%s:%s", key, hint.Identifier())
		}

		allowed, err := limiter.Allow(key, cfg.Limit, cfg.Window())
		if err != nil {
			// A broken limiter must not block all traffic.
			log.Warnw("rate limiter unavailable, allowing request", "error", err)
			c.Next()
			return
		}

		if !allowed {
			utils.ErrorResponse(c, http.StatusTooManyRequests, "rate limit exceeded, please try again later")
			c.Abort()
			return
		}

		c.Next()
	}
}
