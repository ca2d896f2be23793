package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/arklim/menu-accounts/internal/core/domain"
	"github.com/arklim/menu-accounts/internal/usecase"
)

// IPRateLimit enforces policy per client IP before the route handler runs.
func IPRateLimit(limiter *usecase.RateLimiter, policy domain.RateLimitPolicy) gin.HandlerFunc {
	return func(c *gin.Context) {
		decision := limiter.Check(c.Request.Context(), ClientIP(c.Request), policy)
		ApplyRateLimitHeaders(c, decision)
		if !decision.Allowed {
			AbortRateLimited(c, decision)
			return
		}
		c.Next()
	}
}

// ApplyRateLimitHeaders writes X-RateLimit-* headers, plus Retry-After on rejection.
func ApplyRateLimitHeaders(c *gin.Context, decision domain.Decision) {
	if decision.Limit <= 0 {
		return
	}
	headers := c.Writer.Header()
	headers.Set("X-RateLimit-Limit", strconv.Itoa(decision.Limit))
	headers.Set("X-RateLimit-Remaining", strconv.Itoa(max(decision.Remaining, 0)))
	headers.Set("X-RateLimit-Reset", strconv.FormatInt(decision.ResetAt.Unix(), 10))

	if !decision.Allowed {
		headers.Set("Retry-After", strconv.Itoa(retryAfterSeconds(decision.ResetAt)))
	}
}

// AbortRateLimited responds 429 RATE_LIMITED.
func AbortRateLimited(c *gin.Context, decision domain.Decision) {
	ApplyRateLimitHeaders(c, decision)
	c.AbortWithStatusJSON(http.StatusTooManyRequests, newErrorResponse(c, string(domain.CodeRateLimited)))
}

func retryAfterSeconds(resetAt time.Time) int {
	seconds := int(math.Ceil(time.Until(resetAt).Seconds()))
	if seconds < 1 {
		return 1
	}
	return seconds
}
