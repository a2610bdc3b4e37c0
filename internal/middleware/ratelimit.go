package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	"github.com/iliyamo/signup-activation/internal/model"
	"github.com/iliyamo/signup-activation/internal/service"
)

// RateLimit admits requests through the limiter, keyed by client IP and
// endpoint.  A nil limiter disables throttling.  Rejected requests get a 429
// with Retry-After; admitted ones carry X-RateLimit-* headers.
func RateLimit(l *service.Limiter, endpoint string, policy model.RateLimitPolicy) echo.MiddlewareFunc {
	if l == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	policy = policy.Normalize()

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			d := l.Admit(c.Request().Context(), ip, endpoint, policy)

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
			h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))

			if d.Allowed {
				return next(c)
			}

			secs := int(math.Ceil(time.Until(d.ResetAt).Seconds()))
			if secs < 1 {
				secs = 1
			}
			h.Set("Retry-After", strconv.Itoa(secs))
			if l.Log != nil {
				l.Log.Warnj(log.JSON{"event": "ratelimit_block", "ip": ip, "endpoint": endpoint})
			}
			return c.JSON(http.StatusTooManyRequests, map[string]any{
				"success":     false,
				"error":       string(service.CodeRateLimited),
				"message":     "Too many requests. Please try again later.",
				"retry_after": secs,
			})
		}
	}
}
