package middleware

import (
	"github.com/labstack/echo/v4"

	"portfoliochat/internal/infrastructure/metrics"
	"portfoliochat/internal/infrastructure/ratelimit"
	"portfoliochat/pkg/errors"
	"portfoliochat/pkg/logger"
	"portfoliochat/pkg/response"
)

// RateLimit throttles requests per client IP.
func RateLimit(limiter *ratelimit.RateLimiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ip := c.RealIP()
			if ok, wait := limiter.Allow(ip, ratelimit.ActionHTTP); !ok {
				logger.Warn("Rate limit exceeded: ip=%s, retry_after=%v", ip, wait)
				metrics.RecordRateLimited(ratelimit.ActionHTTP)
				return response.Error(c, errors.TooManyRequests("Rate limit exceeded", nil))
			}
			return next(c)
		}
	}
}
