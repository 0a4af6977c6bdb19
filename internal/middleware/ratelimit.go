package middleware

import (
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"climatrack/internal/cache"
	"climatrack/internal/errors"
	"climatrack/internal/metrics"
)

// RateLimit applies a per client IP token bucket to the routes it wraps.
// It fails open when redis is unavailable.
func RateLimit(client *cache.Client, route string, bucket cache.Bucket) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := "ratelimit:" + route + ":" + c.RealIP()
			d := client.Take(c.Request().Context(), key, bucket, time.Now())

			c.Response().Header().Set("X-RateLimit-Remaining", strconv.FormatInt(d.Remaining, 10))
			if d.Allowed {
				return next(c)
			}

			metrics.RateLimitedTotal.WithLabelValues(route).Inc()
			retry := int(math.Ceil(d.RetryAfter.Seconds()))
			if retry < 1 {
				retry = 1
			}
			c.Response().Header().Set(echo.HeaderRetryAfter, strconv.Itoa(retry))
			return echo.NewHTTPError(http.StatusTooManyRequests, errors.ErrorResponse{
				Error: "too many requests, slow down",
				Code:  "RATE_LIMITED",
			})
		}
	}
}
