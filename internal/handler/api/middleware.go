package api

import (
	"strconv"
	"time"

	"MarketLens/internal/service/metrics"
	"MarketLens/internal/service/ratelimit"
	xhttp "MarketLens/pkg/http"

	"github.com/labstack/echo/v4"
)

// RateLimit rejects clients that exhausted their token bucket. Clients are
// keyed by their real IP.
func RateLimit(rl *ratelimit.Limiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if rl != nil && !rl.Allow(c.RealIP()) {
				c.Response().Header().Set("Retry-After", "1")
				return xhttp.AppErrorResponse(c, xhttp.TooManyRequestsError("Rate limit exceeded"))
			}
			return next(c)
		}
	}
}

// observe records latency and non-2xx statuses per endpoint.
func observe(endpoint string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)
			metrics.APILatency.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
			if status := c.Response().Status; status >= 400 {
				metrics.APIErrors.WithLabelValues(endpoint, strconv.Itoa(status)).Inc()
			}
			return err
		}
	}
}
