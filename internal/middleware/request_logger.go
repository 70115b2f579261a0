package middleware

import (
	"strconv"
	"time"

	"electroCare/pkg/logger"
	"electroCare/pkg/metrics"

	"github.com/labstack/echo/v4"
)

// RequestLogger logs one line per request and records its latency.
func RequestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)
			if err != nil {
				c.Error(err)
			}

			latency := time.Since(start)
			status := c.Response().Status
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}

			metrics.HTTPRequestDuration.
				WithLabelValues(c.Request().Method, route, strconv.Itoa(status)).
				Observe(latency.Seconds())

			args := []any{
				"method", c.Request().Method,
				"path", c.Request().URL.Path,
				"status", status,
				"latency", latency.String(),
				"ip", c.RealIP(),
			}
			if status >= 500 {
				logger.Error("Request failed", args...)
			} else {
				logger.Info("Request handled", args...)
			}

			return nil
		}
	}
}
