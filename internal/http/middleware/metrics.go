package middleware

import (
	"strconv"

	"github.com/jmehdipour/customers-api/internal/metrics"
	echo "github.com/labstack/echo/v4"
)

// MetricsMiddleware counts requests by method, matched route and final status.
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err != nil {
				// render now so the status code is known
				c.Error(err)
			}

			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			metrics.HTTPRequestsTotal.WithLabelValues(
				c.Request().Method,
				route,
				strconv.Itoa(c.Response().Status),
			).Inc()
			return err
		}
	}
}
