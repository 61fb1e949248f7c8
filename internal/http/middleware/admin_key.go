package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v4"
)

const HeaderAPIKey = "X-API-Key"

// AdminKeyMiddleware guards destructive routes with a shared X-API-Key.
// An empty key leaves the route open.
func AdminKeyMiddleware(key string) echo.MiddlewareFunc {
	key = strings.TrimSpace(key)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if key == "" {
			return next
		}
		return func(c echo.Context) error {
			got := strings.TrimSpace(c.Request().Header.Get(HeaderAPIKey))
			if got == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing api key")
			}
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid api key")
			}
			return next(c)
		}
	}
}
