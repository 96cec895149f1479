package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	HeaderUserID = "X-User-ID"

	callerIDKey = "caller_id"
)

// Identity copies the caller identity set by the upstream gateway into the
// request context. Absence is not rejected here; handlers decide.
func Identity() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			c.Set(callerIDKey, strings.TrimSpace(c.Request().Header.Get(HeaderUserID)))
			return next(c)
		}
	}
}

// CallerID falls back to the header so handlers also work without the middleware.
func CallerID(c echo.Context) string {
	if id, ok := c.Get(callerIDKey).(string); ok {
		return id
	}
	return strings.TrimSpace(c.Request().Header.Get(HeaderUserID))
}
