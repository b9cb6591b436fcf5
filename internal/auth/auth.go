// Package auth guards the agent-facing API with a single shared bearer
// token. The only caller is the local desktop agent, so there is no identity
// provider and no per-user session to manage.
package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Middleware returns an echo middleware that rejects requests whose
// Authorization header does not carry the configured bearer token. An empty
// configured token disables the check, which is only sensible for local
// development.
func Middleware(token string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if token == "" {
				return next(c)
			}
			header := c.Request().Header.Get(echo.HeaderAuthorization)
			if header == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing authorization header")
			}
			scheme, presented, found := strings.Cut(header, " ")
			if !found || !strings.EqualFold(scheme, "bearer") {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid authentication scheme")
			}
			if subtle.ConstantTimeCompare([]byte(presented), []byte(token)) != 1 {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid token")
			}
			return next(c)
		}
	}
}
