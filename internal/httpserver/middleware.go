package httpserver

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/lalamig/storefront/internal/logging"
	"github.com/lalamig/storefront/internal/service"
)

const userContextKey = "auth_user"

// RequireAuth gates a route on a valid bearer token and stashes the
// resolved user in the echo context.
func RequireAuth(auth *service.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()

			header := c.Request().Header.Get(echo.HeaderAuthorization)
			raw, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || raw == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "please authenticate")
			}

			user, err := auth.Verify(ctx, raw)
			if err != nil {
				logging.FromContext(ctx).Warn("auth_rejected", "error", err)
				return echo.NewHTTPError(http.StatusUnauthorized, "please authenticate")
			}

			c.Set(userContextKey, user)
			return next(c)
		}
	}
}

func currentUser(c echo.Context) (*service.UserSummary, error) {
	user, ok := c.Get(userContextKey).(*service.UserSummary)
	if !ok || user == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "please authenticate")
	}
	return user, nil
}
