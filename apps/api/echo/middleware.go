package echoapi

import (
	"github.com/labstack/echo/v4"

	"github.com/trezcool/masomo-lms/core/access"
)

// roleMiddleware restricts a route to the given roles.
func roleMiddleware(roles ...access.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			p := getPrincipal(ctx)
			if !p.IsAuthenticated() {
				return access.ErrUnauthenticated
			}
			for _, r := range roles {
				if p.Role == r {
					return next(ctx)
				}
			}
			return access.ErrForbidden
		}
	}
}

func adminMiddleware() echo.MiddlewareFunc {
	return roleMiddleware(access.RoleAdmin)
}
