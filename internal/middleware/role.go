package middleware

import (
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/home-services-marketplace/internal/model"
)

// RequireRole rejects callers whose role, as set by JWTAuth, is not one of
// roles.  It is a coarse route-level gate; controllers still check
// capabilities and ownership.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
    allowed := make(map[model.Role]bool, len(roles))
    for _, r := range roles {
        allowed[r] = true
    }
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            role, ok := c.Get(ContextRole).(model.Role)
            if !ok || !allowed[role] {
                return c.JSON(http.StatusForbidden, echo.Map{"success": false, "error": "forbidden"})
            }
            return next(c)
        }
    }
}
