package middleware // package middleware holds the reusable HTTP middleware

import (
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/home-services-marketplace/internal/model"
    "github.com/iliyamo/home-services-marketplace/internal/utils"
)

// Context keys set by JWTAuth.
const (
    ContextUserID = "user_id" // uint64
    ContextRole   = "role"    // model.Role
    ContextEmail  = "email"   // string
)

// JWTAuth validates a Bearer access token and stores the caller's ID, role
// and email in the echo context.  Tokens whose role is outside the closed
// role set are rejected.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            auth := c.Request().Header.Get(echo.HeaderAuthorization)
            raw, found := strings.CutPrefix(auth, "Bearer ")
            if !found || strings.TrimSpace(raw) == "" {
                return unauthorized(c, "missing bearer token")
            }
            claims, err := utils.ParseAccessToken(secret, strings.TrimSpace(raw))
            if err != nil {
                return unauthorized(c, "invalid token")
            }
            role, ok := model.ParseRole(claims.Role)
            if !ok {
                return unauthorized(c, "invalid token")
            }
            c.Set(ContextUserID, claims.UserID)
            c.Set(ContextRole, role)
            c.Set(ContextEmail, claims.Email)
            return next(c)
        }
    }
}

func unauthorized(c echo.Context, msg string) error {
    return c.JSON(http.StatusUnauthorized, echo.Map{"success": false, "error": msg})
}
