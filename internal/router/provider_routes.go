package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/home-services-marketplace/internal/middleware"
	"github.com/iliyamo/home-services-marketplace/internal/model"
)

// RegisterProviders registers the provider application workflow under
// /v1/users.
func RegisterProviders(e *echo.Echo, d Deps) {
	h := d.Providers
	g := e.Group("/v1/users", middleware.JWTAuth(d.JWTSecret), d.limiter())

	// Any bearer may call this; the controller answers "already a provider"
	// or "request already pending" from the stored account.
	g.POST("/request-provider", h.RequestProvider)

	admin := g.Group("/admin", middleware.RequireRole(model.RoleAdmin))
	admin.GET("/providers", h.ListApplications)
	admin.PUT("/approve/:id", h.Approve)
	admin.PUT("/reject/:id", h.Reject)
}
