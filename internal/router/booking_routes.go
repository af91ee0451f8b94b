package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/home-services-marketplace/internal/middleware"
	"github.com/iliyamo/home-services-marketplace/internal/model"
)

// RegisterBookings registers the booking lifecycle endpoints.  The role
// gates here are coarse; the controller enforces party membership and the
// transition table.
func RegisterBookings(e *echo.Echo, d Deps) {
	h := d.Bookings
	g := e.Group("/v1/bookings", middleware.JWTAuth(d.JWTSecret), d.limiter())

	g.POST("", h.Create, middleware.RequireRole(model.RoleCustomer))
	g.GET("/my-bookings", h.MyBookings, middleware.RequireRole(model.RoleCustomer))
	g.GET("/provider/bookings", h.ProviderBookings, middleware.RequireRole(model.RoleProvider))
	g.GET("/all", h.AllBookings, middleware.RequireRole(model.RoleAdmin))
	g.GET("/:id", h.Get)
	g.PATCH("/:id/status", h.UpdateStatus, middleware.RequireRole(model.RoleCustomer, model.RoleProvider))
}
