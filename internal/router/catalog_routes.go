package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/home-services-marketplace/internal/middleware"
	"github.com/iliyamo/home-services-marketplace/internal/model"
)

// RegisterCatalog registers category and service endpoints.  Reads are
// public and cached; writes need an admin or provider bearer and purge the
// cache on success.
func RegisterCatalog(e *echo.Echo, d Deps) {
	h := d.Catalog
	authed := []echo.MiddlewareFunc{middleware.JWTAuth(d.JWTSecret), d.limiter()}
	write := func(roles ...model.Role) []echo.MiddlewareFunc {
		return append(authed[:len(authed):len(authed)], middleware.RequireRole(roles...), d.invalidate())
	}

	e.GET("/v1/categories", h.ListCategories, d.limiter(), d.cache())
	e.POST("/v1/categories", h.CreateCategory, write(model.RoleAdmin)...)

	e.GET("/v1/services", h.ListServices, d.limiter(), d.cache())
	e.GET("/v1/services/:id", h.GetService, d.limiter(), d.cache())
	e.POST("/v1/services", h.CreateService, write(model.RoleAdmin, model.RoleProvider)...)
	e.PUT("/v1/services/:id", h.UpdateService, write(model.RoleAdmin, model.RoleProvider)...)
	e.PATCH("/v1/services/:id", h.UpdateService, write(model.RoleAdmin, model.RoleProvider)...)
	e.DELETE("/v1/services/:id", h.DeleteService, write(model.RoleAdmin, model.RoleProvider)...)
}
