package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/home-services-marketplace/internal/handler"
	"github.com/iliyamo/home-services-marketplace/internal/middleware"
)

// Deps collects the handlers and shared middleware the routes need.
type Deps struct {
	JWTSecret string
	DB        handler.Pinger

	Auth      *handler.AuthHandler
	Bookings  *handler.BookingHandler
	Providers *handler.ProviderHandler
	Catalog   *handler.CatalogHandler

	RateLimit  echo.MiddlewareFunc // token bucket, applied after authentication
	Cache      echo.MiddlewareFunc // response cache for public catalog reads
	Invalidate echo.MiddlewareFunc // cache purge after catalog writes
}

func (d Deps) limiter() echo.MiddlewareFunc {
	if d.RateLimit == nil {
		return noop
	}
	return d.RateLimit
}

func (d Deps) cache() echo.MiddlewareFunc {
	if d.Cache == nil {
		return noop
	}
	return d.Cache
}

func (d Deps) invalidate() echo.MiddlewareFunc {
	if d.Invalidate == nil {
		return noop
	}
	return d.Invalidate
}

func noop(next echo.HandlerFunc) echo.HandlerFunc { return next }

// Register wires every route onto e.
func Register(e *echo.Echo, d Deps) {
	RegisterRoutes(e, d.DB)
	RegisterAuth(e, d)
	RegisterCatalog(e, d)
	RegisterBookings(e, d)
	RegisterProviders(e, d)
}

// RegisterRoutes registers the unauthenticated probes.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health)
	if db != nil {
		e.GET("/readyz", handler.Ready(db))
	}
}

// RegisterAuth registers the session endpoints under /v1/auth and the
// bearer-protected /v1/me.
func RegisterAuth(e *echo.Echo, d Deps) {
	a := d.Auth
	g := e.Group("/v1/auth", d.limiter())
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	// rotates the refresh token
	g.POST("/refresh", a.Refresh)
	// new access token, same refresh token
	g.POST("/refresh-access", a.RefreshAccess)
	// refresh token in the body revokes one session, a bearer alone revokes all
	g.POST("/logout", a.Logout)

	e.GET("/v1/me", a.Me, middleware.JWTAuth(d.JWTSecret), d.limiter())
}
