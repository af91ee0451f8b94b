package router

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/home-services-marketplace/internal/config"
	"github.com/iliyamo/home-services-marketplace/internal/handler"
	"github.com/iliyamo/home-services-marketplace/internal/model"
	"github.com/iliyamo/home-services-marketplace/internal/service"
	"github.com/iliyamo/home-services-marketplace/internal/utils"
)

const secret = "router-secret"

// providerBookings answers only the provider listing; any other call
// panics on the nil embedded interface.
type providerBookings struct {
	handler.BookingService
	caller service.Caller
}

func (p *providerBookings) ListForProvider(_ context.Context, c service.Caller, _, _ int) ([]model.BookingDetail, error) {
	p.caller = c
	return []model.BookingDetail{}, nil
}

func newTestEcho(t *testing.T, bookings handler.BookingService) *echo.Echo {
	t.Helper()
	e := echo.New()
	Register(e, Deps{
		JWTSecret: secret,
		Auth:      handler.NewAuthHandler(handler.Options{}, config.Config{JWTSecret: secret}, nil, nil),
		Bookings:  handler.NewBookingHandler(handler.Options{}, bookings),
		Providers: handler.NewProviderHandler(handler.Options{}, nil),
		Catalog:   handler.NewCatalogHandler(handler.Options{}, nil),
	})
	return e
}

func bearer(t *testing.T, id uint64, role model.Role) string {
	t.Helper()
	tok, err := utils.NewAccessToken(secret, id, "user@example.com", string(role), 5)
	require.NoError(t, err)
	return "Bearer " + tok.Token
}

func serve(e *echo.Echo, method, target, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestRegister_Health(t *testing.T) {
	e := newTestEcho(t, nil)
	rec := serve(e, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRegister_ProtectedRoutesNeedBearer(t *testing.T) {
	e := newTestEcho(t, nil)
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/v1/me"},
		{http.MethodPost, "/v1/bookings"},
		{http.MethodGet, "/v1/bookings/7"},
		{http.MethodPatch, "/v1/bookings/7/status"},
		{http.MethodPost, "/v1/users/request-provider"},
		{http.MethodGet, "/v1/users/admin/providers"},
		{http.MethodPost, "/v1/categories"},
		{http.MethodDelete, "/v1/services/3"},
	} {
		rec := serve(e, tc.method, tc.path, "")
		assert.Equal(t, http.StatusUnauthorized, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestRegister_RoleGates(t *testing.T) {
	e := newTestEcho(t, nil)
	customer := bearer(t, 1, model.RoleCustomer)
	provider := bearer(t, 2, model.RoleProvider)

	for _, tc := range []struct {
		method, path, auth string
	}{
		{http.MethodGet, "/v1/bookings/all", customer},
		{http.MethodGet, "/v1/bookings/provider/bookings", customer},
		{http.MethodGet, "/v1/bookings/my-bookings", provider},
		{http.MethodPost, "/v1/bookings", provider},
		{http.MethodPut, "/v1/users/admin/approve/2", provider},
		{http.MethodPost, "/v1/categories", provider},
		{http.MethodPost, "/v1/services", customer},
	} {
		rec := serve(e, tc.method, tc.path, tc.auth)
		assert.Equal(t, http.StatusForbidden, rec.Code, "%s %s", tc.method, tc.path)
	}
}

func TestRegister_StaticPathWinsOverID(t *testing.T) {
	stub := &providerBookings{}
	e := newTestEcho(t, stub)

	rec := serve(e, http.MethodGet, "/v1/bookings/provider/bookings", bearer(t, 2, model.RoleProvider))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, service.Caller{ID: 2, Role: model.RoleProvider}, stub.caller)
}
