package handler

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/home-services-marketplace/internal/model"
    "github.com/iliyamo/home-services-marketplace/internal/service"
)

// ProviderService is the provider approval controller used by the handler.
type ProviderService interface {
    RequestProvider(ctx context.Context, caller service.Caller, in service.ProviderRequestInput) (model.Account, error)
    Decide(ctx context.Context, caller service.Caller, accountID uint64, decision service.Decision) (model.Account, error)
    ListApplications(ctx context.Context, caller service.Caller, status string) ([]model.Account, error)
}

type ProviderHandler struct {
    Options
    Providers ProviderService
}

func NewProviderHandler(opts Options, providers ProviderService) *ProviderHandler {
    return &ProviderHandler{Options: opts, Providers: providers}
}

type providerRequestReq struct {
    ServiceType string `json:"serviceType"`
    Address     string `json:"address"`
    Contact     string `json:"contact"`
}

// accountView adds the derived status to an account.
type accountView struct {
    model.Account
    Status string `json:"status"`
}

func viewOf(a model.Account) accountView { return accountView{Account: a, Status: a.Status()} }

// RequestProvider handles POST /v1/users/request-provider.  The body is
// optional.
func (h *ProviderHandler) RequestProvider(c echo.Context) error {
    caller, ok := callerFrom(c)
    if !ok {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    var req providerRequestReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "invalid body")
    }
    ctx, cancel := h.withTimeout(c)
    defer cancel()
    acct, err := h.Providers.RequestProvider(ctx, caller, service.ProviderRequestInput(req))
    if err != nil {
        return h.respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "success": true,
        "message": "provider request submitted",
        "user":    viewOf(acct),
    })
}

// ListApplications handles GET /v1/users/admin/providers?status=.
func (h *ProviderHandler) ListApplications(c echo.Context) error {
    caller, ok := callerFrom(c)
    if !ok {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    ctx, cancel := h.withTimeout(c)
    defer cancel()
    accts, err := h.Providers.ListApplications(ctx, caller, c.QueryParam("status"))
    if err != nil {
        return h.respondError(c, err)
    }
    out := make([]accountView, 0, len(accts))
    for _, a := range accts {
        out = append(out, viewOf(a))
    }
    return c.JSON(http.StatusOK, echo.Map{"success": true, "count": len(out), "providers": out})
}

// Approve handles PUT /v1/users/admin/approve/:id.
func (h *ProviderHandler) Approve(c echo.Context) error { return h.decide(c, service.DecisionApprove) }

// Reject handles PUT /v1/users/admin/reject/:id.
func (h *ProviderHandler) Reject(c echo.Context) error { return h.decide(c, service.DecisionReject) }

func (h *ProviderHandler) decide(c echo.Context, d service.Decision) error {
    caller, ok := callerFrom(c)
    if !ok {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    id, ok := parseID(c, "id")
    if !ok {
        return fail(c, http.StatusBadRequest, "invalid account id")
    }
    ctx, cancel := h.withTimeout(c)
    defer cancel()
    acct, err := h.Providers.Decide(ctx, caller, id, d)
    if err != nil {
        return h.respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{
        "success": true,
        "message": "provider " + acct.Status(),
        "user":    viewOf(acct),
    })
}
