package handler

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"
    "github.com/shopspring/decimal"

    "github.com/iliyamo/home-services-marketplace/internal/model"
    "github.com/iliyamo/home-services-marketplace/internal/service"
)

// CatalogService is the catalog controller used by the handler.
type CatalogService interface {
    CreateCategory(ctx context.Context, caller service.Caller, in service.CategoryInput) (model.Category, error)
    ListCategories(ctx context.Context) ([]model.Category, error)
    CreateService(ctx context.Context, caller service.Caller, in service.ServiceInput) (model.Service, error)
    UpdateService(ctx context.Context, caller service.Caller, id uint64, in service.ServiceInput) (model.Service, error)
    DeleteService(ctx context.Context, caller service.Caller, id uint64) error
    ListServices(ctx context.Context, q service.ServiceQuery) ([]model.Service, error)
    GetService(ctx context.Context, id uint64) (model.Service, error)
}

type CatalogHandler struct {
    Options
    Catalog CatalogService
}

func NewCatalogHandler(opts Options, catalog CatalogService) *CatalogHandler {
    return &CatalogHandler{Options: opts, Catalog: catalog}
}

type categoryReq struct {
    Name        string `json:"name"`
    Description string `json:"description"`
}

type serviceReq struct {
    Name        string           `json:"name"`
    Description string           `json:"description"`
    CategoryID  uint64           `json:"categoryId"`
    BasePrice   *decimal.Decimal `json:"basePrice"`
    PriceUnit   string           `json:"priceUnit"`
    ProviderID  *uint64          `json:"providerId"`
}

func (r serviceReq) input() (service.ServiceInput, error) {
    if r.BasePrice == nil {
        return service.ServiceInput{}, service.InvalidInput("basePrice is required")
    }
    return service.ServiceInput{
        Name:        r.Name,
        Description: r.Description,
        CategoryID:  r.CategoryID,
        BasePrice:   *r.BasePrice,
        PriceUnit:   r.PriceUnit,
        ProviderID:  r.ProviderID,
    }, nil
}

// ListCategories handles GET /v1/categories.
func (h *CatalogHandler) ListCategories(c echo.Context) error {
    ctx, cancel := h.withTimeout(c)
    defer cancel()
    out, err := h.Catalog.ListCategories(ctx)
    if err != nil {
        return h.respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"success": true, "count": len(out), "categories": out})
}

// CreateCategory handles POST /v1/categories.
func (h *CatalogHandler) CreateCategory(c echo.Context) error {
    caller, ok := callerFrom(c)
    if !ok {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    var req categoryReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "invalid body")
    }
    ctx, cancel := h.withTimeout(c)
    defer cancel()
    cat, err := h.Catalog.CreateCategory(ctx, caller, service.CategoryInput(req))
    if err != nil {
        return h.respondError(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"success": true, "category": cat})
}

// ListServices handles GET /v1/services?categoryId=&providerId=&q=.
func (h *CatalogHandler) ListServices(c echo.Context) error {
    categoryID, err := queryUint(c, "categoryId")
    if err != nil {
        return h.respondError(c, err)
    }
    providerID, err := queryUint(c, "providerId")
    if err != nil {
        return h.respondError(c, err)
    }
    ctx, cancel := h.withTimeout(c)
    defer cancel()
    out, err := h.Catalog.ListServices(ctx, service.ServiceQuery{
        CategoryID: categoryID,
        ProviderID: providerID,
        Q:          c.QueryParam("q"),
    })
    if err != nil {
        return h.respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"success": true, "count": len(out), "services": out})
}

// GetService handles GET /v1/services/:id.
func (h *CatalogHandler) GetService(c echo.Context) error {
    id, ok := parseID(c, "id")
    if !ok {
        return fail(c, http.StatusBadRequest, "invalid service id")
    }
    ctx, cancel := h.withTimeout(c)
    defer cancel()
    svc, err := h.Catalog.GetService(ctx, id)
    if err != nil {
        return h.respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"success": true, "service": svc})
}

// CreateService handles POST /v1/services.
func (h *CatalogHandler) CreateService(c echo.Context) error {
    caller, ok := callerFrom(c)
    if !ok {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    var req serviceReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "invalid body")
    }
    in, err := req.input()
    if err != nil {
        return h.respondError(c, err)
    }
    ctx, cancel := h.withTimeout(c)
    defer cancel()
    svc, err := h.Catalog.CreateService(ctx, caller, in)
    if err != nil {
        return h.respondError(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"success": true, "service": svc})
}

// UpdateService handles PUT and PATCH /v1/services/:id.  Both replace the
// editable fields.
func (h *CatalogHandler) UpdateService(c echo.Context) error {
    caller, ok := callerFrom(c)
    if !ok {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    id, ok := parseID(c, "id")
    if !ok {
        return fail(c, http.StatusBadRequest, "invalid service id")
    }
    var req serviceReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "invalid body")
    }
    in, err := req.input()
    if err != nil {
        return h.respondError(c, err)
    }
    ctx, cancel := h.withTimeout(c)
    defer cancel()
    svc, err := h.Catalog.UpdateService(ctx, caller, id, in)
    if err != nil {
        return h.respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"success": true, "service": svc})
}

// DeleteService handles DELETE /v1/services/:id (soft delete).
func (h *CatalogHandler) DeleteService(c echo.Context) error {
    caller, ok := callerFrom(c)
    if !ok {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    id, ok := parseID(c, "id")
    if !ok {
        return fail(c, http.StatusBadRequest, "invalid service id")
    }
    ctx, cancel := h.withTimeout(c)
    defer cancel()
    if err := h.Catalog.DeleteService(ctx, caller, id); err != nil {
        return h.respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"success": true, "message": "service deleted"})
}
