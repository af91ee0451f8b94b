package handler

import (
    "context"
    "net/http"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/home-services-marketplace/internal/model"
    "github.com/iliyamo/home-services-marketplace/internal/service"
)

// BookingService is the booking lifecycle controller used by the handler.
type BookingService interface {
    Create(ctx context.Context, caller service.Caller, in service.CreateBookingInput) (model.BookingDetail, error)
    UpdateStatus(ctx context.Context, caller service.Caller, id uint64, target string) (model.BookingDetail, error)
    Get(ctx context.Context, caller service.Caller, id uint64) (model.BookingDetail, error)
    ListForCustomer(ctx context.Context, caller service.Caller, limit, offset int) ([]model.BookingDetail, error)
    ListForProvider(ctx context.Context, caller service.Caller, limit, offset int) ([]model.BookingDetail, error)
    ListAll(ctx context.Context, caller service.Caller, limit, offset int) ([]model.BookingDetail, error)
}

type BookingHandler struct {
    Options
    Bookings BookingService
}

func NewBookingHandler(opts Options, bookings BookingService) *BookingHandler {
    return &BookingHandler{Options: opts, Bookings: bookings}
}

type createBookingReq struct {
    ServiceID     uint64 `json:"serviceId"`
    ScheduledDate string `json:"scheduledDate"`
    Notes         string `json:"notes"`
}

type updateStatusReq struct {
    Status string `json:"status"`
}

// Create handles POST /v1/bookings.
func (h *BookingHandler) Create(c echo.Context) error {
    caller, ok := callerFrom(c)
    if !ok {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    var req createBookingReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "invalid body")
    }
    // An unparseable date is passed on as zero so the controller reports it
    // after the service lookup, like a missing one.
    in := service.CreateBookingInput{ServiceID: req.ServiceID, Notes: req.Notes}
    if at, ok := parseDate(req.ScheduledDate); ok {
        in.ScheduledAt = at
    }

    ctx, cancel := h.withTimeout(c)
    defer cancel()
    d, err := h.Bookings.Create(ctx, caller, in)
    if err != nil {
        return h.respondError(c, err)
    }
    return c.JSON(http.StatusCreated, echo.Map{"success": true, "booking": d})
}

// UpdateStatus handles PATCH /v1/bookings/:id/status.
func (h *BookingHandler) UpdateStatus(c echo.Context) error {
    caller, ok := callerFrom(c)
    if !ok {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    id, ok := parseID(c, "id")
    if !ok {
        return fail(c, http.StatusBadRequest, "invalid booking id")
    }
    var req updateStatusReq
    if err := c.Bind(&req); err != nil {
        return fail(c, http.StatusBadRequest, "invalid body")
    }

    ctx, cancel := h.withTimeout(c)
    defer cancel()
    d, err := h.Bookings.UpdateStatus(ctx, caller, id, req.Status)
    if err != nil {
        return h.respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"success": true, "booking": d})
}

// Get handles GET /v1/bookings/:id.
func (h *BookingHandler) Get(c echo.Context) error {
    caller, ok := callerFrom(c)
    if !ok {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    id, ok := parseID(c, "id")
    if !ok {
        return fail(c, http.StatusBadRequest, "invalid booking id")
    }
    ctx, cancel := h.withTimeout(c)
    defer cancel()
    d, err := h.Bookings.Get(ctx, caller, id)
    if err != nil {
        return h.respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"success": true, "booking": d})
}

type listFunc func(ctx context.Context, caller service.Caller, limit, offset int) ([]model.BookingDetail, error)

func (h *BookingHandler) list(c echo.Context, fn listFunc) error {
    caller, ok := callerFrom(c)
    if !ok {
        return fail(c, http.StatusUnauthorized, "unauthorized")
    }
    limit, offset, err := pagination(c)
    if err != nil {
        return h.respondError(c, err)
    }
    ctx, cancel := h.withTimeout(c)
    defer cancel()
    out, err := fn(ctx, caller, limit, offset)
    if err != nil {
        return h.respondError(c, err)
    }
    return c.JSON(http.StatusOK, echo.Map{"success": true, "count": len(out), "bookings": out})
}

// MyBookings handles GET /v1/bookings/my-bookings.
func (h *BookingHandler) MyBookings(c echo.Context) error { return h.list(c, h.Bookings.ListForCustomer) }

// ProviderBookings handles GET /v1/bookings/provider/bookings.
func (h *BookingHandler) ProviderBookings(c echo.Context) error {
    return h.list(c, h.Bookings.ListForProvider)
}

// AllBookings handles GET /v1/bookings/all.
func (h *BookingHandler) AllBookings(c echo.Context) error { return h.list(c, h.Bookings.ListAll) }
