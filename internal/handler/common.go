package handler

import (
    "context"
    "errors"
    "net/http"
    "strconv"
    "strings"
    "time"

    "github.com/labstack/echo/v4"
    "go.uber.org/zap"

    "github.com/iliyamo/home-services-marketplace/internal/middleware"
    "github.com/iliyamo/home-services-marketplace/internal/model"
    "github.com/iliyamo/home-services-marketplace/internal/service"
)

// Options carries settings shared by every handler.
type Options struct {
    Debug   bool          // include internal error details in responses
    Timeout time.Duration // upper bound for store work per request
    Log     *zap.Logger
}

func (o Options) withTimeout(c echo.Context) (context.Context, context.CancelFunc) {
    d := o.Timeout
    if d <= 0 {
        d = 5 * time.Second
    }
    return context.WithTimeout(c.Request().Context(), d)
}

func (o Options) logger() *zap.Logger {
    if o.Log == nil {
        return zap.NewNop()
    }
    return o.Log
}

// statusFor maps a controller error kind to an HTTP status.
func statusFor(k service.Kind) int {
    switch k {
    case service.KindInvalidInput:
        return http.StatusBadRequest
    case service.KindUnauthorized:
        return http.StatusUnauthorized
    case service.KindForbidden:
        return http.StatusForbidden
    case service.KindNotFound:
        return http.StatusNotFound
    case service.KindInvalidState, service.KindConflict:
        return http.StatusConflict
    }
    return http.StatusInternalServerError
}

// respondError writes {success:false, error[, detail]}.  Details of
// internal failures are only exposed in debug mode.
func (o Options) respondError(c echo.Context, err error) error {
    kind := service.KindOf(err)
    msg := "internal server error"
    var se *service.Error
    if errors.As(err, &se) {
        msg = se.Message
    }
    body := echo.Map{"success": false, "error": msg}
    if kind == service.KindInternal {
        o.logger().Error("request failed", zap.String("path", c.Path()), zap.Error(err))
        if o.Debug {
            body["detail"] = err.Error()
        }
    }
    return c.JSON(statusFor(kind), body)
}

func fail(c echo.Context, status int, msg string) error {
    return c.JSON(status, echo.Map{"success": false, "error": msg})
}

// callerFrom reads the identity JWTAuth stored in the context.
func callerFrom(c echo.Context) (service.Caller, bool) {
    id, ok := c.Get(middleware.ContextUserID).(uint64)
    if !ok || id == 0 {
        return service.Caller{}, false
    }
    role, ok := c.Get(middleware.ContextRole).(model.Role)
    if !ok {
        return service.Caller{}, false
    }
    return service.Caller{ID: id, Role: role}, true
}

func parseID(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    return id, err == nil && id > 0
}

// pagination reads optional limit/offset query parameters.
func pagination(c echo.Context) (limit, offset int, err error) {
    if v := c.QueryParam("limit"); v != "" {
        if limit, err = strconv.Atoi(v); err != nil || limit < 0 {
            return 0, 0, service.InvalidInput("limit must be a non-negative integer")
        }
    }
    if v := c.QueryParam("offset"); v != "" {
        if offset, err = strconv.Atoi(v); err != nil || offset < 0 {
            return 0, 0, service.InvalidInput("offset must be a non-negative integer")
        }
    }
    return limit, offset, nil
}

func queryUint(c echo.Context, name string) (uint64, error) {
    v := strings.TrimSpace(c.QueryParam(name))
    if v == "" {
        return 0, nil
    }
    n, err := strconv.ParseUint(v, 10, 64)
    if err != nil {
        return 0, service.InvalidInput(name + " must be a positive integer")
    }
    return n, nil
}

// dateLayouts are the accepted forms of scheduledDate, most precise first.
var dateLayouts = []string{time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02T15:04", "2006-01-02"}

// parseDate interprets s in UTC when it carries no zone.
func parseDate(s string) (time.Time, bool) {
    s = strings.TrimSpace(s)
    for _, layout := range dateLayouts {
        if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
            return t.UTC(), true
        }
    }
    return time.Time{}, false
}
