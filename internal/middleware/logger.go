package middleware

import (
    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
    "go.uber.org/zap"
)

// RequestLogger writes one structured line per request.  Server errors are
// logged at error level, everything else at info.
func RequestLogger(log *zap.Logger) echo.MiddlewareFunc {
    return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
        LogMethod:    true,
        LogURI:       true,
        LogStatus:    true,
        LogLatency:   true,
        LogRequestID: true,
        LogRemoteIP:  true,
        LogError:     true,
        HandleError:  true,
        LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
            fields := []zap.Field{
                zap.String("method", v.Method),
                zap.String("uri", v.URI),
                zap.Int("status", v.Status),
                zap.Duration("latency", v.Latency),
                zap.String("request_id", v.RequestID),
                zap.String("remote_ip", v.RemoteIP),
            }
            if id, ok := c.Get(ContextUserID).(uint64); ok {
                fields = append(fields, zap.Uint64("user_id", id))
            }
            if v.Error != nil {
                fields = append(fields, zap.Error(v.Error))
            }
            if v.Status >= 500 {
                log.Error("request", fields...)
            } else {
                log.Info("request", fields...)
            }
            return nil
        },
    })
}
