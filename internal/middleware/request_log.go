package middleware

import (
    "context"
    "log/slog"

    "github.com/google/uuid"
    "github.com/labstack/echo/v4"
    echomw "github.com/labstack/echo/v4/middleware"
)

// RequestID assigns every request a uuid, echoed in X-Request-Id, unless the
// caller already sent one.
func RequestID() echo.MiddlewareFunc {
    return echomw.RequestIDWithConfig(echomw.RequestIDConfig{Generator: uuid.NewString})
}

// RequestLog writes one slog record per request.
func RequestLog(logger *slog.Logger) echo.MiddlewareFunc {
    return echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
        LogMethod:    true,
        LogURIPath:   true,
        LogStatus:    true,
        LogLatency:   true,
        LogRequestID: true,
        LogRemoteIP:  true,
        LogError:     true,
        HandleError:  true,
        LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
            level := slog.LevelInfo
            if v.Status >= 500 || v.Error != nil {
                level = slog.LevelError
            }
            attrs := []slog.Attr{
                slog.String("method", v.Method),
                slog.String("path", v.URIPath),
                slog.Int("status", v.Status),
                slog.Duration("latency", v.Latency),
                slog.String("request_id", v.RequestID),
                slog.String("remote_ip", v.RemoteIP),
            }
            if v.Error != nil {
                attrs = append(attrs, slog.String("err", v.Error.Error()))
            }
            logger.LogAttrs(context.Background(), level, "request", attrs...)
            return nil
        },
    })
}
