package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/volunteer-slot-sync/internal/handler" // HTTP handlers
)

// RegisterRoutes registers the routes that never call the table service:
// the health check and the connectivity echo.  /ping accepts any method.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.Any("/ping", handler.Ping)
}

// RegisterSlots registers /updateSlot.  It is mounted for every method so
// that the handler, not the router, answers a non-POST with 400.  mw is
// applied to this route only (the idempotency store).
func RegisterSlots(e *echo.Echo, s *handler.SlotHandler, mw ...echo.MiddlewareFunc) {
	e.Any("/updateSlot", s.UpdateSlot, mw...)
}
