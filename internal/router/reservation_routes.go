package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/arena-booking/internal/handler"
	"github.com/iliyamo/arena-booking/internal/middleware"
)

// registerReservations mounts the calendar and reservation endpoints. The
// calendar reads are cached in Redis and purged by reservation writes.
func registerReservations(g *echo.Group, h *handler.ReservationHandler, d Deps) {
	cache := middleware.NewRedisCache(d.Cache, d.Redis, handler.CacheGroupCalendar)

	g.GET("/time-slots", h.TimeSlots)
	g.GET("/availability", h.Availability)
	g.GET("/reservations", h.Matrix, cache)
	g.GET("/reservations/by-date/:date", h.ByDate, cache)
	g.POST("/reservations", h.Create)
	g.GET("/reservations/:id", h.Get)
	g.PUT("/reservations/:id", h.Update)
	g.DELETE("/reservations/:id", h.Delete)
}
