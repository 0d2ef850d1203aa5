// Package router registers the HTTP routes on an Echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/arena-booking/internal/config"
	"github.com/iliyamo/arena-booking/internal/handler"
	"github.com/iliyamo/arena-booking/internal/middleware"
	"github.com/iliyamo/arena-booking/internal/utils"
)

// Deps carries what the route groups need besides the handlers. A nil
// Redis client disables caching and rate limiting.
type Deps struct {
	JWTSecret string
	Redis     *redis.Client
	Cache     config.CacheConfig
	RateLimit config.RateLimitConfig
	Log       *zap.Logger
}

// Handlers bundles the API handlers.
type Handlers struct {
	Reservations *handler.ReservationHandler
	Payments     *handler.PaymentHandler
	Reports      *handler.ReportHandler
	Pricing      *handler.PricingHandler
}

// RegisterRoutes registers the unauthenticated operational endpoints.
func RegisterRoutes(e *echo.Echo, db handler.Pinger) {
	e.GET("/healthz", handler.Health(db))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterAPI mounts every /v1 endpoint. All of them require a staff token;
// price rule writes additionally require the ADMIN role.
func RegisterAPI(e *echo.Echo, h Handlers, d Deps) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireRole(utils.RoleStaff, utils.RoleAdmin),
		middleware.NewTokenBucket(d.RateLimit, d.Redis, d.Log),
	)
	registerReservations(g, h.Reservations, d)
	registerLedger(g, h.Payments, h.Reports)
	registerPricing(g, h.Pricing)
}
