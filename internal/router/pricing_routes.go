package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/arena-booking/internal/handler"
	"github.com/iliyamo/arena-booking/internal/middleware"
	"github.com/iliyamo/arena-booking/internal/utils"
)

func registerPricing(g *echo.Group, h *handler.PricingHandler) {
	g.GET("/prices/resolve", h.Resolve)
	g.GET("/price-rules", h.ListRules)

	admin := middleware.RequireRole(utils.RoleAdmin)
	g.POST("/price-rules", h.CreateRule, admin)
	g.PUT("/price-rules/:id", h.UpdateRule, admin)
	g.DELETE("/price-rules/:id", h.DeleteRule, admin)
}
