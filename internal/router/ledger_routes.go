package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/arena-booking/internal/handler"
)

// registerLedger mounts the payment, ledger and report endpoints.
func registerLedger(g *echo.Group, p *handler.PaymentHandler, r *handler.ReportHandler) {
	g.POST("/reservations/:id/payments", p.Record)
	g.GET("/reservations/:id/payments", p.List)
	g.GET("/reservations/:id/ledger", p.Summary)
	g.GET("/reservations/:id/receipt.pdf", p.Receipt)
	g.PUT("/payments/:id", p.Edit)
	g.DELETE("/payments/:id", p.Delete)
	g.GET("/ledgers/recent", p.Recent)

	g.GET("/reports/transactions", r.Transactions)
	g.GET("/reports/transactions.xlsx", r.TransactionsXLSX)
	g.GET("/reports/dashboard", r.Dashboard)
}
