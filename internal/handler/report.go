package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/arena-booking/internal/ledger"
	"github.com/iliyamo/arena-booking/internal/model"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ReportHandler serves the period reports and the dashboard.
type ReportHandler struct {
	Ledger *ledger.Service
	Log    *zap.Logger
	Now    func() time.Time
}

func NewReportHandler(svc *ledger.Service, log *zap.Logger) *ReportHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReportHandler{Ledger: svc, Log: log, Now: func() time.Time { return time.Now().UTC() }}
}

// filter reads the window and the optional narrowing parameters.
func (h *ReportHandler) filter(c echo.Context) (model.TransactionFilter, error) {
	var (
		f   model.TransactionFilter
		err error
	)
	if f.Start, err = queryDate(c, "start_date"); err != nil {
		return f, err
	}
	if f.End, err = queryDate(c, "end_date"); err != nil {
		return f, err
	}
	if raw := c.QueryParam("type"); raw != "" {
		if f.Type, err = model.ParseTransactionType(raw); err != nil {
			return f, err
		}
	}
	if f.Method, err = model.ParsePaymentMethod(c.QueryParam("method")); err != nil {
		return f, err
	}
	if f.ReservationID, err = queryUint(c, "reservation_id"); err != nil {
		return f, err
	}
	if f.CreatedBy, err = queryUint(c, "created_by"); err != nil {
		return f, err
	}
	return f, nil
}

// Transactions lists the transactions of a window with daily and period totals.
func (h *ReportHandler) Transactions(c echo.Context) error {
	f, err := h.filter(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	rep, err := h.Ledger.ListTransactionsInWindow(c.Request().Context(), f)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, rep)
}

// TransactionsXLSX exports the same report as a workbook.
func (h *ReportHandler) TransactionsXLSX(c echo.Context) error {
	f, err := h.filter(c)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	data, err := h.Ledger.ExportWindowXLSX(c.Request().Context(), f)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	name := fmt.Sprintf("transactions_%s_%s.xlsx", model.FormatDate(f.Start), model.FormatDate(f.End))
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, name))
	return c.Blob(http.StatusOK, xlsxContentType, data)
}

// Dashboard returns booking counts and revenue around today.
func (h *ReportHandler) Dashboard(c echo.Context) error {
	d, err := h.Ledger.Dashboard(c.Request().Context(), h.Now())
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, d)
}
