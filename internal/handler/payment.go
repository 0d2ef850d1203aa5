package handler

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/arena-booking/internal/ledger"
)

// PaymentHandler serves the ledger endpoints of a reservation.
type PaymentHandler struct {
	Ledger *ledger.Service
	Log    *zap.Logger
}

func NewPaymentHandler(svc *ledger.Service, log *zap.Logger) *PaymentHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &PaymentHandler{Ledger: svc, Log: log}
}

type paymentBody struct {
	Type   string          `json:"transaction_type" validate:"required"`
	Method string          `json:"payment_method"`
	Amount decimal.Decimal `json:"amount"`
}

type paymentPatchBody struct {
	Type   *string          `json:"transaction_type" validate:"omitempty,min=1"`
	Method *string          `json:"payment_method"`
	Amount *decimal.Decimal `json:"amount"`
}

// Record appends a transaction and returns the refreshed summary.
func (h *PaymentHandler) Record(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	}
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	var body paymentBody
	if err := bindAndValidate(c, &body); err != nil || c.Response().Committed {
		return err
	}
	sum, err := h.Ledger.RecordPayment(c.Request().Context(), id, ledger.PaymentInput{
		Type:   body.Type,
		Method: body.Method,
		Amount: body.Amount,
	}, uid)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "payment recorded", "item": sum})
}

// List returns a reservation's transactions, oldest first.
func (h *PaymentHandler) List(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	items, err := h.Ledger.ListTransactions(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}

// Summary returns the ledger summary of a reservation.
func (h *PaymentHandler) Summary(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	sum, err := h.Ledger.GetLedgerSummary(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"item": sum})
}

// Receipt renders the reservation's payment history as a PDF.
func (h *PaymentHandler) Receipt(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	pdf, err := h.Ledger.ReceiptPDF(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`inline; filename="receipt-%d.pdf"`, id))
	return c.Blob(http.StatusOK, "application/pdf", pdf)
}

// Edit corrects the type, method or amount of a transaction.
func (h *PaymentHandler) Edit(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	}
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid transaction id"})
	}
	var body paymentPatchBody
	if err := bindAndValidate(c, &body); err != nil || c.Response().Committed {
		return err
	}
	sum, err := h.Ledger.EditPayment(c.Request().Context(), id, ledger.PaymentPatch{
		Type:   body.Type,
		Method: body.Method,
		Amount: body.Amount,
	}, uid)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "payment updated", "item": sum})
}

// Delete removes a transaction. When it was the last one the summary is
// dropped as well and item is null.
func (h *PaymentHandler) Delete(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	}
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid transaction id"})
	}
	sum, err := h.Ledger.DeletePayment(c.Request().Context(), id, uid)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"item": sum, "summary_deleted": sum == nil})
}

// Recent lists the most recently updated ledger summaries.
func (h *PaymentHandler) Recent(c echo.Context) error {
	limit, err := queryUint(c, "limit")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	items, err := h.Ledger.ListRecentSummaries(c.Request().Context(), int(limit))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}
