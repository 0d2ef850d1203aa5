package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/arena-booking/internal/model"
	"github.com/iliyamo/arena-booking/internal/pricing"
)

// PricingHandler serves price resolution and rule administration.
type PricingHandler struct {
	Pricing *pricing.Service
	Log     *zap.Logger
	Now     func() time.Time
}

func NewPricingHandler(svc *pricing.Service, log *zap.Logger) *PricingHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &PricingHandler{Pricing: svc, Log: log, Now: func() time.Time { return time.Now().UTC() }}
}

// Resolve returns the rule that prices a slot on a date. The weekday
// defaults to the date's own weekday and the date to today.
func (h *PricingHandler) Resolve(c echo.Context) error {
	slot := strings.TrimSpace(c.QueryParam("time_slot"))
	if slot == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "time_slot is required"})
	}
	on, err := queryDate(c, "date")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	if on.IsZero() {
		on = model.DateOf(h.Now())
	}
	weekday := on.Weekday()
	if raw := c.QueryParam("weekday"); raw != "" {
		if weekday, err = model.ParseWeekday(raw); err != nil {
			return writeError(c, h.Log, err)
		}
	}
	kind, err := model.ParseBookingKind(c.QueryParam("kind"))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	rule, err := h.Pricing.ResolvePrice(c.Request().Context(), slot, weekday, on, kind)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"item": rule, "price": rule.Price})
}

type ruleBody struct {
	TimeSlot    string          `json:"time_slot" validate:"required"`
	Weekday     string          `json:"weekday" validate:"required"`
	Price       decimal.Decimal `json:"price"`
	ValidStart  string          `json:"valid_start"`
	ValidEnd    string          `json:"valid_end"`
	IsDefault   bool            `json:"is_default"`
	BookingKind string          `json:"booking_kind"`
}

func (b ruleBody) input() (pricing.RuleInput, error) {
	in := pricing.RuleInput{TimeSlot: strings.TrimSpace(b.TimeSlot), Price: b.Price, IsDefault: b.IsDefault}
	var err error
	if in.Weekday, err = model.ParseWeekday(b.Weekday); err != nil {
		return in, err
	}
	if in.Kind, err = model.ParsePriceKind(b.BookingKind); err != nil {
		return in, err
	}
	if in.ValidStart, err = optionalDate("valid_start", b.ValidStart); err != nil {
		return in, err
	}
	if in.ValidEnd, err = optionalDate("valid_end", b.ValidEnd); err != nil {
		return in, err
	}
	return in, nil
}

func optionalDate(field, raw string) (*time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	d, err := model.ParseDate(field, raw)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (h *PricingHandler) ListRules(c echo.Context) error {
	items, err := h.Pricing.ListRules(c.Request().Context())
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}

func (h *PricingHandler) CreateRule(c echo.Context) error {
	var body ruleBody
	if err := bindAndValidate(c, &body); err != nil || c.Response().Committed {
		return err
	}
	in, err := body.input()
	if err != nil {
		return writeError(c, h.Log, err)
	}
	rule, err := h.Pricing.CreateRule(c.Request().Context(), in)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"item": rule})
}

func (h *PricingHandler) UpdateRule(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid price rule id"})
	}
	var body ruleBody
	if err := bindAndValidate(c, &body); err != nil || c.Response().Committed {
		return err
	}
	in, err := body.input()
	if err != nil {
		return writeError(c, h.Log, err)
	}
	rule, err := h.Pricing.UpdateRule(c.Request().Context(), id, in)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"item": rule})
}

func (h *PricingHandler) DeleteRule(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid price rule id"})
	}
	if err := h.Pricing.DeleteRule(c.Request().Context(), id); err != nil {
		return writeError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
