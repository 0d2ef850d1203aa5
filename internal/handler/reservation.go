package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/arena-booking/internal/booking"
	"github.com/iliyamo/arena-booking/internal/model"
)

// ReservationHandler serves the calendar and reservation endpoints.
type ReservationHandler struct {
	Booking *booking.Service
	Cache   CachePurger
	Log     *zap.Logger
}

func NewReservationHandler(svc *booking.Service, cache CachePurger, log *zap.Logger) *ReservationHandler {
	if cache == nil {
		cache = nopPurger{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &ReservationHandler{Booking: svc, Cache: cache, Log: log}
}

// TimeSlots lists the configured slot labels in display order.
func (h *ReservationHandler) TimeSlots(c echo.Context) error {
	slots := h.Booking.TimeSlots()
	return c.JSON(http.StatusOK, echo.Map{"items": slots, "count": len(slots)})
}

// Availability answers whether a prospective booking would conflict. A
// date parameter implies a single booking, a start/end pair a recurring one.
func (h *ReservationHandler) Availability(c echo.Context) error {
	req := booking.ReserveRequest{
		Kind:      c.QueryParam("kind"),
		TimeSlot:  c.QueryParam("time_slot"),
		Date:      c.QueryParam("date"),
		StartDate: c.QueryParam("start_date"),
		EndDate:   c.QueryParam("end_date"),
		Weekdays:  splitList(c.QueryParam("weekdays")),
	}
	if req.Kind == "" && req.Date == "" {
		req.Kind = string(model.KindRecurring)
	}
	excludeID, err := queryUint(c, "exclude_id")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	cand, err := h.Booking.Candidate(req)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	conflicts, err := h.Booking.CheckConflict(c.Request().Context(), cand, excludeID)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"available":    len(conflicts) == 0,
		"has_conflict": len(conflicts) > 0,
		"conflicts":    conflicts,
	})
}

// Matrix returns the availability calendar of a date range.
func (h *ReservationHandler) Matrix(c echo.Context) error {
	start, err := queryDate(c, "start_date")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	end, err := queryDate(c, "end_date")
	if err != nil {
		return writeError(c, h.Log, err)
	}
	m, err := h.Booking.QueryReservations(c.Request().Context(), start, end)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, m)
}

// ByDate lists one day's reservations in slot order.
func (h *ReservationHandler) ByDate(c echo.Context) error {
	date, err := model.ParseDate("date", c.Param("date"))
	if err != nil {
		return writeError(c, h.Log, err)
	}
	items, err := h.Booking.ListForDate(c.Request().Context(), date)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"date": model.FormatDate(date), "items": items, "count": len(items)})
}

// reservationBody is the JSON body of create and update requests.
type reservationBody struct {
	CustomerName string   `json:"customer_name" validate:"required"`
	Phone        string   `json:"phone" validate:"required"`
	Kind         string   `json:"kind"`
	TimeSlot     string   `json:"time_slot" validate:"required"`
	Date         string   `json:"date"`
	StartDate    string   `json:"start_date"`
	EndDate      string   `json:"end_date"`
	Weekdays     []string `json:"weekdays" validate:"omitempty,dive,required"`
}

func (b reservationBody) request() booking.ReserveRequest {
	return booking.ReserveRequest{
		CustomerName: b.CustomerName,
		Phone:        b.Phone,
		Kind:         b.Kind,
		TimeSlot:     b.TimeSlot,
		Date:         b.Date,
		StartDate:    b.StartDate,
		EndDate:      b.EndDate,
		Weekdays:     b.Weekdays,
	}
}

// Create books a slot after an atomic availability check.
func (h *ReservationHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	}
	var body reservationBody
	if err := bindAndValidate(c, &body); err != nil || c.Response().Committed {
		return err
	}
	res, err := h.Booking.CheckAndReserve(c.Request().Context(), body.request(), uid)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	h.purge(c.Request().Context())
	return c.JSON(http.StatusCreated, echo.Map{"message": "booking confirmed", "item": res})
}

// Get returns one reservation, cancelled ones included.
func (h *ReservationHandler) Get(c echo.Context) error {
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	res, err := h.Booking.Get(c.Request().Context(), id)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"item": res})
}

// Update edits an active reservation, checking its new dates against every
// other active reservation.
func (h *ReservationHandler) Update(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	}
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	var body reservationBody
	if err := bindAndValidate(c, &body); err != nil || c.Response().Committed {
		return err
	}
	res, err := h.Booking.UpdateReservation(c.Request().Context(), id, body.request(), uid)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	h.purge(c.Request().Context())
	return c.JSON(http.StatusOK, echo.Map{"message": "reservation updated", "item": res})
}

// Delete cancels a reservation. retain_payments defaults to true; false
// removes the reservation together with its payments.
func (h *ReservationHandler) Delete(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
	}
	id, ok := parseID(c, "id")
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid reservation id"})
	}
	retain := true
	if raw := strings.TrimSpace(c.QueryParam("retain_payments")); raw != "" {
		retain, err = strconv.ParseBool(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "retain_payments must be true or false"})
		}
	}
	out, err := h.Booking.CancelOrDelete(c.Request().Context(), id, retain, uid)
	if err != nil {
		return writeError(c, h.Log, err)
	}
	h.purge(c.Request().Context())
	return c.JSON(http.StatusOK, echo.Map{"item": out})
}

func (h *ReservationHandler) purge(ctx context.Context) {
	h.Cache.Purge(ctx, CacheGroupCalendar)
}
