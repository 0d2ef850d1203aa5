// Package handler maps HTTP requests onto the booking, ledger and pricing
// services.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/arena-booking/internal/apperr"
	"github.com/iliyamo/arena-booking/internal/booking"
	"github.com/iliyamo/arena-booking/internal/middleware"
	"github.com/iliyamo/arena-booking/internal/model"
)

// CacheGroupCalendar holds the cached calendar views invalidated by every
// reservation write.
const CacheGroupCalendar = "calendar"

// CachePurger invalidates a group of cached responses.
type CachePurger interface {
	Purge(ctx context.Context, group string)
}

type nopPurger struct{}

func (nopPurger) Purge(context.Context, string) {}

// getUserID returns the authenticated staff id set by the JWT middleware.
func getUserID(c echo.Context) (uint64, error) {
	id, ok := middleware.UserID(c)
	if !ok {
		return 0, errors.New("invalid user_id in context")
	}
	return id, nil
}

// parseID reads a positive numeric path parameter.
func parseID(c echo.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	return id, err == nil && id > 0
}

// queryDate parses an optional YYYY-MM-DD query parameter. Absent values
// yield the zero time.
func queryDate(c echo.Context, name string) (time.Time, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return time.Time{}, nil
	}
	return model.ParseDate(name, raw)
}

// queryUint parses an optional positive integer query parameter.
func queryUint(c echo.Context, name string) (uint64, error) {
	raw := strings.TrimSpace(c.QueryParam(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, apperr.Validation(name, "must be a positive integer")
	}
	return n, nil
}

// splitList splits a comma-separated query value.
func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	return strings.Split(raw, ",")
}

// bindAndValidate binds the request body and runs the struct validator.
func bindAndValidate(c echo.Context, dst any) error {
	if err := c.Bind(dst); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := c.Validate(dst); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fields := make(map[string]string, len(verrs))
			for _, fe := range verrs {
				fields[fe.Field()] = fe.Tag()
			}
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "validation failed", "fields": fields})
		}
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	return nil
}

// writeError maps a service error onto a status code. Unknown errors are
// logged and reported as a generic failure.
func writeError(c echo.Context, log *zap.Logger, err error) error {
	var (
		ve  *apperr.ValidationError
		er  *apperr.EmptyRangeError
		nf  *apperr.NotFoundError
		pnf *apperr.PriceNotFoundError
		ce  *booking.ConflictError
	)
	switch {
	case errors.As(err, &ve):
		body := echo.Map{"error": ve.Error()}
		if ve.Field != "" {
			body["field"] = ve.Field
		}
		return c.JSON(http.StatusBadRequest, body)
	case errors.As(err, &er):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": er.Error(), "code": "empty_range"})
	case errors.As(err, &nf):
		return c.JSON(http.StatusNotFound, echo.Map{"error": nf.Error()})
	case errors.As(err, &ce):
		return c.JSON(http.StatusConflict, echo.Map{
			"error":     "time slot already reserved",
			"conflicts": ce.Conflicts,
		})
	case errors.As(err, &pnf):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": pnf.Error(), "code": "price_not_found"})
	case errors.Is(err, context.DeadlineExceeded):
		log.Warn("request timed out", zap.String("request_id", middleware.GetRequestID(c)), zap.Error(err))
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "operation timed out"})
	}
	log.Error("operation failed",
		zap.String("request_id", middleware.GetRequestID(c)),
		zap.String("route", c.Path()),
		zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "operation failed"})
}
