// Package apperr holds the typed failures shared by the booking, ledger and
// pricing services. Handlers inspect them with errors.As to pick a status code.
package apperr

import (
	"fmt"
	"time"
)

// ValidationError reports malformed input. No state was changed.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return e.Field + ": " + e.Message
}

// Validation builds a *ValidationError with a formatted message.
func Validation(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// EmptyRangeError is returned when a weekday filter removes every date of a range.
type EmptyRangeError struct {
	Start    time.Time
	End      time.Time
	Weekdays string
}

func (e *EmptyRangeError) Error() string {
	return fmt.Sprintf("no dates between %s and %s fall on %s",
		e.Start.Format("2006-01-02"), e.End.Format("2006-01-02"), e.Weekdays)
}

// NotFoundError reports an unknown id.
type NotFoundError struct {
	Resource string
	ID       uint64
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %d not found", e.Resource, e.ID)
}

func NotFound(resource string, id uint64) error {
	return &NotFoundError{Resource: resource, ID: id}
}

// PriceNotFoundError means no price rule matched; pricing must be configured.
type PriceNotFoundError struct {
	TimeSlot string
	Weekday  time.Weekday
	Date     time.Time
}

func (e *PriceNotFoundError) Error() string {
	return fmt.Sprintf("no price configured for %q on %s (%s)",
		e.TimeSlot, e.Weekday, e.Date.Format("2006-01-02"))
}
