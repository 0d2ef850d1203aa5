// Package booking decides whether a time slot can be reserved and performs
// the reservation writes. Slot labels are opaque: two reservations collide
// only when they hold the same label on the same calendar date.
package booking

import (
	"fmt"
	"strings"
	"time"

	"github.com/iliyamo/arena-booking/internal/apperr"
	"github.com/iliyamo/arena-booking/internal/model"
)

// ConflictError lists the active reservations already holding the slot.
type ConflictError struct {
	TimeSlot  string
	Conflicts []model.Reservation
}

func (e *ConflictError) Error() string {
	ids := make([]string, len(e.Conflicts))
	for i, r := range e.Conflicts {
		ids[i] = fmt.Sprint(r.ID)
	}
	return fmt.Sprintf("time slot %q is already reserved (reservation %s)", e.TimeSlot, strings.Join(ids, ", "))
}

// Candidate is a prospective booking. For SINGLE, End equals Start and
// Weekdays is ignored.
type Candidate struct {
	Kind     model.BookingKind
	TimeSlot string
	Start    time.Time
	End      time.Time
	Weekdays model.WeekdaySet
}

// Occurrences returns the dates the candidate would claim, in order. A
// recurring range whose filter removes every date is an EmptyRangeError.
func (c Candidate) Occurrences() ([]time.Time, error) {
	if c.Kind == model.KindSingle {
		return []time.Time{model.DateOf(c.Start)}, nil
	}
	occ := model.ExpandDates(c.Start, c.End, c.Weekdays)
	if len(occ) == 0 {
		return nil, &apperr.EmptyRangeError{Start: model.DateOf(c.Start), End: model.DateOf(c.End), Weekdays: c.Weekdays.String()}
	}
	return occ, nil
}

// FindConflicts returns the reservations in existing that claim any of the
// candidate's occurrence dates on the same slot. Cancelled rows and the
// reservation excludeID are skipped.
func FindConflicts(c Candidate, occurrences []time.Time, existing []model.Reservation, excludeID uint64) []model.Reservation {
	if len(occurrences) == 0 {
		return nil
	}
	claimed := make(map[time.Time]struct{}, len(occurrences))
	for _, d := range occurrences {
		claimed[model.DateOf(d)] = struct{}{}
	}
	first, last := occurrences[0], occurrences[len(occurrences)-1]

	var out []model.Reservation
	for _, r := range existing {
		if r.IsCancelled || r.TimeSlot != c.TimeSlot || (excludeID != 0 && r.ID == excludeID) {
			continue
		}
		for _, d := range r.Occurrences(first, last) {
			if _, hit := claimed[d]; hit {
				out = append(out, r)
				break
			}
		}
	}
	return out
}
