package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// Reservation claims one time slot on one date (SINGLE) or on every date of
// an inclusive range that passes a weekday filter (RECURRING).
//
// Fields:
//
//	ID              – primary key identifier.
//	CustomerName    – name of the person the slot is booked for.
//	Phone           – customer phone in E.164 form.
//	Kind            – SINGLE or RECURRING.
//	TimeSlot        – opaque slot label from the slot catalog.
//	StartDate       – booking date for SINGLE, first day of the range otherwise.
//	EndDate         – equal to StartDate for SINGLE, last day of the range otherwise.
//	Weekdays        – RECURRING weekday filter; zero means every day.
//	QuotedPrice     – contracted price computed at booking time, if pricing resolved.
//	OccurrenceCount – number of dates the reservation claims.
//	IsCancelled     – soft-delete flag; cancelled rows keep their ledger.
//	CancelledAt     – when the reservation was cancelled.
type Reservation struct {
	ID              uint64
	CustomerName    string
	Phone           string
	Kind            BookingKind
	TimeSlot        string
	StartDate       time.Time
	EndDate         time.Time
	Weekdays        WeekdaySet
	QuotedPrice     decimal.NullDecimal
	OccurrenceCount int
	IsCancelled     bool
	CancelledAt     *time.Time
	CreatedBy       uint64
	LastModifiedBy  uint64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (r Reservation) State() ReservationState {
	if r.IsCancelled {
		return StateCancelled
	}
	return StateActive
}

func (r Reservation) IsActive() bool { return !r.IsCancelled }

// Covers reports whether the reservation claims date d.
func (r Reservation) Covers(d time.Time) bool {
	d = DateOf(d)
	if d.Before(r.StartDate) || d.After(r.EndDate) {
		return false
	}
	if r.Kind == KindSingle {
		return true
	}
	return r.Weekdays.Matches(d.Weekday())
}

// Occurrences lists the claimed dates that fall inside [from, to].
func (r Reservation) Occurrences(from, to time.Time) []time.Time {
	lo, hi, ok := Overlap(r.StartDate, r.EndDate, DateOf(from), DateOf(to))
	if !ok {
		return nil
	}
	if r.Kind == KindSingle {
		return []time.Time{r.StartDate}
	}
	return ExpandDates(lo, hi, r.Weekdays)
}

// AllOccurrences lists every date the reservation claims.
func (r Reservation) AllOccurrences() []time.Time {
	return r.Occurrences(r.StartDate, r.EndDate)
}

type reservationJSON struct {
	ID              uint64           `json:"id"`
	CustomerName    string           `json:"customer_name"`
	Phone           string           `json:"phone"`
	Kind            BookingKind      `json:"kind"`
	TimeSlot        string           `json:"time_slot"`
	Date            string           `json:"date,omitempty"`
	StartDate       string           `json:"start_date,omitempty"`
	EndDate         string           `json:"end_date,omitempty"`
	Weekdays        WeekdaySet       `json:"weekdays,omitempty"`
	QuotedPrice     *decimal.Decimal `json:"quoted_price"`
	OccurrenceCount int              `json:"occurrence_count"`
	State           ReservationState `json:"state"`
	CancelledAt     *time.Time       `json:"cancelled_at,omitempty"`
	CreatedBy       uint64           `json:"created_by"`
	LastModifiedBy  uint64           `json:"last_modified_by"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

func (r Reservation) MarshalJSON() ([]byte, error) {
	out := reservationJSON{
		ID:              r.ID,
		CustomerName:    r.CustomerName,
		Phone:           r.Phone,
		Kind:            r.Kind,
		TimeSlot:        r.TimeSlot,
		Weekdays:        r.Weekdays,
		OccurrenceCount: r.OccurrenceCount,
		State:           r.State(),
		CancelledAt:     r.CancelledAt,
		CreatedBy:       r.CreatedBy,
		LastModifiedBy:  r.LastModifiedBy,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	if r.Kind == KindSingle {
		out.Date = FormatDate(r.StartDate)
	} else {
		out.StartDate = FormatDate(r.StartDate)
		out.EndDate = FormatDate(r.EndDate)
	}
	if r.QuotedPrice.Valid {
		p := r.QuotedPrice.Decimal
		out.QuotedPrice = &p
	}
	return json.Marshal(out)
}

// ReservationView is one cell of the availability matrix.
type ReservationView struct {
	ID           uint64      `json:"id"`
	CustomerName string      `json:"name"`
	Phone        string      `json:"phone"`
	Kind         BookingKind `json:"kind"`
	BookingDate  string      `json:"booking_date"`
	TimeSlot     string      `json:"time_slot"`
	StartDate    string      `json:"start_date,omitempty"`
	EndDate      string      `json:"end_date,omitempty"`
	Weekdays     WeekdaySet  `json:"weekdays,omitempty"`
	BookedBy     uint64      `json:"booked_by"`
}

// ViewOn renders the reservation as seen on one of its dates.
func (r Reservation) ViewOn(d time.Time) ReservationView {
	v := ReservationView{
		ID:           r.ID,
		CustomerName: r.CustomerName,
		Phone:        r.Phone,
		Kind:         r.Kind,
		BookingDate:  FormatDate(d),
		TimeSlot:     r.TimeSlot,
		BookedBy:     r.CreatedBy,
	}
	if r.Kind == KindRecurring {
		v.StartDate = FormatDate(r.StartDate)
		v.EndDate = FormatDate(r.EndDate)
		v.Weekdays = r.Weekdays
	}
	return v
}

// MatrixKey is the "<date>_<slot>" key used by calendar views.
func MatrixKey(d time.Time, slot string) string {
	return FormatDate(d) + "_" + slot
}
