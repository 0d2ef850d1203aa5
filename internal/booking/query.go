package booking

import (
	"context"
	"sort"
	"time"

	"github.com/iliyamo/arena-booking/internal/apperr"
	"github.com/iliyamo/arena-booking/internal/model"
	"github.com/iliyamo/arena-booking/internal/repository"
)

// defaultViewDays is the span shown when no range is requested: today plus six days.
const defaultViewDays = 6

// Matrix is the availability calendar of a date range. Entries are keyed by
// model.MatrixKey and hold only active reservations; a missing key is a free
// slot.
type Matrix struct {
	Start     string                           `json:"start_date"`
	End       string                           `json:"end_date"`
	Capped    bool                             `json:"capped"`
	TimeSlots []string                         `json:"time_slots"`
	Entries   map[string]model.ReservationView `json:"reservations"`
}

// ViewRange resolves the requested range of a calendar view. A zero start
// means today and a zero end means six days after start. The end is pulled
// back to at most MaxQueryMonths after the start; capped reports whether
// that happened.
func (s *Service) ViewRange(start, end time.Time) (from, to time.Time, capped bool, err error) {
	from = model.DateOf(start)
	if start.IsZero() {
		from = model.DateOf(s.clock())
	}
	to = model.DateOf(end)
	if end.IsZero() {
		to = from.AddDate(0, 0, defaultViewDays)
	}
	if to.Before(from) {
		return from, to, false, apperr.Validation("end_date", "end_date is before start_date")
	}
	if limit := from.AddDate(0, s.maxMonths, 0); to.After(limit) {
		to, capped = limit, true
	}
	return from, to, capped, nil
}

// QueryReservations builds the availability matrix for [start, end].
func (s *Service) QueryReservations(ctx context.Context, start, end time.Time) (*Matrix, error) {
	from, to, capped, err := s.ViewRange(start, end)
	if err != nil {
		return nil, err
	}
	var active []model.Reservation
	err = s.store.ReadOnly(ctx, func(uow repository.UnitOfWork) error {
		var err error
		active, err = uow.Reservations().ListActive(ctx, "", from, to)
		return err
	})
	if err != nil {
		return nil, err
	}
	m := &Matrix{
		Start:     model.FormatDate(from),
		End:       model.FormatDate(to),
		Capped:    capped,
		TimeSlots: s.slots.Labels(),
		Entries:   make(map[string]model.ReservationView),
	}
	for _, r := range active {
		for _, d := range r.Occurrences(from, to) {
			m.Entries[model.MatrixKey(d, r.TimeSlot)] = r.ViewOn(d)
		}
	}
	return m, nil
}

// ListForDate returns the active reservations on one date in slot order.
func (s *Service) ListForDate(ctx context.Context, date time.Time) ([]model.ReservationView, error) {
	date = model.DateOf(date)
	var active []model.Reservation
	err := s.store.ReadOnly(ctx, func(uow repository.UnitOfWork) error {
		var err error
		active, err = uow.Reservations().ListActive(ctx, "", date, date)
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]model.ReservationView, 0, len(active))
	for _, r := range active {
		if r.Covers(date) {
			out = append(out, r.ViewOn(date))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return s.slots.Position(out[i].TimeSlot) < s.slots.Position(out[j].TimeSlot)
	})
	return out, nil
}
