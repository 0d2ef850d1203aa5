package booking

import (
	"strings"
	"unicode/utf8"

	"github.com/iliyamo/arena-booking/internal/apperr"
	"github.com/iliyamo/arena-booking/internal/model"
	"github.com/iliyamo/arena-booking/internal/utils"
)

const (
	maxNameLength = 25
	// maxRecurringDays bounds a single recurring booking.
	maxRecurringDays = 366
)

// ReserveRequest is a booking as submitted by staff. SINGLE bookings use
// Date; RECURRING bookings use StartDate, EndDate and Weekdays.
type ReserveRequest struct {
	CustomerName string   `json:"customer_name"`
	Phone        string   `json:"phone"`
	Kind         string   `json:"kind"`
	TimeSlot     string   `json:"time_slot"`
	Date         string   `json:"date"`
	StartDate    string   `json:"start_date"`
	EndDate      string   `json:"end_date"`
	Weekdays     []string `json:"weekdays"`
}

// Candidate validates the scheduling part of a request.
func (s *Service) Candidate(req ReserveRequest) (Candidate, error) {
	kind, err := model.ParseBookingKind(req.Kind)
	if err != nil {
		return Candidate{}, err
	}
	slot := strings.TrimSpace(req.TimeSlot)
	if slot == "" {
		return Candidate{}, apperr.Validation("time_slot", "time slot is required")
	}
	if !s.slots.Contains(slot) {
		return Candidate{}, apperr.Validation("time_slot", "unknown time slot %q", slot)
	}
	c := Candidate{Kind: kind, TimeSlot: slot}

	if kind == model.KindSingle {
		raw := req.Date
		if strings.TrimSpace(raw) == "" {
			raw = req.StartDate
		}
		if strings.TrimSpace(raw) == "" {
			return Candidate{}, apperr.Validation("date", "date is required")
		}
		d, err := model.ParseDate("date", raw)
		if err != nil {
			return Candidate{}, err
		}
		c.Start, c.End = d, d
		return c, nil
	}

	if strings.TrimSpace(req.StartDate) == "" || strings.TrimSpace(req.EndDate) == "" {
		return Candidate{}, apperr.Validation("start_date", "start_date and end_date are required for recurring bookings")
	}
	if c.Start, err = model.ParseDate("start_date", req.StartDate); err != nil {
		return Candidate{}, err
	}
	if c.End, err = model.ParseDate("end_date", req.EndDate); err != nil {
		return Candidate{}, err
	}
	if c.End.Before(c.Start) {
		return Candidate{}, apperr.Validation("end_date", "end_date is before start_date")
	}
	if c.End.Sub(c.Start).Hours()/24 >= maxRecurringDays {
		return Candidate{}, apperr.Validation("end_date", "recurring bookings may span at most %d days", maxRecurringDays)
	}
	if c.Weekdays, err = model.ParseWeekdayList(req.Weekdays); err != nil {
		return Candidate{}, err
	}
	return c, nil
}

type customer struct {
	name  string
	phone string
}

func (s *Service) customer(req ReserveRequest) (customer, error) {
	name := strings.TrimSpace(req.CustomerName)
	if name == "" {
		return customer{}, apperr.Validation("customer_name", "customer name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return customer{}, apperr.Validation("customer_name", "customer name is longer than %d characters", maxNameLength)
	}
	phone, err := utils.NormalizePhone(req.Phone, s.phoneRegion)
	if err != nil {
		return customer{}, apperr.Validation("phone", "%v", err)
	}
	return customer{name: name, phone: phone}, nil
}
