package ledger

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/arena-booking/internal/model"
	"github.com/iliyamo/arena-booking/internal/repository"
)

// upcomingHorizonMonths bounds how far ahead the dashboard counts bookings.
const upcomingHorizonMonths = 3

// Dashboard is the front-desk overview. Booking counts are slot-days, so a
// recurring booking contributes one per claimed date.
type Dashboard struct {
	Today             string          `json:"today"`
	BookingsThisMonth int             `json:"bookings_this_month"`
	UpcomingBookings  int             `json:"upcoming_bookings"`
	RevenueThisMonth  decimal.Decimal `json:"revenue_this_month"`
	RevenueLastMonth  decimal.Decimal `json:"revenue_last_month"`
	RevenueChangePct  decimal.Decimal `json:"revenue_change"`
	AvgBookingsPerDay decimal.Decimal `json:"avg_bookings_per_day"`
}

// Dashboard summarises bookings and payment revenue around today.
func (s *Service) Dashboard(ctx context.Context, today time.Time) (*Dashboard, error) {
	today = model.DateOf(today)
	monthStart := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, -1)
	lastMonthStart := monthStart.AddDate(0, -1, 0)
	horizon := today.AddDate(0, upcomingHorizonMonths, 0)

	out := &Dashboard{Today: model.FormatDate(today)}
	err := s.store.ReadOnly(ctx, func(uow repository.UnitOfWork) error {
		from := monthStart
		if today.Before(from) {
			from = today
		}
		to := horizon
		if monthEnd.After(to) {
			to = monthEnd
		}
		active, err := uow.Reservations().ListActive(ctx, "", from, to)
		if err != nil {
			return err
		}
		for _, r := range active {
			out.BookingsThisMonth += len(r.Occurrences(monthStart, monthEnd))
			out.UpcomingBookings += len(r.Occurrences(today, horizon))
		}

		rows, err := uow.Transactions().ListInWindow(ctx, model.TransactionFilter{Start: lastMonthStart, End: today})
		if err != nil {
			return err
		}
		out.RevenueThisMonth, out.RevenueLastMonth = decimal.Zero, decimal.Zero
		for _, r := range rows {
			if !r.Type.IsPayment() {
				continue
			}
			if r.CreatedAt.Before(monthStart) {
				out.RevenueLastMonth = out.RevenueLastMonth.Add(r.Amount)
			} else {
				out.RevenueThisMonth = out.RevenueThisMonth.Add(r.Amount)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	hundred := decimal.NewFromInt(100)
	if out.RevenueLastMonth.IsZero() {
		out.RevenueChangePct = hundred
	} else {
		out.RevenueChangePct = out.RevenueThisMonth.Sub(out.RevenueLastMonth).
			Div(out.RevenueLastMonth).Mul(hundred).Round(2)
	}
	elapsed := int64(today.Sub(monthStart).Hours()/24) + 1
	out.AvgBookingsPerDay = decimal.NewFromInt(int64(out.BookingsThisMonth)).Div(decimal.NewFromInt(elapsed)).Round(2)
	return out, nil
}
