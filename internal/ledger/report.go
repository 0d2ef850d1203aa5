package ledger

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/arena-booking/internal/apperr"
	"github.com/iliyamo/arena-booking/internal/model"
	"github.com/iliyamo/arena-booking/internal/repository"
)

// DailyTotals sums the payments received on one calendar day.
type DailyTotals struct {
	Date     string             `json:"date"`
	ByMethod model.MethodTotals `json:"by_method"`
	Total    decimal.Decimal    `json:"total"`
}

// PeriodTotals sums a whole report window. Method totals count payments only.
type PeriodTotals struct {
	Payments         decimal.Decimal    `json:"payments"`
	BookingPayments  decimal.Decimal    `json:"booking_payments"`
	SlotPayments     decimal.Decimal    `json:"slot_payments"`
	Discounts        decimal.Decimal    `json:"discounts"`
	OtherAdjustments decimal.Decimal    `json:"other_adjustments"`
	ByMethod         model.MethodTotals `json:"by_method"`
	TransactionCount int                `json:"transaction_count"`
}

// Report is the transaction listing of a date window.
type Report struct {
	Start               string                 `json:"start_date"`
	End                 string                 `json:"end_date"`
	Transactions        []model.TransactionRow `json:"transactions"`
	DailyTotalsByMethod []DailyTotals          `json:"daily_totals_by_method"`
	PeriodTotals        PeriodTotals           `json:"period_totals"`
}

// ListTransactionsInWindow lists transactions created between f.Start and
// f.End, both days included, with per-day and whole-period totals.
func (s *Service) ListTransactionsInWindow(ctx context.Context, f model.TransactionFilter) (*Report, error) {
	if f.Start.IsZero() || f.End.IsZero() {
		return nil, apperr.Validation("start_date", "start_date and end_date are required")
	}
	f.Start, f.End = model.DateOf(f.Start), model.DateOf(f.End)
	if f.End.Before(f.Start) {
		return nil, apperr.Validation("end_date", "end_date is before start_date")
	}
	var rows []model.TransactionRow
	err := s.store.ReadOnly(ctx, func(uow repository.UnitOfWork) error {
		var err error
		rows, err = uow.Transactions().ListInWindow(ctx, f)
		return err
	})
	if err != nil {
		return nil, err
	}
	return BuildReport(f.Start, f.End, rows), nil
}

// BuildReport aggregates rows that already match the window.
func BuildReport(start, end time.Time, rows []model.TransactionRow) *Report {
	rep := &Report{
		Start:        model.FormatDate(start),
		End:          model.FormatDate(end),
		Transactions: rows,
		PeriodTotals: PeriodTotals{
			Payments:         decimal.Zero,
			BookingPayments:  decimal.Zero,
			SlotPayments:     decimal.Zero,
			Discounts:        decimal.Zero,
			OtherAdjustments: decimal.Zero,
			ByMethod:         model.MethodTotals{},
			TransactionCount: len(rows),
		},
	}
	if rep.Transactions == nil {
		rep.Transactions = []model.TransactionRow{}
	}
	days := map[string]*DailyTotals{}
	pt := &rep.PeriodTotals
	for _, r := range rows {
		switch r.Type {
		case model.TxBookingPayment:
			pt.BookingPayments = pt.BookingPayments.Add(r.Amount)
		case model.TxSlotPayment:
			pt.SlotPayments = pt.SlotPayments.Add(r.Amount)
		case model.TxDiscount:
			pt.Discounts = pt.Discounts.Add(r.Amount)
		case model.TxOtherAdjustment:
			pt.OtherAdjustments = pt.OtherAdjustments.Add(r.Amount)
		}
		if !r.Type.IsPayment() {
			continue
		}
		pt.Payments = pt.Payments.Add(r.Amount)
		addTo(pt.ByMethod, r.Method, r.Amount)

		key := model.FormatDate(r.CreatedAt)
		d, ok := days[key]
		if !ok {
			d = &DailyTotals{Date: key, ByMethod: model.MethodTotals{}, Total: decimal.Zero}
			days[key] = d
		}
		addTo(d.ByMethod, r.Method, r.Amount)
		d.Total = d.Total.Add(r.Amount)
	}
	rep.DailyTotalsByMethod = make([]DailyTotals, 0, len(days))
	for _, d := range days {
		rep.DailyTotalsByMethod = append(rep.DailyTotalsByMethod, *d)
	}
	sort.Slice(rep.DailyTotalsByMethod, func(i, j int) bool {
		return rep.DailyTotalsByMethod[i].Date < rep.DailyTotalsByMethod[j].Date
	})
	return rep
}
