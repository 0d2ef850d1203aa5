// Package ledger keeps the per-reservation payment summary and builds the
// period reports, receipts and exports derived from recorded transactions.
package ledger

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/arena-booking/internal/model"
)

// Recompute derives a summary from the complete transaction list of one
// reservation. It never reads a previous summary except for prevFirst, the
// first payment date already on record, which is kept once set.
func Recompute(reservationID uint64, total decimal.Decimal, txns []model.Transaction, prevFirst *time.Time, now time.Time) model.LedgerSummary {
	sum := model.LedgerSummary{
		ReservationID:    reservationID,
		TotalPrice:       total,
		TotalPaid:        decimal.Zero,
		Discount:         decimal.Zero,
		OtherAdjustments: decimal.Zero,
		BookingPaid:      decimal.Zero,
		SlotPaid:         decimal.Zero,
		ByMethod:         model.MethodTotals{},
		BookingByMethod:  model.MethodTotals{},
		SlotByMethod:     model.MethodTotals{},
		TransactionCount: len(txns),
		UpdatedAt:        now.UTC(),
	}
	var firstBooking *time.Time
	for _, t := range txns {
		switch t.Type {
		case model.TxBookingPayment:
			sum.BookingPaid = sum.BookingPaid.Add(t.Amount)
			addTo(sum.BookingByMethod, t.Method, t.Amount)
			if d := model.DateOf(t.CreatedAt); firstBooking == nil || d.Before(*firstBooking) {
				firstBooking = &d
			}
		case model.TxSlotPayment:
			sum.SlotPaid = sum.SlotPaid.Add(t.Amount)
			addTo(sum.SlotByMethod, t.Method, t.Amount)
		case model.TxDiscount:
			sum.Discount = sum.Discount.Add(t.Amount)
		case model.TxOtherAdjustment:
			sum.OtherAdjustments = sum.OtherAdjustments.Add(t.Amount)
		}
		if t.Type.IsPayment() {
			sum.TotalPaid = sum.TotalPaid.Add(t.Amount)
			addTo(sum.ByMethod, t.Method, t.Amount)
		}
	}
	sum.Leftover = total.Sub(sum.TotalPaid).Sub(sum.Discount).Sub(sum.OtherAdjustments)
	sum.Status = Status(sum.Leftover, sum.TotalPaid)

	switch {
	case prevFirst != nil:
		d := model.DateOf(*prevFirst)
		sum.FirstPaymentDate = &d
	case firstBooking != nil:
		sum.FirstPaymentDate = firstBooking
	}
	return sum
}

// Status classifies a ledger. A non-positive leftover is settled even when
// the customer overpaid.
func Status(leftover, paid decimal.Decimal) model.LedgerStatus {
	switch {
	case !leftover.IsPositive():
		return model.StatusSuccessful
	case paid.IsPositive():
		return model.StatusPartial
	default:
		return model.StatusPending
	}
}

func addTo(totals model.MethodTotals, m model.PaymentMethod, amount decimal.Decimal) {
	if m == "" {
		return
	}
	totals[m] = totals.Get(m).Add(amount)
}
