package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// MethodTotals maps payment methods to summed amounts.
type MethodTotals map[PaymentMethod]decimal.Decimal

// Get returns the total for m, zero when absent.
func (t MethodTotals) Get(m PaymentMethod) decimal.Decimal {
	if v, ok := t[m]; ok {
		return v
	}
	return decimal.Zero
}

// LedgerSummary is the derived financial rollup of one reservation. Every
// field except TotalPrice and FirstPaymentDate is recomputed from the full
// transaction list after each change.
type LedgerSummary struct {
	ReservationID    uint64
	TotalPrice       decimal.Decimal
	TotalPaid        decimal.Decimal
	Discount         decimal.Decimal
	OtherAdjustments decimal.Decimal
	Leftover         decimal.Decimal
	ByMethod         MethodTotals
	BookingPaid      decimal.Decimal
	SlotPaid         decimal.Decimal
	BookingByMethod  MethodTotals
	SlotByMethod     MethodTotals
	Status           LedgerStatus
	FirstPaymentDate *time.Time
	TransactionCount int
	UpdatedAt        time.Time
}

type ledgerJSON struct {
	ReservationID    uint64          `json:"reservation_id"`
	TotalPrice       decimal.Decimal `json:"total_price"`
	TotalPaid        decimal.Decimal `json:"total_paid"`
	Discount         decimal.Decimal `json:"discount"`
	OtherAdjustments decimal.Decimal `json:"other_adjustments"`
	Leftover         decimal.Decimal `json:"leftover"`
	ByMethod         MethodTotals    `json:"paid_by_method"`
	BookingPaid      decimal.Decimal `json:"booking_payment"`
	SlotPaid         decimal.Decimal `json:"slot_payment"`
	BookingByMethod  MethodTotals    `json:"booking_payment_by_method"`
	SlotByMethod     MethodTotals    `json:"slot_payment_by_method"`
	Status           LedgerStatus    `json:"status"`
	FirstPaymentDate *string         `json:"first_payment_date"`
	TransactionCount int             `json:"transaction_count"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

func (s LedgerSummary) MarshalJSON() ([]byte, error) {
	out := ledgerJSON{
		ReservationID:    s.ReservationID,
		TotalPrice:       s.TotalPrice,
		TotalPaid:        s.TotalPaid,
		Discount:         s.Discount,
		OtherAdjustments: s.OtherAdjustments,
		Leftover:         s.Leftover,
		ByMethod:         s.ByMethod,
		BookingPaid:      s.BookingPaid,
		SlotPaid:         s.SlotPaid,
		BookingByMethod:  s.BookingByMethod,
		SlotByMethod:     s.SlotByMethod,
		Status:           s.Status,
		TransactionCount: s.TransactionCount,
		UpdatedAt:        s.UpdatedAt,
	}
	if s.FirstPaymentDate != nil {
		d := FormatDate(*s.FirstPaymentDate)
		out.FirstPaymentDate = &d
	}
	return json.Marshal(out)
}
