package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is one ledger entry against a reservation. Method is empty
// for discounts and adjustments recorded without a payment channel.
type Transaction struct {
	ID            uint64          `json:"id"`
	ReservationID uint64          `json:"reservation_id"`
	Type          TransactionType `json:"transaction_type"`
	Method        PaymentMethod   `json:"payment_method,omitempty"`
	Amount        decimal.Decimal `json:"amount"`
	CreatedBy     uint64          `json:"created_by"`
	UpdatedBy     uint64          `json:"updated_by,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// TransactionRow is a transaction joined with the reservation it belongs to,
// as listed by window reports.
type TransactionRow struct {
	Transaction
	CustomerName string `json:"customer_name"`
	TimeSlot     string `json:"time_slot"`
	BookingDate  string `json:"booking_date"`
}

// TransactionFilter narrows a window report. Start and End are inclusive
// calendar dates; zero-valued filters are ignored.
type TransactionFilter struct {
	Start         time.Time
	End           time.Time
	Type          TransactionType
	Method        PaymentMethod
	ReservationID uint64
	CreatedBy     uint64
}
