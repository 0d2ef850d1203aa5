package model

import (
	"strings"

	"github.com/iliyamo/arena-booking/internal/apperr"
)

// BookingKind discriminates one-off bookings from date-range bookings.
type BookingKind string

const (
	KindSingle    BookingKind = "SINGLE"
	KindRecurring BookingKind = "RECURRING"
)

// ParseBookingKind accepts the canonical names plus the legacy NORMAL/ACADEMY labels.
func ParseBookingKind(s string) (BookingKind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "SINGLE", "NORMAL":
		return KindSingle, nil
	case "RECURRING", "ACADEMY":
		return KindRecurring, nil
	}
	return "", apperr.Validation("kind", "unknown booking kind %q", s)
}

// ReservationState is derived from the cancellation flag.
type ReservationState string

const (
	StateActive    ReservationState = "ACTIVE"
	StateCancelled ReservationState = "CANCELLED"
)

// TransactionType classifies a ledger entry.
type TransactionType string

const (
	TxBookingPayment  TransactionType = "BOOKING_PAYMENT"
	TxSlotPayment     TransactionType = "SLOT_PAYMENT"
	TxDiscount        TransactionType = "DISCOUNT"
	TxOtherAdjustment TransactionType = "OTHER_ADJUSTMENT"
)

// TransactionTypes lists every transaction type in display order.
var TransactionTypes = []TransactionType{TxBookingPayment, TxSlotPayment, TxDiscount, TxOtherAdjustment}

// IsPayment reports whether money actually changed hands.
func (t TransactionType) IsPayment() bool {
	return t == TxBookingPayment || t == TxSlotPayment
}

// RequiresMethod reports whether a payment method must accompany the type.
func (t TransactionType) RequiresMethod() bool { return t.IsPayment() }

func ParseTransactionType(s string) (TransactionType, error) {
	v := TransactionType(strings.ToUpper(strings.TrimSpace(s)))
	for _, t := range TransactionTypes {
		if v == t {
			return t, nil
		}
	}
	return "", apperr.Validation("transaction_type", "unknown transaction type %q", s)
}

// PaymentMethod is the channel a payment arrived through.
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "CASH"
	MethodWalletA      PaymentMethod = "MOBILE_WALLET_A"
	MethodWalletB      PaymentMethod = "MOBILE_WALLET_B"
	MethodCard         PaymentMethod = "CARD"
	MethodBankTransfer PaymentMethod = "BANK_TRANSFER"
)

// PaymentMethods lists every method in display order.
var PaymentMethods = []PaymentMethod{MethodCash, MethodWalletA, MethodWalletB, MethodCard, MethodBankTransfer}

var methodAliases = map[string]PaymentMethod{
	"BKASH": MethodWalletA,
	"NAGAD": MethodWalletB,
}

// ParsePaymentMethod parses a method name. An empty string yields the empty
// method, which callers treat as "no method".
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	key := strings.ToUpper(strings.TrimSpace(s))
	if key == "" {
		return "", nil
	}
	if m, ok := methodAliases[key]; ok {
		return m, nil
	}
	for _, m := range PaymentMethods {
		if PaymentMethod(key) == m {
			return m, nil
		}
	}
	return "", apperr.Validation("payment_method", "unknown payment method %q", s)
}

// LedgerStatus is the settlement classification of a reservation.
type LedgerStatus string

const (
	StatusPending    LedgerStatus = "PENDING"
	StatusPartial    LedgerStatus = "PARTIAL"
	StatusSuccessful LedgerStatus = "SUCCESSFUL"
)

// PriceKind tags a price rule for normal or academy (recurring) bookings.
// The empty kind applies to normal bookings.
type PriceKind string

const (
	PriceNormal  PriceKind = "NORMAL"
	PriceAcademy PriceKind = "ACADEMY"
)

func ParsePriceKind(s string) (PriceKind, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "":
		return "", nil
	case "NORMAL", "SINGLE":
		return PriceNormal, nil
	case "ACADEMY", "RECURRING":
		return PriceAcademy, nil
	}
	return "", apperr.Validation("booking_kind", "unknown price kind %q", s)
}

// PriceKindFor maps a booking kind onto the price tag it prefers.
func PriceKindFor(k BookingKind) PriceKind {
	if k == KindRecurring {
		return PriceAcademy
	}
	return PriceNormal
}
