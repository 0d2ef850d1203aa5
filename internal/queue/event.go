// Package queue defines the domain events published to RabbitMQ after a
// booking or ledger change commits, the publisher that sends them and the
// consumer that records them.
package queue

import (
	"time"

	"github.com/google/uuid"
)

// Routing keys. The consumer binds with "#" and receives all of them.
const (
	EventReservationCreated   = "reservation.created"
	EventReservationUpdated   = "reservation.updated"
	EventReservationCancelled = "reservation.cancelled"
	EventReservationDeleted   = "reservation.deleted"
	EventPaymentRecorded      = "payment.recorded"
	EventPaymentEdited        = "payment.edited"
	EventPaymentDeleted       = "payment.deleted"
)

// Event carries enough context for downstream consumers to log or notify
// without reading the primary database.
type Event struct {
	ID            string `json:"id"`
	Type          string `json:"type"`
	ReservationID uint64 `json:"reservation_id"`
	TransactionID uint64 `json:"transaction_id,omitempty"`
	ActorID       uint64 `json:"actor_id"`
	CustomerName  string `json:"customer_name,omitempty"`
	TimeSlot      string `json:"time_slot,omitempty"`
	StartDate     string `json:"start_date,omitempty"`
	EndDate       string `json:"end_date,omitempty"`
	Amount        string `json:"amount,omitempty"`
	LedgerStatus  string `json:"ledger_status,omitempty"`
	Leftover      string `json:"leftover,omitempty"`
	OccurredAt    string `json:"occurred_at"`
}

// NewEvent stamps a fresh id and the current time.
func NewEvent(typ string, reservationID, actor uint64) Event {
	return Event{
		ID:            uuid.NewString(),
		Type:          typ,
		ReservationID: reservationID,
		ActorID:       actor,
		OccurredAt:    time.Now().UTC().Format(time.RFC3339),
	}
}
