package queue

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestHandleMessageFormatsPaymentEvent(t *testing.T) {
	ev := Event{
		Type:          EventPaymentRecorded,
		ReservationID: 7,
		TransactionID: 19,
		ActorID:       3,
		Amount:        "1000",
		LedgerStatus:  "PARTIAL",
		Leftover:      "1500",
		OccurredAt:    "2025-03-10T10:00:00Z",
	}
	body, _ := json.Marshal(ev)
	var buf bytes.Buffer
	if err := handleMessage(&buf, body); err != nil {
		t.Fatal(err)
	}
	want := "[2025-03-10T10:00:00Z] payment.recorded | reservation_id=7 | actor_id=3 | transaction_id=19 | amount=1000 | status=PARTIAL | leftover=1500\n"
	if buf.String() != want {
		t.Errorf("got  %q\nwant %q", buf.String(), want)
	}
}

func TestHandleMessageRecurringRange(t *testing.T) {
	body, _ := json.Marshal(Event{Type: EventReservationCreated, ReservationID: 1, TimeSlot: "6:00 PM - 7:30 PM",
		StartDate: "2025-03-03", EndDate: "2025-03-31"})
	var buf bytes.Buffer
	if err := handleMessage(&buf, body); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "dates=2025-03-03..2025-03-31") {
		t.Errorf("range missing from %q", buf.String())
	}
}

func TestHandleMessageRejectsGarbage(t *testing.T) {
	var buf bytes.Buffer
	if err := handleMessage(&buf, []byte("not json")); err == nil {
		t.Error("expected unmarshal error")
	}
	if err := handleMessage(&buf, []byte(`{"reservation_id":1}`)); err == nil {
		t.Error("expected error for event without type")
	}
	if buf.Len() != 0 {
		t.Errorf("nothing should be written, got %q", buf.String())
	}
}

func TestNewEventStampsIDAndTime(t *testing.T) {
	a := NewEvent(EventReservationDeleted, 5, 2)
	b := NewEvent(EventReservationDeleted, 5, 2)
	if a.ID == "" || a.ID == b.ID {
		t.Errorf("event ids should be unique, got %q and %q", a.ID, b.ID)
	}
	if a.OccurredAt == "" {
		t.Error("occurred_at not set")
	}
}
