package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/iliyamo/arena-booking/internal/apperr"
)

func day(s string) time.Time {
	t, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		panic(err)
	}
	return t
}

func TestExpandDatesTuesdaysInMarch(t *testing.T) {
	got := ExpandDates(day("2025-03-03"), day("2025-03-31"), NewWeekdaySet(time.Tuesday))
	want := []string{"2025-03-04", "2025-03-11", "2025-03-18", "2025-03-25"}
	if len(got) != len(want) {
		t.Fatalf("got %d dates, want %d", len(got), len(want))
	}
	for i, d := range got {
		if FormatDate(d) != want[i] {
			t.Errorf("date %d = %s, want %s", i, FormatDate(d), want[i])
		}
	}
}

func TestExpandDatesNoFilterIsEveryDay(t *testing.T) {
	got := ExpandDates(day("2025-02-27"), day("2025-03-02"), 0)
	if len(got) != 4 {
		t.Fatalf("got %d dates, want 4", len(got))
	}
	if got := ExpandDates(day("2025-03-02"), day("2025-03-01"), 0); len(got) != 0 {
		t.Fatalf("reversed range should be empty, got %v", got)
	}
}

func TestParseWeekdaySet(t *testing.T) {
	tests := []struct {
		in      string
		want    WeekdaySet
		wantErr bool
	}{
		{"", 0, false},
		{"MONDAY", NewWeekdaySet(time.Monday), false},
		{"tuesday, thu", NewWeekdaySet(time.Tuesday, time.Thursday), false},
		{"SUN,SAT,", NewWeekdaySet(time.Sunday, time.Saturday), false},
		{"Funday", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseWeekdaySet(tt.in)
			if tt.wantErr {
				var ve *apperr.ValidationError
				if !errors.As(err, &ve) {
					t.Fatalf("want ValidationError, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestWeekdaySetStringIsMondayFirst(t *testing.T) {
	s := NewWeekdaySet(time.Sunday, time.Wednesday, time.Monday)
	if got := s.String(); got != "MONDAY,WEDNESDAY,SUNDAY" {
		t.Errorf("String() = %q", got)
	}
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	var back WeekdaySet
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatal(err)
	}
	if back != s {
		t.Errorf("json round trip changed set: %v != %v", back, s)
	}
}

func TestParseDateRejectsGarbage(t *testing.T) {
	if _, err := ParseDate("date", "2025-13-01"); err == nil {
		t.Fatal("expected error for month 13")
	}
	d, err := ParseDate("date", " 2025-03-10 ")
	if err != nil {
		t.Fatal(err)
	}
	if d.Weekday() != time.Monday {
		t.Errorf("2025-03-10 should be a Monday, got %s", d.Weekday())
	}
}

func TestReservationCovers(t *testing.T) {
	rec := Reservation{
		Kind:      KindRecurring,
		StartDate: day("2025-03-03"),
		EndDate:   day("2025-03-31"),
		Weekdays:  NewWeekdaySet(time.Tuesday),
	}
	if !rec.Covers(day("2025-03-11")) {
		t.Error("recurring booking should cover a Tuesday inside its range")
	}
	if rec.Covers(day("2025-03-12")) {
		t.Error("recurring booking should not cover a Wednesday")
	}
	if rec.Covers(day("2025-04-01")) {
		t.Error("recurring booking should not cover a Tuesday outside its range")
	}
	single := Reservation{Kind: KindSingle, StartDate: day("2025-03-10"), EndDate: day("2025-03-10")}
	if !single.Covers(day("2025-03-10")) || single.Covers(day("2025-03-11")) {
		t.Error("single booking covers exactly its date")
	}
}
