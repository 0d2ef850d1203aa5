package model

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/iliyamo/arena-booking/internal/apperr"
)

// DateLayout is the wire and storage format of calendar dates.
const DateLayout = "2006-01-02"

// ParseDate parses a YYYY-MM-DD string into UTC midnight.
func ParseDate(field, s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, strings.TrimSpace(s), time.UTC)
	if err != nil {
		return time.Time{}, apperr.Validation(field, "invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

// DateOf drops the clock part of t, keeping its calendar day.
func DateOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func FormatDate(t time.Time) string { return t.Format(DateLayout) }

var weekdayNames = [7]string{"SUNDAY", "MONDAY", "TUESDAY", "WEDNESDAY", "THURSDAY", "FRIDAY", "SATURDAY"}

// WeekdayName returns the canonical upper-case name.
func WeekdayName(d time.Weekday) string { return weekdayNames[d] }

// ParseWeekday accepts full names or three-letter abbreviations in any case.
func ParseWeekday(s string) (time.Weekday, error) {
	key := strings.ToUpper(strings.TrimSpace(s))
	if len(key) >= 3 {
		for i, name := range weekdayNames {
			if key == name || key == name[:3] {
				return time.Weekday(i), nil
			}
		}
	}
	return 0, apperr.Validation("weekday", "unknown weekday %q", s)
}

// WeekdaySet is a weekday filter. The zero value means no filter, so every
// day matches.
type WeekdaySet uint8

func NewWeekdaySet(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s |= 1 << uint(d)
	}
	return s
}

// ParseWeekdaySet parses a comma-separated list such as "MONDAY,wed".
func ParseWeekdaySet(s string) (WeekdaySet, error) {
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	return ParseWeekdayList(strings.Split(s, ","))
}

func ParseWeekdayList(names []string) (WeekdaySet, error) {
	var set WeekdaySet
	for _, n := range names {
		if strings.TrimSpace(n) == "" {
			continue
		}
		d, err := ParseWeekday(n)
		if err != nil {
			return 0, apperr.Validation("weekdays", "unknown weekday %q", n)
		}
		set |= 1 << uint(d)
	}
	return set, nil
}

func (s WeekdaySet) IsEmpty() bool { return s == 0 }

// Matches reports whether d passes the filter.
func (s WeekdaySet) Matches(d time.Weekday) bool {
	return s == 0 || s&(1<<uint(d)) != 0
}

// Days lists the filtered weekdays, Monday first.
func (s WeekdaySet) Days() []time.Weekday {
	out := make([]time.Weekday, 0, 7)
	for i := 1; i <= 7; i++ {
		d := time.Weekday(i % 7)
		if s&(1<<uint(d)) != 0 {
			out = append(out, d)
		}
	}
	return out
}

func (s WeekdaySet) Names() []string {
	days := s.Days()
	out := make([]string, len(days))
	for i, d := range days {
		out[i] = weekdayNames[d]
	}
	return out
}

// String is the storage form, e.g. "TUESDAY,THURSDAY". Empty when unfiltered.
func (s WeekdaySet) String() string { return strings.Join(s.Names(), ",") }

func (s WeekdaySet) MarshalJSON() ([]byte, error) {
	if s == 0 {
		return []byte("null"), nil
	}
	return json.Marshal(s.Names())
}

func (s *WeekdaySet) UnmarshalJSON(b []byte) error {
	var list []string
	if err := json.Unmarshal(b, &list); err != nil {
		var csv string
		if err2 := json.Unmarshal(b, &csv); err2 != nil {
			return err
		}
		list = strings.Split(csv, ",")
	}
	set, err := ParseWeekdayList(list)
	if err != nil {
		return err
	}
	*s = set
	return nil
}

// ExpandDates returns every date in [start, end] accepted by the filter.
// The result is empty when end precedes start.
func ExpandDates(start, end time.Time, filter WeekdaySet) []time.Time {
	start, end = DateOf(start), DateOf(end)
	var out []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if filter.Matches(d.Weekday()) {
			out = append(out, d)
		}
	}
	return out
}

// Overlap returns the intersection of two inclusive date ranges.
func Overlap(aStart, aEnd, bStart, bEnd time.Time) (from, to time.Time, ok bool) {
	from, to = aStart, aEnd
	if bStart.After(from) {
		from = bStart
	}
	if bEnd.Before(to) {
		to = bEnd
	}
	return from, to, !from.After(to)
}
