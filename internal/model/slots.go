package model

import "strings"

// DefaultTimeSlots is the venue's day-segment catalog.
var DefaultTimeSlots = []string{
	"9:30 AM - 11:00 AM",
	"11:00 AM - 12:30 PM",
	"12:30 PM - 2:00 PM",
	"3:00 PM - 4:30 PM",
	"4:30 PM - 6:00 PM",
	"6:00 PM - 7:30 PM",
	"7:30 PM - 9:00 PM",
	"9:00 PM - 10:30 PM",
}

// SlotCatalog is the ordered set of bookable slot labels. Labels are opaque:
// two labels never conflict unless they are equal strings.
type SlotCatalog struct {
	labels []string
	index  map[string]int
}

func NewSlotCatalog(labels []string) SlotCatalog {
	c := SlotCatalog{index: make(map[string]int, len(labels))}
	for _, l := range labels {
		l = strings.TrimSpace(l)
		if l == "" {
			continue
		}
		if _, dup := c.index[l]; dup {
			continue
		}
		c.index[l] = len(c.labels)
		c.labels = append(c.labels, l)
	}
	return c
}

func (c SlotCatalog) Labels() []string {
	out := make([]string, len(c.labels))
	copy(out, c.labels)
	return out
}

func (c SlotCatalog) Contains(label string) bool {
	_, ok := c.index[label]
	return ok
}

// Position orders slots within a day; unknown labels sort last.
func (c SlotCatalog) Position(label string) int {
	if i, ok := c.index[label]; ok {
		return i
	}
	return len(c.labels)
}
