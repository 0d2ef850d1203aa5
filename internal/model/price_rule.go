package model

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// PriceRule prices one time slot on one weekday. Rules with a validity window
// and IsDefault=false are temporary overrides.
//
// Fields:
//
//	ValidStart/ValidEnd – optional inclusive validity window.
//	IsDefault           – marks the standing rate.
//	Kind                – NORMAL or ACADEMY tag; empty applies to normal bookings.
type PriceRule struct {
	ID         uint64
	TimeSlot   string
	Weekday    time.Weekday
	Price      decimal.Decimal
	ValidStart *time.Time
	ValidEnd   *time.Time
	IsDefault  bool
	Kind       PriceKind
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Bounded reports whether either validity bound is set.
func (p PriceRule) Bounded() bool { return p.ValidStart != nil || p.ValidEnd != nil }

// ActiveOn reports whether d lies inside the validity window. Both bounds
// must be present for a rule to count as active.
func (p PriceRule) ActiveOn(d time.Time) bool {
	if p.ValidStart == nil || p.ValidEnd == nil {
		return false
	}
	d = DateOf(d)
	return !d.Before(*p.ValidStart) && !d.After(*p.ValidEnd)
}

type priceRuleJSON struct {
	ID         uint64          `json:"id"`
	TimeSlot   string          `json:"time_slot"`
	Weekday    string          `json:"weekday"`
	Price      decimal.Decimal `json:"price"`
	ValidStart *string         `json:"valid_start"`
	ValidEnd   *string         `json:"valid_end"`
	IsDefault  bool            `json:"is_default"`
	Kind       PriceKind       `json:"booking_kind,omitempty"`
}

func (p PriceRule) MarshalJSON() ([]byte, error) {
	out := priceRuleJSON{
		ID:        p.ID,
		TimeSlot:  p.TimeSlot,
		Weekday:   WeekdayName(p.Weekday),
		Price:     p.Price,
		IsDefault: p.IsDefault,
		Kind:      p.Kind,
	}
	if p.ValidStart != nil {
		s := FormatDate(*p.ValidStart)
		out.ValidStart = &s
	}
	if p.ValidEnd != nil {
		s := FormatDate(*p.ValidEnd)
		out.ValidEnd = &s
	}
	return json.Marshal(out)
}
