// Package pricing picks the rate that applies to a booking and administers
// the price rule table.
package pricing

import (
	"time"

	"github.com/iliyamo/arena-booking/internal/model"
)

// Select applies the selection policy to rules already matched on time slot
// and weekday:
//
//  1. an active temporary rule (not default, on inside its window), latest valid_start first
//  2. a default rule with no date bounds
//  3. any default rule
//  4. the rule with the latest valid_start
//
// Ties go to the most recently created rule. ok is false when rules is empty.
func Select(rules []model.PriceRule, on time.Time) (rule model.PriceRule, ok bool) {
	if len(rules) == 0 {
		return model.PriceRule{}, false
	}
	on = model.DateOf(on)

	if r, found := pick(rules, func(p model.PriceRule) bool { return !p.IsDefault && p.ActiveOn(on) }, byLatestStart); found {
		return r, true
	}
	if r, found := pick(rules, func(p model.PriceRule) bool { return p.IsDefault && !p.Bounded() }, byNewest); found {
		return r, true
	}
	if r, found := pick(rules, func(p model.PriceRule) bool { return p.IsDefault }, byNewest); found {
		return r, true
	}
	return pick(rules, func(model.PriceRule) bool { return true }, byLatestStart)
}

// better reports whether a should be preferred over b.
type better func(a, b model.PriceRule) bool

func byNewest(a, b model.PriceRule) bool { return a.ID > b.ID }

// byLatestStart treats a missing valid_start as earlier than any date.
func byLatestStart(a, b model.PriceRule) bool {
	switch {
	case a.ValidStart == nil && b.ValidStart == nil:
		return byNewest(a, b)
	case a.ValidStart == nil:
		return false
	case b.ValidStart == nil:
		return true
	case a.ValidStart.Equal(*b.ValidStart):
		return byNewest(a, b)
	}
	return a.ValidStart.After(*b.ValidStart)
}

func pick(rules []model.PriceRule, keep func(model.PriceRule) bool, prefer better) (model.PriceRule, bool) {
	var (
		best  model.PriceRule
		found bool
	)
	for _, r := range rules {
		if !keep(r) {
			continue
		}
		if !found || prefer(r, best) {
			best, found = r, true
		}
	}
	return best, found
}

// forKind narrows rules to the ones that price the given booking kind.
// Recurring bookings use ACADEMY rules and fall back to normal rules when
// none is configured.
func forKind(rules []model.PriceRule, kind model.BookingKind) []model.PriceRule {
	normal := make([]model.PriceRule, 0, len(rules))
	var academy []model.PriceRule
	for _, r := range rules {
		if r.Kind == model.PriceAcademy {
			academy = append(academy, r)
		} else {
			normal = append(normal, r)
		}
	}
	if kind == model.KindRecurring && len(academy) > 0 {
		return academy
	}
	return normal
}
