package pricing

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/arena-booking/internal/apperr"
	"github.com/iliyamo/arena-booking/internal/model"
	"github.com/iliyamo/arena-booking/internal/repository"
)

type Service struct {
	store repository.Store
	slots model.SlotCatalog
	log   *zap.Logger
}

func NewService(store repository.Store, slots model.SlotCatalog, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, slots: slots, log: log}
}

// ResolvePrice returns the rule that prices timeSlot on the given weekday and date.
func (s *Service) ResolvePrice(ctx context.Context, timeSlot string, weekday time.Weekday, on time.Time, kind model.BookingKind) (*model.PriceRule, error) {
	var rule *model.PriceRule
	err := s.store.ReadOnly(ctx, func(uow repository.UnitOfWork) error {
		var err error
		rule, err = s.resolve(ctx, uow, timeSlot, weekday, on, kind)
		return err
	})
	return rule, err
}

func (s *Service) resolve(ctx context.Context, uow repository.UnitOfWork, timeSlot string, weekday time.Weekday, on time.Time, kind model.BookingKind) (*model.PriceRule, error) {
	all, err := uow.PriceRules().ListFor(ctx, timeSlot, weekday)
	if err != nil {
		return nil, err
	}
	rule, ok := Select(forKind(all, kind), on)
	if !ok {
		return nil, &apperr.PriceNotFoundError{TimeSlot: timeSlot, Weekday: weekday, Date: model.DateOf(on)}
	}
	return &rule, nil
}

// Quote prices a booking inside an open unit of work. Every occurrence uses
// the rate resolved for the first occurrence date.
func (s *Service) Quote(ctx context.Context, uow repository.UnitOfWork, kind model.BookingKind, timeSlot string, occurrences []time.Time) (decimal.Decimal, error) {
	if len(occurrences) == 0 {
		return decimal.Zero, apperr.Validation("dates", "booking has no dates to price")
	}
	first := occurrences[0]
	rule, err := s.resolve(ctx, uow, timeSlot, first.Weekday(), first, kind)
	if err != nil {
		return decimal.Zero, err
	}
	return rule.Price.Mul(decimal.NewFromInt(int64(len(occurrences)))), nil
}

// RuleInput carries the editable fields of a price rule.
type RuleInput struct {
	TimeSlot   string
	Weekday    time.Weekday
	Price      decimal.Decimal
	ValidStart *time.Time
	ValidEnd   *time.Time
	IsDefault  bool
	Kind       model.PriceKind
}

func (s *Service) validate(in RuleInput) error {
	if in.TimeSlot == "" {
		return apperr.Validation("time_slot", "time slot is required")
	}
	if len(s.slots.Labels()) > 0 && !s.slots.Contains(in.TimeSlot) {
		return apperr.Validation("time_slot", "unknown time slot %q", in.TimeSlot)
	}
	if in.Price.IsNegative() {
		return apperr.Validation("price", "price cannot be negative")
	}
	if (in.ValidStart == nil) != (in.ValidEnd == nil) {
		return apperr.Validation("valid_end", "valid_start and valid_end must be given together")
	}
	if in.ValidStart != nil && in.ValidEnd.Before(*in.ValidStart) {
		return apperr.Validation("valid_end", "valid_end is before valid_start")
	}
	return nil
}

func (in RuleInput) apply(p *model.PriceRule) {
	p.TimeSlot = in.TimeSlot
	p.Weekday = in.Weekday
	p.Price = in.Price
	p.ValidStart = in.ValidStart
	p.ValidEnd = in.ValidEnd
	p.IsDefault = in.IsDefault
	p.Kind = in.Kind
}

func (s *Service) ListRules(ctx context.Context) ([]model.PriceRule, error) {
	var out []model.PriceRule
	err := s.store.ReadOnly(ctx, func(uow repository.UnitOfWork) error {
		var err error
		out, err = uow.PriceRules().List(ctx)
		return err
	})
	return out, err
}

func (s *Service) CreateRule(ctx context.Context, in RuleInput) (*model.PriceRule, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}
	var rule model.PriceRule
	in.apply(&rule)
	if err := s.store.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		return uow.PriceRules().Create(ctx, &rule)
	}); err != nil {
		return nil, err
	}
	s.log.Info("price rule created", zap.Uint64("rule_id", rule.ID), zap.String("time_slot", rule.TimeSlot),
		zap.String("weekday", model.WeekdayName(rule.Weekday)), zap.String("price", rule.Price.String()))
	return &rule, nil
}

func (s *Service) UpdateRule(ctx context.Context, id uint64, in RuleInput) (*model.PriceRule, error) {
	if err := s.validate(in); err != nil {
		return nil, err
	}
	var rule *model.PriceRule
	err := s.store.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		var err error
		rule, err = uow.PriceRules().GetByID(ctx, id)
		if err != nil {
			return err
		}
		in.apply(rule)
		return uow.PriceRules().Update(ctx, rule)
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("price rule", id)
	}
	if err != nil {
		return nil, err
	}
	s.log.Info("price rule updated", zap.Uint64("rule_id", id))
	return rule, nil
}

func (s *Service) DeleteRule(ctx context.Context, id uint64) error {
	err := s.store.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		return uow.PriceRules().Delete(ctx, id)
	})
	if errors.Is(err, repository.ErrNotFound) {
		return apperr.NotFound("price rule", id)
	}
	if err == nil {
		s.log.Info("price rule deleted", zap.Uint64("rule_id", id))
	}
	return err
}
