package booking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/arena-booking/internal/apperr"
	"github.com/iliyamo/arena-booking/internal/ledger"
	"github.com/iliyamo/arena-booking/internal/metrics"
	"github.com/iliyamo/arena-booking/internal/model"
	"github.com/iliyamo/arena-booking/internal/queue"
	"github.com/iliyamo/arena-booking/internal/repository"
)

// Guard serialises slot writes across instances ahead of the database lock.
type Guard interface {
	Acquire(ctx context.Context, slots ...string) func()
}

type noGuard struct{}

func (noGuard) Acquire(context.Context, ...string) func() { return func() {} }

// Options tune request validation and calendar views.
type Options struct {
	PhoneRegion    string
	MaxQueryMonths int
}

type Service struct {
	store       repository.Store
	quoter      ledger.Quoter
	guard       Guard
	events      queue.Publisher
	slots       model.SlotCatalog
	phoneRegion string
	maxMonths   int
	log         *zap.Logger
	clock       func() time.Time
}

func NewService(store repository.Store, quoter ledger.Quoter, guard Guard, events queue.Publisher,
	slots model.SlotCatalog, opts Options, log *zap.Logger) *Service {
	if guard == nil {
		guard = noGuard{}
	}
	if events == nil {
		events = queue.NopPublisher{}
	}
	if log == nil {
		log = zap.NewNop()
	}
	if opts.MaxQueryMonths <= 0 {
		opts.MaxQueryMonths = 3
	}
	if opts.PhoneRegion == "" {
		opts.PhoneRegion = "BD"
	}
	return &Service{
		store: store, quoter: quoter, guard: guard, events: events, slots: slots,
		phoneRegion: opts.PhoneRegion, maxMonths: opts.MaxQueryMonths, log: log,
		clock: func() time.Time { return time.Now().UTC() },
	}
}

// TimeSlots returns the bookable slot labels in day order.
func (s *Service) TimeSlots() []string { return s.slots.Labels() }

// CheckConflict reports the active reservations that would collide with c.
// An empty result means the slot is free.
func (s *Service) CheckConflict(ctx context.Context, c Candidate, excludeID uint64) ([]model.Reservation, error) {
	occ, err := c.Occurrences()
	if err != nil {
		return nil, err
	}
	var conflicts []model.Reservation
	err = s.store.ReadOnly(ctx, func(uow repository.UnitOfWork) error {
		existing, err := uow.Reservations().ListActive(ctx, c.TimeSlot, occ[0], occ[len(occ)-1])
		if err != nil {
			return err
		}
		conflicts = FindConflicts(c, occ, existing, excludeID)
		return nil
	})
	return conflicts, err
}

// conflictsUnderLock re-reads the slot while its lock is held.
func conflictsUnderLock(ctx context.Context, uow repository.UnitOfWork, c Candidate, occ []time.Time, excludeID uint64) (*ConflictError, error) {
	existing, err := uow.Reservations().ListActive(ctx, c.TimeSlot, occ[0], occ[len(occ)-1])
	if err != nil {
		return nil, fmt.Errorf("list reservations: %w", err)
	}
	if found := FindConflicts(c, occ, existing, excludeID); len(found) > 0 {
		return &ConflictError{TimeSlot: c.TimeSlot, Conflicts: found}, nil
	}
	return nil, nil
}

// quote prices the candidate. A missing price rule is not fatal here: the
// reservation is stored without a quote and priced on its first payment.
func (s *Service) quote(ctx context.Context, uow repository.UnitOfWork, c Candidate, occ []time.Time) (decimal.NullDecimal, error) {
	if s.quoter == nil {
		return decimal.NullDecimal{}, nil
	}
	price, err := s.quoter.Quote(ctx, uow, c.Kind, c.TimeSlot, occ)
	var pnf *apperr.PriceNotFoundError
	if errors.As(err, &pnf) {
		s.log.Warn("no price rule for booking; quote deferred", zap.String("time_slot", c.TimeSlot),
			zap.String("date", model.FormatDate(occ[0])))
		return decimal.NullDecimal{}, nil
	}
	if err != nil {
		return decimal.NullDecimal{}, err
	}
	return decimal.NullDecimal{Decimal: price, Valid: true}, nil
}

// CheckAndReserve books the slot when none of the candidate's dates are
// taken. The conflict check and the insert run in one unit of work holding
// the slot lock, so two concurrent requests cannot both succeed.
func (s *Service) CheckAndReserve(ctx context.Context, req ReserveRequest, actor uint64) (*model.Reservation, error) {
	c, err := s.Candidate(req)
	if err != nil {
		return nil, err
	}
	who, err := s.customer(req)
	if err != nil {
		return nil, err
	}
	occ, err := c.Occurrences()
	if err != nil {
		return nil, err
	}

	release := s.guard.Acquire(ctx, c.TimeSlot)
	defer release()

	res := model.Reservation{
		CustomerName:    who.name,
		Phone:           who.phone,
		Kind:            c.Kind,
		TimeSlot:        c.TimeSlot,
		StartDate:       c.Start,
		EndDate:         c.End,
		OccurrenceCount: len(occ),
		CreatedBy:       actor,
		LastModifiedBy:  actor,
	}
	if c.Kind == model.KindRecurring {
		res.Weekdays = c.Weekdays
	}
	err = s.store.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		if err := uow.LockSlot(ctx, c.TimeSlot); err != nil {
			return fmt.Errorf("lock slot: %w", err)
		}
		conflict, err := conflictsUnderLock(ctx, uow, c, occ, 0)
		if err != nil {
			return err
		}
		if conflict != nil {
			return conflict
		}
		if res.QuotedPrice, err = s.quote(ctx, uow, c, occ); err != nil {
			return err
		}
		return uow.Reservations().Create(ctx, &res)
	})
	if err = s.duplicateAsConflict(ctx, err, c, occ, 0); err != nil {
		s.countFailure(c.Kind, err)
		return nil, err
	}

	metrics.ReservationOps.WithLabelValues(string(res.Kind), "created").Inc()
	s.log.Info("reservation created", zap.Uint64("reservation_id", res.ID), zap.String("kind", string(res.Kind)),
		zap.String("time_slot", res.TimeSlot), zap.String("start_date", model.FormatDate(res.StartDate)),
		zap.String("end_date", model.FormatDate(res.EndDate)), zap.Int("occurrences", res.OccurrenceCount),
		zap.Uint64("actor_id", actor))
	s.publish(ctx, queue.EventReservationCreated, &res, actor)
	return &res, nil
}

// duplicateAsConflict turns a unique-key violation into a ConflictError
// naming the reservations that now hold the slot.
func (s *Service) duplicateAsConflict(ctx context.Context, err error, c Candidate, occ []time.Time, excludeID uint64) error {
	if !errors.Is(err, repository.ErrDuplicate) {
		return err
	}
	conflicts, lookupErr := s.CheckConflict(ctx, c, excludeID)
	if lookupErr != nil {
		s.log.Warn("conflict lookup after duplicate key failed", zap.Error(lookupErr))
	}
	return &ConflictError{TimeSlot: c.TimeSlot, Conflicts: conflicts}
}

func (s *Service) countFailure(kind model.BookingKind, err error) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		metrics.ReservationOps.WithLabelValues(string(kind), "conflict").Inc()
		s.log.Info("reservation rejected: slot taken", zap.String("time_slot", ce.TimeSlot), zap.Int("conflicts", len(ce.Conflicts)))
	}
}

func sameTerms(r *model.Reservation, c Candidate) bool {
	if r.Kind != c.Kind || r.TimeSlot != c.TimeSlot || !r.StartDate.Equal(c.Start) || !r.EndDate.Equal(c.End) {
		return false
	}
	return c.Kind == model.KindSingle || r.Weekdays == c.Weekdays
}

// UpdateReservation replaces the customer and scheduling fields of an
// active reservation. The conflict check ignores the reservation itself.
// When the schedule changes the price is quoted again and an existing
// ledger is recomputed against the new total.
func (s *Service) UpdateReservation(ctx context.Context, id uint64, req ReserveRequest, actor uint64) (*model.Reservation, error) {
	c, err := s.Candidate(req)
	if err != nil {
		return nil, err
	}
	who, err := s.customer(req)
	if err != nil {
		return nil, err
	}
	occ, err := c.Occurrences()
	if err != nil {
		return nil, err
	}
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	slots := []string{c.TimeSlot}
	if current.TimeSlot != c.TimeSlot {
		slots = append(slots, current.TimeSlot)
	}
	sort.Strings(slots)
	release := s.guard.Acquire(ctx, slots...)
	defer release()

	var (
		res     *model.Reservation
		changed bool
	)
	err = s.store.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		for _, slot := range slots {
			if err := uow.LockSlot(ctx, slot); err != nil {
				return fmt.Errorf("lock slot: %w", err)
			}
		}
		var err error
		res, err = uow.Reservations().LockByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("reservation", id)
		}
		if err != nil {
			return err
		}
		if res.IsCancelled {
			return apperr.Validation("id", "reservation %d is cancelled and cannot be changed", id)
		}
		conflict, err := conflictsUnderLock(ctx, uow, c, occ, id)
		if err != nil {
			return err
		}
		if conflict != nil {
			return conflict
		}

		changed = !sameTerms(res, c)
		res.CustomerName, res.Phone, res.LastModifiedBy = who.name, who.phone, actor
		if !changed {
			return uow.Reservations().Update(ctx, res)
		}
		res.Kind, res.TimeSlot, res.StartDate, res.EndDate = c.Kind, c.TimeSlot, c.Start, c.End
		res.Weekdays = 0
		if c.Kind == model.KindRecurring {
			res.Weekdays = c.Weekdays
		}
		res.OccurrenceCount = len(occ)
		if res.QuotedPrice, err = s.quote(ctx, uow, c, occ); err != nil {
			return err
		}
		if err := uow.Reservations().Update(ctx, res); err != nil {
			return err
		}
		return s.rebaseLedger(ctx, uow, res)
	})
	if err = s.duplicateAsConflict(ctx, err, c, occ, id); err != nil {
		s.countFailure(c.Kind, err)
		return nil, err
	}

	metrics.ReservationOps.WithLabelValues(string(res.Kind), "updated").Inc()
	s.log.Info("reservation updated", zap.Uint64("reservation_id", id), zap.Bool("schedule_changed", changed),
		zap.Uint64("actor_id", actor))
	s.publish(ctx, queue.EventReservationUpdated, res, actor)
	return res, nil
}

// rebaseLedger recomputes an existing summary with the reservation's new
// total. Reservations without transactions have no summary to touch. When
// the new terms have no price rule the summary keeps its previous total.
func (s *Service) rebaseLedger(ctx context.Context, uow repository.UnitOfWork, res *model.Reservation) error {
	prev, err := uow.Ledgers().Get(ctx, res.ID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil
		}
		return err
	}
	total, err := ledger.TotalFor(ctx, uow, s.quoter, res)
	var pnf *apperr.PriceNotFoundError
	if errors.As(err, &pnf) {
		s.log.Warn("no price rule for updated terms; ledger total kept", zap.Uint64("reservation_id", res.ID),
			zap.String("total_price", prev.TotalPrice.String()))
		total, err = prev.TotalPrice, nil
	}
	if err != nil {
		return err
	}
	_, err = ledger.Refresh(ctx, uow, res.ID, total, s.clock())
	return err
}

// CancelResult reports how a reservation was removed.
type CancelResult struct {
	ID          uint64                 `json:"id"`
	SoftDeleted bool                   `json:"soft_deleted"`
	State       model.ReservationState `json:"state,omitempty"`
}

// CancelOrDelete frees the reservation's dates. With retainPayments the row
// is kept as CANCELLED together with its transactions and summary;
// otherwise the reservation, its transactions and its summary are removed
// in one unit of work. Cancelling a cancelled reservation is a no-op.
func (s *Service) CancelOrDelete(ctx context.Context, id uint64, retainPayments bool, actor uint64) (*CancelResult, error) {
	var res *model.Reservation
	err := s.store.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		var err error
		res, err = uow.Reservations().LockByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("reservation", id)
		}
		if err != nil {
			return err
		}
		if retainPayments {
			if res.IsCancelled {
				return nil
			}
			return uow.Reservations().Cancel(ctx, id, s.clock(), actor)
		}
		if err := uow.Transactions().DeleteByReservation(ctx, id); err != nil {
			return fmt.Errorf("delete transactions: %w", err)
		}
		if err := uow.Ledgers().Delete(ctx, id); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("delete summary: %w", err)
		}
		return uow.Reservations().Delete(ctx, id)
	})
	if err != nil {
		return nil, err
	}

	if retainPayments {
		metrics.ReservationOps.WithLabelValues(string(res.Kind), "cancelled").Inc()
		s.log.Info("reservation cancelled", zap.Uint64("reservation_id", id), zap.Uint64("actor_id", actor))
		s.publish(ctx, queue.EventReservationCancelled, res, actor)
		return &CancelResult{ID: id, SoftDeleted: true, State: model.StateCancelled}, nil
	}
	metrics.ReservationOps.WithLabelValues(string(res.Kind), "deleted").Inc()
	s.log.Info("reservation deleted", zap.Uint64("reservation_id", id), zap.Uint64("actor_id", actor))
	s.publish(ctx, queue.EventReservationDeleted, res, actor)
	return &CancelResult{ID: id}, nil
}

// Get returns a reservation in any state.
func (s *Service) Get(ctx context.Context, id uint64) (*model.Reservation, error) {
	var res *model.Reservation
	err := s.store.ReadOnly(ctx, func(uow repository.UnitOfWork) error {
		var err error
		res, err = uow.Reservations().GetByID(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("reservation", id)
		}
		return err
	})
	return res, err
}

func (s *Service) publish(ctx context.Context, typ string, res *model.Reservation, actor uint64) {
	ev := queue.NewEvent(typ, res.ID, actor)
	ev.CustomerName = res.CustomerName
	ev.TimeSlot = res.TimeSlot
	ev.StartDate = model.FormatDate(res.StartDate)
	ev.EndDate = model.FormatDate(res.EndDate)
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn("event publish failed", zap.String("event", typ), zap.Uint64("reservation_id", res.ID), zap.Error(err))
	}
}
