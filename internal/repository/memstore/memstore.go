// Package memstore is an in-memory repository.Store. Units of work run one at
// a time against a private copy of the data which replaces the shared copy
// only when the unit commits, so a failed unit leaves nothing behind. It
// backs STORE_DRIVER=memory and the service tests.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/iliyamo/arena-booking/internal/model"
	"github.com/iliyamo/arena-booking/internal/repository"
)

type Store struct {
	mu    sync.Mutex
	data  *dataset
	clock func() time.Time
}

type Option func(*Store)

// WithClock overrides the timestamp source used for created_at/updated_at.
func WithClock(clock func() time.Time) Option {
	return func(s *Store) { s.clock = clock }
}

func New(opts ...Option) *Store {
	s := &Store{data: newDataset(), clock: func() time.Time { return time.Now().UTC() }}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Store) WithinTx(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	work := s.data.clone()
	if err := fn(&unit{data: work, clock: s.clock}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.data = work
	return nil
}

func (s *Store) ReadOnly(ctx context.Context, fn func(uow repository.UnitOfWork) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	return fn(&unit{data: s.data.clone(), clock: s.clock})
}

type dataset struct {
	nextReservation uint64
	nextTransaction uint64
	nextRule        uint64
	reservations    map[uint64]model.Reservation
	transactions    map[uint64]model.Transaction
	ledgers         map[uint64]model.LedgerSummary
	rules           map[uint64]model.PriceRule
}

func newDataset() *dataset {
	return &dataset{
		reservations: map[uint64]model.Reservation{},
		transactions: map[uint64]model.Transaction{},
		ledgers:      map[uint64]model.LedgerSummary{},
		rules:        map[uint64]model.PriceRule{},
	}
}

// clone copies the maps; stored values are never mutated in place.
func (d *dataset) clone() *dataset {
	c := &dataset{
		nextReservation: d.nextReservation,
		nextTransaction: d.nextTransaction,
		nextRule:        d.nextRule,
		reservations:    make(map[uint64]model.Reservation, len(d.reservations)),
		transactions:    make(map[uint64]model.Transaction, len(d.transactions)),
		ledgers:         make(map[uint64]model.LedgerSummary, len(d.ledgers)),
		rules:           make(map[uint64]model.PriceRule, len(d.rules)),
	}
	for k, v := range d.reservations {
		c.reservations[k] = v
	}
	for k, v := range d.transactions {
		c.transactions[k] = v
	}
	for k, v := range d.ledgers {
		c.ledgers[k] = v
	}
	for k, v := range d.rules {
		c.rules[k] = v
	}
	return c
}

type unit struct {
	data  *dataset
	clock func() time.Time
}

func (u *unit) Reservations() repository.ReservationStore { return reservations{u} }
func (u *unit) Transactions() repository.TransactionStore { return transactions{u} }
func (u *unit) Ledgers() repository.LedgerStore           { return ledgers{u} }
func (u *unit) PriceRules() repository.PriceRuleStore     { return rules{u} }

// LockSlot is a no-op: units of work already run one at a time.
func (u *unit) LockSlot(context.Context, string) error { return nil }

type reservations struct{ u *unit }

// checkUnique mirrors the single-slot unique key of the MySQL schema.
func (s reservations) checkUnique(r model.Reservation) error {
	if r.Kind != model.KindSingle || r.IsCancelled {
		return nil
	}
	for id, other := range s.u.data.reservations {
		if id == r.ID || other.Kind != model.KindSingle || other.IsCancelled {
			continue
		}
		if other.TimeSlot == r.TimeSlot && other.StartDate.Equal(r.StartDate) {
			return repository.ErrDuplicate
		}
	}
	return nil
}

func (s reservations) Create(_ context.Context, r *model.Reservation) error {
	if err := s.checkUnique(*r); err != nil {
		return err
	}
	s.u.data.nextReservation++
	now := s.u.clock()
	r.ID = s.u.data.nextReservation
	r.CreatedAt, r.UpdatedAt = now, now
	s.u.data.reservations[r.ID] = *r
	return nil
}

func (s reservations) Update(_ context.Context, r *model.Reservation) error {
	cur, ok := s.u.data.reservations[r.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if err := s.checkUnique(*r); err != nil {
		return err
	}
	r.CreatedAt, r.CreatedBy = cur.CreatedAt, cur.CreatedBy
	r.IsCancelled, r.CancelledAt = cur.IsCancelled, cur.CancelledAt
	r.UpdatedAt = s.u.clock()
	s.u.data.reservations[r.ID] = *r
	return nil
}

func (s reservations) GetByID(_ context.Context, id uint64) (*model.Reservation, error) {
	r, ok := s.u.data.reservations[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (s reservations) LockByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	return s.GetByID(ctx, id)
}

func (s reservations) ListActive(_ context.Context, timeSlot string, from, to time.Time) ([]model.Reservation, error) {
	var out []model.Reservation
	for _, r := range s.u.data.reservations {
		if r.IsCancelled || (timeSlot != "" && r.TimeSlot != timeSlot) {
			continue
		}
		if r.StartDate.After(to) || r.EndDate.Before(from) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].StartDate.Equal(out[j].StartDate) {
			return out[i].StartDate.Before(out[j].StartDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s reservations) Cancel(_ context.Context, id uint64, at time.Time, actor uint64) error {
	r, ok := s.u.data.reservations[id]
	if !ok {
		return repository.ErrNotFound
	}
	at = at.UTC()
	r.IsCancelled, r.CancelledAt, r.LastModifiedBy = true, &at, actor
	r.UpdatedAt = s.u.clock()
	s.u.data.reservations[id] = r
	return nil
}

func (s reservations) Delete(_ context.Context, id uint64) error {
	if _, ok := s.u.data.reservations[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.u.data.reservations, id)
	return nil
}

type transactions struct{ u *unit }

func (s transactions) Create(_ context.Context, t *model.Transaction) error {
	s.u.data.nextTransaction++
	now := s.u.clock()
	t.ID = s.u.data.nextTransaction
	t.CreatedAt, t.UpdatedAt = now, now
	s.u.data.transactions[t.ID] = *t
	return nil
}

func (s transactions) Update(_ context.Context, t *model.Transaction) error {
	cur, ok := s.u.data.transactions[t.ID]
	if !ok {
		return repository.ErrNotFound
	}
	t.ReservationID, t.CreatedBy, t.CreatedAt = cur.ReservationID, cur.CreatedBy, cur.CreatedAt
	t.UpdatedAt = s.u.clock()
	s.u.data.transactions[t.ID] = *t
	return nil
}

func (s transactions) GetByID(_ context.Context, id uint64) (*model.Transaction, error) {
	t, ok := s.u.data.transactions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &t, nil
}

func (s transactions) ReservationOf(_ context.Context, id uint64) (uint64, error) {
	t, ok := s.u.data.transactions[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	return t.ReservationID, nil
}

func (s transactions) ListByReservation(_ context.Context, reservationID uint64) ([]model.Transaction, error) {
	var out []model.Transaction
	for _, t := range s.u.data.transactions {
		if t.ReservationID == reservationID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s transactions) Delete(_ context.Context, id uint64) error {
	if _, ok := s.u.data.transactions[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.u.data.transactions, id)
	return nil
}

func (s transactions) DeleteByReservation(_ context.Context, reservationID uint64) error {
	for id, t := range s.u.data.transactions {
		if t.ReservationID == reservationID {
			delete(s.u.data.transactions, id)
		}
	}
	return nil
}

func (s transactions) ListInWindow(_ context.Context, f model.TransactionFilter) ([]model.TransactionRow, error) {
	from := model.DateOf(f.Start)
	until := model.DateOf(f.End).Add(24 * time.Hour)
	var out []model.TransactionRow
	for _, t := range s.u.data.transactions {
		if t.CreatedAt.Before(from) || !t.CreatedAt.Before(until) {
			continue
		}
		if (f.Type != "" && t.Type != f.Type) || (f.Method != "" && t.Method != f.Method) {
			continue
		}
		if (f.ReservationID != 0 && t.ReservationID != f.ReservationID) || (f.CreatedBy != 0 && t.CreatedBy != f.CreatedBy) {
			continue
		}
		r, ok := s.u.data.reservations[t.ReservationID]
		if !ok {
			continue
		}
		out = append(out, model.TransactionRow{
			Transaction:  t,
			CustomerName: r.CustomerName,
			TimeSlot:     r.TimeSlot,
			BookingDate:  model.FormatDate(r.StartDate),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

type ledgers struct{ u *unit }

func copyTotals(t model.MethodTotals) model.MethodTotals {
	if t == nil {
		return nil
	}
	out := make(model.MethodTotals, len(t))
	for k, v := range t {
		out[k] = v
	}
	return out
}

func copySummary(s model.LedgerSummary) model.LedgerSummary {
	s.ByMethod = copyTotals(s.ByMethod)
	s.BookingByMethod = copyTotals(s.BookingByMethod)
	s.SlotByMethod = copyTotals(s.SlotByMethod)
	return s
}

func (s ledgers) Get(_ context.Context, reservationID uint64) (*model.LedgerSummary, error) {
	sum, ok := s.u.data.ledgers[reservationID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	out := copySummary(sum)
	return &out, nil
}

func (s ledgers) Save(_ context.Context, sum *model.LedgerSummary) error {
	stored := copySummary(*sum)
	if prev, ok := s.u.data.ledgers[sum.ReservationID]; ok && prev.FirstPaymentDate != nil {
		stored.FirstPaymentDate = prev.FirstPaymentDate
	}
	s.u.data.ledgers[sum.ReservationID] = stored
	return nil
}

func (s ledgers) Delete(_ context.Context, reservationID uint64) error {
	delete(s.u.data.ledgers, reservationID)
	return nil
}

func (s ledgers) ListRecent(_ context.Context, limit int) ([]model.LedgerSummary, error) {
	out := make([]model.LedgerSummary, 0, len(s.u.data.ledgers))
	for _, sum := range s.u.data.ledgers {
		out = append(out, copySummary(sum))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ReservationID > out[j].ReservationID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type rules struct{ u *unit }

func (s rules) ListFor(_ context.Context, timeSlot string, weekday time.Weekday) ([]model.PriceRule, error) {
	var out []model.PriceRule
	for _, p := range s.u.data.rules {
		if p.TimeSlot == timeSlot && p.Weekday == weekday {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s rules) List(_ context.Context) ([]model.PriceRule, error) {
	out := make([]model.PriceRule, 0, len(s.u.data.rules))
	for _, p := range s.u.data.rules {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TimeSlot != out[j].TimeSlot {
			return out[i].TimeSlot < out[j].TimeSlot
		}
		if out[i].Weekday != out[j].Weekday {
			return out[i].Weekday < out[j].Weekday
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (s rules) GetByID(_ context.Context, id uint64) (*model.PriceRule, error) {
	p, ok := s.u.data.rules[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &p, nil
}

func (s rules) Create(_ context.Context, p *model.PriceRule) error {
	s.u.data.nextRule++
	now := s.u.clock()
	p.ID = s.u.data.nextRule
	p.CreatedAt, p.UpdatedAt = now, now
	s.u.data.rules[p.ID] = *p
	return nil
}

func (s rules) Update(_ context.Context, p *model.PriceRule) error {
	cur, ok := s.u.data.rules[p.ID]
	if !ok {
		return repository.ErrNotFound
	}
	p.CreatedAt = cur.CreatedAt
	p.UpdatedAt = s.u.clock()
	s.u.data.rules[p.ID] = *p
	return nil
}

func (s rules) Delete(_ context.Context, id uint64) error {
	if _, ok := s.u.data.rules[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.u.data.rules, id)
	return nil
}
