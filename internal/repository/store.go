package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/arena-booking/internal/model"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx so the same repository code
// runs inside or outside a transaction.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type ReservationStore interface {
	Create(ctx context.Context, r *model.Reservation) error
	Update(ctx context.Context, r *model.Reservation) error
	GetByID(ctx context.Context, id uint64) (*model.Reservation, error)
	// LockByID reads the reservation and holds a row lock until the unit of
	// work ends.
	LockByID(ctx context.Context, id uint64) (*model.Reservation, error)
	// ListActive returns non-cancelled reservations whose date span touches
	// [from, to]. An empty timeSlot matches every slot.
	ListActive(ctx context.Context, timeSlot string, from, to time.Time) ([]model.Reservation, error)
	Cancel(ctx context.Context, id uint64, at time.Time, actor uint64) error
	Delete(ctx context.Context, id uint64) error
}

type TransactionStore interface {
	Create(ctx context.Context, t *model.Transaction) error
	Update(ctx context.Context, t *model.Transaction) error
	GetByID(ctx context.Context, id uint64) (*model.Transaction, error)
	// ReservationOf returns the owning reservation id without locking, so
	// callers can take the reservation lock before reading anything else.
	ReservationOf(ctx context.Context, id uint64) (uint64, error)
	ListByReservation(ctx context.Context, reservationID uint64) ([]model.Transaction, error)
	Delete(ctx context.Context, id uint64) error
	DeleteByReservation(ctx context.Context, reservationID uint64) error
	ListInWindow(ctx context.Context, f model.TransactionFilter) ([]model.TransactionRow, error)
}

type LedgerStore interface {
	Get(ctx context.Context, reservationID uint64) (*model.LedgerSummary, error)
	// Save inserts or replaces the summary.
	Save(ctx context.Context, s *model.LedgerSummary) error
	Delete(ctx context.Context, reservationID uint64) error
	ListRecent(ctx context.Context, limit int) ([]model.LedgerSummary, error)
}

type PriceRuleStore interface {
	ListFor(ctx context.Context, timeSlot string, weekday time.Weekday) ([]model.PriceRule, error)
	List(ctx context.Context) ([]model.PriceRule, error)
	GetByID(ctx context.Context, id uint64) (*model.PriceRule, error)
	Create(ctx context.Context, p *model.PriceRule) error
	Update(ctx context.Context, p *model.PriceRule) error
	Delete(ctx context.Context, id uint64) error
}

// UnitOfWork exposes every store bound to one transaction.
type UnitOfWork interface {
	Reservations() ReservationStore
	Transactions() TransactionStore
	Ledgers() LedgerStore
	PriceRules() PriceRuleStore
	// LockSlot serialises reservation writes on one time slot until the unit
	// of work ends.
	LockSlot(ctx context.Context, timeSlot string) error
}

// Store runs units of work. WithinTx commits once when fn returns nil and
// rolls back on error or panic.
type Store interface {
	WithinTx(ctx context.Context, fn func(uow UnitOfWork) error) error
	ReadOnly(ctx context.Context, fn func(uow UnitOfWork) error) error
}
