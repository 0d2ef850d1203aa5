package repository

import (
	"context"
	"database/sql"
	"fmt"
)

// MySQLStore runs units of work as MySQL transactions.
type MySQLStore struct {
	db *sql.DB
}

func NewMySQLStore(db *sql.DB) *MySQLStore { return &MySQLStore{db: db} }

// DB exposes the pool for health checks.
func (s *MySQLStore) DB() *sql.DB { return s.db }

// WithinTx runs fn at READ COMMITTED. Every read after a row lock then sees
// the rows committed before that lock was granted instead of a snapshot
// fixed by an earlier plain read in the same unit of work.
func (s *MySQLStore) WithinTx(ctx context.Context, fn func(uow UnitOfWork) error) error {
	return s.run(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted}, fn)
}

func (s *MySQLStore) ReadOnly(ctx context.Context, fn func(uow UnitOfWork) error) error {
	return s.run(ctx, &sql.TxOptions{ReadOnly: true}, fn)
}

func (s *MySQLStore) run(ctx context.Context, opts *sql.TxOptions, fn func(uow UnitOfWork) error) error {
	tx, err := s.db.BeginTx(ctx, opts)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()
	if err := fn(newTxUnit(tx)); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	committed = true
	return nil
}

type txUnit struct {
	reservations *ReservationRepo
	transactions *TransactionRepo
	ledgers      *LedgerRepo
	priceRules   *PriceRuleRepo
	slots        *SlotLockRepo
}

func newTxUnit(tx *sql.Tx) *txUnit {
	return &txUnit{
		reservations: NewReservationRepo(tx),
		transactions: NewTransactionRepo(tx),
		ledgers:      NewLedgerRepo(tx),
		priceRules:   NewPriceRuleRepo(tx),
		slots:        NewSlotLockRepo(tx),
	}
}

func (u *txUnit) Reservations() ReservationStore { return u.reservations }
func (u *txUnit) Transactions() TransactionStore { return u.transactions }
func (u *txUnit) Ledgers() LedgerStore           { return u.ledgers }
func (u *txUnit) PriceRules() PriceRuleStore     { return u.priceRules }

func (u *txUnit) LockSlot(ctx context.Context, timeSlot string) error {
	return u.slots.Lock(ctx, timeSlot)
}
