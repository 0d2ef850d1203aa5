package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/iliyamo/arena-booking/internal/apperr"
	"github.com/iliyamo/arena-booking/internal/metrics"
	"github.com/iliyamo/arena-booking/internal/model"
	"github.com/iliyamo/arena-booking/internal/queue"
	"github.com/iliyamo/arena-booking/internal/repository"
)

// Quoter prices a reservation inside an open unit of work.
type Quoter interface {
	Quote(ctx context.Context, uow repository.UnitOfWork, kind model.BookingKind, timeSlot string, occurrences []time.Time) (decimal.Decimal, error)
}

type Service struct {
	store  repository.Store
	quoter Quoter
	events queue.Publisher
	log    *zap.Logger
	clock  func() time.Time
}

func NewService(store repository.Store, quoter Quoter, events queue.Publisher, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	if events == nil {
		events = queue.NopPublisher{}
	}
	return &Service{store: store, quoter: quoter, events: events, log: log,
		clock: func() time.Time { return time.Now().UTC() }}
}

// PaymentInput is a new ledger entry as received from the caller.
type PaymentInput struct {
	Type   string
	Method string
	Amount decimal.Decimal
}

// PaymentPatch edits an existing entry; nil fields are left unchanged.
type PaymentPatch struct {
	Type   *string
	Method *string
	Amount *decimal.Decimal
}

func parseEntry(typ, method string, amount decimal.Decimal) (model.TransactionType, model.PaymentMethod, error) {
	t, err := model.ParseTransactionType(typ)
	if err != nil {
		return "", "", err
	}
	m, err := model.ParsePaymentMethod(method)
	if err != nil {
		return "", "", err
	}
	if t.RequiresMethod() && m == "" {
		return "", "", apperr.Validation("payment_method", "payment method is required for %s", t)
	}
	if amount.IsZero() {
		return "", "", apperr.Validation("amount", "amount must not be zero")
	}
	if amount.IsNegative() && t != model.TxOtherAdjustment {
		return "", "", apperr.Validation("amount", "amount must be positive for %s", t)
	}
	return t, m, nil
}

// TotalFor returns the contracted price of a reservation: the quote stored
// at booking time when present, otherwise a fresh quote.
func TotalFor(ctx context.Context, uow repository.UnitOfWork, quoter Quoter, res *model.Reservation) (decimal.Decimal, error) {
	if res.QuotedPrice.Valid {
		return res.QuotedPrice.Decimal, nil
	}
	if quoter == nil {
		return decimal.Zero, errors.New("ledger: no quoter configured")
	}
	return quoter.Quote(ctx, uow, res.Kind, res.TimeSlot, res.AllOccurrences())
}

// Refresh recomputes and stores the summary of one reservation from its
// current transactions. With no transactions left the summary is removed
// and nil is returned. The caller must hold the reservation row lock.
func Refresh(ctx context.Context, uow repository.UnitOfWork, reservationID uint64, total decimal.Decimal, now time.Time) (*model.LedgerSummary, error) {
	txns, err := uow.Transactions().ListByReservation(ctx, reservationID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	if len(txns) == 0 {
		if err := uow.Ledgers().Delete(ctx, reservationID); err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("delete summary: %w", err)
		}
		return nil, nil
	}
	var prevFirst *time.Time
	prev, err := uow.Ledgers().Get(ctx, reservationID)
	switch {
	case err == nil:
		prevFirst = prev.FirstPaymentDate
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("load summary: %w", err)
	}
	sum := Recompute(reservationID, total, txns, prevFirst, now)
	if err := uow.Ledgers().Save(ctx, &sum); err != nil {
		return nil, fmt.Errorf("save summary: %w", err)
	}
	return &sum, nil
}

// currentTotal keeps the total already on the summary so a later change to
// price rules never alters an open ledger.
func (s *Service) currentTotal(ctx context.Context, uow repository.UnitOfWork, res *model.Reservation) (decimal.Decimal, error) {
	prev, err := uow.Ledgers().Get(ctx, res.ID)
	if err == nil {
		return prev.TotalPrice, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return decimal.Zero, err
	}
	return TotalFor(ctx, uow, s.quoter, res)
}

func (s *Service) lockReservation(ctx context.Context, uow repository.UnitOfWork, id uint64) (*model.Reservation, error) {
	res, err := uow.Reservations().LockByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("reservation", id)
	}
	return res, err
}

// RecordPayment adds a transaction to a reservation and returns the
// recomputed summary. The first entry creates the summary.
func (s *Service) RecordPayment(ctx context.Context, reservationID uint64, in PaymentInput, actor uint64) (*model.LedgerSummary, error) {
	typ, method, err := parseEntry(in.Type, in.Method, in.Amount)
	if err != nil {
		return nil, err
	}
	var (
		sum *model.LedgerSummary
		txn = model.Transaction{ReservationID: reservationID, Type: typ, Method: method, Amount: in.Amount, CreatedBy: actor, UpdatedBy: actor}
	)
	err = s.store.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		res, err := s.lockReservation(ctx, uow, reservationID)
		if err != nil {
			return err
		}
		total, err := s.currentTotal(ctx, uow, res)
		if err != nil {
			return err
		}
		if err := uow.Transactions().Create(ctx, &txn); err != nil {
			return fmt.Errorf("create transaction: %w", err)
		}
		sum, err = Refresh(ctx, uow, reservationID, total, s.clock())
		return err
	})
	if err != nil {
		return nil, err
	}
	metrics.LedgerOps.WithLabelValues("record", string(typ)).Inc()
	if typ.IsPayment() {
		metrics.PaymentAmount.WithLabelValues(string(method)).Add(in.Amount.InexactFloat64())
	}
	s.log.Info("transaction recorded",
		zap.Uint64("reservation_id", reservationID), zap.Uint64("transaction_id", txn.ID),
		zap.String("type", string(typ)), zap.String("amount", in.Amount.String()),
		zap.String("status", string(sum.Status)), zap.String("leftover", sum.Leftover.String()))
	s.publish(ctx, queue.EventPaymentRecorded, &txn, sum, actor)
	return sum, nil
}

// EditPayment changes the type, method or amount of a transaction and
// returns the recomputed summary.
func (s *Service) EditPayment(ctx context.Context, transactionID uint64, patch PaymentPatch, actor uint64) (*model.LedgerSummary, error) {
	var (
		sum *model.LedgerSummary
		txn *model.Transaction
	)
	err := s.store.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		res, err := s.lockOwner(ctx, uow, transactionID)
		if err != nil {
			return err
		}
		if txn, err = s.loadTransaction(ctx, uow, transactionID); err != nil {
			return err
		}
		typ, method, amount := string(txn.Type), string(txn.Method), txn.Amount
		if patch.Type != nil {
			typ = *patch.Type
		}
		if patch.Method != nil {
			method = *patch.Method
		}
		if patch.Amount != nil {
			amount = *patch.Amount
		}
		t, m, err := parseEntry(typ, method, amount)
		if err != nil {
			return err
		}
		txn.Type, txn.Method, txn.Amount, txn.UpdatedBy = t, m, amount, actor

		total, err := s.currentTotal(ctx, uow, res)
		if err != nil {
			return err
		}
		if err := uow.Transactions().Update(ctx, txn); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.NotFound("transaction", transactionID)
			}
			return fmt.Errorf("update transaction: %w", err)
		}
		sum, err = Refresh(ctx, uow, res.ID, total, s.clock())
		return err
	})
	if err != nil {
		return nil, err
	}
	metrics.LedgerOps.WithLabelValues("edit", string(txn.Type)).Inc()
	s.log.Info("transaction edited",
		zap.Uint64("reservation_id", txn.ReservationID), zap.Uint64("transaction_id", txn.ID),
		zap.String("status", string(sum.Status)))
	s.publish(ctx, queue.EventPaymentEdited, txn, sum, actor)
	return sum, nil
}

// DeletePayment removes a transaction. It returns nil, nil when that was the
// last transaction and the summary was removed with it.
func (s *Service) DeletePayment(ctx context.Context, transactionID uint64, actor uint64) (*model.LedgerSummary, error) {
	var (
		sum *model.LedgerSummary
		txn *model.Transaction
	)
	err := s.store.WithinTx(ctx, func(uow repository.UnitOfWork) error {
		res, err := s.lockOwner(ctx, uow, transactionID)
		if err != nil {
			return err
		}
		if txn, err = s.loadTransaction(ctx, uow, transactionID); err != nil {
			return err
		}
		total, err := s.currentTotal(ctx, uow, res)
		if err != nil {
			return err
		}
		if err := uow.Transactions().Delete(ctx, transactionID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.NotFound("transaction", transactionID)
			}
			return fmt.Errorf("delete transaction: %w", err)
		}
		sum, err = Refresh(ctx, uow, res.ID, total, s.clock())
		return err
	})
	if err != nil {
		return nil, err
	}
	metrics.LedgerOps.WithLabelValues("delete", string(txn.Type)).Inc()
	if sum == nil {
		s.log.Info("last transaction deleted; summary removed",
			zap.Uint64("reservation_id", txn.ReservationID), zap.Uint64("transaction_id", transactionID))
	} else {
		s.log.Info("transaction deleted",
			zap.Uint64("reservation_id", txn.ReservationID), zap.Uint64("transaction_id", transactionID),
			zap.String("status", string(sum.Status)))
	}
	s.publish(ctx, queue.EventPaymentDeleted, txn, sum, actor)
	return sum, nil
}

// lockOwner locks the reservation owning a transaction before any of the
// transaction's rows or the summary are read. Transactions never move
// between reservations, so the unlocked id lookup cannot go stale.
func (s *Service) lockOwner(ctx context.Context, uow repository.UnitOfWork, transactionID uint64) (*model.Reservation, error) {
	reservationID, err := uow.Transactions().ReservationOf(ctx, transactionID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("transaction", transactionID)
	}
	if err != nil {
		return nil, err
	}
	return s.lockReservation(ctx, uow, reservationID)
}

func (s *Service) loadTransaction(ctx context.Context, uow repository.UnitOfWork, id uint64) (*model.Transaction, error) {
	t, err := uow.Transactions().GetByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("transaction", id)
	}
	return t, err
}

// GetLedgerSummary returns the stored summary. A reservation without
// transactions gets a PENDING preview priced the way its first payment
// would be; nothing is written.
func (s *Service) GetLedgerSummary(ctx context.Context, reservationID uint64) (*model.LedgerSummary, error) {
	var sum *model.LedgerSummary
	err := s.store.ReadOnly(ctx, func(uow repository.UnitOfWork) error {
		res, err := uow.Reservations().GetByID(ctx, reservationID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("reservation", reservationID)
		}
		if err != nil {
			return err
		}
		sum, err = uow.Ledgers().Get(ctx, reservationID)
		if err == nil || !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		total, err := TotalFor(ctx, uow, s.quoter, res)
		if err != nil {
			return err
		}
		preview := Recompute(reservationID, total, nil, nil, s.clock())
		sum = &preview
		return nil
	})
	return sum, err
}

// ListTransactions returns the entries of one reservation in recording order.
func (s *Service) ListTransactions(ctx context.Context, reservationID uint64) ([]model.Transaction, error) {
	var out []model.Transaction
	err := s.store.ReadOnly(ctx, func(uow repository.UnitOfWork) error {
		if _, err := uow.Reservations().GetByID(ctx, reservationID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperr.NotFound("reservation", reservationID)
			}
			return err
		}
		var err error
		out, err = uow.Transactions().ListByReservation(ctx, reservationID)
		return err
	})
	if out == nil {
		out = []model.Transaction{}
	}
	return out, err
}

const (
	defaultRecentLimit = 20
	maxRecentLimit     = 100
)

// ListRecentSummaries returns the most recently updated summaries.
func (s *Service) ListRecentSummaries(ctx context.Context, limit int) ([]model.LedgerSummary, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	if limit > maxRecentLimit {
		limit = maxRecentLimit
	}
	var out []model.LedgerSummary
	err := s.store.ReadOnly(ctx, func(uow repository.UnitOfWork) error {
		var err error
		out, err = uow.Ledgers().ListRecent(ctx, limit)
		return err
	})
	if out == nil {
		out = []model.LedgerSummary{}
	}
	return out, err
}

func (s *Service) publish(ctx context.Context, typ string, txn *model.Transaction, sum *model.LedgerSummary, actor uint64) {
	ev := queue.NewEvent(typ, txn.ReservationID, actor)
	ev.TransactionID = txn.ID
	ev.Amount = txn.Amount.String()
	if sum != nil {
		ev.LedgerStatus = string(sum.Status)
		ev.Leftover = sum.Leftover.String()
	}
	if err := s.events.Publish(ctx, ev); err != nil {
		s.log.Warn("event publish failed", zap.String("event", typ), zap.Error(err))
	}
}
