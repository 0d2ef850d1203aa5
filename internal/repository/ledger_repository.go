package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/iliyamo/arena-booking/internal/model"
)

// LedgerRepo stores one summary row per reservation. Per-method totals live
// in their own columns; the category by method breakdown is kept as JSON.
type LedgerRepo struct {
	db DBTX
}

func NewLedgerRepo(db DBTX) *LedgerRepo { return &LedgerRepo{db: db} }

const ledgerColumns = `reservation_id, total_price, total_paid, discount, other_adjustments, leftover,
	cash_paid, wallet_a_paid, wallet_b_paid, card_paid, bank_transfer_paid,
	booking_paid, slot_paid, breakdown, status, first_payment_date, transaction_count, updated_at`

type ledgerBreakdown struct {
	Booking model.MethodTotals `json:"BOOKING_PAYMENT"`
	Slot    model.MethodTotals `json:"SLOT_PAYMENT"`
}

func scanLedger(row rowScanner) (*model.LedgerSummary, error) {
	var (
		s         model.LedgerSummary
		byMethod  [5]decimal.Decimal
		breakdown []byte
		status    string
		firstPaid sql.NullTime
	)
	err := row.Scan(&s.ReservationID, &s.TotalPrice, &s.TotalPaid, &s.Discount, &s.OtherAdjustments,
		&s.Leftover, &byMethod[0], &byMethod[1], &byMethod[2], &byMethod[3], &byMethod[4],
		&s.BookingPaid, &s.SlotPaid, &breakdown, &status, &firstPaid, &s.TransactionCount, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	s.ByMethod = make(model.MethodTotals, len(model.PaymentMethods))
	for i, m := range model.PaymentMethods {
		s.ByMethod[m] = byMethod[i]
	}
	var b ledgerBreakdown
	if len(breakdown) > 0 {
		if err := json.Unmarshal(breakdown, &b); err != nil {
			return nil, fmt.Errorf("ledger %d: breakdown: %w", s.ReservationID, err)
		}
	}
	s.BookingByMethod, s.SlotByMethod = b.Booking, b.Slot
	s.Status = model.LedgerStatus(status)
	if firstPaid.Valid {
		t := model.DateOf(firstPaid.Time)
		s.FirstPaymentDate = &t
	}
	return &s, nil
}

func (r *LedgerRepo) Get(ctx context.Context, reservationID uint64) (*model.LedgerSummary, error) {
	q := `SELECT ` + ledgerColumns + ` FROM ledger_summaries WHERE reservation_id = ?`
	s, err := scanLedger(r.db.QueryRowContext(ctx, q, reservationID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return s, err
}

// Save upserts the summary. A stored first_payment_date is never replaced.
func (r *LedgerRepo) Save(ctx context.Context, s *model.LedgerSummary) error {
	breakdown, err := json.Marshal(ledgerBreakdown{Booking: s.BookingByMethod, Slot: s.SlotByMethod})
	if err != nil {
		return err
	}
	var firstPaid any
	if s.FirstPaymentDate != nil {
		firstPaid = model.FormatDate(*s.FirstPaymentDate)
	}
	const q = `INSERT INTO ledger_summaries (` + ledgerColumns + `)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			total_price = VALUES(total_price),
			total_paid = VALUES(total_paid),
			discount = VALUES(discount),
			other_adjustments = VALUES(other_adjustments),
			leftover = VALUES(leftover),
			cash_paid = VALUES(cash_paid),
			wallet_a_paid = VALUES(wallet_a_paid),
			wallet_b_paid = VALUES(wallet_b_paid),
			card_paid = VALUES(card_paid),
			bank_transfer_paid = VALUES(bank_transfer_paid),
			booking_paid = VALUES(booking_paid),
			slot_paid = VALUES(slot_paid),
			breakdown = VALUES(breakdown),
			status = VALUES(status),
			first_payment_date = COALESCE(first_payment_date, VALUES(first_payment_date)),
			transaction_count = VALUES(transaction_count),
			updated_at = VALUES(updated_at)`
	_, err = r.db.ExecContext(ctx, q,
		s.ReservationID, s.TotalPrice, s.TotalPaid, s.Discount, s.OtherAdjustments, s.Leftover,
		s.ByMethod.Get(model.MethodCash), s.ByMethod.Get(model.MethodWalletA),
		s.ByMethod.Get(model.MethodWalletB), s.ByMethod.Get(model.MethodCard),
		s.ByMethod.Get(model.MethodBankTransfer),
		s.BookingPaid, s.SlotPaid, breakdown, string(s.Status), firstPaid,
		s.TransactionCount, s.UpdatedAt.UTC())
	return err
}

func (r *LedgerRepo) Delete(ctx context.Context, reservationID uint64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM ledger_summaries WHERE reservation_id = ?`, reservationID)
	return err
}

// ListRecent returns the most recently updated summaries.
func (r *LedgerRepo) ListRecent(ctx context.Context, limit int) ([]model.LedgerSummary, error) {
	q := `SELECT ` + ledgerColumns + ` FROM ledger_summaries ORDER BY updated_at DESC, reservation_id DESC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, q, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.LedgerSummary
	for rows.Next() {
		s, err := scanLedger(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}
