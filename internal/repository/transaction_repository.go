package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/iliyamo/arena-booking/internal/model"
)

// TransactionRepo persists ledger entries.
type TransactionRepo struct {
	db DBTX
}

func NewTransactionRepo(db DBTX) *TransactionRepo { return &TransactionRepo{db: db} }

const transactionColumns = `id, reservation_id, transaction_type, payment_method, amount,
	created_by, updated_by, created_at, updated_at`

func scanTransaction(row rowScanner, extra ...any) (*model.Transaction, error) {
	var (
		t         model.Transaction
		typ       string
		method    sql.NullString
		updatedBy sql.NullInt64
	)
	dest := append([]any{&t.ID, &t.ReservationID, &typ, &method, &t.Amount,
		&t.CreatedBy, &updatedBy, &t.CreatedAt, &t.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	t.Type = model.TransactionType(typ)
	t.Method = model.PaymentMethod(method.String)
	if updatedBy.Valid {
		t.UpdatedBy = uint64(updatedBy.Int64)
	}
	return &t, nil
}

func (r *TransactionRepo) Create(ctx context.Context, t *model.Transaction) error {
	const q = `INSERT INTO transactions
		(reservation_id, transaction_type, payment_method, amount, created_by)
		VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, t.ReservationID, string(t.Type),
		nullString(string(t.Method)), t.Amount, t.CreatedBy)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	stored, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*t = *stored
	return nil
}

func (r *TransactionRepo) Update(ctx context.Context, t *model.Transaction) error {
	const q = `UPDATE transactions SET transaction_type = ?, payment_method = ?, amount = ?, updated_by = ?
		WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, string(t.Type), nullString(string(t.Method)),
		t.Amount, t.UpdatedBy, t.ID)
	if err != nil {
		return err
	}
	if err := expectAffected(res); err != nil {
		return err
	}
	stored, err := r.GetByID(ctx, t.ID)
	if err != nil {
		return err
	}
	*t = *stored
	return nil
}

func (r *TransactionRepo) GetByID(ctx context.Context, id uint64) (*model.Transaction, error) {
	q := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = ?`
	t, err := scanTransaction(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return t, err
}

func (r *TransactionRepo) ReservationOf(ctx context.Context, id uint64) (uint64, error) {
	var reservationID uint64
	err := r.db.QueryRowContext(ctx, `SELECT reservation_id FROM transactions WHERE id = ?`, id).Scan(&reservationID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, ErrNotFound
	}
	return reservationID, err
}

// ListByReservation returns the reservation's transactions in insertion order.
func (r *TransactionRepo) ListByReservation(ctx context.Context, reservationID uint64) ([]model.Transaction, error) {
	q := `SELECT ` + transactionColumns + ` FROM transactions WHERE reservation_id = ? ORDER BY id`
	rows, err := r.db.QueryContext(ctx, q, reservationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

func (r *TransactionRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (r *TransactionRepo) DeleteByReservation(ctx context.Context, reservationID uint64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM transactions WHERE reservation_id = ?`, reservationID)
	return err
}
