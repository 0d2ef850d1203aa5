package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/iliyamo/arena-booking/internal/model"
)

// ReservationRepo reads and writes the reservations table. SINGLE rows store
// their date in both start_date and end_date so range predicates treat both
// kinds alike.
type ReservationRepo struct {
	db DBTX
}

// NewReservationRepo returns a ReservationRepo bound to db or a transaction.
func NewReservationRepo(db DBTX) *ReservationRepo { return &ReservationRepo{db: db} }

const reservationColumns = `id, customer_name, phone, kind, time_slot, start_date, end_date, weekdays,
	quoted_price, occurrence_count, is_cancelled, cancelled_at, created_by, last_modified_by,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (*model.Reservation, error) {
	var (
		r           model.Reservation
		kind        string
		weekdays    sql.NullString
		cancelledAt sql.NullTime
	)
	err := row.Scan(&r.ID, &r.CustomerName, &r.Phone, &kind, &r.TimeSlot, &r.StartDate, &r.EndDate,
		&weekdays, &r.QuotedPrice, &r.OccurrenceCount, &r.IsCancelled, &cancelledAt,
		&r.CreatedBy, &r.LastModifiedBy, &r.CreatedAt, &r.UpdatedAt)
	if err != nil {
		return nil, err
	}
	r.Kind = model.BookingKind(kind)
	set, err := model.ParseWeekdaySet(weekdays.String)
	if err != nil {
		return nil, fmt.Errorf("reservation %d: stored weekdays: %w", r.ID, err)
	}
	r.Weekdays = set
	if cancelledAt.Valid {
		t := cancelledAt.Time
		r.CancelledAt = &t
	}
	return &r, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Create inserts r and reloads it so generated ids and timestamps are set.
func (r *ReservationRepo) Create(ctx context.Context, res *model.Reservation) error {
	const q = `INSERT INTO reservations
		(customer_name, phone, kind, time_slot, start_date, end_date, weekdays, quoted_price,
		 occurrence_count, created_by, last_modified_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, q,
		res.CustomerName, res.Phone, string(res.Kind), res.TimeSlot,
		model.FormatDate(res.StartDate), model.FormatDate(res.EndDate),
		nullString(res.Weekdays.String()), res.QuotedPrice, res.OccurrenceCount,
		res.CreatedBy, res.LastModifiedBy)
	if err != nil {
		return mapDriverError(err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return err
	}
	stored, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*res = *stored
	return nil
}

// Update rewrites the mutable columns of an existing reservation.
func (r *ReservationRepo) Update(ctx context.Context, res *model.Reservation) error {
	const q = `UPDATE reservations SET
		customer_name = ?, phone = ?, kind = ?, time_slot = ?, start_date = ?, end_date = ?,
		weekdays = ?, quoted_price = ?, occurrence_count = ?, last_modified_by = ?
		WHERE id = ?`
	_, err := r.db.ExecContext(ctx, q,
		res.CustomerName, res.Phone, string(res.Kind), res.TimeSlot,
		model.FormatDate(res.StartDate), model.FormatDate(res.EndDate),
		nullString(res.Weekdays.String()), res.QuotedPrice, res.OccurrenceCount,
		res.LastModifiedBy, res.ID)
	if err != nil {
		return mapDriverError(err)
	}
	stored, err := r.GetByID(ctx, res.ID)
	if err != nil {
		return err
	}
	*res = *stored
	return nil
}

func (r *ReservationRepo) GetByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	return r.getOne(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ?`, id)
}

func (r *ReservationRepo) LockByID(ctx context.Context, id uint64) (*model.Reservation, error) {
	return r.getOne(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = ? FOR UPDATE`, id)
}

func (r *ReservationRepo) getOne(ctx context.Context, q string, id uint64) (*model.Reservation, error) {
	res, err := scanReservation(r.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return res, err
}

func (r *ReservationRepo) ListActive(ctx context.Context, timeSlot string, from, to time.Time) ([]model.Reservation, error) {
	q := `SELECT ` + reservationColumns + ` FROM reservations
		WHERE is_cancelled = 0 AND start_date <= ? AND end_date >= ?`
	args := []any{model.FormatDate(to), model.FormatDate(from)}
	if timeSlot != "" {
		q += ` AND time_slot = ?`
		args = append(args, timeSlot)
	}
	q += ` ORDER BY start_date, id`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}

// Cancel soft-deletes a reservation. The single-slot unique key ignores
// cancelled rows, so the slot becomes bookable again.
func (r *ReservationRepo) Cancel(ctx context.Context, id uint64, at time.Time, actor uint64) error {
	const q = `UPDATE reservations SET is_cancelled = 1, cancelled_at = ?, last_modified_by = ? WHERE id = ?`
	res, err := r.db.ExecContext(ctx, q, at.UTC(), actor, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func (r *ReservationRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reservations WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}

func expectAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
