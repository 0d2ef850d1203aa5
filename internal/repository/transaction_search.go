package repository

import (
	"context"
	"strings"
	"time"

	"github.com/iliyamo/arena-booking/internal/model"
)

// ListInWindow returns transactions created between f.Start and f.End
// (both inclusive calendar days) joined with their reservation.
func (r *TransactionRepo) ListInWindow(ctx context.Context, f model.TransactionFilter) ([]model.TransactionRow, error) {
	where := []string{"t.created_at >= ?", "t.created_at < ?"}
	args := []any{model.DateOf(f.Start), model.DateOf(f.End).Add(24 * time.Hour)}

	if f.Type != "" {
		where = append(where, "t.transaction_type = ?")
		args = append(args, string(f.Type))
	}
	if f.Method != "" {
		where = append(where, "t.payment_method = ?")
		args = append(args, string(f.Method))
	}
	if f.ReservationID != 0 {
		where = append(where, "t.reservation_id = ?")
		args = append(args, f.ReservationID)
	}
	if f.CreatedBy != 0 {
		where = append(where, "t.created_by = ?")
		args = append(args, f.CreatedBy)
	}

	q := `SELECT
			t.id, t.reservation_id, t.transaction_type, t.payment_method, t.amount,
			t.created_by, t.updated_by, t.created_at, t.updated_at,
			r.customer_name, r.time_slot, r.start_date
		FROM transactions t
		JOIN reservations r ON r.id = t.reservation_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY t.created_at, t.id`

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.TransactionRow
	for rows.Next() {
		var (
			row       model.TransactionRow
			startDate time.Time
		)
		t, err := scanTransaction(rows, &row.CustomerName, &row.TimeSlot, &startDate)
		if err != nil {
			return nil, err
		}
		row.Transaction = *t
		row.BookingDate = model.FormatDate(startDate)
		out = append(out, row)
	}
	return out, rows.Err()
}
