package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/iliyamo/arena-booking/internal/model"
)

// PriceRuleRepo persists slot price rules.
type PriceRuleRepo struct {
	db DBTX
}

func NewPriceRuleRepo(db DBTX) *PriceRuleRepo { return &PriceRuleRepo{db: db} }

const priceRuleColumns = `id, time_slot, weekday, price, valid_start, valid_end, is_default, booking_kind,
	created_at, updated_at`

func scanPriceRule(row rowScanner) (*model.PriceRule, error) {
	var (
		p          model.PriceRule
		weekday    string
		start, end sql.NullTime
		kind       sql.NullString
	)
	if err := row.Scan(&p.ID, &p.TimeSlot, &weekday, &p.Price, &start, &end, &p.IsDefault, &kind,
		&p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	wd, err := model.ParseWeekday(weekday)
	if err != nil {
		return nil, err
	}
	p.Weekday = wd
	if start.Valid {
		t := model.DateOf(start.Time)
		p.ValidStart = &t
	}
	if end.Valid {
		t := model.DateOf(end.Time)
		p.ValidEnd = &t
	}
	p.Kind = model.PriceKind(kind.String)
	return &p, nil
}

func nullDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return model.FormatDate(*t)
}

func (r *PriceRuleRepo) query(ctx context.Context, q string, args ...any) ([]model.PriceRule, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.PriceRule
	for rows.Next() {
		p, err := scanPriceRule(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// ListFor returns every rule for the slot and weekday, whatever its kind.
func (r *PriceRuleRepo) ListFor(ctx context.Context, timeSlot string, weekday time.Weekday) ([]model.PriceRule, error) {
	return r.query(ctx, `SELECT `+priceRuleColumns+` FROM price_rules WHERE time_slot = ? AND weekday = ? ORDER BY id`,
		timeSlot, model.WeekdayName(weekday))
}

func (r *PriceRuleRepo) List(ctx context.Context) ([]model.PriceRule, error) {
	return r.query(ctx, `SELECT `+priceRuleColumns+` FROM price_rules ORDER BY time_slot, weekday, id`)
}

func (r *PriceRuleRepo) GetByID(ctx context.Context, id uint64) (*model.PriceRule, error) {
	p, err := scanPriceRule(r.db.QueryRowContext(ctx, `SELECT `+priceRuleColumns+` FROM price_rules WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return p, err
}

func (r *PriceRuleRepo) Create(ctx context.Context, p *model.PriceRule) error {
	const q = `INSERT INTO price_rules (time_slot, weekday, price, valid_start, valid_end, is_default, booking_kind)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, p.TimeSlot, model.WeekdayName(p.Weekday), p.Price,
		nullDate(p.ValidStart), nullDate(p.ValidEnd), p.IsDefault, nullString(string(p.Kind)))
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
	*p = *stored
	return nil
}

func (r *PriceRuleRepo) Update(ctx context.Context, p *model.PriceRule) error {
	const q = `UPDATE price_rules SET time_slot = ?, weekday = ?, price = ?, valid_start = ?, valid_end = ?,
		is_default = ?, booking_kind = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, q, p.TimeSlot, model.WeekdayName(p.Weekday), p.Price,
		nullDate(p.ValidStart), nullDate(p.ValidEnd), p.IsDefault, nullString(string(p.Kind)), p.ID); err != nil {
		return err
	}
	stored, err := r.GetByID(ctx, p.ID)
	if err != nil {
		return err
	}
	*p = *stored
	return nil
}

func (r *PriceRuleRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM price_rules WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectAffected(res)
}
