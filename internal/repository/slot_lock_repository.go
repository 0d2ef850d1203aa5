package repository

import "context"

// SlotLockRepo keeps one row per time slot. Upserting that row takes an
// exclusive row lock which MySQL holds until the surrounding transaction
// ends, so concurrent bookings of the same slot run one after another while
// other slots proceed in parallel. Range overlap of RECURRING bookings cannot
// be expressed as a unique key, which is why this lock exists.
type SlotLockRepo struct {
	db DBTX
}

func NewSlotLockRepo(db DBTX) *SlotLockRepo { return &SlotLockRepo{db: db} }

func (r *SlotLockRepo) Lock(ctx context.Context, timeSlot string) error {
	const q = `INSERT INTO slot_locks (time_slot, locked_at) VALUES (?, UTC_TIMESTAMP())
		ON DUPLICATE KEY UPDATE locked_at = VALUES(locked_at)`
	_, err := r.db.ExecContext(ctx, q, timeSlot)
	return err
}
