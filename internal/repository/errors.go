// Package repository defines the persistence contracts used by the booking,
// ledger and pricing services together with their MySQL implementation.
// Sentinel errors below let services tell "missing" apart from storage
// failures without inspecting driver errors.
package repository

import (
	"errors"

	"github.com/go-sql-driver/mysql"
)

// ErrNotFound is returned when a lookup by id matches no row.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert or update violates a unique key,
// such as two active SINGLE reservations on the same date and slot.
var ErrDuplicate = errors.New("duplicate")

// mapDriverError converts MySQL duplicate-key failures to ErrDuplicate.
func mapDriverError(err error) error {
	var me *mysql.MySQLError
	if errors.As(err, &me) && me.Number == 1062 {
		return ErrDuplicate
	}
	return err
}
