package booking

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/iliyamo/arena-booking/internal/model"
	"github.com/iliyamo/arena-booking/internal/repository"
)

var reservationCols = []string{"id", "customer_name", "phone", "kind", "time_slot", "start_date", "end_date",
	"weekdays", "quoted_price", "occurrence_count", "is_cancelled", "cancelled_at", "created_by",
	"last_modified_by", "created_at", "updated_at"}

const activeSQL = "WHERE is_cancelled = 0 AND start_date <= ? AND end_date >= ?"

func newOrderedService(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	svc := NewService(repository.NewMySQLStore(db), nil, nil, nil,
		model.NewSlotCatalog(model.DefaultTimeSlots), Options{PhoneRegion: "BD", MaxQueryMonths: 3}, nil)
	svc.clock = func() time.Time { return time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC) }
	return svc, mock
}

func storedRow(id uint64, slot, date string) *sqlmock.Rows {
	d := day(date)
	now := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(reservationCols).AddRow(id, "Rahim", "+8801712345678", "SINGLE",
		slot, d, d, nil, nil, 1, false, nil, 7, 7, now, now)
}

func TestCheckAndReserveLocksSlotBeforeConflictRead(t *testing.T) {
	svc, mock := newOrderedService(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO slot_locks")).WithArgs(morning).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(activeSQL)).
		WillReturnRows(sqlmock.NewRows(reservationCols))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reservations")).
		WillReturnResult(sqlmock.NewResult(5, 1))
	mock.ExpectQuery(regexp.QuoteMeta("FROM reservations WHERE id = ?")).WithArgs(5).
		WillReturnRows(storedRow(5, morning, "2025-03-10"))
	mock.ExpectCommit()

	res, err := svc.CheckAndReserve(context.Background(), singleReq("2025-03-10", morning), 7)
	if err != nil {
		t.Fatal(err)
	}
	if res.ID != 5 || res.TimeSlot != morning {
		t.Errorf("reservation = %+v", res)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCheckAndReserveConflictUnderSlotLock(t *testing.T) {
	svc, mock := newOrderedService(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO slot_locks")).WithArgs(morning).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(activeSQL)).
		WillReturnRows(storedRow(3, morning, "2025-03-10"))
	mock.ExpectRollback()

	_, err := svc.CheckAndReserve(context.Background(), singleReq("2025-03-10", morning), 7)
	var ce *ConflictError
	if !errors.As(err, &ce) || len(ce.Conflicts) != 1 || ce.Conflicts[0].ID != 3 {
		t.Fatalf("err = %v, want conflict with reservation 3", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
