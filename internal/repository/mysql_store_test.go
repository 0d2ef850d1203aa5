package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-sql-driver/mysql"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/arena-booking/internal/model"
)

func newMock(t *testing.T) (*MySQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	return NewMySQLStore(db), mock
}

func TestWithinTxCommitsOnSuccess(t *testing.T) {
	store, mock := newMock(t)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO slot_locks")).
		WithArgs("7:00 AM - 8:30 AM").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	err := store.WithinTx(context.Background(), func(uow UnitOfWork) error {
		return uow.LockSlot(context.Background(), "7:00 AM - 8:30 AM")
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestWithinTxRollsBackOnError(t *testing.T) {
	store, mock := newMock(t)
	boom := errors.New("lock wait timeout")
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO slot_locks")).WillReturnError(boom)
	mock.ExpectRollback()

	err := store.WithinTx(context.Background(), func(uow UnitOfWork) error {
		return uow.LockSlot(context.Background(), "evening")
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want %v", err, boom)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestReservationCreateMapsDuplicateKey(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO reservations")).
		WillReturnError(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})

	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	res := &model.Reservation{
		CustomerName: "Rahim", Phone: "+8801712345678", Kind: model.KindSingle,
		TimeSlot: "evening", StartDate: day, EndDate: day, OccurrenceCount: 1,
	}
	if err := NewReservationRepo(db).Create(context.Background(), res); !errors.Is(err, ErrDuplicate) {
		t.Fatalf("err = %v, want ErrDuplicate", err)
	}
}

var reservationCols = []string{"id", "customer_name", "phone", "kind", "time_slot", "start_date", "end_date",
	"weekdays", "quoted_price", "occurrence_count", "is_cancelled", "cancelled_at", "created_by",
	"last_modified_by", "created_at", "updated_at"}

func TestReservationListActive(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 1, 31, 0, 0, 0, 0, time.UTC)
	created := time.Date(2024, 12, 20, 9, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows(reservationCols).
		AddRow(7, "Academy FC", "+8801712345678", "RECURRING", "evening", start, end,
			"TUESDAY,THURSDAY", "36000", 9, false, nil, 1, 1, created, created).
		AddRow(8, "Karim", "+8801812345678", "SINGLE", "evening", start, start,
			nil, nil, 1, false, nil, 2, 2, created, created)
	mock.ExpectQuery(regexp.QuoteMeta("FROM reservations")+".*"+regexp.QuoteMeta("AND time_slot = ?")).
		WithArgs("2025-01-31", "2025-01-01", "evening").
		WillReturnRows(rows)

	got, err := NewReservationRepo(db).ListActive(context.Background(), "evening", start, end)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("rows = %d, want 2", len(got))
	}
	academy := got[0]
	if academy.Kind != model.KindRecurring || academy.Weekdays != model.NewWeekdaySet(time.Tuesday, time.Thursday) {
		t.Errorf("recurring row scanned as %+v", academy)
	}
	if !academy.QuotedPrice.Valid || !academy.QuotedPrice.Decimal.Equal(decimal.NewFromInt(36000)) {
		t.Errorf("quoted price = %+v", academy.QuotedPrice)
	}
	if got[1].QuotedPrice.Valid || !got[1].Weekdays.IsEmpty() {
		t.Errorf("single row scanned as %+v", got[1])
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestReservationGetByIDNotFound(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	mock.ExpectQuery(regexp.QuoteMeta("FROM reservations WHERE id = ?")).
		WithArgs(42).
		WillReturnRows(sqlmock.NewRows(reservationCols))

	if _, err := NewReservationRepo(db).GetByID(context.Background(), 42); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListInWindowAppliesFilters(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	from := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC)
	paidAt := time.Date(2025, 3, 3, 14, 5, 0, 0, time.UTC)
	cols := []string{"id", "reservation_id", "transaction_type", "payment_method", "amount",
		"created_by", "updated_by", "created_at", "updated_at", "customer_name", "time_slot", "start_date"}
	mock.ExpectQuery(regexp.QuoteMeta("t.transaction_type = ? AND t.payment_method = ? AND t.created_by = ?")).
		WithArgs(from, to.Add(24*time.Hour), "BOOKING_PAYMENT", "CASH", 3).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(11, 4, "BOOKING_PAYMENT", "CASH", "1500", 3, nil, paidAt, paidAt,
				"Rahim", "evening", from.AddDate(0, 0, 9)))

	got, err := NewTransactionRepo(db).ListInWindow(context.Background(), model.TransactionFilter{
		Start: from, End: to, Type: model.TxBookingPayment, Method: model.MethodCash, CreatedBy: 3,
	})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Fatalf("rows = %d, want 1", len(got))
	}
	row := got[0]
	if row.ID != 11 || row.Method != model.MethodCash || !row.Amount.Equal(decimal.NewFromInt(1500)) {
		t.Errorf("transaction = %+v", row.Transaction)
	}
	if row.CustomerName != "Rahim" || row.BookingDate != "2025-03-10" || row.UpdatedBy != 0 {
		t.Errorf("joined columns = %+v", row)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestTransactionDeleteMissingRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM transactions WHERE id = ?")).
		WithArgs(9).
		WillReturnResult(sqlmock.NewResult(0, 0))

	if err := NewTransactionRepo(db).Delete(context.Background(), 9); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestMapDriverError(t *testing.T) {
	other := &mysql.MySQLError{Number: 1213, Message: "Deadlock found"}
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"duplicate key", &mysql.MySQLError{Number: 1062}, ErrDuplicate},
		{"wrapped duplicate", errors.Join(errors.New("insert"), &mysql.MySQLError{Number: 1062}), ErrDuplicate},
		{"other driver error", other, other},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mapDriverError(tt.in); !errors.Is(got, tt.want) {
				t.Errorf("mapDriverError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestTransactionUpdateOfDeletedRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE transactions SET")).
		WithArgs("SLOT_PAYMENT", "CASH", sqlmock.AnyArg(), 7, 42).
		WillReturnResult(sqlmock.NewResult(0, 0))

	txn := &model.Transaction{ID: 42, Type: model.TxSlotPayment, Method: model.MethodCash,
		Amount: decimal.NewFromInt(500), UpdatedBy: 7}
	if err := NewTransactionRepo(db).Update(context.Background(), txn); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	// no reload after a miss
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestTransactionReservationOf(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	const q = "SELECT reservation_id FROM transactions WHERE id = ?"
	mock.ExpectQuery(regexp.QuoteMeta(q)).WithArgs(uint64(3)).
		WillReturnRows(sqlmock.NewRows([]string{"reservation_id"}).AddRow(11))
	mock.ExpectQuery(regexp.QuoteMeta(q)).WithArgs(uint64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"reservation_id"}))

	repo := NewTransactionRepo(db)
	got, err := repo.ReservationOf(context.Background(), 3)
	if err != nil || got != 11 {
		t.Fatalf("ReservationOf(3) = %d, %v", got, err)
	}
	if _, err := repo.ReservationOf(context.Background(), 4); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
