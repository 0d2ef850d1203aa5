package ledger

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/arena-booking/internal/apperr"
	"github.com/iliyamo/arena-booking/internal/repository"
)

// These tests run the service against MySQLStore with an ordered sqlmock, so
// any read of transactions or ledger_summaries issued before the reservation
// row lock fails the expectation sequence.

const (
	lockReservationSQL = "FROM reservations WHERE id = ? FOR UPDATE"
	ownerSQL           = "SELECT reservation_id FROM transactions WHERE id = ?"
	transactionSQL     = "updated_at FROM transactions WHERE id = ?"
	listSQL            = "FROM transactions WHERE reservation_id = ? ORDER BY id"
	summarySQL         = "FROM ledger_summaries WHERE reservation_id = ?"
)

var (
	reservationCols = []string{"id", "customer_name", "phone", "kind", "time_slot", "start_date", "end_date",
		"weekdays", "quoted_price", "occurrence_count", "is_cancelled", "cancelled_at", "created_by",
		"last_modified_by", "created_at", "updated_at"}
	transactionCols = []string{"id", "reservation_id", "transaction_type", "payment_method", "amount",
		"created_by", "updated_by", "created_at", "updated_at"}
	summaryCols = []string{"reservation_id", "total_price", "total_paid", "discount", "other_adjustments",
		"leftover", "cash_paid", "wallet_a_paid", "wallet_b_paid", "card_paid", "bank_transfer_paid",
		"booking_paid", "slot_paid", "breakdown", "status", "first_payment_date", "transaction_count", "updated_at"}
)

var stamp = time.Date(2025, 3, 5, 10, 0, 0, 0, time.UTC)

func newOrderedStore(t *testing.T) (*Service, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })
	svc := NewService(repository.NewMySQLStore(db), nil, nil, nil)
	svc.clock = func() time.Time { return stamp }
	return svc, mock
}

func reservationRow(id uint64) *sqlmock.Rows {
	day := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	return sqlmock.NewRows(reservationCols).AddRow(id, "Rahim", "+8801712345678", "SINGLE",
		"9:30 AM - 11:00 AM", day, day, nil, "1500.00", 1, false, nil, 7, 7, stamp, stamp)
}

func transactionRow(id, reservationID uint64, amount string) *sqlmock.Rows {
	return sqlmock.NewRows(transactionCols).AddRow(id, reservationID, "SLOT_PAYMENT", "CASH", amount, 7, nil, stamp, stamp)
}

func expectLock(mock sqlmock.Sqlmock, reservationID uint64) {
	mock.ExpectQuery(regexp.QuoteMeta(lockReservationSQL)).WithArgs(reservationID).
		WillReturnRows(reservationRow(reservationID))
}

func expectNoSummary(mock sqlmock.Sqlmock, reservationID uint64) {
	mock.ExpectQuery(regexp.QuoteMeta(summarySQL)).WithArgs(reservationID).
		WillReturnRows(sqlmock.NewRows(summaryCols))
}

func TestRecordPaymentLocksBeforeReading(t *testing.T) {
	svc, mock := newOrderedStore(t)
	mock.ExpectBegin()
	expectLock(mock, 11)
	expectNoSummary(mock, 11)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO transactions")).
		WillReturnResult(sqlmock.NewResult(40, 1))
	mock.ExpectQuery(regexp.QuoteMeta(transactionSQL)).WithArgs(40).
		WillReturnRows(transactionRow(40, 11, "500.00"))
	mock.ExpectQuery(regexp.QuoteMeta(listSQL)).WithArgs(11).
		WillReturnRows(transactionRow(40, 11, "500.00"))
	expectNoSummary(mock, 11)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ledger_summaries")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	sum, err := svc.RecordPayment(context.Background(), 11,
		PaymentInput{Type: "SLOT_PAYMENT", Method: "CASH", Amount: decimal.NewFromInt(500)}, 7)
	if err != nil {
		t.Fatal(err)
	}
	if !sum.Leftover.Equal(decimal.NewFromInt(1000)) {
		t.Errorf("leftover = %s, want 1000", sum.Leftover)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestEditPaymentLocksBeforeReading(t *testing.T) {
	svc, mock := newOrderedStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(ownerSQL)).WithArgs(31).
		WillReturnRows(sqlmock.NewRows([]string{"reservation_id"}).AddRow(11))
	expectLock(mock, 11)
	mock.ExpectQuery(regexp.QuoteMeta(transactionSQL)).WithArgs(31).
		WillReturnRows(transactionRow(31, 11, "500.00"))
	expectNoSummary(mock, 11)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE transactions SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(transactionSQL)).WithArgs(31).
		WillReturnRows(transactionRow(31, 11, "700.00"))
	mock.ExpectQuery(regexp.QuoteMeta(listSQL)).WithArgs(11).
		WillReturnRows(transactionRow(31, 11, "700.00"))
	expectNoSummary(mock, 11)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO ledger_summaries")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	amount := decimal.NewFromInt(700)
	sum, err := svc.EditPayment(context.Background(), 31, PaymentPatch{Amount: &amount}, 8)
	if err != nil {
		t.Fatal(err)
	}
	if !sum.TotalPaid.Equal(amount) {
		t.Errorf("total paid = %s, want 700", sum.TotalPaid)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestDeletePaymentLocksBeforeReading(t *testing.T) {
	svc, mock := newOrderedStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(ownerSQL)).WithArgs(31).
		WillReturnRows(sqlmock.NewRows([]string{"reservation_id"}).AddRow(11))
	expectLock(mock, 11)
	mock.ExpectQuery(regexp.QuoteMeta(transactionSQL)).WithArgs(31).
		WillReturnRows(transactionRow(31, 11, "500.00"))
	expectNoSummary(mock, 11)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM transactions WHERE id = ?")).WithArgs(31).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(listSQL)).WithArgs(11).
		WillReturnRows(sqlmock.NewRows(transactionCols))
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM ledger_summaries WHERE reservation_id = ?")).WithArgs(11).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	sum, err := svc.DeletePayment(context.Background(), 31, 8)
	if err != nil {
		t.Fatal(err)
	}
	if sum != nil {
		t.Errorf("summary = %+v, want nil after last delete", sum)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

// A transaction deleted by a concurrent request between the owner lookup
// and the update surfaces as not found, not as a server error.
func TestEditPaymentOfConcurrentlyDeletedTransaction(t *testing.T) {
	svc, mock := newOrderedStore(t)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(ownerSQL)).WithArgs(31).
		WillReturnRows(sqlmock.NewRows([]string{"reservation_id"}).AddRow(11))
	expectLock(mock, 11)
	mock.ExpectQuery(regexp.QuoteMeta(transactionSQL)).WithArgs(31).
		WillReturnRows(transactionRow(31, 11, "500.00"))
	expectNoSummary(mock, 11)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE transactions SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	amount := decimal.NewFromInt(700)
	_, err := svc.EditPayment(context.Background(), 31, PaymentPatch{Amount: &amount}, 8)
	var nf *apperr.NotFoundError
	if !errors.As(err, &nf) || nf.Resource != "transaction" {
		t.Fatalf("err = %v, want transaction NotFoundError", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}
