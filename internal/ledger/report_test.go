package ledger

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/iliyamo/arena-booking/internal/apperr"
	"github.com/iliyamo/arena-booking/internal/model"
)

func seedPayments(t *testing.T, f *fixture) uint64 {
	t.Helper()
	id := f.reserve(t, priced("2500"))
	ctx := context.Background()
	steps := []struct {
		when string
		in   PaymentInput
	}{
		{"2025-03-01T09:00:00Z", PaymentInput{Type: "BOOKING_PAYMENT", Method: "CASH", Amount: dec("1000")}},
		{"2025-03-01T18:00:00Z", PaymentInput{Type: "SLOT_PAYMENT", Method: "MOBILE_WALLET_B", Amount: dec("500")}},
		{"2025-03-03T23:59:00Z", PaymentInput{Type: "DISCOUNT", Amount: dec("100")}},
		{"2025-03-03T12:00:00Z", PaymentInput{Type: "SLOT_PAYMENT", Method: "CASH", Amount: dec("400")}},
		{"2025-03-04T00:00:00Z", PaymentInput{Type: "SLOT_PAYMENT", Method: "CASH", Amount: dec("100")}},
	}
	for _, s := range steps {
		f.now = at(s.when)
		if _, err := f.svc.RecordPayment(ctx, id, s.in, 7); err != nil {
			t.Fatal(err)
		}
	}
	return id
}

func TestListTransactionsInWindow(t *testing.T) {
	f := newFixture(t, nil)
	seedPayments(t, f)
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)

	rep, err := f.svc.ListTransactionsInWindow(context.Background(), model.TransactionFilter{Start: start, End: end})
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Transactions) != 4 {
		t.Fatalf("transactions = %d, want 4 (end day included, next day excluded)", len(rep.Transactions))
	}
	if rep.Transactions[0].CustomerName != "Rahim" || rep.Transactions[0].BookingDate != "2025-03-10" {
		t.Errorf("row not joined with reservation: %+v", rep.Transactions[0])
	}
	pt := rep.PeriodTotals
	if !pt.Payments.Equal(dec("1900")) || !pt.Discounts.Equal(dec("100")) {
		t.Errorf("payments=%s discounts=%s", pt.Payments, pt.Discounts)
	}
	if !pt.ByMethod.Get(model.MethodCash).Equal(dec("1400")) || !pt.ByMethod.Get(model.MethodWalletB).Equal(dec("500")) {
		t.Errorf("by method = %v", pt.ByMethod)
	}
	if len(rep.DailyTotalsByMethod) != 2 {
		t.Fatalf("daily rows = %+v", rep.DailyTotalsByMethod)
	}
	first, second := rep.DailyTotalsByMethod[0], rep.DailyTotalsByMethod[1]
	if first.Date != "2025-03-01" || !first.Total.Equal(dec("1500")) {
		t.Errorf("first day = %+v", first)
	}
	if second.Date != "2025-03-03" || !second.ByMethod.Get(model.MethodCash).Equal(dec("400")) {
		t.Errorf("second day = %+v", second)
	}
}

func TestListTransactionsInWindowFilters(t *testing.T) {
	f := newFixture(t, nil)
	seedPayments(t, f)
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2025, 3, 31, 0, 0, 0, 0, time.UTC)
	rep, err := f.svc.ListTransactionsInWindow(context.Background(),
		model.TransactionFilter{Start: start, End: end, Method: model.MethodCash, Type: model.TxSlotPayment})
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Transactions) != 2 || !rep.PeriodTotals.SlotPayments.Equal(dec("500")) {
		t.Errorf("filtered rows = %d slot payments = %s", len(rep.Transactions), rep.PeriodTotals.SlotPayments)
	}
}

func TestListTransactionsInWindowValidation(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.svc.ListTransactionsInWindow(context.Background(), model.TransactionFilter{
		Start: time.Date(2025, 3, 5, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
	})
	var ve *apperr.ValidationError
	if !errors.As(err, &ve) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
}

func TestDashboard(t *testing.T) {
	f := newFixture(t, nil)
	seedPayments(t, f)
	f.now = at("2025-02-20T10:00:00Z")
	id := f.reserve(t, priced("1000"))
	if _, err := f.svc.RecordPayment(context.Background(), id, PaymentInput{Type: "SLOT_PAYMENT", Method: "CARD", Amount: dec("1000")}, 7); err != nil {
		t.Fatal(err)
	}

	d, err := f.svc.Dashboard(context.Background(), time.Date(2025, 3, 5, 15, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if d.BookingsThisMonth != 2 || d.UpcomingBookings != 2 {
		t.Errorf("bookings this month=%d upcoming=%d", d.BookingsThisMonth, d.UpcomingBookings)
	}
	if !d.RevenueThisMonth.Equal(dec("2000")) || !d.RevenueLastMonth.Equal(dec("1000")) {
		t.Errorf("revenue this=%s last=%s", d.RevenueThisMonth, d.RevenueLastMonth)
	}
	if !d.RevenueChangePct.Equal(dec("100")) {
		t.Errorf("change = %s", d.RevenueChangePct)
	}
	if !d.AvgBookingsPerDay.Equal(dec("0.4")) {
		t.Errorf("avg per day = %s", d.AvgBookingsPerDay)
	}
}

func TestReceiptPDF(t *testing.T) {
	f := newFixture(t, nil)
	id := seedPayments(t, f)
	out, err := f.svc.ReceiptPDF(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(out, []byte("%PDF")) {
		t.Errorf("output is not a PDF: %q", out[:8])
	}
	if _, err := f.svc.ReceiptPDF(context.Background(), 999); err == nil {
		t.Error("expected an error for an unknown reservation")
	}
}

func TestExportWindowXLSX(t *testing.T) {
	f := newFixture(t, nil)
	seedPayments(t, f)
	out, err := f.svc.ExportWindowXLSX(context.Background(), model.TransactionFilter{
		Start: time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 3, 4, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatal(err)
	}
	wb, err := excelize.OpenReader(bytes.NewReader(out))
	if err != nil {
		t.Fatal(err)
	}
	defer wb.Close()
	rows, err := wb.GetRows(transactionsSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 6 {
		t.Errorf("transaction sheet rows = %d, want header + 5", len(rows))
	}
	daily, err := wb.GetRows(dailySheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(daily) != 5 || daily[4][0] != "Period" {
		t.Errorf("daily sheet = %v", daily)
	}
}
