package ledger

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/phpdave11/gofpdf"
	"github.com/xuri/excelize/v2"

	"github.com/iliyamo/arena-booking/internal/apperr"
	"github.com/iliyamo/arena-booking/internal/model"
	"github.com/iliyamo/arena-booking/internal/repository"
)

// ReceiptPDF renders the reservation, its transactions and its summary as a
// one-page A4 receipt.
func (s *Service) ReceiptPDF(ctx context.Context, reservationID uint64) ([]byte, error) {
	var (
		res  *model.Reservation
		txns []model.Transaction
	)
	err := s.store.ReadOnly(ctx, func(uow repository.UnitOfWork) error {
		var err error
		res, err = uow.Reservations().GetByID(ctx, reservationID)
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound("reservation", reservationID)
		}
		if err != nil {
			return err
		}
		txns, err = uow.Transactions().ListByReservation(ctx, reservationID)
		return err
	})
	if err != nil {
		return nil, err
	}
	sum, err := s.GetLedgerSummary(ctx, reservationID)
	if err != nil {
		return nil, err
	}
	return buildReceiptPDF(res, txns, sum, s.clock().Format("2006-01-02 15:04"))
}

func buildReceiptPDF(res *model.Reservation, txns []model.Transaction, sum *model.LedgerSummary, printedAt string) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Receipt", false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "PAYMENT RECEIPT")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Reservation : #%d (%s)", res.ID, res.State()),
		"Customer    : " + res.CustomerName,
		"Phone       : " + res.Phone,
		"Time slot   : " + res.TimeSlot,
	}
	if res.Kind == model.KindSingle {
		lines = append(lines, "Date        : "+model.FormatDate(res.StartDate))
	} else {
		dates := model.FormatDate(res.StartDate) + " to " + model.FormatDate(res.EndDate)
		if !res.Weekdays.IsEmpty() {
			dates += " (" + res.Weekdays.String() + ")"
		}
		lines = append(lines, "Dates       : "+dates, fmt.Sprintf("Sessions    : %d", res.OccurrenceCount))
	}
	lines = append(lines, "Printed     : "+printedAt)
	for _, l := range lines {
		pdf.Cell(0, 7, l)
		pdf.Ln(7)
	}
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "B", 11)
	widths := []float64{15, 40, 45, 40, 40}
	for i, h := range []string{"#", "Date", "Type", "Method", "Amount"} {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "L", false, 0, "")
	}
	pdf.Ln(-1)
	pdf.SetFont("Helvetica", "", 10)
	for _, t := range txns {
		method := string(t.Method)
		if method == "" {
			method = "-"
		}
		row := []string{fmt.Sprint(t.ID), t.CreatedAt.Format("2006-01-02 15:04"), string(t.Type), method, t.Amount.StringFixed(2)}
		for i, v := range row {
			align := "L"
			if i == len(row)-1 {
				align = "R"
			}
			pdf.CellFormat(widths[i], 6, v, "1", 0, align, false, 0, "")
		}
		pdf.Ln(-1)
	}
	pdf.Ln(6)

	pdf.SetFont("Helvetica", "", 12)
	for _, l := range []string{
		"Total price : " + sum.TotalPrice.StringFixed(2),
		"Paid        : " + sum.TotalPaid.StringFixed(2),
		"Discount    : " + sum.Discount.StringFixed(2),
		"Adjustments : " + sum.OtherAdjustments.StringFixed(2),
	} {
		pdf.Cell(0, 7, l)
		pdf.Ln(7)
	}
	pdf.SetFont("Helvetica", "B", 12)
	pdf.Cell(0, 8, fmt.Sprintf("Leftover: %s  (%s)", sum.Leftover.StringFixed(2), sum.Status))
	pdf.Ln(10)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return buf.Bytes(), nil
}

const (
	transactionsSheet = "Transactions"
	dailySheet        = "Daily totals"
)

// ExportWindowXLSX writes the window report as a workbook with one sheet of
// transactions and one of daily payment totals per method.
func (s *Service) ExportWindowXLSX(ctx context.Context, f model.TransactionFilter) ([]byte, error) {
	rep, err := s.ListTransactionsInWindow(ctx, f)
	if err != nil {
		return nil, err
	}
	return buildWorkbook(rep)
}

func buildWorkbook(rep *Report) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", transactionsSheet); err != nil {
		return nil, err
	}
	header := []any{"Created at", "Transaction", "Reservation", "Customer", "Time slot", "Booking date", "Type", "Method", "Amount"}
	if err := setRow(f, transactionsSheet, 1, header); err != nil {
		return nil, err
	}
	for i, r := range rep.Transactions {
		row := []any{r.CreatedAt.Format("2006-01-02 15:04:05"), r.ID, r.ReservationID, r.CustomerName,
			r.TimeSlot, r.BookingDate, string(r.Type), string(r.Method), r.Amount.InexactFloat64()}
		if err := setRow(f, transactionsSheet, i+2, row); err != nil {
			return nil, err
		}
	}

	if _, err := f.NewSheet(dailySheet); err != nil {
		return nil, err
	}
	header = []any{"Date"}
	for _, m := range model.PaymentMethods {
		header = append(header, string(m))
	}
	header = append(header, "Total")
	if err := setRow(f, dailySheet, 1, header); err != nil {
		return nil, err
	}
	for i, d := range rep.DailyTotalsByMethod {
		row := []any{d.Date}
		for _, m := range model.PaymentMethods {
			row = append(row, d.ByMethod.Get(m).InexactFloat64())
		}
		row = append(row, d.Total.InexactFloat64())
		if err := setRow(f, dailySheet, i+2, row); err != nil {
			return nil, err
		}
	}
	last := len(rep.DailyTotalsByMethod) + 2
	row := []any{"Period"}
	for _, m := range model.PaymentMethods {
		row = append(row, rep.PeriodTotals.ByMethod.Get(m).InexactFloat64())
	}
	row = append(row, rep.PeriodTotals.Payments.InexactFloat64())
	if err := setRow(f, dailySheet, last, row); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func setRow(f *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(sheet, cell, &values)
}
