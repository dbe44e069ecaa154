package export

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/flaboy/aira-donate/pkg/models"
	"github.com/xuri/excelize/v2"
)

const SheetName = "Donations"

// Columns of the donations sheet, in order.
var Columns = []string{
	"Donation ID", "Created At", "Donor Name", "Email", "Phone", "PAN",
	"Amount", "Currency", "Payment Type", "Status", "Failure Reason",
	"Payment ID", "Order ID", "Subscription ID", "Plan ID", "Receive Updates", "Completed At",
}

// DonationSource walks every stored donation.
type DonationSource interface {
	Each(ctx context.Context, fn func(*models.Donation) error) error
}

// PublicID renders the opaque id shown to donors and staff.
type PublicID func(id uint) string

// WriteDonationsXLSX streams all donations into a single-sheet workbook.
func WriteDonationsXLSX(ctx context.Context, src DonationSource, publicID PublicID, w io.Writer) (int, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return 0, err
	}
	sw, err := f.NewStreamWriter(SheetName)
	if err != nil {
		return 0, err
	}

	header := make([]interface{}, len(Columns))
	for i, c := range Columns {
		header[i] = c
	}
	if err := sw.SetRow("A1", header); err != nil {
		return 0, err
	}

	row := 1
	err = src.Each(ctx, func(d *models.Donation) error {
		row++
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			return err
		}
		return sw.SetRow(cell, donationRow(d, publicID))
	})
	if err != nil {
		return 0, fmt.Errorf("failed to read donations: %w", err)
	}

	if err := sw.Flush(); err != nil {
		return 0, err
	}
	if _, err := f.WriteTo(w); err != nil {
		return 0, err
	}
	slog.Info("[Export] Wrote donations workbook", "rows", row-1)
	return row - 1, nil
}

func donationRow(d *models.Donation, publicID PublicID) []interface{} {
	amount, _ := d.Amount.Float64()
	completed := ""
	if d.CompletedAt != nil {
		completed = d.CompletedAt.Format("2006-01-02 15:04:05")
	}
	receive := "no"
	if d.ReceiveUpdates {
		receive = "yes"
	}
	return []interface{}{
		publicID(d.ID),
		d.CreatedAt.Format("2006-01-02 15:04:05"),
		d.DonorName,
		d.DonorEmail,
		d.DonorPhone,
		d.PanCard,
		amount,
		d.Currency,
		string(d.PaymentType),
		string(d.Status),
		d.FailureReason,
		d.PaymentIDValue(),
		d.OrderID,
		d.SubscriptionID,
		d.PlanID,
		receive,
		completed,
	}
}
