package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/sportcenterhq/client-go/internal/models"
)

// Receipt bundles everything a payment receipt shows.
type Receipt struct {
	Payment    models.PaymentRecord
	Enrollment models.Enrollment
	Class      *models.ClassOffering
	Member     models.Identity
}

// ReceiptRenderer renders payment receipts as PDF documents.
type ReceiptRenderer struct{}

// NewReceiptRenderer constructs a receipt renderer.
func NewReceiptRenderer() *ReceiptRenderer {
	return &ReceiptRenderer{}
}

// Render produces a single-page receipt PDF.
func (r *ReceiptRenderer) Render(receipt Receipt) ([]byte, error) {
	if receipt.Payment.TransactionID == "" {
		return nil, fmt.Errorf("receipt requires a recorded payment")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "PAYMENT RECEIPT", "", 1, "C", false, 0, "")
	pdf.Ln(6)

	className := fmt.Sprintf("class #%d", receipt.Enrollment.ClassID)
	if receipt.Class != nil {
		className = receipt.Class.Name
	}

	rows := [][2]string{
		{"Transaction", receipt.Payment.TransactionID},
		{"Date", receipt.Payment.PaidAt.Format(time.RFC1123)},
		{"Member", fmt.Sprintf("%s (%s)", receipt.Member.FullName, receipt.Member.Username)},
		{"Class", className},
		{"Enrollment", fmt.Sprintf("#%d (%s)", receipt.Enrollment.ID, receipt.Enrollment.Status)},
		{"Method", string(receipt.Payment.Method)},
		{"Amount", fmt.Sprintf("%d VND", receipt.Payment.Amount)},
		{"Status", string(receipt.Payment.Status)},
	}

	pdf.SetFont("Arial", "", 11)
	for _, row := range rows {
		pdf.SetFont("Arial", "B", 11)
		pdf.CellFormat(45, 8, row[0], "1", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 11)
		pdf.CellFormat(135, 8, row[1], "1", 1, "", false, 0, "")
	}

	pdf.Ln(8)
	pdf.SetFont("Arial", "I", 9)
	pdf.CellFormat(0, 6, "Keep this receipt as proof of payment.", "", 1, "C", false, 0, "")

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return buf.Bytes(), nil
}
