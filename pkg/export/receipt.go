package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
)

// Receipt describes one enrollment payment for PDF rendering.
type Receipt struct {
	ReceiptID   string
	StudentName string
	CourseTitle string
	Instructor  string
	Location    string
	PaidAmount  float64
	EnrolledAt  time.Time
}

// ReceiptRenderer produces enrollment payment receipts as PDF documents.
type ReceiptRenderer struct{}

// NewReceiptRenderer constructs a receipt renderer.
func NewReceiptRenderer() *ReceiptRenderer {
	return &ReceiptRenderer{}
}

// Render creates the PDF bytes for a single receipt.
func (r *ReceiptRenderer) Render(receipt Receipt) ([]byte, error) {
	if receipt.ReceiptID == "" {
		return nil, fmt.Errorf("receipt id required")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 20, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "ENROLLMENT RECEIPT", "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Arial", "", 9)
	pdf.CellFormat(0, 6, fmt.Sprintf("Receipt %s", receipt.ReceiptID), "", 1, "C", false, 0, "")
	pdf.Ln(8)

	rows := [][2]string{
		{"Student", receipt.StudentName},
		{"Course", receipt.CourseTitle},
		{"Instructor", receipt.Instructor},
		{"Region", receipt.Location},
		{"Amount paid", fmt.Sprintf("%.2f BDT", receipt.PaidAmount)},
		{"Enrolled at", receipt.EnrolledAt.Format("02 Jan 2006 15:04 MST")},
	}

	for _, row := range rows {
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(50, 8, row[0], "1", 0, "", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.CellFormat(130, 8, row[1], "1", 1, "", false, 0, "")
	}

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render receipt pdf: %w", err)
	}
	return buf.Bytes(), nil
}
