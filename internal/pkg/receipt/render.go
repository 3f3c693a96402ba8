package receipt

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/divan/num2words"
	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

// Data is everything printed on a receipt
type Data struct {
	SocietyName   string
	ReceiptNumber string
	FlatNumber    string
	OwnerName     string
	Month         int
	Year          int
	Amount        decimal.Decimal
	Mode          string
	TransactionID string
	PaidAt        time.Time
}

// Render draws the receipt as an A4 PDF.
func Render(d Data) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Payment Receipt "+d.ReceiptNumber, true)
	pdf.SetCreator(d.SocietyName, true)
	pdf.SetCreationDate(d.PaidAt)
	pdf.SetModificationDate(d.PaidAt)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pageW, _ := pdf.GetPageSize()
	left, _, right, _ := pdf.GetMargins()
	contentW := pageW - left - right

	pdf.SetFont("Helvetica", "B", 22)
	pdf.CellFormat(contentW, 12, "PAYMENT RECEIPT", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 10, tr(d.SocietyName), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(contentW/2, 6, "Receipt No: "+d.ReceiptNumber, "", 0, "L", false, 0, "")
	pdf.CellFormat(contentW/2, 6, "Date: "+d.PaidAt.Format("02/01/2006"), "", 1, "R", false, 0, "")
	y := pdf.GetY() + 2
	pdf.SetLineWidth(0.5)
	pdf.Line(left, y, pageW-right, y)
	pdf.Ln(8)

	rows := [][2]string{
		{"Flat Number:", d.FlatNumber},
		{"Owner Name:", d.OwnerName},
		{"Period:", monthName(d.Month) + " " + fmt.Sprint(d.Year)},
		{"Amount Paid:", "Rs. " + d.Amount.StringFixed(2)},
		{"In Words:", AmountInWords(d.Amount)},
		{"Payment Mode:", d.Mode},
		{"Transaction ID:", d.TransactionID},
		{"Payment Date:", d.PaidAt.Format("02/01/2006 3:04:05 pm")},
	}
	for _, row := range rows {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(55, 10, row[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 12)
		pdf.MultiCell(contentW-55, 10, tr(row[1]), "", "L", false)
	}

	pdf.Ln(5)
	y = pdf.GetY()
	pdf.Line(left, y, pageW-right, y)
	pdf.Ln(10)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.CellFormat(contentW, 6, "This is a computer-generated receipt and does not require a signature.", "", 1, "C", false, 0, "")
	pdf.Ln(4)
	pdf.CellFormat(contentW, 6, "Thank you for your payment!", "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render receipt %s: %w", d.ReceiptNumber, err)
	}
	return buf.Bytes(), nil
}

// AmountInWords spells out whole rupees and prints paise as digits.
func AmountInWords(amount decimal.Decimal) string {
	rupees := amount.IntPart()
	paise := amount.Sub(decimal.NewFromInt(rupees)).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	words := num2words.Convert(int(rupees))
	if paise == 0 {
		return fmt.Sprintf("%s rupees only", words)
	}
	return fmt.Sprintf("%s rupees and %02d paise only", words, paise)
}

func monthName(month int) string {
	if month < 1 || month > 12 {
		return "N/A"
	}
	return time.Month(month).String()
}

// Filename is the attachment name used in emails and downloads
func Filename(d Data) string {
	flat := strings.ReplaceAll(d.FlatNumber, " ", "_")
	return fmt.Sprintf("receipt-%s-%s-%d.pdf", flat, monthName(d.Month), d.Year)
}
