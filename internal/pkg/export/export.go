package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/RiyaTorgal/SocietyPay-backend/app/models"
	"github.com/RiyaTorgal/SocietyPay-backend/app/repository"
	"github.com/RiyaTorgal/SocietyPay-backend/internal/pkg/apperr"
	"github.com/gofiber/fiber/v2/log"
	"github.com/xuri/excelize/v2"
)

const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"

	SheetName = "Payments"
	notApply  = "N/A"
)

var Headers = []string{"Date", "Time", "Name", "Email", "Flat No", "Role", "Month", "Amount", "Paid/Unpaid"}

// Ledger lists payments joined with the flat's current occupant
type Ledger interface {
	ListAll(ctx context.Context, filter repository.PaymentFilter) ([]models.PaymentWithOccupant, error)
}

// Row is one exported payment, already formatted
type Row struct {
	Date   string
	Time   string
	Name   string
	Email  string
	FlatNo string
	Role   string
	Month  string
	Amount string
	Status string
}

func (r Row) cells() []string {
	return []string{r.Date, r.Time, r.Name, r.Email, r.FlatNo, r.Role, r.Month, r.Amount, r.Status}
}

// File is a finished export
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

type Service struct {
	ledger Ledger
	loc    *time.Location
}

func NewService(ledger Ledger, loc *time.Location) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{ledger: ledger, loc: loc}
}

// Payments exports the ledger, optionally narrowed to a month and/or year.
func (s *Service) Payments(ctx context.Context, month, year int, format string) (*File, error) {
	if month < 0 || month > 12 {
		return nil, apperr.InvalidInput("month must be between 1 and 12")
	}
	if year < 0 {
		return nil, apperr.InvalidInput("year is invalid")
	}
	payments, err := s.ledger.ListAll(ctx, repository.PaymentFilter{Month: month, Year: year})
	if err != nil {
		return nil, err
	}
	rows := BuildRows(payments, s.loc)

	var buf bytes.Buffer
	file := &File{Name: Filename(month, year, format)}
	switch format {
	case FormatCSV:
		file.ContentType = "text/csv"
		err = WriteCSV(&buf, rows)
	case FormatXLSX:
		file.ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
		err = WriteXLSX(&buf, rows)
	default:
		return nil, apperr.InvalidInput("unsupported export format %q", format)
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindInternal, err, "failed to export payments")
	}
	log.Infof("[Export] %s with %d payments", file.Name, len(rows))
	file.Data = buf.Bytes()
	return file, nil
}

// BuildRows formats payments. Times are shown in loc; unpaid and vacant cells read N/A.
func BuildRows(payments []models.PaymentWithOccupant, loc *time.Location) []Row {
	rows := make([]Row, 0, len(payments))
	for _, p := range payments {
		row := Row{
			Date:   notApply,
			Time:   notApply,
			Name:   notApply,
			Email:  notApply,
			FlatNo: notApply,
			Role:   notApply,
			Month:  notApply,
			Amount: p.Amount.String(),
			Status: "Unpaid",
		}
		if p.PaidAt != nil {
			t := p.PaidAt.In(loc)
			row.Date = t.Format("02/01/2006")
			row.Time = t.Format("3:04:05 pm")
		}
		if p.Occupant != nil {
			row.Name = p.Occupant.Name
			row.Email = p.Occupant.Email
			row.Role = p.Occupant.Role
		}
		if p.Flat != nil {
			row.FlatNo = p.Flat.FlatNumber
		}
		if p.MaintenanceMonth != nil {
			row.Month = p.MaintenanceMonth.Label()
		}
		if p.IsPaid() {
			row.Status = "Paid"
		}
		rows = append(rows, row)
	}
	return rows
}

// WriteCSV writes the header line and one fully quoted line per row.
// Embedded double quotes are doubled.
func WriteCSV(w io.Writer, rows []Row) error {
	if _, err := io.WriteString(w, strings.Join(Headers, ",")); err != nil {
		return err
	}
	for _, r := range rows {
		cells := r.cells()
		for i, c := range cells {
			cells[i] = `"` + strings.ReplaceAll(c, `"`, `""`) + `"`
		}
		if _, err := io.WriteString(w, "\n"+strings.Join(cells, ",")); err != nil {
			return err
		}
	}
	return nil
}

// WriteXLSX writes the same table into a single sheet.
func WriteXLSX(w io.Writer, rows []Row) error {
	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			log.Warnf("[Export] closing workbook: %v", err)
		}
	}()

	if err := f.SetSheetName("Sheet1", SheetName); err != nil {
		return err
	}
	header := make([]interface{}, len(Headers))
	for i, h := range Headers {
		header[i] = h
	}
	if err := f.SetSheetRow(SheetName, "A1", &header); err != nil {
		return err
	}
	for i, r := range rows {
		cells := r.cells()
		values := make([]interface{}, len(cells))
		for j, c := range cells {
			values[j] = c
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(SheetName, cell, &values); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(SheetName, "A", "I", 18); err != nil {
		return err
	}
	return f.Write(w)
}

// Filename builds payments-<month|all>-<year|all>.<ext>
func Filename(month, year int, ext string) string {
	m, y := "all", "all"
	if month > 0 {
		m = fmt.Sprint(month)
	}
	if year > 0 {
		y = fmt.Sprint(year)
	}
	return fmt.Sprintf("payments-%s-%s.%s", m, y, ext)
}
