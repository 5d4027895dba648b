package services

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"school_transport_echo/internal/ledger"
	"school_transport_echo/internal/models"
)

const exportSheet = "Transport Payments"

var exportHeaders = []string{"Year", "Term", "Student", "Route", "Date", "Method", "Amount", "Route Fee", "Route Paid", "Balance", "Status"}

// WritePaymentsXLSX renders a grouped summary as a spreadsheet, one row per
// payment followed by a total row per student.
func WritePaymentsXLSX(w io.Writer, summary []ledger.YearGroup) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return err
	}

	for i, header := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(exportSheet, cell, header)
	}

	row := 2
	for _, yg := range summary {
		for _, tg := range yg.Terms {
			for _, sg := range tg.Students {
				student := sg.StudentName
				if student == "" {
					student = sg.StudentID
				}
				for _, r := range sg.Rows {
					route := r.RouteName
					if route == "" {
						route = r.Payment.RouteID
					}
					amount, _ := r.Payment.Amount.Float64()
					fee, _ := r.RouteFee.Float64()
					paid, _ := r.RoutePaid.Float64()
					balance, _ := r.Balance.Float64()
					setRow(f, row, yg.Year, string(tg.Term), student, route,
						r.Payment.CreatedAt.Format(models.AttendanceDateLayout), string(r.Payment.Method),
						amount, fee, paid, balance, string(r.Status))
					row++
				}
				total, _ := sg.TotalBalance.Float64()
				setRow(f, row, yg.Year, string(tg.Term), student, "Total", "", "", "", "", "", total, "")
				row++
			}
		}
	}

	return f.Write(w)
}

func setRow(f *excelize.File, row int, values ...interface{}) {
	for i, v := range values {
		if s, ok := v.(string); ok && s == "" {
			continue
		}
		f.SetCellValue(exportSheet, fmt.Sprintf("%s%d", columnName(i+1), row), v)
	}
}

func columnName(col int) string {
	name, _ := excelize.ColumnNumberToName(col)
	return name
}
