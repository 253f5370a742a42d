package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/kintai-hub/attendance-report-api/internal/models"
)

// PDFExporter renders a normalized attendance report into a PDF document.
type PDFExporter struct{}

// NewPDFExporter constructs a PDF exporter.
func NewPDFExporter() *PDFExporter {
	return &PDFExporter{}
}

// Render produces the monthly attendance report: an info block, the daily
// detail table and the period summary.
func (e *PDFExporter) Render(report *models.NormalizedReport) ([]byte, error) {
	if report == nil {
		return nil, fmt.Errorf("report is nil")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.CellFormat(0, 10, "Monthly Attendance Report", "", 1, "C", false, 0, "")
	pdf.Ln(5)

	e.renderInfo(pdf, report)
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 7, "Daily Detail", "", 1, "L", false, 0, "")
	pdf.Ln(2)
	e.renderDetail(pdf, report.Rows)
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 11)
	pdf.CellFormat(0, 7, "Period Summary", "", 1, "L", false, 0, "")
	pdf.Ln(2)
	e.renderSummary(pdf, report.Summary)

	buf := &bytes.Buffer{}
	if err := pdf.Output(buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func (e *PDFExporter) renderInfo(pdf *gofpdf.Fpdf, report *models.NormalizedReport) {
	rows := [][2]string{
		{"Employee", report.Employee.EmployeeName},
		{"Employee Code", report.Employee.EmployeeCode},
		{"Period", fmt.Sprintf("%s - %s", report.Period.From, report.Period.To)},
		{"Generated At", time.Now().UTC().Format("2006-01-02 15:04:05")},
	}
	pdf.SetFont("Arial", "", 10)
	for _, row := range rows {
		pdf.SetFillColor(230, 230, 230)
		pdf.CellFormat(45, 8, row[0], "1", 0, "L", true, 0, "")
		pdf.CellFormat(90, 8, row[1], "1", 1, "L", false, 0, "")
	}
}

func (e *PDFExporter) renderDetail(pdf *gofpdf.Fpdf, rows []models.ReportRow) {
	headers := []string{"Date", "In", "Out", "Late", "Early", "Overtime", "Night", "Attendance", "Status"}
	widths := []float64{24, 16, 16, 14, 14, 16, 14, 34, 32}

	pdf.SetFont("Arial", "B", 8)
	pdf.SetFillColor(120, 120, 120)
	pdf.SetTextColor(255, 255, 255)
	for i, header := range headers {
		pdf.CellFormat(widths[i], 7, header, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 8)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFillColor(245, 245, 235)
	for n, row := range rows {
		values := []string{
			row.Date, row.ClockIn, row.ClockOut,
			row.Late, row.EarlyLeave, row.Overtime, row.NightShift,
			row.Status, row.Submission,
		}
		fill := n%2 == 1
		for i, value := range values {
			pdf.CellFormat(widths[i], 6, value, "1", 0, "C", fill, 0, "")
		}
		pdf.Ln(-1)
	}
}

func (e *PDFExporter) renderSummary(pdf *gofpdf.Fpdf, summary models.ReportSummary) {
	rows := [][2]string{
		{"Total Working", summary.TotalWorking},
		{"Total Overtime", summary.TotalOvertime},
		{"Total Night Shift", summary.TotalNightShift},
		{"Late", fmt.Sprintf("%d day(s) / %s", summary.LateDays, summary.TotalLate)},
		{"Early Leave", fmt.Sprintf("%d day(s) / %s", summary.EarlyLeaveDays, summary.TotalEarlyLeave)},
		{"Paid Leave Days", fmt.Sprintf("%d", summary.PaidLeaveDays)},
		{"Absent Days", fmt.Sprintf("%d", summary.AbsentDays)},
	}
	pdf.SetFont("Arial", "", 10)
	for _, row := range rows {
		pdf.SetFillColor(230, 230, 230)
		pdf.CellFormat(55, 8, row[0], "1", 0, "L", true, 0, "")
		pdf.CellFormat(55, 8, row[1], "1", 1, "L", false, 0, "")
	}
}
