package export

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kintai-hub/attendance-report-api/internal/models"
)

func normalizedReport() *models.NormalizedReport {
	return &models.NormalizedReport{
		Employee: models.EmployeeInfo{EmployeeID: "1", EmployeeName: "Taro Yamada", EmployeeCode: "E001"},
		Period:   models.Period{From: "2025-08-01", To: "2025-08-31"},
		Rows: []models.ReportRow{
			{
				Date: "2025-08-01", ClockIn: "09:00:00", ClockOut: "18:00:00",
				Late: "00:00", EarlyLeave: "00:00", Overtime: "00:30", NightShift: "00:00",
				Status: "Present", Submission: "Approved",
			},
			{
				Date: "2025-08-02",
				Late: "00:00", EarlyLeave: "00:00", Overtime: "00:00", NightShift: "00:00",
				Status: "Paid Leave", Submission: "Approved",
			},
		},
		Summary: models.ReportSummary{
			TotalWorking:    "08:00",
			TotalOvertime:   "00:30",
			TotalNightShift: "00:00",
			TotalLate:       "00:00",
			TotalEarlyLeave: "00:00",
			PaidLeaveDays:   1,
		},
	}
}

func TestRenderProducesPDF(t *testing.T) {
	exporter := NewPDFExporter()

	data, err := exporter.Render(normalizedReport())
	require.NoError(t, err)
	require.NotEmpty(t, data)
	require.True(t, len(data) > 4)
	require.Equal(t, "%PDF", string(data[:4]))
}

func TestRenderEmptyPeriod(t *testing.T) {
	exporter := NewPDFExporter()

	report := normalizedReport()
	report.Rows = nil

	data, err := exporter.Render(report)
	require.NoError(t, err)
	require.Equal(t, "%PDF", string(data[:4]))
}

func TestRenderNilReport(t *testing.T) {
	exporter := NewPDFExporter()

	_, err := exporter.Render(nil)
	require.Error(t, err)
}

func TestRenderLongPeriodSpansPages(t *testing.T) {
	exporter := NewPDFExporter()

	report := normalizedReport()
	row := report.Rows[0]
	report.Rows = nil
	for i := 0; i < 120; i++ {
		report.Rows = append(report.Rows, row)
	}

	data, err := exporter.Render(report)
	require.NoError(t, err)
	require.Equal(t, "%PDF", string(data[:4]))
}
