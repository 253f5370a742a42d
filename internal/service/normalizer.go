package service

import (
	"fmt"

	"github.com/kintai-hub/attendance-report-api/internal/models"
	appErrors "github.com/kintai-hub/attendance-report-api/pkg/errors"
)

// attendanceLabels maps raw attendance status codes to display text.
// Unknown codes pass through unchanged so normalization never fails on them.
var attendanceLabels = map[models.AttendanceStatus]string{
	models.AttendanceStatusNormal:    "Present",
	models.AttendanceStatusPaidLeave: "Paid Leave",
	models.AttendanceStatusAbsent:    "Absent",
}

var submissionLabels = map[models.SubmissionStatus]string{
	models.SubmissionStatusNotSubmitted: "Not Submitted",
	models.SubmissionStatusSubmitted:    "Submitted",
	models.SubmissionStatusApproved:     "Approved",
	models.SubmissionStatusRejected:     "Rejected",
}

// FormatMinutes renders a non-negative minute count as HH:MM. Hours are not
// clamped: 6000 minutes renders as "100:00".
func FormatMinutes(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// AttendanceLabel localizes a raw attendance status code.
func AttendanceLabel(status models.AttendanceStatus) string {
	if label, ok := attendanceLabels[status]; ok {
		return label
	}
	return string(status)
}

// SubmissionLabel localizes a raw submission status code.
func SubmissionLabel(status models.SubmissionStatus) string {
	if label, ok := submissionLabels[status]; ok {
		return label
	}
	return string(status)
}

// Normalize converts raw upstream attendance data into a display-ready
// report. It is a pure function: no side effects, no clock access.
//
// It fails only on structurally invalid input: a record without a date, or
// a negative minute field. Negative minutes are rejected, never clamped.
func Normalize(raw *models.ReportData) (*models.NormalizedReport, error) {
	if raw == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "attendance data is missing")
	}

	rows := make([]models.ReportRow, 0, len(raw.AttendanceList))
	var summary models.ReportSummary
	var working, overtime, nightShift, late, earlyLeave int

	for i, record := range raw.AttendanceList {
		if record.Date == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("attendance record %d has no date", i))
		}
		if err := checkMinutes(i, record); err != nil {
			return nil, err
		}

		submission := SubmissionLabel(record.SubmissionStatus)
		if record.FixedFlag {
			submission = "Fixed"
		}

		rows = append(rows, models.ReportRow{
			Date:       record.Date,
			ClockIn:    derefTime(record.ClockInTime),
			ClockOut:   derefTime(record.ClockOutTime),
			Late:       FormatMinutes(record.LateMinutes),
			EarlyLeave: FormatMinutes(record.EarlyLeaveMinutes),
			Overtime:   FormatMinutes(record.OvertimeMinutes),
			NightShift: FormatMinutes(record.NightShiftMinutes),
			Status:     AttendanceLabel(record.AttendanceStatus),
			Submission: submission,
		})

		working += record.WorkingMinutes
		overtime += record.OvertimeMinutes
		nightShift += record.NightShiftMinutes
		late += record.LateMinutes
		earlyLeave += record.EarlyLeaveMinutes

		if record.LateMinutes > 0 {
			summary.LateDays++
		}
		if record.EarlyLeaveMinutes > 0 {
			summary.EarlyLeaveDays++
		}
		switch record.AttendanceStatus {
		case models.AttendanceStatusPaidLeave:
			summary.PaidLeaveDays++
		case models.AttendanceStatusAbsent:
			summary.AbsentDays++
		}
	}

	summary.TotalWorking = FormatMinutes(working)
	summary.TotalOvertime = FormatMinutes(overtime)
	summary.TotalNightShift = FormatMinutes(nightShift)
	summary.TotalLate = FormatMinutes(late)
	summary.TotalEarlyLeave = FormatMinutes(earlyLeave)

	return &models.NormalizedReport{
		Employee: raw.Employee,
		Period:   raw.Period,
		Rows:     rows,
		Summary:  summary,
	}, nil
}

func checkMinutes(index int, record models.AttendanceRecord) error {
	fields := map[string]int{
		"lateMinutes":       record.LateMinutes,
		"earlyLeaveMinutes": record.EarlyLeaveMinutes,
		"overtimeMinutes":   record.OvertimeMinutes,
		"nightShiftMinutes": record.NightShiftMinutes,
		"workingMinutes":    record.WorkingMinutes,
	}
	for name, value := range fields {
		if value < 0 {
			return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("attendance record %d has negative %s", index, name))
		}
	}
	return nil
}

func derefTime(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
