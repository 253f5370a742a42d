package models

// AttendanceStatus is the raw attendance status code from the upstream system.
type AttendanceStatus string

const (
	AttendanceStatusNormal    AttendanceStatus = "normal"
	AttendanceStatusPaidLeave AttendanceStatus = "paid_leave"
	AttendanceStatusAbsent    AttendanceStatus = "absent"
)

// SubmissionStatus is the raw monthly submission status code.
type SubmissionStatus string

const (
	SubmissionStatusNotSubmitted SubmissionStatus = "not_submitted"
	SubmissionStatusSubmitted    SubmissionStatus = "submitted"
	SubmissionStatusApproved     SubmissionStatus = "approved"
	SubmissionStatusRejected     SubmissionStatus = "rejected"
)

// AttendanceRecord is one day of raw attendance data, read-only to this
// service. Clock times are nullable; minute fields are non-negative.
type AttendanceRecord struct {
	Date              string           `json:"attendanceDate"`
	ClockInTime       *string          `json:"clockInTime"`
	ClockOutTime      *string          `json:"clockOutTime"`
	LateMinutes       int              `json:"lateMinutes"`
	EarlyLeaveMinutes int              `json:"earlyLeaveMinutes"`
	OvertimeMinutes   int              `json:"overtimeMinutes"`
	NightShiftMinutes int              `json:"nightShiftMinutes"`
	WorkingMinutes    int              `json:"workingMinutes"`
	AttendanceStatus  AttendanceStatus `json:"attendanceStatus"`
	SubmissionStatus  SubmissionStatus `json:"submissionStatus"`
	FixedFlag         bool             `json:"attendanceFixedFlag"`
}

// EmployeeInfo identifies the subject a report is about.
type EmployeeInfo struct {
	EmployeeID   string `json:"employeeId"`
	EmployeeName string `json:"employeeName"`
	EmployeeCode string `json:"employeeCode"`
}

// ReportData is the full upstream payload for one subject and period.
type ReportData struct {
	Employee       EmployeeInfo       `json:"employee"`
	Period         Period             `json:"period"`
	AttendanceList []AttendanceRecord `json:"attendanceList"`
}

// ReportRow is a display-ready daily line for the rendered report.
type ReportRow struct {
	Date       string
	ClockIn    string
	ClockOut   string
	Late       string
	EarlyLeave string
	Overtime   string
	NightShift string
	Status     string
	Submission string
}

// ReportSummary aggregates the period, already formatted for display.
type ReportSummary struct {
	TotalWorking    string
	TotalOvertime   string
	TotalNightShift string
	TotalLate       string
	TotalEarlyLeave string
	LateDays        int
	EarlyLeaveDays  int
	PaidLeaveDays   int
	AbsentDays      int
}

// NormalizedReport is the renderer input: subject info, period, ordered
// daily rows and summary totals, all display-ready.
type NormalizedReport struct {
	Employee EmployeeInfo
	Period   Period
	Rows     []ReportRow
	Summary  ReportSummary
}
