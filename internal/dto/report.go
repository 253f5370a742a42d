package dto

import (
	"time"

	"github.com/kintai-hub/attendance-report-api/internal/models"
)

// GenerateReportRequest is the POST /reports payload.
type GenerateReportRequest struct {
	SubjectID  string `json:"subjectId" binding:"required"`
	Period     string `json:"period" binding:"required,period"`
	ReportType string `json:"reportType" binding:"omitempty,oneof=monthly"`
}

// GenerateReportResponse returns the artifact handle to the caller.
type GenerateReportResponse struct {
	ID          string    `json:"id"`
	DownloadURL string    `json:"downloadUrl"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

// CleanupResponse reports the outcome of an administrative sweep.
type CleanupResponse struct {
	DeletedCount int `json:"deletedCount"`
}

// StatusResponse summarises the artifact store.
type StatusResponse struct {
	ActiveCount int   `json:"activeCount"`
	TotalBytes  int64 `json:"totalBytes"`
}

// HistoryEnvelope is the upstream attendance history response wrapper.
type HistoryEnvelope struct {
	Success bool               `json:"success"`
	Data    *models.ReportData `json:"data"`
	Message string             `json:"message,omitempty"`
}
