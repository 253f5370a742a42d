package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/kintai-hub/attendance-report-api/internal/dto"
	"github.com/kintai-hub/attendance-report-api/internal/service"
	appErrors "github.com/kintai-hub/attendance-report-api/pkg/errors"
	"github.com/kintai-hub/attendance-report-api/pkg/response"
)

type reportService interface {
	Generate(ctx context.Context, req dto.GenerateReportRequest) (*dto.GenerateReportResponse, error)
	ResolveDownload(id string) (*service.ReportDownload, error)
	Status() dto.StatusResponse
}

type sweeper interface {
	Sweep(now time.Time) int
}

// ReportHandler exposes the report lifecycle endpoints.
type ReportHandler struct {
	reports reportService
	sweep   sweeper
	metrics *service.MetricsService
}

// NewReportHandler constructs the handler. metrics may be nil.
func NewReportHandler(reports reportService, sweep sweeper, metrics *service.MetricsService) *ReportHandler {
	return &ReportHandler{reports: reports, sweep: sweep, metrics: metrics}
}

// Generate godoc
// @Summary Generate an attendance report PDF
// @Tags Reports
// @Accept json
// @Produce json
// @Param payload body dto.GenerateReportRequest true "Report request"
// @Success 201 {object} dto.GenerateReportResponse
// @Failure 400 {object} response.ErrorBody
// @Failure 502 {object} response.ErrorBody
// @Router /reports [post]
func (h *ReportHandler) Generate(c *gin.Context) {
	var req dto.GenerateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "subjectId and a period in YYYY-MM format are required"))
		return
	}

	result, err := h.reports.Generate(c.Request.Context(), req)
	if err != nil {
		h.metrics.ObserveReportFailure(appErrors.FromError(err).Code)
		response.Error(c, err)
		return
	}
	h.metrics.ObserveReportGenerated()
	response.Created(c, result)
}

// Download godoc
// @Summary Download a generated report
// @Tags Reports
// @Produce application/pdf
// @Param id path string true "Artifact ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.ErrorBody
// @Router /reports/{id} [get]
func (h *ReportHandler) Download(c *gin.Context) {
	download, err := h.reports.ResolveDownload(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer download.File.Close() //nolint:errcheck

	extraHeaders := map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", download.Filename),
	}
	c.DataFromReader(http.StatusOK, download.SizeBytes, "application/pdf", download.File, extraHeaders)
}

// Cleanup godoc
// @Summary Trigger an immediate expiry sweep
// @Tags Reports
// @Produce json
// @Success 200 {object} dto.CleanupResponse
// @Router /reports/_cleanup [delete]
func (h *ReportHandler) Cleanup(c *gin.Context) {
	deleted := h.sweep.Sweep(time.Now())
	response.JSON(c, http.StatusOK, dto.CleanupResponse{DeletedCount: deleted})
}

// Status godoc
// @Summary Artifact store status
// @Tags Reports
// @Produce json
// @Success 200 {object} dto.StatusResponse
// @Router /reports/_status [get]
func (h *ReportHandler) Status(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.reports.Status())
}
