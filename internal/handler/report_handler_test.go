package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/kintai-hub/attendance-report-api/internal/dto"
	"github.com/kintai-hub/attendance-report-api/internal/service"
	appErrors "github.com/kintai-hub/attendance-report-api/pkg/errors"
	"github.com/kintai-hub/attendance-report-api/pkg/response"
)

type stubReportService struct {
	generateResp *dto.GenerateReportResponse
	generateErr  error
	downloadPath string
	downloadErr  error
	status       dto.StatusResponse
}

func (s *stubReportService) Generate(ctx context.Context, req dto.GenerateReportRequest) (*dto.GenerateReportResponse, error) {
	if s.generateErr != nil {
		return nil, s.generateErr
	}
	return s.generateResp, nil
}

func (s *stubReportService) ResolveDownload(id string) (*service.ReportDownload, error) {
	if s.downloadErr != nil {
		return nil, s.downloadErr
	}
	file, err := os.Open(s.downloadPath)
	if err != nil {
		return nil, err
	}
	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, err
	}
	return &service.ReportDownload{
		File:      file,
		Filename:  "attendance_report_" + id + ".pdf",
		SizeBytes: info.Size(),
		ExpiresAt: time.Now().Add(time.Hour),
	}, nil
}

func (s *stubReportService) Status() dto.StatusResponse {
	return s.status
}

type stubSweeper struct {
	deleted int
	called  bool
}

func (s *stubSweeper) Sweep(now time.Time) int {
	s.called = true
	return s.deleted
}

func setupRouter(svc *stubReportService, sweep *stubSweeper) *gin.Engine {
	gin.SetMode(gin.TestMode)
	_ = dto.RegisterValidations()
	h := NewReportHandler(svc, sweep, nil)
	router := gin.New()
	group := router.Group("/api/v1")
	group.POST("/reports", h.Generate)
	group.GET("/reports/_status", h.Status)
	group.DELETE("/reports/_cleanup", h.Cleanup)
	group.GET("/reports/:id", h.Download)
	return router
}

func TestGenerateReturns201(t *testing.T) {
	svc := &stubReportService{
		generateResp: &dto.GenerateReportResponse{
			ID:          "rep_1_abcd1234",
			DownloadURL: "/api/v1/reports/rep_1_abcd1234",
			ExpiresAt:   time.Now().Add(24 * time.Hour).UTC(),
		},
	}
	router := setupRouter(svc, &stubSweeper{})

	body := bytes.NewBufferString(`{"subjectId":"emp-1","period":"2025-08"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports", body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code)

	var resp dto.GenerateReportResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, "rep_1_abcd1234", resp.ID)
	require.Equal(t, "/api/v1/reports/rep_1_abcd1234", resp.DownloadURL)
}

func TestGenerateMissingFieldsReturns400(t *testing.T) {
	router := setupRouter(&stubReportService{}, &stubSweeper{})

	for _, payload := range []string{
		`{}`,
		`{"subjectId":"emp-1"}`,
		`{"period":"2025-08"}`,
		`{"subjectId":"emp-1","period":"2025-8"}`,
		`{"subjectId":"emp-1","period":"2025-13"}`,
		`not json`,
	} {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/reports", bytes.NewBufferString(payload))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		require.Equal(t, http.StatusBadRequest, w.Code, "payload %s", payload)

		var errBody response.ErrorBody
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errBody))
		require.Equal(t, appErrors.ErrValidation.Code, errBody.ErrorCode)
		require.NotEmpty(t, errBody.Message)
	}
}

func TestGenerateUpstreamFailureReturns502(t *testing.T) {
	svc := &stubReportService{generateErr: appErrors.Clone(appErrors.ErrUpstream, "attendance service unavailable")}
	router := setupRouter(svc, &stubSweeper{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/reports", bytes.NewBufferString(`{"subjectId":"emp-1","period":"2025-08"}`))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadGateway, w.Code)

	var errBody response.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errBody))
	require.Equal(t, appErrors.ErrUpstream.Code, errBody.ErrorCode)
}

func TestDownloadStreamsPDF(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rep_1.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4 payload"), 0o644))

	svc := &stubReportService{downloadPath: path}
	router := setupRouter(svc, &stubSweeper{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/rep_1_abcd1234", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	require.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	require.Contains(t, w.Header().Get("Content-Disposition"), "attendance_report_rep_1_abcd1234.pdf")

	data, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	require.Equal(t, []byte("%PDF-1.4 payload"), data)
}

func TestDownloadUnknownIDReturns404(t *testing.T) {
	svc := &stubReportService{downloadErr: appErrors.ErrNotFound}
	router := setupRouter(svc, &stubSweeper{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/rep_missing", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusNotFound, w.Code)

	var errBody response.ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &errBody))
	require.Equal(t, appErrors.ErrNotFound.Code, errBody.ErrorCode)
}

func TestCleanupReportsDeletedCount(t *testing.T) {
	sweep := &stubSweeper{deleted: 3}
	router := setupRouter(&stubReportService{}, sweep)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/reports/_cleanup", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.True(t, sweep.called)

	var resp dto.CleanupResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 3, resp.DeletedCount)
}

func TestStatusReportsStoreSummary(t *testing.T) {
	svc := &stubReportService{status: dto.StatusResponse{ActiveCount: 5, TotalBytes: 123456}}
	router := setupRouter(svc, &stubSweeper{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/_status", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)

	var resp dto.StatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 5, resp.ActiveCount)
	require.Equal(t, int64(123456), resp.TotalBytes)
}
