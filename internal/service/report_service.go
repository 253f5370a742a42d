package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kintai-hub/attendance-report-api/internal/dto"
	"github.com/kintai-hub/attendance-report-api/internal/models"
	appErrors "github.com/kintai-hub/attendance-report-api/pkg/errors"
)

var periodPattern = regexp.MustCompile(`^\d{4}-(0[1-9]|1[0-2])$`)

type attendanceFetcher interface {
	FetchHistory(ctx context.Context, subjectID, period string) (*models.ReportData, error)
}

type reportRenderer interface {
	Render(report *models.NormalizedReport) ([]byte, error)
}

type artifactStore interface {
	Put(data []byte, subjectID string, period models.Period) (*models.Artifact, error)
	Get(id string) (*models.Artifact, error)
	Open(artifact *models.Artifact) (*os.File, error)
	Stats() (int, int64)
}

type expiryScheduler interface {
	Schedule(artifact *models.Artifact)
}

// ReportServiceConfig tunes generation behaviour.
type ReportServiceConfig struct {
	APIPrefix     string
	RenderTimeout time.Duration
}

// ReportDownload aggregates resolved download data.
type ReportDownload struct {
	File      *os.File
	Filename  string
	SizeBytes int64
	ExpiresAt time.Time
}

// ReportService orchestrates fetch, normalize, render, store and expiry
// scheduling for one report per request.
type ReportService struct {
	upstream attendanceFetcher
	renderer reportRenderer
	store    artifactStore
	expiry   expiryScheduler
	logger   *zap.Logger
	cfg      ReportServiceConfig
}

// NewReportService constructs the report service.
func NewReportService(upstream attendanceFetcher, renderer reportRenderer, store artifactStore, expiry expiryScheduler, logger *zap.Logger, cfg ReportServiceConfig) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.RenderTimeout <= 0 {
		cfg.RenderTimeout = 30 * time.Second
	}
	if cfg.APIPrefix == "" {
		cfg.APIPrefix = "/api/v1"
	}
	return &ReportService{
		upstream: upstream,
		renderer: renderer,
		store:    store,
		expiry:   expiry,
		logger:   logger,
		cfg:      cfg,
	}
}

// Generate produces one artifact for the requested subject and period.
// Each call yields an independent artifact with a distinct id; there is no
// deduplication across identical requests.
//
// The pipeline is detached from the caller's cancellation: if the client
// disconnects mid-flight, a render that completes anyway is still stored
// and scheduled for expiry, so nothing leaks. Fetch and render remain
// bounded by their own timeouts.
func (s *ReportService) Generate(ctx context.Context, req dto.GenerateReportRequest) (*dto.GenerateReportResponse, error) {
	period, err := parsePeriod(req.Period)
	if err != nil {
		return nil, err
	}

	ctx = context.WithoutCancel(ctx)

	raw, err := s.upstream.FetchHistory(ctx, req.SubjectID, req.Period)
	if err != nil {
		return nil, err
	}

	report, err := Normalize(raw)
	if err != nil {
		return nil, err
	}
	if report.Period.From == "" {
		report.Period = period
	}

	payload, err := s.render(ctx, report)
	if err != nil {
		return nil, err
	}

	artifact, err := s.store.Put(payload, req.SubjectID, period)
	if err != nil {
		return nil, err
	}
	s.expiry.Schedule(artifact)

	s.logger.Sugar().Infow("report generated",
		"artifact_id", artifact.ID,
		"subject_id", req.SubjectID,
		"period", req.Period,
		"size_bytes", artifact.SizeBytes,
		"expires_at", artifact.ExpiresAt,
	)

	return &dto.GenerateReportResponse{
		ID:          artifact.ID,
		DownloadURL: s.downloadURL(artifact.ID),
		ExpiresAt:   artifact.ExpiresAt,
	}, nil
}

// ResolveDownload opens the file for an artifact that is still active.
// Unknown and expired ids are indistinguishable: both are NotFound.
func (s *ReportService) ResolveDownload(id string) (*ReportDownload, error) {
	artifact, err := s.store.Get(id)
	if err != nil {
		return nil, err
	}
	file, err := s.store.Open(artifact)
	if err != nil {
		// The file can vanish between Get and Open if a delete won the
		// race; report it the same way as an unknown id.
		if errors.Is(err, os.ErrNotExist) {
			return nil, appErrors.ErrNotFound
		}
		return nil, err
	}
	return &ReportDownload{
		File:      file,
		Filename:  fmt.Sprintf("attendance_report_%s.pdf", id),
		SizeBytes: artifact.SizeBytes,
		ExpiresAt: artifact.ExpiresAt,
	}, nil
}

// Status summarises the artifact store for the administrative endpoint.
func (s *ReportService) Status() dto.StatusResponse {
	count, bytes := s.store.Stats()
	return dto.StatusResponse{ActiveCount: count, TotalBytes: bytes}
}

// render bounds the renderer with its own timeout so a wedged rendering
// engine cannot hang the request handler.
func (s *ReportService) render(ctx context.Context, report *models.NormalizedReport) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RenderTimeout)
	defer cancel()

	type renderResult struct {
		payload []byte
		err     error
	}
	done := make(chan renderResult, 1)
	go func() {
		payload, err := s.renderer.Render(report)
		done <- renderResult{payload: payload, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, appErrors.Clone(appErrors.ErrRender, "report rendering timed out")
	case result := <-done:
		if result.err != nil {
			return nil, appErrors.Wrap(result.err, appErrors.ErrRender.Code, appErrors.ErrRender.Status, "report rendering failed")
		}
		return result.payload, nil
	}
}

func (s *ReportService) downloadURL(id string) string {
	return fmt.Sprintf("%s/reports/%s", strings.TrimRight(s.cfg.APIPrefix, "/"), id)
}

// parsePeriod validates the YYYY-MM request value and expands it to the
// first and last day of the month.
func parsePeriod(raw string) (models.Period, error) {
	if !periodPattern.MatchString(raw) {
		return models.Period{}, appErrors.Clone(appErrors.ErrValidation, "period must be in YYYY-MM format")
	}
	month, err := time.Parse("2006-01", raw)
	if err != nil {
		return models.Period{}, appErrors.Clone(appErrors.ErrValidation, "period is not a valid month")
	}
	last := month.AddDate(0, 1, -1)
	return models.Period{
		From: month.Format("2006-01-02"),
		To:   last.Format("2006-01-02"),
	}, nil
}
