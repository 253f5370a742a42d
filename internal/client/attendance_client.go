package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kintai-hub/attendance-report-api/internal/dto"
	"github.com/kintai-hub/attendance-report-api/internal/models"
	appErrors "github.com/kintai-hub/attendance-report-api/pkg/errors"
)

type historyCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// AttendanceClient fetches attendance history from the upstream system.
type AttendanceClient struct {
	baseURL  string
	http     *http.Client
	cache    historyCache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewAttendanceClient constructs the client. cache may be nil, in which case
// every call goes straight upstream.
func NewAttendanceClient(baseURL string, timeout time.Duration, cache historyCache, cacheTTL time.Duration, logger *zap.Logger) *AttendanceClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceClient{
		baseURL:  strings.TrimRight(baseURL, "/"),
		http:     &http.Client{Timeout: timeout},
		cache:    cache,
		cacheTTL: cacheTTL,
		logger:   logger,
	}
}

// FetchHistory retrieves the attendance history for a subject and period.
// Transport failures, timeouts, non-2xx responses and upstream domain
// failures (success=false) all surface as UpstreamError.
func (c *AttendanceClient) FetchHistory(ctx context.Context, subjectID, period string) (*models.ReportData, error) {
	cacheKey := fmt.Sprintf("attendance:history:%s:%s", subjectID, period)
	if c.cache != nil {
		var cached models.ReportData
		if err := c.cache.Get(ctx, cacheKey, &cached); err == nil {
			return &cached, nil
		}
	}

	endpoint := fmt.Sprintf("%s/attendance/history?%s", c.baseURL, url.Values{
		"subjectId": {subjectID},
		"period":    {period},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "build attendance history request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "attendance history request failed")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, appErrors.Clone(appErrors.ErrUpstream, fmt.Sprintf("attendance history returned status %d", resp.StatusCode))
	}

	var envelope dto.HistoryEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status, "decode attendance history response")
	}
	if !envelope.Success || envelope.Data == nil {
		msg := envelope.Message
		if msg == "" {
			msg = "upstream reported failure"
		}
		return nil, appErrors.Clone(appErrors.ErrUpstream, msg)
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, cacheKey, envelope.Data, c.cacheTTL); err != nil {
			c.logger.Sugar().Warnw("failed to cache attendance history", "key", cacheKey, "error", err)
		}
	}

	return envelope.Data, nil
}
