package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kintai-hub/attendance-report-api/internal/models"
)

type artifactDeleter interface {
	Delete(id string) (bool, error)
	ListActive() []*models.Artifact
}

type sweptObserver interface {
	ObserveSwept(count int)
}

// ExpiryService guarantees every artifact is deleted exactly once, at or
// shortly after its expiry: a per-artifact deferred timer fires at expiresAt
// and a periodic sweep acts as the durability backstop. Timers do not
// survive a restart; the boot pass plus the sweep cover that gap. Both
// triggers funnel into the repository's idempotent Delete, so double-firing
// is harmless.
type ExpiryService struct {
	repo          artifactDeleter
	sweepInterval time.Duration
	logger        *zap.Logger
	metrics       sweptObserver

	mu      sync.Mutex
	timers  map[string]*time.Timer
	started bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewExpiryService constructs the expiry manager. metrics may be nil.
func NewExpiryService(repo artifactDeleter, sweepInterval time.Duration, logger *zap.Logger, metrics sweptObserver) *ExpiryService {
	if sweepInterval <= 0 {
		sweepInterval = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExpiryService{
		repo:          repo,
		sweepInterval: sweepInterval,
		logger:        logger,
		metrics:       metrics,
		timers:        make(map[string]*time.Timer),
	}
}

// Start schedules deferred deletion for every artifact already in the index
// (restart recovery) and boots the sweep loop. Safe to call once.
func (s *ExpiryService) Start(ctx context.Context) {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return
	}
	s.started = true
	ctx, s.cancel = context.WithCancel(ctx)
	s.mu.Unlock()

	for _, artifact := range s.repo.ListActive() {
		s.Schedule(artifact)
	}

	s.wg.Add(1)
	go s.sweepLoop(ctx)
	s.logger.Sugar().Infow("expiry manager started", "sweep_interval", s.sweepInterval)
}

// Stop cancels the sweep loop and all pending timers.
func (s *ExpiryService) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.cancel()
	for id, timer := range s.timers {
		timer.Stop()
		delete(s.timers, id)
	}
	s.mu.Unlock()
	s.wg.Wait()
	s.logger.Sugar().Infow("expiry manager stopped")
}

// Schedule arms the deferred deletion timer for one artifact, firing at its
// recorded expiresAt. An expiry in the past fires immediately.
func (s *ExpiryService) Schedule(artifact *models.Artifact) {
	id := artifact.ID
	delay := time.Until(artifact.ExpiresAt)
	if delay < 0 {
		delay = 0
	}

	timer := time.AfterFunc(delay, func() {
		s.mu.Lock()
		delete(s.timers, id)
		s.mu.Unlock()
		s.deleteArtifact(id, "timer")
	})

	s.mu.Lock()
	if previous, ok := s.timers[id]; ok {
		previous.Stop()
	}
	s.timers[id] = timer
	s.mu.Unlock()
}

// Sweep removes every active artifact whose expiry has passed and returns
// the number actually deleted. It backs both the periodic loop and the
// administrative cleanup endpoint.
func (s *ExpiryService) Sweep(now time.Time) int {
	deleted := 0
	for _, artifact := range s.repo.ListActive() {
		if !artifact.Expired(now) {
			continue
		}
		if s.deleteArtifact(artifact.ID, "sweep") {
			deleted++
		}
	}
	if deleted > 0 {
		s.logger.Sugar().Infow("sweep reclaimed artifacts", "count", deleted)
		if s.metrics != nil {
			s.metrics.ObserveSwept(deleted)
		}
	}
	return deleted
}

func (s *ExpiryService) sweepLoop(ctx context.Context) {
	defer s.wg.Done()
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(time.Now())
		}
	}
}

// deleteArtifact runs one idempotent delete. A filesystem failure is logged
// and left for the next sweep pass; it is never fatal.
func (s *ExpiryService) deleteArtifact(id, trigger string) bool {
	removed, err := s.repo.Delete(id)
	if err != nil {
		s.logger.Sugar().Warnw("artifact delete failed, will retry on next sweep",
			"artifact_id", id, "trigger", trigger, "error", err)
		return false
	}
	if removed {
		s.logger.Sugar().Debugw("artifact deleted", "artifact_id", id, "trigger", trigger)
	}
	return removed
}
