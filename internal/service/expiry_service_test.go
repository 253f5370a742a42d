package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kintai-hub/attendance-report-api/internal/models"
)

// fakeDeleter mimics the repository's exactly-once Delete contract.
type fakeDeleter struct {
	mu     sync.Mutex
	active map[string]*models.Artifact
	calls  int
	wins   int
}

func newFakeDeleter(artifacts ...*models.Artifact) *fakeDeleter {
	f := &fakeDeleter{active: make(map[string]*models.Artifact)}
	for _, artifact := range artifacts {
		f.active[artifact.ID] = artifact
	}
	return f
}

func (f *fakeDeleter) Delete(id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if _, ok := f.active[id]; !ok {
		return false, nil
	}
	delete(f.active, id)
	f.wins++
	return true, nil
}

func (f *fakeDeleter) ListActive() []*models.Artifact {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.Artifact, 0, len(f.active))
	for _, artifact := range f.active {
		out = append(out, artifact)
	}
	return out
}

func (f *fakeDeleter) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.active)
}

type fakeSweptObserver struct {
	mu    sync.Mutex
	total int
}

func (f *fakeSweptObserver) ObserveSwept(count int) {
	f.mu.Lock()
	f.total += count
	f.mu.Unlock()
}

func testArtifact(id string, expiresAt time.Time) *models.Artifact {
	return &models.Artifact{
		ID:        id,
		FilePath:  id + ".pdf",
		CreatedAt: expiresAt.Add(-time.Hour),
		ExpiresAt: expiresAt,
		State:     models.ArtifactStateActive,
	}
}

func TestSweepDeletesOnlyExpired(t *testing.T) {
	now := time.Now().UTC()
	repo := newFakeDeleter(
		testArtifact("rep_1", now.Add(-time.Minute)),
		testArtifact("rep_2", now.Add(-time.Second)),
		testArtifact("rep_3", now.Add(time.Hour)),
	)
	observer := &fakeSweptObserver{}
	svc := NewExpiryService(repo, time.Hour, zap.NewNop(), observer)

	deleted := svc.Sweep(now)
	require.Equal(t, 2, deleted)
	require.Equal(t, 1, repo.count())
	require.Equal(t, 2, observer.total)

	// A second sweep finds nothing left to do.
	require.Equal(t, 0, svc.Sweep(now))
}

func TestScheduleFiresDeferredDeletion(t *testing.T) {
	artifact := testArtifact("rep_timer", time.Now().Add(20*time.Millisecond))
	repo := newFakeDeleter(artifact)
	svc := NewExpiryService(repo, time.Hour, zap.NewNop(), nil)

	svc.Schedule(artifact)

	require.Eventually(t, func() bool {
		return repo.count() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestSchedulePastExpiryFiresImmediately(t *testing.T) {
	artifact := testArtifact("rep_overdue", time.Now().Add(-time.Hour))
	repo := newFakeDeleter(artifact)
	svc := NewExpiryService(repo, time.Hour, zap.NewNop(), nil)

	svc.Schedule(artifact)

	require.Eventually(t, func() bool {
		return repo.count() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestStartReschedulesExistingArtifacts(t *testing.T) {
	repo := newFakeDeleter(
		testArtifact("rep_a", time.Now().Add(10*time.Millisecond)),
		testArtifact("rep_b", time.Now().Add(15*time.Millisecond)),
	)
	svc := NewExpiryService(repo, time.Hour, zap.NewNop(), nil)

	svc.Start(context.Background())
	defer svc.Stop()

	require.Eventually(t, func() bool {
		return repo.count() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestStopCancelsPendingTimers(t *testing.T) {
	artifact := testArtifact("rep_pending", time.Now().Add(time.Hour))
	repo := newFakeDeleter(artifact)
	svc := NewExpiryService(repo, time.Hour, zap.NewNop(), nil)

	svc.Start(context.Background())
	svc.Schedule(artifact)
	svc.Stop()

	require.Equal(t, 1, repo.count())
}

func TestTimerAndSweepDoubleFireIsHarmless(t *testing.T) {
	now := time.Now().UTC()
	artifact := testArtifact("rep_race", now.Add(-time.Minute))
	repo := newFakeDeleter(artifact)
	svc := NewExpiryService(repo, time.Hour, zap.NewNop(), nil)

	// Both triggers target the same artifact; only one deletion counts.
	svc.Schedule(artifact)
	svc.Sweep(now)

	require.Eventually(t, func() bool {
		repo.mu.Lock()
		defer repo.mu.Unlock()
		return repo.calls >= 2
	}, time.Second, 5*time.Millisecond)

	repo.mu.Lock()
	defer repo.mu.Unlock()
	require.Equal(t, 1, repo.wins)
	require.Empty(t, repo.active)
}
