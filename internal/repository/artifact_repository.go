package repository

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kintai-hub/attendance-report-api/internal/models"
	appErrors "github.com/kintai-hub/attendance-report-api/pkg/errors"
	"github.com/kintai-hub/attendance-report-api/pkg/storage"
)

const artifactExt = ".pdf"

// ArtifactRepository is the single authority on artifact metadata and state.
// The in-memory index holds active artifacts only; a deleted artifact is
// indistinguishable from one that never existed. The index is rebuilt from
// the storage directory at startup, so deferred deletions lost to a restart
// are picked up again by the sweep.
type ArtifactRepository struct {
	mu        sync.RWMutex
	artifacts map[string]*models.Artifact

	storage *storage.LocalStorage
	ttl     time.Duration
	logger  *zap.Logger
}

// NewArtifactRepository builds the repository and rebuilds the index from
// files already present on disk. File modification time stands in for the
// creation timestamp; subject and period are not recoverable from disk and
// stay empty on rebuilt entries (they are informational only).
func NewArtifactRepository(store *storage.LocalStorage, ttl time.Duration, logger *zap.Logger) (*ArtifactRepository, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	repo := &ArtifactRepository{
		artifacts: make(map[string]*models.Artifact),
		storage:   store,
		ttl:       ttl,
		logger:    logger,
	}

	files, err := store.List()
	if err != nil {
		return nil, fmt.Errorf("rebuild artifact index: %w", err)
	}
	for _, file := range files {
		if !strings.HasSuffix(file.Name, artifactExt) {
			continue
		}
		id := strings.TrimSuffix(file.Name, artifactExt)
		repo.artifacts[id] = &models.Artifact{
			ID:        id,
			FilePath:  file.Name,
			SizeBytes: file.Size,
			CreatedAt: file.ModTime,
			ExpiresAt: file.ModTime.Add(ttl),
			State:     models.ArtifactStateActive,
		}
	}
	if len(repo.artifacts) > 0 {
		logger.Sugar().Infow("artifact index rebuilt from disk", "count", len(repo.artifacts))
	}
	return repo, nil
}

// newArtifactID allocates a collision-free identifier from a high-resolution
// timestamp plus a random suffix. No counter is involved, so uniqueness
// holds across process restarts as well as concurrent generation.
func newArtifactID(now time.Time) string {
	return fmt.Sprintf("rep_%d_%s", now.UnixNano(), uuid.NewString()[:8])
}

// Put writes the rendered bytes to a freshly allocated path and registers
// the artifact as active. The file is never observable half-written.
func (r *ArtifactRepository) Put(data []byte, subjectID string, period models.Period) (*models.Artifact, error) {
	now := time.Now().UTC()
	id := newArtifactID(now)
	filename := id + artifactExt

	size, err := r.storage.SaveAtomic(filename, data)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "write report file")
	}

	artifact := &models.Artifact{
		ID:        id,
		SubjectID: subjectID,
		Period:    period,
		FilePath:  filename,
		SizeBytes: size,
		CreatedAt: now,
		ExpiresAt: now.Add(r.ttl),
		State:     models.ArtifactStateActive,
	}

	r.mu.Lock()
	r.artifacts[id] = artifact
	r.mu.Unlock()

	copied := *artifact
	return &copied, nil
}

// Get returns artifact metadata only while the artifact is active. Deleted
// and unknown ids both report NotFound; expiry is a hard boundary.
func (r *ArtifactRepository) Get(id string) (*models.Artifact, error) {
	r.mu.RLock()
	artifact, ok := r.artifacts[id]
	r.mu.RUnlock()
	if !ok {
		return nil, appErrors.ErrNotFound
	}
	copied := *artifact
	return &copied, nil
}

// Delete performs the active -> deleted transition exactly once. It returns
// true only for the caller that actually removed the artifact; concurrent
// and repeated calls for the same id observe false without error.
//
// The map entry is claimed under the lock before the file is unlinked, so
// of two racing callers (deferred timer and sweep) only one proceeds to the
// filesystem. If the unlink fails the entry is re-registered so the next
// sweep retries; the caller gets the error to log, never to surface.
func (r *ArtifactRepository) Delete(id string) (bool, error) {
	r.mu.Lock()
	artifact, ok := r.artifacts[id]
	if ok {
		delete(r.artifacts, id)
	}
	r.mu.Unlock()
	if !ok {
		return false, nil
	}

	if err := r.storage.Remove(artifact.FilePath); err != nil {
		r.mu.Lock()
		r.artifacts[id] = artifact
		r.mu.Unlock()
		return false, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "delete report file")
	}

	artifact.State = models.ArtifactStateDeleted
	return true, nil
}

// ListActive returns a point-in-time snapshot of active artifacts. It may
// race with concurrent Put and Delete calls; the sweep tolerates that.
func (r *ArtifactRepository) ListActive() []*models.Artifact {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*models.Artifact, 0, len(r.artifacts))
	for _, artifact := range r.artifacts {
		copied := *artifact
		out = append(out, &copied)
	}
	return out
}

// Stats reports the active artifact count and their combined size.
func (r *ArtifactRepository) Stats() (int, int64) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var total int64
	for _, artifact := range r.artifacts {
		total += artifact.SizeBytes
	}
	return len(r.artifacts), total
}

// Open returns a read handle for an artifact's file. Callers should Get the
// artifact first; an open handle keeps the bytes readable even if a
// concurrent Delete unlinks the directory entry mid-stream.
func (r *ArtifactRepository) Open(artifact *models.Artifact) (*os.File, error) {
	file, err := r.storage.Open(artifact.FilePath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStorage.Code, appErrors.ErrStorage.Status, "open report file")
	}
	return file, nil
}
