package repository

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kintai-hub/attendance-report-api/internal/models"
	appErrors "github.com/kintai-hub/attendance-report-api/pkg/errors"
	"github.com/kintai-hub/attendance-report-api/pkg/storage"
)

func newTestRepo(t *testing.T, ttl time.Duration) (*ArtifactRepository, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)
	repo, err := NewArtifactRepository(store, ttl, zap.NewNop())
	require.NoError(t, err)
	return repo, dir
}

func TestPutAndGet(t *testing.T) {
	repo, dir := newTestRepo(t, 24*time.Hour)

	artifact, err := repo.Put([]byte("pdf bytes"), "emp-1", models.Period{From: "2025-08-01", To: "2025-08-31"})
	require.NoError(t, err)
	require.NotEmpty(t, artifact.ID)
	require.Equal(t, int64(9), artifact.SizeBytes)
	require.Equal(t, "emp-1", artifact.SubjectID)

	// TTL anchors on creation time exactly.
	require.Equal(t, 24*time.Hour, artifact.ExpiresAt.Sub(artifact.CreatedAt))

	got, err := repo.Get(artifact.ID)
	require.NoError(t, err)
	require.Equal(t, artifact.ID, got.ID)

	data, err := os.ReadFile(filepath.Join(dir, artifact.FilePath))
	require.NoError(t, err)
	require.Equal(t, []byte("pdf bytes"), data)
}

func TestGetUnknownID(t *testing.T) {
	repo, _ := newTestRepo(t, time.Hour)

	_, err := repo.Get("rep_0_unknown")
	require.Error(t, err)
	require.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestDeleteIsExactlyOnce(t *testing.T) {
	repo, dir := newTestRepo(t, time.Hour)

	artifact, err := repo.Put([]byte("x"), "emp-1", models.Period{})
	require.NoError(t, err)

	deleted, err := repo.Delete(artifact.ID)
	require.NoError(t, err)
	require.True(t, deleted)

	_, statErr := os.Stat(filepath.Join(dir, artifact.FilePath))
	require.True(t, os.IsNotExist(statErr))

	// Repeated delete is a no-op, not an error.
	deleted, err = repo.Delete(artifact.ID)
	require.NoError(t, err)
	require.False(t, deleted)

	_, err = repo.Get(artifact.ID)
	require.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestDeleteConcurrentSingleWinner(t *testing.T) {
	repo, _ := newTestRepo(t, time.Hour)

	artifact, err := repo.Put([]byte("x"), "emp-1", models.Period{})
	require.NoError(t, err)

	const callers = 16
	results := make(chan bool, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			deleted, err := repo.Delete(artifact.ID)
			require.NoError(t, err)
			results <- deleted
		}()
	}
	wg.Wait()
	close(results)

	winners := 0
	for deleted := range results {
		if deleted {
			winners++
		}
	}
	require.Equal(t, 1, winners)
}

func TestConcurrentPutsAllocateDistinctArtifacts(t *testing.T) {
	repo, dir := newTestRepo(t, time.Hour)

	const n = 200
	ids := make(chan string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			artifact, err := repo.Put([]byte("concurrent"), "emp-1", models.Period{})
			require.NoError(t, err)
			ids <- artifact.ID
		}()
	}
	wg.Wait()
	close(ids)

	seen := make(map[string]struct{}, n)
	for id := range ids {
		_, dup := seen[id]
		require.False(t, dup, "duplicate artifact id %s", id)
		seen[id] = struct{}{}
	}
	require.Len(t, seen, n)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, n)

	count, bytes := repo.Stats()
	require.Equal(t, n, count)
	require.Equal(t, int64(n*len("concurrent")), bytes)
}

func TestRebuildIndexFromDisk(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewLocalStorage(dir)
	require.NoError(t, err)

	first, err := NewArtifactRepository(store, time.Hour, zap.NewNop())
	require.NoError(t, err)
	artifact, err := first.Put([]byte("survives restart"), "emp-1", models.Period{})
	require.NoError(t, err)

	// A fresh repository over the same directory sees the orphaned file.
	rebuilt, err := NewArtifactRepository(store, time.Hour, zap.NewNop())
	require.NoError(t, err)

	got, err := rebuilt.Get(artifact.ID)
	require.NoError(t, err)
	require.Equal(t, artifact.SizeBytes, got.SizeBytes)
	require.Equal(t, time.Hour, got.ExpiresAt.Sub(got.CreatedAt))

	deleted, err := rebuilt.Delete(artifact.ID)
	require.NoError(t, err)
	require.True(t, deleted)
}

func TestOpenSurvivesConcurrentDelete(t *testing.T) {
	repo, _ := newTestRepo(t, time.Hour)

	artifact, err := repo.Put([]byte("streamed bytes"), "emp-1", models.Period{})
	require.NoError(t, err)

	file, err := repo.Open(artifact)
	require.NoError(t, err)
	defer file.Close()

	deleted, err := repo.Delete(artifact.ID)
	require.NoError(t, err)
	require.True(t, deleted)

	// The open handle still reads the full content after the unlink.
	data, err := io.ReadAll(file)
	require.NoError(t, err)
	require.Equal(t, []byte("streamed bytes"), data)
}

func TestListActiveSnapshot(t *testing.T) {
	repo, _ := newTestRepo(t, time.Hour)

	a, err := repo.Put([]byte("a"), "emp-1", models.Period{})
	require.NoError(t, err)
	b, err := repo.Put([]byte("b"), "emp-2", models.Period{})
	require.NoError(t, err)

	active := repo.ListActive()
	require.Len(t, active, 2)

	_, err = repo.Delete(a.ID)
	require.NoError(t, err)

	active = repo.ListActive()
	require.Len(t, active, 1)
	require.Equal(t, b.ID, active[0].ID)
}
