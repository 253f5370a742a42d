package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStorage persists report files on disk under a single base directory.
type LocalStorage struct {
	baseDir string
}

// FileInfo describes one stored file, used to rebuild the artifact index.
type FileInfo struct {
	Name    string
	Size    int64
	ModTime time.Time
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./generated_pdfs"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create reports directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

// SaveAtomic writes data to filename so the final path is never observable
// half-written: the bytes go to a temp file in the same directory, are
// synced, and then renamed into place.
func (s *LocalStorage) SaveAtomic(filename string, data []byte) (int64, error) {
	path := s.resolve(filename)

	tmp, err := os.CreateTemp(s.baseDir, ".tmp-*")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()           //nolint:errcheck
		os.Remove(tmpPath)    //nolint:errcheck
		return 0, fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()           //nolint:errcheck
		os.Remove(tmpPath)    //nolint:errcheck
		return 0, fmt.Errorf("sync temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath) //nolint:errcheck
		return 0, fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath) //nolint:errcheck
		return 0, fmt.Errorf("rename report file: %w", err)
	}
	return int64(len(data)), nil
}

// Open returns a read-only handle for the stored file.
func (s *LocalStorage) Open(filename string) (*os.File, error) {
	file, err := os.Open(s.resolve(filename))
	if err != nil {
		return nil, fmt.Errorf("open report file: %w", err)
	}
	return file, nil
}

// Remove deletes a stored file. A missing file is not an error.
// On POSIX filesystems only the directory entry goes away: readers that
// already hold an open handle can still drain the file.
func (s *LocalStorage) Remove(filename string) error {
	if err := os.Remove(s.resolve(filename)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete report file: %w", err)
	}
	return nil
}

// List enumerates stored files with their size and modification time,
// skipping leftover temp files.
func (s *LocalStorage) List() ([]FileInfo, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		return nil, fmt.Errorf("list reports directory: %w", err)
	}
	files := make([]FileInfo, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".tmp-") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			return nil, fmt.Errorf("stat report file %s: %w", name, err)
		}
		files = append(files, FileInfo{Name: name, Size: info.Size(), ModTime: info.ModTime()})
	}
	return files, nil
}

// Path exposes the underlying absolute path (useful for debugging).
func (s *LocalStorage) Path(filename string) string {
	return s.resolve(filename)
}

func (s *LocalStorage) resolve(filename string) string {
	if filepath.IsAbs(filename) {
		return filename
	}
	return filepath.Join(s.baseDir, filepath.Base(filename))
}
