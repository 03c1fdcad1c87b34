package blobstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/tracewell-io/tracewell/internal/metrics"
)

// FS is the local-filesystem Store implementation backing QUEUE_TYPE=memory
// and dev/test runs, so the full processor-to-query round trip is exercisable
// without cloud credentials, mirroring the teacher's pattern of an
// embedded/local fallback next to every networked backend.
type FS struct {
	root string
}

// NewFS creates (if missing) root and returns an FS backed by it.
func NewFS(root string) (*FS, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root %s: %w", root, err)
	}
	return &FS{root: root}, nil
}

func (f *FS) Put(ctx context.Context, key string, data []byte, meta Metadata) error {
	start := time.Now()
	path := filepath.Join(f.root, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		metrics.BlobPutErrors.WithLabelValues("fs").Inc()
		return fmt.Errorf("create dir for %s: %w", key, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		metrics.BlobPutErrors.WithLabelValues("fs").Inc()
		return fmt.Errorf("write %s: %w", key, err)
	}
	metrics.ObserveDuration(metrics.BlobPutDuration.WithLabelValues("fs"), start)
	return nil
}

func (f *FS) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(f.root, filepath.FromSlash(key)))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return data, nil
}

func (f *FS) Exists(ctx context.Context, key string) (bool, error) {
	_, err := os.Stat(filepath.Join(f.root, filepath.FromSlash(key)))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, err
}
