package blobstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/googleapi"

	"github.com/tracewell-io/tracewell/internal/metrics"
)

// GCS is the production Store backend: a Google Cloud Storage bucket,
// auto-created on first run (§6 "Bucket auto-created on first run"),
// grounded on the teacher's gcs.Client upload/writer pattern.
type GCS struct {
	client *storage.Client
	bucket string
}

// NewGCS opens a GCS client and ensures the target bucket exists, creating it
// in projectID if missing.
func NewGCS(ctx context.Context, projectID, bucketName string) (*GCS, error) {
	client, err := storage.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("create gcs client: %w", err)
	}

	bucket := client.Bucket(bucketName)
	if _, err := bucket.Attrs(ctx); err != nil {
		if !errors.Is(err, storage.ErrBucketNotExist) {
			return nil, fmt.Errorf("check bucket %s: %w", bucketName, err)
		}
		if err := bucket.Create(ctx, projectID, nil); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", bucketName, err)
		}
	}

	return &GCS{client: client, bucket: bucketName}, nil
}

func (g *GCS) Put(ctx context.Context, key string, data []byte, meta Metadata) error {
	start := time.Now()
	obj := g.client.Bucket(g.bucket).Object(key)
	w := obj.NewWriter(ctx)
	w.ContentType = "application/json"
	w.CacheControl = "no-cache, no-store, must-revalidate"
	w.Metadata = map[string]string{
		"eventId": meta.EventID,
		"runId":   meta.RunID,
		"stepId":  meta.StepID,
	}

	if _, err := w.Write(data); err != nil {
		metrics.BlobPutErrors.WithLabelValues("gcs").Inc()
		return fmt.Errorf("write %s: %w", key, err)
	}
	if err := w.Close(); err != nil {
		metrics.BlobPutErrors.WithLabelValues("gcs").Inc()
		return fmt.Errorf("close writer for %s: %w", key, err)
	}
	metrics.ObserveDuration(metrics.BlobPutDuration.WithLabelValues("gcs"), start)
	return nil
}

func (g *GCS) Get(ctx context.Context, key string) ([]byte, error) {
	r, err := g.client.Bucket(g.bucket).Object(key).NewReader(ctx)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("open reader for %s: %w", key, err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

func (g *GCS) Exists(ctx context.Context, key string) (bool, error) {
	_, err := g.client.Bucket(g.bucket).Object(key).Attrs(ctx)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, storage.ErrObjectNotExist) {
		return false, nil
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == 404 {
		return false, nil
	}
	return false, err
}
