package blobstore

import (
	"context"
	"fmt"

	"github.com/tracewell-io/tracewell/internal/config"
)

// NewFromConfig selects the filesystem backend when LocalPath is set
// (dev/test), otherwise GCS against Bucket, matching
// config.Config.Validate's requirement that at least one be configured.
func NewFromConfig(ctx context.Context, cfg config.BlobConfig) (Store, error) {
	if cfg.LocalPath != "" {
		return NewFS(cfg.LocalPath)
	}
	if cfg.Bucket != "" {
		return NewGCS(ctx, cfg.ProjectID, cfg.Bucket)
	}
	return nil, fmt.Errorf("blobstore: neither local_path nor bucket configured")
}
