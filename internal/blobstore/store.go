package blobstore

import "context"

// Metadata carries the object headers every Put sets, mirroring
// eventId/runId/stepId the way the teacher's gcs client sets ContentType and
// CacheControl on its writer.
type Metadata struct {
	EventID string
	RunID   string
	StepID  string
}

// Store is the blob-store contract shared by the GCS-backed production
// implementation and the filesystem fallback used in dev/test.
type Store interface {
	// Put writes data under key, idempotently: an existence check followed by
	// a write is equivalent to an unconditional overwrite here because every
	// payload this store holds is immutable once its id is assigned.
	Put(ctx context.Context, key string, data []byte, meta Metadata) error
	// Get returns the payload for key, or ErrNotFound if absent.
	Get(ctx context.Context, key string) ([]byte, error)
	// Exists reports whether key has been written.
	Exists(ctx context.Context, key string) (bool, error)
}

var ErrNotFound = notFoundError{}

type notFoundError struct{}

func (notFoundError) Error() string { return "blobstore: object not found" }
