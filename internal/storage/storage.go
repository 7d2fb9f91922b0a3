// Package storage defines the Backend interface dump and load operations
// use to read and write artifacts, independent of where those artifacts
// live (local disk, HTTP, S3, Azure Blob, or OCI Object Storage).
package storage

import (
	"context"
	"io"
	"time"
)

// ObjectInfo describes one artifact a backend knows about.
type ObjectInfo struct {
	Name         string
	Size         int64
	LastModified time.Time
}

// Backend is the storage abstraction every dump/load component reads and
// writes through. Implementations live in sibling packages (file, httpx,
// s3, azureblob, oci) and are selected at runtime from a URL scheme.
type Backend interface {
	// OpenRead opens name for streaming read. Callers must Close it.
	OpenRead(ctx context.Context, name string) (io.ReadCloser, error)

	// OpenWrite opens name for streaming write. Callers must Close it to
	// commit the object; backends that buffer (S3 multipart, PAR PUT) flush
	// on Close.
	OpenWrite(ctx context.Context, name string) (io.WriteCloser, error)

	// List enumerates every object whose name starts with prefix, including
	// objects in nested paths; names are relative to the backend's root.
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)

	// Stat returns metadata for a single object.
	Stat(ctx context.Context, name string) (ObjectInfo, error)

	// Remove deletes name.
	Remove(ctx context.Context, name string) error

	// SupportsRandomRead reports whether OpenRead callers may seek the
	// returned stream (file backend: yes; HTTP/object-store GET: no).
	SupportsRandomRead() bool
}

// RetryClassifier decides whether an error returned from a Backend call is
// worth retrying. The s3 backend supplies one that retries every error
// except context cancellation; internal/shellerr.KindOf classifies the
// wrapped error for the scheduler once the retry budget is exhausted.
type RetryClassifier func(err error) bool
