package driven

import (
	"context"
	"time"
)

// BlobStore holds raw uploads.
type BlobStore interface {
	// Put stores data under key, overwriting any existing blob.
	Put(ctx context.Context, key string, data []byte) error

	// Fetch returns the blob bytes or domain.ErrNotFound.
	Fetch(ctx context.Context, key string) ([]byte, error)

	// Delete removes the blob. Idempotent.
	Delete(ctx context.Context, key string) error

	// SignedURL returns a time-limited URL for direct client fetches.
	SignedURL(key string, ttl time.Duration) (string, error)

	// Verify checks a signature produced by SignedURL.
	// Returns domain.ErrInvalidSignature if it is wrong or expired.
	Verify(key string, expires int64, signature string) error
}
