// Package blob defines the contract with the object store and its
// S3-compatible implementation. The core only ever needs four operations:
// presigned PUT and GET URLs, reading an object back for server-side hash
// verification, and removing an object on asset deletion.
package blob

import (
	"context"
	"time"
)

// Gateway is the object-store boundary used by the services.
type Gateway interface {
	// CreateSignedUploadURL returns a presigned PUT URL for the path.
	CreateSignedUploadURL(ctx context.Context, path string) (string, error)
	// CreateSignedURL returns a presigned GET URL for the path with the
	// given TTL.
	CreateSignedURL(ctx context.Context, path string, ttl time.Duration) (string, error)
	// ReadObject fetches the object bytes at path.
	ReadObject(ctx context.Context, path string) ([]byte, error)
	// Remove deletes the object at path.
	Remove(ctx context.Context, path string) error
}
