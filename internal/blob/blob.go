// Package blob uploads export files to object storage.
package blob

import (
	"context"
	"io"
)

// Uploader stores body under key in its configured bucket or directory.
type Uploader interface {
	Upload(ctx context.Context, key string, body io.Reader) error
	Bucket() string
	// Backend names the storage service, e.g. "S3".
	Backend() string
}
