package model

import (
	"context"
	"io"
)

// BlobMetadata travels with an identity picture. UploadDate is RFC 3339.
// The boundary layer uses ContentType and OriginalName for response headers.
type BlobMetadata struct {
	AccountID    string
	UploadDate   string
	ContentType  string
	Size         int64
	OriginalName string
}

// Storage stores identity-picture binaries addressed by an opaque key.
type Storage interface {
	// Upload consumes reader to completion; the object only becomes
	// addressable once Upload returns nil.
	Upload(ctx context.Context, key string, reader io.Reader, size int64, meta BlobMetadata) error
	// Download returns the object stream and its metadata, or an
	// ErrNotFound-kind error when key does not resolve.
	Download(ctx context.Context, key string) (io.ReadCloser, BlobMetadata, error)
	Delete(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
}
