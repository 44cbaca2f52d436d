// Package blobstore implements the Blob Store: read-only retrieval of
// attachment bytes by opaque key (SPEC_FULL.md §4.5). The worker never
// writes to it; the write path belongs to the out-of-scope attachment
// upload front door.
package blobstore

import "context"

// BlobStore is the interface the Dispatch Worker depends on.
type BlobStore interface {
	Get(ctx context.Context, blobKey string) (data []byte, contentType string, err error)
}
