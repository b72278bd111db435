package blobstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"
)

// ErrNotFound is returned by Open when no blob exists under the key.
var ErrNotFound = errors.New("blob not found")

// PutResult describes one persisted image blob.
type PutResult struct {
	Key       string
	SHA256    string
	SizeBytes int64
}

// BlobInfo describes one stored blob for collection sweeps.
type BlobInfo struct {
	Key       string
	SizeBytes int64
	// ModifiedAt is the time of the last Put of these bytes.
	ModifiedAt time.Time
}

// BlobStore keeps post image bytes outside the post record.
//
// Keys are content addressed, so putting the same bytes twice yields the
// same key. Put refreshes ModifiedAt even when the content already exists,
// which is what lets a sweep skip blobs an in-flight write depends on.
type BlobStore interface {
	Put(ctx context.Context, data []byte) (PutResult, error)
	Open(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context) ([]BlobInfo, error)
}

// ReadAll opens key and returns its full contents.
func ReadAll(ctx context.Context, bs BlobStore, key string) ([]byte, error) {
	rc, err := bs.Open(ctx, key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

const blobKeyPrefix = "sha256"

// digestKey returns the key and hex digest for data.
func digestKey(data []byte) (key string, digest string) {
	sum := sha256.Sum256(data)
	digest = hex.EncodeToString(sum[:])
	return fmt.Sprintf("%s/%s/%s/%s", blobKeyPrefix, digest[0:2], digest[2:4], digest), digest
}
