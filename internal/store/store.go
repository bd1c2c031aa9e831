// Package store abstracts the backing object store the publisher writes
// trust artifacts to. Backends provide prefix listing, get/put with
// custom metadata, and optimistic conditional writes keyed on the
// object's entity tag; nothing more is assumed of them.
package store

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"time"
)

var (
	// ErrNotFound is returned by Get for a missing key.
	ErrNotFound = errors.New("object not found")
	// ErrPreconditionFailed is returned by Put when an IfMatch etag no
	// longer matches the stored object.
	ErrPreconditionFailed = errors.New("entity tag mismatch")
)

// Object is a stored artifact with its body and metadata.
type Object struct {
	Key        string
	Body       []byte
	Size       int64
	UploadedAt time.Time
	ETag       string
	Metadata   map[string]string
}

// ObjectInfo is the listing projection of an object.
type ObjectInfo struct {
	Key        string    `json:"key"`
	Size       int64     `json:"size"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// PutOptions carries custom metadata and an optional conditional-write
// constraint. An empty IfMatch means unconditional last-write-wins.
type PutOptions struct {
	Metadata map[string]string
	IfMatch  string
}

// ObjectStore is the backing store consumed by the pipeline. All
// implementations give last-write-wins semantics at the key level.
type ObjectStore interface {
	Get(ctx context.Context, key string) (*Object, error)
	Put(ctx context.Context, key string, body []byte, opt PutOptions) error
	List(ctx context.Context, prefix string) ([]ObjectInfo, error)
}

// ContentETag derives a deterministic entity tag from an object body.
// Backends without a native etag (SQLite, memory) use it; it also tags
// archive snapshots for number-less CRLs.
func ContentETag(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}
