// Package objectstore defines the bucket abstraction every DeltaGlider
// component talks to instead of a concrete S3 SDK: Get/Put/Head/List/
// Delete/Copy over a (bucket, key) pair, the hexagonal storage port
// named in spec.md §9. Adapted from the teacher's pkg/storage.Store,
// generalized from a content-hash blob store to an arbitrary-key object
// store carrying caller metadata.
package objectstore

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound is returned by Head and Get when the requested key does
// not exist in the bucket.
var ErrNotFound = errors.New("objectstore: object not found")

// ErrPreconditionFailed is returned by Put when a conditional write
// (IfNoneMatch) loses a race: the key already exists.
var ErrPreconditionFailed = errors.New("objectstore: precondition failed")

// ErrPermanent marks a backend failure a retry cannot fix: the caller
// lacks permission, or the bucket itself does not exist.
var ErrPermanent = errors.New("objectstore: permanent failure")

// Metadata is the object's user-defined metadata, namespaced under
// dg-* keys per spec.md §6.2.
type Metadata map[string]string

// ObjectInfo is what Head and List return about an object without
// fetching its body.
type ObjectInfo struct {
	Key          string
	Size         int64
	ETag         string
	LastModified time.Time
	Metadata     Metadata
}

// PutOptions controls how Put writes an object.
type PutOptions struct {
	// Metadata is attached to the object as user metadata.
	Metadata Metadata
	// ContentType, if set, is stored as the object's content type.
	ContentType string
	// IfNoneMatch, when true, makes the write conditional on the key
	// not already existing. Used by reference creation to win a
	// single-writer race without a manifest (spec.md §9).
	IfNoneMatch bool
}

// ListOptions narrows List to one prefix, optionally paginated.
type ListOptions struct {
	Prefix     string
	Delimiter  string
	StartAfter string
	MaxKeys    int
}

// ListPage is one page of List results. CommonPrefixes is populated
// only when Delimiter is set, mirroring S3's ListObjectsV2 semantics.
type ListPage struct {
	Objects        []ObjectInfo
	CommonPrefixes []string
	IsTruncated    bool
	NextStartAfter string
}

// Store is the capability interface every object-storage backend
// (S3-compatible service, in-memory test double) implements.
type Store interface {
	// Put writes data under key, replacing any existing object unless
	// opts.IfNoneMatch is set.
	Put(ctx context.Context, bucket, key string, data io.Reader, size int64, opts PutOptions) (ObjectInfo, error)

	// Get opens the object at key for reading. The caller must Close
	// the returned reader.
	Get(ctx context.Context, bucket, key string) (io.ReadCloser, ObjectInfo, error)

	// Head returns an object's metadata without fetching its body.
	Head(ctx context.Context, bucket, key string) (ObjectInfo, error)

	// List returns one page of objects under opts.Prefix.
	List(ctx context.Context, bucket string, opts ListOptions) (ListPage, error)

	// Delete removes the object at key. Deleting a missing key is not
	// an error.
	Delete(ctx context.Context, bucket, key string) error

	// Copy duplicates srcKey to dstKey server-side, without a
	// round-trip through the caller, attaching newMetadata if non-nil.
	Copy(ctx context.Context, bucket, srcKey, dstKey string, newMetadata Metadata) (ObjectInfo, error)
}
