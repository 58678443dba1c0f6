// Package refcache implements the local reference cache (spec.md §4.5):
// every patch operation needs the group's reference bytes on the local
// machine, and re-fetching a multi-hundred-megabyte reference from the
// object store on every GetObject would defeat the point of storing
// deltas at all. The cache fronts a Populate callback with single-flight
// coalescing, so concurrent misses for the same group share one fetch,
// and an LRU-bounded backend (filesystem or in-memory) evicts cold
// references under a size budget.
package refcache

import (
	"context"
	"fmt"
	"io"
)

// Cache stores reference bytes keyed by an opaque cacheKey, populating
// on miss. Callers derive cacheKey from the (bucket, ref_key,
// ref_sha256) tuple spec.md §4.5 defines identity by, not from the
// group prefix alone: the same prefix can mean different buckets or
// different reference generations, and either would otherwise collide
// on a bare group ID.
type Cache interface {
	// Get returns the cached reference for cacheKey, calling populate
	// to fetch it on a miss. Concurrent Get calls for the same
	// cacheKey share one populate call.
	Get(ctx context.Context, cacheKey string, populate PopulateFunc) (io.ReadCloser, error)

	// Invalidate drops any cached entry for cacheKey, used when a
	// reference is deleted or replaced.
	Invalidate(ctx context.Context, cacheKey string) error

	// Stats reports current cache occupancy for operational visibility.
	Stats() Stats
}

// PopulateFunc fetches the authoritative reference bytes for a cache
// miss. It is called at most once per concurrent wave of misses for the
// same cache key.
type PopulateFunc func(ctx context.Context) (io.ReadCloser, int64, error)

// Stats describes a cache's current occupancy.
type Stats struct {
	Entries    int
	BytesUsed  int64
	BytesQuota int64
}

// ErrEntryTooLarge is returned by Get when a populated reference is
// larger than the cache's byte quota and therefore can never be cached.
var ErrEntryTooLarge = fmt.Errorf("refcache: entry exceeds cache quota")
