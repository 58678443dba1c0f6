// Package engine implements DeltaGlider's storage engine (spec.md §4):
// the component that decides, for every put, whether an object becomes
// a group's reference, a delta against that reference, or a direct
// (undeltified) object, and reverses that decision transparently on
// every get. It is the hexagonal core named in spec.md §9, driven
// entirely through the objectstore.Store and deltacodec ports so a
// caller can swap the S3 backend or the codec without touching engine
// logic.
package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/beshu-tech/deltaglider/internal/metrics"
	"github.com/beshu-tech/deltaglider/pkg/classifier"
	"github.com/beshu-tech/deltaglider/pkg/deltacodec"
	"github.com/beshu-tech/deltaglider/pkg/dghash"
	"github.com/beshu-tech/deltaglider/pkg/engine/response"
	"github.com/beshu-tech/deltaglider/pkg/objectkey"
	"github.com/beshu-tech/deltaglider/pkg/objectstore"
	"github.com/beshu-tech/deltaglider/pkg/refcache"
)

// Config bounds the engine's delta-vs-direct decision and wires its
// dependencies.
type Config struct {
	Store    objectstore.Store
	Cache    refcache.Cache
	Metrics  metrics.Sink
	Logger   *slog.Logger
	MaxRatio float64 // delta/original cutoff; above this, fall back to direct
}

// Engine is DeltaGlider's storage engine.
type Engine struct {
	store    objectstore.Store
	cache    refcache.Cache
	metrics  metrics.Sink
	logger   *slog.Logger
	maxRatio float64
}

// New validates cfg and returns an Engine.
func New(cfg Config) (*Engine, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("%w: store is required", ErrConfigError)
	}
	if cfg.MaxRatio <= 0 || cfg.MaxRatio > 1 {
		return nil, fmt.Errorf("%w: max ratio must be in (0,1], got %f", ErrConfigError, cfg.MaxRatio)
	}
	m := cfg.Metrics
	if m == nil {
		m = metrics.Noop{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	cache := cfg.Cache
	if cache == nil {
		return nil, fmt.Errorf("%w: cache is required", ErrConfigError)
	}
	return &Engine{store: cfg.Store, cache: cache, metrics: m, logger: logger, maxRatio: cfg.MaxRatio}, nil
}

// storeHead, storeGet, storePut, storeDelete, storeList and storeCopy
// wrap the corresponding objectstore.Store calls with jittered
// exponential backoff (retry.go), retrying anything other than a
// not-found, precondition-failed or permanent-failure result. Put takes the body as a
// byte slice rather than io.Reader so a retried attempt can rewind.
func (e *Engine) storeHead(ctx context.Context, bucket, key string) (objectstore.ObjectInfo, error) {
	return withRetry(ctx, defaultRetry, retryTransient, func(ctx context.Context) (objectstore.ObjectInfo, error) {
		return e.store.Head(ctx, bucket, key)
	})
}

func (e *Engine) storeGet(ctx context.Context, bucket, key string) (io.ReadCloser, objectstore.ObjectInfo, error) {
	type result struct {
		body io.ReadCloser
		info objectstore.ObjectInfo
	}
	r, err := withRetry(ctx, defaultRetry, retryTransient, func(ctx context.Context) (result, error) {
		body, info, err := e.store.Get(ctx, bucket, key)
		return result{body, info}, err
	})
	return r.body, r.info, err
}

func (e *Engine) storePut(ctx context.Context, bucket, key string, data []byte, opts objectstore.PutOptions) (objectstore.ObjectInfo, error) {
	return withRetry(ctx, defaultRetry, retryTransient, func(ctx context.Context) (objectstore.ObjectInfo, error) {
		return e.store.Put(ctx, bucket, key, bytes.NewReader(data), int64(len(data)), opts)
	})
}

func (e *Engine) storeDelete(ctx context.Context, bucket, key string) error {
	_, err := withRetry(ctx, defaultRetry, retryTransient, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, e.store.Delete(ctx, bucket, key)
	})
	return err
}

func (e *Engine) storeList(ctx context.Context, bucket string, opts objectstore.ListOptions) (objectstore.ListPage, error) {
	return withRetry(ctx, defaultRetry, retryTransient, func(ctx context.Context) (objectstore.ListPage, error) {
		return e.store.List(ctx, bucket, opts)
	})
}

func (e *Engine) storeCopy(ctx context.Context, bucket, srcKey, dstKey string, newMetadata objectstore.Metadata) (objectstore.ObjectInfo, error) {
	return withRetry(ctx, defaultRetry, retryTransient, func(ctx context.Context) (objectstore.ObjectInfo, error) {
		return e.store.Copy(ctx, bucket, srcKey, dstKey, newMetadata)
	})
}

// PutObject uploads body at (bucket, key), transparently storing it as
// a group reference, a delta against the group's reference, or a
// direct object, per spec.md §4.1-§4.3.
func (e *Engine) PutObject(ctx context.Context, bucket, key string, body io.Reader, size int64) (response.PutObjectOutput, error) {
	dest := objectkey.Destination{Bucket: bucket, Key: key}

	data, err := io.ReadAll(body)
	if err != nil {
		return response.PutObjectOutput{}, fmt.Errorf("engine: read put body: %w", err)
	}
	sha256 := dghash.SumBytes(data)
	decision := classifier.Classify(dest.Filename(), int64(len(data)))

	if decision != classifier.DeltaCandidate {
		return e.putDirect(ctx, dest, data, sha256)
	}
	return e.putDeltaCandidate(ctx, dest, data, sha256)
}

func (e *Engine) putDirect(ctx context.Context, dest objectkey.Destination, data []byte, sha256 string) (response.PutObjectOutput, error) {
	meta := newObjectMetadata(kindDirect, sha256, dest.GroupID())
	meta = withOriginalSize(meta, int64(len(data)))

	info, err := e.storePut(ctx, dest.Bucket, dest.DirectStorageKey(), data, objectstore.PutOptions{
		Metadata: meta,
	})
	if err != nil {
		return response.PutObjectOutput{}, classifyStoreError(err)
	}

	return response.PutObjectOutput{
		ETag:         info.ETag,
		IsDelta:      false,
		OriginalSize: int64(len(data)),
		StoredSize:   int64(len(data)),
		Ratio:        0,
		Metadata:     externalMetadata(meta, false),
	}, nil
}

func (e *Engine) putDeltaCandidate(ctx context.Context, dest objectkey.Destination, data []byte, sha256 string) (response.PutObjectOutput, error) {
	refKey := dest.ReferenceKey()

	refInfo, err := e.storeHead(ctx, dest.Bucket, refKey)
	switch {
	case err == nil:
		referenceBytes, err := e.fetchReferenceBytes(ctx, dest.Bucket, refKey, refInfo.Metadata[metaSHA256])
		if err != nil {
			return response.PutObjectOutput{}, err
		}
		return e.createDelta(ctx, dest, data, sha256, referenceBytes, refInfo)

	case err == objectstore.ErrNotFound:
		out, created, err := e.tryCreateReference(ctx, dest, data, sha256)
		if err != nil {
			return response.PutObjectOutput{}, err
		}
		if created {
			return out, nil
		}
		// Lost the race: another writer created the reference first.
		// Fall through to the delta path against what's there now.
		refInfo, err := e.storeHead(ctx, dest.Bucket, refKey)
		if err != nil {
			return response.PutObjectOutput{}, classifyStoreError(err)
		}
		referenceBytes, err := e.fetchReferenceBytes(ctx, dest.Bucket, refKey, refInfo.Metadata[metaSHA256])
		if err != nil {
			return response.PutObjectOutput{}, err
		}
		return e.createDelta(ctx, dest, data, sha256, referenceBytes, refInfo)

	default:
		return response.PutObjectOutput{}, classifyStoreError(err)
	}
}

// tryCreateReference attempts to win the single-writer race to create
// a group's reference (spec.md §9): the reference write is conditional
// on the key not already existing, so two concurrent first-uploads to
// an empty group resolve to exactly one reference, with the loser
// falling back to a normal delta.
func (e *Engine) tryCreateReference(ctx context.Context, dest objectkey.Destination, data []byte, sha256 string) (response.PutObjectOutput, bool, error) {
	refMeta := newObjectMetadata(kindReference, sha256, dest.GroupID())
	refMeta = withOriginalSize(refMeta, int64(len(data)))

	_, err := e.storePut(ctx, dest.Bucket, dest.ReferenceKey(), data, objectstore.PutOptions{
		Metadata:    refMeta,
		IfNoneMatch: true,
	})
	if err == objectstore.ErrPreconditionFailed {
		return response.PutObjectOutput{}, false, nil
	}
	if err != nil {
		return response.PutObjectOutput{}, false, classifyStoreError(err)
	}

	// Always write the anchor: the logical object at dest.Key must
	// resolve through the same delta path every later version does,
	// so the group's first version is recorded as a zero-byte anchor
	// delta against the reference it equals exactly, per spec.md's
	// decision to always write an anchor rather than special-case the
	// first upload.
	deltaMeta := newObjectMetadata(kindDelta, sha256, dest.GroupID())
	deltaMeta = withOriginalSize(deltaMeta, int64(len(data)))
	deltaMeta = withDeltaStats(deltaMeta, 0, int64(len(data)), dest.ReferenceKey(), sha256)

	info, err := e.storePut(ctx, dest.Bucket, dest.DeltaStorageKey(), []byte{}, objectstore.PutOptions{
		Metadata: deltaMeta,
	})
	if err != nil {
		return response.PutObjectOutput{}, false, classifyStoreError(err)
	}

	e.metrics.ObserveDeltaRatio(1)
	e.metrics.ObserveBytesSaved(int64(len(data)))

	return response.PutObjectOutput{
		ETag:         info.ETag,
		IsDelta:      true,
		OriginalSize: int64(len(data)),
		StoredSize:   0,
		Ratio:        1,
		Metadata:     externalMetadata(deltaMeta, true),
	}, true, nil
}

func (e *Engine) createDelta(ctx context.Context, dest objectkey.Destination, data []byte, sha256 string, referenceBytes []byte, refInfo objectstore.ObjectInfo) (response.PutObjectOutput, error) {
	index := deltacodec.Index(referenceBytes)
	delta, err := deltacodec.Diff(index, data)
	if err != nil {
		return response.PutObjectOutput{}, fmt.Errorf("engine: diff against reference: %w", err)
	}

	ratio := float64(len(delta)) / float64(max(len(data), 1))
	if ratio > e.maxRatio {
		e.logger.Warn("delta ratio exceeds max, falling back to direct storage",
			"key", dest.Key, "ratio", ratio, "max_ratio", e.maxRatio)
		return e.putDirect(ctx, dest, data, sha256)
	}

	referenceSHA256 := refInfo.Metadata[metaSHA256]

	meta := newObjectMetadata(kindDelta, sha256, dest.GroupID())
	meta = withOriginalSize(meta, int64(len(data)))
	meta = withDeltaStats(meta, int64(len(delta)), int64(len(data)), dest.ReferenceKey(), referenceSHA256)

	info, err := e.storePut(ctx, dest.Bucket, dest.DeltaStorageKey(), delta, objectstore.PutOptions{
		Metadata: meta,
	})
	if err != nil {
		return response.PutObjectOutput{}, classifyStoreError(err)
	}

	e.metrics.ObserveDeltaRatio(ratio)
	e.metrics.ObserveBytesSaved(int64(len(data) - len(delta)))

	return response.PutObjectOutput{
		ETag:         info.ETag,
		IsDelta:      true,
		OriginalSize: int64(len(data)),
		StoredSize:   int64(len(delta)),
		Ratio:        1 - ratio,
		Metadata:     externalMetadata(meta, true),
	}, nil
}

// referenceCacheKey derives the reference cache's composite key
// (spec.md §4.5's (bucket, ref_key, ref_sha256) tuple): one Engine
// instance serves every bucket passed to it, and a reference can be
// replaced with new content between two requests, so a cache key
// built from the group prefix alone risks a hit against the wrong
// bucket's or the wrong generation's bytes.
func referenceCacheKey(bucket, refKey, refSHA256 string) string {
	return bucket + "::" + refKey + "::" + refSHA256
}

// fetchReferenceBytes returns a group's reference bytes for refKey via
// the reference cache, populating it from the store on a miss, and
// verifying the result against expectedSHA256 before returning it
// (spec.md §4.4 step 3). A hash mismatch evicts the stale cache entry
// and retries once directly against the store (spec.md §4.5
// "Invalidation"); a second mismatch fails with ErrIntegrityFailure
// (which also matches ErrReferenceCorrupt under errors.Is) rather than
// handing back bytes that don't match the digest recorded at upload
// time.
func (e *Engine) fetchReferenceBytes(ctx context.Context, bucket, refKey, expectedSHA256 string) ([]byte, error) {
	cacheKey := referenceCacheKey(bucket, refKey, expectedSHA256)

	data, err := e.populateReference(ctx, bucket, refKey, cacheKey)
	if err != nil {
		return nil, err
	}
	if expectedSHA256 == "" || dghash.Matches(expectedSHA256, data) {
		return data, nil
	}

	if err := e.cache.Invalidate(ctx, cacheKey); err != nil {
		return nil, fmt.Errorf("engine: invalidate reference cache for %s: %w", refKey, err)
	}
	data, err = e.populateReference(ctx, bucket, refKey, cacheKey)
	if err != nil {
		return nil, err
	}
	if !dghash.Matches(expectedSHA256, data) {
		return nil, fmt.Errorf("%w: %w: reference %s sha256 mismatch persisted after cache invalidation and retry", ErrIntegrityFailure, ErrReferenceCorrupt, refKey)
	}
	return data, nil
}

func (e *Engine) populateReference(ctx context.Context, bucket, refKey, cacheKey string) ([]byte, error) {
	rc, err := e.cache.Get(ctx, cacheKey, func(ctx context.Context) (io.ReadCloser, int64, error) {
		e.metrics.IncrCacheMiss()
		body, info, err := e.storeGet(ctx, bucket, refKey)
		if err != nil {
			return nil, 0, classifyStoreError(err)
		}
		return body, info.Size, nil
	})
	if err != nil {
		return nil, fmt.Errorf("engine: populate reference cache for %s: %w", refKey, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("%w: read cached reference %s: %v", ErrReferenceCorrupt, refKey, err)
	}
	return data, nil
}

// headBoth HEADs both the direct and delta storage keys for dest,
// never short-circuiting on the first hit: spec.md §4.4 step 1
// requires observing both keys before deciding anything, so a bucket
// state with both present is detected and rejected as
// ErrStorageInconsistency rather than silently resolved by whichever
// HEAD happened to come back first.
func (e *Engine) headBoth(ctx context.Context, bucket string, dest objectkey.Destination) (direct, delta objectstore.ObjectInfo, directExists, deltaExists bool, err error) {
	directInfo, directErr := e.storeHead(ctx, bucket, dest.DirectStorageKey())
	if directErr != nil && directErr != objectstore.ErrNotFound {
		return objectstore.ObjectInfo{}, objectstore.ObjectInfo{}, false, false, classifyStoreError(directErr)
	}
	directExists = directErr == nil && directInfo.Metadata[metaKind] != kindDelta

	deltaInfo, deltaErr := e.storeHead(ctx, bucket, dest.DeltaStorageKey())
	if deltaErr != nil && deltaErr != objectstore.ErrNotFound {
		return objectstore.ObjectInfo{}, objectstore.ObjectInfo{}, false, false, classifyStoreError(deltaErr)
	}
	deltaExists = deltaErr == nil

	if directExists && deltaExists {
		return objectstore.ObjectInfo{}, objectstore.ObjectInfo{}, false, false,
			fmt.Errorf("%w: both %s and %s exist for %s", ErrStorageInconsistency, dest.DirectStorageKey(), dest.DeltaStorageKey(), dest.Key)
	}
	return directInfo, deltaInfo, directExists, deltaExists, nil
}

// GetObject fetches the logical object at (bucket, key), transparently
// patching a delta against its group's reference when the object was
// stored that way (spec.md §4.4).
func (e *Engine) GetObject(ctx context.Context, bucket, key string) (io.ReadCloser, response.GetObjectOutput, error) {
	dest := objectkey.Destination{Bucket: bucket, Key: key}

	directInfo, deltaInfo, directExists, deltaExists, err := e.headBoth(ctx, bucket, dest)
	if err != nil {
		return nil, response.GetObjectOutput{}, err
	}
	if !directExists && !deltaExists {
		return nil, response.GetObjectOutput{}, ErrObjectNotFound
	}
	if directExists {
		body, _, err := e.storeGet(ctx, bucket, dest.DirectStorageKey())
		if err != nil {
			return nil, response.GetObjectOutput{}, classifyStoreError(err)
		}
		return body, outputFromInfo(directInfo, false), nil
	}

	deltaBody, _, err := e.storeGet(ctx, bucket, dest.DeltaStorageKey())
	if err != nil {
		return nil, response.GetObjectOutput{}, classifyStoreError(err)
	}
	deltaBytes, err := io.ReadAll(deltaBody)
	deltaBody.Close()
	if err != nil {
		return nil, response.GetObjectOutput{}, fmt.Errorf("engine: read delta %s: %w", key, err)
	}

	refKey := deltaInfo.Metadata[metaRefKey]
	if refKey == "" {
		refKey = objectkey.ReferenceKeyForPrefix(dest.Prefix())
	}
	referenceBytes, err := e.fetchReferenceBytes(ctx, bucket, refKey, deltaInfo.Metadata[metaRefSHA256])
	if err != nil {
		return nil, response.GetObjectOutput{}, err
	}

	var reconstructed []byte
	if len(deltaBytes) == 0 {
		// A zero-byte delta is the group's anchor: the logical object
		// is byte-identical to the reference, so there's nothing to
		// patch (spec.md §4.3's anchor convention).
		reconstructed = referenceBytes
	} else {
		reconstructed, err = deltacodec.Patch(referenceBytes, deltaBytes)
		if err != nil {
			return nil, response.GetObjectOutput{}, fmt.Errorf("%w: patch %s: %v", ErrStorageInconsistency, key, err)
		}
	}

	if expected, ok := deltaInfo.Metadata[metaSHA256]; ok && !dghash.Matches(expected, reconstructed) {
		return nil, response.GetObjectOutput{}, fmt.Errorf("%w: %s", ErrIntegrityFailure, key)
	}

	e.metrics.IncrCacheHit()
	return io.NopCloser(bytes.NewReader(reconstructed)), outputFromInfo(deltaInfo, true), nil
}

// HeadObject returns metadata about the logical object at (bucket,
// key) without reading its body, reporting the logical (pre-delta)
// size rather than the physical delta size (spec.md §4.8).
func (e *Engine) HeadObject(ctx context.Context, bucket, key string) (response.HeadObjectOutput, error) {
	dest := objectkey.Destination{Bucket: bucket, Key: key}

	directInfo, deltaInfo, directExists, deltaExists, err := e.headBoth(ctx, bucket, dest)
	if err != nil {
		return response.HeadObjectOutput{}, err
	}
	if !directExists && !deltaExists {
		return response.HeadObjectOutput{}, ErrObjectNotFound
	}
	if directExists {
		out := outputFromInfo(directInfo, false)
		return response.HeadObjectOutput{ContentLength: out.ContentLength, ETag: out.ETag, LastModified: out.LastModified, Metadata: out.Metadata}, nil
	}

	size := deltaInfo.Size
	if original, ok := metaInt64(deltaInfo.Metadata, metaSize); ok {
		size = original
	}

	return response.HeadObjectOutput{
		ContentLength: size,
		ETag:          entityTag(deltaInfo),
		LastModified:  deltaInfo.LastModified,
		Metadata:      externalMetadata(deltaInfo.Metadata, true),
		IsDelta:       true,
	}, nil
}

// externalMetadata translates the engine's internal dg-* metadata
// fields into the deltaglider-* namespaced contract every boto3-shaped
// response exposes (spec.md §6.2): a caller unaware of DeltaGlider's
// internal field names still gets is-delta, original-size,
// compression-ratio, ref-key, sha256 and tool-version under one
// documented prefix.
func externalMetadata(meta objectstore.Metadata, isDelta bool) map[string]string {
	out := map[string]string{"deltaglider-is-delta": "false"}
	if isDelta {
		out["deltaglider-is-delta"] = "true"
	}
	if sha, ok := meta[metaSHA256]; ok {
		out["deltaglider-sha256"] = sha
	}
	if tv, ok := meta[metaToolVersion]; ok {
		out["deltaglider-tool-version"] = tv
	}
	if size, ok := meta[metaSize]; ok {
		out["deltaglider-original-size"] = size
	}
	if isDelta {
		if ratio, ok := meta[metaRatio]; ok {
			out["deltaglider-compression-ratio"] = ratio
		}
		if refKey, ok := meta[metaRefKey]; ok {
			out["deltaglider-ref-key"] = refKey
		}
	}
	return out
}

// entityTag returns dg-sha256, hex-encoded, as the object's strong
// entity tag (spec.md §4.8) rather than the backend's own transport
// ETag, which for a delta's physical bytes would describe the encoded
// delta, not the logical object's identity. Falls back to the
// store-reported ETag only when no digest was recorded (never the case
// for an object this engine wrote, but true of pre-existing objects a
// bucket already held before DeltaGlider managed it).
func entityTag(info objectstore.ObjectInfo) string {
	if sha, ok := info.Metadata[metaSHA256]; ok && sha != "" {
		return sha
	}
	return info.ETag
}

func outputFromInfo(info objectstore.ObjectInfo, isDelta bool) response.GetObjectOutput {
	size := info.Size
	if original, ok := metaInt64(info.Metadata, metaSize); ok {
		size = original
	}
	return response.GetObjectOutput{
		ContentLength: size,
		ETag:          entityTag(info),
		LastModified:  info.LastModified,
		Metadata:      externalMetadata(info.Metadata, isDelta),
	}
}

// ListObjects lists logical objects under prefix, hiding reference.bin
// internals and collapsing each delta's physical ".dg" key back to its
// logical key (spec.md §4.6).
func (e *Engine) ListObjects(ctx context.Context, bucket string, opts objectstore.ListOptions) (response.ListObjectsOutput, error) {
	page, err := e.storeList(ctx, bucket, opts)
	if err != nil {
		return response.ListObjectsOutput{}, classifyStoreError(err)
	}

	out := response.ListObjectsOutput{
		CommonPrefixes: page.CommonPrefixes,
		IsTruncated:    page.IsTruncated,
		NextStartAfter: page.NextStartAfter,
	}
	for _, obj := range page.Objects {
		if isReferenceKey(obj.Key) || isTempKey(obj.Key) {
			continue
		}
		logicalKey, isDelta := objectkey.LogicalKeyFromDeltaKey(obj.Key)
		meta := obj.Metadata
		size := obj.Size
		if isDelta {
			// S3's ListObjectsV2 never returns user metadata, so the
			// deltaglider-* fields spec.md §4.6 requires on delta
			// entries have to be read back with a Head call per
			// delta, the same tradeoff walkGroup makes for Stats and
			// PurgeGroup.
			if info, err := e.storeHead(ctx, bucket, obj.Key); err == nil {
				meta = info.Metadata
			}
			if original, ok := metaInt64(meta, metaSize); ok {
				size = original
			}
		}
		out.Contents = append(out.Contents, response.ObjectSummary{
			Key:          logicalKey,
			Size:         size,
			ETag:         obj.ETag,
			LastModified: obj.LastModified,
			Metadata:     externalMetadata(meta, isDelta),
		})
	}
	return out, nil
}

func isReferenceKey(key string) bool {
	_, name := splitLast(key)
	return name == objectkey.ReferenceName
}

func isTempKey(key string) bool {
	return hasTempPrefix(key)
}

func splitLast(key string) (prefix, name string) {
	for i := len(key) - 1; i >= 0; i-- {
		if key[i] == '/' {
			return key[:i], key[i+1:]
		}
	}
	return "", key
}

// DeleteObject removes the logical object at (bucket, key). Deleting a
// delta only removes that version; the group's reference and sibling
// deltas are untouched, per spec.md §4.7's non-cascading delete.
func (e *Engine) DeleteObject(ctx context.Context, bucket, key string) (response.DeleteObjectOutput, error) {
	dest := objectkey.Destination{Bucket: bucket, Key: key}

	if _, err := e.storeHead(ctx, bucket, dest.DeltaStorageKey()); err == nil {
		if err := e.storeDelete(ctx, bucket, dest.DeltaStorageKey()); err != nil {
			return response.DeleteObjectOutput{}, classifyStoreError(err)
		}
		return response.DeleteObjectOutput{Deleted: true}, nil
	}

	if err := e.storeDelete(ctx, bucket, dest.DirectStorageKey()); err != nil {
		return response.DeleteObjectOutput{}, classifyStoreError(err)
	}
	return response.DeleteObjectOutput{Deleted: true}, nil
}

// DeleteObjects deletes each key in turn, continuing past individual
// failures and returning the first error encountered alongside however
// many succeeded.
func (e *Engine) DeleteObjects(ctx context.Context, bucket string, keys []string) (int, error) {
	var firstErr error
	deleted := 0
	for _, key := range keys {
		if _, err := e.DeleteObject(ctx, bucket, key); err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		deleted++
	}
	return deleted, firstErr
}

// CopyObject copies the logical object at (srcBucket, srcKey) to
// (dstBucket, dstKey). Every source object, direct or delta, is read in
// full through GetObject and written again through PutObject, so the
// destination is classified and delta-encoded against its own group's
// reference; no server-side store copy is used.
func (e *Engine) CopyObject(ctx context.Context, srcBucket, srcKey, dstBucket, dstKey string) (response.CopyObjectOutput, error) {
	body, _, err := e.GetObject(ctx, srcBucket, srcKey)
	if err != nil {
		return response.CopyObjectOutput{}, err
	}
	defer body.Close()

	data, err := io.ReadAll(body)
	if err != nil {
		return response.CopyObjectOutput{}, fmt.Errorf("engine: read source for copy: %w", err)
	}

	out, err := e.PutObject(ctx, dstBucket, dstKey, bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return response.CopyObjectOutput{}, err
	}
	return response.CopyObjectOutput{ETag: out.ETag, LastModified: time.Now()}, nil
}

func classifyStoreError(err error) error {
	if err == nil {
		return nil
	}
	if err == objectstore.ErrNotFound {
		return ErrObjectNotFound
	}
	if err == objectstore.ErrPreconditionFailed {
		return err
	}
	if errors.Is(err, objectstore.ErrPermanent) {
		return fmt.Errorf("%w: %v", ErrPermanentStore, err)
	}
	return fmt.Errorf("%w: %v", ErrTransientStore, err)
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}
