// Package memstore is an in-memory objectstore.Store used by tests and
// by the CLI's local-only modes. It has no ecosystem-library analogue:
// the teacher's disk adapter persists to a real filesystem, so an
// in-process map is new code, grounded on the shape of that adapter's
// Put/Get/Has rather than on any specific third-party package.
package memstore

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/beshu-tech/deltaglider/pkg/dghash"
	"github.com/beshu-tech/deltaglider/pkg/objectstore"
)

type object struct {
	data []byte
	info objectstore.ObjectInfo
}

// Store is a mutex-guarded, in-memory implementation of
// objectstore.Store, one map of buckets to key->object maps.
type Store struct {
	mu      sync.RWMutex
	buckets map[string]map[string]object
}

// New returns an empty Store.
func New() *Store {
	return &Store{buckets: make(map[string]map[string]object)}
}

func (s *Store) bucketMap(bucket string) map[string]object {
	b, ok := s.buckets[bucket]
	if !ok {
		b = make(map[string]object)
		s.buckets[bucket] = b
	}
	return b
}

func (s *Store) Put(_ context.Context, bucket, key string, data io.Reader, size int64, opts objectstore.PutOptions) (objectstore.ObjectInfo, error) {
	buf, err := io.ReadAll(data)
	if err != nil {
		return objectstore.ObjectInfo{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.bucketMap(bucket)
	if opts.IfNoneMatch {
		if _, exists := b[key]; exists {
			return objectstore.ObjectInfo{}, objectstore.ErrPreconditionFailed
		}
	}

	info := objectstore.ObjectInfo{
		Key:          key,
		Size:         int64(len(buf)),
		ETag:         dghash.SumBytes(buf),
		LastModified: time.Now(),
		Metadata:     cloneMetadata(opts.Metadata),
	}
	b[key] = object{data: buf, info: info}
	return info, nil
}

func (s *Store) Get(_ context.Context, bucket, key string) (io.ReadCloser, objectstore.ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.buckets[bucket][key]
	if !ok {
		return nil, objectstore.ObjectInfo{}, objectstore.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(obj.data)), obj.info, nil
}

func (s *Store) Head(_ context.Context, bucket, key string) (objectstore.ObjectInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	obj, ok := s.buckets[bucket][key]
	if !ok {
		return objectstore.ObjectInfo{}, objectstore.ErrNotFound
	}
	return obj.info, nil
}

func (s *Store) List(_ context.Context, bucket string, opts objectstore.ListOptions) (objectstore.ListPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var keys []string
	for k := range s.buckets[bucket] {
		if opts.Prefix != "" && !strings.HasPrefix(k, opts.Prefix) {
			continue
		}
		if opts.StartAfter != "" && k <= opts.StartAfter {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var page objectstore.ListPage
	seenPrefixes := make(map[string]bool)

	for _, k := range keys {
		if opts.Delimiter != "" {
			rest := strings.TrimPrefix(k, opts.Prefix)
			if idx := strings.Index(rest, opts.Delimiter); idx >= 0 {
				cp := opts.Prefix + rest[:idx+len(opts.Delimiter)]
				if !seenPrefixes[cp] {
					seenPrefixes[cp] = true
					page.CommonPrefixes = append(page.CommonPrefixes, cp)
				}
				continue
			}
		}

		if opts.MaxKeys > 0 && len(page.Objects) >= opts.MaxKeys {
			page.IsTruncated = true
			break
		}
		page.Objects = append(page.Objects, s.buckets[bucket][k].info)
		page.NextStartAfter = k
	}

	sort.Strings(page.CommonPrefixes)
	return page, nil
}

func (s *Store) Delete(_ context.Context, bucket, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.buckets[bucket], key)
	return nil
}

func (s *Store) Copy(_ context.Context, bucket, srcKey, dstKey string, newMetadata objectstore.Metadata) (objectstore.ObjectInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	src, ok := s.bucketMap(bucket)[srcKey]
	if !ok {
		return objectstore.ObjectInfo{}, objectstore.ErrNotFound
	}

	meta := src.info.Metadata
	if newMetadata != nil {
		meta = cloneMetadata(newMetadata)
	}

	dst := object{
		data: append([]byte(nil), src.data...),
		info: objectstore.ObjectInfo{
			Key:          dstKey,
			Size:         src.info.Size,
			ETag:         src.info.ETag,
			LastModified: time.Now(),
			Metadata:     meta,
		},
	}
	s.bucketMap(bucket)[dstKey] = dst
	return dst.info, nil
}

func cloneMetadata(m objectstore.Metadata) objectstore.Metadata {
	if m == nil {
		return nil
	}
	out := make(objectstore.Metadata, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
