// Package memcache is an in-process refcache.Cache backed by
// maypok86/otter, a bounded-size LRU-ish cache library used elsewhere
// in the retrieved corpus (wuxler-ruasec's registry cache layer). It
// suits short-lived CLI invocations and tests where spinning up a
// filesystem cache directory is unnecessary ceremony.
package memcache

import (
	"context"
	"io"
	"sync/atomic"

	"github.com/maypok86/otter"
	"golang.org/x/sync/singleflight"

	"github.com/beshu-tech/deltaglider/pkg/refcache"
)

// Cache is a bounded in-memory refcache.Cache.
type Cache struct {
	entries otter.Cache[string, []byte]
	group   singleflight.Group
	count   atomic.Int64
}

// Config bounds the cache by maximum entry count. otter sizes its
// internal structures off this count; MaxEntries, not raw bytes, is
// its native capacity unit.
type Config struct {
	MaxEntries int
}

// New builds a Cache with the given capacity.
func New(cfg Config) (*Cache, error) {
	entries, err := otter.MustBuilder[string, []byte](cfg.MaxEntries).Build()
	if err != nil {
		return nil, err
	}
	return &Cache{entries: entries}, nil
}

// Get implements refcache.Cache.
func (c *Cache) Get(ctx context.Context, cacheKey string, populate refcache.PopulateFunc) (io.ReadCloser, error) {
	if data, ok := c.entries.Get(cacheKey); ok {
		return asReadCloser(data), nil
	}

	result, err, _ := c.group.Do(cacheKey, func() (interface{}, error) {
		if data, ok := c.entries.Get(cacheKey); ok {
			return data, nil
		}

		body, _, err := populate(ctx)
		if err != nil {
			return nil, err
		}
		defer body.Close()

		data, err := io.ReadAll(body)
		if err != nil {
			return nil, err
		}

		c.entries.Set(cacheKey, data)
		c.count.Add(1)
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return asReadCloser(result.([]byte)), nil
}

// Invalidate implements refcache.Cache.
func (c *Cache) Invalidate(_ context.Context, cacheKey string) error {
	if _, ok := c.entries.Get(cacheKey); ok {
		c.entries.Delete(cacheKey)
		c.count.Add(-1)
	}
	return nil
}

// Stats implements refcache.Cache.
func (c *Cache) Stats() refcache.Stats {
	return refcache.Stats{Entries: int(c.count.Load())}
}

func asReadCloser(data []byte) io.ReadCloser {
	return &byteReader{data: data}
}

type byteReader struct {
	data []byte
	off  int
}

func (b *byteReader) Read(p []byte) (int, error) {
	if b.off >= len(b.data) {
		return 0, io.EOF
	}
	n := copy(p, b.data[b.off:])
	b.off += n
	return n, nil
}

func (b *byteReader) Close() error { return nil }
