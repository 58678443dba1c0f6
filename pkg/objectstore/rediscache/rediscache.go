// Package rediscache decorates an objectstore.Store with a Redis-backed
// existence/metadata cache in front of Head, the hot path of
// PutObject's reference check (spec.md §4.3): before uploading a delta,
// the engine must know whether the group's reference already exists,
// and that HEAD happens on every single put. Adapted from the teacher's
// pkg/storage/cache.CachedStore, generalized from a boolean existence
// flag to the full ObjectInfo a Head call needs, and from a single
// content-addressed namespace to per-bucket keys.
package rediscache

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/beshu-tech/deltaglider/pkg/objectstore"
)

// Config configures the Redis connection and cache lifetime.
type Config struct {
	RedisURL string
	TTL      time.Duration
}

// Store decorates a backend objectstore.Store, caching Head results in
// Redis so repeated reference checks against the same key skip the
// round-trip to the object store entirely.
type Store struct {
	backend objectstore.Store
	client  *redis.Client
	ttl     time.Duration
	logger  *slog.Logger
}

// New connects to Redis and wraps backend. It fails fast with a Ping so
// a misconfigured cache is caught at startup, not on the first put. A
// nil logger falls back to slog.Default().
func New(ctx context.Context, backend objectstore.Store, cfg Config, logger *slog.Logger) (*Store, error) {
	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("rediscache: invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		return nil, fmt.Errorf("rediscache: connect to redis: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}
	return &Store{backend: backend, client: client, ttl: cfg.TTL, logger: logger}, nil
}

func (s *Store) cacheKey(bucket, key string) string {
	return "dg:head:" + bucket + ":" + key
}

// Head checks Redis first. A cache miss falls through to the backend
// and fills the cache asynchronously so the caller isn't blocked on the
// Redis write. Redis errors degrade to a direct backend call rather
// than failing the request.
func (s *Store) Head(ctx context.Context, bucket, key string) (objectstore.ObjectInfo, error) {
	cacheKey := s.cacheKey(bucket, key)

	if cached, err := s.client.Get(ctx, cacheKey).Result(); err == nil {
		if cached == absentMarker {
			return objectstore.ObjectInfo{}, objectstore.ErrNotFound
		}
		var info objectstore.ObjectInfo
		if json.Unmarshal([]byte(cached), &info) == nil {
			return info, nil
		}
	} else if err != redis.Nil {
		s.logger.Warn("rediscache: redis error on head, falling through to backend", "error", err)
	}

	info, err := s.backend.Head(ctx, bucket, key)
	if err != nil {
		if err == objectstore.ErrNotFound {
			go s.fillNegative(cacheKey)
		}
		return info, err
	}

	go s.fill(cacheKey, info)
	return info, nil
}

func (s *Store) fill(cacheKey string, info objectstore.ObjectInfo) {
	encoded, err := json.Marshal(info)
	if err != nil {
		return
	}
	fillCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.client.Set(fillCtx, cacheKey, encoded, s.ttl)
}

// fillNegative caches absence too, at a short fixed TTL, so a burst of
// puts against a not-yet-created reference doesn't each hit the backend.
func (s *Store) fillNegative(cacheKey string) {
	fillCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.client.Set(fillCtx, cacheKey, absentMarker, 5*time.Second)
}

const absentMarker = "∅"

// Put writes through to the backend, then invalidates the Head cache
// entry for key once the write succeeds: a Put after a cached-absent
// Head must not leave that absence cached.
func (s *Store) Put(ctx context.Context, bucket, key string, data io.Reader, size int64, opts objectstore.PutOptions) (objectstore.ObjectInfo, error) {
	info, err := s.backend.Put(ctx, bucket, key, data, size, opts)
	if err != nil {
		return info, err
	}
	s.client.Del(ctx, s.cacheKey(bucket, key))
	return info, nil
}

func (s *Store) Get(ctx context.Context, bucket, key string) (io.ReadCloser, objectstore.ObjectInfo, error) {
	return s.backend.Get(ctx, bucket, key)
}

func (s *Store) List(ctx context.Context, bucket string, opts objectstore.ListOptions) (objectstore.ListPage, error) {
	return s.backend.List(ctx, bucket, opts)
}

func (s *Store) Delete(ctx context.Context, bucket, key string) error {
	if err := s.backend.Delete(ctx, bucket, key); err != nil {
		return err
	}
	s.client.Del(ctx, s.cacheKey(bucket, key))
	return nil
}

func (s *Store) Copy(ctx context.Context, bucket, srcKey, dstKey string, newMetadata objectstore.Metadata) (objectstore.ObjectInfo, error) {
	info, err := s.backend.Copy(ctx, bucket, srcKey, dstKey, newMetadata)
	if err != nil {
		return info, err
	}
	s.client.Del(ctx, s.cacheKey(bucket, dstKey))
	return info, nil
}
