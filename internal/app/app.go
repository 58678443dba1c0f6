// Package app wires DeltaGlider's dependency graph together: config,
// object store, reference cache, metrics sink, and the engine built
// from them. Adapted from the teacher's pkg/app.App: a small struct
// holding the constructed singletons plus a factory that resolves
// config into concrete backends, generalized from TensorVault's fixed
// Store/Index/Refs trio to DeltaGlider's store/cache/metrics trio.
package app

import (
	"context"
	"crypto/cipher"
	"encoding/hex"
	"fmt"
	"log/slog"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/spf13/afero"
	"golang.org/x/crypto/chacha20poly1305"

	"github.com/beshu-tech/deltaglider/internal/applog"
	"github.com/beshu-tech/deltaglider/internal/config"
	"github.com/beshu-tech/deltaglider/internal/metrics"
	"github.com/beshu-tech/deltaglider/pkg/analyzer"
	"github.com/beshu-tech/deltaglider/pkg/engine"
	"github.com/beshu-tech/deltaglider/pkg/objectstore"
	"github.com/beshu-tech/deltaglider/pkg/objectstore/memstore"
	"github.com/beshu-tech/deltaglider/pkg/objectstore/rediscache"
	"github.com/beshu-tech/deltaglider/pkg/objectstore/s3store"
	"github.com/beshu-tech/deltaglider/pkg/refcache"
	"github.com/beshu-tech/deltaglider/pkg/refcache/fscache"
	"github.com/beshu-tech/deltaglider/pkg/refcache/memcache"
)

// App is the constructed set of singletons a CLI command or server
// process depends on.
type App struct {
	Config   config.Config
	Logger   *slog.Logger
	Store    objectstore.Store
	Cache    refcache.Cache
	Engine   *engine.Engine
	Analyzer *analyzer.Analyzer
}

// New resolves cfg into concrete backends and builds an App.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	logger := applog.New(cfg.LogLevel)

	store, err := buildStore(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	cache, err := buildCache(cfg)
	if err != nil {
		return nil, err
	}

	sink, err := buildMetrics(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	eng, err := engine.New(engine.Config{
		Store:    store,
		Cache:    cache,
		Metrics:  sink,
		Logger:   logger,
		MaxRatio: cfg.MaxRatio,
	})
	if err != nil {
		return nil, err
	}

	return &App{
		Config:   cfg,
		Logger:   logger,
		Store:    store,
		Cache:    cache,
		Engine:   eng,
		Analyzer: analyzer.New(store),
	}, nil
}

func buildStore(ctx context.Context, cfg config.Config, logger *slog.Logger) (objectstore.Store, error) {
	if cfg.S3.Endpoint == "" && cfg.S3.Region == "" {
		logger.Warn("no S3 endpoint or region configured, using an in-memory object store")
		return memstore.New(), nil
	}

	s3, err := s3store.New(ctx, s3store.Config{
		Endpoint:        cfg.S3.Endpoint,
		Region:          cfg.S3.Region,
		AccessKeyID:     cfg.S3.AccessKeyID,
		SecretAccessKey: cfg.S3.SecretAccessKey,
		UsePathStyle:    cfg.S3.UsePathStyle,
	})
	if err != nil {
		return nil, fmt.Errorf("app: build s3 store: %w", err)
	}

	if cfg.Cache.RedisURL != "" {
		cached, err := rediscache.New(ctx, s3, rediscache.Config{RedisURL: cfg.Cache.RedisURL, TTL: cfg.Cache.RedisTTL}, logger)
		if err != nil {
			logger.Warn("redis head-cache unavailable, continuing without it", "error", err)
			return s3, nil
		}
		return cached, nil
	}
	return s3, nil
}

func buildCache(cfg config.Config) (refcache.Cache, error) {
	switch cfg.Cache.Backend {
	case "memory":
		return memcache.New(memcache.Config{MaxEntries: cfg.Cache.MemoryMaxItems})
	case "filesystem", "":
		var aead cipher.AEAD
		if cfg.Cache.EncryptAtRest {
			a, err := newCacheAEAD(cfg.Cache.EncryptionKey)
			if err != nil {
				return nil, fmt.Errorf("app: build cache encryption: %w", err)
			}
			aead = a
		}
		return fscache.New(fscache.Config{
			Fs:         afero.NewOsFs(),
			Root:       cfg.Cache.Dir,
			QuotaBytes: cfg.Cache.QuotaBytes,
			AEAD:       aead,
		})
	default:
		return nil, fmt.Errorf("app: unknown cache backend %q", cfg.Cache.Backend)
	}
}

func newCacheAEAD(hexKey string) (cipher.AEAD, error) {
	if hexKey == "" {
		return nil, fmt.Errorf("cache.encrypt_at_rest is set but cache.encryption_key is empty")
	}
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("decode cache.encryption_key: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("cache.encryption_key must be %d bytes hex-encoded, got %d", chacha20poly1305.KeySize, len(key))
	}
	return chacha20poly1305.New(key)
}

func buildMetrics(ctx context.Context, cfg config.Config, logger *slog.Logger) (metrics.Sink, error) {
	switch cfg.MetricsBackend {
	case "", "none":
		return metrics.Noop{}, nil
	case "log":
		return metrics.NewLoggingSink(logger), nil
	case "cloudwatch":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return nil, fmt.Errorf("app: load AWS config for metrics: %w", err)
		}
		client := cloudwatch.NewFromConfig(awsCfg)
		return metrics.NewCloudWatchSink(client, cfg.MetricsNS, logger), nil
	default:
		return nil, fmt.Errorf("app: unknown metrics backend %q", cfg.MetricsBackend)
	}
}
