// Package config loads DeltaGlider's runtime configuration: S3
// connection details, the reference-cache backend and its bounds, the
// max delta/original ratio past which a put falls back to direct
// storage, and logging/metrics settings (spec.md §6.3). Adapted from
// the teacher's pkg/config/loader.go: same viper-driven
// defaults-then-file-then-env layering, TV env prefix swapped for DG,
// and the database/object-store settings replaced with DeltaGlider's
// own.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is DeltaGlider's fully resolved runtime configuration.
type Config struct {
	S3             S3Config
	Cache          CacheConfig
	MaxRatio       float64
	LogLevel       string
	MetricsBackend string
	MetricsNS      string
}

// S3Config describes how to reach the S3-compatible object store.
type S3Config struct {
	Endpoint        string
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
}

// CacheConfig describes the reference cache backend (spec.md §4.5).
type CacheConfig struct {
	Backend        string // "filesystem" or "memory"; RedisURL separately enables the Redis head cache
	Dir            string
	QuotaBytes     int64
	MemoryMaxItems int
	RedisURL       string
	RedisTTL       time.Duration
	EncryptAtRest  bool
	EncryptionKey  string // hex-encoded 32-byte key, required when EncryptAtRest is set
}

// Load resolves configuration from defaults, an optional config file,
// DG_-prefixed environment variables, and finally flags, in that
// priority order (lowest to highest), mirroring the teacher's Load.
// flags may be nil when no command-line overrides apply (as in tests).
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v := viper.New()
	setDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return Config{}, err
		}
		v.AddConfigPath(".")
		v.AddConfigPath(".deltaglider")
		v.AddConfigPath(filepath.Join(home, ".deltaglider"))
		v.SetConfigType("yaml")
		v.SetConfigName("config")
	}

	v.SetEnvPrefix("DG")
	v.AutomaticEnv()
	bindEnv(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, fmt.Errorf("config: read config file: %w", err)
		}
	}

	if flags != nil {
		if err := v.BindPFlag("max_ratio", flags.Lookup("max-ratio")); err != nil {
			return Config{}, fmt.Errorf("config: bind max-ratio flag: %w", err)
		}
		if err := v.BindPFlag("log_level", flags.Lookup("log-level")); err != nil {
			return Config{}, fmt.Errorf("config: bind log-level flag: %w", err)
		}
	}

	return fromViper(v), nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("max_ratio", 0.5)
	v.SetDefault("log_level", "info")
	v.SetDefault("metrics", "none")
	v.SetDefault("metrics_namespace", "DeltaGlider")

	v.SetDefault("s3.use_path_style", false)

	wd, _ := os.Getwd()
	v.SetDefault("cache.backend", "filesystem")
	v.SetDefault("cache.dir", filepath.Join(wd, ".deltaglider", "cache"))
	v.SetDefault("cache.quota_bytes", int64(5<<30)) // 5 GiB
	v.SetDefault("cache.memory_max_items", 100)
	v.SetDefault("cache.redis_ttl_seconds", 86400)
	v.SetDefault("cache.encrypt_at_rest", false)
}

// bindEnv wires the documented DG_* names (spec.md §6.3) onto keys the
// file-and-default layer uses with dots, since viper's AutomaticEnv
// only matches a key that has the same dots-to-underscores shape.
func bindEnv(v *viper.Viper) {
	binds := map[string]string{
		"max_ratio":              "DG_MAX_RATIO",
		"log_level":              "DG_LOG_LEVEL",
		"metrics":                "DG_METRICS",
		"metrics_namespace":      "DG_METRICS_NAMESPACE",
		"s3.endpoint":            "DG_S3_ENDPOINT",
		"s3.region":              "DG_S3_REGION",
		"s3.access_key_id":       "DG_S3_ACCESS_KEY_ID",
		"s3.secret_access_key":   "DG_S3_SECRET_ACCESS_KEY",
		"s3.use_path_style":      "DG_S3_USE_PATH_STYLE",
		"cache.backend":          "DG_CACHE_BACKEND",
		"cache.dir":              "DG_CACHE_DIR",
		"cache.quota_bytes":      "DG_CACHE_QUOTA_BYTES",
		"cache.memory_max_items": "DG_CACHE_MEMORY_SIZE_MB",
		"cache.redis_url":        "DG_CACHE_REDIS_URL",
		"cache.redis_ttl_seconds": "DG_CACHE_REDIS_TTL_SECONDS",
		"cache.encrypt_at_rest":  "DG_CACHE_ENCRYPT_AT_REST",
		"cache.encryption_key":   "DG_CACHE_ENCRYPTION_KEY",
	}
	for key, env := range binds {
		v.BindEnv(key, env)
	}
}

func fromViper(v *viper.Viper) Config {
	return Config{
		S3: S3Config{
			Endpoint:        v.GetString("s3.endpoint"),
			Region:          v.GetString("s3.region"),
			AccessKeyID:     v.GetString("s3.access_key_id"),
			SecretAccessKey: v.GetString("s3.secret_access_key"),
			UsePathStyle:    v.GetBool("s3.use_path_style"),
		},
		Cache: CacheConfig{
			Backend:        v.GetString("cache.backend"),
			Dir:            v.GetString("cache.dir"),
			QuotaBytes:     v.GetInt64("cache.quota_bytes"),
			MemoryMaxItems: v.GetInt("cache.memory_max_items"),
			RedisURL:       v.GetString("cache.redis_url"),
			RedisTTL:       time.Duration(v.GetInt64("cache.redis_ttl_seconds")) * time.Second,
			EncryptAtRest:  v.GetBool("cache.encrypt_at_rest"),
			EncryptionKey:  v.GetString("cache.encryption_key"),
		},
		MaxRatio:       v.GetFloat64("max_ratio"),
		LogLevel:       v.GetString("log_level"),
		MetricsBackend: v.GetString("metrics"),
		MetricsNS:      v.GetString("metrics_namespace"),
	}
}
