// Package config loads the frozen configuration value consumed by the
// rest of the pipeline. Configuration is loaded once at startup and is
// read-only thereafter (spec §5).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Application holds bind address and signing configuration (spec §6.2).
type Application struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port"`
	HMACSecret  string `yaml:"hmac_secret"`
	AllowUnsafe bool   `yaml:"allow_unsafe"`
}

// StorageClient selects and configures a remote object-store backend.
type StorageClient struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"` // S3-compatible custom endpoint
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	CredentialsFile string `yaml:"credentials_file"` // GCS service-account JSON
}

// Storage configures the SourceLoader/ResultStore backends (spec §6.2, §4.5).
type Storage struct {
	Backend    string        `yaml:"backend"` // "local" | "s3" | "gcs"
	BaseDir    string        `yaml:"base_dir"`
	PathPrefix string        `yaml:"path_prefix"`
	SafeChars  string        `yaml:"safe_chars"`
	S3         StorageClient `yaml:"s3"`
	GCS        StorageClient `yaml:"gcs"`

	MaxSourceSizeBytes int64         `yaml:"max_source_size_bytes"`
	HTTPTimeout        time.Duration `yaml:"http_timeout"`
	HTTPMaxRedirects   int           `yaml:"http_max_redirects"`
}

// Processor configures the external-tool execution pipeline (spec §6.2, §4.8).
type Processor struct {
	ToolPath       string        `yaml:"tool_path"`
	DisabledFilters []string     `yaml:"disabled_filters"`
	MaxFilterOps   int           `yaml:"max_filter_ops"`
	Concurrency    int           `yaml:"concurrency"` // 0 => CPU count
	TimeoutSeconds int           `yaml:"timeout_seconds"`
	KillGrace      time.Duration `yaml:"kill_grace"`

	MaxCacheFiles int64 `yaml:"max_cache_files"`
	MaxCacheMemMB int64 `yaml:"max_cache_mem_mb"`
	MaxCacheSizeMB int64 `yaml:"max_cache_size_mb"`

	MaxOutputSizeBytes int64 `yaml:"max_output_size_bytes"`
}

// RedisConfig configures the Redis cache backend.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// FilesystemCacheConfig configures the filesystem cache backend.
type FilesystemCacheConfig struct {
	Dir string `yaml:"dir"`
}

// Cache selects a CacheStore backend (spec §6.2, §4.6).
type Cache struct {
	Backend    string                `yaml:"backend"` // "filesystem" | "redis"
	Redis      RedisConfig           `yaml:"redis"`
	Filesystem FilesystemCacheConfig `yaml:"filesystem"`
}

// ResultStoreConfig optionally enables write-through result persistence (spec §4.9).
type ResultStoreConfig struct {
	Enabled bool    `yaml:"enabled"`
	Storage Storage `yaml:"storage"`
}

// Config is the top-level frozen configuration value.
type Config struct {
	Application Application       `yaml:"application"`
	Storage     Storage           `yaml:"storage"`
	Processor   Processor         `yaml:"processor"`
	Cache       Cache             `yaml:"cache"`
	ResultStore ResultStoreConfig `yaml:"result_store"`
	CustomTags  map[string]string `yaml:"custom_tags"`
	LogLevel    string            `yaml:"log_level"`
}

// Default returns the zero-value configuration with sane production
// defaults filled in, mirroring the teacher's `DefaultConfig` idiom.
func Default() Config {
	return Config{
		Application: Application{
			Host: "0.0.0.0",
			Port: 8080,
		},
		Storage: Storage{
			Backend:            "local",
			BaseDir:            "/var/lib/audiogated/sources",
			SafeChars:          "-_.",
			MaxSourceSizeBytes: 200 << 20, // 200 MiB
			HTTPTimeout:        15 * time.Second,
			HTTPMaxRedirects:   5,
		},
		Processor: Processor{
			ToolPath:       "ffmpeg",
			MaxFilterOps:   12,
			Concurrency:    0,
			TimeoutSeconds: 60,
			KillGrace:      5 * time.Second,
			MaxCacheFiles:  100000,
			MaxCacheMemMB:  512,
			MaxCacheSizeMB: 10240,
			MaxOutputSizeBytes: 500 << 20,
		},
		Cache: Cache{
			Backend: "filesystem",
			Filesystem: FilesystemCacheConfig{
				Dir: "/var/lib/audiogated/cache",
			},
		},
		LogLevel: "info",
	}
}

// Load reads a YAML configuration file (if path is non-empty) layered over
// Default(), then applies environment variable overrides.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}

	applyEnvOverrides(&cfg, os.Environ())

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate enforces startup invariants (spec §4.2, §6.1 exit codes).
func (c Config) Validate() error {
	if strings.TrimSpace(c.Application.HMACSecret) == "" && !c.Application.AllowUnsafe {
		return fmt.Errorf("config: hmac_secret is empty and unsafe mode is disabled")
	}
	switch c.Storage.Backend {
	case "local", "s3", "gcs":
	default:
		return fmt.Errorf("config: unknown storage backend %q", c.Storage.Backend)
	}
	switch c.Cache.Backend {
	case "filesystem", "redis":
	default:
		return fmt.Errorf("config: unknown cache backend %q", c.Cache.Backend)
	}
	return nil
}

// applyEnvOverrides implements the APP_<SECTION>__<KEY> convention from
// spec §6.2. Only scalar leaves that matter operationally are wired; this
// intentionally does not attempt to be a generic reflection-based merger
// (the teacher's own config package is far larger; audiogated's
// configuration surface is the table enumerated in spec §6.2).
func applyEnvOverrides(cfg *Config, environ []string) {
	env := make(map[string]string, len(environ))
	for _, kv := range environ {
		if idx := strings.IndexByte(kv, '='); idx >= 0 {
			env[kv[:idx]] = kv[idx+1:]
		}
	}

	str := func(key string, dst *string) {
		if v, ok := env[key]; ok {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		if v, ok := env[key]; ok {
			if b, err := strconv.ParseBool(v); err == nil {
				*dst = b
			}
		}
	}
	integer := func(key string, dst *int) {
		if v, ok := env[key]; ok {
			if n, err := strconv.Atoi(v); err == nil {
				*dst = n
			}
		}
	}
	int64v := func(key string, dst *int64) {
		if v, ok := env[key]; ok {
			if n, err := strconv.ParseInt(v, 10, 64); err == nil {
				*dst = n
			}
		}
	}

	str("APP_APPLICATION__HOST", &cfg.Application.Host)
	integer("APP_APPLICATION__PORT", &cfg.Application.Port)
	str("APP_APPLICATION__HMAC_SECRET", &cfg.Application.HMACSecret)
	boolean("APP_APPLICATION__ALLOW_UNSAFE", &cfg.Application.AllowUnsafe)

	str("APP_STORAGE__BACKEND", &cfg.Storage.Backend)
	str("APP_STORAGE__BASE_DIR", &cfg.Storage.BaseDir)
	str("APP_STORAGE__PATH_PREFIX", &cfg.Storage.PathPrefix)
	str("APP_STORAGE__S3__BUCKET", &cfg.Storage.S3.Bucket)
	str("APP_STORAGE__S3__REGION", &cfg.Storage.S3.Region)
	str("APP_STORAGE__S3__ENDPOINT", &cfg.Storage.S3.Endpoint)
	str("APP_STORAGE__GCS__BUCKET", &cfg.Storage.GCS.Bucket)

	integer("APP_PROCESSOR__CONCURRENCY", &cfg.Processor.Concurrency)
	integer("APP_PROCESSOR__TIMEOUT_SECONDS", &cfg.Processor.TimeoutSeconds)
	integer("APP_PROCESSOR__MAX_FILTER_OPS", &cfg.Processor.MaxFilterOps)
	int64v("APP_PROCESSOR__MAX_CACHE_FILES", &cfg.Processor.MaxCacheFiles)
	int64v("APP_PROCESSOR__MAX_CACHE_MEM", &cfg.Processor.MaxCacheMemMB)
	int64v("APP_PROCESSOR__MAX_CACHE_SIZE", &cfg.Processor.MaxCacheSizeMB)

	str("APP_CACHE__BACKEND", &cfg.Cache.Backend)
	str("APP_CACHE__REDIS__ADDR", &cfg.Cache.Redis.Addr)
	str("APP_CACHE__REDIS__PASSWORD", &cfg.Cache.Redis.Password)
	str("APP_CACHE__FILESYSTEM__DIR", &cfg.Cache.Filesystem.Dir)
}
