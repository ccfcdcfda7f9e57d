package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	// EnvPrefix namespaces every environment override, e.g. LABELIT_DATABASE__DRIVER.
	EnvPrefix = "LABELIT_"
	// EnvConfigFile points at an optional YAML file layered over the defaults.
	EnvConfigFile = "LABELIT_CONFIG"
)

type Config struct {
	Server      ServerConfig      `koanf:"server"`
	Database    DatabaseConfig    `koanf:"database"`
	Storage     StorageConfig     `koanf:"storage"`
	Cache       CacheConfig       `koanf:"cache"`
	Geolocation GeolocationConfig `koanf:"geolocation"`
	Logging     LoggingConfig     `koanf:"logging"`
	OpenAI      OpenAIConfig      `koanf:"openai"`
}

type ServerConfig struct {
	Addr          string `koanf:"addr"`
	GinMode       string `koanf:"gin_mode"`
	SessionSecret string `koanf:"session_secret"`
	// SessionStore is cookie or redis.
	SessionStore string `koanf:"session_store"`
	RedisAddr    string `koanf:"redis_addr"`
	// CORSOrigins is a comma separated list.
	CORSOrigins string `koanf:"cors_origins"`
}

type DatabaseConfig struct {
	// Driver is sqlite, mysql or postgres.
	Driver string `koanf:"driver"`
	// Path is the sqlite database file.
	Path string `koanf:"path"`
	// DSN is used by mysql and postgres.
	DSN           string        `koanf:"dsn"`
	LogLevel      string        `koanf:"log_level"`
	SlowThreshold time.Duration `koanf:"slow_threshold"`
}

type StorageConfig struct {
	// Backend is local or minio.
	Backend string      `koanf:"backend"`
	Dir     string      `koanf:"dir"`
	Minio   MinioConfig `koanf:"minio"`
}

type MinioConfig struct {
	Endpoint  string `koanf:"endpoint"`
	AccessKey string `koanf:"access_key"`
	SecretKey string `koanf:"secret_key"`
	Bucket    string `koanf:"bucket"`
	UseSSL    bool   `koanf:"use_ssl"`
}

type CacheConfig struct {
	StatsTTL time.Duration `koanf:"stats_ttl"`
}

// GeolocationConfig holds the provider endpoints. "{ip}" in an IP lookup URL
// is replaced with the client address, or dropped when it is not public.
type GeolocationConfig struct {
	PrimaryURL  string        `koanf:"primary_url"`
	FallbackURL string        `koanf:"fallback_url"`
	ReverseURL  string        `koanf:"reverse_url"`
	UserAgent   string        `koanf:"user_agent"`
	Timeout     time.Duration `koanf:"timeout"`
}

type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

type OpenAIConfig struct {
	APIKey  string `koanf:"api_key"`
	Model   string `koanf:"model"`
	BaseURL string `koanf:"base_url"`
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:          ":8080",
			GinMode:       "debug",
			SessionSecret: "default-secret-key-change-me",
			SessionStore:  "cookie",
			RedisAddr:     "localhost:6379",
			CORSOrigins:   "http://localhost:3000",
		},
		Database: DatabaseConfig{
			Driver:        "sqlite",
			Path:          "data/labelit.db",
			LogLevel:      "warn",
			SlowThreshold: 200 * time.Millisecond,
		},
		Storage: StorageConfig{
			Backend: "local",
			Dir:     "data",
			Minio: MinioConfig{
				Endpoint: "localhost:9000",
				Bucket:   "labelit-images",
			},
		},
		Cache: CacheConfig{
			StatsTTL: 5 * time.Minute,
		},
		Geolocation: GeolocationConfig{
			PrimaryURL:  "https://ipapi.co/{ip}/json/",
			FallbackURL: "http://ip-api.com/json/{ip}",
			ReverseURL:  "https://nominatim.openstreetmap.org/reverse",
			UserAgent:   "LabelIt/1.0",
			Timeout:     5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		OpenAI: OpenAIConfig{
			Model: "gpt-4o-mini",
		},
	}
}

// Load layers defaults, the optional YAML file and LABELIT_ environment variables.
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if path := os.Getenv(EnvConfigFile); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// envKey maps LABELIT_SERVER__GIN_MODE to server.gin_mode.
func envKey(key string) string {
	key = strings.TrimPrefix(key, EnvPrefix)
	return strings.ReplaceAll(strings.ToLower(key), "__", ".")
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for sqlite")
		}
	case "mysql", "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for %s", c.Database.Driver)
		}
	default:
		return fmt.Errorf("unsupported database driver %q", c.Database.Driver)
	}

	switch c.Storage.Backend {
	case "local":
		if c.Storage.Dir == "" {
			return fmt.Errorf("storage.dir is required for local storage")
		}
	case "minio":
		if c.Storage.Minio.Endpoint == "" || c.Storage.Minio.Bucket == "" {
			return fmt.Errorf("storage.minio.endpoint and storage.minio.bucket are required")
		}
	default:
		return fmt.Errorf("unsupported storage backend %q", c.Storage.Backend)
	}

	switch c.Server.SessionStore {
	case "cookie", "redis":
	default:
		return fmt.Errorf("unsupported session store %q", c.Server.SessionStore)
	}

	if c.Cache.StatsTTL <= 0 {
		return fmt.Errorf("cache.stats_ttl must be positive")
	}
	if c.Geolocation.Timeout <= 0 {
		return fmt.Errorf("geolocation.timeout must be positive")
	}
	return nil
}

// AllowedOrigins splits CORSOrigins.
func (s ServerConfig) AllowedOrigins() []string {
	var origins []string
	for _, origin := range strings.Split(s.CORSOrigins, ",") {
		if origin = strings.TrimSpace(origin); origin != "" {
			origins = append(origins, origin)
		}
	}
	return origins
}

// IsProduction reports whether gin runs in release mode.
func (s ServerConfig) IsProduction() bool {
	return s.GinMode == "release"
}
