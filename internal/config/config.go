package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/moralis-scan/scan/internal/cloudquery"
	"github.com/moralis-scan/scan/internal/cloudquery/cache"
	"github.com/moralis-scan/scan/internal/pagination"
)

// Environment variables that override the config file.
const (
	EnvServerURL    = "SCAN_SERVER_URL"
	EnvAppID        = "SCAN_APP_ID"
	EnvLogLevel     = "SCAN_LOG_LEVEL"
	EnvLogFormat    = "SCAN_LOG_FORMAT"
	EnvCacheEnabled = "SCAN_CACHE_ENABLED"
	EnvCacheTTL     = "SCAN_CACHE_TTL"
	EnvCacheBackend = "SCAN_CACHE_BACKEND"
	EnvRedisAddr    = "SCAN_REDIS_ADDR"
	EnvHome         = "SCAN_HOME"
)

// Cache backends.
const (
	BackendFile  = "file"
	BackendRedis = "redis"
)

// MaxPageSize bounds the configured default page size.
const MaxPageSize = 1000

const (
	dirName        = ".scan"
	configFileName = "config.yaml"
	envFileName    = ".env"
)

// Configuration errors.
var (
	ErrServerNotConfigured = errors.New("server url and app id are required (set server.url/server.app_id or " +
		EnvServerURL + "/" + EnvAppID + ")")
	ErrInvalidPageSize = fmt.Errorf("paging.page_size must be between 1 and %d", MaxPageSize)
	ErrInvalidBackend  = errors.New("cache.backend must be 'file' or 'redis'")
)

// Config is the application configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Paging  PagingConfig  `yaml:"paging"`
	Cache   CacheConfig   `yaml:"cache"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig locates the cloud-function server.
type ServerConfig struct {
	URL        string        `yaml:"url"`
	AppID      string        `yaml:"app_id"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// PagingConfig holds page defaults and cloud-function parameter names.
type PagingConfig struct {
	PageSize     int    `yaml:"page_size"`
	SubjectParam string `yaml:"subject_param"`
	CountName    string `yaml:"count_name"`
}

// CacheConfig configures the response cache.
type CacheConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Backend    string `yaml:"backend"`
	Directory  string `yaml:"directory"`
	TTLSeconds int    `yaml:"ttl_seconds"`
	RedisAddr  string `yaml:"redis_addr"`
}

// LoggingConfig configures the zerolog logger.
type LoggingConfig struct {
	Level string `yaml:"level"`
	// Format is "console" or "json".
	Format string `yaml:"format"`
	// File receives logs in addition to the console. In the TUI it replaces the console.
	File string `yaml:"file"`
}

// HomeDir returns the scan state directory: $SCAN_HOME or ~/.scan.
func HomeDir() string {
	if dir := os.Getenv(EnvHome); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return dirName
	}
	return filepath.Join(home, dirName)
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	return filepath.Join(HomeDir(), configFileName)
}

// New returns a Config populated with defaults.
func New() *Config {
	home := HomeDir()
	return &Config{
		Server: ServerConfig{
			Timeout:    cloudquery.DefaultTimeout,
			MaxRetries: cloudquery.DefaultMaxRetries,
		},
		Paging: PagingConfig{
			PageSize:     pagination.DefaultPageSize,
			SubjectParam: pagination.DefaultSubjectParam,
			CountName:    cloudquery.DefaultCountName,
		},
		Cache: CacheConfig{
			Enabled:    false,
			Backend:    BackendFile,
			Directory:  filepath.Join(home, "cache"),
			TTLSeconds: cache.DefaultTTLSeconds,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load builds the configuration from defaults, the YAML file at path, a
// project overlay at ./.scan/config.yaml, a .env file in the working
// directory and finally environment variables. An empty path means
// DefaultPath, which may be absent; an explicit path must exist.
func Load(path string) (*Config, error) {
	cfg := New()

	explicit := path != ""
	if !explicit {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if unmarshalErr := yaml.Unmarshal(data, cfg); unmarshalErr != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, unmarshalErr)
		}
	case explicit || !os.IsNotExist(err):
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	overlay := filepath.Join(dirName, configFileName)
	if absOverlay, absErr := filepath.Abs(overlay); absErr == nil && absOverlay != mustAbs(path) {
		if _, statErr := os.Stat(overlay); statErr == nil {
			if mergeErr := ShallowMergeYAML(cfg, overlay); mergeErr != nil {
				return nil, mergeErr
			}
		}
	}

	if _, statErr := os.Stat(envFileName); statErr == nil {
		if envErr := godotenv.Load(envFileName); envErr != nil {
			return nil, fmt.Errorf("loading %s: %w", envFileName, envErr)
		}
	}

	cfg.ApplyEnv()
	return cfg, nil
}

func mustAbs(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		return path
	}
	return abs
}

// ApplyEnv overrides fields from SCAN_* environment variables.
// Unparseable values are ignored with a warning.
func (c *Config) ApplyEnv() {
	logger := GetLogger()

	if v := os.Getenv(EnvServerURL); v != "" {
		c.Server.URL = v
	}
	if v := os.Getenv(EnvAppID); v != "" {
		c.Server.AppID = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv(EnvLogFormat); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv(EnvCacheEnabled); v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			logger.Warn().Str("component", "config").Str("value", v).Msg("ignoring invalid " + EnvCacheEnabled)
		} else {
			c.Cache.Enabled = enabled
		}
	}
	if v := os.Getenv(EnvCacheTTL); v != "" {
		ttl, err := cache.ParseTTL(v)
		if err != nil {
			logger.Warn().Str("component", "config").Err(err).Msg("ignoring invalid " + EnvCacheTTL)
		} else {
			c.Cache.TTLSeconds = ttl
		}
	}
	if v := os.Getenv(EnvCacheBackend); v != "" {
		c.Cache.Backend = strings.ToLower(v)
	}
	if v := os.Getenv(EnvRedisAddr); v != "" {
		c.Cache.RedisAddr = v
	}
}

// Validate checks field bounds. Server settings are checked by RequireServer.
func (c *Config) Validate() error {
	if c.Server.URL != "" {
		u, err := url.Parse(c.Server.URL)
		if err != nil || u.Scheme == "" || u.Host == "" {
			return fmt.Errorf("server.url %q is not an absolute URL", c.Server.URL)
		}
	}
	if c.Server.MaxRetries < 0 {
		return fmt.Errorf("server.max_retries cannot be negative, got %d", c.Server.MaxRetries)
	}
	if c.Paging.PageSize < 1 || c.Paging.PageSize > MaxPageSize {
		return fmt.Errorf("%w: got %d", ErrInvalidPageSize, c.Paging.PageSize)
	}
	if c.Cache.Enabled {
		if err := cache.ValidateTTL(c.Cache.TTLSeconds); err != nil {
			return fmt.Errorf("cache.ttl_seconds: %w", err)
		}
		switch c.Cache.Backend {
		case BackendFile:
			if c.Cache.Directory == "" {
				return errors.New("cache.directory is required for the file backend")
			}
		case BackendRedis:
			if c.Cache.RedisAddr == "" {
				return errors.New("cache.redis_addr is required for the redis backend")
			}
		default:
			return fmt.Errorf("%w: got %q", ErrInvalidBackend, c.Cache.Backend)
		}
	}
	return nil
}

// RequireServer returns ErrServerNotConfigured unless URL and app id are set.
func (c *Config) RequireServer() error {
	if c.Server.URL == "" || c.Server.AppID == "" {
		return ErrServerNotConfigured
	}
	return nil
}

// Save writes the config as YAML to path, creating parent directories.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config %s: %w", path, err)
	}
	return nil
}
