package config

import (
	"fmt"
	"os"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Twitter   TwitterConfig   `yaml:"twitter"`
	Traversal TraversalConfig `yaml:"traversal"`
	Download  DownloadConfig  `yaml:"download"`
	Cache     CacheConfig     `yaml:"cache"`
	Convert   ConvertConfig   `yaml:"convert"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host         string        `yaml:"host" envconfig:"SERVER_HOST" default:"0.0.0.0"`
	Port         int           `yaml:"port" envconfig:"SERVER_PORT" default:"4321"`
	APIKey       string        `yaml:"api_key" envconfig:"API_KEY"`
	ReadTimeout  time.Duration `yaml:"read_timeout" envconfig:"SERVER_READ_TIMEOUT" default:"30s"`
	WriteTimeout time.Duration `yaml:"write_timeout" envconfig:"SERVER_WRITE_TIMEOUT" default:"5m"`
	// RequestTimeout bounds handler execution; 0 disables it.
	RequestTimeout time.Duration `yaml:"request_timeout" envconfig:"SERVER_REQUEST_TIMEOUT" default:"5m"`
}

// TwitterConfig holds syndication API configuration.
type TwitterConfig struct {
	SyndicationURL string        `yaml:"syndication_url" envconfig:"TWITTER_SYNDICATION_URL" default:"https://cdn.syndication.twimg.com"`
	Lang           string        `yaml:"lang" envconfig:"TWITTER_LANG" default:"en"`
	Token          string        `yaml:"token" envconfig:"TWITTER_TOKEN" default:"5"`
	Timeout        time.Duration `yaml:"timeout" envconfig:"TWITTER_TIMEOUT" default:"30s"`
	UserAgent      string        `yaml:"user_agent" envconfig:"TWITTER_USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"`
}

// TraversalConfig holds manifest traversal configuration.
type TraversalConfig struct {
	BatchSize int           `yaml:"batch_size" envconfig:"TRAVERSAL_BATCH_SIZE" default:"10"`
	Timeout   time.Duration `yaml:"timeout" envconfig:"TRAVERSAL_TIMEOUT" default:"2m"`
}

// DownloadConfig holds HTTP fetch configuration for manifests, segments and
// conversion inputs.
type DownloadConfig struct {
	Timeout      time.Duration `yaml:"timeout" envconfig:"DOWNLOAD_TIMEOUT" default:"10m"`
	StallTimeout time.Duration `yaml:"stall_timeout" envconfig:"DOWNLOAD_STALL_TIMEOUT" default:"60s"`
	UserAgent    string        `yaml:"user_agent" envconfig:"DOWNLOAD_USER_AGENT" default:"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"`
	MaxBodySize  int64         `yaml:"max_body_size" envconfig:"DOWNLOAD_MAX_BODY_SIZE" default:"536870912"` // 512MB
}

// CacheConfig holds resolution cache configuration.
type CacheConfig struct {
	Enabled       bool          `yaml:"enabled" envconfig:"CACHE_ENABLED" default:"true"`
	SQLitePath    string        `yaml:"sqlite_path" envconfig:"CACHE_SQLITE_PATH" default:"/data/inthistweet/cache.db"`
	MemoryTTL     time.Duration `yaml:"memory_ttl" envconfig:"CACHE_MEMORY_TTL" default:"10m"`
	PersistentTTL time.Duration `yaml:"persistent_ttl" envconfig:"CACHE_PERSISTENT_TTL" default:"168h"`
}

// ConvertConfig holds ffmpeg conversion job configuration. Conversion runs
// ffmpeg on caller supplied arguments, so it is off by default and needs
// API_KEY when enabled.
type ConvertConfig struct {
	Enabled      bool          `yaml:"enabled" envconfig:"CONVERT_ENABLED" default:"false"`
	FFmpegPath   string        `yaml:"ffmpeg_path" envconfig:"FFMPEG_PATH" default:"ffmpeg"`
	WorkDir      string        `yaml:"work_dir" envconfig:"CONVERT_WORK_DIR" default:"/data/inthistweet/work"`
	Workers      int           `yaml:"workers" envconfig:"CONVERT_WORKERS" default:"2"`
	PollInterval time.Duration `yaml:"poll_interval" envconfig:"CONVERT_POLL_INTERVAL" default:"2s"`
	JobTimeout   time.Duration `yaml:"job_timeout" envconfig:"CONVERT_JOB_TIMEOUT" default:"15m"`
}

// Load reads configuration from file and environment variables.
// Environment variables override file values.
func Load(configPath string) (*Config, error) {
	cfg := &Config{}

	// Load from YAML file if provided
	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	// Override with environment variables
	if err := envconfig.Process("", cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// Validate checks that configuration values are usable.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535")
	}
	if c.Twitter.SyndicationURL == "" {
		return fmt.Errorf("TWITTER_SYNDICATION_URL is required")
	}
	if c.Traversal.BatchSize <= 0 {
		return fmt.Errorf("TRAVERSAL_BATCH_SIZE must be positive")
	}
	if c.Traversal.Timeout < 0 {
		return fmt.Errorf("TRAVERSAL_TIMEOUT cannot be negative")
	}
	if c.Cache.Enabled && c.Cache.SQLitePath == "" {
		return fmt.Errorf("CACHE_SQLITE_PATH is required when the cache is enabled")
	}
	if c.Convert.Enabled {
		if c.Server.APIKey == "" {
			return fmt.Errorf("API_KEY is required when conversion is enabled")
		}
		if c.Convert.WorkDir == "" {
			return fmt.Errorf("CONVERT_WORK_DIR is required when conversion is enabled")
		}
		if c.Convert.Workers <= 0 {
			return fmt.Errorf("CONVERT_WORKERS must be positive")
		}
	}
	return nil
}

// Address returns the server address in host:port format.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
