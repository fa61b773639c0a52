package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/tunelore/coverart/internal/match"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig      `yaml:"store" mapstructure:"store"`
	Saavn  ProviderConfig   `yaml:"saavn" mapstructure:"saavn"`
	ITunes ProviderConfig   `yaml:"itunes" mapstructure:"itunes"`
	Deezer ProviderConfig   `yaml:"deezer" mapstructure:"deezer"`
	Match  match.Thresholds `yaml:"match" mapstructure:"match"`
	Cache  CacheConfig      `yaml:"cache" mapstructure:"cache"`
	Image  ImageConfig      `yaml:"image" mapstructure:"image"`
	Sweep  SweepConfig      `yaml:"sweep" mapstructure:"sweep"`
	Batch  BatchConfig      `yaml:"batch" mapstructure:"batch"`
	Server ServerConfig     `yaml:"server" mapstructure:"server"`
	Admin  AdminConfig      `yaml:"admin" mapstructure:"admin"`
	Log    LogConfig        `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ProviderConfig holds one metadata catalog's endpoint and rate budget.
type ProviderConfig struct {
	BaseURL        string  `yaml:"base_url" mapstructure:"base_url"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	Burst          int     `yaml:"burst" mapstructure:"burst"`
	TimeoutSecs    int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// Timeout converts the provider timeout to a duration.
func (p ProviderConfig) Timeout() time.Duration {
	return time.Duration(p.TimeoutSecs) * time.Second
}

// CacheConfig bounds how long a cached verification stays authoritative.
type CacheConfig struct {
	FreshnessDays int `yaml:"freshness_days" mapstructure:"freshness_days"`
}

// FreshnessWindow converts the configured days to a duration.
func (c CacheConfig) FreshnessWindow() time.Duration {
	return time.Duration(c.FreshnessDays) * 24 * time.Hour
}

// ImageConfig configures image validation and generic-cover detection.
type ImageConfig struct {
	ValidateTimeoutSecs int      `yaml:"validate_timeout_secs" mapstructure:"validate_timeout_secs"`
	PlaceholderTokens   []string `yaml:"placeholder_tokens" mapstructure:"placeholder_tokens"`
	KnownGenericHashes  []string `yaml:"known_generic_hashes" mapstructure:"known_generic_hashes"`
	HashDistanceMax     int      `yaml:"hash_distance_max" mapstructure:"hash_distance_max"`
	MaxDownloadBytes    int64    `yaml:"max_download_bytes" mapstructure:"max_download_bytes"`
}

// SweepConfig configures the background cover sweep.
type SweepConfig struct {
	Concurrency int `yaml:"concurrency" mapstructure:"concurrency"`
	Limit       int `yaml:"limit" mapstructure:"limit"`
}

// BatchConfig caps batch verification requests.
type BatchConfig struct {
	MaxSongs int `yaml:"max_songs" mapstructure:"max_songs"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// AdminConfig holds the shared secret for override endpoints.
type AdminConfig struct {
	Token string `yaml:"token" mapstructure:"token"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("COVERART")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("saavn.base_url", "https://saavn.dev")
	v.SetDefault("saavn.requests_per_sec", 5.0)
	v.SetDefault("saavn.burst", 5)
	v.SetDefault("saavn.timeout_secs", 10)
	v.SetDefault("itunes.base_url", "https://itunes.apple.com")
	v.SetDefault("itunes.requests_per_sec", 2.0)
	v.SetDefault("itunes.burst", 2)
	v.SetDefault("itunes.timeout_secs", 10)
	v.SetDefault("deezer.base_url", "https://api.deezer.com")
	v.SetDefault("deezer.requests_per_sec", 5.0)
	v.SetDefault("deezer.burst", 5)
	v.SetDefault("deezer.timeout_secs", 10)
	v.SetDefault("match.title", 0.72)
	v.SetDefault("match.artist", 0.65)
	v.SetDefault("match.album", 0.6)
	v.SetDefault("cache.freshness_days", 30)
	v.SetDefault("image.validate_timeout_secs", 5)
	v.SetDefault("image.placeholder_tokens", []string{"placeholder", "default", "no-image", "noimage", "missing", "blank"})
	v.SetDefault("image.known_generic_hashes", []string{})
	v.SetDefault("image.hash_distance_max", 10)
	v.SetDefault("image.max_download_bytes", 2<<20)
	v.SetDefault("sweep.concurrency", 4)
	v.SetDefault("sweep.limit", 500)
	v.SetDefault("batch.max_songs", 50)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
