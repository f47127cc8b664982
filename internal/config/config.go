package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Overpass  OverpassConfig  `yaml:"overpass" mapstructure:"overpass"`
	Catalog   CatalogConfig   `yaml:"catalog" mapstructure:"catalog"`
	Resolve   ResolveConfig   `yaml:"resolve" mapstructure:"resolve"`
	Extract   ExtractConfig   `yaml:"extract" mapstructure:"extract"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// OverpassConfig holds Overpass API settings.
type OverpassConfig struct {
	BaseURL     string  `yaml:"base_url" mapstructure:"base_url"`
	UserAgent   string  `yaml:"user_agent" mapstructure:"user_agent"`
	TimeoutSecs int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RatePerSec  float64 `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Burst       int     `yaml:"burst" mapstructure:"burst"`
}

// CatalogConfig configures reference catalog construction.
type CatalogConfig struct {
	Provider         string `yaml:"provider" mapstructure:"provider"` // "overpass" or "shapefile"
	ShapefileDir     string `yaml:"shapefile_dir" mapstructure:"shapefile_dir"`
	QueryTimeoutSecs int    `yaml:"query_timeout_secs" mapstructure:"query_timeout_secs"`
	Concurrency      int    `yaml:"concurrency" mapstructure:"concurrency"`
	CacheDriver      string `yaml:"cache_driver" mapstructure:"cache_driver"` // "sqlite" or "redis"
	CachePath        string `yaml:"cache_path" mapstructure:"cache_path"`     // sqlite; empty disables the cache
	RedisURL         string `yaml:"redis_url" mapstructure:"redis_url"`       // redis; empty disables the cache
	CacheTTLHours    int    `yaml:"cache_ttl_hours" mapstructure:"cache_ttl_hours"`
	BreakerFailures  int    `yaml:"breaker_failures" mapstructure:"breaker_failures"` // consecutive upstream failures before the breaker opens
	BreakerResetSecs int    `yaml:"breaker_reset_secs" mapstructure:"breaker_reset_secs"`
}

// ResolveConfig configures candidate normalization.
type ResolveConfig struct {
	SimilarityThreshold float64 `yaml:"similarity_threshold" mapstructure:"similarity_threshold"`
	Concurrency         int     `yaml:"concurrency" mapstructure:"concurrency"`
	DictionaryPath      string  `yaml:"dictionary_path" mapstructure:"dictionary_path"`
}

// ExtractConfig selects the fact extractor.
type ExtractConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"` // "rules" or "anthropic"
}

// AnthropicConfig holds Anthropic API settings for LLM fact extraction.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// StoreConfig configures the PostGIS result sink.
type StoreConfig struct {
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	Schema      string `yaml:"schema" mapstructure:"schema"`
	Table       string `yaml:"table" mapstructure:"table"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port           int      `yaml:"port" mapstructure:"port"`
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
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
	v.SetEnvPrefix("CITYOBJ")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("overpass.base_url", "https://overpass-api.de/api/interpreter")
	v.SetDefault("overpass.user_agent", "cityobj/1.0")
	v.SetDefault("overpass.timeout_secs", 180)
	v.SetDefault("overpass.rate_per_sec", 1.0)
	v.SetDefault("overpass.burst", 2)
	v.SetDefault("catalog.provider", "overpass")
	v.SetDefault("catalog.query_timeout_secs", 240)
	v.SetDefault("catalog.concurrency", 4)
	v.SetDefault("catalog.cache_driver", "sqlite")
	v.SetDefault("catalog.cache_ttl_hours", 24)
	v.SetDefault("catalog.breaker_failures", 3)
	v.SetDefault("catalog.breaker_reset_secs", 60)
	v.SetDefault("resolve.similarity_threshold", 0.7)
	v.SetDefault("resolve.concurrency", 8)
	v.SetDefault("extract.provider", "rules")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 1024)
	v.SetDefault("store.schema", "public")
	v.SetDefault("store.table", "city_objects")

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

// Validate checks the settings that have no usable zero value.
func (c *Config) Validate() error {
	switch c.Catalog.Provider {
	case "overpass":
		if c.Overpass.BaseURL == "" {
			return eris.New("config: overpass.base_url is required")
		}
	case "shapefile":
		if c.Catalog.ShapefileDir == "" {
			return eris.New("config: catalog.shapefile_dir is required for the shapefile provider")
		}
	default:
		return eris.Errorf("config: unknown catalog provider %q (valid: overpass, shapefile)", c.Catalog.Provider)
	}

	switch c.Catalog.CacheDriver {
	case "", "sqlite", "redis":
	default:
		return eris.Errorf("config: unknown catalog cache driver %q (valid: sqlite, redis)", c.Catalog.CacheDriver)
	}

	switch c.Extract.Provider {
	case "rules":
	case "anthropic":
		if c.Anthropic.Key == "" {
			return eris.New("config: anthropic.key is required for the anthropic extractor")
		}
	default:
		return eris.Errorf("config: unknown extract provider %q (valid: rules, anthropic)", c.Extract.Provider)
	}

	if c.Resolve.SimilarityThreshold < 0 || c.Resolve.SimilarityThreshold > 1 {
		return eris.Errorf("config: resolve.similarity_threshold must be within [0, 1], got %v", c.Resolve.SimilarityThreshold)
	}
	return nil
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
