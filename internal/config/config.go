package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Places PlacesConfig `yaml:"places" mapstructure:"places"`
	Ingest IngestConfig `yaml:"ingest" mapstructure:"ingest"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// PlacesConfig configures the places search API client.
type PlacesConfig struct {
	APIKey    string  `yaml:"api_key" mapstructure:"api_key"`
	BaseURL   string  `yaml:"base_url" mapstructure:"base_url"`
	PageSize  int     `yaml:"page_size" mapstructure:"page_size"`
	RateLimit float64 `yaml:"rate_limit" mapstructure:"rate_limit"`
}

// IngestConfig configures the ingestion driver.
type IngestConfig struct {
	CellLimit     int    `yaml:"cell_limit" mapstructure:"cell_limit"`
	MaxPages      int    `yaml:"max_pages" mapstructure:"max_pages"`
	FreshnessDays int    `yaml:"freshness_days" mapstructure:"freshness_days"`
	Workers       int    `yaml:"workers" mapstructure:"workers"`
	MarkFailed    bool   `yaml:"mark_failed" mapstructure:"mark_failed"`
	Profile       string `yaml:"profile" mapstructure:"profile"`
}

// FreshnessWindow returns the freshness window as a duration.
func (c IngestConfig) FreshnessWindow() time.Duration {
	return time.Duration(c.FreshnessDays) * 24 * time.Hour
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
	v.SetEnvPrefix("INGEST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "postgres")
	v.SetDefault("store.sqlite_path", "inkdex.db")
	v.SetDefault("places.base_url", "https://places.googleapis.com")
	v.SetDefault("places.page_size", 20)
	v.SetDefault("places.rate_limit", 5.0)
	v.SetDefault("ingest.cell_limit", 3500)
	v.SetDefault("ingest.max_pages", 10)
	v.SetDefault("ingest.freshness_days", 160)
	v.SetDefault("ingest.workers", 1)
	v.SetDefault("ingest.mark_failed", true)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

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

// Validate checks that every setting the given mode depends on is present
// and in range. Modes: "ingest" (run an ingestion action), "cells" (boundary
// loading and status), "runs" (run history).
func (c *Config) Validate(mode string) error {
	var problems []string

	storeProblems := func() {
		switch c.Store.Driver {
		case "postgres":
			if c.Store.DatabaseURL == "" {
				problems = append(problems, "store.database_url is required")
			}
		case "sqlite":
			if c.Store.SQLitePath == "" {
				problems = append(problems, "store.sqlite_path is required")
			}
		default:
			problems = append(problems, fmt.Sprintf("store.driver must be postgres or sqlite, got %q", c.Store.Driver))
		}
	}

	switch mode {
	case "ingest":
		storeProblems()
		if c.Places.APIKey == "" {
			problems = append(problems, "places.api_key is required")
		}
		if c.Places.PageSize < 1 || c.Places.PageSize > 20 {
			problems = append(problems, "places.page_size must be between 1 and 20")
		}
		if c.Places.RateLimit <= 0 {
			problems = append(problems, "places.rate_limit must be > 0")
		}
		if c.Ingest.CellLimit < 1 {
			problems = append(problems, "ingest.cell_limit must be > 0")
		}
		if c.Ingest.MaxPages < 1 {
			problems = append(problems, "ingest.max_pages must be > 0")
		}
		if c.Ingest.FreshnessDays < 1 {
			problems = append(problems, "ingest.freshness_days must be > 0")
		}
		if c.Ingest.Workers < 1 || c.Ingest.Workers > 32 {
			problems = append(problems, "ingest.workers must be between 1 and 32")
		}
	case "cells", "runs":
		storeProblems()
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.New("config: " + strings.Join(problems, "; "))
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
