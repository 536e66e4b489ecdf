// Package config loads facetmodel settings from facetmodel.yml and the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the facetmodel configuration
type Config struct {
	Log              LogConfig              `mapstructure:"log"`
	ProgrammingModel ProgrammingModelConfig `mapstructure:"programming_model"`
	Layout           LayoutConfig           `mapstructure:"layout"`
	Memento          MementoConfig          `mapstructure:"memento"`
	Redis            RedisConfig            `mapstructure:"redis"`
}

// LogConfig represents logger configuration
type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// ProgrammingModelConfig customizes the facet factory roster by factory name
type ProgrammingModelConfig struct {
	Add    []string `mapstructure:"add"`
	Remove []string `mapstructure:"remove"`
}

// LayoutConfig points at YAML member layout files
type LayoutConfig struct {
	Dir string `mapstructure:"dir"`
}

// MementoConfig selects the memento store backend
type MementoConfig struct {
	Store string `mapstructure:"store"`
	DSN   string `mapstructure:"dsn"`
	Table string `mapstructure:"table"`
}

// RedisConfig represents redis connection settings for the redis memento store
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// Memento store backends
const (
	StoreMemory = "memory"
	StoreSQLite = "sqlite3"
	StorePgx    = "pgx"
	StoreRedis  = "redis"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
	v.SetDefault("programming_model.add", []string{})
	v.SetDefault("programming_model.remove", []string{})
	v.SetDefault("layout.dir", "")
	v.SetDefault("memento.store", StoreMemory)
	v.SetDefault("memento.dsn", "")
	v.SetDefault("memento.table", "mementos")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "facetmodel:memento:")
	v.SetDefault("redis.ttl", 24*time.Hour)
}

// Default returns the configuration used when no file or environment overrides exist.
func Default() *Config {
	v := viper.New()
	setDefaults(v)

	var cfg Config
	// Defaults alone always decode.
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Load loads the configuration from facetmodel.yml or facetmodel.yaml in the working directory.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile loads the configuration from path, or searches the working directory when path is
// empty. A missing file falls back to defaults.
func LoadFile(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("facetmodel")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	// Enable environment variable support: FACETMODEL_MEMENTO_STORE etc.
	v.SetEnvPrefix("facetmodel")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || path != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// validateConfig validates the configuration
func validateConfig(cfg *Config) error {
	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be one of debug, info, warn, error, got: %s", cfg.Log.Level)
	}

	switch cfg.Memento.Store {
	case StoreMemory, StoreRedis:
	case StoreSQLite, StorePgx:
		if cfg.Memento.DSN == "" {
			return fmt.Errorf("memento.dsn is required for the %s store", cfg.Memento.Store)
		}
		if cfg.Memento.Table == "" {
			return fmt.Errorf("memento.table must not be empty")
		}
	default:
		return fmt.Errorf("memento.store must be one of memory, sqlite3, pgx, redis, got: %s", cfg.Memento.Store)
	}

	for _, name := range cfg.ProgrammingModel.Add {
		for _, removed := range cfg.ProgrammingModel.Remove {
			if name == removed {
				return fmt.Errorf("programming_model: factory %s is both added and removed", name)
			}
		}
	}
	return nil
}
