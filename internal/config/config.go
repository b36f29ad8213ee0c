// Package config loads server settings from an optional YAML file and PB_ environment variables.
package config

import (
	"errors"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	DB      DBConfig      `mapstructure:"db"`
	Catalog CatalogConfig `mapstructure:"catalog"`
	Binder  BinderConfig  `mapstructure:"binder"`
	Cron    CronConfig    `mapstructure:"cron"`
}

type ServerConfig struct {
	HTTPAddr           string   `mapstructure:"http_addr"`
	CORSAllowedOrigins []string `mapstructure:"cors_allowed_origins"`
	FrontendDistPath   string   `mapstructure:"frontend_dist_path"`
}

type LogConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"`
	Development       bool   `mapstructure:"development"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

type DBConfig struct {
	Path   string `mapstructure:"path"`
	LogSQL bool   `mapstructure:"log_sql"`
}

type CatalogConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	APIKey            string        `mapstructure:"api_key"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"requests_per_second"`
	Burst             int           `mapstructure:"burst"`
	CacheSize         int           `mapstructure:"cache_size"`
	CacheTTL          time.Duration `mapstructure:"cache_ttl"`
}

type BinderConfig struct {
	PrizeAnchorRarity string `mapstructure:"prize_anchor_rarity"`
}

type CronConfig struct {
	Enabled       bool   `mapstructure:"enabled"`
	PriceRefresh  string `mapstructure:"price_refresh"`
	ValueSnapshot string `mapstructure:"value_snapshot"`
}

// Path returns the config file location from PB_CONFIG, defaulting to config.yaml.
func Path() string {
	if p := os.Getenv("PB_CONFIG"); p != "" {
		return p
	}
	return "config.yaml"
}

// Load reads path if it exists and applies PB_ environment overrides on top of defaults.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("PB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.AutomaticEnv()

	v.SetDefault("server.http_addr", ":8080")
	v.SetDefault("server.cors_allowed_origins", []string{"http://localhost:5173", "http://localhost:3000"})
	v.SetDefault("server.frontend_dist_path", "")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.encoding", "console")
	v.SetDefault("log.development", false)
	v.SetDefault("log.disable_caller", false)
	v.SetDefault("log.disable_stacktrace", true)
	v.SetDefault("db.path", "./data/pokebinder.db")
	v.SetDefault("db.log_sql", false)
	v.SetDefault("catalog.base_url", "https://api.pokemontcg.io/v2")
	v.SetDefault("catalog.api_key", "")
	v.SetDefault("catalog.timeout", "30s")
	v.SetDefault("catalog.requests_per_second", 5.0)
	v.SetDefault("catalog.burst", 5)
	v.SetDefault("catalog.cache_size", 10000)
	v.SetDefault("catalog.cache_ttl", "1h")
	v.SetDefault("binder.prize_anchor_rarity", "Radiant Rare")
	v.SetDefault("cron.enabled", true)
	v.SetDefault("cron.price_refresh", "0 0 */6 * * *")
	v.SetDefault("cron.value_snapshot", "0 30 23 * * *")

	if path != "" {
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
				return Config{}, err
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
