package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/harborline/dealdesk-cli/internal/store"
)

// Config holds the full application configuration.
type Config struct {
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`
	Match   MatchConfig   `yaml:"match" mapstructure:"match"`
	Market  MarketConfig  `yaml:"market" mapstructure:"market"`
	Archive ArchiveConfig `yaml:"archive" mapstructure:"archive"`
}

// StoreConfig configures the persistence backend.
type StoreConfig struct {
	// Driver selects the backend: "json" (default), "sqlite", or "postgres".
	Driver string `yaml:"driver" mapstructure:"driver"`
	// Dir is the data directory for the json driver.
	Dir string `yaml:"dir" mapstructure:"dir"`
	// DatabaseURL is the sqlite file path or postgres DSN.
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	// Backups is how many timestamped backup copies the json driver keeps
	// per collection file.
	Backups int `yaml:"backups" mapstructure:"backups"`
	// Pool tunes the postgres connection pool.
	Pool store.PoolConfig `yaml:"pool" mapstructure:"pool"`
}

// ServerConfig configures the API server.
type ServerConfig struct {
	Port        int      `yaml:"port" mapstructure:"port"`
	APIToken    string   `yaml:"api_token" mapstructure:"api_token"`
	CORSOrigins []string `yaml:"cors_origins" mapstructure:"cors_origins"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// MatchConfig configures the profile engine. The preference key set is
// configuration on purpose: the matching algorithm never hard-codes it.
type MatchConfig struct {
	// PreferenceKeys overrides the built-in shared key set when non-empty.
	PreferenceKeys []string `yaml:"preference_keys" mapstructure:"preference_keys"`
	// SchemaPath points at a YAML key schema file; it wins over
	// PreferenceKeys when set.
	SchemaPath string `yaml:"schema_path" mapstructure:"schema_path"`
}

// MarketConfig configures market-data sync.
type MarketConfig struct {
	Sources     []MarketSourceConfig `yaml:"sources" mapstructure:"sources"`
	RatePerSec  float64              `yaml:"rate_per_sec" mapstructure:"rate_per_sec"`
	Burst       int                  `yaml:"burst" mapstructure:"burst"`
	TimeoutSecs int                  `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	Retries     int                  `yaml:"retries" mapstructure:"retries"`
	UserAgent   string               `yaml:"user_agent" mapstructure:"user_agent"`
}

// MarketSourceConfig describes one rate feed.
type MarketSourceConfig struct {
	Name string `yaml:"name" mapstructure:"name"`
	// Kind is "http" or "ftp".
	Kind string `yaml:"kind" mapstructure:"kind"`
	URL  string `yaml:"url" mapstructure:"url"`
}

// ArchiveConfig configures archived-record retention.
type ArchiveConfig struct {
	RetentionDays int `yaml:"retention_days" mapstructure:"retention_days"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("DEALDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "json")
	v.SetDefault("store.dir", "data")
	v.SetDefault("store.backups", 5)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("market.rate_per_sec", 2.0)
	v.SetDefault("market.burst", 2)
	v.SetDefault("market.timeout_secs", 30)
	v.SetDefault("market.retries", 3)
	v.SetDefault("market.user_agent", "dealdesk-cli/1.0 (deals@harborline.com)")
	v.SetDefault("archive.retention_days", 365)

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

// Validate checks the configuration for a given mode. Mode "store" covers
// every command that opens the store; "serve" additionally checks the API
// server settings.
func (c *Config) Validate(mode string) error {
	var problems []string

	appendStore := func() {
		switch c.Store.Driver {
		case "json":
			if c.Store.Dir == "" {
				problems = append(problems, "store.dir is required for the json driver")
			}
		case "sqlite", "postgres":
			if c.Store.DatabaseURL == "" {
				problems = append(problems, "store.database_url is required for the "+c.Store.Driver+" driver")
			}
		default:
			problems = append(problems, "store.driver must be json, sqlite, or postgres")
		}
		if c.Store.Backups < 0 {
			problems = append(problems, "store.backups must be >= 0")
		}
		if c.Archive.RetentionDays < 0 {
			problems = append(problems, "archive.retention_days must be >= 0")
		}
	}

	switch mode {
	case "store":
		appendStore()
	case "serve":
		appendStore()
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			problems = append(problems, "server.port must be > 0")
		}
	case "market":
		appendStore()
		if c.Market.RatePerSec <= 0 {
			problems = append(problems, "market.rate_per_sec must be > 0")
		}
		if c.Market.TimeoutSecs <= 0 {
			problems = append(problems, "market.timeout_secs must be > 0")
		}
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
