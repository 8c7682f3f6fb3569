package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/zap/zapcore"

	"github.com/warp/leave-engine/leave"
)

// EnvPrefix is prepended to every environment override, e.g.
// LEAVE_SERVER_PORT=9090 overrides server.port.
const EnvPrefix = "LEAVE"

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Logger    LoggerConfig    `mapstructure:"logger"`
	CORS      CORSConfig      `mapstructure:"cors"`
	Seed      SeedConfig      `mapstructure:"seed"`
	Analytics AnalyticsConfig `mapstructure:"analytics"`
	Rollup    RollupConfig    `mapstructure:"rollup"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

// Addr is the listen address for http.Server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

const (
	DriverMemory = "memory"
	DriverSQLite = "sqlite"
)

// StorageConfig selects the store backend
type StorageConfig struct {
	Driver     string `mapstructure:"driver"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// SeedConfig names a demo scenario to load at startup. Empty loads nothing.
type SeedConfig struct {
	Scenario string `mapstructure:"scenario"`
}

// AnalyticsConfig carries the externally supplied monthly series shown on
// the analytics dashboard before the rollup has produced its own.
type AnalyticsConfig struct {
	History []leave.MonthlyBucket `mapstructure:"history"`
}

// RollupConfig controls the monthly history rollup job
type RollupConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Interval time.Duration `mapstructure:"interval"`
}

// Load reads configuration from an optional YAML file and the environment.
// An empty path skips the file and uses defaults plus environment only.
func Load(configPath string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Override with environment variables
	bindEnvVars(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// Validate configuration
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 15*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)

	// Storage defaults
	v.SetDefault("storage.driver", DriverMemory)
	v.SetDefault("storage.sqlite_path", "data/leave.db")

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "json")

	v.SetDefault("cors.allowed_origins", []string{"http://localhost:3000", "http://localhost:5173"})

	v.SetDefault("seed.scenario", "")

	v.SetDefault("rollup.enabled", true)
	v.SetDefault("rollup.interval", time.Hour)
}

// bindEnvVars binds the short variable names used by container deployments
func bindEnvVars(v *viper.Viper) {
	v.BindEnv("server.port", EnvPrefix+"_SERVER_PORT", "PORT")
	v.BindEnv("storage.sqlite_path", EnvPrefix+"_STORAGE_SQLITE_PATH", EnvPrefix+"_DB_PATH")
	v.BindEnv("logger.level", EnvPrefix+"_LOGGER_LEVEL", "LOG_LEVEL")
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}

	switch c.Storage.Driver {
	case DriverMemory:
	case DriverSQLite:
		if c.Storage.SQLitePath == "" {
			return fmt.Errorf("storage.sqlite_path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("storage.driver must be %q or %q, got %q", DriverMemory, DriverSQLite, c.Storage.Driver)
	}

	if _, err := zapcore.ParseLevel(c.Logger.Level); err != nil {
		return fmt.Errorf("logger.level: %w", err)
	}
	if c.Logger.Format != "json" && c.Logger.Format != "console" {
		return fmt.Errorf("logger.format must be json or console, got %q", c.Logger.Format)
	}

	if c.Rollup.Enabled && c.Rollup.Interval <= 0 {
		return fmt.Errorf("rollup.interval must be positive when rollup is enabled")
	}

	seen := make(map[string]bool, len(c.Analytics.History))
	for _, b := range c.Analytics.History {
		if _, err := time.Parse("2006-01", b.Month); err != nil {
			return fmt.Errorf("analytics.history: month %q is not YYYY-MM", b.Month)
		}
		if seen[b.Month] {
			return fmt.Errorf("analytics.history: month %s listed twice", b.Month)
		}
		seen[b.Month] = true
		if b.Applied < 0 || b.Approved < 0 || b.Rejected < 0 || b.Approved+b.Rejected > b.Applied {
			return fmt.Errorf("analytics.history: month %s has inconsistent counts", b.Month)
		}
	}

	return nil
}
