package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"reqtx/internal/bootstrap/logging"
	"reqtx/internal/errs"
)

type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Database DatabaseConfig `mapstructure:"database"`
	HTTP     HTTPConfig     `mapstructure:"http"`
	Tx       TxConfig       `mapstructure:"tx"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Tracing  TracingConfig  `mapstructure:"tracing"`
}

type AppConfig struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
}

// Backends selected by database.driver.
const (
	DriverSQLite       = "sqlite"
	DriverSQLiteStdlib = "sqlite-stdlib"
	DriverPostgres     = "postgres"
)

type DatabaseConfig struct {
	// Driver picks the backend: sqlite (gorm), sqlite-stdlib (database/sql)
	// or postgres (pgx pool).
	Driver       string `mapstructure:"driver"`
	DSN          string `mapstructure:"dsn"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	// SlowThreshold logs statements slower than this at warn level.
	SlowThreshold time.Duration `mapstructure:"slow_threshold"`
}

// Backend returns the canonical driver name, accepting the usual aliases.
func (c DatabaseConfig) Backend() (string, error) {
	switch strings.ToLower(strings.TrimSpace(c.Driver)) {
	case "sqlite", "sqlite3":
		return DriverSQLite, nil
	case "sqlite-stdlib":
		return DriverSQLiteStdlib, nil
	case "postgres", "postgresql", "pgx":
		return DriverPostgres, nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", c.Driver)
	}
}

type HTTPConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// TxConfig configures the request transaction layer.
type TxConfig struct {
	// CommitMinStatus and CommitMaxStatus bound the statuses that commit.
	CommitMinStatus int           `mapstructure:"commit_min_status"`
	CommitMaxStatus int           `mapstructure:"commit_max_status"`
	MaxBufferBytes  int           `mapstructure:"max_buffer_bytes"`
	FinalizeTimeout time.Duration `mapstructure:"finalize_timeout"`
	// StreamErrorMode is "log" or "abort".
	StreamErrorMode string `mapstructure:"stream_error_mode"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type TracingConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

func Load(ctx context.Context, configFile string) (Config, error) {
	if ctx == nil {
		return Config{}, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return Config{}, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.config"))

	v := viper.New()
	setDefaults(logCtx, v)

	v.SetEnvPrefix("REQTX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &notFound) {
			// Keep default and env-backed config when no file is provided.
			logging.Warn(logCtx, "config file not found, fallback to defaults and env")
		} else {
			return Config{}, errs.Wrap(err, "read config")
		}
	} else {
		logging.Info(logCtx, "using config file", slog.String("path", v.ConfigFileUsed()))
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, errs.Wrap(err, "unmarshal config")
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, errs.Wrap(err, "validate config")
	}

	logging.Info(
		logCtx,
		"config loaded",
		slog.String("app", cfg.App.Name),
		slog.String("env", cfg.App.Env),
		slog.String("database_driver", cfg.Database.Driver),
		slog.String("http_addr", cfg.HTTP.Addr),
		slog.String("stream_error_mode", cfg.Tx.StreamErrorMode),
	)

	return cfg, nil
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.Database.DSN) == "" {
		return errors.New("database.dsn is required")
	}
	if _, err := c.Database.Backend(); err != nil {
		return err
	}
	if c.Database.MaxOpenConns < 0 {
		return errors.New("database.max_open_conns must not be negative")
	}
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		return errors.New("http.addr is required")
	}
	if c.Tx.CommitMinStatus < 100 || c.Tx.CommitMaxStatus > 599 || c.Tx.CommitMinStatus > c.Tx.CommitMaxStatus {
		return fmt.Errorf("tx commit status range [%d, %d] is invalid", c.Tx.CommitMinStatus, c.Tx.CommitMaxStatus)
	}
	if c.Tx.FinalizeTimeout < 0 {
		return errors.New("tx.finalize_timeout must not be negative")
	}
	switch strings.ToLower(strings.TrimSpace(c.Tx.StreamErrorMode)) {
	case "log", "abort":
	default:
		return fmt.Errorf("tx.stream_error_mode %q must be log or abort", c.Tx.StreamErrorMode)
	}
	return nil
}

func setDefaults(ctx context.Context, v *viper.Viper) {
	if ctx == nil {
		return
	}

	v.SetDefault("app.name", "reqtx")
	v.SetDefault("app.env", "local")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", ".data/reqtx.sqlite?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	v.SetDefault("database.max_open_conns", 4)
	v.SetDefault("database.slow_threshold", 200*time.Millisecond)
	v.SetDefault("http.addr", ":8080")
	v.SetDefault("http.shutdown_timeout", 10*time.Second)
	v.SetDefault("tx.commit_min_status", 200)
	v.SetDefault("tx.commit_max_status", 299)
	v.SetDefault("tx.max_buffer_bytes", 1<<20)
	v.SetDefault("tx.finalize_timeout", 30*time.Second)
	v.SetDefault("tx.stream_error_mode", "log")
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("tracing.enabled", false)
}
