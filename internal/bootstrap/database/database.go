package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"reqtx/internal/bootstrap/config"
	"reqtx/internal/bootstrap/logging"
	"reqtx/internal/errs"
)

// Open opens a gorm handle for the sqlite backends. The postgres backend
// is served by pgxtx.Connect instead.
func Open(ctx context.Context, cfg config.DatabaseConfig) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return nil, errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.database"))

	backend, err := cfg.Backend()
	if err != nil {
		return nil, err
	}

	switch backend {
	case config.DriverSQLite, config.DriverSQLiteStdlib:
		dir, err := ensureSQLiteDirectory(cfg.DSN)
		if err != nil {
			return nil, errs.Wrap(err, "ensure sqlite directory")
		}
		if dir != "" {
			logging.Debug(logCtx, "sqlite directory ensured", slog.String("dir", dir))
		}

		db, err := gorm.Open(gormsqlite.Open(cfg.DSN), &gorm.Config{
			Logger: newGormLogger(logCtx, cfg),
		})
		if err != nil {
			return nil, errs.Wrap(err, "open sqlite db")
		}
		if cfg.MaxOpenConns > 0 {
			sqlDB, err := db.DB()
			if err != nil {
				return nil, errs.Wrap(err, "get sql db")
			}
			sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		}
		logging.Info(
			logCtx,
			"database opened",
			slog.String("driver", backend),
			slog.String("dsn", cfg.DSN),
			slog.Int("max_open_conns", cfg.MaxOpenConns),
		)
		return db, nil
	default:
		return nil, fmt.Errorf("database driver %q is not served by gorm", cfg.Driver)
	}
}

// ensureSQLiteDirectory creates the parent directory of a file DSN and
// returns it. Memory databases and bare file names need nothing.
func ensureSQLiteDirectory(dsn string) (string, error) {
	candidate := strings.TrimSpace(dsn)
	if idx := strings.Index(candidate, "?"); idx >= 0 {
		candidate = candidate[:idx]
	}
	if len(candidate) >= 5 && strings.EqualFold(candidate[:5], "file:") {
		candidate = candidate[5:]
	}
	if candidate == "" || candidate == ":memory:" {
		return "", nil
	}

	dir := filepath.Dir(candidate)
	if dir == "" || dir == "." {
		return "", nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", errs.Wrapf(err, "create sqlite directory %q", dir)
	}
	return dir, nil
}

// slogPrinter routes gorm's logger output into the context logger.
type slogPrinter struct {
	ctx context.Context
}

func (p slogPrinter) Printf(format string, args ...any) {
	logging.Warn(p.ctx, "gorm", slog.String("detail", fmt.Sprintf(format, args...)))
}

func newGormLogger(ctx context.Context, cfg config.DatabaseConfig) gormlogger.Interface {
	return gormlogger.New(slogPrinter{ctx: ctx}, gormlogger.Config{
		SlowThreshold:             cfg.SlowThreshold,
		LogLevel:                  gormlogger.Warn,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}
