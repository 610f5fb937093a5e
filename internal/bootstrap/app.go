package bootstrap

import (
	"context"
	"errors"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"reqtx/internal/bootstrap/config"
	"reqtx/internal/bootstrap/logging"
	"reqtx/internal/errs"
	"reqtx/internal/usecase/numbers"
)

type App struct {
	Config   config.Config
	Backend  *Backend
	Numbers  *numbers.Service
	Registry *prometheus.Registry
}

func (a *App) InitSchema(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "bootstrap.app"))
	if err := a.Backend.Schema.Init(logCtx); err != nil {
		return errs.Wrapf(err, "init %s schema", a.Backend.Driver)
	}
	return nil
}

// CheckSchema reports whether init-db has been run against the database.
func (a *App) CheckSchema(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	return a.Backend.Schema.Check(ctx)
}
