package bootstrap

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/jackc/pgx/v5"
	"go.uber.org/fx"
	"gorm.io/gorm"

	"reqtx/internal/bootstrap/config"
	"reqtx/internal/bootstrap/database"
	"reqtx/internal/bootstrap/logging"
	"reqtx/internal/errs"
	"reqtx/internal/infrastructure/persistence/gormtx"
	"reqtx/internal/infrastructure/persistence/pgxtx"
	"reqtx/internal/infrastructure/persistence/postgres"
	"reqtx/internal/infrastructure/persistence/schema"
	sqliterepo "reqtx/internal/infrastructure/persistence/sqlite/repository"
	"reqtx/internal/infrastructure/persistence/sqlstd"
	"reqtx/internal/infrastructure/persistence/sqltx"
	"reqtx/internal/infrastructure/persistence/uow"
	"reqtx/internal/ports"
	"reqtx/internal/txscope"
)

// Backend is the transaction layer of the configured driver with its
// handle type erased, so transports and commands need not know it.
type Backend struct {
	Driver string
	// Middleware wraps HTTP routes in a request transaction.
	Middleware func(http.Handler) http.Handler
	// Run drives a response-valued pipeline in a request transaction.
	Run    func(ctx context.Context, next func(ctx context.Context) (*txscope.Response, error)) (*txscope.Response, error)
	Schema ports.SchemaStore
}

type backendParams struct {
	fx.In

	Lifecycle fx.Lifecycle
	Ctx       context.Context
	Config    config.Config
	Recorder  txscope.Recorder
}

type backendResult struct {
	fx.Out

	Backend    *Backend
	Repository ports.NumberRepository
	UnitOfWork ports.UnitOfWork
}

func newBackendResult[T any](driver string, layer *txscope.Layer[T], repo ports.NumberRepository, store ports.SchemaStore) backendResult {
	return backendResult{
		Backend: &Backend{
			Driver:     driver,
			Middleware: layer.Middleware,
			Run:        layer.Run,
			Schema:     store,
		},
		Repository: repo,
		UnitOfWork: uow.NewUnitOfWork(layer),
	}
}

func provideBackend(p backendParams) (backendResult, error) {
	logCtx := logging.WithAttrs(p.Ctx, slog.String("component", "bootstrap.fx"))

	driver, err := p.Config.Database.Backend()
	if err != nil {
		return backendResult{}, err
	}
	opts, err := LayerOptions(p.Ctx, p.Config.Tx)
	if err != nil {
		return backendResult{}, err
	}
	opts = append(opts, txscope.WithRecorder(p.Recorder))

	var res backendResult
	switch driver {
	case config.DriverSQLite:
		db, err := openGorm(logCtx, p.Lifecycle, p.Config.Database)
		if err != nil {
			return backendResult{}, err
		}
		layer := txscope.NewLayer[*gorm.DB](gormtx.NewBeginner(db), opts...)
		res = newBackendResult(driver, layer, sqliterepo.NewNumberRepository(), schema.NewGormStore(db))
	case config.DriverSQLiteStdlib:
		db, err := openGorm(logCtx, p.Lifecycle, p.Config.Database)
		if err != nil {
			return backendResult{}, err
		}
		sqlDB, err := db.DB()
		if err != nil {
			return backendResult{}, errs.Wrap(err, "get sql db")
		}
		layer := txscope.NewLayer[*sql.Tx](sqltx.NewBeginner(sqlDB, nil), opts...)
		res = newBackendResult(driver, layer, sqlstd.NewNumberRepository(), schema.NewGormStore(db))
	case config.DriverPostgres:
		beginner, pool, err := pgxtx.Connect(p.Ctx, p.Config.Database.DSN, int32(p.Config.Database.MaxOpenConns), pgx.TxOptions{})
		if err != nil {
			return backendResult{}, errs.Wrap(err, "connect postgres")
		}
		p.Lifecycle.Append(fx.Hook{
			OnStop: func(_ context.Context) error {
				pool.Close()
				logging.Info(logCtx, "postgres pool closed")
				return nil
			},
		})
		layer := txscope.NewLayer[pgx.Tx](beginner, opts...)
		res = newBackendResult(driver, layer, postgres.NewNumberRepository(), postgres.NewSchemaStore(pool))
		logging.Info(logCtx, "postgres pool opened", slog.Int("max_open_conns", p.Config.Database.MaxOpenConns))
	}

	logging.Info(logCtx, "transaction backend selected", slog.String("driver", driver))
	return res, nil
}

func openGorm(ctx context.Context, lc fx.Lifecycle, cfg config.DatabaseConfig) (*gorm.DB, error) {
	db, err := database.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(_ context.Context) error {
			sqlDB, err := db.DB()
			if err != nil {
				return err
			}
			if err := sqlDB.Close(); err != nil {
				return err
			}
			logging.Info(ctx, "database connection closed")
			return nil
		},
	})
	return db, nil
}
