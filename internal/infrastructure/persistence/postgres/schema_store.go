package postgres

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"reqtx/internal/bootstrap/logging"
	"reqtx/internal/errs"
	"reqtx/internal/infrastructure/persistence/schema"
	"reqtx/internal/ports"
)

const undefinedTable = "42P01"

var ddl = []string{
	`CREATE TABLE IF NOT EXISTS numbers (
		id BIGSERIAL PRIMARY KEY,
		value BIGINT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_numbers_value ON numbers (value)`,
	`CREATE TABLE IF NOT EXISTS schema_meta (
		id BIGSERIAL PRIMARY KEY,
		key TEXT NOT NULL UNIQUE,
		value TEXT NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
}

// SchemaStore applies the numbers schema with plain DDL; gorm is not used
// on the pgx backend.
type SchemaStore struct {
	pool *pgxpool.Pool
}

var _ ports.SchemaStore = (*SchemaStore)(nil)

func NewSchemaStore(pool *pgxpool.Pool) *SchemaStore {
	return &SchemaStore{pool: pool}
}

func (s *SchemaStore) Init(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "persistence.postgres"))
	logging.Info(logCtx, "start schema migration", slog.String("backend", "pgx"))

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		for _, stmt := range ddl {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return errs.Wrap(err, "apply schema ddl")
			}
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO schema_meta (key, value) VALUES ($1, $2)
			ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
			schema.VersionKey, schema.Version,
		); err != nil {
			return errs.Wrap(err, "record schema version")
		}
		return nil
	})
	if err != nil {
		return err
	}

	logging.Info(logCtx, "schema migration completed", slog.String("schema_version", schema.Version))
	return nil
}

func (s *SchemaStore) Check(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}

	var version string
	err := s.pool.QueryRow(ctx, `SELECT value FROM schema_meta WHERE key = $1`, schema.VersionKey).Scan(&version)
	var pgErr *pgconn.PgError
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		return schema.CompareVersion("", false)
	case errors.As(err, &pgErr) && pgErr.Code == undefinedTable:
		return schema.CompareVersion("", false)
	case err != nil:
		return errs.Wrap(err, "query schema version")
	}
	return schema.CompareVersion(version, true)
}
