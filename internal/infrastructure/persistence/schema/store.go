package schema

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"gorm.io/gorm"

	"reqtx/internal/bootstrap/logging"
	"reqtx/internal/errs"
	"reqtx/internal/infrastructure/persistence/sqlite/model"
	"reqtx/internal/ports"
)

var ErrNotInitialized = errors.New("schema is not initialized, run init-db first")

// GormStore migrates the numbers schema through gorm.
type GormStore struct {
	db *gorm.DB
}

var _ ports.SchemaStore = (*GormStore)(nil)

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Init(ctx context.Context) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if err := ctx.Err(); err != nil {
		return errs.Wrap(err, "check context")
	}

	logCtx := logging.WithAttrs(ctx, slog.String("component", "persistence.schema"))
	logging.Info(logCtx, "start schema migration", slog.String("backend", "gorm"))

	if err := s.db.WithContext(ctx).AutoMigrate(
		&model.Number{},
		&SchemaMeta{},
	); err != nil {
		return errs.Wrap(err, "auto migrate schema")
	}
	if err := RecordVersion(ctx, s.db); err != nil {
		return err
	}

	logging.Info(logCtx, "schema migration completed", slog.String("schema_version", Version))
	return nil
}

func (s *GormStore) Check(ctx context.Context) error {
	version, ok, err := CurrentVersion(ctx, s.db)
	if err != nil {
		return err
	}
	return CompareVersion(version, ok)
}

// CompareVersion turns a recorded version lookup into the check result.
func CompareVersion(version string, ok bool) error {
	if !ok {
		return ErrNotInitialized
	}
	if version != Version {
		return fmt.Errorf("schema version %q does not match %q, run init-db", version, Version)
	}
	return nil
}
