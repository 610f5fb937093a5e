// Package postgres stores numbers in PostgreSQL on the request transaction
// opened by pgxtx.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"reqtx/internal/errs"
	"reqtx/internal/ports"
	"reqtx/internal/txscope"
)

type NumberRepository struct{}

var _ ports.NumberRepository = (*NumberRepository)(nil)

func NewNumberRepository() *NumberRepository {
	return &NumberRepository{}
}

func txFromContext(ctx context.Context) (pgx.Tx, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	tx, err := txscope.From[pgx.Tx](ctx)
	if err != nil {
		return nil, errs.Wrap(err, "resolve request transaction")
	}
	return tx, nil
}

func (r *NumberRepository) Insert(ctx context.Context, value int64) (ports.Number, error) {
	tx, err := txFromContext(ctx)
	if err != nil {
		return ports.Number{}, err
	}

	var (
		n  ports.Number
		id int64
	)
	if err := tx.QueryRow(ctx,
		`INSERT INTO numbers (value) VALUES ($1) RETURNING id, value, created_at`,
		value,
	).Scan(&id, &n.Value, &n.CreatedAt); err != nil {
		return ports.Number{}, errs.Wrap(err, "insert number")
	}
	n.ID = uint64(id)
	return n, nil
}

func (r *NumberRepository) Each(ctx context.Context, fn func(ports.Number) error) error {
	if fn == nil {
		return errors.New("callback is required")
	}

	tx, err := txFromContext(ctx)
	if err != nil {
		return err
	}

	rows, err := tx.Query(ctx, `SELECT id, value, created_at FROM numbers ORDER BY id`)
	if err != nil {
		return errs.Wrap(err, "query numbers")
	}

	var (
		id int64
		n  ports.Number
	)
	var cbErr error
	_, err = pgx.ForEachRow(rows, []any{&id, &n.Value, &n.CreatedAt}, func() error {
		n.ID = uint64(id)
		if err := fn(n); err != nil {
			cbErr = err
			return err
		}
		return nil
	})
	if cbErr != nil {
		return cbErr
	}
	if err != nil {
		return errs.Wrap(err, "iterate numbers")
	}
	return nil
}

func (r *NumberRepository) Count(ctx context.Context) (int64, error) {
	tx, err := txFromContext(ctx)
	if err != nil {
		return 0, err
	}

	var n int64
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM numbers`).Scan(&n); err != nil {
		return 0, errs.Wrap(err, "count numbers")
	}
	return n, nil
}
