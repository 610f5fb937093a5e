// Package sqlstd stores numbers through plain database/sql on the request
// transaction opened by sqltx.
package sqlstd

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"reqtx/internal/errs"
	"reqtx/internal/ports"
	"reqtx/internal/txscope"
)

// NumberRepository expects the numbers table created by the gorm schema
// store, so both sqlite backends share one layout.
type NumberRepository struct{}

var _ ports.NumberRepository = (*NumberRepository)(nil)

func NewNumberRepository() *NumberRepository {
	return &NumberRepository{}
}

func txFromContext(ctx context.Context) (*sql.Tx, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}
	tx, err := txscope.From[*sql.Tx](ctx)
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

	now := time.Now().UTC()
	res, err := tx.ExecContext(ctx, `INSERT INTO numbers (value, created_at) VALUES (?, ?)`, value, now)
	if err != nil {
		return ports.Number{}, errs.Wrap(err, "insert number")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return ports.Number{}, errs.Wrap(err, "read inserted id")
	}
	return ports.Number{ID: uint64(id), Value: value, CreatedAt: now}, nil
}

func (r *NumberRepository) Each(ctx context.Context, fn func(ports.Number) error) error {
	if fn == nil {
		return errors.New("callback is required")
	}

	tx, err := txFromContext(ctx)
	if err != nil {
		return err
	}

	rows, err := tx.QueryContext(ctx, `SELECT id, value, created_at FROM numbers ORDER BY id`)
	if err != nil {
		return errs.Wrap(err, "query numbers")
	}
	defer rows.Close()

	for rows.Next() {
		var n ports.Number
		if err := rows.Scan(&n.ID, &n.Value, &n.CreatedAt); err != nil {
			return errs.Wrap(err, "scan number")
		}
		if err := fn(n); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
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
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM numbers`).Scan(&n); err != nil {
		return 0, errs.Wrap(err, "count numbers")
	}
	return n, nil
}
