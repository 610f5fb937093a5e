package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"reqtx/internal/errs"
	"reqtx/internal/infrastructure/persistence/sqlite/model"
	"reqtx/internal/ports"
	"reqtx/internal/txscope"
)

// NumberRepository always runs inside the transaction bound to ctx, either
// by the HTTP layer or by the unit of work. It holds no connection itself.
type NumberRepository struct{}

var _ ports.NumberRepository = (*NumberRepository)(nil)

func NewNumberRepository() *NumberRepository {
	return &NumberRepository{}
}

func (r *NumberRepository) dbFromContext(ctx context.Context) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	tx, err := txscope.From[*gorm.DB](ctx)
	if err != nil {
		return nil, errs.Wrap(err, "resolve request transaction")
	}
	return tx.WithContext(ctx), nil
}

func (r *NumberRepository) Insert(ctx context.Context, value int64) (ports.Number, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return ports.Number{}, err
	}

	row := model.Number{Value: value}
	if err := db.Create(&row).Error; err != nil {
		return ports.Number{}, errs.Wrap(err, "insert number")
	}
	return mapNumber(row), nil
}

func (r *NumberRepository) Each(ctx context.Context, fn func(ports.Number) error) error {
	if fn == nil {
		return errors.New("callback is required")
	}

	db, err := r.dbFromContext(ctx)
	if err != nil {
		return err
	}

	rows, err := db.Model(&model.Number{}).Order("id asc").Rows()
	if err != nil {
		return errs.Wrap(err, "query numbers")
	}
	defer rows.Close()

	for rows.Next() {
		var row model.Number
		if err := db.ScanRows(rows, &row); err != nil {
			return errs.Wrap(err, "scan number")
		}
		if err := fn(mapNumber(row)); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return errs.Wrap(err, "iterate numbers")
	}
	return nil
}

func (r *NumberRepository) Count(ctx context.Context) (int64, error) {
	db, err := r.dbFromContext(ctx)
	if err != nil {
		return 0, err
	}

	var n int64
	if err := db.Model(&model.Number{}).Count(&n).Error; err != nil {
		return 0, errs.Wrap(err, "count numbers")
	}
	return n, nil
}

func mapNumber(row model.Number) ports.Number {
	return ports.Number{
		ID:        row.ID,
		Value:     row.Value,
		CreatedAt: row.CreatedAt,
	}
}
