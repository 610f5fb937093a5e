package gormtx

import (
	"context"
	"database/sql"
	"errors"

	"gorm.io/gorm"

	"reqtx/internal/errs"
	"reqtx/internal/txscope"
)

// Beginner opens request transactions on a gorm DB. The handle is the
// transaction-bound *gorm.DB returned by Begin.
type Beginner struct {
	db   *gorm.DB
	opts []*sql.TxOptions
}

var _ txscope.Beginner[*gorm.DB] = (*Beginner)(nil)

func NewBeginner(db *gorm.DB, opts ...*sql.TxOptions) *Beginner {
	return &Beginner{db: db, opts: opts}
}

func (b *Beginner) Begin(ctx context.Context) (*gorm.DB, error) {
	if ctx == nil {
		return nil, errors.New("context is required")
	}

	tx := b.db.WithContext(ctx).Begin(b.opts...)
	if tx.Error != nil {
		return nil, errs.Wrap(tx.Error, "begin gorm transaction")
	}
	return tx, nil
}

func (b *Beginner) Commit(_ context.Context, tx *gorm.DB) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	return errs.WithStack(tx.Commit().Error)
}

// Rollback treats an already finished transaction as rolled back, which is
// what a failed commit leaves behind.
func (b *Beginner) Rollback(_ context.Context, tx *gorm.DB) error {
	if tx == nil {
		return gorm.ErrInvalidTransaction
	}
	if err := tx.Rollback().Error; err != nil && !errors.Is(err, sql.ErrTxDone) {
		return errs.WithStack(err)
	}
	return nil
}
