package sqltx

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"reqtx/internal/txscope"
)

// Beginner opens request transactions on a database/sql pool.
type Beginner struct {
	db   *sql.DB
	opts *sql.TxOptions
}

var _ txscope.Beginner[*sql.Tx] = (*Beginner)(nil)

func NewBeginner(db *sql.DB, opts *sql.TxOptions) *Beginner {
	return &Beginner{db: db, opts: opts}
}

func (b *Beginner) Begin(ctx context.Context) (*sql.Tx, error) {
	tx, err := b.db.BeginTx(ctx, b.opts)
	if err != nil {
		return nil, fmt.Errorf("sqltx: begin tx failed: %w", err)
	}
	return tx, nil
}

func (b *Beginner) Commit(_ context.Context, tx *sql.Tx) error {
	return tx.Commit()
}

func (b *Beginner) Rollback(_ context.Context, tx *sql.Tx) error {
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return err
	}
	return nil
}
