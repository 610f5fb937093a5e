// Package pgxtx adapts pgx pools and connections to txscope.
package pgxtx

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"reqtx/internal/txscope"
)

// TxStarter is satisfied by *pgxpool.Pool and *pgx.Conn.
type TxStarter interface {
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
}

var (
	_ TxStarter = (*pgxpool.Pool)(nil)
	_ TxStarter = (*pgx.Conn)(nil)

	_ txscope.Beginner[pgx.Tx] = (*Beginner)(nil)
)

type Beginner struct {
	db   TxStarter
	opts pgx.TxOptions
}

func NewBeginner(db TxStarter, opts pgx.TxOptions) *Beginner {
	return &Beginner{db: db, opts: opts}
}

// Connect opens a pool for dsn and wraps it. maxConns caps the pool when
// positive. The caller closes the pool.
func Connect(ctx context.Context, dsn string, maxConns int32, opts pgx.TxOptions) (*Beginner, *pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxtx: parse dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("pgxtx: open pool: %w", err)
	}
	return NewBeginner(pool, opts), pool, nil
}

func (b *Beginner) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := b.db.BeginTx(ctx, b.opts)
	if err != nil {
		return nil, fmt.Errorf("pgxtx: begin tx failed: %w", err)
	}
	return tx, nil
}

func (b *Beginner) Commit(ctx context.Context, tx pgx.Tx) error {
	return tx.Commit(ctx)
}

func (b *Beginner) Rollback(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
		return err
	}
	return nil
}
