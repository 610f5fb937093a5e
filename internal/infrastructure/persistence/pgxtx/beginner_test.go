package pgxtx

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"

	"reqtx/internal/txscope"
)

// fakeTx implements the pgx.Tx methods the beginner uses; the embedded
// interface panics on anything else.
type fakeTx struct {
	pgx.Tx
	commits     int
	rollbacks   int
	commitErr   error
	rollbackErr error
}

func (f *fakeTx) Commit(context.Context) error {
	f.commits++
	return f.commitErr
}

func (f *fakeTx) Rollback(context.Context) error {
	f.rollbacks++
	return f.rollbackErr
}

type fakeStarter struct {
	tx     *fakeTx
	opts   []pgx.TxOptions
	err    error
	begins int
}

func (s *fakeStarter) BeginTx(_ context.Context, opts pgx.TxOptions) (pgx.Tx, error) {
	s.begins++
	s.opts = append(s.opts, opts)
	if s.err != nil {
		return nil, s.err
	}
	return s.tx, nil
}

func TestBeginPassesOptions(t *testing.T) {
	starter := &fakeStarter{tx: &fakeTx{}}
	b := NewBeginner(starter, pgx.TxOptions{IsoLevel: pgx.Serializable})

	if _, err := b.Begin(context.Background()); err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	if len(starter.opts) != 1 || starter.opts[0].IsoLevel != pgx.Serializable {
		t.Fatalf("BeginTx() options = %+v", starter.opts)
	}
}

func TestBeginWrapsError(t *testing.T) {
	poolErr := errors.New("too many clients")
	b := NewBeginner(&fakeStarter{err: poolErr}, pgx.TxOptions{})

	if _, err := b.Begin(context.Background()); !errors.Is(err, poolErr) {
		t.Fatalf("Begin() error = %v, want pool error", err)
	}
}

func TestCommitFailureRecoveryIgnoresClosedTx(t *testing.T) {
	tx := &fakeTx{commitErr: errors.New("could not serialize access"), rollbackErr: pgx.ErrTxClosed}
	slot := txscope.NewSlot[pgx.Tx](NewBeginner(&fakeStarter{tx: tx}, pgx.TxOptions{}))
	ctx := context.Background()

	if _, err := slot.Extract(ctx); err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	err := slot.Finalize(ctx, txscope.DecisionCommit)
	var ferr *txscope.FinalizeError
	if !errors.As(err, &ferr) || ferr.Commit == nil || ferr.Rollback != nil {
		t.Fatalf("Finalize() error = %v, want commit failure with clean recovery", err)
	}
	if slot.State() != txscope.StateRolledBack {
		t.Fatalf("State() = %s, want rolled_back", slot.State())
	}
	if tx.commits != 1 || tx.rollbacks != 1 {
		t.Fatalf("commits=%d rollbacks=%d", tx.commits, tx.rollbacks)
	}
}

func TestRollbackReportsRealErrors(t *testing.T) {
	connErr := errors.New("conn busy")
	b := NewBeginner(&fakeStarter{}, pgx.TxOptions{})
	if err := b.Rollback(context.Background(), &fakeTx{rollbackErr: connErr}); !errors.Is(err, connErr) {
		t.Fatalf("Rollback() error = %v, want conn error", err)
	}
}

func TestConnectRejectsBadDSN(t *testing.T) {
	if _, _, err := Connect(context.Background(), "postgres://%zz", 1, pgx.TxOptions{}); err == nil {
		t.Fatalf("Connect() expected error for malformed dsn")
	}
}
