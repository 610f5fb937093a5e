package uow

import (
	"context"
	"errors"

	"reqtx/internal/errs"
	"reqtx/internal/ports"
	"reqtx/internal/txscope"
)

// UnitOfWork implements ports.UnitOfWork on the same slot machinery as the
// HTTP layer, so repositories resolve their transaction the same way
// whatever handle type T the backend uses.
type UnitOfWork[T any] struct {
	layer *txscope.Layer[T]
}

func NewUnitOfWork[T any](layer *txscope.Layer[T]) *UnitOfWork[T] {
	return &UnitOfWork[T]{layer: layer}
}

var _ ports.UnitOfWork = (*UnitOfWork[any])(nil)

func (u *UnitOfWork[T]) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx == nil {
		return errors.New("context is required")
	}
	if _, ok := txscope.SlotFrom[T](ctx); ok {
		return fn(ctx)
	}

	slot := u.layer.NewSlot()
	txCtx := txscope.WithSlot(ctx, slot)

	finished := false
	defer func() {
		// Close logs its own failure.
		if !finished {
			_ = slot.Close(txCtx)
		}
	}()

	err := fn(txCtx)
	finished = true
	if err != nil {
		if ferr := slot.Finalize(txCtx, txscope.DecisionRollback); ferr != nil {
			return errors.Join(err, ferr)
		}
		return err
	}
	return errs.Wrap(slot.Finalize(txCtx, txscope.DecisionCommit), "commit unit of work")
}

func (u *UnitOfWork[T]) Commit(ctx context.Context) error {
	return txscope.Commit[T](ctx)
}

func (u *UnitOfWork[T]) Rollback(ctx context.Context) error {
	return txscope.Rollback[T](ctx)
}
