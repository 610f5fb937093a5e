package txscope

import (
	"context"
	"net/http"
)

// slotKey is distinct per handle type, so one request can carry slots for
// several backends.
type slotKey[T any] struct{}

// WithSlot makes slot discoverable by From for the lifetime of ctx.
func WithSlot[T any](ctx context.Context, slot *Slot[T]) context.Context {
	return context.WithValue(ctx, slotKey[T]{}, slot)
}

func SlotFrom[T any](ctx context.Context) (*Slot[T], bool) {
	if ctx == nil {
		return nil, false
	}
	slot, ok := ctx.Value(slotKey[T]{}).(*Slot[T])
	return slot, ok && slot != nil
}

// From returns the request transaction, beginning it on first use. Every
// call for the same request yields the same handle.
func From[T any](ctx context.Context) (T, error) {
	slot, ok := SlotFrom[T](ctx)
	if !ok {
		var zero T
		return zero, ErrMissingSlot
	}
	return slot.Extract(ctx)
}

func FromRequest[T any](r *http.Request) (T, error) {
	return From[T](r.Context())
}

// Commit finalizes the request transaction early. The response status no
// longer matters once it succeeds.
func Commit[T any](ctx context.Context) error {
	slot, ok := SlotFrom[T](ctx)
	if !ok {
		return ErrMissingSlot
	}
	return slot.Finalize(ctx, DecisionCommit)
}

// Rollback finalizes the request transaction early by rolling it back.
func Rollback[T any](ctx context.Context) error {
	slot, ok := SlotFrom[T](ctx)
	if !ok {
		return ErrMissingSlot
	}
	return slot.Finalize(ctx, DecisionRollback)
}
