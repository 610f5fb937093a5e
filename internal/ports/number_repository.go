package ports

import (
	"context"
	"time"
)

type Number struct {
	ID        uint64
	Value     int64
	CreatedAt time.Time
}

// NumberRepository persists numbers inside the transaction bound to ctx.
type NumberRepository interface {
	Insert(ctx context.Context, value int64) (Number, error)
	// Each calls fn for every number in id order, stopping at the first error.
	Each(ctx context.Context, fn func(Number) error) error
	Count(ctx context.Context) (int64, error)
}
