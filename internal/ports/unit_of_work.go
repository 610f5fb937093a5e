package ports

import "context"

// UnitOfWork defines a transaction boundary.
//
// This is intentionally callback-style: returning an error causes rollback,
// returning nil causes commit. When ctx already carries a request
// transaction, fn joins it and the request decides the outcome.
type UnitOfWork interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	// Commit finalizes the transaction bound to ctx before the request ends.
	Commit(ctx context.Context) error
	// Rollback abandons the transaction bound to ctx before the request ends.
	Rollback(ctx context.Context) error
}
