package ports

import "context"

// SchemaStore owns the numbers schema of one backend.
type SchemaStore interface {
	// Init creates or upgrades the schema and records its version. It is
	// safe to run more than once.
	Init(ctx context.Context) error
	// Check fails unless Init has recorded the current version.
	Check(ctx context.Context) error
}
