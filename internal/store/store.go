// Package store defines the record store contract shared by the SQLite and
// in-memory implementations.
package store

import (
	"context"
	"time"

	"fahrzeugdaten/internal/record"
)

// Store is the persistence contract for imported type-approval records.
//
// Implementations must return sentinel.ErrStoreMissing from read operations
// when no import has ever completed, and sentinel.ErrNotFound from FindByCode
// when the store exists but the code is unknown. An empty prefix result is
// not an error.
type Store interface {
	// ReplaceAll atomically replaces the whole store with the snapshot.
	// A failed replace must leave no partially written store behind.
	ReplaceAll(ctx context.Context, snap *record.Snapshot) error

	// FindByCode returns the record with exactly the given TG-Code.
	FindByCode(ctx context.Context, code string) (*record.Record, error)

	// SearchByPrefix returns records whose TG-Code starts with prefix, in
	// import (file) order. limit <= 0 means no limit.
	SearchByPrefix(ctx context.Context, prefix string, limit int) ([]record.Record, error)

	// Count returns the number of records in the store.
	Count(ctx context.Context) (int, error)

	// LastUpdated returns when the store was last replaced.
	LastUpdated(ctx context.Context) (time.Time, error)

	// Ping reports whether the store is reachable and holds data.
	Ping(ctx context.Context) error

	// Close releases any underlying resources.
	Close() error
}
