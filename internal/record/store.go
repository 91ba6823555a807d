// SPDX-License-Identifier: MIT

package record

import (
	"context"
)

// Store is the persistent record store behind the settings accessor.
//
// Implementations must be safe for concurrent use. Save upserts on
// (namespace, group, item) and fills ID and timestamps on the passed record.
type Store interface {
	// All returns every record ordered by id.
	All(ctx context.Context) ([]Record, error)
	// Group returns the records of one group ordered by id.
	Group(ctx context.Context, namespace, group string) ([]Record, error)
	// Find returns the record or ErrNotFound.
	Find(ctx context.Context, namespace, group, item string) (*Record, error)
	// Save inserts or updates the record.
	Save(ctx context.Context, rec *Record) error
	// Delete removes the record or returns ErrNotFound.
	Delete(ctx context.Context, namespace, group, item string) error
	// Ping verifies the backend is reachable.
	Ping(ctx context.Context) error
	// Close releases backend resources.
	Close() error
}
