// SPDX-License-Identifier: MIT

// Package registry provides the process-wide configuration registry the
// settings accessor overlays.
//
// Values are addressed by a collection ("group" or "namespace::group") and a
// dotted item path inside it. Writing a path replaces any scalar parent and
// any subtree already stored at that path, so "mail.host" nests below "mail".
package registry

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// Registry holds configuration values grouped by collection.
type Registry interface {
	// Get returns the value at item inside collection. An empty item
	// returns the whole collection as a nested map.
	Get(ctx context.Context, collection, item string) (any, bool, error)
	// Set stores value at item. An empty item replaces the collection and
	// requires a map[string]any value.
	Set(ctx context.Context, collection, item string, value any) error
	// Forget removes item, or the whole collection when item is empty.
	Forget(ctx context.Context, collection, item string) error
	// Collection returns a copy of the nested collection map.
	Collection(ctx context.Context, collection string) (map[string]any, error)
	// Collections lists the collections currently holding values.
	Collections(ctx context.Context) ([]string, error)
	// Close releases backend resources.
	Close() error
}

// ErrInvalidPath is returned for malformed collection or item paths.
var ErrInvalidPath = errors.New("invalid registry path")

// Supported backend names.
const (
	BackendMemory = "memory"
	BackendRedis  = "redis"
)

// Options selects and configures a backend.
type Options struct {
	Backend string
	Redis   RedisConfig
}

// New builds the registry named by opts.Backend.
func New(opts Options, logger zerolog.Logger) (Registry, error) {
	switch opts.Backend {
	case "", BackendMemory:
		return NewMemory(), nil
	case BackendRedis:
		return NewRedis(opts.Redis, logger)
	default:
		return nil, fmt.Errorf("unknown registry backend: %s (supported: memory, redis)", opts.Backend)
	}
}

func validate(collection, item string) error {
	if collection == "" {
		return fmt.Errorf("%w: empty collection", ErrInvalidPath)
	}
	for _, seg := range splitPath(item) {
		if seg == "" {
			return fmt.Errorf("%w: empty segment in %q", ErrInvalidPath, item)
		}
	}
	return nil
}
