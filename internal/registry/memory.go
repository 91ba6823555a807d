// SPDX-License-Identifier: MIT

package registry

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Memory is an in-process Registry built on nested maps.
type Memory struct {
	mu          sync.RWMutex
	collections map[string]map[string]any
}

var _ Registry = (*Memory)(nil)

// NewMemory creates an empty in-memory registry.
func NewMemory() *Memory {
	return &Memory{collections: make(map[string]map[string]any)}
}

func (r *Memory) Get(_ context.Context, collection, item string) (any, bool, error) {
	if err := validate(collection, item); err != nil {
		return nil, false, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	coll, ok := r.collections[collection]
	if !ok {
		return nil, false, nil
	}
	if item == "" {
		return cloneValue(coll), true, nil
	}
	v, ok := getPath(coll, splitPath(item))
	if !ok {
		return nil, false, nil
	}
	return cloneValue(v), true, nil
}

func (r *Memory) Set(_ context.Context, collection, item string, value any) error {
	if err := validate(collection, item); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if item == "" {
		m, ok := value.(map[string]any)
		if !ok {
			return fmt.Errorf("%w: replacing collection %q requires a map, got %T", ErrInvalidPath, collection, value)
		}
		r.collections[collection] = cloneValue(m).(map[string]any)
		return nil
	}

	coll, ok := r.collections[collection]
	if !ok {
		coll = make(map[string]any)
		r.collections[collection] = coll
	}
	setPath(coll, splitPath(item), cloneValue(value))
	return nil
}

func (r *Memory) Forget(_ context.Context, collection, item string) error {
	if err := validate(collection, item); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if item == "" {
		delete(r.collections, collection)
		return nil
	}
	coll, ok := r.collections[collection]
	if !ok {
		return nil
	}
	deletePath(coll, splitPath(item))
	if len(coll) == 0 {
		delete(r.collections, collection)
	}
	return nil
}

func (r *Memory) Collection(_ context.Context, collection string) (map[string]any, error) {
	if err := validate(collection, ""); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	coll, ok := r.collections[collection]
	if !ok {
		return map[string]any{}, nil
	}
	return cloneValue(coll).(map[string]any), nil
}

func (r *Memory) Collections(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.collections))
	for name := range r.collections {
		out = append(out, name)
	}
	sort.Strings(out)
	return out, nil
}

func (r *Memory) Close() error { return nil }
