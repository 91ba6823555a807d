// SPDX-License-Identifier: MIT

package record

import (
	"context"
	"sort"
	"sync"
	"time"
)

type memoryKey struct {
	namespace, group, item string
}

// MemoryStore implements Store using a map (thread-safe).
type MemoryStore struct {
	mu     sync.RWMutex
	data   map[memoryKey]*Record
	nextID int64
	now    func() time.Time
}

// NewMemoryStore creates an in-memory record store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		data: make(map[memoryKey]*Record),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) All(_ context.Context) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Record, 0, len(s.data))
	for _, r := range s.data {
		out = append(out, *r)
	}
	sortByID(out)
	return out, nil
}

func (s *MemoryStore) Group(_ context.Context, namespace, group string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Record
	for k, r := range s.data {
		if k.namespace == namespace && k.group == group {
			out = append(out, *r)
		}
	}
	sortByID(out)
	return out, nil
}

func (s *MemoryStore) Find(_ context.Context, namespace, group, item string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.data[memoryKey{namespace, group, item}]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *r
	return &clone, nil
}

func (s *MemoryStore) Save(_ context.Context, rec *Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	key := memoryKey{rec.Namespace, rec.Group, rec.Item}
	if existing, ok := s.data[key]; ok {
		rec.ID = existing.ID
		rec.CreatedAt = existing.CreatedAt
	} else {
		s.nextID++
		rec.ID = s.nextID
		rec.CreatedAt = now
	}
	rec.UpdatedAt = now

	// Copy to avoid race if caller modifies rec later
	clone := *rec
	s.data[key] = &clone
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, namespace, group, item string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := memoryKey{namespace, group, item}
	if _, ok := s.data[key]; !ok {
		return ErrNotFound
	}
	delete(s.data, key)
	return nil
}

func (s *MemoryStore) Ping(_ context.Context) error { return nil }

func (s *MemoryStore) Close() error { return nil }

func sortByID(records []Record) {
	sort.Slice(records, func(i, j int) bool { return records[i].ID < records[j].ID })
}
