// SPDX-License-Identifier: MIT

// Package badger implements the record store on an embedded Badger database.
//
// Records are JSON documents keyed by "setting/" followed by namespace,
// group and item separated by NUL bytes, so a group is a key prefix.
package badger

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/antoniofrignani/laravel4-settings/internal/record"
)

const (
	keyPrefix   = "setting/"
	sequenceKey = "seq/settings"
	sep         = "\x00"
)

// Store implements record.Store using Badger.
type Store struct {
	db  *badger.DB
	seq *badger.Sequence
}

var _ record.Store = (*Store)(nil)

// Open opens the database in dir. An empty dir keeps everything in memory.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger: open failed: %w", err)
	}
	seq, err := db.GetSequence([]byte(sequenceKey), 100)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("badger: sequence: %w", err)
	}
	return &Store{db: db, seq: seq}, nil
}

func recordKey(namespace, group, item string) []byte {
	return []byte(keyPrefix + namespace + sep + group + sep + item)
}

func groupPrefix(namespace, group string) []byte {
	return []byte(keyPrefix + namespace + sep + group + sep)
}

func (s *Store) All(_ context.Context) ([]record.Record, error) {
	return s.scan([]byte(keyPrefix))
}

func (s *Store) Group(_ context.Context, namespace, group string) ([]record.Record, error) {
	return s.scan(groupPrefix(namespace, group))
}

func (s *Store) scan(prefix []byte) ([]record.Record, error) {
	var out []record.Record
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var rec record.Record
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &rec)
			}); err != nil {
				return err
			}
			out = append(out, rec)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("badger: scan: %w", err)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) Find(_ context.Context, namespace, group, item string) (*record.Record, error) {
	var rec record.Record
	err := s.db.View(func(txn *badger.Txn) error {
		it, err := txn.Get(recordKey(namespace, group, item))
		if err != nil {
			return err
		}
		return it.Value(func(val []byte) error {
			return json.Unmarshal(val, &rec)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, record.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("badger: find: %w", err)
	}
	return &rec, nil
}

func (s *Store) Save(_ context.Context, rec *record.Record) error {
	if err := rec.Validate(); err != nil {
		return err
	}
	key := recordKey(rec.Namespace, rec.Group, rec.Item)
	now := time.Now().UTC()

	err := s.db.Update(func(txn *badger.Txn) error {
		var existing record.Record
		it, err := txn.Get(key)
		switch {
		case err == nil:
			if err := it.Value(func(val []byte) error {
				return json.Unmarshal(val, &existing)
			}); err != nil {
				return err
			}
			rec.ID = existing.ID
			rec.CreatedAt = existing.CreatedAt
		case errors.Is(err, badger.ErrKeyNotFound):
			id, err := s.seq.Next()
			if err != nil {
				return err
			}
			// Sequences start at zero; ids start at one like SQL serials.
			rec.ID = int64(id) + 1
			rec.CreatedAt = now
		default:
			return err
		}
		rec.UpdatedAt = now

		buf, err := json.Marshal(rec)
		if err != nil {
			return err
		}
		return txn.Set(key, buf)
	})
	if err != nil {
		return fmt.Errorf("badger: save: %w", err)
	}
	return nil
}

func (s *Store) Delete(_ context.Context, namespace, group, item string) error {
	key := recordKey(namespace, group, item)
	err := s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err != nil {
			return err
		}
		return txn.Delete(key)
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return record.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("badger: delete: %w", err)
	}
	return nil
}

func (s *Store) Ping(_ context.Context) error {
	if s.db.IsClosed() {
		return errors.New("badger: database closed")
	}
	return nil
}

func (s *Store) Close() error {
	if err := s.seq.Release(); err != nil {
		_ = s.db.Close()
		return err
	}
	return s.db.Close()
}
