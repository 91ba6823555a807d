// SPDX-License-Identifier: MIT

package settings

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	xlog "github.com/antoniofrignani/laravel4-settings/internal/log"
	"github.com/antoniofrignani/laravel4-settings/internal/record"
	"github.com/antoniofrignani/laravel4-settings/internal/registry"
	"github.com/antoniofrignani/laravel4-settings/internal/telemetry"
)

const (
	tracerName = "settings"

	// maxParsedKeys bounds the ParseKey memo; least recently used keys go first.
	maxParsedKeys = 4096

	// groupLoadTimeout bounds a shared lazy group load.
	groupLoadTimeout = 30 * time.Second
)

// Settings reads and writes settings through a record store and mirrors
// them into a registry.
type Settings struct {
	store    record.Store
	registry registry.Registry
	logger   zerolog.Logger
	tracer   trace.Tracer

	keys  *ttlcache.Cache[string, Key]
	loads singleflight.Group

	mu     sync.RWMutex
	loaded map[string]struct{}
	booted bool
}

// New creates an accessor over store and reg.
func New(store record.Store, reg registry.Registry, logger zerolog.Logger) (*Settings, error) {
	if store == nil {
		return nil, ErrMissingStore
	}
	if reg == nil {
		return nil, ErrMissingRegistry
	}
	return &Settings{
		store:    store,
		registry: reg,
		logger:   logger.With().Str(xlog.FieldComponent, "settings").Logger(),
		tracer:   telemetry.Tracer(tracerName),
		keys:     ttlcache.New(ttlcache.WithCapacity[string, Key](maxParsedKeys)),
		loaded:   make(map[string]struct{}),
	}, nil
}

// parse memoises ParseKey results in a bounded cache.
func (s *Settings) parse(key string) (Key, error) {
	if item := s.keys.Get(key); item != nil {
		return item.Value(), nil
	}
	k, err := ParseKey(key)
	if err != nil {
		return Key{}, err
	}
	s.keys.Set(key, k, ttlcache.NoTTL)
	return k, nil
}

func (s *Settings) start(ctx context.Context, op string, key string) (context.Context, trace.Span, Key, error) {
	ctx, span := s.tracer.Start(ctx, "settings."+op)
	k, err := s.parse(key)
	if err != nil {
		span.SetAttributes(attribute.String(telemetry.SettingKeyKey, key))
		return ctx, span, Key{}, err
	}
	span.SetAttributes(telemetry.SettingAttributes(key, k.Namespace, k.Group, k.Item)...)
	return ctx, span, k, nil
}

func finish(span trace.Span, op string, err error) {
	observeOp(op, err)
	telemetry.RecordError(span, err, op)
	span.End()
}

// Has reports whether key holds a non-nil value.
func (s *Settings) Has(ctx context.Context, key string) (ok bool, err error) {
	ctx, span, k, err := s.start(ctx, "has", key)
	defer func() { finish(span, "has", err) }()
	if err != nil {
		return false, err
	}

	v, found, err := s.lookup(ctx, k)
	if err != nil {
		return false, err
	}
	return found && v != nil, nil
}

// Get returns the value at key, or def when nothing is stored there. A key
// without an item returns the whole group as a nested map.
func (s *Settings) Get(ctx context.Context, key string, def any) (value any, err error) {
	ctx, span, k, err := s.start(ctx, "get", key)
	defer func() { finish(span, "get", err) }()
	if err != nil {
		return nil, err
	}

	v, found, err := s.lookup(ctx, k)
	if err != nil {
		return nil, err
	}
	if !found || v == nil {
		return def, nil
	}
	return v, nil
}

func (s *Settings) lookup(ctx context.Context, k Key) (any, bool, error) {
	if err := s.ensureLoaded(ctx, k); err != nil {
		return nil, false, err
	}
	v, found, err := s.registry.Get(ctx, k.Collection(), k.Item)
	if err != nil {
		return nil, false, fmt.Errorf("registry get %s: %w", k, err)
	}
	return v, found, nil
}

// Set persists value at key and writes it to the registry.
func (s *Settings) Set(ctx context.Context, key string, value any) (err error) {
	ctx, span, k, err := s.start(ctx, "set", key)
	defer func() { finish(span, "set", err) }()
	if err != nil {
		return err
	}
	return s.write(ctx, span, k, value, false)
}

// SetTemp writes value to the registry only. It is lost on restart and
// replaced by the stored value on the next Load.
func (s *Settings) SetTemp(ctx context.Context, key string, value any) (err error) {
	ctx, span, k, err := s.start(ctx, "set_temp", key)
	defer func() { finish(span, "set_temp", err) }()
	if err != nil {
		return err
	}
	return s.write(ctx, span, k, value, true)
}

func (s *Settings) write(ctx context.Context, span trace.Span, k Key, value any, temporary bool) error {
	if k.Item == "" {
		return fmt.Errorf("%w: %s", ErrMissingItem, k)
	}

	// Load the group first so a later lazy load cannot overwrite this write.
	if err := s.ensureLoaded(ctx, k); err != nil {
		return err
	}

	raw, format, decoded, err := normalize(value)
	if err != nil {
		return fmt.Errorf("set %s: %w", k, err)
	}
	span.SetAttributes(
		attribute.String(telemetry.SettingFormatKey, string(format)),
		attribute.Bool(telemetry.SettingTemporaryKey, temporary),
	)

	if !temporary {
		if err := s.persist(ctx, k, raw, format); err != nil {
			return err
		}
	}

	if err := s.registry.Set(ctx, k.Collection(), k.Item, decoded); err != nil {
		return fmt.Errorf("registry set %s: %w", k, err)
	}
	if !temporary {
		s.markLoaded(k.Collection())
	}

	s.logger.Debug().
		Str(xlog.FieldEvent, "settings.set").
		Str(xlog.FieldKey, k.String()).
		Str(xlog.FieldFormat, string(format)).
		Bool("temporary", temporary).
		Msg("setting written")
	return nil
}

// persist finds the stored record or starts a new one, then saves it.
func (s *Settings) persist(ctx context.Context, k Key, raw string, format record.Format) error {
	start := time.Now()
	rec, err := s.store.Find(ctx, k.Namespace, k.Group, k.Item)
	observeStore("find", start)
	switch {
	case errors.Is(err, record.ErrNotFound):
		rec = &record.Record{}
	case err != nil:
		return fmt.Errorf("find %s: %w", k, err)
	}

	rec.Namespace = k.Namespace
	rec.Group = k.Group
	rec.Item = k.Item
	rec.Value = raw
	rec.Format = format
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("save %s: %w", k, err)
	}

	start = time.Now()
	err = s.store.Save(ctx, rec)
	observeStore("save", start)
	if err != nil {
		return fmt.Errorf("save %s: %w", k, err)
	}
	return nil
}

// Forget deletes the stored record, if any, and removes key from the registry.
func (s *Settings) Forget(ctx context.Context, key string) (err error) {
	ctx, span, k, err := s.start(ctx, "forget", key)
	defer func() { finish(span, "forget", err) }()
	if err != nil {
		return err
	}
	if k.Item == "" {
		return fmt.Errorf("%w: %s", ErrMissingItem, k)
	}

	start := time.Now()
	err = s.store.Delete(ctx, k.Namespace, k.Group, k.Item)
	observeStore("delete", start)
	if err != nil && !errors.Is(err, record.ErrNotFound) {
		return fmt.Errorf("delete %s: %w", k, err)
	}

	if err := s.registry.Forget(ctx, k.Collection(), k.Item); err != nil {
		return fmt.Errorf("registry forget %s: %w", k, err)
	}

	s.logger.Debug().
		Str(xlog.FieldEvent, "settings.forget").
		Str(xlog.FieldKey, k.String()).
		Msg("setting forgotten")
	return nil
}

// Load reads every stored record into the registry and marks each
// collection it touches as loaded.
func (s *Settings) Load(ctx context.Context) (err error) {
	ctx, span := s.tracer.Start(ctx, "settings.load")
	defer func() { finish(span, "load", err) }()

	start := time.Now()
	records, err := s.store.All(ctx)
	observeStore("all", start)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	collections := make(map[string]struct{})
	for _, rec := range records {
		if err := s.place(ctx, rec); err != nil {
			return err
		}
		collections[rec.Collection()] = struct{}{}
	}

	s.mu.Lock()
	for c := range collections {
		s.loaded[c] = struct{}{}
	}
	s.booted = true
	n := len(s.loaded)
	s.mu.Unlock()
	loadedCollections.Set(float64(n))

	span.SetAttributes(attribute.Int(telemetry.SettingCountKey, len(records)))
	s.logger.Info().
		Str(xlog.FieldEvent, "settings.load").
		Int(xlog.FieldCount, len(records)).
		Int("collections", len(collections)).
		Dur("took", time.Since(start)).
		Msg("settings loaded")
	return nil
}

// ensureLoaded fetches the group of k from the store unless its collection
// is already in the registry. Concurrent callers share one store query,
// which runs detached from any single caller's cancellation. A group with
// no stored rows is not marked loaded.
func (s *Settings) ensureLoaded(ctx context.Context, k Key) error {
	collection := k.Collection()
	if s.isLoaded(collection) {
		return nil
	}

	ch := s.loads.DoChan(collection, func() (any, error) {
		if s.isLoaded(collection) {
			return nil, nil
		}
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), groupLoadTimeout)
		defer cancel()
		return nil, s.loadGroup(lctx, k)
	})

	select {
	case res := <-ch:
		return res.Err
	case <-ctx.Done():
		return fmt.Errorf("load group %s: %w", collection, ctx.Err())
	}
}

func (s *Settings) loadGroup(ctx context.Context, k Key) error {
	collection := k.Collection()
	ctx, span := s.tracer.Start(ctx, "settings.load_group",
		trace.WithAttributes(attribute.String(telemetry.SettingCollectionKey, collection)))
	defer span.End()

	start := time.Now()
	records, err := s.store.Group(ctx, k.Namespace, k.Group)
	observeStore("group", start)
	if err != nil {
		telemetry.RecordError(span, err, "load_group")
		return fmt.Errorf("load group %s: %w", collection, err)
	}
	for _, rec := range records {
		if err := s.place(ctx, rec); err != nil {
			telemetry.RecordError(span, err, "load_group")
			return err
		}
	}
	if len(records) > 0 {
		s.markLoaded(collection)
	}

	s.logger.Debug().
		Str(xlog.FieldEvent, "settings.load_group").
		Str(xlog.FieldCollection, collection).
		Int(xlog.FieldCount, len(records)).
		Msg("group loaded")
	return nil
}

func (s *Settings) markLoaded(collection string) {
	s.mu.Lock()
	s.loaded[collection] = struct{}{}
	n := len(s.loaded)
	s.mu.Unlock()
	loadedCollections.Set(float64(n))
}

// place writes one stored record into the registry. A json record that no
// longer parses is kept as its raw string.
func (s *Settings) place(ctx context.Context, rec record.Record) error {
	value, err := DecodeValue(rec.Value, rec.Format)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str(xlog.FieldEvent, "settings.decode_failed").
			Str(xlog.FieldKey, rec.Key()).
			Str(xlog.FieldFormat, string(rec.Format)).
			Msg("stored value could not be decoded, keeping raw string")
		value = rec.Value
	}
	if err := s.registry.Set(ctx, rec.Collection(), rec.Item, value); err != nil {
		return fmt.Errorf("registry set %s: %w", rec.Key(), err)
	}
	return nil
}

func (s *Settings) isLoaded(collection string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.loaded[collection]
	return ok
}

// Loaded reports whether Load has completed.
func (s *Settings) Loaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.booted
}

// Collections lists the collections holding stored settings that have been
// read into the registry so far.
func (s *Settings) Collections() []string {
	s.mu.RLock()
	out := make([]string, 0, len(s.loaded))
	for c := range s.loaded {
		out = append(out, c)
	}
	s.mu.RUnlock()
	sort.Strings(out)
	return out
}

// Records returns stored records. An empty group lists every record,
// narrowed to namespace when one is given.
func (s *Settings) Records(ctx context.Context, namespace, group string) (_ []record.Record, err error) {
	ctx, span := s.tracer.Start(ctx, "settings.records")
	defer func() { finish(span, "records", err) }()

	start := time.Now()
	if group != "" {
		recs, err := s.store.Group(ctx, namespace, group)
		observeStore("group", start)
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", Collection(group, namespace), err)
		}
		return recs, nil
	}

	all, err := s.store.All(ctx)
	observeStore("all", start)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	if namespace == "" {
		return all, nil
	}
	out := all[:0]
	for _, rec := range all {
		if rec.Namespace == namespace {
			out = append(out, rec)
		}
	}
	return out, nil
}
