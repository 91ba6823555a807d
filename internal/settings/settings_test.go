// SPDX-License-Identifier: MIT

package settings

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antoniofrignani/laravel4-settings/internal/record"
	"github.com/antoniofrignani/laravel4-settings/internal/registry"
)

// countingStore records how often the accessor reaches the store.
type countingStore struct {
	record.Store
	groupCalls atomic.Int32
	allCalls   atomic.Int32
	groupDelay time.Duration
	failGroup  error
	// started receives once a Group call is in flight; gate holds it there
	started chan struct{}
	gate    chan struct{}
	// extra rows returned by All, bypassing validation on Save
	extra []record.Record
}

func (c *countingStore) Group(ctx context.Context, namespace, group string) ([]record.Record, error) {
	c.groupCalls.Add(1)
	if c.started != nil {
		select {
		case c.started <- struct{}{}:
		default:
		}
	}
	if c.gate != nil {
		select {
		case <-c.gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if c.groupDelay > 0 {
		time.Sleep(c.groupDelay)
	}
	if c.failGroup != nil {
		return nil, c.failGroup
	}
	return c.Store.Group(ctx, namespace, group)
}

func (c *countingStore) All(ctx context.Context) ([]record.Record, error) {
	c.allCalls.Add(1)
	recs, err := c.Store.All(ctx)
	if err != nil {
		return nil, err
	}
	return append(recs, c.extra...), nil
}

func newTestSettings(t *testing.T) (*Settings, *countingStore, *registry.Memory) {
	t.Helper()
	store := &countingStore{Store: record.NewMemoryStore()}
	reg := registry.NewMemory()
	s, err := New(store, reg, zerolog.Nop())
	require.NoError(t, err)
	return s, store, reg
}

func seed(t *testing.T, store record.Store, recs ...record.Record) {
	t.Helper()
	for i := range recs {
		require.NoError(t, store.Save(context.Background(), &recs[i]))
	}
}

func TestNew_RequiresDependencies(t *testing.T) {
	_, err := New(nil, registry.NewMemory(), zerolog.Nop())
	assert.ErrorIs(t, err, ErrMissingStore)
	_, err = New(record.NewMemoryStore(), nil, zerolog.Nop())
	assert.ErrorIs(t, err, ErrMissingRegistry)
}

func TestSettings_SetPersistsAndMirrors(t *testing.T) {
	s, store, reg := newTestSettings(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "app.name", "demo"))
	require.NoError(t, s.Set(ctx, "blog::app.tags", []string{"go", "kv"}))

	rec, err := store.Find(ctx, "", "app", "name")
	require.NoError(t, err)
	assert.Equal(t, "demo", rec.Value)
	assert.Equal(t, record.FormatString, rec.Format)

	rec, err = store.Find(ctx, "blog", "app", "tags")
	require.NoError(t, err)
	assert.Equal(t, `["go","kv"]`, rec.Value)
	assert.Equal(t, record.FormatJSON, rec.Format)

	v, ok, err := reg.Get(ctx, "blog::app", "tags")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, []any{"go", "kv"}, v)
}

func TestSettings_SetUpdatesExistingRecord(t *testing.T) {
	s, store, _ := newTestSettings(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "app.name", "one"))
	first, err := store.Find(ctx, "", "app", "name")
	require.NoError(t, err)

	require.NoError(t, s.Set(ctx, "app.name", "two"))
	second, err := store.Find(ctx, "", "app", "name")
	require.NoError(t, err)

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "two", second.Value)

	all, err := store.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSettings_GetDefaultAndGroup(t *testing.T) {
	s, _, _ := newTestSettings(t)
	ctx := context.Background()

	v, err := s.Get(ctx, "app.missing", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "fallback", v)

	require.NoError(t, s.Set(ctx, "app.mail.host", "smtp"))
	require.NoError(t, s.Set(ctx, "app.mail.port", 25))

	group, err := s.Get(ctx, "app", nil)
	require.NoError(t, err)
	want := map[string]any{"mail": map[string]any{"host": "smtp", "port": "25"}}
	if diff := cmp.Diff(want, group); diff != "" {
		t.Errorf("group mismatch (-want +got):\n%s", diff)
	}
}

func TestSettings_WriterAndFreshProcessAgree(t *testing.T) {
	store := record.NewMemoryStore()
	ctx := context.Background()

	writer, err := New(store, registry.NewMemory(), zerolog.Nop())
	require.NoError(t, err)
	value := map[string]any{"enabled": true, "limits": []int{1, 2}}
	require.NoError(t, writer.Set(ctx, "app.features", value))
	require.NoError(t, writer.Set(ctx, "app.retries", 3))

	reader, err := New(store, registry.NewMemory(), zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, reader.Load(ctx))

	for _, key := range []string{"app.features", "app.retries", "app"} {
		got, err := writer.Get(ctx, key, nil)
		require.NoError(t, err)
		fresh, err := reader.Get(ctx, key, nil)
		require.NoError(t, err)
		if diff := cmp.Diff(fresh, got); diff != "" {
			t.Errorf("%s differs between writer and fresh process (-fresh +writer):\n%s", key, diff)
		}
	}
}

func TestSettings_LazyGroupLoading(t *testing.T) {
	s, store, _ := newTestSettings(t)
	ctx := context.Background()
	seed(t, store.Store,
		record.Record{Group: "app", Item: "name", Value: "stored", Format: record.FormatString},
		record.Record{Group: "app", Item: "limits", Value: `{"max":5}`, Format: record.FormatJSON},
		record.Record{Namespace: "blog", Group: "app", Item: "name", Value: "blog", Format: record.FormatString},
	)

	v, err := s.Get(ctx, "app.limits.max", nil)
	require.NoError(t, err)
	assert.Equal(t, float64(5), v)

	v, err = s.Get(ctx, "app.name", nil)
	require.NoError(t, err)
	assert.Equal(t, "stored", v)
	assert.Equal(t, int32(1), store.groupCalls.Load(), "group is fetched once")
	assert.Equal(t, []string{"app"}, s.Collections())

	v, err = s.Get(ctx, "blog::app.name", nil)
	require.NoError(t, err)
	assert.Equal(t, "blog", v)
	assert.Equal(t, int32(2), store.groupCalls.Load())
	assert.False(t, s.Loaded())
}

func TestSettings_SetLoadsGroupFirst(t *testing.T) {
	s, store, _ := newTestSettings(t)
	ctx := context.Background()
	seed(t, store.Store, record.Record{Group: "app", Item: "theme", Value: "dark", Format: record.FormatString})

	require.NoError(t, s.SetTemp(ctx, "app.theme", "light"))

	// A later read of a sibling must not reload the group over the write.
	_, err := s.Get(ctx, "app.other", nil)
	require.NoError(t, err)

	v, err := s.Get(ctx, "app.theme", nil)
	require.NoError(t, err)
	assert.Equal(t, "light", v)
	assert.Equal(t, int32(1), store.groupCalls.Load())
}

func TestSettings_ConcurrentLoadsCollapse(t *testing.T) {
	s, store, _ := newTestSettings(t)
	store.groupDelay = 50 * time.Millisecond
	seed(t, store.Store, record.Record{Group: "app", Item: "name", Value: "x", Format: record.FormatString})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := s.Get(context.Background(), "app.name", nil)
			assert.NoError(t, err)
			assert.Equal(t, "x", v)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), store.groupCalls.Load())
}

func TestSettings_SharedLoadSurvivesCallerCancel(t *testing.T) {
	s, store, _ := newTestSettings(t)
	store.started = make(chan struct{}, 1)
	store.gate = make(chan struct{})
	seed(t, store.Store, record.Record{Group: "app", Item: "name", Value: "x", Format: record.FormatString})

	first, cancel := context.WithCancel(context.Background())
	firstErr := make(chan error, 1)
	go func() {
		_, err := s.Get(first, "app.name", nil)
		firstErr <- err
	}()
	<-store.started

	cancel()
	assert.ErrorIs(t, <-firstErr, context.Canceled)

	type result struct {
		v   any
		err error
	}
	second := make(chan result, 1)
	go func() {
		v, err := s.Get(context.Background(), "app.name", nil)
		second <- result{v, err}
	}()
	close(store.gate)

	res := <-second
	require.NoError(t, res.err)
	assert.Equal(t, "x", res.v)
	assert.Equal(t, int32(1), store.groupCalls.Load(), "the second caller joins the running load")
	assert.Equal(t, []string{"app"}, s.Collections())
}

func TestSettings_MissingGroupsAreNotRetained(t *testing.T) {
	s, store, _ := newTestSettings(t)
	ctx := context.Background()

	const probes = maxParsedKeys + 1000
	for i := 0; i < probes; i++ {
		v, err := s.Get(ctx, fmt.Sprintf("missing%d.item", i), "def")
		require.NoError(t, err)
		require.Equal(t, "def", v)
	}

	assert.Empty(t, s.Collections(), "groups without stored rows are not loaded")
	assert.LessOrEqual(t, s.keys.Len(), maxParsedKeys)
	assert.Equal(t, int32(probes), store.groupCalls.Load())

	_, err := s.Get(ctx, "missing0.item", nil)
	require.NoError(t, err)
	assert.Equal(t, int32(probes+1), store.groupCalls.Load(), "empty groups are queried again")
}

func TestSettings_SetMarksEmptyGroupLoaded(t *testing.T) {
	s, store, _ := newTestSettings(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "app.name", "demo"))
	assert.Equal(t, []string{"app"}, s.Collections())

	v, err := s.Get(ctx, "app.name", nil)
	require.NoError(t, err)
	assert.Equal(t, "demo", v)
	assert.Equal(t, int32(1), store.groupCalls.Load())
}

func TestSettings_LoadFailurePropagates(t *testing.T) {
	s, store, _ := newTestSettings(t)
	boom := errors.New("disk on fire")
	store.failGroup = boom

	_, err := s.Get(context.Background(), "app.name", nil)
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, s.Collections(), "failed loads are retried")
}

func TestSettings_SetTempIsNotPersisted(t *testing.T) {
	s, store, _ := newTestSettings(t)
	ctx := context.Background()

	require.NoError(t, s.SetTemp(ctx, "app.banner", map[string]int{"width": 3}))

	v, err := s.Get(ctx, "app.banner.width", nil)
	require.NoError(t, err)
	assert.Equal(t, float64(3), v)

	_, err = store.Find(ctx, "", "app", "banner")
	assert.ErrorIs(t, err, record.ErrNotFound)
}

func TestSettings_Has(t *testing.T) {
	s, _, _ := newTestSettings(t)
	ctx := context.Background()

	ok, err := s.Has(ctx, "app.name")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, "app.name", ""))
	ok, err = s.Has(ctx, "app.name")
	require.NoError(t, err)
	assert.True(t, ok, "an empty string is still a value")

	require.NoError(t, s.SetTemp(ctx, "app.nothing", nil))
	ok, err = s.Has(ctx, "app.nothing")
	require.NoError(t, err)
	assert.True(t, ok, "nil normalises to the empty string")
}

func TestSettings_Forget(t *testing.T) {
	s, store, _ := newTestSettings(t)
	ctx := context.Background()

	require.NoError(t, s.Set(ctx, "app.name", "demo"))
	require.NoError(t, s.Forget(ctx, "app.name"))

	_, err := store.Find(ctx, "", "app", "name")
	assert.ErrorIs(t, err, record.ErrNotFound)
	ok, err := s.Has(ctx, "app.name")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SetTemp(ctx, "app.temp", "x"))
	require.NoError(t, s.Forget(ctx, "app.temp"), "forgetting an unstored key succeeds")
	ok, err = s.Has(ctx, "app.temp")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSettings_RejectsBadKeys(t *testing.T) {
	s, _, _ := newTestSettings(t)
	ctx := context.Background()

	assert.ErrorIs(t, s.Set(ctx, "app", "x"), ErrMissingItem)
	assert.ErrorIs(t, s.SetTemp(ctx, "blog::app", "x"), ErrMissingItem)
	assert.ErrorIs(t, s.Forget(ctx, "app"), ErrMissingItem)

	_, err := s.Get(ctx, "", nil)
	assert.ErrorIs(t, err, ErrInvalidKey)
	assert.ErrorIs(t, s.Set(ctx, "::app.x", 1), ErrInvalidKey)
	assert.ErrorIs(t, s.Set(ctx, "app.x", make(chan int)), ErrUnsupportedValue)
}

func TestSettings_Load(t *testing.T) {
	s, store, _ := newTestSettings(t)
	ctx := context.Background()
	seed(t, store.Store,
		record.Record{Group: "app", Item: "name", Value: "demo", Format: record.FormatString},
		record.Record{Group: "mail", Item: "hosts", Value: `["a","b"]`, Format: record.FormatJSON},
	)
	store.extra = []record.Record{
		{ID: 99, Namespace: "blog", Group: "app", Item: "broken", Value: `{`, Format: record.FormatJSON},
	}

	require.NoError(t, s.Load(ctx))
	assert.True(t, s.Loaded())
	assert.Equal(t, []string{"app", "blog::app", "mail"}, s.Collections())
	assert.Equal(t, float64(3), testutil.ToFloat64(loadedCollections))

	v, err := s.Get(ctx, "mail.hosts", nil)
	require.NoError(t, err)
	assert.Equal(t, []any{"a", "b"}, v)

	v, err = s.Get(ctx, "blog::app.broken", nil)
	require.NoError(t, err)
	assert.Equal(t, "{", v, "undecodable json falls back to the raw string")

	assert.Equal(t, int32(0), store.groupCalls.Load(), "loaded groups are not fetched again")
}

func TestSettings_Records(t *testing.T) {
	s, store, _ := newTestSettings(t)
	ctx := context.Background()
	seed(t, store.Store,
		record.Record{Group: "app", Item: "a", Value: "1", Format: record.FormatString},
		record.Record{Namespace: "blog", Group: "app", Item: "b", Value: "2", Format: record.FormatString},
		record.Record{Namespace: "blog", Group: "mail", Item: "c", Value: "3", Format: record.FormatString},
	)

	all, err := s.Records(ctx, "", "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	blog, err := s.Records(ctx, "blog", "")
	require.NoError(t, err)
	assert.Len(t, blog, 2)

	group, err := s.Records(ctx, "blog", "mail")
	require.NoError(t, err)
	require.Len(t, group, 1)
	assert.Equal(t, "c", group[0].Item)
}

func TestSettings_OperationMetrics(t *testing.T) {
	s, _, _ := newTestSettings(t)
	ctx := context.Background()

	okBefore := testutil.ToFloat64(operationsTotal.WithLabelValues("forget", "ok"))
	errBefore := testutil.ToFloat64(operationsTotal.WithLabelValues("forget", "error"))

	require.NoError(t, s.Forget(ctx, "app.x"))
	require.Error(t, s.Forget(ctx, "app"))

	assert.Equal(t, okBefore+1, testutil.ToFloat64(operationsTotal.WithLabelValues("forget", "ok")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(operationsTotal.WithLabelValues("forget", "error")))
}
