// SPDX-License-Identifier: MIT

// Package registrytest holds the behavioural suite every registry backend runs.
package registrytest

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antoniofrignani/laravel4-settings/internal/registry"
)

// Factory returns a fresh, empty registry. The suite closes it.
type Factory func(t *testing.T) registry.Registry

// RunSuite exercises the registry.Registry contract against a backend.
func RunSuite(t *testing.T, newRegistry Factory) {
	t.Helper()

	t.Run("SetGet", func(t *testing.T) {
		r := open(t, newRegistry)
		ctx := context.Background()

		require.NoError(t, r.Set(ctx, "app", "name", "demo"))
		v, ok, err := r.Get(ctx, "app", "name")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "demo", v)

		_, ok, err = r.Get(ctx, "app", "missing")
		require.NoError(t, err)
		assert.False(t, ok)

		_, ok, err = r.Get(ctx, "other", "name")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("NestedPaths", func(t *testing.T) {
		r := open(t, newRegistry)
		ctx := context.Background()

		require.NoError(t, r.Set(ctx, "app", "mail.host", "smtp.local"))
		require.NoError(t, r.Set(ctx, "app", "mail.port", float64(25)))

		v, ok, err := r.Get(ctx, "app", "mail")
		require.NoError(t, err)
		require.True(t, ok)
		want := map[string]any{"host": "smtp.local", "port": float64(25)}
		if diff := cmp.Diff(want, v); diff != "" {
			t.Errorf("nested get mismatch (-want +got):\n%s", diff)
		}

		whole, ok, err := r.Get(ctx, "app", "")
		require.NoError(t, err)
		require.True(t, ok)
		if diff := cmp.Diff(map[string]any{"mail": want}, whole); diff != "" {
			t.Errorf("collection get mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("WriteReplacesScalarParentAndSubtree", func(t *testing.T) {
		r := open(t, newRegistry)
		ctx := context.Background()

		require.NoError(t, r.Set(ctx, "app", "mail", "disabled"))
		require.NoError(t, r.Set(ctx, "app", "mail.host", "smtp.local"))

		v, _, err := r.Get(ctx, "app", "mail")
		require.NoError(t, err)
		if diff := cmp.Diff(map[string]any{"host": "smtp.local"}, v); diff != "" {
			t.Errorf("scalar parent should become a map (-want +got):\n%s", diff)
		}

		require.NoError(t, r.Set(ctx, "app", "mail", "off"))
		v, _, err = r.Get(ctx, "app", "mail")
		require.NoError(t, err)
		assert.Equal(t, "off", v)

		_, ok, err := r.Get(ctx, "app", "mail.host")
		require.NoError(t, err)
		assert.False(t, ok, "subtree must be replaced")
	})

	t.Run("MapValuesNest", func(t *testing.T) {
		r := open(t, newRegistry)
		ctx := context.Background()

		value := map[string]any{"a": []any{"x", "y"}, "b": map[string]any{"c": true}}
		require.NoError(t, r.Set(ctx, "blog::app", "opts", value))

		v, ok, err := r.Get(ctx, "blog::app", "opts.b.c")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, true, v)

		got, _, err := r.Get(ctx, "blog::app", "opts")
		require.NoError(t, err)
		if diff := cmp.Diff(value, got); diff != "" {
			t.Errorf("map round trip mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("MapKeysKeepTheirShape", func(t *testing.T) {
		r := open(t, newRegistry)
		ctx := context.Background()

		value := map[string]any{
			"":            "root",
			"example.com": "x",
			`a\b`:        map[string]any{"": float64(1), "c.d": []any{"y"}},
		}
		require.NoError(t, r.Set(ctx, "app", "hosts", value))

		got, ok, err := r.Get(ctx, "app", "hosts")
		require.NoError(t, err)
		require.True(t, ok)
		if diff := cmp.Diff(value, got); diff != "" {
			t.Errorf("map keys changed on round trip (-want +got):\n%s", diff)
		}

		coll, err := r.Collection(ctx, "app")
		require.NoError(t, err)
		if diff := cmp.Diff(map[string]any{"hosts": value}, coll); diff != "" {
			t.Errorf("collection mismatch (-want +got):\n%s", diff)
		}

		_, ok, err = r.Get(ctx, "app", "hosts.example")
		require.NoError(t, err)
		assert.False(t, ok, "a dotted map key is not a nested path")

		require.NoError(t, r.Set(ctx, "app", "hosts", map[string]any{"": "only"}))
		got, _, err = r.Get(ctx, "app", "hosts")
		require.NoError(t, err)
		if diff := cmp.Diff(map[string]any{"": "only"}, got); diff != "" {
			t.Errorf("rewrite must replace the old subtree (-want +got):\n%s", diff)
		}

		require.NoError(t, r.Forget(ctx, "app", "hosts"))
		_, ok, err = r.Get(ctx, "app", "hosts")
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("ReturnedValuesAreCopies", func(t *testing.T) {
		r := open(t, newRegistry)
		ctx := context.Background()

		require.NoError(t, r.Set(ctx, "app", "opts.a", "1"))
		coll, err := r.Collection(ctx, "app")
		require.NoError(t, err)
		coll["opts"].(map[string]any)["a"] = "mutated"

		v, _, err := r.Get(ctx, "app", "opts.a")
		require.NoError(t, err)
		assert.Equal(t, "1", v)
	})

	t.Run("Forget", func(t *testing.T) {
		r := open(t, newRegistry)
		ctx := context.Background()

		require.NoError(t, r.Set(ctx, "app", "mail.host", "smtp"))
		require.NoError(t, r.Set(ctx, "app", "name", "demo"))
		require.NoError(t, r.Forget(ctx, "app", "mail"))

		_, ok, err := r.Get(ctx, "app", "mail.host")
		require.NoError(t, err)
		assert.False(t, ok)

		v, ok, err := r.Get(ctx, "app", "name")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "demo", v)

		require.NoError(t, r.Forget(ctx, "app", "never-set"))
		require.NoError(t, r.Forget(ctx, "app", ""))

		names, err := r.Collections(ctx)
		require.NoError(t, err)
		assert.NotContains(t, names, "app")
	})

	t.Run("ReplaceCollection", func(t *testing.T) {
		r := open(t, newRegistry)
		ctx := context.Background()

		require.NoError(t, r.Set(ctx, "app", "old", "x"))
		require.NoError(t, r.Set(ctx, "app", "", map[string]any{"new": "y"}))

		coll, err := r.Collection(ctx, "app")
		require.NoError(t, err)
		if diff := cmp.Diff(map[string]any{"new": "y"}, coll); diff != "" {
			t.Errorf("replace mismatch (-want +got):\n%s", diff)
		}

		err = r.Set(ctx, "app", "", "not a map")
		assert.True(t, errors.Is(err, registry.ErrInvalidPath))
	})

	t.Run("Collections", func(t *testing.T) {
		r := open(t, newRegistry)
		ctx := context.Background()

		require.NoError(t, r.Set(ctx, "mail", "host", "smtp"))
		require.NoError(t, r.Set(ctx, "app", "name", "demo"))
		require.NoError(t, r.Set(ctx, "blog::app", "name", "blog"))

		names, err := r.Collections(ctx)
		require.NoError(t, err)
		assert.Equal(t, []string{"app", "blog::app", "mail"}, names)

		empty, err := r.Collection(ctx, "nothing")
		require.NoError(t, err)
		assert.Empty(t, empty)
	})

	t.Run("InvalidPaths", func(t *testing.T) {
		r := open(t, newRegistry)
		ctx := context.Background()

		assert.True(t, errors.Is(r.Set(ctx, "", "x", 1), registry.ErrInvalidPath))
		assert.True(t, errors.Is(r.Set(ctx, "app", "a..b", 1), registry.ErrInvalidPath))
		_, _, err := r.Get(ctx, "app", ".a")
		assert.True(t, errors.Is(err, registry.ErrInvalidPath))
	})
}

func open(t *testing.T, newRegistry Factory) registry.Registry {
	t.Helper()
	r := newRegistry(t)
	t.Cleanup(func() { _ = r.Close() })
	return r
}
