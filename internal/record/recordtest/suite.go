// SPDX-License-Identifier: MIT

// Package recordtest holds the behavioural suite every record.Store backend runs.
package recordtest

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antoniofrignani/laravel4-settings/internal/record"
)

// Factory returns a fresh, empty store. The suite closes it.
type Factory func(t *testing.T) record.Store

// RunStoreSuite exercises the record.Store contract against a backend.
func RunStoreSuite(t *testing.T, newStore Factory) {
	t.Helper()

	t.Run("SaveAssignsIDAndTimestamps", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()

		rec := &record.Record{Group: "app", Item: "name", Value: "demo", Format: record.FormatString}
		require.NoError(t, s.Save(ctx, rec))
		assert.NotZero(t, rec.ID)
		assert.False(t, rec.CreatedAt.IsZero())
		assert.False(t, rec.UpdatedAt.IsZero())

		got, err := s.Find(ctx, "", "app", "name")
		require.NoError(t, err)
		assert.Equal(t, rec.ID, got.ID)
		assert.Equal(t, "demo", got.Value)
		assert.Equal(t, record.FormatString, got.Format)
	})

	t.Run("SaveUpsertsOnIdentity", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()

		first := &record.Record{Namespace: "blog", Group: "app", Item: "tags", Value: `["a"]`, Format: record.FormatJSON}
		require.NoError(t, s.Save(ctx, first))

		second := &record.Record{Namespace: "blog", Group: "app", Item: "tags", Value: "plain", Format: record.FormatString}
		require.NoError(t, s.Save(ctx, second))
		assert.Equal(t, first.ID, second.ID, "upsert must keep the row id")
		assert.WithinDuration(t, first.CreatedAt, second.CreatedAt, time.Second)

		all, err := s.All(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "plain", all[0].Value)
		assert.Equal(t, record.FormatString, all[0].Format)
	})

	t.Run("NamespaceIsPartOfIdentity", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()

		require.NoError(t, s.Save(ctx, &record.Record{Group: "app", Item: "name", Value: "root", Format: record.FormatString}))
		require.NoError(t, s.Save(ctx, &record.Record{Namespace: "blog", Group: "app", Item: "name", Value: "blog", Format: record.FormatString}))

		root, err := s.Find(ctx, "", "app", "name")
		require.NoError(t, err)
		assert.Equal(t, "root", root.Value)

		blog, err := s.Find(ctx, "blog", "app", "name")
		require.NoError(t, err)
		assert.Equal(t, "blog", blog.Value)
	})

	t.Run("GroupFiltersAndOrders", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()

		for _, r := range []record.Record{
			{Group: "app", Item: "b", Value: "2", Format: record.FormatString},
			{Group: "mail", Item: "host", Value: "smtp", Format: record.FormatString},
			{Group: "app", Item: "a", Value: "1", Format: record.FormatString},
			{Namespace: "blog", Group: "app", Item: "c", Value: "3", Format: record.FormatString},
		} {
			r := r
			require.NoError(t, s.Save(ctx, &r))
		}

		app, err := s.Group(ctx, "", "app")
		require.NoError(t, err)
		require.Len(t, app, 2)
		assert.Equal(t, "b", app[0].Item)
		assert.Equal(t, "a", app[1].Item)

		none, err := s.Group(ctx, "", "missing")
		require.NoError(t, err)
		assert.Empty(t, none)

		all, err := s.All(ctx)
		require.NoError(t, err)
		require.Len(t, all, 4)
		for i := 1; i < len(all); i++ {
			assert.Less(t, all[i-1].ID, all[i].ID)
		}
	})

	t.Run("FindMissing", func(t *testing.T) {
		s := open(t, newStore)
		_, err := s.Find(context.Background(), "", "app", "nope")
		assert.True(t, errors.Is(err, record.ErrNotFound), "got %v", err)
	})

	t.Run("Delete", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()

		require.NoError(t, s.Save(ctx, &record.Record{Group: "app", Item: "name", Value: "x", Format: record.FormatString}))
		require.NoError(t, s.Delete(ctx, "", "app", "name"))

		_, err := s.Find(ctx, "", "app", "name")
		assert.True(t, errors.Is(err, record.ErrNotFound))

		err = s.Delete(ctx, "", "app", "name")
		assert.True(t, errors.Is(err, record.ErrNotFound), "second delete should report not found, got %v", err)
	})

	t.Run("SaveRejectsInvalid", func(t *testing.T) {
		s := open(t, newStore)
		err := s.Save(context.Background(), &record.Record{Item: "x", Format: record.FormatString})
		assert.True(t, errors.Is(err, record.ErrInvalidRecord), "got %v", err)
	})

	t.Run("Ping", func(t *testing.T) {
		s := open(t, newStore)
		assert.NoError(t, s.Ping(context.Background()))
	})
}

func open(t *testing.T, newStore Factory) record.Store {
	t.Helper()
	s := newStore(t)
	t.Cleanup(func() { _ = s.Close() })
	return s
}
