// SPDX-License-Identifier: MIT

package registry_test

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"

	"github.com/antoniofrignani/laravel4-settings/internal/registry"
	"github.com/antoniofrignani/laravel4-settings/internal/registry/registrytest"
)

func TestRedis(t *testing.T) {
	registrytest.RunSuite(t, func(t *testing.T) registry.Registry {
		mr := miniredis.RunT(t)
		r, err := registry.New(registry.Options{
			Backend: registry.BackendRedis,
			Redis:   registry.RedisConfig{Addr: mr.Addr()},
		}, zerolog.Nop())
		if err != nil {
			t.Fatalf("registry.New: %v", err)
		}
		return r
	})
}
