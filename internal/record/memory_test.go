// SPDX-License-Identifier: MIT

package record_test

import (
	"testing"

	"github.com/antoniofrignani/laravel4-settings/internal/record"
	"github.com/antoniofrignani/laravel4-settings/internal/record/recordtest"
)

func TestMemoryStore(t *testing.T) {
	recordtest.RunStoreSuite(t, func(t *testing.T) record.Store {
		return record.NewMemoryStore()
	})
}
