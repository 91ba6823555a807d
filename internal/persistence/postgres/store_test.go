// SPDX-License-Identifier: MIT

package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewStore_RequiresURL(t *testing.T) {
	_, err := NewStore(context.Background(), Config{})
	assert.EqualError(t, err, "postgres: database url is required")
}

func TestNewStore_RejectsMalformedURL(t *testing.T) {
	_, err := NewStore(context.Background(), Config{URL: "postgres://%zz"})
	assert.ErrorContains(t, err, "postgres: parse url")
}
