// SPDX-License-Identifier: MIT

package settings

import "errors"

var (
	// ErrInvalidKey is returned for keys that do not name a group.
	ErrInvalidKey = errors.New("invalid setting key")

	// ErrMissingItem is returned when a write names a group but no item.
	ErrMissingItem = errors.New("setting key has no item")

	// ErrUnsupportedValue is returned for values that cannot be persisted.
	ErrUnsupportedValue = errors.New("unsupported setting value")

	// ErrTypeMismatch is returned by the typed getters when the stored value
	// cannot be converted.
	ErrTypeMismatch = errors.New("setting has a different type")

	// ErrNotSet is returned by Decode when the key holds no value.
	ErrNotSet = errors.New("setting not set")

	ErrMissingStore    = errors.New("settings: record store is required")
	ErrMissingRegistry = errors.New("settings: registry is required")
)
