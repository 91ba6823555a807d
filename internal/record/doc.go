// SPDX-License-Identifier: MIT

// Package record defines the persisted shape of a setting and the store
// contract every persistence backend implements.
//
// A record is identified by (namespace, group, item). The namespace is
// optional and stored as the empty string when absent, which keeps the
// uniqueness constraint meaningful on databases that treat NULLs as distinct.
package record
