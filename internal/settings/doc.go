// SPDX-License-Identifier: MIT

// Package settings is the accessor application code uses to read and write
// persisted settings.
//
// Keys take the form "namespace::group.item" where the namespace is optional
// and the item may itself be a dotted path. Every group maps to one registry
// collection ("namespace::group" or "group"). Values written through Set are
// persisted in a record.Store and mirrored into the registry in the same
// decoded form a freshly booted process reads back, so readers never see a
// difference between the process that wrote a value and one that loaded it.
//
// A group is fetched from the store the first time any operation touches it
// unless Load already read every record at boot.
package settings
