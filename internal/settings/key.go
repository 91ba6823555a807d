// SPDX-License-Identifier: MIT

package settings

import (
	"fmt"
	"strings"
)

const namespaceSeparator = "::"

// Key is a parsed setting key.
type Key struct {
	Namespace string
	Group     string
	Item      string
}

// ParseKey splits "namespace::group.item" into its parts. The namespace and
// item are optional; everything after the first dot is the item path.
func ParseKey(key string) (Key, error) {
	if strings.TrimSpace(key) == "" {
		return Key{}, fmt.Errorf("%w: empty key", ErrInvalidKey)
	}

	var k Key
	rest := key
	if ns, after, ok := strings.Cut(key, namespaceSeparator); ok {
		if strings.TrimSpace(ns) == "" {
			return Key{}, fmt.Errorf("%w: empty namespace in %q", ErrInvalidKey, key)
		}
		k.Namespace = ns
		rest = after
	}

	group, item, hasItem := strings.Cut(rest, ".")
	if strings.TrimSpace(group) == "" {
		return Key{}, fmt.Errorf("%w: empty group in %q", ErrInvalidKey, key)
	}
	k.Group = group

	if hasItem {
		for _, seg := range strings.Split(item, ".") {
			if seg == "" {
				return Key{}, fmt.Errorf("%w: empty item segment in %q", ErrInvalidKey, key)
			}
		}
		k.Item = item
	}
	return k, nil
}

// Collection returns the registry collection of the key's group.
func (k Key) Collection() string {
	return Collection(k.Group, k.Namespace)
}

// String renders the key in its canonical dotted form.
func (k Key) String() string {
	if k.Item == "" {
		return k.Collection()
	}
	return k.Collection() + "." + k.Item
}

// Collection joins a group and an optional namespace into a collection name.
func Collection(group, namespace string) string {
	if namespace == "" {
		return group
	}
	return namespace + namespaceSeparator + group
}
