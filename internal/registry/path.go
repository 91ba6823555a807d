// SPDX-License-Identifier: MIT

package registry

import "strings"

func splitPath(item string) []string {
	if item == "" {
		return nil
	}
	return strings.Split(item, ".")
}

// setPath writes value at segs, replacing non-map intermediates.
func setPath(m map[string]any, segs []string, value any) {
	if len(segs) == 0 {
		return
	}
	cur := m
	for _, seg := range segs[:len(segs)-1] {
		next, ok := cur[seg].(map[string]any)
		if !ok {
			next = make(map[string]any)
			cur[seg] = next
		}
		cur = next
	}
	cur[segs[len(segs)-1]] = value
}

func getPath(m map[string]any, segs []string) (any, bool) {
	var cur any = m
	for _, seg := range segs {
		node, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = node[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// deletePath removes the leaf at segs and prunes parents left empty.
func deletePath(m map[string]any, segs []string) {
	if len(segs) == 0 {
		return
	}
	if len(segs) == 1 {
		delete(m, segs[0])
		return
	}
	child, ok := m[segs[0]].(map[string]any)
	if !ok {
		return
	}
	deletePath(child, segs[1:])
	if len(child) == 0 {
		delete(m, segs[0])
	}
}

// cloneValue deep-copies nested maps and slices so callers cannot mutate
// registry state through returned values.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = cloneValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = cloneValue(val)
		}
		return out
	default:
		return v
	}
}

// flatten turns a nested value into leaf fields below segs, keyed by
// fieldName. Empty maps are kept as leaves so they survive a round trip.
func flatten(segs []string, v any, out map[string]any) {
	m, ok := v.(map[string]any)
	if !ok || len(m) == 0 {
		out[fieldName(segs)] = v
		return
	}
	for k, val := range m {
		child := make([]string, len(segs)+1)
		copy(child, segs)
		child[len(segs)] = k
		flatten(child, val, out)
	}
}

// emptySegment stands for an empty map key inside a field name.
const emptySegment = `\e`

// fieldName joins segs with dots. Dots and backslashes inside a segment
// are escaped, so map keys like "example.com" or "" keep their shape.
func fieldName(segs []string) string {
	var b strings.Builder
	for i, seg := range segs {
		if i > 0 {
			b.WriteByte('.')
		}
		if seg == "" {
			b.WriteString(emptySegment)
			continue
		}
		for j := 0; j < len(seg); j++ {
			if c := seg[j]; c == '.' || c == '\\' {
				b.WriteByte('\\')
			}
			b.WriteByte(seg[j])
		}
	}
	return b.String()
}

// fieldSegments is the inverse of fieldName.
func fieldSegments(name string) []string {
	if name == "" {
		return nil
	}
	var (
		segs []string
		cur  strings.Builder
	)
	for i := 0; i < len(name); i++ {
		c := name[i]
		switch {
		case c == '\\' && i+1 < len(name):
			i++
			if name[i] != 'e' {
				cur.WriteByte(name[i])
			}
		case c == '.':
			segs = append(segs, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	return append(segs, cur.String())
}
