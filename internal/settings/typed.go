// SPDX-License-Identifier: MIT

package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// GetString returns the value at key as a string, or def when unset.
func (s *Settings) GetString(ctx context.Context, key, def string) (string, error) {
	v, err := s.Get(ctx, key, nil)
	if err != nil || v == nil {
		return def, err
	}
	switch t := v.(type) {
	case string:
		return t, nil
	case bool:
		return strconv.FormatBool(t), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	default:
		return def, fmt.Errorf("%w: %s is %T, not a string", ErrTypeMismatch, key, v)
	}
}

// GetInt returns the value at key as an int, or def when unset.
func (s *Settings) GetInt(ctx context.Context, key string, def int) (int, error) {
	v, err := s.Get(ctx, key, nil)
	if err != nil || v == nil {
		return def, err
	}
	switch t := v.(type) {
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(t))
		if err != nil {
			return def, fmt.Errorf("%w: %s: %v", ErrTypeMismatch, key, err)
		}
		return n, nil
	case float64:
		if t != math.Trunc(t) || t >= math.MaxInt || t < math.MinInt {
			return def, fmt.Errorf("%w: %s holds %v", ErrTypeMismatch, key, t)
		}
		return int(t), nil
	default:
		return def, fmt.Errorf("%w: %s is %T, not an int", ErrTypeMismatch, key, v)
	}
}

// GetBool returns the value at key as a bool, or def when unset.
func (s *Settings) GetBool(ctx context.Context, key string, def bool) (bool, error) {
	v, err := s.Get(ctx, key, nil)
	if err != nil || v == nil {
		return def, err
	}
	switch t := v.(type) {
	case bool:
		return t, nil
	case string:
		if t == "" {
			return def, nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(t))
		if err != nil {
			return def, fmt.Errorf("%w: %s: %v", ErrTypeMismatch, key, err)
		}
		return b, nil
	default:
		return def, fmt.Errorf("%w: %s is %T, not a bool", ErrTypeMismatch, key, v)
	}
}

// Decode unmarshals the value at key into dst through its JSON form.
func (s *Settings) Decode(ctx context.Context, key string, dst any) error {
	v, err := s.Get(ctx, key, nil)
	if err != nil {
		return err
	}
	if v == nil {
		return fmt.Errorf("%w: %s", ErrNotSet, key)
	}
	buf, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	if err := json.Unmarshal(buf, dst); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrTypeMismatch, key, err)
	}
	return nil
}
