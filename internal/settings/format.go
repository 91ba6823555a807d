// SPDX-License-Identifier: MIT

package settings

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"

	"github.com/antoniofrignani/laravel4-settings/internal/record"
)

// EncodeValue renders v for storage. Maps, slices, arrays and structs become
// JSON; everything else is stored as a plain string.
func EncodeValue(v any) (string, record.Format, error) {
	switch t := v.(type) {
	case nil:
		return "", record.FormatString, nil
	case string:
		return t, record.FormatString, nil
	case json.RawMessage:
		if !json.Valid(t) {
			return "", "", fmt.Errorf("%w: invalid raw JSON", ErrUnsupportedValue)
		}
		return string(t), record.FormatJSON, nil
	case []byte:
		return string(t), record.FormatString, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String:
		return rv.String(), record.FormatString, nil
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool()), record.FormatString, nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10), record.FormatString, nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10), record.FormatString, nil
	case reflect.Float32:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 32), record.FormatString, nil
	case reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64), record.FormatString, nil
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return "", record.FormatString, nil
		}
		return EncodeValue(rv.Elem().Interface())
	case reflect.Map, reflect.Slice, reflect.Array, reflect.Struct:
		buf, err := json.Marshal(v)
		if err != nil {
			return "", "", fmt.Errorf("%w: %v", ErrUnsupportedValue, err)
		}
		return string(buf), record.FormatJSON, nil
	default:
		return "", "", fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
}

// DecodeValue turns a stored value back into its registry form.
func DecodeValue(raw string, format record.Format) (any, error) {
	switch format {
	case record.FormatJSON:
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			return nil, fmt.Errorf("decode json setting: %w", err)
		}
		return v, nil
	case record.FormatString, "":
		return raw, nil
	default:
		return nil, fmt.Errorf("unknown setting format %q", format)
	}
}

// normalize returns the value a reader gets back after v is persisted.
func normalize(v any) (string, record.Format, any, error) {
	raw, format, err := EncodeValue(v)
	if err != nil {
		return "", "", nil, err
	}
	decoded, err := DecodeValue(raw, format)
	if err != nil {
		return "", "", nil, err
	}
	return raw, format, decoded, nil
}
