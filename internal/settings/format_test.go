// SPDX-License-Identifier: MIT

package settings

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/antoniofrignani/laravel4-settings/internal/record"
)

type mailConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

type level string

func TestEncodeValue(t *testing.T) {
	str := "pointer"
	tests := []struct {
		name       string
		in         any
		wantRaw    string
		wantFormat record.Format
	}{
		{name: "nil", in: nil, wantRaw: "", wantFormat: record.FormatString},
		{name: "string", in: "hello", wantRaw: "hello", wantFormat: record.FormatString},
		{name: "named string", in: level("debug"), wantRaw: "debug", wantFormat: record.FormatString},
		{name: "bytes", in: []byte("raw"), wantRaw: "raw", wantFormat: record.FormatString},
		{name: "bool", in: true, wantRaw: "true", wantFormat: record.FormatString},
		{name: "int", in: 42, wantRaw: "42", wantFormat: record.FormatString},
		{name: "uint8", in: uint8(7), wantRaw: "7", wantFormat: record.FormatString},
		{name: "float", in: 1.5, wantRaw: "1.5", wantFormat: record.FormatString},
		{name: "pointer", in: &str, wantRaw: "pointer", wantFormat: record.FormatString},
		{name: "nil pointer", in: (*string)(nil), wantRaw: "", wantFormat: record.FormatString},
		{name: "slice", in: []string{"a", "b"}, wantRaw: `["a","b"]`, wantFormat: record.FormatJSON},
		{name: "map", in: map[string]int{"a": 1}, wantRaw: `{"a":1}`, wantFormat: record.FormatJSON},
		{name: "struct", in: mailConfig{Host: "smtp", Port: 25}, wantRaw: `{"host":"smtp","port":25}`, wantFormat: record.FormatJSON},
		{name: "raw json", in: json.RawMessage(`{"x":true}`), wantRaw: `{"x":true}`, wantFormat: record.FormatJSON},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, format, err := EncodeValue(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRaw, raw)
			assert.Equal(t, tt.wantFormat, format)
		})
	}
}

func TestEncodeValue_Unsupported(t *testing.T) {
	for name, v := range map[string]any{
		"chan":     make(chan int),
		"func":     func() {},
		"complex":  complex(1, 2),
		"bad raw":  json.RawMessage(`{`),
		"bad elem": map[string]any{"c": make(chan int)},
	} {
		t.Run(name, func(t *testing.T) {
			_, _, err := EncodeValue(v)
			assert.True(t, errors.Is(err, ErrUnsupportedValue), "got %v", err)
		})
	}
}

func TestDecodeValue(t *testing.T) {
	v, err := DecodeValue(`{"host":"smtp","ports":[25,587]}`, record.FormatJSON)
	require.NoError(t, err)
	want := map[string]any{"host": "smtp", "ports": []any{float64(25), float64(587)}}
	if diff := cmp.Diff(want, v); diff != "" {
		t.Errorf("DecodeValue mismatch (-want +got):\n%s", diff)
	}

	v, err = DecodeValue(`{"not":"decoded"}`, record.FormatString)
	require.NoError(t, err)
	assert.Equal(t, `{"not":"decoded"}`, v)

	_, err = DecodeValue("{", record.FormatJSON)
	assert.Error(t, err)

	_, err = DecodeValue("x", record.Format("array"))
	assert.ErrorContains(t, err, `unknown setting format "array"`)
}
