// SPDX-License-Identifier: MIT

package record

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Format describes how Value is encoded.
type Format string

const (
	FormatString Format = "string"
	FormatJSON   Format = "json"
)

// Valid reports whether f is a known format.
func (f Format) Valid() bool {
	return f == FormatString || f == FormatJSON
}

// TableName is the static table every SQL backend creates.
const TableName = "settings"

// Record is one persisted setting.
type Record struct {
	ID        int64     `json:"id" yaml:"-"`
	CreatedAt time.Time `json:"created_at" yaml:"-"`
	UpdatedAt time.Time `json:"updated_at" yaml:"-"`
	Namespace string    `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Group     string    `json:"group" yaml:"group"`
	Item      string    `json:"item" yaml:"item"`
	Value     string    `json:"value" yaml:"value"`
	Format    Format    `json:"format" yaml:"format"`
}

// Collection returns the registry collection the record belongs to.
func (r Record) Collection() string {
	if r.Namespace == "" {
		return r.Group
	}
	return r.Namespace + "::" + r.Group
}

// Key returns the dotted key that addresses the record.
func (r Record) Key() string {
	return r.Collection() + "." + r.Item
}

var (
	// ErrNotFound is returned by stores when no record matches.
	ErrNotFound = errors.New("setting not found")

	// ErrInvalidRecord classifies validation failures.
	// Use errors.Is(err, ErrInvalidRecord) instead of string matching.
	ErrInvalidRecord = errors.New("invalid setting record")
)

// FieldError is a single failed validation rule.
type FieldError struct {
	Field string
	Rule  string
}

func (e FieldError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Rule)
}

// ValidationError aggregates every rule a record violates.
type ValidationError struct {
	Fields []FieldError
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		parts = append(parts, f.Error())
	}
	return fmt.Sprintf("%s: %s", ErrInvalidRecord, strings.Join(parts, "; "))
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidRecord
}

// Validate applies the record rules: group and item are required, format
// must be string or json, and a json value must parse.
func (r *Record) Validate() error {
	var fields []FieldError

	if strings.TrimSpace(r.Group) == "" {
		fields = append(fields, FieldError{Field: "group", Rule: "required"})
	}
	if strings.TrimSpace(r.Item) == "" {
		fields = append(fields, FieldError{Field: "item", Rule: "required"})
	}
	switch {
	case r.Format == "":
		fields = append(fields, FieldError{Field: "format", Rule: "required"})
	case !r.Format.Valid():
		fields = append(fields, FieldError{Field: "format", Rule: "in:string,json"})
	case r.Format == FormatJSON && !json.Valid([]byte(r.Value)):
		fields = append(fields, FieldError{Field: "value", Rule: "json"})
	}

	if len(fields) == 0 {
		return nil
	}
	return &ValidationError{Fields: fields}
}
