// SPDX-License-Identifier: MIT

package log

// Canonical field name constants for structured logging.
const (
	// Identity fields
	FieldService       = "service"
	FieldVersion       = "version"
	FieldRequestID     = "request_id"
	FieldCorrelationID = "correlation_id"

	// Process fields
	FieldEvent     = "event"
	FieldComponent = "component"

	// Settings fields
	FieldKey        = "key"
	FieldNamespace  = "namespace"
	FieldGroup      = "group"
	FieldItem       = "item"
	FieldCollection = "collection"
	FieldFormat     = "format"
	FieldBackend    = "backend"
	FieldCount      = "count"

	// HTTP fields
	FieldMethod   = "method"
	FieldPath     = "path"
	FieldStatus   = "status"
	FieldDuration = "duration_ms"
	FieldRemote   = "remote_addr"
)
