// SPDX-License-Identifier: MIT

package telemetry

import (
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Common attribute keys for consistent tracing across the service.
const (
	// HTTP attributes
	HTTPMethodKey     = "http.method"
	HTTPStatusCodeKey = "http.status_code"
	HTTPRouteKey      = "http.route"

	// Setting attributes
	SettingKeyKey        = "setting.key"
	SettingNamespaceKey  = "setting.namespace"
	SettingGroupKey      = "setting.group"
	SettingItemKey       = "setting.item"
	SettingFormatKey     = "setting.format"
	SettingTemporaryKey  = "setting.temporary"
	SettingCollectionKey = "setting.collection"
	SettingCountKey      = "setting.count"

	// Store attributes
	StoreBackendKey = "store.backend"
	StoreOpKey      = "store.op"

	// Error attributes
	ErrorKey     = "error"
	ErrorTypeKey = "error.type"
)

// HTTPAttributes creates common HTTP span attributes.
func HTTPAttributes(method, route string, statusCode int) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.String(HTTPMethodKey, method),
		attribute.String(HTTPRouteKey, route),
		attribute.Int(HTTPStatusCodeKey, statusCode),
	}
}

// SettingAttributes describes the key an operation targets. Empty parts are
// left out.
func SettingAttributes(key, namespace, group, item string) []attribute.KeyValue {
	attrs := make([]attribute.KeyValue, 0, 4)
	attrs = append(attrs, attribute.String(SettingKeyKey, key))
	if namespace != "" {
		attrs = append(attrs, attribute.String(SettingNamespaceKey, namespace))
	}
	if group != "" {
		attrs = append(attrs, attribute.String(SettingGroupKey, group))
	}
	if item != "" {
		attrs = append(attrs, attribute.String(SettingItemKey, item))
	}
	return attrs
}

// ErrorAttributes creates error-related span attributes.
func ErrorAttributes(err error, errorType string) []attribute.KeyValue {
	if err == nil {
		return nil
	}
	return []attribute.KeyValue{
		attribute.Bool(ErrorKey, true),
		attribute.String(ErrorTypeKey, errorType),
	}
}

// RecordError marks span as failed. It is a no-op for a nil error.
func RecordError(span trace.Span, err error, errorType string) {
	if err == nil {
		return
	}
	span.RecordError(err)
	span.SetAttributes(ErrorAttributes(err, errorType)...)
	span.SetStatus(codes.Error, err.Error())
}
