// Package types defines the shared data model of llmflow: the persisted
// telemetry records (Span, LogRecord, MetricPoint), the typed attribute
// variant used for OTLP key/value flattening, and the small value objects
// exchanged between the adapter layer and the proxy (TargetDescriptor,
// ProxyRequest, TokenUsage).
//
// Everything in this package is plain data. Records are created once at
// ingestion time and are immutable afterwards; only retention eviction
// removes them.
package types
