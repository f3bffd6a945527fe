package otlp

import (
	"encoding/json"
	"strconv"
	"strings"
)

// OTLP/HTTP JSON 的线格式结构。
// proto3 的 JSON 映射把 64 位整数编码为字符串，但现实的 SDK 两种写法都有，
// FlexInt64 / FlexUint64 同时接受数字与字符串。

// FlexInt64 是兼容字符串编码的 int64。
type FlexInt64 int64

func (f *FlexInt64) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	*f = FlexInt64(n)
	return nil
}

// FlexUint64 是兼容字符串编码的 uint64。
type FlexUint64 uint64

func (f *FlexUint64) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return err
	}
	*f = FlexUint64(n)
	return nil
}

// StatusCode 兼容数字枚举与 "STATUS_CODE_ERROR" 式的名称编码。
type StatusCode int

const statusCodeError = 2

func (c *StatusCode) UnmarshalJSON(data []byte) error {
	var n int
	if err := json.Unmarshal(data, &n); err == nil {
		*c = StatusCode(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	switch strings.ToUpper(s) {
	case "STATUS_CODE_OK":
		*c = 1
	case "STATUS_CODE_ERROR":
		*c = statusCodeError
	default:
		*c = 0
	}
	return nil
}

// Error 返回状态码是否标记错误。
func (c StatusCode) Error() bool { return c == statusCodeError }

type keyValue struct {
	Key   string   `json:"key"`
	Value anyValue `json:"value"`
}

type anyValue struct {
	StringValue *string      `json:"stringValue,omitempty"`
	BoolValue   *bool        `json:"boolValue,omitempty"`
	IntValue    *FlexInt64   `json:"intValue,omitempty"`
	DoubleValue *float64     `json:"doubleValue,omitempty"`
	ArrayValue  *arrayValue  `json:"arrayValue,omitempty"`
	KvlistValue *kvlistValue `json:"kvlistValue,omitempty"`
	BytesValue  *string      `json:"bytesValue,omitempty"`
}

type arrayValue struct {
	Values []anyValue `json:"values"`
}

type kvlistValue struct {
	Values []keyValue `json:"values"`
}

type wireResource struct {
	Attributes []keyValue `json:"attributes"`
}

type wireScope struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// --- traces ---

type exportTracesRequest struct {
	ResourceSpans []resourceSpans `json:"resourceSpans"`
}

type resourceSpans struct {
	Resource   *wireResource `json:"resource,omitempty"`
	ScopeSpans []scopeSpans  `json:"scopeSpans"`
}

type scopeSpans struct {
	Scope *wireScope `json:"scope,omitempty"`
	Spans []wireSpan `json:"spans"`
}

type wireSpan struct {
	TraceID           string      `json:"traceId"`
	SpanID            string      `json:"spanId"`
	ParentSpanID      string      `json:"parentSpanId,omitempty"`
	Name              string      `json:"name"`
	StartTimeUnixNano FlexInt64   `json:"startTimeUnixNano"`
	EndTimeUnixNano   FlexInt64   `json:"endTimeUnixNano"`
	Attributes        []keyValue  `json:"attributes"`
	Status            *wireStatus `json:"status,omitempty"`
}

type wireStatus struct {
	Code    StatusCode `json:"code"`
	Message string     `json:"message,omitempty"`
}

// --- logs ---

type exportLogsRequest struct {
	ResourceLogs []resourceLogs `json:"resourceLogs"`
}

type resourceLogs struct {
	Resource  *wireResource `json:"resource,omitempty"`
	ScopeLogs []scopeLogs   `json:"scopeLogs"`
}

type scopeLogs struct {
	Scope      *wireScope      `json:"scope,omitempty"`
	LogRecords []wireLogRecord `json:"logRecords"`
}

type wireLogRecord struct {
	TimeUnixNano         FlexInt64  `json:"timeUnixNano"`
	ObservedTimeUnixNano FlexInt64  `json:"observedTimeUnixNano"`
	SeverityNumber       int        `json:"severityNumber"`
	SeverityText         string     `json:"severityText,omitempty"`
	Body                 *anyValue  `json:"body,omitempty"`
	Attributes           []keyValue `json:"attributes"`
	TraceID              string     `json:"traceId,omitempty"`
	SpanID               string     `json:"spanId,omitempty"`
	EventName            string     `json:"eventName,omitempty"`
}

// --- metrics ---

type exportMetricsRequest struct {
	ResourceMetrics []resourceMetrics `json:"resourceMetrics"`
}

type resourceMetrics struct {
	Resource     *wireResource  `json:"resource,omitempty"`
	ScopeMetrics []scopeMetrics `json:"scopeMetrics"`
}

type scopeMetrics struct {
	Scope   *wireScope   `json:"scope,omitempty"`
	Metrics []wireMetric `json:"metrics"`
}

type wireMetric struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Unit        string         `json:"unit,omitempty"`
	Sum         *wireSum       `json:"sum,omitempty"`
	Gauge       *wireGauge     `json:"gauge,omitempty"`
	Histogram   *wireHistogram `json:"histogram,omitempty"`
}

type wireSum struct {
	DataPoints  []numberDataPoint `json:"dataPoints"`
	IsMonotonic bool              `json:"isMonotonic,omitempty"`
}

type wireGauge struct {
	DataPoints []numberDataPoint `json:"dataPoints"`
}

type wireHistogram struct {
	DataPoints []histogramDataPoint `json:"dataPoints"`
}

type numberDataPoint struct {
	Attributes   []keyValue `json:"attributes"`
	TimeUnixNano FlexInt64  `json:"timeUnixNano"`
	AsDouble     *float64   `json:"asDouble,omitempty"`
	AsInt        *FlexInt64 `json:"asInt,omitempty"`
}

type histogramDataPoint struct {
	Attributes     []keyValue   `json:"attributes"`
	TimeUnixNano   FlexInt64    `json:"timeUnixNano"`
	Count          FlexUint64   `json:"count"`
	Sum            *float64     `json:"sum,omitempty"`
	BucketCounts   []FlexUint64 `json:"bucketCounts,omitempty"`
	ExplicitBounds []float64    `json:"explicitBounds,omitempty"`
	Min            *float64     `json:"min,omitempty"`
	Max            *float64     `json:"max,omitempty"`
}
