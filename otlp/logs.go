package otlp

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/HelgeSverre/llmflow-sub000/types"
)

// NormalizeLogs 把 resourceLogs 载荷归一化为 LogRecord。
// 返回错误仅当整个请求体不可解析。
func (n *Normalizer) NormalizeLogs(payload []byte) ([]types.LogRecord, types.IngestSummary, error) {
	var req exportLogsRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, types.IngestSummary{}, fmt.Errorf("parse resourceLogs payload: %w", err)
	}

	var records []types.LogRecord
	var summary types.IngestSummary

	for _, rl := range req.ResourceLogs {
		var resourceAttrs types.AttrMap
		if rl.Resource != nil {
			resourceAttrs = flattenAttrs(rl.Resource.Attributes)
		}
		service := serviceName(resourceAttrs)

		for _, sl := range rl.ScopeLogs {
			scope := ""
			if sl.Scope != nil {
				scope = sl.Scope.Name
			}
			for _, wl := range sl.LogRecords {
				record, err := normalizeLogRecord(wl, service, scope, resourceAttrs)
				if err != nil {
					reject(&summary, err.Error())
					n.logger.Debug("rejected otlp log record", zap.Error(err))
					continue
				}
				records = append(records, record)
				summary.Accepted++
			}
		}
	}
	return records, summary, nil
}

func normalizeLogRecord(wl wireLogRecord, service, scope string, resourceAttrs types.AttrMap) (types.LogRecord, error) {
	ts := nanosToMillis(wl.TimeUnixNano)
	observed := nanosToMillis(wl.ObservedTimeUnixNano)
	if ts == 0 {
		ts = observed
	}
	if observed == 0 {
		observed = ts
	}
	if ts == 0 {
		return types.LogRecord{}, fmt.Errorf("log record missing timestamp")
	}

	attrs := flattenAttrs(wl.Attributes)
	eventName := wl.EventName
	if eventName == "" {
		eventName, _ = attrs.GetString("event.name")
	}

	return types.LogRecord{
		Timestamp:         ts,
		ObservedTimestamp: observed,
		SeverityNumber:    wl.SeverityNumber,
		SeverityText:      wl.SeverityText,
		Body:              anyValueText(wl.Body),
		TraceID:           normalizeID(wl.TraceID),
		SpanID:            normalizeID(wl.SpanID),
		EventName:         eventName,
		ServiceName:       service,
		ScopeName:         scope,
		Attributes:        attrs.JSON(),
		ResourceAttrs:     resourceAttrs.JSON(),
	}, nil
}
