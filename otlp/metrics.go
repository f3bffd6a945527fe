package otlp

import (
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/HelgeSverre/llmflow-sub000/types"
)

// NormalizeMetrics 把 resourceMetrics 载荷归一化为 MetricPoint。
// 逐数据点独立处理；不支持的指标类型计为一条拒绝。
func (n *Normalizer) NormalizeMetrics(payload []byte) ([]types.MetricPoint, types.IngestSummary, error) {
	var req exportMetricsRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, types.IngestSummary{}, fmt.Errorf("parse resourceMetrics payload: %w", err)
	}

	var points []types.MetricPoint
	var summary types.IngestSummary

	for _, rm := range req.ResourceMetrics {
		var resourceAttrs types.AttrMap
		if rm.Resource != nil {
			resourceAttrs = flattenAttrs(rm.Resource.Attributes)
		}
		service := serviceName(resourceAttrs)

		for _, sm := range rm.ScopeMetrics {
			scope := ""
			if sm.Scope != nil {
				scope = sm.Scope.Name
			}
			for _, wm := range sm.Metrics {
				normalized, err := normalizeMetric(wm, service, scope, resourceAttrs)
				if err != nil {
					reject(&summary, err.Error())
					n.logger.Debug("rejected otlp metric", zap.Error(err))
					continue
				}
				points = append(points, normalized...)
				summary.Accepted += len(normalized)
			}
		}
	}
	return points, summary, nil
}

func normalizeMetric(wm wireMetric, service, scope string, resourceAttrs types.AttrMap) ([]types.MetricPoint, error) {
	if wm.Name == "" {
		return nil, fmt.Errorf("metric missing name")
	}

	base := types.MetricPoint{
		Name:          wm.Name,
		Description:   wm.Description,
		Unit:          wm.Unit,
		ServiceName:   service,
		ScopeName:     scope,
		ResourceAttrs: resourceAttrs.JSON(),
	}

	var out []types.MetricPoint
	switch {
	case wm.Sum != nil:
		for _, dp := range wm.Sum.DataPoints {
			out = append(out, numberPoint(base, types.MetricTypeSum, dp))
		}
	case wm.Gauge != nil:
		for _, dp := range wm.Gauge.DataPoints {
			out = append(out, numberPoint(base, types.MetricTypeGauge, dp))
		}
	case wm.Histogram != nil:
		for _, dp := range wm.Histogram.DataPoints {
			out = append(out, histogramPoint(base, dp))
		}
	default:
		return nil, fmt.Errorf("metric %q has no supported data (sum/gauge/histogram)", wm.Name)
	}
	return out, nil
}

// numberPoint 落 ValueInt / ValueDouble 二选一，与上游上报的表示一致。
func numberPoint(base types.MetricPoint, kind types.MetricType, dp numberDataPoint) types.MetricPoint {
	p := base
	p.Type = kind
	p.Timestamp = nanosToMillis(dp.TimeUnixNano)
	p.Attributes = flattenAttrs(dp.Attributes).JSON()
	if dp.AsInt != nil {
		v := int64(*dp.AsInt)
		p.ValueInt = &v
	} else if dp.AsDouble != nil {
		v := *dp.AsDouble
		p.ValueDouble = &v
	}
	return p
}

func histogramPoint(base types.MetricPoint, dp histogramDataPoint) types.MetricPoint {
	p := base
	p.Type = types.MetricTypeHistogram
	p.Timestamp = nanosToMillis(dp.TimeUnixNano)
	p.Attributes = flattenAttrs(dp.Attributes).JSON()

	hist := types.HistogramData{
		Bounds: dp.ExplicitBounds,
		Count:  uint64(dp.Count),
		Min:    dp.Min,
		Max:    dp.Max,
	}
	if dp.Sum != nil {
		hist.Sum = *dp.Sum
	}
	for _, c := range dp.BucketCounts {
		hist.Counts = append(hist.Counts, uint64(c))
	}
	if data, err := json.Marshal(hist); err == nil {
		p.Histogram = string(data)
	}
	return p
}
