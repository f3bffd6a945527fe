package otlp

import (
	"encoding/json"
	"strings"

	"github.com/HelgeSverre/llmflow-sub000/types"
)

// flattenAttrs 把类型化 KeyValue 列表展平为封闭变体的属性表。
// kvlist 不在封闭集合里，整块序列化为字符串值。
func flattenAttrs(kvs []keyValue) types.AttrMap {
	if len(kvs) == 0 {
		return nil
	}
	out := make(types.AttrMap, len(kvs))
	for _, kv := range kvs {
		if kv.Key == "" {
			continue
		}
		out[kv.Key] = toAttrValue(kv.Value)
	}
	return out
}

func toAttrValue(v anyValue) types.AttrValue {
	switch {
	case v.StringValue != nil:
		return types.StringValue(*v.StringValue)
	case v.IntValue != nil:
		return types.IntValue(int64(*v.IntValue))
	case v.DoubleValue != nil:
		return types.DoubleValue(*v.DoubleValue)
	case v.BoolValue != nil:
		return types.BoolValue(*v.BoolValue)
	case v.ArrayValue != nil:
		vals := make([]types.AttrValue, 0, len(v.ArrayValue.Values))
		for _, e := range v.ArrayValue.Values {
			vals = append(vals, toAttrValue(e))
		}
		return types.ArrayValue(vals)
	case v.KvlistValue != nil:
		flat := flattenAttrs(v.KvlistValue.Values)
		return types.StringValue(flat.JSON())
	case v.BytesValue != nil:
		return types.StringValue(*v.BytesValue)
	default:
		return types.StringValue("")
	}
}

// anyValueText 把日志 body 这样的 anyValue 转为存储文本：
// 字符串直接取值，结构化值序列化为 JSON。
func anyValueText(v *anyValue) string {
	if v == nil {
		return ""
	}
	if v.StringValue != nil {
		return *v.StringValue
	}
	data, err := json.Marshal(toAttrValue(*v))
	if err != nil {
		return ""
	}
	return string(data)
}

// normalizeID 归一化 trace/span 标识：去掉分隔符并转小写。
func normalizeID(id string) string {
	id = strings.ReplaceAll(strings.TrimSpace(id), "-", "")
	return strings.ToLower(id)
}

// nanosToMillis 把纳秒时间戳转为系统的毫秒纪元约定。
func nanosToMillis(nanos FlexInt64) int64 {
	return int64(nanos) / 1_000_000
}

// serviceName 从 resource 属性取 service.name，缺省 unknown。
func serviceName(attrs types.AttrMap) string {
	if name, ok := attrs.GetString("service.name"); ok && name != "" {
		return name
	}
	return "unknown"
}
