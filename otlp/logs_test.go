package otlp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// 🧪 log 归一化测试
// =============================================================================

func TestNormalizeLogs_Full(t *testing.T) {
	n := newTestNormalizer()

	payload := `{"resourceLogs":[{
		"resource":{"attributes":[{"key":"service.name","value":{"stringValue":"worker"}}]},
		"scopeLogs":[{
			"scope":{"name":"my.instrumentation"},
			"logRecords":[{
				"timeUnixNano":"1700000000000000000",
				"severityNumber":17,
				"severityText":"ERROR",
				"body":{"stringValue":"request failed"},
				"traceId":"0123456789ABCDEF0123456789abcdef",
				"spanId":"0123456789abcdef",
				"attributes":[{"key":"event.name","value":{"stringValue":"gen_ai.choice"}}]
			}]
		}]
	}]}`

	records, summary, err := n.NormalizeLogs([]byte(payload))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Accepted)
	require.Len(t, records, 1)

	rec := records[0]
	assert.Equal(t, int64(1700000000000), rec.Timestamp)
	// observed 缺省取 timestamp
	assert.Equal(t, rec.Timestamp, rec.ObservedTimestamp)
	assert.Equal(t, 17, rec.SeverityNumber)
	assert.Equal(t, "ERROR", rec.SeverityText)
	assert.Equal(t, "request failed", rec.Body)
	assert.Equal(t, "0123456789abcdef0123456789abcdef", rec.TraceID)
	assert.Equal(t, "worker", rec.ServiceName)
	assert.Equal(t, "my.instrumentation", rec.ScopeName)
	// eventName 顶层缺失时回退 event.name 属性
	assert.Equal(t, "gen_ai.choice", rec.EventName)
}

func TestNormalizeLogs_ObservedFallback(t *testing.T) {
	n := newTestNormalizer()

	payload := `{"resourceLogs":[{"scopeLogs":[{"logRecords":[
		{"observedTimeUnixNano":"2000000000","body":{"stringValue":"late"}}
	]}]}]}`

	records, _, err := n.NormalizeLogs([]byte(payload))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, int64(2000), records[0].Timestamp)
	assert.Equal(t, int64(2000), records[0].ObservedTimestamp)
	assert.Equal(t, "unknown", records[0].ServiceName)
}

func TestNormalizeLogs_RejectMissingTimestamp(t *testing.T) {
	n := newTestNormalizer()

	payload := `{"resourceLogs":[{"scopeLogs":[{"logRecords":[
		{"body":{"stringValue":"no clock"}},
		{"timeUnixNano":"1000000","body":{"stringValue":"ok"}}
	]}]}]}`

	records, summary, err := n.NormalizeLogs([]byte(payload))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Accepted)
	assert.Equal(t, 1, summary.Rejected)
	require.Len(t, records, 1)
	assert.Equal(t, "ok", records[0].Body)
}

func TestNormalizeLogs_StructuredBody(t *testing.T) {
	n := newTestNormalizer()

	// kvlist body 序列化为 JSON 文本
	payload := `{"resourceLogs":[{"scopeLogs":[{"logRecords":[
		{"timeUnixNano":"1000000","body":{"kvlistValue":{"values":[
			{"key":"finish_reason","value":{"stringValue":"stop"}},
			{"key":"index","value":{"intValue":"0"}}
		]}}}
	]}]}]}`

	records, _, err := n.NormalizeLogs([]byte(payload))
	require.NoError(t, err)
	require.Len(t, records, 1)
	// kvlist 先展平为 JSON 字符串再整体编码，内容带转义
	assert.Contains(t, records[0].Body, `finish_reason`)
	assert.Contains(t, records[0].Body, `stop`)
}

func TestNormalizeLogs_UnparseablePayload(t *testing.T) {
	n := newTestNormalizer()
	_, _, err := n.NormalizeLogs([]byte("not json"))
	assert.Error(t, err)
}
