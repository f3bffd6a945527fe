package otlp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/HelgeSverre/llmflow-sub000/pricing"
	"github.com/HelgeSverre/llmflow-sub000/types"
)

func newTestNormalizer() *Normalizer {
	return NewNormalizer(pricing.NewCalculator(), zap.NewNop())
}

// =============================================================================
// 🧪 trace 归一化测试
// =============================================================================

const llmSpanPayload = `{
  "resourceSpans": [{
    "resource": {"attributes": [
      {"key": "service.name", "value": {"stringValue": "my-agent"}}
    ]},
    "scopeSpans": [{
      "spans": [{
        "traceId": "0123456789abcdef0123456789abcdef",
        "spanId": "0123456789abcdef",
        "name": "chat gpt-4o",
        "startTimeUnixNano": "1700000000000000000",
        "endTimeUnixNano": "1700000002500000000",
        "attributes": [
          {"key": "gen_ai.system", "value": {"stringValue": "openai"}},
          {"key": "gen_ai.request.model", "value": {"stringValue": "gpt-4o"}},
          {"key": "gen_ai.usage.input_tokens", "value": {"intValue": "1000"}},
          {"key": "gen_ai.usage.output_tokens", "value": {"intValue": 500}}
        ]
      }]
    }]
  }]
}`

func TestNormalizeTraces_LLMSpan(t *testing.T) {
	n := newTestNormalizer()

	spans, summary, err := n.NormalizeTraces([]byte(llmSpanPayload))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Accepted)
	assert.Zero(t, summary.Rejected)
	require.Len(t, spans, 1)

	sp := spans[0]
	assert.Equal(t, "0123456789abcdef", sp.SpanID)
	assert.Equal(t, "my-agent", sp.ServiceName)
	assert.Equal(t, types.SpanKindLLM, sp.Kind)
	assert.Equal(t, "gpt-4o", sp.Model)
	assert.Equal(t, "openai", sp.Provider)
	// 纳秒转毫秒
	assert.Equal(t, int64(1700000000000), sp.StartTime)
	assert.Equal(t, int64(2500), sp.Duration)
	// intValue 字符串与数字两种编码都接受
	assert.Equal(t, 1000, sp.PromptTokens)
	assert.Equal(t, 500, sp.CompletionTokens)
	assert.Equal(t, 1500, sp.TotalTokens)
	// gpt-4o: 0.0025/1K 输入 + 0.01/1K 输出
	assert.InDelta(t, 0.0075, sp.Cost, 1e-9)
}

func TestNormalizeTraces_PerRecordIsolation(t *testing.T) {
	n := newTestNormalizer()

	// 两条好记录夹一条缺 spanId 的坏记录
	payload := `{"resourceSpans":[{"scopeSpans":[{"spans":[
		{"spanId":"aaa1","traceId":"t1","name":"one","startTimeUnixNano":"1000000","endTimeUnixNano":"2000000"},
		{"spanId":"","name":"broken"},
		{"spanId":"bbb2","traceId":"t1","name":"two","startTimeUnixNano":"1000000","endTimeUnixNano":"2000000"}
	]}]}]}`

	spans, summary, err := n.NormalizeTraces([]byte(payload))
	require.NoError(t, err)
	assert.Equal(t, 2, summary.Accepted)
	assert.Equal(t, 1, summary.Rejected)
	require.Len(t, summary.Errors, 1)
	assert.Len(t, spans, 2)
}

func TestNormalizeTraces_UnparseablePayload(t *testing.T) {
	n := newTestNormalizer()
	_, _, err := n.NormalizeTraces([]byte("{broken"))
	assert.Error(t, err)
}

func TestNormalizeTraces_EmptyPayloadIsNoop(t *testing.T) {
	n := newTestNormalizer()
	spans, summary, err := n.NormalizeTraces([]byte(`{}`))
	require.NoError(t, err)
	assert.Empty(t, spans)
	assert.Zero(t, summary.Accepted)
}

func TestNormalizeTraces_Defaults(t *testing.T) {
	n := newTestNormalizer()

	payload := `{"resourceSpans":[{"scopeSpans":[{"spans":[
		{"spanId":"AB-CD","name":"orphan","startTimeUnixNano":"5000000","endTimeUnixNano":"1000000"}
	]}]}]}`

	spans, _, err := n.NormalizeTraces([]byte(payload))
	require.NoError(t, err)
	require.Len(t, spans, 1)

	sp := spans[0]
	// 标识归一化：去分隔符、小写
	assert.Equal(t, "abcd", sp.SpanID)
	// traceId 缺失时取 spanId
	assert.Equal(t, "abcd", sp.TraceID)
	// 时钟倒挂时 duration 钳到 0
	assert.Zero(t, sp.Duration)
	assert.Equal(t, "unknown", sp.ServiceName)
	assert.Equal(t, 200, sp.StatusCode)
	assert.Nil(t, sp.ParentID)
}

func TestNormalizeTraces_StatusError(t *testing.T) {
	n := newTestNormalizer()

	payload := `{"resourceSpans":[{"scopeSpans":[{"spans":[
		{"spanId":"e1","name":"fail","startTimeUnixNano":"0","endTimeUnixNano":"0",
		 "status":{"code":"STATUS_CODE_ERROR","message":"boom"}}
	]}]}]}`

	spans, _, err := n.NormalizeTraces([]byte(payload))
	require.NoError(t, err)
	require.Len(t, spans, 1)
	assert.Equal(t, "boom", spans[0].Error)
	assert.Equal(t, 500, spans[0].StatusCode)
}

// =============================================================================
// 🧪 span 类别分类测试
// =============================================================================

func TestClassifySpanKind(t *testing.T) {
	cases := []struct {
		name  string
		attrs types.AttrMap
		want  types.SpanKind
	}{
		// 框架上报的类别优先于一切
		{"retriever", types.AttrMap{
			"openinference.span.kind": types.StringValue("RETRIEVER"),
			"gen_ai.system":           types.StringValue("openai"),
		}, types.SpanKindRetrieval},
		{"traceloop task", types.AttrMap{
			"traceloop.span.kind": types.StringValue("task"),
		}, types.SpanKindChain},
		{"langfuse generation", types.AttrMap{
			"langfuse.observation.type": types.StringValue("generation"),
		}, types.SpanKindLLM},
		// gen_ai.system 其次
		{"llm call", types.AttrMap{
			"gen_ai.system": types.StringValue("anthropic"),
		}, types.SpanKindLLM},
		// 已知向量存储归为 retrieval
		{"pinecone query", types.AttrMap{
			"db.system": types.StringValue("Pinecone"),
		}, types.SpanKindRetrieval},
		// 非向量库不算
		{"postgres query", types.AttrMap{
			"db.system": types.StringValue("postgresql"),
		}, types.SpanKindCustom},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, classifySpanKind(tc.name, tc.attrs))
		})
	}
}

func TestClassifySpanKind_NameHeuristics(t *testing.T) {
	cases := map[string]types.SpanKind{
		"text-embedding-3-small": types.SpanKindEmbedding,
		"vector search":          types.SpanKindRetrieval,
		"agent loop":             types.SpanKindAgent,
		"tool call":              types.SpanKindTool,
		"function invoke":        types.SpanKindTool,
		"qa chain":               types.SpanKindChain,
		"http request":           types.SpanKindCustom,
	}
	for name, want := range cases {
		assert.Equal(t, want, classifySpanKind(name, nil), name)
	}
}

func TestMapReportedKind_Unknown(t *testing.T) {
	// 未知取值返回空，让分类落到后续启发式
	assert.Equal(t, types.SpanKind(""), mapReportedKind("mystery"))
	assert.Equal(t, types.SpanKindCustom, mapReportedKind("span"))
}
