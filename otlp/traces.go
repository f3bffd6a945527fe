package otlp

import (
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/HelgeSverre/llmflow-sub000/types"
)

// 框架上报 span 类别的属性键，按优先级排列。
var reportedKindKeys = []string{
	"openinference.span.kind",
	"traceloop.span.kind",
	"langfuse.observation.type",
}

// 已知向量存储；db.system 命中即归为 retrieval。
var vectorStores = map[string]bool{
	"pinecone":      true,
	"weaviate":      true,
	"qdrant":        true,
	"milvus":        true,
	"chroma":        true,
	"chromadb":      true,
	"pgvector":      true,
	"faiss":         true,
	"vespa":         true,
	"opensearch":    true,
	"elasticsearch": true,
}

// 各 instrumentation 约定的模型与用量属性键，靠前的更具体。
var modelKeys = []string{
	"gen_ai.request.model",
	"gen_ai.response.model",
	"llm.model_name",
	"model",
}

var promptTokenKeys = []string{
	"gen_ai.usage.input_tokens",
	"gen_ai.usage.prompt_tokens",
	"llm.token_count.prompt",
	"llm.usage.prompt_tokens",
}

var completionTokenKeys = []string{
	"gen_ai.usage.output_tokens",
	"gen_ai.usage.completion_tokens",
	"llm.token_count.completion",
	"llm.usage.completion_tokens",
}

var totalTokenKeys = []string{
	"gen_ai.usage.total_tokens",
	"llm.token_count.total",
	"llm.usage.total_tokens",
}

var inputKeys = []string{"gen_ai.prompt", "input.value"}
var outputKeys = []string{"gen_ai.completion", "output.value"}

// NormalizeTraces 把 resourceSpans 载荷归一化为 Span 记录。
// 返回错误仅当整个请求体不可解析；顶层集合缺失是空操作成功。
func (n *Normalizer) NormalizeTraces(payload []byte) ([]types.Span, types.IngestSummary, error) {
	var req exportTracesRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, types.IngestSummary{}, fmt.Errorf("parse resourceSpans payload: %w", err)
	}

	var spans []types.Span
	var summary types.IngestSummary

	for _, rs := range req.ResourceSpans {
		var resourceAttrs types.AttrMap
		if rs.Resource != nil {
			resourceAttrs = flattenAttrs(rs.Resource.Attributes)
		}
		service := serviceName(resourceAttrs)

		for _, ss := range rs.ScopeSpans {
			for _, ws := range ss.Spans {
				span, err := n.normalizeSpan(ws, service)
				if err != nil {
					reject(&summary, err.Error())
					n.logger.Debug("rejected otlp span", zap.Error(err))
					continue
				}
				spans = append(spans, span)
				summary.Accepted++
			}
		}
	}
	return spans, summary, nil
}

func (n *Normalizer) normalizeSpan(ws wireSpan, service string) (types.Span, error) {
	spanID := normalizeID(ws.SpanID)
	if spanID == "" {
		return types.Span{}, fmt.Errorf("span %q missing spanId", ws.Name)
	}

	traceID := normalizeID(ws.TraceID)
	if traceID == "" {
		traceID = spanID // trace_id 不允许为空
	}

	attrs := flattenAttrs(ws.Attributes)
	start := nanosToMillis(ws.StartTimeUnixNano)
	duration := nanosToMillis(ws.EndTimeUnixNano) - start
	if duration < 0 {
		duration = 0
	}

	span := types.Span{
		SpanID:      spanID,
		TraceID:     traceID,
		StartTime:   start,
		Duration:    duration,
		Kind:        classifySpanKind(ws.Name, attrs),
		Name:        ws.Name,
		StatusCode:  200,
		Attributes:  attrs.JSON(),
		ServiceName: service,
	}

	if parent := normalizeID(ws.ParentSpanID); parent != "" {
		span.ParentID = &parent
	}

	span.Model = firstString(attrs, modelKeys)
	span.Provider = genAISystem(attrs)
	span.Input = firstString(attrs, inputKeys)
	span.Output = firstString(attrs, outputKeys)

	usage := types.TokenUsage{
		PromptTokens:     int(firstInt(attrs, promptTokenKeys)),
		CompletionTokens: int(firstInt(attrs, completionTokenKeys)),
		TotalTokens:      int(firstInt(attrs, totalTokenKeys)),
	}.Normalize()
	span.PromptTokens = usage.PromptTokens
	span.CompletionTokens = usage.CompletionTokens
	span.TotalTokens = usage.TotalTokens

	if n.pricing != nil && span.Model != "" && !usage.Empty() {
		span.Cost = n.pricing.Calculate(span.Model, usage)
	}

	if code, ok := attrs.GetInt("http.response.status_code"); ok {
		span.StatusCode = int(code)
	} else if code, ok := attrs.GetInt("http.status_code"); ok {
		span.StatusCode = int(code)
	}
	if ws.Status != nil && ws.Status.Code.Error() {
		span.Error = ws.Status.Message
		if span.Error == "" {
			span.Error = "error"
		}
		if span.StatusCode < 400 {
			span.StatusCode = 500
		}
	}
	return span, nil
}

// classifySpanKind 按优先级分类：框架上报的类别属性、
// gen_ai.system 属性、已知向量存储的 db.system、名称子串启发式，
// 全部无法识别时回退 custom。
func classifySpanKind(name string, attrs types.AttrMap) types.SpanKind {
	for _, key := range reportedKindKeys {
		if v, ok := attrs.GetString(key); ok {
			if kind := mapReportedKind(v); kind != "" {
				return kind
			}
		}
	}

	if genAISystem(attrs) != "" {
		return types.SpanKindLLM
	}

	if db, ok := attrs.GetString("db.system"); ok && vectorStores[strings.ToLower(db)] {
		return types.SpanKindRetrieval
	}

	lower := strings.ToLower(name)
	switch {
	case strings.Contains(lower, "embed"):
		return types.SpanKindEmbedding
	case strings.Contains(lower, "retriev"), strings.Contains(lower, "search"):
		return types.SpanKindRetrieval
	case strings.Contains(lower, "agent"):
		return types.SpanKindAgent
	case strings.Contains(lower, "tool"), strings.Contains(lower, "function"):
		return types.SpanKindTool
	case strings.Contains(lower, "chain"):
		return types.SpanKindChain
	}
	return types.SpanKindCustom
}

func mapReportedKind(v string) types.SpanKind {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "llm", "generation":
		return types.SpanKindLLM
	case "chain", "workflow", "task":
		return types.SpanKindChain
	case "agent":
		return types.SpanKindAgent
	case "tool":
		return types.SpanKindTool
	case "retriever", "retrieval":
		return types.SpanKindRetrieval
	case "embedding", "embedder":
		return types.SpanKindEmbedding
	case "span", "event":
		return types.SpanKindCustom
	}
	return ""
}

func genAISystem(attrs types.AttrMap) string {
	if v, ok := attrs.GetString("gen_ai.system"); ok {
		return v
	}
	if v, ok := attrs.GetString("llm.system"); ok {
		return v
	}
	return ""
}

func firstString(attrs types.AttrMap, keys []string) string {
	for _, key := range keys {
		if v, ok := attrs.GetString(key); ok && v != "" {
			return v
		}
	}
	return ""
}

func firstInt(attrs types.AttrMap, keys []string) int64 {
	for _, key := range keys {
		if v, ok := attrs.GetInt(key); ok {
			return v
		}
	}
	return 0
}
