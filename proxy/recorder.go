package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/HelgeSverre/llmflow-sub000/pricing"
	"github.com/HelgeSverre/llmflow-sub000/providers"
	"github.com/HelgeSverre/llmflow-sub000/storage"
	"github.com/HelgeSverre/llmflow-sub000/types"
)

// Recorder 把入站调用转发到解析出的上游并记录为 llm span。
// 转发本身尽量透明：上游的错误响应原样透传给调用方，
// 只在本地网络失败时由 Recorder 合成错误响应。
// span 写入失败是硬失败，错误向调用方传播。
type Recorder struct {
	registry *providers.Registry
	store    *storage.Store
	pricing  *pricing.Calculator
	client   *http.Client
	logger   *zap.Logger
	metrics  MetricsSink
	nowFn    func() time.Time
}

// MetricsSink 接收代理调用完成后的指标回调。
type MetricsSink interface {
	RecordProxyRequest(provider, model string, status int, duration time.Duration, promptTokens, completionTokens int, cost float64)
}

// NewRecorder 创建转发-记录编排器。timeout 约束整个上游调用
//（流式响应期间同样生效）。
func NewRecorder(reg *providers.Registry, store *storage.Store, calc *pricing.Calculator, timeout time.Duration, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	return &Recorder{
		registry: reg,
		store:    store,
		pricing:  calc,
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With(zap.String("component", "proxy")),
		nowFn:    time.Now,
	}
}

// Forward 处理一次代理调用：解析适配器、变换请求、调用上游、
// 把响应写回 w，最后落一条 span。返回错误仅在本地失败
//（上游不可达或 span 写入失败）时非 nil。
func (rec *Recorder) Forward(ctx context.Context, w http.ResponseWriter, preq *types.ProxyRequest) error {
	adapter, stripped := rec.registry.Resolve(preq.Path, preq.Header)
	if adapter == nil {
		return rec.fail(w, &types.Error{
			Code:       types.ErrInvalidRequest,
			Message:    "no adapter registered for path " + preq.Path,
			HTTPStatus: http.StatusNotFound,
		})
	}
	preq.Path = stripped

	target := adapter.ResolveTarget(preq)
	headers := adapter.TransformRequestHeaders(preq.Header)
	body := adapter.TransformRequestBody(preq.Body)

	upReq, err := http.NewRequestWithContext(ctx, preq.Method, target.URL(), bytes.NewReader(body))
	if err != nil {
		return rec.fail(w, &types.Error{
			Code:       types.ErrInvalidRequest,
			Message:    fmt.Sprintf("build upstream request: %v", err),
			HTTPStatus: http.StatusBadRequest,
			Provider:   adapter.Name(),
		})
	}
	upReq.Header = headers

	start := rec.nowFn()
	resp, err := rec.client.Do(upReq)
	if err != nil {
		ferr := &types.Error{
			Code:       types.ErrUpstreamError,
			Message:    fmt.Sprintf("upstream %s unreachable: %v", target.Host, err),
			HTTPStatus: http.StatusBadGateway,
			Retryable:  true,
			Provider:   adapter.Name(),
		}
		rec.recordFailure(adapter, preq, start, ferr)
		return rec.fail(w, ferr)
	}
	defer resp.Body.Close()

	if preq.Stream && resp.StatusCode < 400 {
		return rec.forwardStream(adapter, preq, w, resp, start)
	}
	return rec.forwardBuffered(adapter, preq, w, resp, start)
}

func (rec *Recorder) forwardBuffered(adapter providers.Adapter, preq *types.ProxyRequest, w http.ResponseWriter, resp *http.Response, start time.Time) error {
	upstream, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		rec.logger.Warn("read upstream body", zap.Error(err), zap.String("provider", adapter.Name()))
	}

	norm := adapter.NormalizeResponse(upstream)
	out := norm.Body
	if len(out) == 0 {
		out = upstream
	}

	copyResponseHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	if _, werr := w.Write(out); werr != nil {
		rec.logger.Debug("client went away during write", zap.Error(werr))
	}

	span := rec.newSpan(adapter, preq, start)
	span.StatusCode = resp.StatusCode
	span.Response = string(out)
	if resp.StatusCode >= 400 {
		span.Error = excerpt(upstream, 512)
	}
	rec.applyUsage(span, norm.Usage, norm.Model, extractText(out))
	return rec.persist(span)
}

// forwardStream 边把上游 chunk 透传给客户端边执行折叠。
// 客户端断开或上游中断时仍然落一条带错误标记的部分 span。
func (rec *Recorder) forwardStream(adapter providers.Adapter, preq *types.ProxyRequest, w http.ResponseWriter, resp *http.Response, start time.Time) error {
	copyResponseHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	flusher, _ := w.(http.Flusher)

	st := providers.StreamState{}
	var streamErr string
	buf := make([]byte, 32*1024)
	for {
		n, err := resp.Body.Read(buf)
		if n > 0 {
			chunk := buf[:n]
			st = adapter.ParseStreamChunk(st, chunk)
			if _, werr := w.Write(chunk); werr != nil {
				streamErr = "client disconnected mid-stream"
				break
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			streamErr = fmt.Sprintf("upstream stream interrupted: %v", err)
			break
		}
	}

	span := rec.newSpan(adapter, preq, start)
	span.StatusCode = resp.StatusCode
	span.Output = st.Text
	if streamErr != "" {
		span.Error = streamErr
		span.StatusCode = 499
	}
	model := st.Model
	if model == "" {
		model = preq.Model
	}
	rec.applyUsage(span, st.Usage, model, st.Text)
	return rec.persist(span)
}

func (rec *Recorder) newSpan(adapter providers.Adapter, preq *types.ProxyRequest, start time.Time) *types.Span {
	id := uuid.NewString()
	return &types.Span{
		SpanID:    id,
		TraceID:   id,
		StartTime: start.UnixMilli(),
		Duration:  rec.nowFn().Sub(start).Milliseconds(),
		Kind:      types.SpanKindLLM,
		Name:      "chat.completions",
		Provider:  adapter.Name(),
		Model:     preq.Model,
		Request:   string(preq.Body),
		Input:     lastUserMessage(preq.Body),
	}
}

// applyUsage 把用量写进 span：上游报告的用量优先；
// 全零时用 tiktoken 估算并在属性里标明估算来源。
func (rec *Recorder) applyUsage(span *types.Span, usage types.TokenUsage, model, output string) {
	if model != "" {
		span.Model = model
	}
	estimated := false
	if usage.Empty() {
		usage = types.TokenUsage{
			PromptTokens:     providers.EstimateTokens(promptText([]byte(span.Request)), span.Model),
			CompletionTokens: providers.EstimateTokens(output, span.Model),
		}
		estimated = !usage.Empty()
	}
	usage = usage.Normalize()
	span.PromptTokens = usage.PromptTokens
	span.CompletionTokens = usage.CompletionTokens
	span.TotalTokens = usage.TotalTokens
	span.Cost = rec.pricing.Calculate(span.Model, usage)
	if estimated {
		attrs, _ := json.Marshal(map[string]any{"usage.estimated": true})
		span.Attributes = string(attrs)
	}
}

func (rec *Recorder) recordFailure(adapter providers.Adapter, preq *types.ProxyRequest, start time.Time, ferr *types.Error) {
	span := rec.newSpan(adapter, preq, start)
	span.StatusCode = ferr.HTTPStatus
	span.Error = ferr.Message
	if err := rec.persist(span); err != nil {
		rec.logger.Error("record failed call", zap.Error(err))
	}
}

// SetMetrics 注册可选的指标回调。
func (rec *Recorder) SetMetrics(sink MetricsSink) { rec.metrics = sink }

func (rec *Recorder) persist(span *types.Span) error {
	if rec.metrics != nil {
		rec.metrics.RecordProxyRequest(span.Provider, span.Model, span.StatusCode,
			time.Duration(span.Duration)*time.Millisecond,
			span.PromptTokens, span.CompletionTokens, span.Cost)
	}
	if err := rec.store.InsertSpan(span); err != nil {
		rec.logger.Error("persist span",
			zap.String("span_id", span.SpanID),
			zap.Error(err))
		return err
	}
	rec.logger.Debug("recorded call",
		zap.String("provider", span.Provider),
		zap.String("model", span.Model),
		zap.Int("total_tokens", span.TotalTokens),
		zap.Float64("cost", span.Cost),
		zap.Int64("duration_ms", span.Duration))
	return nil
}

// fail 向调用方写一个合成的错误响应并返回该错误。
func (rec *Recorder) fail(w http.ResponseWriter, ferr *types.Error) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ferr.HTTPStatus)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": ferr})
	return ferr
}

// copyResponseHeaders 透传上游响应头，逐跳头除外。
func copyResponseHeaders(dst, src http.Header) {
	for k, vs := range src {
		switch k {
		case "Connection", "Keep-Alive", "Transfer-Encoding", "Content-Length":
			continue
		}
		dst[k] = append([]string(nil), vs...)
	}
}

// extractText 从归一化响应里取第一条消息文本，供 token 估算。
func extractText(body []byte) string {
	var resp providers.ChatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return ""
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil {
		return ""
	}
	return resp.Choices[0].Message.Content
}

// excerpt 截断错误体，避免超长响应污染 span。
func excerpt(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
