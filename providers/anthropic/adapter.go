package anthropic

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/HelgeSverre/llmflow-sub000/providers"
	"github.com/HelgeSverre/llmflow-sub000/types"
)

// 未声明 max_tokens 时的缺省值；Anthropic 要求该字段必填。
const defaultMaxTokens = 4096

// Adapter 实现 Anthropic 的协议适配。
// 与规范形状的差异：
// 1. 认证使用 x-api-key 头而非 Bearer Token
// 2. system 消息从 messages 数组抽出单独传递
// 3. 流式响应是 event/data 成对的 SSE，终止标记是 message_stop 事件
// 4. 用量拆在 message_start（输入）与 message_delta（输出）两个事件里
type Adapter struct {
	cfg    providers.AnthropicConfig
	logger *zap.Logger
}

// NewAdapter 创建 Anthropic adapter。
func NewAdapter(cfg providers.AnthropicConfig, logger *zap.Logger) *Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.anthropic.com"
	}
	if cfg.Version == "" {
		cfg.Version = "2023-06-01"
	}
	return &Adapter{cfg: cfg, logger: logger}
}

func (a *Adapter) Name() string { return "anthropic" }

// Anthropic 的原生线上形状
type anthropicRequest struct {
	Model       string             `json:"model"`
	Messages    []anthropicMessage `json:"messages"`
	System      string             `json:"system,omitempty"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature,omitempty"`
	TopP        float64            `json:"top_p,omitempty"`
	StopSeq     []string           `json:"stop_sequences,omitempty"`
	Stream      bool               `json:"stream,omitempty"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicContent struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type anthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

type anthropicResponse struct {
	ID         string             `json:"id"`
	Type       string             `json:"type"`
	Role       string             `json:"role"`
	Content    []anthropicContent `json:"content"`
	Model      string             `json:"model"`
	StopReason string             `json:"stop_reason"`
	Usage      *anthropicUsage    `json:"usage,omitempty"`
}

// 流式事件；type 决定哪些字段有值
type anthropicStreamEvent struct {
	Type    string             `json:"type"`
	Message *anthropicResponse `json:"message,omitempty"`
	Delta   *anthropicDelta    `json:"delta,omitempty"`
	Usage   *anthropicUsage    `json:"usage,omitempty"`
}

type anthropicDelta struct {
	Type       string `json:"type"`
	Text       string `json:"text,omitempty"`
	StopReason string `json:"stop_reason,omitempty"`
}

func (a *Adapter) ResolveTarget(req *types.ProxyRequest) types.TargetDescriptor {
	target := providers.TargetFromBase(a.cfg.BaseURL, "api.anthropic.com")
	target.Path = "/v1/messages"
	return target
}

// TransformRequestHeaders 把 bearer 凭证迁移到 x-api-key。
func (a *Adapter) TransformRequestHeaders(h http.Header) http.Header {
	out := providers.SanitizeHeaders(h)
	key := a.cfg.APIKey
	if key == "" {
		key = providers.BearerToken(h)
	}
	out.Del("Authorization")
	if key != "" {
		out.Set("x-api-key", key)
	}
	out.Set("anthropic-version", a.cfg.Version)
	out.Set("Content-Type", "application/json")
	return out
}

// TransformRequestBody 把规范 messages 形状映射为 Anthropic 形状：
// system 消息抽到顶层，stop 改名 stop_sequences，max_tokens 补缺省值。
// 请求体解析不出来时原样透传，让上游报错。
func (a *Adapter) TransformRequestBody(body []byte) []byte {
	var req providers.ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return body
	}

	out := anthropicRequest{
		Model:       req.Model,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		StopSeq:     req.StopSequences(),
		Stream:      req.Stream,
	}
	if out.MaxTokens <= 0 {
		out.MaxTokens = defaultMaxTokens
	}

	for _, m := range req.Messages {
		if m.Role == "system" {
			out.System = m.Content
			continue
		}
		out.Messages = append(out.Messages, anthropicMessage{Role: m.Role, Content: m.Content})
	}

	payload, err := json.Marshal(out)
	if err != nil {
		return body
	}
	return payload
}

// NormalizeResponse 把 Anthropic 响应归一化为规范形状。
// total_tokens 上游不报告，由两部分相加得出。
func (a *Adapter) NormalizeResponse(body []byte) providers.NormalizedResponse {
	var resp anthropicResponse
	if err := json.Unmarshal(body, &resp); err != nil || resp.Type != "message" {
		return providers.NormalizedResponse{Body: body}
	}

	var text string
	for _, c := range resp.Content {
		if c.Type == "text" {
			text += c.Text
		}
	}

	normalized := providers.ChatResponse{
		ID:    resp.ID,
		Model: resp.Model,
		Choices: []providers.ChatChoice{{
			Message:      &providers.ChatMessage{Role: "assistant", Content: text},
			FinishReason: resp.StopReason,
		}},
	}

	out := providers.NormalizedResponse{Body: body, Model: resp.Model}
	if resp.Usage != nil {
		out.Usage = types.TokenUsage{
			PromptTokens:     resp.Usage.InputTokens,
			CompletionTokens: resp.Usage.OutputTokens,
		}.Normalize()
		normalized.Usage = &providers.ChatUsage{
			PromptTokens:     out.Usage.PromptTokens,
			CompletionTokens: out.Usage.CompletionTokens,
			TotalTokens:      out.Usage.TotalTokens,
		}
	}
	if payload, err := json.Marshal(normalized); err == nil {
		out.Body = payload
	}
	return out
}

// ParseStreamChunk 折叠 Anthropic 的 SSE 事件流。
func (a *Adapter) ParseStreamChunk(st providers.StreamState, chunk []byte) providers.StreamState {
	payloads, rest := providers.SplitSSE(st.Carry, chunk)
	st.Carry = rest

	for _, payload := range payloads {
		var event anthropicStreamEvent
		if err := json.Unmarshal([]byte(payload), &event); err != nil {
			continue
		}

		switch event.Type {
		case "message_start":
			if event.Message != nil {
				st.Model = event.Message.Model
				if event.Message.Usage != nil {
					st.Usage = st.Usage.Merge(types.TokenUsage{
						PromptTokens: event.Message.Usage.InputTokens,
					})
				}
			}
		case "content_block_delta":
			if event.Delta != nil && event.Delta.Type == "text_delta" {
				st.Text += event.Delta.Text
			}
		case "message_delta":
			if event.Usage != nil {
				st.Usage = st.Usage.Merge(types.TokenUsage{
					CompletionTokens: event.Usage.OutputTokens,
				})
			}
		case "message_stop":
			st.Usage = st.Usage.Normalize()
			st.Done = true
		}
	}
	return st
}
