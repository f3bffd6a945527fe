package openrouter

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/HelgeSverre/llmflow-sub000/providers"
	"github.com/HelgeSverre/llmflow-sub000/types"
)

// Adapter 实现 OpenRouter 的协议适配。
// OpenRouter 暴露 OpenAI 兼容 API，bearer 凭证原样保留；
// 差异在主机、/api/v1 路径前缀与可选的归因头（HTTP-Referer / X-Title）。
// 流式响应里会插入 ": OPENROUTER PROCESSING" 注释行，由 SSE 分帧统一跳过。
type Adapter struct {
	cfg    providers.OpenRouterConfig
	logger *zap.Logger
}

// NewAdapter 创建 OpenRouter adapter。
func NewAdapter(cfg providers.OpenRouterConfig, logger *zap.Logger) *Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://openrouter.ai"
	}
	return &Adapter{cfg: cfg, logger: logger}
}

func (a *Adapter) Name() string { return "openrouter" }

func (a *Adapter) ResolveTarget(req *types.ProxyRequest) types.TargetDescriptor {
	target := providers.TargetFromBase(a.cfg.BaseURL, "openrouter.ai")
	target.Path = "/api/v1/chat/completions"
	return target
}

func (a *Adapter) TransformRequestHeaders(h http.Header) http.Header {
	out := providers.SanitizeHeaders(h)
	if a.cfg.APIKey != "" {
		out.Set("Authorization", "Bearer "+a.cfg.APIKey)
	}
	if a.cfg.Referer != "" {
		out.Set("HTTP-Referer", a.cfg.Referer)
	}
	if a.cfg.Title != "" {
		out.Set("X-Title", a.cfg.Title)
	}
	out.Set("Content-Type", "application/json")
	return out
}

// TransformRequestBody 恒等变换。
func (a *Adapter) TransformRequestBody(body []byte) []byte { return body }

func (a *Adapter) NormalizeResponse(body []byte) providers.NormalizedResponse {
	var resp providers.ChatResponse
	if err := json.Unmarshal(body, &resp); err != nil || len(resp.Choices) == 0 {
		return providers.NormalizedResponse{Body: body}
	}
	out := providers.NormalizedResponse{Body: body, Model: resp.Model}
	if resp.Usage != nil {
		out.Usage = types.TokenUsage{
			PromptTokens:     resp.Usage.PromptTokens,
			CompletionTokens: resp.Usage.CompletionTokens,
			TotalTokens:      resp.Usage.TotalTokens,
		}.Normalize()
	}
	return out
}

func (a *Adapter) ParseStreamChunk(st providers.StreamState, chunk []byte) providers.StreamState {
	return providers.StepOpenAI(st, chunk)
}
