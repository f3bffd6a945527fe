package openai

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/HelgeSverre/llmflow-sub000/providers"
	"github.com/HelgeSverre/llmflow-sub000/types"
)

// Adapter 实现 OpenAI 的协议适配。
// OpenAI 的请求/响应形状就是系统的规范形状，因此这是恒等 adapter：
// 请求体原样透传，只整理头与目的地。它同时充当缺省 adapter
// 和其他 adapter 的归一化目标。
type Adapter struct {
	cfg    providers.OpenAIConfig
	logger *zap.Logger
}

// NewAdapter 创建 OpenAI adapter。
func NewAdapter(cfg providers.OpenAIConfig, logger *zap.Logger) *Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	return &Adapter{cfg: cfg, logger: logger}
}

func (a *Adapter) Name() string { return "openai" }

// ResolveTarget 保留调用方的 /v1 路径；前缀剥掉后没有剩余路径时
// 落到 chat completions 端点。
func (a *Adapter) ResolveTarget(req *types.ProxyRequest) types.TargetDescriptor {
	target := providers.TargetFromBase(a.cfg.BaseURL, "api.openai.com")
	path := req.Path
	if path == "" || path == "/" {
		path = "/v1/chat/completions"
	} else if !strings.HasPrefix(path, "/v1/") {
		path = "/v1" + path
	}
	target.Path = path
	return target
}

func (a *Adapter) TransformRequestHeaders(h http.Header) http.Header {
	out := providers.SanitizeHeaders(h)
	if a.cfg.APIKey != "" {
		out.Set("Authorization", "Bearer "+a.cfg.APIKey)
	}
	out.Set("Content-Type", "application/json")
	return out
}

// TransformRequestBody 恒等变换。
func (a *Adapter) TransformRequestBody(body []byte) []byte { return body }

func (a *Adapter) NormalizeResponse(body []byte) providers.NormalizedResponse {
	var resp providers.ChatResponse
	if err := json.Unmarshal(body, &resp); err != nil || len(resp.Choices) == 0 {
		// 形状不符：原样透传，用量未知
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
