package mistral

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/HelgeSverre/llmflow-sub000/providers"
	"github.com/HelgeSverre/llmflow-sub000/types"
)

// Adapter 实现 Mistral 的协议适配。
// Mistral 的 API 与规范形状兼容，bearer 凭证原样保留；
// 差异只在主机与个别不支持的字段（user 字段上游会拒绝，转发前剥掉）。
type Adapter struct {
	cfg    providers.MistralConfig
	logger *zap.Logger
}

// NewAdapter 创建 Mistral adapter。
func NewAdapter(cfg providers.MistralConfig, logger *zap.Logger) *Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.mistral.ai"
	}
	return &Adapter{cfg: cfg, logger: logger}
}

func (a *Adapter) Name() string { return "mistral" }

func (a *Adapter) ResolveTarget(req *types.ProxyRequest) types.TargetDescriptor {
	target := providers.TargetFromBase(a.cfg.BaseURL, "api.mistral.ai")
	target.Path = "/v1/chat/completions"
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

// TransformRequestBody 基本恒等；只剥掉 Mistral 不认的 user 字段。
func (a *Adapter) TransformRequestBody(body []byte) []byte {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(body, &raw); err != nil {
		return body
	}
	if _, ok := raw["user"]; !ok {
		return body
	}
	delete(raw, "user")
	payload, err := json.Marshal(raw)
	if err != nil {
		return body
	}
	return payload
}

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
