package gemini

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/HelgeSverre/llmflow-sub000/providers"
	"github.com/HelgeSverre/llmflow-sub000/types"
)

// 请求未声明模型时兜底的路径段；上游会对它给出明确报错。
const fallbackModel = "gemini-pro"

// Adapter 实现 Google Gemini 的协议适配。
// 与规范形状的差异：
// 1. 认证使用 x-goog-api-key 头
// 2. 上游路径由请求体声明的模型推导（/v1beta/models/{model}:...）
// 3. messages 改为 contents，assistant 角色改名 model，
//    system 消息移到顶层 systemInstruction
// 4. 流式响应按 JSON 数组分帧，而不是 SSE
type Adapter struct {
	cfg    providers.GeminiConfig
	logger *zap.Logger
}

// NewAdapter 创建 Gemini adapter。
func NewAdapter(cfg providers.GeminiConfig, logger *zap.Logger) *Adapter {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://generativelanguage.googleapis.com"
	}
	return &Adapter{cfg: cfg, logger: logger}
}

func (a *Adapter) Name() string { return "gemini" }

// Gemini 的原生线上形状
type geminiRequest struct {
	Contents          []geminiContent         `json:"contents"`
	SystemInstruction *geminiContent          `json:"systemInstruction,omitempty"`
	GenerationConfig  *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text,omitempty"`
}

type geminiGenerationConfig struct {
	Temperature     float64  `json:"temperature,omitempty"`
	TopP            float64  `json:"topP,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
	StopSequences   []string `json:"stopSequences,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
	Index        int           `json:"index"`
}

type geminiUsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount"`
	CandidatesTokenCount int `json:"candidatesTokenCount"`
	TotalTokenCount      int `json:"totalTokenCount"`
}

type geminiResponse struct {
	Candidates    []geminiCandidate    `json:"candidates"`
	UsageMetadata *geminiUsageMetadata `json:"usageMetadata,omitempty"`
	ModelVersion  string               `json:"modelVersion,omitempty"`
	ResponseID    string               `json:"responseId,omitempty"`
}

// ResolveTarget 由声明的模型推导上游路径；
// 模型缺失时用兜底模型名返回尽力而为的目标。
func (a *Adapter) ResolveTarget(req *types.ProxyRequest) types.TargetDescriptor {
	target := providers.TargetFromBase(a.cfg.BaseURL, "generativelanguage.googleapis.com")
	model := req.Model
	if model == "" {
		model = fallbackModel
	}
	method := "generateContent"
	if req.Stream {
		method = "streamGenerateContent"
	}
	target.Path = "/v1beta/models/" + model + ":" + method
	return target
}

// TransformRequestHeaders 把 bearer 凭证迁移到 x-goog-api-key。
func (a *Adapter) TransformRequestHeaders(h http.Header) http.Header {
	out := providers.SanitizeHeaders(h)
	key := a.cfg.APIKey
	if key == "" {
		key = providers.BearerToken(h)
	}
	out.Del("Authorization")
	if key != "" {
		out.Set("x-goog-api-key", key)
	}
	out.Set("Content-Type", "application/json")
	return out
}

// TransformRequestBody 把规范 messages 形状映射为 Gemini contents 形状。
func (a *Adapter) TransformRequestBody(body []byte) []byte {
	var req providers.ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return body
	}

	out := geminiRequest{}
	for _, m := range req.Messages {
		switch m.Role {
		case "system":
			out.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: m.Content}}}
		case "assistant":
			out.Contents = append(out.Contents, geminiContent{
				Role:  "model", // Gemini 用 model 而不是 assistant
				Parts: []geminiPart{{Text: m.Content}},
			})
		default:
			out.Contents = append(out.Contents, geminiContent{
				Role:  "user",
				Parts: []geminiPart{{Text: m.Content}},
			})
		}
	}

	if req.MaxTokens > 0 || req.Temperature > 0 || req.TopP > 0 || len(req.Stop) > 0 {
		out.GenerationConfig = &geminiGenerationConfig{
			Temperature:     req.Temperature,
			TopP:            req.TopP,
			MaxOutputTokens: req.MaxTokens,
			StopSequences:   req.StopSequences(),
		}
	}

	payload, err := json.Marshal(out)
	if err != nil {
		return body
	}
	return payload
}

// NormalizeResponse 把 Gemini 响应归一化为规范形状。
func (a *Adapter) NormalizeResponse(body []byte) providers.NormalizedResponse {
	var resp geminiResponse
	if err := json.Unmarshal(body, &resp); err != nil || len(resp.Candidates) == 0 {
		return providers.NormalizedResponse{Body: body}
	}

	var text string
	for _, part := range resp.Candidates[0].Content.Parts {
		text += part.Text
	}

	normalized := providers.ChatResponse{
		ID:    resp.ResponseID,
		Model: resp.ModelVersion,
		Choices: []providers.ChatChoice{{
			Message:      &providers.ChatMessage{Role: "assistant", Content: text},
			FinishReason: resp.Candidates[0].FinishReason,
		}},
	}

	out := providers.NormalizedResponse{Body: body, Model: resp.ModelVersion}
	if resp.UsageMetadata != nil {
		out.Usage = types.TokenUsage{
			PromptTokens:     resp.UsageMetadata.PromptTokenCount,
			CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      resp.UsageMetadata.TotalTokenCount,
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

// ParseStreamChunk 折叠 Gemini 的 JSON 数组流。
// 每个完整对象是一个 generateContent 响应切片；
// finishReason 出现即视为来到终点，usageMetadata 以最后一次为准。
func (a *Adapter) ParseStreamChunk(st providers.StreamState, chunk []byte) providers.StreamState {
	objects, rest := providers.ScanJSONObjects(st.Carry, chunk)
	st.Carry = rest

	for _, obj := range objects {
		var resp geminiResponse
		if err := json.Unmarshal([]byte(obj), &resp); err != nil {
			continue
		}

		if resp.ModelVersion != "" {
			st.Model = resp.ModelVersion
		}
		for _, cand := range resp.Candidates {
			for _, part := range cand.Content.Parts {
				st.Text += part.Text
			}
			if cand.FinishReason != "" {
				st.Done = true
			}
		}
		if resp.UsageMetadata != nil {
			st.Usage = st.Usage.Merge(types.TokenUsage{
				PromptTokens:     resp.UsageMetadata.PromptTokenCount,
				CompletionTokens: resp.UsageMetadata.CandidatesTokenCount,
				TotalTokens:      resp.UsageMetadata.TotalTokenCount,
			})
		}
	}
	return st
}
