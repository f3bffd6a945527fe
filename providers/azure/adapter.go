package azure

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/HelgeSverre/llmflow-sub000/providers"
	"github.com/HelgeSverre/llmflow-sub000/providers/openai"
	"github.com/HelgeSverre/llmflow-sub000/types"
)

// Adapter 实现 Azure OpenAI 的协议适配。
// 请求/响应体与 OpenAI 一致，差异全在寻址与认证：
// 1. 主机是 {resource}.openai.azure.com
// 2. 路径带 deployment 段，由声明的模型名推导（点号去掉：gpt-3.5-turbo → gpt-35-turbo）
// 3. 认证用 api-key 头，api-version 走查询参数
type Adapter struct {
	cfg    providers.AzureConfig
	inner  *openai.Adapter
	logger *zap.Logger
}

// NewAdapter 创建 Azure OpenAI adapter。
func NewAdapter(cfg providers.AzureConfig, logger *zap.Logger) *Adapter {
	if cfg.APIVersion == "" {
		cfg.APIVersion = "2024-02-01"
	}
	return &Adapter{
		cfg:    cfg,
		inner:  openai.NewAdapter(providers.OpenAIConfig{}, logger),
		logger: logger,
	}
}

func (a *Adapter) Name() string { return "azure" }

// deploymentFromModel 推导 deployment 名：Azure 的 deployment 名不允许点号。
// 推导不出时返回空段，目标依旧成形，由上游拒绝。
func deploymentFromModel(model string) string {
	return strings.ReplaceAll(strings.TrimSpace(model), ".", "")
}

func (a *Adapter) ResolveTarget(req *types.ProxyRequest) types.TargetDescriptor {
	host := a.cfg.Resource + ".openai.azure.com"
	target := providers.TargetFromBase(a.cfg.BaseURL, host)
	deployment := deploymentFromModel(req.Model)
	target.Path = "/openai/deployments/" + deployment + "/chat/completions?api-version=" + a.cfg.APIVersion
	return target
}

// TransformRequestHeaders 把 bearer 凭证迁移到 api-key 头。
func (a *Adapter) TransformRequestHeaders(h http.Header) http.Header {
	out := providers.SanitizeHeaders(h)
	key := a.cfg.APIKey
	if key == "" {
		key = providers.BearerToken(h)
	}
	out.Del("Authorization")
	if key != "" {
		out.Set("api-key", key)
	}
	out.Set("Content-Type", "application/json")
	return out
}

// TransformRequestBody 恒等变换：Azure 接受 OpenAI 请求形状。
func (a *Adapter) TransformRequestBody(body []byte) []byte { return body }

func (a *Adapter) NormalizeResponse(body []byte) providers.NormalizedResponse {
	return a.inner.NormalizeResponse(body)
}

func (a *Adapter) ParseStreamChunk(st providers.StreamState, chunk []byte) providers.StreamState {
	return providers.StepOpenAI(st, chunk)
}
