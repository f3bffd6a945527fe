package providers

import (
	"net/http"

	"github.com/HelgeSverre/llmflow-sub000/types"
)

// NormalizedResponse 是对上游响应的归一化结果。
// 解析失败时 Body 原样透传、Usage 为零值：归一化降级而不是抛错。
type NormalizedResponse struct {
	Body  []byte           `json:"-"`
	Usage types.TokenUsage `json:"usage"`
	Model string           `json:"model"`
}

// StreamState 是流式响应折叠的累积器。
// ParseStreamChunk 以值语义实现 (state, chunk) -> state 的纯折叠：
// Text 累积可见文本，Usage 保留最近一次用量快照，Done 表示收到终止标记。
// Carry 暂存上一 chunk 末尾未完成的记录，完整解析前不产生内容。
type StreamState struct {
	Text  string
	Usage types.TokenUsage
	Model string
	Done  bool
	Carry string
}

// Adapter 是单个上游的协议适配器。
// 五个方法都是纯映射：不发起网络调用、不持有可变状态。
//
// ResolveTarget 只依赖声明的模型、流式标志与凭证有无；
// 当必需参数（如 Azure 的 deployment 名）推导不出时，
// 返回尽力而为的目标而不是报错——上游的拒绝会作为失败调用正常呈现。
type Adapter interface {
	// Name 返回 provider 的唯一标识。
	Name() string

	// ResolveTarget 计算上游目的地（主机/端口/路径/协议）。
	ResolveTarget(req *types.ProxyRequest) types.TargetDescriptor

	// TransformRequestHeaders 把入站头转换为上游要求的头，
	// 包括把 Authorization bearer 迁移到 provider 专用头。
	TransformRequestHeaders(h http.Header) http.Header

	// TransformRequestBody 把规范请求体转换为上游原生形状；
	// 已经是原生形状时为恒等变换。
	TransformRequestBody(body []byte) []byte

	// NormalizeResponse 把上游响应体归一化为规范形状并抽取用量与模型名。
	NormalizeResponse(body []byte) NormalizedResponse

	// ParseStreamChunk 对一个原始流式 chunk 执行一步折叠。
	// 单条记录解析失败被吞掉，折叠继续；该方法绝不 panic。
	ParseStreamChunk(st StreamState, chunk []byte) StreamState
}
