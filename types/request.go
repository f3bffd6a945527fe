package types

import (
	"net/http"
	"strconv"
)

// TargetDescriptor 描述一次上游调用的目的地。
// 由 Adapter.ResolveTarget 计算，不落库。
type TargetDescriptor struct {
	Host   string `json:"host"`
	Port   int    `json:"port"`
	Path   string `json:"path"`
	Scheme string `json:"scheme"` // http 或 https
}

// URL 拼出完整的上游地址，标准端口省略。
func (t TargetDescriptor) URL() string {
	host := t.Host
	if t.Port != 0 && t.Port != 443 && t.Port != 80 {
		host = t.Host + ":" + strconv.Itoa(t.Port)
	}
	return t.Scheme + "://" + host + t.Path
}

// ProxyRequest 是路由层解析好的入站请求。
// Model 与 Stream 取自请求体；APIKey 是入站 Authorization 头携带的凭证
// （为空表示调用方未提供，适配器据此决定目标与报错方式）。
type ProxyRequest struct {
	Method string      `json:"method"`
	Path   string      `json:"path"`
	Header http.Header `json:"-"`
	Body   []byte      `json:"-"`
	Model  string      `json:"model"`
	Stream bool        `json:"stream"`
	APIKey string      `json:"-"`
}

// IngestSummary 是一次 OTLP 批量摄入的结果汇总。
// Errors 由归一化器截断到固定上限。
type IngestSummary struct {
	Accepted int      `json:"accepted"`
	Rejected int      `json:"rejected"`
	Errors   []string `json:"errors,omitempty"`
}
