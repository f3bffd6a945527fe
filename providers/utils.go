package providers

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/pkoukk/tiktoken-go"

	"github.com/HelgeSverre/llmflow-sub000/types"
)

// 逐跳头与入站专属头，转发上游前剥离。
var dropHeaders = []string{
	"Connection", "Keep-Alive", "Proxy-Authenticate", "Proxy-Authorization",
	"Te", "Trailer", "Transfer-Encoding", "Upgrade",
	"Host", "Content-Length", "Accept-Encoding",
}

// SanitizeHeaders 复制入站头并剥离逐跳头。
// 各 adapter 在此基础上再做凭证迁移。
func SanitizeHeaders(h http.Header) http.Header {
	out := make(http.Header, len(h))
	for k, vs := range h {
		out[k] = append([]string(nil), vs...)
	}
	for _, k := range dropHeaders {
		out.Del(k)
	}
	return out
}

// BearerToken 提取 Authorization 头中的 bearer 凭证，没有则返回空串。
func BearerToken(h http.Header) string {
	auth := h.Get("Authorization")
	if auth == "" {
		return ""
	}
	if strings.HasPrefix(strings.ToLower(auth), "bearer ") {
		return strings.TrimSpace(auth[len("bearer "):])
	}
	return strings.TrimSpace(auth)
}

// TargetFromBase 把配置的 BaseURL 解析为 TargetDescriptor 骨架（path 留空）。
// BaseURL 为空或不可解析时落到 fallbackHost 的 https 默认值。
func TargetFromBase(baseURL, fallbackHost string) types.TargetDescriptor {
	target := types.TargetDescriptor{Host: fallbackHost, Port: 443, Scheme: "https"}
	if baseURL == "" {
		return target
	}
	u, err := url.Parse(baseURL)
	if err != nil || u.Host == "" {
		return target
	}
	target.Host = u.Hostname()
	target.Scheme = u.Scheme
	if target.Scheme == "" {
		target.Scheme = "https"
	}
	switch p := u.Port(); {
	case p != "":
		if n, err := strconv.Atoi(p); err == nil {
			target.Port = n
		}
	case target.Scheme == "http":
		target.Port = 80
	default:
		target.Port = 443
	}
	return target
}

// EstimateTokens 在上游未报告用量时估算 token 数。
// 优先用模型对应的 tiktoken 编码，取不到时回退 cl100k_base，
// 再取不到时退化为 4 字符 ≈ 1 token 的粗估。
func EstimateTokens(text, model string) int {
	if text == "" {
		return 0
	}
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding("cl100k_base")
	}
	if err != nil || enc == nil {
		return (len(text) + 3) / 4
	}
	return len(enc.Encode(text, nil, nil))
}
