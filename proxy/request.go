// Package proxy 实现转发-记录编排器：入站请求经适配器变换后转发上游，
// 响应（含流式）边透传边折叠，调用结束落一条 llm span。
package proxy

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/HelgeSverre/llmflow-sub000/providers"
	"github.com/HelgeSverre/llmflow-sub000/types"
)

// maxBodyBytes 限制入站请求体大小，防御异常负载。
const maxBodyBytes = 10 << 20

// ParseRequest 把入站 HTTP 请求解析为 ProxyRequest：
// 读取请求体、抽取声明的模型与流式标志、摘出 bearer 凭证。
// 请求体不是 JSON 时 Model/Stream 保持零值，转发照常进行。
func ParseRequest(r *http.Request) (*types.ProxyRequest, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return nil, &types.Error{
			Code:       types.ErrInvalidRequest,
			Message:    fmt.Sprintf("read request body: %v", err),
			HTTPStatus: http.StatusBadRequest,
		}
	}

	preq := &types.ProxyRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Header: r.Header,
		Body:   body,
		APIKey: providers.BearerToken(r.Header),
	}

	var probe struct {
		Model  string `json:"model"`
		Stream bool   `json:"stream"`
	}
	if json.Unmarshal(body, &probe) == nil {
		preq.Model = probe.Model
		preq.Stream = probe.Stream
	}
	return preq, nil
}

// promptText 把规范请求里的消息拼成一段文本，供 token 估算用。
func promptText(body []byte) string {
	var req providers.ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return ""
	}
	parts := make([]string, 0, len(req.Messages))
	for _, m := range req.Messages {
		if m.Content != "" {
			parts = append(parts, m.Content)
		}
	}
	return strings.Join(parts, "\n")
}

// lastUserMessage 返回最后一条用户消息，作为 span 的输入快照。
func lastUserMessage(body []byte) string {
	var req providers.ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return ""
	}
	for i := len(req.Messages) - 1; i >= 0; i-- {
		if req.Messages[i].Role == "user" {
			return req.Messages[i].Content
		}
	}
	return ""
}
