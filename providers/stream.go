package providers

import (
	"encoding/json"
	"strings"

	"github.com/HelgeSverre/llmflow-sub000/types"
)

// SplitSSE 把 carry+chunk 按行切分，返回其中完整行里的 data 载荷，
// 以及末尾未收完整的残行。event/注释行被跳过；
// 跨 chunk 截断的行留在 rest 里，下一步折叠继续拼接。
func SplitSSE(carry string, chunk []byte) (payloads []string, rest string) {
	buf := carry + string(chunk)

	for {
		idx := strings.IndexByte(buf, '\n')
		if idx < 0 {
			break
		}
		line := strings.TrimRight(buf[:idx], "\r")
		buf = buf[idx+1:]

		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "event:") || strings.HasPrefix(line, ":") {
			continue
		}
		if strings.HasPrefix(line, "data:") {
			payloads = append(payloads, strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
	}
	return payloads, buf
}

// ScanJSONObjects 从 carry+chunk 里抽取完整的顶层 JSON 对象，
// 用于按 JSON 数组分帧的流（如 Gemini 的非 SSE 流式响应）。
// 深度 0 上的 '['、']'、',' 与空白被跳过；
// 最后一个未闭合对象留在 rest 里。
func ScanJSONObjects(carry string, chunk []byte) (objects []string, rest string) {
	buf := carry + string(chunk)

	depth := 0
	inString := false
	escaped := false
	start := -1

	for i := 0; i < len(buf); i++ {
		c := buf[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
				if depth == 0 && start >= 0 {
					objects = append(objects, buf[start:i+1])
					start = -1
				}
			}
		}
	}

	if start >= 0 {
		return objects, buf[start:]
	}
	return objects, ""
}

// StepOpenAI 是 OpenAI 兼容 SSE 流的共享折叠步。
// openai、azure、mistral、openrouter 四个 adapter 的线上分帧一致：
// data 行携带 chat.completion.chunk，[DONE] 哨兵收尾，
// 用量可能只出现在 finish 之后的最终 chunk 里。
func StepOpenAI(st StreamState, chunk []byte) StreamState {
	payloads, rest := SplitSSE(st.Carry, chunk)
	st.Carry = rest

	for _, payload := range payloads {
		if payload == "[DONE]" {
			st.Done = true
			continue
		}

		var ev ChatResponse
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			continue // 吞掉坏记录，折叠继续
		}

		if ev.Model != "" {
			st.Model = ev.Model
		}
		for _, choice := range ev.Choices {
			if choice.Delta != nil {
				st.Text += choice.Delta.Content
			}
			if choice.FinishReason != "" {
				st.Done = true
			}
		}
		if ev.Usage != nil {
			st.Usage = st.Usage.Merge(types.TokenUsage{
				PromptTokens:     ev.Usage.PromptTokens,
				CompletionTokens: ev.Usage.CompletionTokens,
				TotalTokens:      ev.Usage.TotalTokens,
			})
		}
	}
	return st
}
