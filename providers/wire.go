package providers

import "encoding/json"

// 规范请求/响应形状（OpenAI 兼容）。
// openai adapter 直接接受该形状；其余 adapter 把它映射为各自的原生形状，
// 并把原生响应归一化回这里。

type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatRequest 只声明适配层需要搬动的字段；
// 未声明字段在恒等变换下原样透传。
type ChatRequest struct {
	Model       string          `json:"model"`
	Messages    []ChatMessage   `json:"messages"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature float64         `json:"temperature,omitempty"`
	TopP        float64         `json:"top_p,omitempty"`
	Stop        json.RawMessage `json:"stop,omitempty"` // 字符串或数组，两种上游写法都有
	Stream      bool            `json:"stream,omitempty"`
	User        string          `json:"user,omitempty"`
}

type ChatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

type ChatChoice struct {
	Index        int          `json:"index"`
	Message      *ChatMessage `json:"message,omitempty"`
	Delta        *ChatMessage `json:"delta,omitempty"`
	FinishReason string       `json:"finish_reason,omitempty"`
}

type ChatResponse struct {
	ID      string       `json:"id,omitempty"`
	Object  string       `json:"object,omitempty"`
	Created int64        `json:"created,omitempty"`
	Model   string       `json:"model,omitempty"`
	Choices []ChatChoice `json:"choices"`
	Usage   *ChatUsage   `json:"usage,omitempty"`
}

// StopSequences 把 stop 字段的两种写法统一为字符串切片。
func (r *ChatRequest) StopSequences() []string {
	if len(r.Stop) == 0 {
		return nil
	}
	var one string
	if err := json.Unmarshal(r.Stop, &one); err == nil {
		return []string{one}
	}
	var many []string
	if err := json.Unmarshal(r.Stop, &many); err == nil {
		return many
	}
	return nil
}
