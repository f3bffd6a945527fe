// Package pricing 提供模型单价查询与调用成本推导。
// Calculator 通过构造函数注入摄入路径，不使用包级单例，
// 以保持归一化过程可独立测试。
package pricing

import (
	"strings"
	"sync"

	"github.com/HelgeSverre/llmflow-sub000/types"
)

// ModelPrice 模型价格，单位 USD / 1K tokens。
type ModelPrice struct {
	Model       string
	PriceInput  float64
	PriceOutput float64
}

// Calculator 成本计算器。价格表按模型名索引；
// 查询时先精确匹配，再回退到最长的连字符边界前缀。
type Calculator struct {
	mu     sync.RWMutex
	prices map[string]ModelPrice
}

// NewCalculator 创建带默认价格表的计算器。
func NewCalculator() *Calculator {
	c := &Calculator{prices: make(map[string]ModelPrice)}
	c.loadDefaultPrices()
	return c
}

// loadDefaultPrices 加载默认价格（可由配置批量覆盖）。
func (c *Calculator) loadDefaultPrices() {
	defaults := []ModelPrice{
		// OpenAI
		{Model: "gpt-4o", PriceInput: 0.0025, PriceOutput: 0.01},
		{Model: "gpt-4o-mini", PriceInput: 0.00015, PriceOutput: 0.0006},
		{Model: "gpt-4-turbo", PriceInput: 0.01, PriceOutput: 0.03},
		{Model: "gpt-4.1", PriceInput: 0.002, PriceOutput: 0.008},
		{Model: "gpt-4.1-mini", PriceInput: 0.0004, PriceOutput: 0.0016},
		{Model: "gpt-3.5-turbo", PriceInput: 0.0005, PriceOutput: 0.0015},
		{Model: "o3-mini", PriceInput: 0.0011, PriceOutput: 0.0044},
		// Anthropic
		{Model: "claude-3-5-sonnet", PriceInput: 0.003, PriceOutput: 0.015},
		{Model: "claude-3-5-haiku", PriceInput: 0.0008, PriceOutput: 0.004},
		{Model: "claude-3-opus", PriceInput: 0.015, PriceOutput: 0.075},
		{Model: "claude-3-haiku", PriceInput: 0.00025, PriceOutput: 0.00125},
		// Gemini
		{Model: "gemini-2.0-flash", PriceInput: 0.0001, PriceOutput: 0.0004},
		{Model: "gemini-1.5-pro", PriceInput: 0.00125, PriceOutput: 0.005},
		{Model: "gemini-1.5-flash", PriceInput: 0.000075, PriceOutput: 0.0003},
		// Mistral
		{Model: "mistral-large", PriceInput: 0.002, PriceOutput: 0.006},
		{Model: "mistral-small", PriceInput: 0.0002, PriceOutput: 0.0006},
		{Model: "codestral", PriceInput: 0.0002, PriceOutput: 0.0006},
	}
	for _, p := range defaults {
		c.prices[p.Model] = p
	}
}

// SetPrice 设置或覆盖一条价格。
func (c *Calculator) SetPrice(model string, priceInput, priceOutput float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.prices[model] = ModelPrice{Model: model, PriceInput: priceInput, PriceOutput: priceOutput}
}

// UpdatePrices 批量更新价格（来自配置）。
func (c *Calculator) UpdatePrices(prices []ModelPrice) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, p := range prices {
		c.prices[p.Model] = p
	}
}

// Lookup 按模型名查价。带版本后缀的模型名（claude-3-5-sonnet-20241022）
// 回退到最长的注册前缀，且前缀必须在连字符边界结束，
// 避免把共享前缀的不同模型错配到一起。
func (c *Calculator) Lookup(model string) (ModelPrice, bool) {
	model = strings.ToLower(strings.TrimSpace(model))
	if model == "" {
		return ModelPrice{}, false
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	if p, ok := c.prices[model]; ok {
		return p, true
	}

	var best ModelPrice
	bestLen := 0
	for key, p := range c.prices {
		if len(key) <= bestLen || len(key) >= len(model) {
			continue
		}
		if strings.HasPrefix(model, key) && model[len(key)] == '-' {
			best = p
			bestLen = len(key)
		}
	}
	return best, bestLen > 0
}

// Calculate 根据模型与 token 用量推导成本；模型未知时返回 0。
func (c *Calculator) Calculate(model string, usage types.TokenUsage) float64 {
	p, ok := c.Lookup(model)
	if !ok {
		return 0
	}
	return float64(usage.PromptTokens)/1000*p.PriceInput +
		float64(usage.CompletionTokens)/1000*p.PriceOutput
}
