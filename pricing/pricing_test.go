package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HelgeSverre/llmflow-sub000/types"
)

// =============================================================================
// 🧪 价格查询测试
// =============================================================================

func TestCalculator_LookupExact(t *testing.T) {
	c := NewCalculator()

	p, ok := c.Lookup("gpt-4o")
	require.True(t, ok)
	assert.Equal(t, 0.0025, p.PriceInput)

	// 大小写与空白不敏感
	p, ok = c.Lookup("  GPT-4o ")
	require.True(t, ok)
	assert.Equal(t, "gpt-4o", p.Model)
}

func TestCalculator_LookupPrefix(t *testing.T) {
	c := NewCalculator()

	// 带版本后缀的模型名回退到注册前缀
	p, ok := c.Lookup("claude-3-5-sonnet-20241022")
	require.True(t, ok)
	assert.Equal(t, "claude-3-5-sonnet", p.Model)

	// 前缀必须在连字符边界结束：gpt-4o 不应匹配 gpt-4o1 之类
	_, ok = c.Lookup("gpt-4o1")
	assert.False(t, ok)

	// 多个候选时取最长前缀
	c.SetPrice("claude-3", 1, 1)
	p, ok = c.Lookup("claude-3-5-sonnet-20241022")
	require.True(t, ok)
	assert.Equal(t, "claude-3-5-sonnet", p.Model)
}

func TestCalculator_LookupUnknown(t *testing.T) {
	c := NewCalculator()

	_, ok := c.Lookup("some-local-model")
	assert.False(t, ok)

	_, ok = c.Lookup("")
	assert.False(t, ok)
}

func TestCalculator_SetPriceOverride(t *testing.T) {
	c := NewCalculator()
	c.SetPrice("gpt-4o", 0.1, 0.2)

	p, ok := c.Lookup("gpt-4o")
	require.True(t, ok)
	assert.Equal(t, 0.1, p.PriceInput)
	assert.Equal(t, 0.2, p.PriceOutput)
}

func TestCalculator_Calculate(t *testing.T) {
	c := NewCalculator()
	c.SetPrice("test-model", 0.5, 1.0) // USD / 1K tokens

	cost := c.Calculate("test-model", types.TokenUsage{PromptTokens: 2000, CompletionTokens: 1000})
	assert.InDelta(t, 2.0, cost, 1e-9)

	// 未知模型成本为 0，不报错
	assert.Zero(t, c.Calculate("unknown", types.TokenUsage{PromptTokens: 1000}))
}
