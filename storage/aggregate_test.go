package storage

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HelgeSverre/llmflow-sub000/types"
)

// =============================================================================
// 🧪 时间桶聚合测试
// =============================================================================

func insertUsageSpan(t *testing.T, store *Store, start int64, provider, model string, tokens int, cost float64) {
	t.Helper()
	require.NoError(t, store.InsertSpan(&types.Span{
		SpanID: provider + "-" + model + "-" + strconv.FormatInt(start, 10), TraceID: "t",
		StartTime: start, Kind: types.SpanKindLLM,
		Provider: provider, Model: model,
		PromptTokens: tokens / 2, CompletionTokens: tokens - tokens/2, TotalTokens: tokens,
		Cost: cost, ServiceName: "proxy",
	}))
}

func TestUsageTrend_ZeroFilled(t *testing.T) {
	store := openTestStore(t, DefaultRetention())
	store.nowFn = func() int64 { return 5500 } // 桶宽 1000 时落在桶 5000

	insertUsageSpan(t, store, 1200, "openai", "gpt-4o", 100, 0.01)
	insertUsageSpan(t, store, 1800, "openai", "gpt-4o", 50, 0.005)
	insertUsageSpan(t, store, 4100, "anthropic", "claude", 200, 0.1)
	// 非 llm 类别不计入
	require.NoError(t, store.InsertSpan(&types.Span{
		SpanID: "tool", TraceID: "t", StartTime: 1300,
		Kind: types.SpanKindTool, ServiceName: "proxy",
	}))

	buckets, err := store.UsageTrend(1000, 1000)
	require.NoError(t, err)
	// 1000..5000 连续五个桶
	require.Len(t, buckets, 5)

	assert.Equal(t, int64(1000), buckets[0].Bucket)
	assert.Equal(t, int64(2), buckets[0].Count)
	assert.Equal(t, int64(150), buckets[0].TotalTokens)
	assert.InDelta(t, 0.015, buckets[0].Cost, 1e-9)

	// 空桶补零
	assert.Equal(t, int64(2000), buckets[1].Bucket)
	assert.Zero(t, buckets[1].Count)
	assert.Zero(t, buckets[2].Count)

	assert.Equal(t, int64(4000), buckets[3].Bucket)
	assert.Equal(t, int64(1), buckets[3].Count)
	assert.Zero(t, buckets[4].Count)
}

func TestUsageTrend_BucketAlignment(t *testing.T) {
	store := openTestStore(t, DefaultRetention())
	store.nowFn = func() int64 { return 2500 }

	// since 不对齐时向下取整到桶边界
	buckets, err := store.UsageTrend(1700, 1000)
	require.NoError(t, err)
	require.Len(t, buckets, 2)
	assert.Equal(t, int64(1000), buckets[0].Bucket)
	assert.Equal(t, int64(2000), buckets[1].Bucket)
}

func TestUsageTrend_InvalidBucket(t *testing.T) {
	store := openTestStore(t, DefaultRetention())
	_, err := store.UsageTrend(0, 0)
	assert.Error(t, err)
}

func TestCostByProvider(t *testing.T) {
	store := openTestStore(t, DefaultRetention())
	insertUsageSpan(t, store, 1000, "openai", "gpt-4o", 100, 0.01)
	insertUsageSpan(t, store, 2000, "openai", "gpt-4o-mini", 50, 0.002)
	insertUsageSpan(t, store, 3000, "anthropic", "claude", 200, 0.1)
	// provider 为空的行不参与分组
	require.NoError(t, store.InsertSpan(&types.Span{
		SpanID: "blank", TraceID: "t", StartTime: 1500,
		Kind: types.SpanKindLLM, Cost: 99, ServiceName: "svc",
	}))

	groups, err := store.CostByProvider(0)
	require.NoError(t, err)
	require.Len(t, groups, 2)
	// 成本降序
	assert.Equal(t, "anthropic", groups[0].Key)
	assert.InDelta(t, 0.1, groups[0].Cost, 1e-9)
	assert.Equal(t, "openai", groups[1].Key)
	assert.Equal(t, int64(2), groups[1].Count)
	assert.Equal(t, int64(150), groups[1].TotalTokens)
}

func TestCostByModel_SinceWindow(t *testing.T) {
	store := openTestStore(t, DefaultRetention())
	insertUsageSpan(t, store, 1000, "openai", "gpt-4o", 100, 0.01)
	insertUsageSpan(t, store, 5000, "openai", "gpt-4o", 100, 0.02)

	groups, err := store.CostByModel(3000)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "gpt-4o", groups[0].Key)
	assert.Equal(t, int64(1), groups[0].Count)
	assert.InDelta(t, 0.02, groups[0].Cost, 1e-9)
}

func TestDailySummary_WindowLength(t *testing.T) {
	store := openTestStore(t, DefaultRetention())
	now := int64(10 * dayMs)
	store.nowFn = func() int64 { return now }

	insertUsageSpan(t, store, now-dayMs, "openai", "gpt-4o", 10, 0.001)

	buckets, err := store.DailySummary(3)
	require.NoError(t, err)
	require.Len(t, buckets, 3)
	assert.Equal(t, now-2*dayMs, buckets[0].Bucket)
	assert.Equal(t, int64(1), buckets[1].Count)
	assert.Equal(t, int64(0), buckets[2].Count)
}
