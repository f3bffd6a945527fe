package storage

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/HelgeSverre/llmflow-sub000/types"
)

func openTestStore(t *testing.T, retention RetentionConfig) *Store {
	t.Helper()
	store, err := Open(":memory:", retention, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testSpan(spanID string, startTime int64) *types.Span {
	return &types.Span{
		SpanID:      spanID,
		TraceID:     "trace-" + spanID,
		StartTime:   startTime,
		Duration:    100,
		Kind:        types.SpanKindLLM,
		Name:        "chat.completions",
		Provider:    "openai",
		Model:       "gpt-4o",
		StatusCode:  200,
		ServiceName: "proxy",
	}
}

// =============================================================================
// 🧪 存储写入与保留裁剪测试
// =============================================================================

func TestStore_InsertAndGet(t *testing.T) {
	store := openTestStore(t, DefaultRetention())

	span := testSpan("s1", 1000)
	span.PromptTokens = 10
	span.CompletionTokens = 5
	span.TotalTokens = 15
	require.NoError(t, store.InsertSpan(span))

	got, err := store.GetSpan("s1")
	require.NoError(t, err)
	assert.Equal(t, "trace-s1", got.TraceID)
	assert.Equal(t, 15, got.TotalTokens)
}

func TestStore_GetSpan_NotFound(t *testing.T) {
	store := openTestStore(t, DefaultRetention())

	_, err := store.GetSpan("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_RetentionKeepsNewest(t *testing.T) {
	store := openTestStore(t, RetentionConfig{MaxSpans: 2})

	// 乱序插入，裁剪按时间最新优先
	require.NoError(t, store.InsertSpan(testSpan("old", 1000)))
	require.NoError(t, store.InsertSpan(testSpan("newest", 3000)))
	require.NoError(t, store.InsertSpan(testSpan("middle", 2000)))

	spans, err := store.QuerySpans(SpanFilter{})
	require.NoError(t, err)
	require.Len(t, spans, 2)
	assert.Equal(t, "newest", spans[0].SpanID)
	assert.Equal(t, "middle", spans[1].SpanID)

	_, err = store.GetSpan("old")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStore_RetentionZeroIsUnbounded(t *testing.T) {
	store := openTestStore(t, RetentionConfig{})

	for i := 0; i < 20; i++ {
		require.NoError(t, store.InsertSpan(testSpan(fmt.Sprintf("s%d", i), int64(i))))
	}
	spans, err := store.QuerySpans(SpanFilter{Limit: 100})
	require.NoError(t, err)
	assert.Len(t, spans, 20)
}

func TestStore_RetentionPerTable(t *testing.T) {
	store := openTestStore(t, RetentionConfig{MaxSpans: 1, MaxLogs: 2})

	require.NoError(t, store.InsertSpan(testSpan("s1", 1)))
	require.NoError(t, store.InsertSpan(testSpan("s2", 2)))
	for i := 0; i < 3; i++ {
		require.NoError(t, store.InsertLog(&types.LogRecord{
			Timestamp: int64(i + 1), ObservedTimestamp: int64(i + 1),
			Body: fmt.Sprintf("line %d", i), ServiceName: "svc",
		}))
	}

	spans, err := store.QuerySpans(SpanFilter{})
	require.NoError(t, err)
	assert.Len(t, spans, 1)

	logs, err := store.QueryLogs(LogFilter{})
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, "line 2", logs[0].Body)
}

func TestStore_RetentionUnderConcurrentInserts(t *testing.T) {
	store := openTestStore(t, RetentionConfig{MaxSpans: 10})

	const workers = 8
	const perWorker = 50
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				seq := w*perWorker + i
				assert.NoError(t, store.InsertSpan(testSpan(fmt.Sprintf("c%d", seq), int64(seq))))
			}
		}(w)
	}
	wg.Wait()

	// 并发写入后上限依然成立
	spans, err := store.QuerySpans(SpanFilter{Limit: 100})
	require.NoError(t, err)
	assert.Len(t, spans, 10)
}

func TestStore_InsertHook(t *testing.T) {
	store := openTestStore(t, DefaultRetention())

	type published struct {
		kind   string
		record any
	}
	var events []published
	store.SetInsertHook(func(kind string, record any) {
		events = append(events, published{kind, record})
	})

	require.NoError(t, store.InsertSpan(testSpan("s1", 1)))
	require.NoError(t, store.InsertLog(&types.LogRecord{Timestamp: 1, ObservedTimestamp: 1}))
	require.NoError(t, store.InsertMetric(&types.MetricPoint{Name: "m", Type: types.MetricTypeGauge, Timestamp: 1}))

	require.Len(t, events, 3)
	assert.Equal(t, "spans", events[0].kind)
	assert.Equal(t, "logs", events[1].kind)
	assert.Equal(t, "metrics", events[2].kind)
	sp, ok := events[0].record.(*types.Span)
	require.True(t, ok)
	assert.Equal(t, "s1", sp.SpanID)
}

func TestStore_InsertObserver(t *testing.T) {
	store := openTestStore(t, DefaultRetention())

	var tables []string
	store.SetInsertObserver(func(table string, duration time.Duration) {
		tables = append(tables, table)
		assert.GreaterOrEqual(t, duration, time.Duration(0))
	})

	require.NoError(t, store.InsertSpan(testSpan("s1", 1)))
	require.NoError(t, store.InsertLog(&types.LogRecord{Timestamp: 1, ObservedTimestamp: 1}))
	require.NoError(t, store.InsertMetric(&types.MetricPoint{Name: "m", Type: types.MetricTypeGauge, Timestamp: 1}))

	assert.Equal(t, []string{"spans", "log_records", "metric_points"}, tables)
}
