package otlp

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/HelgeSverre/llmflow-sub000/types"
)

// =============================================================================
// 🧪 线格式解码测试
// =============================================================================

func TestFlexInt64_Decode(t *testing.T) {
	cases := map[string]int64{
		`123`:                   123,
		`"456"`:                 456,
		`"-7"`:                  -7,
		`""`:                    0,
		`null`:                  0,
		`"1700000000000000000"`: 1700000000000000000,
	}
	for input, want := range cases {
		var f FlexInt64
		require.NoError(t, json.Unmarshal([]byte(input), &f), input)
		assert.Equal(t, want, int64(f), input)
	}

	var f FlexInt64
	assert.Error(t, json.Unmarshal([]byte(`"abc"`), &f))
}

func TestFlexUint64_Decode(t *testing.T) {
	var f FlexUint64
	require.NoError(t, json.Unmarshal([]byte(`"18446744073709551615"`), &f))
	assert.Equal(t, uint64(18446744073709551615), uint64(f))

	assert.Error(t, json.Unmarshal([]byte(`"-1"`), &f))
}

func TestStatusCode_Decode(t *testing.T) {
	cases := map[string]StatusCode{
		`2`:                   2,
		`0`:                   0,
		`"STATUS_CODE_ERROR"`: 2,
		`"STATUS_CODE_OK"`:    1,
		`"status_code_error"`: 2,
		`"UNSET"`:             0,
	}
	for input, want := range cases {
		var c StatusCode
		require.NoError(t, json.Unmarshal([]byte(input), &c), input)
		assert.Equal(t, want, c, input)
	}
	assert.True(t, StatusCode(2).Error())
	assert.False(t, StatusCode(1).Error())
}

func TestFlattenAttrs(t *testing.T) {
	raw := `[
		{"key":"s","value":{"stringValue":"hello"}},
		{"key":"i","value":{"intValue":"9"}},
		{"key":"d","value":{"doubleValue":1.5}},
		{"key":"b","value":{"boolValue":true}},
		{"key":"","value":{"stringValue":"dropped"}}
	]`
	var kvs []keyValue
	require.NoError(t, json.Unmarshal([]byte(raw), &kvs))

	attrs := flattenAttrs(kvs)
	require.Len(t, attrs, 4)

	s, ok := attrs.GetString("s")
	assert.True(t, ok)
	assert.Equal(t, "hello", s)
	i, ok := attrs.GetInt("i")
	assert.True(t, ok)
	assert.Equal(t, int64(9), i)
}

func TestFlattenAttrs_Empty(t *testing.T) {
	assert.Nil(t, flattenAttrs(nil))
}

func TestNormalizeID(t *testing.T) {
	assert.Equal(t, "abcdef", normalizeID(" AB-CD-EF "))
	assert.Equal(t, "", normalizeID(""))
	assert.Equal(t, "0123456789abcdef", normalizeID("0123456789ABCDEF"))
}

func TestServiceName_Default(t *testing.T) {
	assert.Equal(t, "unknown", serviceName(nil))
	assert.Equal(t, "unknown", serviceName(types.AttrMap{"service.name": types.StringValue("")}))
	assert.Equal(t, "svc", serviceName(types.AttrMap{"service.name": types.StringValue("svc")}))
}

func TestReject_CapsErrors(t *testing.T) {
	var summary types.IngestSummary
	for i := 0; i < maxErrors+5; i++ {
		reject(&summary, fmt.Sprintf("bad record %d", i))
	}
	assert.Equal(t, maxErrors+5, summary.Rejected)
	// 超过上限后只计数不再追加消息
	assert.Len(t, summary.Errors, maxErrors)
}
