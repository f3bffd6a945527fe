package types

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// 🧪 AttrValue 测试
// =============================================================================

func TestAttrValue_Constructors(t *testing.T) {
	assert.Equal(t, AttrString, StringValue("x").Kind)
	assert.Equal(t, AttrInt, IntValue(7).Kind)
	assert.Equal(t, AttrDouble, DoubleValue(1.5).Kind)
	assert.Equal(t, AttrBool, BoolValue(true).Kind)

	assert.Equal(t, "x", StringValue("x").Str)
	assert.Equal(t, int64(7), IntValue(7).Int)
}

func TestAttrValue_MarshalJSON(t *testing.T) {
	// 序列化输出裸值，不带类型包装
	data, err := json.Marshal(map[string]AttrValue{
		"s": StringValue("hello"),
		"i": IntValue(42),
		"d": DoubleValue(0.5),
		"b": BoolValue(false),
	})
	require.NoError(t, err)

	var out map[string]any
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, "hello", out["s"])
	assert.Equal(t, float64(42), out["i"])
	assert.Equal(t, 0.5, out["d"])
	assert.Equal(t, false, out["b"])
}

func TestAttrMap_GetString(t *testing.T) {
	m := AttrMap{
		"name":  StringValue("gpt-4o"),
		"count": IntValue(3),
	}

	v, ok := m.GetString("name")
	assert.True(t, ok)
	assert.Equal(t, "gpt-4o", v)

	// 非字符串不做隐式转换
	_, ok = m.GetString("count")
	assert.False(t, ok)

	_, ok = m.GetString("missing")
	assert.False(t, ok)
}

func TestAttrMap_GetInt(t *testing.T) {
	m := AttrMap{
		"int":    IntValue(42),
		"double": DoubleValue(17.0),
		"str":    StringValue("128"),
		"bad":    StringValue("not a number"),
		"bool":   BoolValue(true),
	}

	cases := []struct {
		key  string
		want int64
		ok   bool
	}{
		// 整型直接取，浮点与数字字符串做宽松转换
		{"int", 42, true},
		{"double", 17, true},
		{"str", 128, true},
		{"bad", 0, false},
		{"bool", 0, false},
		{"missing", 0, false},
	}
	for _, tc := range cases {
		got, ok := m.GetInt(tc.key)
		assert.Equal(t, tc.ok, ok, tc.key)
		assert.Equal(t, tc.want, got, tc.key)
	}
}

func TestAttrMap_JSON(t *testing.T) {
	m := AttrMap{"a": IntValue(1)}
	s := m.JSON()
	assert.JSONEq(t, `{"a":1}`, s)

	// 空 map 序列化为空串，落库时省空间
	assert.Equal(t, "", AttrMap{}.JSON())
}
