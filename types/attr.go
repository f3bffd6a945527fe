package types

import "encoding/json"

// AttrKind discriminates the closed attribute value variant.
type AttrKind uint8

const (
	AttrString AttrKind = iota
	AttrInt
	AttrDouble
	AttrBool
	AttrArray
)

// AttrValue is the small closed variant used for flattened OTLP attributes:
// string, int, double, bool or an array of values. It is materialized once
// at ingestion; the wire-format union type is not carried further into the
// system.
type AttrValue struct {
	Kind   AttrKind
	Str    string
	Int    int64
	Double float64
	Bool   bool
	Array  []AttrValue
}

func StringValue(s string) AttrValue  { return AttrValue{Kind: AttrString, Str: s} }
func IntValue(i int64) AttrValue      { return AttrValue{Kind: AttrInt, Int: i} }
func DoubleValue(f float64) AttrValue { return AttrValue{Kind: AttrDouble, Double: f} }
func BoolValue(b bool) AttrValue      { return AttrValue{Kind: AttrBool, Bool: b} }
func ArrayValue(vs []AttrValue) AttrValue {
	return AttrValue{Kind: AttrArray, Array: vs}
}

// Any returns the plain Go value for serialization.
func (v AttrValue) Any() any {
	switch v.Kind {
	case AttrInt:
		return v.Int
	case AttrDouble:
		return v.Double
	case AttrBool:
		return v.Bool
	case AttrArray:
		out := make([]any, len(v.Array))
		for i, e := range v.Array {
			out[i] = e.Any()
		}
		return out
	default:
		return v.Str
	}
}

// MarshalJSON emits the plain value, so serialized attribute maps read as
// ordinary JSON objects.
func (v AttrValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Any())
}

// AttrMap is a flattened attribute map keyed by attribute name.
type AttrMap map[string]AttrValue

// GetString returns the string form of the value under key.
// Non-string kinds return ok=false: callers extracting semantic-convention
// keys want the reported type, not a coercion.
func (m AttrMap) GetString(key string) (string, bool) {
	v, ok := m[key]
	if !ok || v.Kind != AttrString {
		return "", false
	}
	return v.Str, true
}

// GetInt returns an integer value under key, accepting int and double kinds
// as well as numeric strings, since instrumentation libraries disagree on
// how token counts are typed.
func (m AttrMap) GetInt(key string) (int64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	switch v.Kind {
	case AttrInt:
		return v.Int, true
	case AttrDouble:
		return int64(v.Double), true
	case AttrString:
		var n json.Number = json.Number(v.Str)
		if i, err := n.Int64(); err == nil {
			return i, true
		}
		if f, err := n.Float64(); err == nil {
			return int64(f), true
		}
	}
	return 0, false
}

// JSON serializes the map as a plain JSON object; an empty map yields "".
func (m AttrMap) JSON() string {
	if len(m) == 0 {
		return ""
	}
	data, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(data)
}
