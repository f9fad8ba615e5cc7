package circuit

import (
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ValueKind enumerates the closed set of property value types. Keeping the
// union closed makes the document serializer's string encoding exhaustive.
type ValueKind int

const (
	NullValue ValueKind = iota
	BoolValue
	NumberValue
	StringValue
	ListValue
	MapValue
)

// Value is a tagged union over {null, bool, number, string, list, map}.
// The zero Value is null.
type Value struct {
	kind ValueKind
	b    bool
	n    float64
	s    string
	list []Value
	m    map[string]Value
}

// Null returns the null value.
func Null() Value { return Value{} }

// Bool wraps a boolean.
func Bool(v bool) Value { return Value{kind: BoolValue, b: v} }

// Number wraps a float.
func Number(v float64) Value { return Value{kind: NumberValue, n: v} }

// String wraps a string.
func String(v string) Value { return Value{kind: StringValue, s: v} }

// List wraps a list of values.
func List(items ...Value) Value { return Value{kind: ListValue, list: items} }

// Map wraps a string-keyed mapping of values.
func Map(m map[string]Value) Value { return Value{kind: MapValue, m: m} }

// Kind returns the tag of the union.
func (v Value) Kind() ValueKind { return v.kind }

// AsBool returns the boolean payload; ok is false for other kinds.
func (v Value) AsBool() (bool, bool) { return v.b, v.kind == BoolValue }

// AsNumber returns the numeric payload; ok is false for other kinds.
func (v Value) AsNumber() (float64, bool) { return v.n, v.kind == NumberValue }

// AsString returns the string payload; ok is false for other kinds.
func (v Value) AsString() (string, bool) { return v.s, v.kind == StringValue }

// AsList returns the list payload; ok is false for other kinds.
func (v Value) AsList() ([]Value, bool) { return v.list, v.kind == ListValue }

// AsMap returns the map payload; ok is false for other kinds.
func (v Value) AsMap() (map[string]Value, bool) { return v.m, v.kind == MapValue }

// Encode renders the value as the single string stored in a document
// property. Strings encode verbatim; every other kind uses a compact JSON
// form, so decoding is unambiguous for non-string kinds and lossless for
// the string-typed properties that dominate real schematics.
func (v Value) Encode() string {
	switch v.kind {
	case StringValue:
		return v.s
	case NullValue:
		return ""
	case BoolValue:
		if v.b {
			return "true"
		}
		return "false"
	case NumberValue:
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

// Equal reports deep equality of two values.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case NullValue:
		return true
	case BoolValue:
		return v.b == o.b
	case NumberValue:
		return v.n == o.n
	case StringValue:
		return v.s == o.s
	case ListValue:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(o.list[i]) {
				return false
			}
		}
		return true
	case MapValue:
		if len(v.m) != len(o.m) {
			return false
		}
		for k, val := range v.m {
			other, ok := o.m[k]
			if !ok || !val.Equal(other) {
				return false
			}
		}
		return true
	}
	return false
}

// MarshalJSON renders the natural JSON form of the union.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case NullValue:
		return []byte("null"), nil
	case BoolValue:
		return json.Marshal(v.b)
	case NumberValue:
		return json.Marshal(v.n)
	case StringValue:
		return json.Marshal(v.s)
	case ListValue:
		if v.list == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(v.list)
	case MapValue:
		if v.m == nil {
			return []byte("{}"), nil
		}
		return json.Marshal(v.m)
	}
	return nil, fmt.Errorf("unknown value kind %d", v.kind)
}

// UnmarshalJSON reads any JSON value into the matching union arm.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return fmt.Errorf("empty JSON value")
	}

	switch trimmed[0] {
	case 'n':
		*v = Null()
		return nil
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*v = Bool(b)
		return nil
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = String(s)
		return nil
	case '[':
		var list []Value
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*v = Value{kind: ListValue, list: list}
		return nil
	case '{':
		var m map[string]Value
		if err := json.Unmarshal(data, &m); err != nil {
			return err
		}
		*v = Value{kind: MapValue, m: m}
		return nil
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return err
		}
		*v = Number(n)
		return nil
	}
}

// sortedKeys returns map keys in deterministic order.
func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
