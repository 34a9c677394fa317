package tool

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// Kind identifies which variant a Value holds.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindArray
	KindObject
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindArray:
		return "array"
	case KindObject:
		return "object"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Value is a JSON value as an explicit tagged variant.
// Schema descriptors and tool arguments travel through the catalog as Values
// so that normalization rules operate on known shapes only.
// The zero Value is Null.
type Value struct {
	kind Kind
	b    bool
	n    float64
	s    string
	arr  []Value
	obj  map[string]Value
}

func Null() Value { return Value{} }
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }
func Number(n float64) Value { return Value{kind: KindNumber, n: n} }
func String(s string) Value { return Value{kind: KindString, s: s} }
func Array(items ...Value) Value {
	return Value{kind: KindArray, arr: append([]Value(nil), items...)}
}

// Object builds an object Value. The map is copied.
func Object(fields map[string]Value) Value {
	obj := make(map[string]Value, len(fields))
	for k, v := range fields {
		obj[k] = v
	}
	return Value{kind: KindObject, obj: obj}
}

func (v Value) Kind() Kind { return v.kind }
func (v Value) IsNull() bool { return v.kind == KindNull }
func (v Value) Bool() bool { return v.b }
func (v Value) Number() float64 { return v.n }
func (v Value) Str() string { return v.s }

// Items returns a copy of the array elements, nil for non-arrays.
func (v Value) Items() []Value {
	if v.kind != KindArray {
		return nil
	}
	return append([]Value(nil), v.arr...)
}

// Get returns the field of an object Value.
func (v Value) Get(key string) (Value, bool) {
	if v.kind != KindObject {
		return Value{}, false
	}
	f, ok := v.obj[key]
	return f, ok
}

// Keys returns the object's keys in sorted order, nil for non-objects.
func (v Value) Keys() []string {
	if v.kind != KindObject {
		return nil
	}
	keys := make([]string, 0, len(v.obj))
	for k := range v.obj {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of elements or fields.
func (v Value) Len() int {
	switch v.kind {
	case KindArray:
		return len(v.arr)
	case KindObject:
		return len(v.obj)
	default:
		return 0
	}
}

// Interface converts the Value back into plain Go values
// (nil, bool, float64, string, []any, map[string]any).
func (v Value) Interface() any {
	switch v.kind {
	case KindBool:
		return v.b
	case KindNumber:
		return v.n
	case KindString:
		return v.s
	case KindArray:
		out := make([]any, len(v.arr))
		for i, item := range v.arr {
			out[i] = item.Interface()
		}
		return out
	case KindObject:
		out := make(map[string]any, len(v.obj))
		for k, f := range v.obj {
			out[k] = f.Interface()
		}
		return out
	default:
		return nil
	}
}

// Text renders scalars as their literal text and composites as compact JSON.
func (v Value) Text() string {
	switch v.kind {
	case KindString:
		return v.s
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindNumber:
		return strconv.FormatFloat(v.n, 'f', -1, 64)
	case KindNull:
		return "null"
	default:
		data, _ := json.Marshal(v)
		return string(data)
	}
}

// Equal reports deep equality.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindNull:
		return true
	case KindBool:
		return v.b == o.b
	case KindNumber:
		return v.n == o.n
	case KindString:
		return v.s == o.s
	case KindArray:
		if len(v.arr) != len(o.arr) {
			return false
		}
		for i := range v.arr {
			if !v.arr[i].Equal(o.arr[i]) {
				return false
			}
		}
		return true
	case KindObject:
		if len(v.obj) != len(o.obj) {
			return false
		}
		for k, f := range v.obj {
			g, ok := o.obj[k]
			if !ok || !f.Equal(g) {
				return false
			}
		}
		return true
	}
	return false
}

// ParseValue decodes JSON text into a Value.
func ParseValue(data []byte) (Value, error) {
	var v Value
	if err := json.Unmarshal(data, &v); err != nil {
		return Value{}, err
	}
	return v, nil
}

// ValueOf converts decoded JSON (or any JSON-marshalable Go value) into a Value.
func ValueOf(x any) (Value, error) {
	switch t := x.(type) {
	case nil:
		return Null(), nil
	case Value:
		return t, nil
	case bool:
		return Bool(t), nil
	case string:
		return String(t), nil
	case float64:
		return Number(t), nil
	case float32:
		return Number(float64(t)), nil
	case int:
		return Number(float64(t)), nil
	case int64:
		return Number(float64(t)), nil
	case json.Number:
		n, err := t.Float64()
		if err != nil {
			return Value{}, err
		}
		return Number(n), nil
	case []any:
		items := make([]Value, len(t))
		for i, item := range t {
			iv, err := ValueOf(item)
			if err != nil {
				return Value{}, err
			}
			items[i] = iv
		}
		return Value{kind: KindArray, arr: items}, nil
	case map[string]any:
		obj := make(map[string]Value, len(t))
		for k, item := range t {
			iv, err := ValueOf(item)
			if err != nil {
				return Value{}, err
			}
			obj[k] = iv
		}
		return Value{kind: KindObject, obj: obj}, nil
	default:
		data, err := json.Marshal(x)
		if err != nil {
			return Value{}, fmt.Errorf("convert %T: %w", x, err)
		}
		return ParseValue(data)
	}
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		if math.IsInf(v.n, 0) || math.IsNaN(v.n) {
			return nil, fmt.Errorf("unsupported number %v", v.n)
		}
	case KindArray:
		if v.arr == nil {
			return []byte("[]"), nil
		}
	case KindObject:
		var buf bytes.Buffer
		buf.WriteByte('{')
		for i, k := range v.Keys() {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, _ := json.Marshal(k)
			buf.Write(key)
			buf.WriteByte(':')
			field, err := v.obj[k].MarshalJSON()
			if err != nil {
				return nil, err
			}
			buf.Write(field)
		}
		buf.WriteByte('}')
		return buf.Bytes(), nil
	}
	return json.Marshal(v.Interface())
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ValueOf(raw)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}
