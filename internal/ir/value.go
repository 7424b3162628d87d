package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf16"
)

// Value is a sealed interface for filter operands and result cells.
// Only Null, String, Int, Number, Bool, Date, List and Object implement it.
// Every value reports the DataType it carries so consumers can switch on
// the tag instead of inspecting an opaque any.
type Value interface {
	DataType() DataType
	value() // Sealed - only these types implement it
}

// Null is the explicit absence of a value (IS NULL operands, NULL cells).
type Null struct{}

func (Null) value() {}

// DataType implements Value.
func (Null) DataType() DataType { return DataTypeNull }

// MarshalJSON implements json.Marshaler for Null.
func (Null) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// String is a text value.
type String string

func (String) value() {}

// DataType implements Value.
func (String) DataType() DataType { return DataTypeString }

// Int is an integral number. Kept apart from Number so ids and counts
// never pass through float64.
type Int int64

func (Int) value() {}

// DataType implements Value.
func (Int) DataType() DataType { return DataTypeNumber }

// Number is a non-integral number (prices, amounts).
type Number float64

func (Number) value() {}

// DataType implements Value.
func (Number) DataType() DataType { return DataTypeNumber }

// Bool is a boolean value.
type Bool bool

func (Bool) value() {}

// DataType implements Value.
func (Bool) DataType() DataType { return DataTypeBoolean }

// Date is a calendar date or timestamp.
// Dates without a time-of-day component serialize as YYYY-MM-DD,
// everything else as RFC 3339 in UTC.
type Date time.Time

func (Date) value() {}

// DataType implements Value.
func (Date) DataType() DataType { return DataTypeDate }

// Time returns the underlying time.
func (d Date) Time() time.Time { return time.Time(d) }

// String formats the date in its wire form.
func (d Date) String() string {
	t := time.Time(d).UTC()
	if t.Equal(t.Truncate(24 * time.Hour)) {
		return t.Format(time.DateOnly)
	}
	return t.Format(time.RFC3339Nano)
}

// MarshalJSON implements json.Marshaler for Date.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler for Date.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("date must be a JSON string: %w", err)
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// List is an ordered list of values (IN / BETWEEN operands).
type List []Value

func (List) value() {}

// DataType implements Value.
func (List) DataType() DataType { return DataTypeList }

// Object maps column names to values. Result rows are Objects.
// Use SortedKeys() for deterministic iteration.
type Object map[string]Value

func (Object) value() {}

// DataType implements Value.
func (Object) DataType() DataType { return DataTypeObject }

// Row is a single result row keyed by column name.
type Row = Object

// NewDate creates a Date from a time.
func NewDate(t time.Time) Date {
	return Date(t)
}

// NewList creates a List from values.
func NewList(vals ...Value) List {
	return List(vals)
}

// Pair is a key-value pair for typed Object construction.
type Pair struct {
	Key   string
	Value Value
}

// O is a shorthand for Pair for ergonomic construction.
// Example: NewObject(O("o_id", Int(1)), O("o_status", String("Active")))
func O(key string, value Value) Pair {
	return Pair{Key: key, Value: value}
}

// NewObject creates an Object from typed key-value pairs.
func NewObject(pairs ...Pair) Object {
	obj := make(Object, len(pairs))
	for _, p := range pairs {
		obj[p.Key] = p.Value
	}
	return obj
}

// ParseDate accepts YYYY-MM-DD or RFC 3339 timestamps.
func ParseDate(s string) (Date, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return Date(t), nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD or RFC 3339", s)
	}
	return Date(t), nil
}

// Clone returns a deep copy of v. Scalars are returned as-is.
func Clone(v Value) Value {
	switch val := v.(type) {
	case List:
		if val == nil {
			return List(nil)
		}
		out := make(List, len(val))
		for i, elem := range val {
			out[i] = Clone(elem)
		}
		return out
	case Object:
		if val == nil {
			return Object(nil)
		}
		out := make(Object, len(val))
		for k, elem := range val {
			out[k] = Clone(elem)
		}
		return out
	default:
		return v
	}
}

// Native converts a Value to the Go type database/sql and encoding/json expect.
func Native(v Value) (any, error) {
	switch val := v.(type) {
	case nil, Null:
		return nil, nil
	case String:
		return string(val), nil
	case Int:
		return int64(val), nil
	case Number:
		return float64(val), nil
	case Bool:
		return bool(val), nil
	case Date:
		return val.Time(), nil
	case List:
		out := make([]any, len(val))
		for i, elem := range val {
			n, err := Native(elem)
			if err != nil {
				return nil, fmt.Errorf("list[%d]: %w", i, err)
			}
			out[i] = n
		}
		return out, nil
	case Object:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			n, err := Native(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			out[k] = n
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unknown Value type: %T", v)
	}
}

// FromNative converts a Go value (as produced by database/sql scanning or
// encoding/json decoding) to a Value.
func FromNative(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case []byte:
		return String(string(val)), nil
	case bool:
		return Bool(val), nil
	case int:
		return Int(val), nil
	case int32:
		return Int(val), nil
	case int64:
		return Int(val), nil
	case float32:
		return numberValue(float64(val)), nil
	case float64:
		return numberValue(val), nil
	case json.Number:
		return numberFromLiteral(val.String())
	case time.Time:
		return Date(val), nil
	case []any:
		out := make(List, len(val))
		for i, elem := range val {
			conv, err := FromNative(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			out[i] = conv
		}
		return out, nil
	case map[string]any:
		out := make(Object, len(val))
		for k, elem := range val {
			conv, err := FromNative(elem)
			if err != nil {
				return nil, fmt.Errorf("[%q]: %w", k, err)
			}
			out[k] = conv
		}
		return out, nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// numberValue keeps integral floats as Int so 3.0 and 3 compare equal.
func numberValue(f float64) Value {
	if f == math.Trunc(f) && math.Abs(f) < 1<<53 {
		return Int(int64(f))
	}
	return Number(f)
}

// numberFromLiteral parses a JSON number literal.
// Literals without a fraction or exponent become Int.
func numberFromLiteral(s string) (Value, error) {
	if !strings.ContainsAny(s, ".eE") {
		n, err := strconv.ParseInt(s, 10, 64)
		if err == nil {
			return Int(n), nil
		}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return numberValue(f), nil
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// CRITICAL: Go's sort.Strings uses UTF-8 which produces DIFFERENT order.
func (obj Object) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// compareKeysRFC8785 compares strings using UTF-16 code unit ordering
// as required by RFC 8785 (Canonical JSON).
func compareKeysRFC8785(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	minLen := min(len(a16), len(b16))
	for i := 0; i < minLen; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	// If all compared units are equal, shorter string comes first
	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}

// UnmarshalJSON implements json.Unmarshaler for Object.
func (obj *Object) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*obj = make(Object, len(raw))
	for k, v := range raw {
		val, err := UnmarshalValue(v)
		if err != nil {
			return fmt.Errorf("object key %q: %w", k, err)
		}
		(*obj)[k] = val
	}
	return nil
}

// UnmarshalJSON implements json.Unmarshaler for List.
func (l *List) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*l = make(List, len(raw))
	for i, v := range raw {
		val, err := UnmarshalValue(v)
		if err != nil {
			return fmt.Errorf("list index %d: %w", i, err)
		}
		(*l)[i] = val
	}
	return nil
}

// MarshalJSON implements json.Marshaler for Object with sorted keys (RFC 8785 ordering).
// NOTE: This is NOT canonical marshaling. Use MarshalCanonical for hashing.
func (obj Object) MarshalJSON() ([]byte, error) {
	if obj == nil {
		return []byte("null"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, k := range obj.SortedKeys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		keyBytes, err := json.Marshal(k)
		if err != nil {
			return nil, fmt.Errorf("marshal key %q: %w", k, err)
		}
		buf.Write(keyBytes)
		buf.WriteByte(':')

		valBytes, err := MarshalValue(obj[k])
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON implements json.Marshaler for List.
func (l List) MarshalJSON() ([]byte, error) {
	if l == nil {
		return []byte("null"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, elem := range l {
		if i > 0 {
			buf.WriteByte(',')
		}
		elemBytes, err := MarshalValue(elem)
		if err != nil {
			return nil, fmt.Errorf("list[%d]: %w", i, err)
		}
		buf.Write(elemBytes)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// MarshalValue marshals a Value to JSON bytes.
// A nil Value marshals as null.
func MarshalValue(v Value) ([]byte, error) {
	switch val := v.(type) {
	case nil, Null:
		return []byte("null"), nil
	case String:
		return json.Marshal(string(val))
	case Int:
		return json.Marshal(int64(val))
	case Number:
		if math.IsNaN(float64(val)) || math.IsInf(float64(val), 0) {
			return nil, fmt.Errorf("number %v has no JSON representation", float64(val))
		}
		return json.Marshal(float64(val))
	case Bool:
		return json.Marshal(bool(val))
	case Date:
		return val.MarshalJSON()
	case List:
		return val.MarshalJSON()
	case Object:
		return val.MarshalJSON()
	default:
		return nil, fmt.Errorf("unknown Value type: %T", v)
	}
}

// UnmarshalValue decodes an untagged JSON value, inferring its type.
// Strings stay strings (no date sniffing); integral number literals become Int.
func UnmarshalValue(data []byte) (Value, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty JSON value")
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, err
		}
		return String(s), nil

	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, err
		}
		return Bool(b), nil

	case 'n':
		return Null{}, nil

	case '[':
		var l List
		if err := json.Unmarshal(data, &l); err != nil {
			return nil, err
		}
		return l, nil

	case '{':
		var obj Object
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil, err
		}
		return obj, nil

	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return nil, err
		}
		return numberFromLiteral(n.String())
	}
}

// UnmarshalTyped decodes a JSON value according to its declared data type.
//
// Rules:
//   - null always decodes to Null (IS NULL / IS NOT NULL operands)
//   - arrays decode to a List whose elements use the scalar rule for dt,
//     so IN ["a","b"] with data_type string yields a List of String
//   - string: JSON strings only
//   - number: numbers, or strings holding a number literal
//   - date: strings in YYYY-MM-DD or RFC 3339
//   - boolean: booleans, or the strings "true"/"false"
//   - list or unknown: untyped inference
func UnmarshalTyped(data []byte, dt DataType) (Value, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return nil, fmt.Errorf("empty JSON value")
	}
	if data[0] == 'n' {
		return Null{}, nil
	}
	if data[0] == '[' {
		var raw []json.RawMessage
		if err := json.Unmarshal(data, &raw); err != nil {
			return nil, err
		}
		elemType := dt
		if dt == DataTypeList {
			elemType = ""
		}
		out := make(List, len(raw))
		for i, elem := range raw {
			v, err := UnmarshalTyped(elem, elemType)
			if err != nil {
				return nil, fmt.Errorf("list index %d: %w", i, err)
			}
			out[i] = v
		}
		return out, nil
	}

	switch dt {
	case DataTypeString:
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil, fmt.Errorf("expected string: %w", err)
		}
		return String(s), nil

	case DataTypeNumber:
		if data[0] == '"' {
			var s string
			if err := json.Unmarshal(data, &s); err != nil {
				return nil, err
			}
			return numberFromLiteral(strings.TrimSpace(s))
		}
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return nil, fmt.Errorf("expected number: %w", err)
		}
		return numberFromLiteral(n.String())

	case DataTypeDate:
		var d Date
		if err := json.Unmarshal(data, &d); err != nil {
			return nil, err
		}
		return d, nil

	case DataTypeBoolean:
		if data[0] == '"' {
			var s string
			if err := json.Unmarshal(data, &s); err != nil {
				return nil, err
			}
			b, err := strconv.ParseBool(s)
			if err != nil {
				return nil, fmt.Errorf("expected boolean, got %q", s)
			}
			return Bool(b), nil
		}
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return nil, fmt.Errorf("expected boolean: %w", err)
		}
		return Bool(b), nil

	default:
		return UnmarshalValue(data)
	}
}
