package ir

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"reflect"
	"slices"
	"strconv"
	"unicode/utf16"
)

// IRValue is a sealed interface representing a script-visible value.
// Only IRNull, IRBool, IRInt, IRFloat, IRString, IRArray and IRObject
// implement it.
//
// Attribute values are heterogeneous (scripts may store numbers with a
// fractional part or explicit nulls), so unlike a pure identity IR both
// floats and null are first-class variants here. NaN and infinities are
// never admitted by the constructors in this file.
type IRValue interface {
	irValue() // Sealed - only these types implement it
}

// IRNull represents a JSON null (or a JavaScript undefined) value.
type IRNull struct{}

func (IRNull) irValue() {}

// MarshalJSON implements json.Marshaler for IRNull.
func (IRNull) MarshalJSON() ([]byte, error) {
	return []byte("null"), nil
}

// IRBool represents a boolean value.
type IRBool bool

func (IRBool) irValue() {}

// IRInt represents an integral number.
type IRInt int64

func (IRInt) irValue() {}

// IRFloat represents a number with a fractional part (or one outside the
// int64 range). Always finite.
type IRFloat float64

func (IRFloat) irValue() {}

// MarshalJSON implements json.Marshaler for IRFloat using ES6 number text.
func (f IRFloat) MarshalJSON() ([]byte, error) {
	return []byte(FormatNumber(float64(f))), nil
}

// IRString represents a string value.
type IRString string

func (IRString) irValue() {}

// IRArray represents an ordered list of values.
type IRArray []IRValue

func (IRArray) irValue() {}

// IRObject represents a string-keyed map of values.
// Use SortedKeys() for deterministic iteration.
type IRObject map[string]IRValue

func (IRObject) irValue() {}

// IRPair represents a key-value pair for typed IRObject construction.
type IRPair struct {
	Key   string
	Value IRValue
}

// O is a shorthand for IRPair for ergonomic construction.
// Example: NewIRObject(O("status", IRString("draft")), O("priority", IRInt(2)))
func O(key string, value IRValue) IRPair {
	return IRPair{Key: key, Value: value}
}

// NewIRObject creates an IRObject from typed key-value pairs.
func NewIRObject(pairs ...IRPair) IRObject {
	obj := make(IRObject, len(pairs))
	for _, p := range pairs {
		obj[p.Key] = p.Value
	}
	return obj
}

// SortedKeys returns keys in RFC 8785 canonical order (UTF-16 code units).
// CRITICAL: Go's sort.Strings uses UTF-8 which produces DIFFERENT order.
func (obj IRObject) SortedKeys() []string {
	keys := make([]string, 0, len(obj))
	for k := range obj {
		keys = append(keys, k)
	}
	slices.SortFunc(keys, compareKeysRFC8785)
	return keys
}

// Clone returns a deep copy of the object. A nil object clones to nil.
func (obj IRObject) Clone() IRObject {
	if obj == nil {
		return nil
	}
	out := make(IRObject, len(obj))
	for k, v := range obj {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v IRValue) IRValue {
	switch val := v.(type) {
	case IRObject:
		return val.Clone()
	case IRArray:
		out := make(IRArray, len(val))
		for i, elem := range val {
			out[i] = cloneValue(elem)
		}
		return out
	default:
		return v
	}
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

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	default:
		return 0
	}
}

// MarshalJSON implements json.Marshaler for IRObject with sorted keys.
// NOTE: This is NOT canonical marshaling (HTML characters are escaped and
// strings are not normalized). Use MarshalCanonical for hashing and storage.
func (obj IRObject) MarshalJSON() ([]byte, error) {
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

		valBytes, err := MarshalIRValue(obj[k])
		if err != nil {
			return nil, fmt.Errorf("marshal value for key %q: %w", k, err)
		}
		buf.Write(valBytes)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// MarshalJSON implements json.Marshaler for IRArray.
func (arr IRArray) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, elem := range arr {
		if i > 0 {
			buf.WriteByte(',')
		}
		elemBytes, err := MarshalIRValue(elem)
		if err != nil {
			return nil, fmt.Errorf("array[%d]: %w", i, err)
		}
		buf.Write(elemBytes)
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// MarshalIRValue marshals an IRValue to JSON bytes.
// A nil interface is encoded as null.
func MarshalIRValue(v IRValue) ([]byte, error) {
	switch val := v.(type) {
	case nil, IRNull:
		return []byte("null"), nil
	case IRBool:
		return json.Marshal(bool(val))
	case IRInt:
		return json.Marshal(int64(val))
	case IRFloat:
		return val.MarshalJSON()
	case IRString:
		return json.Marshal(string(val))
	case IRArray:
		return val.MarshalJSON()
	case IRObject:
		return val.MarshalJSON()
	default:
		return nil, fmt.Errorf("unknown IRValue type: %T", v)
	}
}

// UnmarshalJSON implements json.Unmarshaler for IRObject.
func (obj *IRObject) UnmarshalJSON(data []byte) error {
	v, err := ParseJSON(data)
	if err != nil {
		return err
	}
	o, ok := v.(IRObject)
	if !ok {
		return fmt.Errorf("expected JSON object, got %T", v)
	}
	*obj = o
	return nil
}

// UnmarshalJSON implements json.Unmarshaler for IRArray.
func (arr *IRArray) UnmarshalJSON(data []byte) error {
	v, err := ParseJSON(data)
	if err != nil {
		return err
	}
	a, ok := v.(IRArray)
	if !ok {
		return fmt.Errorf("expected JSON array, got %T", v)
	}
	*arr = a
	return nil
}

// ParseJSON decodes JSON into an IRValue.
// Integral numbers that fit int64 become IRInt; every other number becomes
// IRFloat. This keeps large integers exact (no float64 round trip).
func ParseJSON(data []byte) (IRValue, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, fmt.Errorf("unexpected trailing data after JSON value")
	}
	return FromAny(raw)
}

// FromAny converts a plain Go value into an IRValue.
//
// Conversion rules:
//   - nil → IRNull
//   - bool → IRBool
//   - all integer kinds → IRInt (uint64 above MaxInt64 → IRFloat)
//   - float32/float64 → IRInt when integral and within ±2^53, else IRFloat;
//     NaN and ±Inf are rejected
//   - json.Number → IRInt when it parses as int64, else IRFloat
//   - string → IRString
//   - slices/arrays → IRArray, string-keyed maps → IRObject
//   - IRValue values pass through unchanged
//
// Reflection handles typed containers ([]string, map[string]int, ...) that
// interpreted Go scripts produce.
func FromAny(v any) (IRValue, error) {
	switch val := v.(type) {
	case nil:
		return IRNull{}, nil
	case IRValue:
		return val, nil
	case bool:
		return IRBool(val), nil
	case string:
		return IRString(val), nil
	case int:
		return IRInt(val), nil
	case int64:
		return IRInt(val), nil
	case int32:
		return IRInt(val), nil
	case float64:
		return fromFloat(val)
	case float32:
		return fromFloat(float64(val))
	case json.Number:
		if n, err := val.Int64(); err == nil {
			return IRInt(n), nil
		}
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("invalid number %q: %w", val.String(), err)
		}
		return fromFloat(f)
	case []any:
		arr := make(IRArray, len(val))
		for i, elem := range val {
			irElem, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = irElem
		}
		return arr, nil
	case map[string]any:
		obj := make(IRObject, len(val))
		for k, elem := range val {
			irElem, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = irElem
		}
		return obj, nil
	}
	return fromReflect(reflect.ValueOf(v))
}

// maxSafeInteger is 2^53, the largest integer a float64 represents exactly.
const maxSafeInteger = 1 << 53

func fromFloat(f float64) (IRValue, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, fmt.Errorf("non-finite number %v is not a valid value", f)
	}
	if f == math.Trunc(f) && math.Abs(f) <= maxSafeInteger {
		return IRInt(int64(f)), nil
	}
	return IRFloat(f), nil
}

func fromReflect(rv reflect.Value) (IRValue, error) {
	switch rv.Kind() {
	case reflect.Invalid:
		return IRNull{}, nil
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return IRNull{}, nil
		}
		return fromReflect(rv.Elem())
	case reflect.Bool:
		return IRBool(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return IRInt(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return IRFloat(float64(u)), nil
		}
		return IRInt(int64(u)), nil
	case reflect.Float32, reflect.Float64:
		return fromFloat(rv.Float())
	case reflect.String:
		return IRString(rv.String()), nil
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return IRNull{}, nil
		}
		arr := make(IRArray, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			elem, err := fromReflect(rv.Index(i))
			if err != nil {
				return nil, fmt.Errorf("array[%d]: %w", i, err)
			}
			arr[i] = elem
		}
		return arr, nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, fmt.Errorf("unsupported map key type: %s", rv.Type().Key())
		}
		if rv.IsNil() {
			return IRNull{}, nil
		}
		obj := make(IRObject, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := iter.Key().String()
			elem, err := fromReflect(iter.Value())
			if err != nil {
				return nil, fmt.Errorf("object[%q]: %w", k, err)
			}
			obj[k] = elem
		}
		return obj, nil
	default:
		return nil, fmt.Errorf("unsupported type: %s", rv.Type())
	}
}

// ToAny converts an IRValue to plain Go values for handing to a guest:
// IRNull → nil, IRInt → int64, IRFloat → float64, IRArray → []any,
// IRObject → map[string]any. Containers are always fresh copies.
func ToAny(v IRValue) any {
	switch val := v.(type) {
	case nil, IRNull:
		return nil
	case IRBool:
		return bool(val)
	case IRInt:
		return int64(val)
	case IRFloat:
		return float64(val)
	case IRString:
		return string(val)
	case IRArray:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToAny(elem)
		}
		return out
	case IRObject:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = ToAny(elem)
		}
		return out
	default:
		return nil
	}
}

// Text coerces a script result to display text, the rule used for layout
// script values: null → ""; string → itself; integer → decimal; float →
// ES6 number text; bool → "true"/"false"; arrays and objects → "".
func Text(v IRValue) string {
	switch val := v.(type) {
	case IRString:
		return string(val)
	case IRInt:
		return strconv.FormatInt(int64(val), 10)
	case IRFloat:
		return FormatNumber(float64(val))
	case IRBool:
		if val {
			return "true"
		}
		return "false"
	default:
		return ""
	}
}

// FormatNumber renders a float64 the way ECMAScript Number.prototype.toString
// does (the number form RFC 8785 mandates): plain decimal notation for
// magnitudes in [1e-6, 1e21), exponent notation otherwise. Non-finite values
// render as "null", matching JSON.stringify.
func FormatNumber(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "null"
	}
	if f == 0 {
		return "0"
	}
	abs := math.Abs(f)
	if abs >= 1e-6 && abs < 1e21 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	s := strconv.FormatFloat(f, 'e', -1, 64)
	// Go writes e+07 / e-07; ECMAScript writes e+7 / e-7.
	mant, exp, ok := cutExponent(s)
	if !ok {
		return s
	}
	sign := exp[0]
	digits := exp[1:]
	for len(digits) > 1 && digits[0] == '0' {
		digits = digits[1:]
	}
	return mant + "e" + string(sign) + digits
}

func cutExponent(s string) (mant, exp string, ok bool) {
	i := bytes.IndexByte([]byte(s), 'e')
	if i < 0 || i+2 > len(s) {
		return "", "", false
	}
	return s[:i], s[i+1:], true
}
