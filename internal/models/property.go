package models

import (
	"encoding/json"
	"fmt"
)

// PropertyKind identifies the variant held by a PropertyValue.
type PropertyKind int

const (
	// KindNull indicates no value (cleared or never fetched)
	KindNull PropertyKind = iota
	// KindBool holds a boolean
	KindBool
	// KindNumber holds a float64 (Alpaca transports all numbers as JSON numbers)
	KindNumber
	// KindString holds a string
	KindString
	// KindArray holds a list of PropertyValues
	KindArray
)

// PropertyValue is a tagged union for device telemetry values. Consumers
// switch on Kind instead of type-asserting interface{} payloads.
type PropertyValue struct {
	kind PropertyKind
	b    bool
	n    float64
	s    string
	a    []PropertyValue
}

// Null returns the null property value.
func Null() PropertyValue { return PropertyValue{kind: KindNull} }

// Bool wraps a boolean as a PropertyValue.
func Bool(v bool) PropertyValue { return PropertyValue{kind: KindBool, b: v} }

// Number wraps a float64 as a PropertyValue.
func Number(v float64) PropertyValue { return PropertyValue{kind: KindNumber, n: v} }

// String wraps a string as a PropertyValue.
func String(v string) PropertyValue { return PropertyValue{kind: KindString, s: v} }

// Array wraps a slice of PropertyValues.
func Array(vs ...PropertyValue) PropertyValue {
	return PropertyValue{kind: KindArray, a: vs}
}

// FromAny converts a decoded JSON value into a PropertyValue.
// Unrecognized types map to their string representation.
func FromAny(v interface{}) PropertyValue {
	switch t := v.(type) {
	case nil:
		return Null()
	case bool:
		return Bool(t)
	case float64:
		return Number(t)
	case int:
		return Number(float64(t))
	case string:
		return String(t)
	case []interface{}:
		items := make([]PropertyValue, 0, len(t))
		for _, it := range t {
			items = append(items, FromAny(it))
		}
		return Array(items...)
	default:
		return String(fmt.Sprintf("%v", t))
	}
}

// Kind returns the variant tag.
func (p PropertyValue) Kind() PropertyKind { return p.kind }

// IsNull reports whether the value is the null variant.
func (p PropertyValue) IsNull() bool { return p.kind == KindNull }

// AsBool returns the boolean payload. ok is false for other variants.
func (p PropertyValue) AsBool() (v bool, ok bool) { return p.b, p.kind == KindBool }

// AsNumber returns the numeric payload. ok is false for other variants.
func (p PropertyValue) AsNumber() (v float64, ok bool) { return p.n, p.kind == KindNumber }

// AsString returns the string payload. ok is false for other variants.
func (p PropertyValue) AsString() (v string, ok bool) { return p.s, p.kind == KindString }

// AsArray returns the array payload. ok is false for other variants.
func (p PropertyValue) AsArray() (v []PropertyValue, ok bool) { return p.a, p.kind == KindArray }

// Interface returns the value as a plain Go value for JSON encoding.
func (p PropertyValue) Interface() interface{} {
	switch p.kind {
	case KindBool:
		return p.b
	case KindNumber:
		return p.n
	case KindString:
		return p.s
	case KindArray:
		items := make([]interface{}, 0, len(p.a))
		for _, it := range p.a {
			items = append(items, it.Interface())
		}
		return items
	default:
		return nil
	}
}

// MarshalJSON encodes the value as its plain JSON representation.
func (p PropertyValue) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.Interface())
}

// UnmarshalJSON decodes any JSON value into the matching variant.
func (p *PropertyValue) UnmarshalJSON(data []byte) error {
	var raw interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = FromAny(raw)
	return nil
}

// String implements fmt.Stringer for logging.
func (p PropertyValue) String() string {
	return fmt.Sprintf("%v", p.Interface())
}
