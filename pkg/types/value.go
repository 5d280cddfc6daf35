package types

import (
	"encoding/json"
	"math"
	"strconv"
)

// ValueKind identifies the dynamic type held by a Value
type ValueKind int

const (
	// KindUndefined marks a variable whose definition could not be resolved
	KindUndefined ValueKind = iota
	KindBool
	KindNumber
	KindString
)

// Value is a resolved variable value. The zero Value is undefined.
type Value struct {
	Kind   ValueKind
	Bool   bool
	Number float64
	String string
}

// Undefined returns the explicit undefined marker
func Undefined() Value { return Value{Kind: KindUndefined} }

// BoolValue wraps a boolean
func BoolValue(b bool) Value { return Value{Kind: KindBool, Bool: b} }

// NumberValue wraps a number
func NumberValue(n float64) Value { return Value{Kind: KindNumber, Number: n} }

// StringValue wraps a string
func StringValue(s string) Value { return Value{Kind: KindString, String: s} }

// IsUndefined reports whether v is the undefined marker
func (v Value) IsUndefined() bool { return v.Kind == KindUndefined }

// Truthy applies generic truthiness: false, 0, "" and undefined are false
func (v Value) Truthy() bool {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindNumber:
		return v.Number != 0 && !math.IsNaN(v.Number)
	case KindString:
		return v.String != ""
	default:
		return false
	}
}

// Text renders the value the way it is substituted into strings
func (v Value) Text() string {
	switch v.Kind {
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindNumber:
		return strconv.FormatFloat(v.Number, 'f', -1, 64)
	case KindString:
		return v.String
	default:
		return "undefined"
	}
}

// MarshalJSON renders undefined as null
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindBool:
		return json.Marshal(v.Bool)
	case KindNumber:
		return json.Marshal(v.Number)
	case KindString:
		return json.Marshal(v.String)
	default:
		return []byte("null"), nil
	}
}

// Environment is the flat variable environment consumed by conditions
type Environment map[string]Value

// Lookup returns the named value, or undefined when absent
func (e Environment) Lookup(name string) Value {
	if v, ok := e[name]; ok {
		return v
	}
	return Undefined()
}
