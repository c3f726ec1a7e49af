package hparams

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Kind is the JSON kind of a scalar value
type Kind int

const (
	Null Kind = iota
	Bool
	Int
	Float
	String
)

func (k Kind) String() string {
	switch k {
	case Bool:
		return "bool"
	case Int:
		return "int"
	case Float:
		return "float"
	case String:
		return "string"
	default:
		return "null"
	}
}

// Value is a single scalar hyperparameter. Integer and float literals are kept apart
// so that 4 and 4.0 format differently on a command line.
type Value struct {
	kind Kind
	b    bool
	i    int64
	f    float64
	s    string
}

// BoolValue returns a bool scalar
func BoolValue(b bool) Value { return Value{kind: Bool, b: b} }

// IntValue returns an integer scalar
func IntValue(i int64) Value { return Value{kind: Int, i: i} }

// FloatValue returns a float scalar
func FloatValue(f float64) Value { return Value{kind: Float, f: f} }

// StringValue returns a string scalar
func StringValue(s string) Value { return Value{kind: String, s: s} }

// NullValue returns the null scalar
func NullValue() Value { return Value{} }

// Kind returns the scalar kind
func (v Value) Kind() Kind { return v.kind }

// Float returns the value as a float64. Integers are converted; other kinds fail.
func (v Value) Float() (float64, error) {
	switch v.kind {
	case Float:
		return v.f, nil
	case Int:
		return float64(v.i), nil
	}
	return 0, fmt.Errorf("value of kind %s is not numeric", v.kind)
}

// Int returns the value as an int64. Floats with no fractional part are accepted.
func (v Value) Int() (int64, error) {
	switch v.kind {
	case Int:
		return v.i, nil
	case Float:
		if v.f == math.Trunc(v.f) {
			return int64(v.f), nil
		}
	}
	return 0, fmt.Errorf("value of kind %s is not an integer", v.kind)
}

// Bool returns the value as a bool
func (v Value) Bool() (bool, error) {
	if v.kind != Bool {
		return false, fmt.Errorf("value of kind %s is not a bool", v.kind)
	}
	return v.b, nil
}

// Interface returns the value as a plain Go value
func (v Value) Interface() interface{} {
	switch v.kind {
	case Bool:
		return v.b
	case Int:
		return v.i
	case Float:
		return v.f
	case String:
		return v.s
	default:
		return nil
	}
}

// String returns the value as the trainer expects it on its command line
func (v Value) String() string {
	return v.Python()
}

// Python renders the value as a Python literal: floats follow repr, booleans are
// True/False and null is None. Strings are returned verbatim.
func (v Value) Python() string {
	switch v.kind {
	case Bool:
		if v.b {
			return "True"
		}
		return "False"
	case Int:
		return strconv.FormatInt(v.i, 10)
	case Float:
		return PythonFloat(v.f)
	case String:
		return v.s
	default:
		return "None"
	}
}

// PythonFloat formats f the way Python's repr does: the shortest digits that round
// trip, a ".0" suffix for integral values and exponent form outside [1e-4, 1e16).
func PythonFloat(f float64) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}

	sci := strconv.FormatFloat(f, 'e', -1, 64)
	exp, err := strconv.Atoi(sci[strings.IndexByte(sci, 'e')+1:])
	if err == nil && f != 0 && (exp < -4 || exp >= 16) {
		return sci
	}

	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsAny(s, ".") {
		s += ".0"
	}
	return s
}

// scalarOf converts a decoded JSON value into a Value. Arrays and objects are not scalars.
func scalarOf(raw interface{}) (Value, bool) {
	switch x := raw.(type) {
	case nil:
		return NullValue(), true
	case bool:
		return BoolValue(x), true
	case string:
		return StringValue(x), true
	case float64:
		return FloatValue(x), true
	case map[string]interface{}, []interface{}:
		return Value{}, false
	case fmt.Stringer:
		return numberOf(x.String())
	}
	return Value{}, false
}

// numberOf keeps the literal's kind: anything with a fraction or exponent is a float
func numberOf(lit string) (Value, bool) {
	if !strings.ContainsAny(lit, ".eE") {
		if i, err := strconv.ParseInt(lit, 10, 64); err == nil {
			return IntValue(i), true
		}
	}
	f, err := strconv.ParseFloat(lit, 64)
	if err != nil {
		return Value{}, false
	}
	return FloatValue(f), true
}
