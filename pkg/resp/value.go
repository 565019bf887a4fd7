package resp

import (
	"bytes"
	"math"
	"strconv"
)

// Value is a RESP protocol value.
//
// The set of implementations is closed; callers switch on the concrete type.
type Value interface {
	respValue()
}

// SimpleString is a "+" line. It must not contain CR or LF.
type SimpleString string

// SimpleError is a "-" line. It must not contain CR or LF.
type SimpleError string

// Integer is a ":" signed 64-bit integer.
type Integer int64

// BulkString is a "$" length-prefixed binary-safe string.
type BulkString []byte

// Array is a "*" counted sequence of values.
type Array []Value

// Null is the absent value. It is written as the null bulk string.
type Null struct{}

// Boolean is a RESP3 "#" boolean.
type Boolean bool

// Double is a RESP3 "," floating point number.
type Double float64

func (SimpleString) respValue() {}
func (SimpleError) respValue()  {}
func (Integer) respValue()      {}
func (BulkString) respValue()   {}
func (Array) respValue()        {}
func (Null) respValue()         {}
func (Boolean) respValue()      {}
func (Double) respValue()       {}

// Commonly used replies.
var (
	OK   Value = SimpleString("OK")
	PONG Value = SimpleString("PONG")
)

// Errorf returns a SimpleError. Line breaks in the message are replaced by
// spaces so the result is always encodable.
func Errorf(msg string) SimpleError {
	return SimpleError(replaceLineBreaks(msg))
}

// Bulk returns a BulkString holding s.
func Bulk(s string) BulkString {
	return BulkString(s)
}

// Text returns the textual content of a string-like value.
// Integers are rendered in decimal. ok is false for any other type.
func Text(v Value) (s string, ok bool) {
	switch t := v.(type) {
	case BulkString:
		return string(t), true
	case SimpleString:
		return string(t), true
	case Integer:
		return strconv.FormatInt(int64(t), 10), true
	default:
		return "", false
	}
}

// Equal reports whether a and b are structurally equal.
//
// Nil and empty BulkString/Array compare equal, and NaN equals NaN, so
// Equal(v, decode(encode(v))) holds for every encodable v.
func Equal(a, b Value) bool {
	switch x := a.(type) {
	case SimpleString:
		y, ok := b.(SimpleString)
		return ok && x == y
	case SimpleError:
		y, ok := b.(SimpleError)
		return ok && x == y
	case Integer:
		y, ok := b.(Integer)
		return ok && x == y
	case BulkString:
		y, ok := b.(BulkString)
		return ok && bytes.Equal(x, y)
	case Null:
		_, ok := b.(Null)
		return ok
	case Boolean:
		y, ok := b.(Boolean)
		return ok && x == y
	case Double:
		y, ok := b.(Double)
		if !ok {
			return false
		}
		if math.IsNaN(float64(x)) {
			return math.IsNaN(float64(y))
		}
		return x == y
	case Array:
		y, ok := b.(Array)
		if !ok || len(x) != len(y) {
			return false
		}
		for i := range x {
			if !Equal(x[i], y[i]) {
				return false
			}
		}
		return true
	default:
		return a == nil && b == nil
	}
}

func replaceLineBreaks(s string) string {
	if !containsLineBreak(s) {
		return s
	}
	b := []byte(s)
	for i, c := range b {
		if c == '\r' || c == '\n' {
			b[i] = ' '
		}
	}
	return string(b)
}

func containsLineBreak(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] == '\r' || s[i] == '\n' {
			return true
		}
	}
	return false
}
