// Package value defines the tagged argument values consumed by template
// placeholders, and the conversion of ordinary Go values into them.
package value

import (
	"fmt"
	"strconv"
	"strings"
)

// Kind is the shape of a Value.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindFloat
	KindText
	// KindList is a sequential array, rendered as a list of values.
	KindList
	// KindKeyed is an associative array, rendered as key = value pairs.
	KindKeyed
	// KindSkip is the sentinel asking for the enclosing conditional block to
	// be dropped.
	KindSkip
)

func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindText:
		return "text"
	case KindList:
		return "list"
	case KindKeyed:
		return "keyed array"
	case KindSkip:
		return "skip"
	default:
		return "unknown"
	}
}

// Value is a single template argument. The zero Value is Null.
type Value struct {
	kind   Kind
	b      bool
	i      int64
	f      float64
	s      string
	list   []Value
	fields []Field
}

// Field is one key/value pair of a keyed Value.
type Field struct {
	Key   string
	Value Value
}

// Null returns the SQL NULL value.
func Null() Value { return Value{kind: KindNull} }

// Bool returns a boolean value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Int returns an integer value.
func Int(i int64) Value { return Value{kind: KindInt, i: i} }

// Float returns a floating point value.
func Float(f float64) Value { return Value{kind: KindFloat, f: f} }

// Text returns a text value.
func Text(s string) Value { return Value{kind: KindText, s: s} }

// List returns a sequential array of values.
func List(vs ...Value) Value { return Value{kind: KindList, list: vs} }

// Keyed returns an associative array. The order of the fields is kept.
func Keyed(fs ...Field) Value { return Value{kind: KindKeyed, fields: fs} }

var skip = Value{kind: KindSkip}

// Skip returns the sentinel value. A placeholder receiving it causes the
// conditional block it sits in to be left out of the compiled query.
func Skip() Value { return skip }

// IsSkip reports whether arg is the skip sentinel.
func IsSkip(arg any) bool {
	v, ok := arg.(Value)
	return ok && v.kind == KindSkip
}

// Kind returns the kind of the value.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether v is Null.
func (v Value) IsNull() bool { return v.kind == KindNull }

// IsScalar reports whether v is a bool, number or text.
func (v Value) IsScalar() bool {
	switch v.kind {
	case KindBool, KindInt, KindFloat, KindText:
		return true
	}
	return false
}

// IsComposite reports whether v is a list or a keyed array.
func (v Value) IsComposite() bool {
	return v.kind == KindList || v.kind == KindKeyed
}

// AsBool returns the boolean held by v. It is false unless v is a bool.
func (v Value) AsBool() bool { return v.b }

// AsInt returns the integer held by v. It is zero unless v is an int.
func (v Value) AsInt() int64 { return v.i }

// AsFloat returns the float held by v. It is zero unless v is a float.
func (v Value) AsFloat() float64 { return v.f }

// AsText returns the text held by v. It is empty unless v is text.
func (v Value) AsText() string { return v.s }

// Elems returns the elements of a list.
func (v Value) Elems() []Value { return v.list }

// Fields returns the fields of a keyed array.
func (v Value) Fields() []Field { return v.fields }

// Len returns the number of elements or fields of a composite value.
func (v Value) Len() int {
	switch v.kind {
	case KindList:
		return len(v.list)
	case KindKeyed:
		return len(v.fields)
	}
	return 0
}

// String returns a representation of the value for debugging and error
// messages. It is not SQL.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return "null"
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindText:
		return strconv.Quote(v.s)
	case KindList:
		elems := make([]string, len(v.list))
		for i, e := range v.list {
			elems[i] = e.String()
		}
		return "[" + strings.Join(elems, " ") + "]"
	case KindKeyed:
		fields := make([]string, len(v.fields))
		for i, f := range v.fields {
			fields[i] = fmt.Sprintf("%s:%s", f.Key, f.Value)
		}
		return "{" + strings.Join(fields, " ") + "}"
	case KindSkip:
		return "<skip>"
	}
	return "<invalid>"
}
