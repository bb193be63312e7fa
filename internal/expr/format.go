// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package expr

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/canonical/sqltpl/value"
)

const null = "NULL"

// formatter turns a single argument into SQL text according to the kind of
// the placeholder that consumed it.
type formatter struct {
	escaper Escaper
}

func (f *formatter) format(kind placeholderKind, v value.Value) (string, error) {
	switch kind {
	case kindGeneric:
		return f.formatScalar(v)
	case kindInt:
		return formatInt(v)
	case kindFloat:
		return formatFloat(v)
	case kindArray:
		return f.formatArray(v)
	case kindIdentifier:
		return formatIdentifier(v)
	}
	return "", fmt.Errorf("internal error: unknown placeholder kind %q", byte(kind))
}

// formatScalar formats a value according to its own type. Text is escaped
// and quoted.
func (f *formatter) formatScalar(v value.Value) (string, error) {
	switch v.Kind() {
	case value.KindNull:
		return null, nil
	case value.KindBool, value.KindInt:
		return formatInt(v)
	case value.KindFloat:
		return formatFloat(v)
	case value.KindText:
		escaped, err := f.escaper.EscapeString(v.AsText())
		if err != nil {
			return "", ErrEscape.becausef("cannot escape text: %w", err)
		}
		return "'" + escaped + "'", nil
	case value.KindList, value.KindKeyed:
		return "", notScalarError(v, "value")
	}
	return "", unsupportedError(v, "value")
}

// formatInt formats a value as an integer. Floats are truncated toward zero.
func formatInt(v value.Value) (string, error) {
	switch v.Kind() {
	case value.KindNull:
		return null, nil
	case value.KindBool:
		return formatBool(v.AsBool()), nil
	case value.KindInt:
		return strconv.FormatInt(v.AsInt(), 10), nil
	case value.KindFloat:
		n, err := truncate(v.AsFloat())
		if err != nil {
			return "", err
		}
		return strconv.FormatInt(n, 10), nil
	case value.KindText:
		s := strings.TrimSpace(v.AsText())
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return strconv.FormatInt(n, 10), nil
		}
		if fl, err := strconv.ParseFloat(s, 64); err == nil {
			n, err := truncate(fl)
			if err != nil {
				return "", err
			}
			return strconv.FormatInt(n, 10), nil
		}
		return "", ErrUnsupportedValue.becausef("cannot convert %s to integer", v)
	case value.KindList, value.KindKeyed:
		return "", notScalarError(v, "integer")
	}
	return "", unsupportedError(v, "integer")
}

// formatFloat formats a value as a floating point number in a locale
// independent decimal form.
func formatFloat(v value.Value) (string, error) {
	switch v.Kind() {
	case value.KindNull:
		return null, nil
	case value.KindBool:
		return formatBool(v.AsBool()), nil
	case value.KindInt:
		return strconv.FormatInt(v.AsInt(), 10), nil
	case value.KindFloat:
		return renderFloat(v.AsFloat())
	case value.KindText:
		fl, err := strconv.ParseFloat(strings.TrimSpace(v.AsText()), 64)
		if err != nil {
			return "", ErrUnsupportedValue.becausef("cannot convert %s to float", v)
		}
		return renderFloat(fl)
	case value.KindList, value.KindKeyed:
		return "", notScalarError(v, "float")
	}
	return "", unsupportedError(v, "float")
}

// formatIdentifier formats a single identifier or a list of identifiers
// separated by commas.
func formatIdentifier(v value.Value) (string, error) {
	switch v.Kind() {
	case value.KindList:
		ids := make([]string, v.Len())
		for i, elem := range v.Elems() {
			id, err := identifier(elem)
			if err != nil {
				return "", nested(err, fmt.Sprintf("element %d", i))
			}
			ids[i] = id
		}
		return strings.Join(ids, ", "), nil
	case value.KindKeyed:
		return "", ErrUnsupportedValue.becausef("cannot use %s as identifier list", v.Kind())
	}
	return identifier(v)
}

// identifier quotes a single identifier with backticks. A dotted name such
// as schema.table is quoted part by part.
func identifier(v value.Value) (string, error) {
	var name string
	switch v.Kind() {
	case value.KindText:
		name = v.AsText()
	case value.KindBool:
		name = formatBool(v.AsBool())
	case value.KindInt:
		name = strconv.FormatInt(v.AsInt(), 10)
	case value.KindFloat:
		s, err := renderFloat(v.AsFloat())
		if err != nil {
			return "", err
		}
		name = s
	case value.KindNull, value.KindList, value.KindKeyed:
		return "", notScalarError(v, "identifier")
	default:
		return "", unsupportedError(v, "identifier")
	}

	if !validIdentifier(name) {
		return "", ErrInvalidIdentifier.becausef("%q may only contain ASCII letters, digits, '-' and '_' separated by '.'", name)
	}
	return "`" + strings.ReplaceAll(name, ".", "`.`") + "`", nil
}

// formatArray formats a list as comma separated values, and a keyed array as
// comma separated `key` = value pairs.
func (f *formatter) formatArray(v value.Value) (string, error) {
	switch v.Kind() {
	case value.KindList:
		vals := make([]string, v.Len())
		for i, elem := range v.Elems() {
			s, err := f.formatScalar(elem)
			if err != nil {
				return "", nested(err, fmt.Sprintf("element %d", i))
			}
			vals[i] = s
		}
		return strings.Join(vals, ", "), nil
	case value.KindKeyed:
		pairs := make([]string, v.Len())
		for i, field := range v.Fields() {
			id, err := identifier(value.Text(field.Key))
			if err != nil {
				return "", nested(err, fmt.Sprintf("key %q", field.Key))
			}
			s, err := f.formatScalar(field.Value)
			if err != nil {
				return "", nested(err, fmt.Sprintf("key %q", field.Key))
			}
			pairs[i] = id + " = " + s
		}
		return strings.Join(pairs, ", "), nil
	}
	return "", ErrUnsupportedValue.becausef("need list or keyed array, got %s", v.Kind())
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// renderFloat renders a finite float in decimal notation using the fewest
// digits that represent it exactly.
func renderFloat(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "", ErrUnsupportedValue.becausef("%v has no SQL representation", f)
	}
	return strconv.FormatFloat(f, 'f', -1, 64), nil
}

// truncate converts a float to an integer, discarding the fractional part.
func truncate(f float64) (int64, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, ErrUnsupportedValue.becausef("%v has no integer representation", f)
	}
	t := math.Trunc(f)
	if t < math.MinInt64 || t >= math.MaxInt64 {
		return 0, ErrUnsupportedValue.becausef("%v overflows int64", f)
	}
	return int64(t), nil
}

// validIdentifier checks that every dot separated segment of name is a non
// empty run of ASCII letters, digits, hyphens and underscores.
func validIdentifier(name string) bool {
	for _, segment := range strings.Split(name, ".") {
		if segment == "" {
			return false
		}
		for i := 0; i < len(segment); i++ {
			c := segment[i]
			if !(c == '-' || c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9')) {
				return false
			}
		}
	}
	return true
}

func notScalarError(v value.Value, as string) error {
	return ErrNotScalar.becausef("cannot format %s as %s", v.Kind(), as)
}

func unsupportedError(v value.Value, as string) error {
	return ErrUnsupportedValue.becausef("cannot format %s as %s", v.Kind(), as)
}

// nested adds the location of a composite's element to an error raised while
// formatting it.
func nested(err error, where string) error {
	if e, ok := err.(Err); ok {
		return e.because(fmt.Errorf("%s: %w", where, e.Cause))
	}
	return fmt.Errorf("%s: %w", where, err)
}
