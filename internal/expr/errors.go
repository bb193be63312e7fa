// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package expr

import (
	"errors"
	"fmt"
	"strings"
)

/*
Error codes. Prefer comparing errors against the Err variables with
errors.Is rather than inspecting the code directly.
*/
type ErrCode string

const (
	ErrCodeUnknown            ErrCode = ""
	ErrCodeInvalidTemplate    ErrCode = "InvalidTemplate"
	ErrCodeNotEnoughArguments ErrCode = "NotEnoughArguments"
	ErrCodeNotScalar          ErrCode = "NotScalar"
	ErrCodeInvalidIdentifier  ErrCode = "InvalidIdentifier"
	ErrCodeUnsupportedValue   ErrCode = "UnsupportedValue"
	ErrCodeSkipOutsideBlock   ErrCode = "SkipOutsideBlock"
	ErrCodeTooManyArguments   ErrCode = "TooManyArguments"
	ErrCodeEscape             ErrCode = "Escape"
)

/*
Blank error variables used to detect error kinds:

	if errors.Is(err, expr.ErrNotScalar) {
		// Handle specific error.
	}

Errors returned by this package carry details about the placeholder that
failed, so they cannot be compared with ==. When compared by errors.Is they
compare the Cause and fall back on the Code.
*/
var (
	ErrInvalidTemplate    = Err{Code: ErrCodeInvalidTemplate, Cause: errors.New("invalid template")}
	ErrNotEnoughArguments = Err{Code: ErrCodeNotEnoughArguments, Cause: errors.New("not enough arguments")}
	ErrNotScalar          = Err{Code: ErrCodeNotScalar, Cause: errors.New("value is not scalar")}
	ErrInvalidIdentifier  = Err{Code: ErrCodeInvalidIdentifier, Cause: errors.New("invalid identifier")}
	ErrUnsupportedValue   = Err{Code: ErrCodeUnsupportedValue, Cause: errors.New("unsupported value")}
	ErrSkipOutsideBlock   = Err{Code: ErrCodeSkipOutsideBlock, Cause: errors.New("skip value used outside a conditional block")}
	ErrTooManyArguments   = Err{Code: ErrCodeTooManyArguments, Cause: errors.New("too many arguments")}
	ErrEscape             = Err{Code: ErrCodeEscape, Cause: errors.New("cannot escape text")}
)

// Err is the type of all errors returned by the template compiler.
type Err struct {
	Code  ErrCode
	While string
	Cause error
}

// Error implements error.
func (e Err) Error() string {
	if e == (Err{}) {
		return ""
	}
	var b strings.Builder
	b.WriteString("[sqltpl]")
	if e.Code != ErrCodeUnknown {
		b.WriteString(" ")
		b.WriteString(string(e.Code))
	}
	if e.While != "" {
		b.WriteString(" while ")
		b.WriteString(e.While)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Is implements the hidden interface used by errors.Is.
func (e Err) Is(other error) bool {
	if e.Cause != nil && errors.Is(e.Cause, other) {
		return true
	}
	err, ok := other.(Err)
	return ok && err.Code == e.Code
}

// Unwrap implements the hidden interface used by errors.Unwrap.
func (e Err) Unwrap() error {
	return e.Cause
}

func (e Err) while(while string) Err {
	e.While = while
	return e
}

func (e Err) because(cause error) Err {
	e.Cause = cause
	return e
}

func (e Err) becausef(format string, args ...any) Err {
	return e.because(fmt.Errorf(format, args...))
}

// errorAt wraps an error with line and column information.
func errorAt(err error, line int, column int, input string) error {
	if strings.ContainsRune(input, '\n') {
		return fmt.Errorf("line %d, column %d: %w", line, column, err)
	}
	return fmt.Errorf("column %d: %w", column, err)
}
