// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package expr

import (
	"bytes"
	"fmt"

	"github.com/canonical/sqltpl/value"
)

// Escaper escapes text so that it can be placed between single quotes in a
// SQL string literal.
type Escaper interface {
	EscapeString(s string) (string, error)
}

// CompileOptions controls a single compile.
type CompileOptions struct {
	// Escaper escapes the text values substituted into the query.
	Escaper Escaper
	// StrictSkip makes a skip value consumed outside of any conditional
	// block an error. Otherwise it drops the next block in the template.
	StrictSkip bool
	// StrictArgs makes it an error to pass more arguments than the template
	// has placeholders.
	StrictArgs bool
}

// CompiledQuery is a template with all its placeholders substituted.
type CompiledQuery struct {
	sql      string
	argsUsed int
}

// SQL returns the generated SQL string.
func (cq *CompiledQuery) SQL() string {
	return cq.sql
}

// ArgsUsed returns the number of arguments consumed by the compile.
func (cq *CompiledQuery) ArgsUsed() int {
	return cq.argsUsed
}

// compileState is the scratch state of one compile: the queue of arguments
// and the skip flag. It is created afresh by every call to Compile and
// passed down the walk over the parsed template, blocks included.
type compileState struct {
	opts CompileOptions
	args []any
	// next is the index of the first argument not yet consumed.
	next int
	// skipping is set when a placeholder receives the skip value. It is
	// reset at the end of every block.
	skipping bool
	f        formatter
}

// Compile substitutes the arguments into the placeholders of the parsed
// template, in order, and drops the conditional blocks that received the
// skip value.
func (pe *ParsedExpr) Compile(opts CompileOptions, args ...any) (cq *CompiledQuery, err error) {
	if opts.Escaper == nil {
		return nil, fmt.Errorf("internal error: no escaper")
	}

	st := &compileState{
		opts: opts,
		args: args,
		f:    formatter{escaper: opts.Escaper},
	}
	var b sqlBuilder
	if err := st.compileParts(pe.parts, &b, false); err != nil {
		return nil, err
	}

	if opts.StrictArgs && st.next < len(args) {
		return nil, ErrTooManyArguments.while("compiling template").becausef("template has %d placeholders, got %d arguments", pe.placeholders, len(args))
	}
	return &CompiledQuery{sql: b.getSQL(), argsUsed: st.next}, nil
}

func (st *compileState) compileParts(parts []queryPart, b *sqlBuilder, inBlock bool) error {
	for _, part := range parts {
		switch p := part.(type) {
		case *bypassPart:
			b.write(p.chunk)
		case *placeholderPart:
			s, err := st.substitute(p, inBlock)
			if err != nil {
				return err
			}
			b.write(s)
		case *blockPart:
			var inner sqlBuilder
			if err := st.compileParts(p.parts, &inner, true); err != nil {
				return err
			}
			if !st.skipping {
				b.write(inner.getSQL())
			}
			st.skipping = false
		default:
			return fmt.Errorf("internal error: unknown query part type %T", part)
		}
	}
	return nil
}

// substitute consumes the next argument and returns the text that replaces
// the placeholder.
func (st *compileState) substitute(p *placeholderPart, inBlock bool) (string, error) {
	if st.next >= len(st.args) {
		return "", ErrNotEnoughArguments.while(p.desc()).becausef("got %d arguments", len(st.args))
	}
	arg := st.args[st.next]
	st.next++

	if value.IsSkip(arg) {
		if !inBlock && st.opts.StrictSkip {
			return "", ErrSkipOutsideBlock.while(p.desc())
		}
		st.skipping = true
		return "", nil
	}
	if st.skipping {
		return "", nil
	}

	v, err := value.Of(arg)
	if err != nil {
		return "", ErrUnsupportedValue.while(p.desc()).because(err)
	}
	s, err := st.f.format(p.kind, v)
	if err != nil {
		if e, ok := err.(Err); ok {
			return "", e.while(p.desc())
		}
		return "", Err{While: p.desc(), Cause: err}
	}
	return s, nil
}

// sqlBuilder is used to generate SQL string piece by piece.
type sqlBuilder struct {
	buf bytes.Buffer
}

// write writes the SQL to the sqlBuilder.
func (b *sqlBuilder) write(sql string) {
	b.buf.WriteString(sql)
}

// getSQL returns the generated SQL string
func (b *sqlBuilder) getSQL() string {
	return b.buf.String()
}
