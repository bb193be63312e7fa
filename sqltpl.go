// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqltpl

import (
	"context"
	"log/slog"

	"github.com/canonical/sqltpl/internal/expr"
	"github.com/canonical/sqltpl/value"
)

// Err is the type of the errors returned when a template cannot be parsed or
// compiled. Use errors.Is with the Err variables below to tell them apart.
type Err = expr.Err

// ErrCode identifies the kind of an Err.
type ErrCode = expr.ErrCode

var (
	// ErrInvalidTemplate is returned when a template is malformed: an unknown
	// placeholder suffix, a nested or unclosed conditional block, or a stray
	// closing brace.
	ErrInvalidTemplate = expr.ErrInvalidTemplate
	// ErrNotEnoughArguments is returned when a placeholder has no argument
	// left to consume.
	ErrNotEnoughArguments = expr.ErrNotEnoughArguments
	// ErrNotScalar is returned when a placeholder that needs a scalar
	// receives a list or keyed array, or an identifier receives NULL.
	ErrNotScalar = expr.ErrNotScalar
	// ErrInvalidIdentifier is returned when an identifier contains
	// characters other than ASCII letters, digits, '-', '_' and separating
	// dots.
	ErrInvalidIdentifier = expr.ErrInvalidIdentifier
	// ErrUnsupportedValue is returned when an argument cannot be formatted
	// for its placeholder.
	ErrUnsupportedValue = expr.ErrUnsupportedValue
	// ErrSkipOutsideBlock is returned in strict skip mode when the skip value
	// is passed to a placeholder outside of a conditional block.
	ErrSkipOutsideBlock = expr.ErrSkipOutsideBlock
	// ErrTooManyArguments is returned in strict argument mode when arguments
	// are left over after compiling.
	ErrTooManyArguments = expr.ErrTooManyArguments
	// ErrEscape is returned when the escaper fails to escape a text value.
	// The escaper's own error is kept as the cause.
	ErrEscape = expr.ErrEscape
)

// Skip returns the sentinel value that drops the conditional block it is
// passed to. See the package documentation.
func Skip() value.Value {
	return value.Skip()
}

// Config configures a Compiler. The zero value is ready to use.
type Config struct {
	// Escaper escapes text values. MySQLEscaper is used if nil.
	Escaper Escaper
	// CacheSize is the number of parsed templates to keep. Zero selects the
	// default size and a negative value disables the cache.
	CacheSize int
	// StrictSkip rejects the skip value outside of conditional blocks with
	// ErrSkipOutsideBlock.
	StrictSkip bool
	// StrictArgs rejects unused arguments with ErrTooManyArguments.
	StrictArgs bool
	// Logger receives debug messages. Nothing is logged if nil.
	Logger *slog.Logger
}

// Compiler compiles templates into SQL. It is safe for concurrent use.
type Compiler struct {
	opts   expr.CompileOptions
	cache  *templateCache
	logger *slog.Logger
}

// New returns a Compiler configured by cfg.
func New(cfg Config) (*Compiler, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	escaper := cfg.Escaper
	if escaper == nil {
		escaper = MySQLEscaper
	}
	cache, err := newTemplateCache(cfg.CacheSize, logger)
	if err != nil {
		return nil, err
	}
	return &Compiler{
		opts: expr.CompileOptions{
			Escaper:    escaper,
			StrictSkip: cfg.StrictSkip,
			StrictArgs: cfg.StrictArgs,
		},
		cache:  cache,
		logger: logger,
	}, nil
}

// Template is a parsed template ready to be compiled with arguments. A
// template can be compiled any number of times, concurrently.
type Template struct {
	pe *expr.ParsedExpr
	c  *Compiler
}

// Prepare parses text into a Template. The parsed form is kept in the
// compiler's cache.
func (c *Compiler) Prepare(text string) (*Template, error) {
	pe, err := c.cache.parse(text)
	if err != nil {
		return nil, err
	}
	return &Template{pe: pe, c: c}, nil
}

// MustPrepare is the same as [Compiler.Prepare] except that it panics on
// error.
func (c *Compiler) MustPrepare(text string) *Template {
	t, err := c.Prepare(text)
	if err != nil {
		panic(err)
	}
	return t
}

// Compile parses text and substitutes args into its placeholders.
func (c *Compiler) Compile(text string, args ...any) (string, error) {
	t, err := c.Prepare(text)
	if err != nil {
		return "", err
	}
	return t.Compile(args...)
}

// Compile substitutes args into the placeholders of the template, in order,
// and returns the resulting SQL.
func (t *Template) Compile(args ...any) (string, error) {
	cq, err := t.pe.Compile(t.c.opts, args...)
	if err != nil {
		return "", err
	}
	if t.c.logger.Enabled(context.Background(), slog.LevelDebug) {
		hits, misses := t.c.cache.stats()
		t.c.logger.Debug("compiled template",
			"template", t.pe.Source(),
			"args", len(args),
			"args_used", cq.ArgsUsed(),
			"cache_hits", hits,
			"cache_misses", misses,
		)
	}
	return cq.SQL(), nil
}

// Placeholders returns the number of placeholders in the template.
func (t *Template) Placeholders() int {
	return t.pe.Placeholders()
}

// String returns the source text of the template.
func (t *Template) String() string {
	return t.pe.Source()
}

var defaultCompiler = mustNew(Config{})

func mustNew(cfg Config) *Compiler {
	c, err := New(cfg)
	if err != nil {
		panic(err)
	}
	return c
}

// Compile compiles text with args using MySQLEscaper and the default
// settings.
//
//	sql, err := sqltpl.Compile("SELECT ?# FROM users WHERE id = ?d{ AND block = ?d}",
//		[]string{"name", "email"}, 2, sqltpl.Skip())
//	// SELECT `name`, `email` FROM users WHERE id = 2
func Compile(text string, args ...any) (string, error) {
	return defaultCompiler.Compile(text, args...)
}
