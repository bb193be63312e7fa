package expr

import (
	"errors"
	"math"
	"strings"

	. "gopkg.in/check.v1"

	"github.com/canonical/sqltpl/value"
)

type ExprInternalSuite struct{}

var _ = Suite(&ExprInternalSuite{})

func (s *ExprInternalSuite) TestAdvanceChar(c *C) {
	var p = NewParser()
	tests := []struct {
		input   string
		advance int
		char    rune
		line    int
		column  int
	}{
		{input: "", advance: 0, char: 0, line: 1, column: 1},
		{input: "abc", advance: 0, char: 'a', line: 1, column: 1},
		{input: "abc", advance: 2, char: 'c', line: 1, column: 3},
		{input: "abc", advance: 3, char: 0, line: 1, column: 4},
		{input: "ab\ncd", advance: 3, char: 'c', line: 2, column: 1},
		{input: "ab\ncd", advance: 4, char: 'd', line: 2, column: 2},
		{input: "a\n\nb", advance: 3, char: 'b', line: 3, column: 1},
		{input: "ñb", advance: 1, char: 'b', line: 1, column: 3},
	}
	for i, t := range tests {
		p.init(t.input)
		for j := 0; j < t.advance; j++ {
			p.advanceChar()
		}
		comment := Commentf("test %d: %q", i, t.input)
		c.Check(p.char, Equals, t.char, comment)
		c.Check(p.lineNum, Equals, t.line, comment)
		c.Check(p.colNum(), Equals, t.column, comment)
	}
}

func (s *ExprInternalSuite) TestKindOf(c *C) {
	for _, r := range "dfa#" {
		kind, ok := kindOf(r)
		c.Check(ok, Equals, true)
		c.Check(kind.String(), Equals, "?"+string(r))
	}
	for _, r := range "xD?{ 1" {
		kind, ok := kindOf(r)
		c.Check(ok, Equals, false)
		c.Check(kind, Equals, kindGeneric)
	}
	c.Check(kindGeneric.String(), Equals, "?")
}

func (s *ExprInternalSuite) TestPlaceholderPositions(c *C) {
	pe, err := NewParser().Parse("SELECT ?#\nFROM t WHERE {a = ?d}")
	c.Assert(err, IsNil)
	c.Assert(pe.parts, HasLen, 4)

	first := pe.parts[1].(*placeholderPart)
	c.Check(first.ordinal, Equals, 1)
	c.Check(first.desc(), Equals, "formatting ?# placeholder 1 at line 1, column 8")

	block := pe.parts[3].(*blockPart)
	c.Check(block.line, Equals, 2)
	c.Check(block.column, Equals, 14)
	second := block.parts[1].(*placeholderPart)
	c.Check(second.ordinal, Equals, 2)
	c.Check(second.desc(), Equals, "formatting ?d placeholder 2 at line 2, column 19")
}

func (s *ExprInternalSuite) TestParserIsReusable(c *C) {
	p := NewParser()
	_, err := p.Parse("{unclosed ?")
	c.Assert(err, NotNil)

	pe, err := p.Parse("x = ?")
	c.Assert(err, IsNil)
	c.Assert(pe.String(), Equals, "[Bypass[x = ] Placeholder[?]]")
	c.Assert(pe.Placeholders(), Equals, 1)
}

func (s *ExprInternalSuite) TestValidIdentifier(c *C) {
	valid := []string{"a", "users", "user_id", "my-table", "A1", "1", "db.users", "a.b.c", "_"}
	for _, name := range valid {
		c.Check(validIdentifier(name), Equals, true, Commentf("%q", name))
	}
	invalid := []string{"", ".", "a.", ".a", "a..b", "a b", "a`b", "a;b", "ä", "a'b", "a\"b", "a\nb"}
	for _, name := range invalid {
		c.Check(validIdentifier(name), Equals, false, Commentf("%q", name))
	}
}

func (s *ExprInternalSuite) TestTruncate(c *C) {
	tests := []struct {
		in  float64
		out int64
	}{
		{0, 0}, {0.99, 0}, {-0.99, 0}, {3.9, 3}, {-3.9, -3}, {1e15, 1000000000000000},
	}
	for _, t := range tests {
		n, err := truncate(t.in)
		c.Assert(err, IsNil)
		c.Check(n, Equals, t.out)
	}
	for _, f := range []float64{math.NaN(), math.Inf(-1), 1e19, -1e19} {
		_, err := truncate(f)
		c.Check(errors.Is(err, ErrUnsupportedValue), Equals, true, Commentf("%v", f))
	}
}

func (s *ExprInternalSuite) TestFormatScalarKinds(c *C) {
	f := formatter{escaper: upperEscaper{}}
	tests := []struct {
		kind     placeholderKind
		v        value.Value
		expected string
	}{
		{kindGeneric, value.Null(), "NULL"},
		{kindGeneric, value.Text("abc"), "'ABC'"},
		{kindGeneric, value.Int(-5), "-5"},
		{kindInt, value.Text("-12"), "-12"},
		{kindInt, value.Text("1e3"), "1000"},
		{kindInt, value.Bool(true), "1"},
		{kindFloat, value.Float(-0.25), "-0.25"},
		{kindFloat, value.Text(" 3 "), "3"},
		{kindFloat, value.Null(), "NULL"},
		{kindIdentifier, value.Int(7), "`7`"},
		{kindIdentifier, value.Bool(false), "`0`"},
		{kindIdentifier, value.Text("s.t"), "`s`.`t`"},
		{kindIdentifier, value.List(), ""},
		{kindArray, value.Keyed(), ""},
		{kindArray, value.Keyed(value.Field{Key: "a.b", Value: value.Text("x")}), "`a`.`b` = 'X'"},
	}
	for i, t := range tests {
		s, err := f.format(t.kind, t.v)
		c.Assert(err, IsNil, Commentf("test %d", i))
		c.Check(s, Equals, t.expected, Commentf("test %d", i))
	}

	_, err := f.format(placeholderKind('z'), value.Int(1))
	c.Assert(err, ErrorMatches, `internal error: unknown placeholder kind 'z'`)
}

func (s *ExprInternalSuite) TestNestedKeepsCode(c *C) {
	err := nested(notScalarError(value.List(), "value"), "element 3")
	c.Assert(errors.Is(err, ErrNotScalar), Equals, true)
	c.Assert(err.(Err).Cause, ErrorMatches, "element 3: cannot format list as value")

	err = nested(errors.New("boom"), "key \"a\"")
	c.Assert(err, ErrorMatches, `key "a": boom`)
}

func (s *ExprInternalSuite) TestErrorIs(c *C) {
	err := ErrNotScalar.while("formatting").becausef("details")
	c.Check(errors.Is(err, ErrNotScalar), Equals, true)
	c.Check(errors.Is(err, ErrInvalidIdentifier), Equals, false)
	c.Check(err.Error(), Equals, "[sqltpl] NotScalar while formatting: details")

	cause := errors.New("cause")
	err = ErrUnsupportedValue.because(cause)
	c.Check(errors.Is(err, cause), Equals, true)
	c.Check(errors.Unwrap(err), Equals, cause)

	c.Check(Err{}.Error(), Equals, "")
	c.Check(Err{Cause: cause}.Error(), Equals, "[sqltpl]: cause")
}

type upperEscaper struct{}

func (upperEscaper) EscapeString(s string) (string, error) {
	return strings.ToUpper(s), nil
}
