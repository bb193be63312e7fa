package sqltpl_test

import (
	. "gopkg.in/check.v1"

	"github.com/canonical/sqltpl"
)

type EscapeSuite struct{}

var _ = Suite(&EscapeSuite{})

func (s *EscapeSuite) TestStandardEscaper(c *C) {
	tests := []struct{ in, out string }{
		{"", ""},
		{"plain", "plain"},
		{"O'Brien", "O''Brien"},
		{"''", "''''"},
		{`back\slash "quoted"`, `back\slash "quoted"`},
		{"line\nbreak", "line\nbreak"},
	}
	for _, t := range tests {
		out, err := sqltpl.StandardEscaper.EscapeString(t.in)
		c.Assert(err, IsNil)
		c.Check(out, Equals, t.out, Commentf("%q", t.in))
	}
}

func (s *EscapeSuite) TestMySQLEscaper(c *C) {
	tests := []struct{ in, out string }{
		{"", ""},
		{"plain", "plain"},
		{"O'Brien", `O\'Brien`},
		{`say "hi"`, `say \"hi\"`},
		{`a\b`, `a\\b`},
		{"a\nb\rc", `a\nb\rc`},
		{"nul\x00", `nul\0`},
		{"ctrl\x1az", `ctrl\Zz`},
		{"ünïcødé ✓", "ünïcødé ✓"},
		{`\'`, `\\\'`},
	}
	for _, t := range tests {
		out, err := sqltpl.MySQLEscaper.EscapeString(t.in)
		c.Assert(err, IsNil)
		c.Check(out, Equals, t.out, Commentf("%q", t.in))
	}
}

func (s *EscapeSuite) TestEscaperFunc(c *C) {
	var e sqltpl.Escaper = sqltpl.EscaperFunc(func(s string) (string, error) {
		return "<" + s + ">", nil
	})
	out, err := e.EscapeString("x")
	c.Assert(err, IsNil)
	c.Assert(out, Equals, "<x>")
}
