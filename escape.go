package sqltpl

import (
	"strings"

	"github.com/canonical/sqltpl/internal/expr"
)

// Escaper escapes text so that it can be placed between single quotes in a
// SQL string literal. The quotes are added by the compiler.
//
// The escaping rules depend on the database and on the connection settings,
// so an escaper backed by a live connection should be preferred where one is
// available. See the pgxescape package for PostgreSQL.
type Escaper = expr.Escaper

// EscaperFunc adapts an ordinary function to the Escaper interface.
type EscaperFunc func(s string) (string, error)

// EscapeString calls f(s).
func (f EscaperFunc) EscapeString(s string) (string, error) {
	return f(s)
}

// StandardEscaper escapes text following the SQL standard by doubling single
// quotes. It is correct for SQLite, and for PostgreSQL when
// standard_conforming_strings is on.
var StandardEscaper Escaper = EscaperFunc(func(s string) (string, error) {
	return strings.ReplaceAll(s, "'", "''"), nil
})

var mysqlReplacer = strings.NewReplacer(
	"\x00", `\0`,
	"\n", `\n`,
	"\r", `\r`,
	`\`, `\\`,
	`'`, `\'`,
	`"`, `\"`,
	"\x1a", `\Z`,
)

// MySQLEscaper escapes text with backslashes, the same way as the MySQL C
// API function mysql_real_escape_string does for single byte safe character
// sets. It must not be used with the NO_BACKSLASH_ESCAPES SQL mode.
var MySQLEscaper Escaper = EscaperFunc(func(s string) (string, error) {
	return mysqlReplacer.Replace(s), nil
})
