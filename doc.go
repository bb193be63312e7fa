/*
Package sqltpl compiles SQL templates with typed placeholders and conditional
blocks into plain SQL strings.

A template is SQL text with placeholders. Each placeholder consumes the next
argument, in order, and is replaced by the argument formatted according to
the placeholder type:

	?	any scalar: NULL, 1/0 for booleans, numbers, or quoted and escaped text
	?d	integer, floats are truncated toward zero
	?f	floating point number
	?a	list of values, or keyed array rendered as `key` = value pairs
	?#	identifier, or list of identifiers, quoted with backticks

For example:

	sqltpl.Compile("SELECT ?# FROM users WHERE user_id = ?d AND name = ?",
		[]string{"name", "email"}, 2, "Jack")

returns

	SELECT `name`, `email` FROM users WHERE user_id = 2 AND name = 'Jack'

# Arguments

Arguments are ordinary Go values. Booleans, integers, floats, strings, byte
slices, times and driver.Valuer implementations are scalars, nil is NULL.
Slices and arrays are lists. Maps with string keys are keyed arrays ordered
by key; use [value.Pairs] to choose the order. Structs are keyed arrays of
their fields with a `db` tag:

	type User struct {
		Name  string `db:"name"`
		Email string `db:"email,omitempty"`
	}

	sqltpl.Compile("UPDATE users SET ?a WHERE user_id = ?d", User{Name: "Jack"}, 7)
	// UPDATE users SET `name` = 'Jack' WHERE user_id = 7

The [value] package also has constructors for building values directly.

# Conditional blocks

Text between braces is a conditional block. When a placeholder inside a
block receives the value returned by [Skip], the whole block is left out of
the result. The placeholders of a dropped block still consume their
arguments:

	sqltpl.Compile("SELECT name FROM users WHERE user_id = ?d{ AND block = ?d}", 1, sqltpl.Skip())
	// SELECT name FROM users WHERE user_id = 1

Blocks cannot be nested.

# Escaping

Text is escaped by an [Escaper] before being quoted. The package level
[Compile] uses [MySQLEscaper]. A [Compiler] can be configured with another
escaper, such as [StandardEscaper] for SQLite, or the connection backed
escaper of the pgxescape package for PostgreSQL.

# Running queries

[DB] compiles templates and runs the resulting SQL on a database/sql
database. The SQL is sent without driver arguments, so the [Compiler] given
to [NewDB] must use the escaper of that database.
*/
package sqltpl
