/*
Package expr processes a template string and generates the SQL. It covers
everything relating to placeholders and conditional blocks; it does not
interact with databases.

The package is split into two stages: the Parse stage and the Compile stage.

# Parse stage

The parsing stage takes a template string and parses it into a list of parts:
literal text that is passed through verbatim, placeholders, and conditional
blocks holding their own literal text and placeholders. Parsing only looks at
the syntax of placeholders and blocks, it knows nothing about SQL. The result
is immutable and can be cached and shared.

# Compile stage

The compile stage walks the parts in textual order with a fresh argument
queue and skip flag. Every placeholder, including those in blocks, consumes
one argument. A placeholder that receives the skip value sets the flag; the
flag silences the following placeholders and makes the enclosing block drop
its output when it ends. The flag is reset at the end of every block.
Arguments are rendered by the formatter matching the placeholder kind, with
text escaped by the caller supplied Escaper.
*/
package expr
