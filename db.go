// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqltpl

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync/atomic"
)

var ErrNoRows = sql.ErrNoRows
var ErrTXDone = sql.ErrTxDone

// DB runs compiled templates on a database.
type DB struct {
	// sqldb is the underlying database/sql DB object.
	sqldb    *sql.DB
	compiler *Compiler
}

// NewDB creates a new [DB] from a [sql.DB]. Templates are compiled with c,
// which must be configured with an escaper matching the database: text
// escaped for one dialect is not safe in another. NewDB panics if c is nil.
func NewDB(sqldb *sql.DB, c *Compiler) *DB {
	if sqldb == nil {
		return nil
	}
	if c == nil {
		panic("sqltpl: NewDB needs a compiler with an escaper for the database")
	}
	return &DB{sqldb: sqldb, compiler: c}
}

// PlainDB returns the underlying database object.
func (db *DB) PlainDB() *sql.DB {
	return db.sqldb
}

// Compiler returns the compiler used by the database.
func (db *DB) Compiler() *Compiler {
	return db.compiler
}

// querySubstrate is an object that queries can be run on, e.g. a sql.DB or
// a sql.Tx.
type querySubstrate interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Query represents a compiled template bound to a database or a transaction.
// It is designed to be run once.
type Query struct {
	ctx    context.Context
	sub    querySubstrate
	sql    string
	err    error
	logger *slog.Logger
}

// Query compiles text with args into a query. Compile errors are returned by
// the method that runs the query, which is one of [Query.Run], [Query.Exec],
// [Query.Get] or [Query.Iter].
//
// The compiled SQL is sent to the database as is, without driver arguments.
func (db *DB) Query(ctx context.Context, text string, args ...any) *Query {
	return newQuery(ctx, db.sqldb, db.compiler, text, args)
}

func newQuery(ctx context.Context, sub querySubstrate, c *Compiler, text string, args []any) *Query {
	if ctx == nil {
		ctx = context.Background()
	}
	q := &Query{ctx: ctx, sub: sub, logger: c.logger}
	q.sql, q.err = c.Compile(text, args...)
	return q
}

// SQL returns the compiled SQL of the query, or the compile error.
func (q *Query) SQL() (string, error) {
	return q.sql, q.err
}

// Run executes the query and disregards any results.
func (q *Query) Run() error {
	_, err := q.Exec()
	return err
}

// Exec executes a query that returns no rows, such as an INSERT or UPDATE.
func (q *Query) Exec() (sql.Result, error) {
	if q.err != nil {
		return nil, q.err
	}
	q.logger.DebugContext(q.ctx, "executing statement", "sql", q.sql)
	return q.sub.ExecContext(q.ctx, q.sql)
}

// Get runs the query and scans the first row returned into the provided
// pointers, which follow the rules of [sql.Rows.Scan]. It returns [ErrNoRows]
// if no rows were found.
func (q *Query) Get(dest ...any) error {
	if q.err != nil {
		return q.err
	}

	iter := q.Iter()
	if !iter.Next() {
		err := iter.Close()
		if err == nil {
			err = ErrNoRows
		}
		return err
	}
	err := iter.Get(dest...)
	if cerr := iter.Close(); err == nil {
		err = cerr
	}
	return err
}

// Iter returns an [Iterator] to iterate through the results row by row.
// [Iterator.Close] must be run once iteration is finished.
func (q *Query) Iter() *Iterator {
	if q.err != nil {
		return &Iterator{err: q.err}
	}

	q.logger.DebugContext(q.ctx, "running query", "sql", q.sql)
	rows, err := q.sub.QueryContext(q.ctx, q.sql)
	if err != nil {
		return &Iterator{err: err}
	}
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return &Iterator{err: err}
	}
	return &Iterator{rows: rows, cols: cols}
}

// Iterator is used to iterate over the results of the query.
type Iterator struct {
	rows    *sql.Rows
	cols    []string
	err     error
	started bool
}

// Next prepares the next row for [Iterator.Get]. If an error occurs during
// iteration it will be returned with [Iterator.Close].
func (iter *Iterator) Next() bool {
	iter.started = true
	if iter.err != nil || iter.rows == nil {
		return false
	}
	return iter.rows.Next()
}

// Columns returns the names of the columns of the result.
func (iter *Iterator) Columns() []string {
	return iter.cols
}

// Get scans the row prepared by the previous [Iterator.Next] call into the
// provided pointers.
func (iter *Iterator) Get(dest ...any) (err error) {
	if iter.err != nil {
		return iter.err
	}
	defer func() {
		if err != nil {
			err = fmt.Errorf("cannot get result: %w", err)
		}
	}()

	if !iter.started {
		return fmt.Errorf("cannot call Get before Next")
	}
	if iter.rows == nil {
		return fmt.Errorf("iteration ended")
	}
	return iter.rows.Scan(dest...)
}

// Close finishes the iteration and returns any errors encountered. Close can
// be called multiple times on the [Iterator] and the same error will be
// returned.
func (iter *Iterator) Close() error {
	iter.started = true
	if iter.rows == nil {
		return iter.err
	}
	err := iter.rows.Err()
	if cerr := iter.rows.Close(); err == nil {
		err = cerr
	}
	iter.rows = nil
	iter.err = err
	return err
}

// TX represents a transaction on the database.
type TX struct {
	sqltx *sql.Tx
	db    *DB
	done  int32
}

func (tx *TX) isDone() bool {
	return atomic.LoadInt32(&tx.done) == 1
}

func (tx *TX) setDone() error {
	if !atomic.CompareAndSwapInt32(&tx.done, 0, 1) {
		return ErrTXDone
	}
	return nil
}

// Begin starts a transaction. A transaction must be ended with a [TX.Commit]
// or [TX.Rollback].
func (db *DB) Begin(ctx context.Context, opts *TXOptions) (*TX, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	sqltx, err := db.sqldb.BeginTx(ctx, opts.plainTXOptions())
	if err != nil {
		return nil, err
	}
	return &TX{sqltx: sqltx, db: db}, nil
}

// Commit commits the transaction.
func (tx *TX) Commit() error {
	err := tx.setDone()
	if err == nil {
		err = tx.sqltx.Commit()
	}
	return err
}

// Rollback aborts the transaction.
func (tx *TX) Rollback() error {
	err := tx.setDone()
	if err == nil {
		err = tx.sqltx.Rollback()
	}
	return err
}

// TXOptions holds the transaction options to be used in [DB.Begin].
type TXOptions struct {
	// Isolation is the transaction isolation level.
	// If zero, the driver or database's default level is used.
	Isolation sql.IsolationLevel
	ReadOnly  bool
}

func (txopts *TXOptions) plainTXOptions() *sql.TxOptions {
	if txopts == nil {
		return nil
	}
	return &sql.TxOptions{Isolation: txopts.Isolation, ReadOnly: txopts.ReadOnly}
}

// Query compiles text with args into a query run inside the transaction. See
// [DB.Query].
func (tx *TX) Query(ctx context.Context, text string, args ...any) *Query {
	if ctx == nil {
		ctx = context.Background()
	}
	if tx.isDone() {
		return &Query{ctx: ctx, err: ErrTXDone, logger: tx.db.compiler.logger}
	}
	return newQuery(ctx, tx.sqltx, tx.db.compiler, text, args)
}
