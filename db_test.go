// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

package sqltpl

import (
	"context"
	"database/sql"
	"errors"

	. "gopkg.in/check.v1"
)

type DBSuite struct{}

var _ = Suite(&DBSuite{})

func (s *DBSuite) TearDownSuite(_ *C) {
	recordMutex.Lock()
	defer recordMutex.Unlock()
	recordedStmts = map[string][]recordedStmt{}
}

func (s *DBSuite) openDB(c *C) *DB {
	sqldb, err := sql.Open("sqlite3_recorded", "file:"+c.TestName()+".db?cache=shared&mode=memory&testName="+c.TestName())
	c.Assert(err, IsNil)
	sqldb.SetMaxOpenConns(1)
	compiler, err := New(Config{Escaper: StandardEscaper})
	c.Assert(err, IsNil)
	return NewDB(sqldb, compiler)
}

func (s *DBSuite) TestCompiledSQLSentWithoutArgs(c *C) {
	db := s.openDB(c)
	defer db.PlainDB().Close()
	ctx := context.Background()

	err := db.Query(ctx, "CREATE TABLE ?# (id integer, name text)", "people").Run()
	c.Assert(err, IsNil)
	err = db.Query(ctx, "INSERT INTO people (?#) VALUES (?a)", []string{"id", "name"}, []any{1, "O'Brien"}).Run()
	c.Assert(err, IsNil)

	var name string
	err = db.Query(ctx, "SELECT name FROM people WHERE id = ?d{ AND name = ?}", 1, Skip()).Get(&name)
	c.Assert(err, IsNil)
	c.Assert(name, Equals, "O'Brien")

	c.Assert(recorded(c.TestName()), DeepEquals, []recordedStmt{
		{sql: "CREATE TABLE `people` (id integer, name text)", args: 0},
		{sql: "INSERT INTO people (`id`, `name`) VALUES (1, 'O''Brien')", args: 0},
		{sql: "SELECT name FROM people WHERE id = 1", args: 0},
	})
}

func (s *DBSuite) TestCompileErrorNotSent(c *C) {
	db := s.openDB(c)
	defer db.PlainDB().Close()
	ctx := context.Background()

	q := db.Query(ctx, "SELECT ?d, ?d", 1)
	_, err := q.SQL()
	c.Assert(errors.Is(err, ErrNotEnoughArguments), Equals, true)

	c.Assert(errors.Is(q.Run(), ErrNotEnoughArguments), Equals, true)
	_, err = q.Exec()
	c.Assert(errors.Is(err, ErrNotEnoughArguments), Equals, true)
	var n int
	c.Assert(errors.Is(q.Get(&n), ErrNotEnoughArguments), Equals, true)
	iter := q.Iter()
	c.Assert(iter.Next(), Equals, false)
	c.Assert(errors.Is(iter.Close(), ErrNotEnoughArguments), Equals, true)

	c.Assert(recorded(c.TestName()), HasLen, 0)
}

func (s *DBSuite) TestTransactionQueries(c *C) {
	db := s.openDB(c)
	defer db.PlainDB().Close()
	ctx := context.Background()

	err := db.Query(ctx, "CREATE TABLE t (n integer)").Run()
	c.Assert(err, IsNil)

	tx, err := db.Begin(ctx, nil)
	c.Assert(err, IsNil)
	err = tx.Query(ctx, "INSERT INTO t VALUES (?d)", 5).Run()
	c.Assert(err, IsNil)
	c.Assert(tx.Commit(), IsNil)

	c.Assert(recorded(c.TestName()), DeepEquals, []recordedStmt{
		{sql: "CREATE TABLE t (n integer)", args: 0},
		{sql: "INSERT INTO t VALUES (5)", args: 0},
	})
}
