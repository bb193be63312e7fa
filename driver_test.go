// Copyright 2024 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.
package sqltpl

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"strings"
	"sync"

	"github.com/mattn/go-sqlite3"
)

// This file contains a wrapper sql.Driver over the SQLite driver which records
// the statements sent to the database along with the number of driver
// arguments passed with each of them. We can later use that information to
// check that compiled templates reach the database unchanged and without
// arguments.

type recordedStmt struct {
	sql  string
	args int
}

// recordedStmts stores the statements run on the database indexed by test
// name. The recordMutex must be used when accessing it.
var recordedStmts = map[string][]recordedStmt{}
var recordMutex sync.RWMutex

func record(testName string, query string, args int) {
	recordMutex.Lock()
	defer recordMutex.Unlock()
	recordedStmts[testName] = append(recordedStmts[testName], recordedStmt{sql: query, args: args})
}

func recorded(testName string) []recordedStmt {
	recordMutex.RLock()
	defer recordMutex.RUnlock()
	return append([]recordedStmt(nil), recordedStmts[testName]...)
}

type recordingDriver struct {
	driver.Driver
}

type recordingConn struct {
	testName string
	*sqlite3.SQLiteConn
}

func (c *recordingConn) PrepareContext(ctx context.Context, query string) (driver.Stmt, error) {
	record(c.testName, query, -1)
	return c.SQLiteConn.PrepareContext(ctx, query)
}

func (c *recordingConn) Prepare(query string) (driver.Stmt, error) {
	return c.PrepareContext(context.Background(), query)
}

func (c *recordingConn) QueryContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	record(c.testName, query, len(args))
	return c.SQLiteConn.QueryContext(ctx, query, args)
}

func (c *recordingConn) ExecContext(ctx context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	record(c.testName, query, len(args))
	return c.SQLiteConn.ExecContext(ctx, query, args)
}

const testNameTag = "testName"

// Open expects the DSN to contain the test name using the testNameTag
// attribute.
func (d *recordingDriver) Open(name string) (driver.Conn, error) {
	var testName string
	if _, parameters, ok := strings.Cut(name, "?"); ok {
		for _, p := range strings.Split(parameters, "&") {
			if key, val, _ := strings.Cut(p, "="); key == testNameTag {
				testName = val
			}
		}
	}
	if testName == "" {
		panic("internal error: testName is not found in the db DSN")
	}

	baseConn, err := d.Driver.Open(name)
	if err != nil {
		return nil, err
	}
	if baseConn, ok := baseConn.(*sqlite3.SQLiteConn); ok {
		return &recordingConn{SQLiteConn: baseConn, testName: testName}, nil
	}
	panic("internal error: base driver is not SQLite")
}

func init() {
	sql.Register("sqlite3_recorded", &recordingDriver{
		&sqlite3.SQLiteDriver{},
	})
}
