// Copyright 2023 Canonical Ltd.
// Licensed under Apache 2.0, see LICENCE file for details.

// Package pgxescape escapes template text values through a PostgreSQL
// connection opened with pgx, so that escaping follows the settings of the
// server.
package pgxescape

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/stdlib"
)

var ErrClosed = errors.New("escaper is closed")

// Escaper escapes text with PgConn.EscapeString. It fails if the server
// does not have standard_conforming_strings on or if the client encoding is
// not UTF8.
//
// Escaper implements sqltpl.Escaper and is safe for concurrent use.
type Escaper struct {
	mu     sync.Mutex
	pgConn *pgconn.PgConn
	// conn is the pinned database/sql connection when the escaper was created
	// with Open.
	conn *sql.Conn
	// closed is set by Close.
	closed bool
}

// New returns an Escaper using pgConn. The caller keeps ownership of the
// connection.
func New(pgConn *pgconn.PgConn) *Escaper {
	return &Escaper{pgConn: pgConn}
}

// Open takes a connection from db, which must use the pgx stdlib driver, and
// returns an Escaper using it. The connection is held until [Escaper.Close]
// is called.
func Open(ctx context.Context, db *sql.DB) (*Escaper, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("cannot get connection: %w", err)
	}
	err = conn.Raw(func(driverConn any) error {
		_, err := pgConnOf(driverConn)
		return err
	})
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	return &Escaper{conn: conn}, nil
}

func pgConnOf(driverConn any) (*pgconn.PgConn, error) {
	c, ok := driverConn.(*stdlib.Conn)
	if !ok {
		return nil, fmt.Errorf("need a pgx stdlib connection, got %T", driverConn)
	}
	return c.Conn().PgConn(), nil
}

// EscapeString escapes s for use between single quotes.
func (e *Escaper) EscapeString(s string) (escaped string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return "", ErrClosed
	}
	if e.conn == nil {
		if e.pgConn == nil {
			return "", fmt.Errorf("no connection")
		}
		return e.pgConn.EscapeString(s)
	}

	// The driver connection may only be used within Raw.
	err = e.conn.Raw(func(driverConn any) error {
		pgConn, err := pgConnOf(driverConn)
		if err != nil {
			return err
		}
		escaped, err = pgConn.EscapeString(s)
		return err
	})
	return escaped, err
}

// Close releases the connection taken by [Open]. It does nothing for an
// escaper made with [New].
func (e *Escaper) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.closed {
		return nil
	}
	e.closed = true
	if e.conn == nil {
		return nil
	}
	return e.conn.Close()
}
