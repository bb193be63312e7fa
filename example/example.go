// Command example fills a small SQLite database and queries it with
// templates.
package main

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/canonical/sqltpl"

	_ "github.com/mattn/go-sqlite3"
)

type Location struct {
	ID   int    `db:"room_id"`
	Name string `db:"name"`
	Team string `db:"team"`
}

type Person struct {
	Name string `db:"name"`
	ID   int    `db:"id"`
	Team string `db:"team"`
}

func main() {
	ctx := context.Background()
	sqldb, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		panic(err)
	}
	sqldb.SetMaxOpenConns(1)

	c, err := sqltpl.New(sqltpl.Config{Escaper: sqltpl.StandardEscaper})
	if err != nil {
		panic(err)
	}
	db := sqltpl.NewDB(sqldb, c)

	err = db.Query(ctx, `
	CREATE TABLE person (
		name text,
		id integer,
		team text
	);
	CREATE TABLE location (
		room_id integer,
		name text,
		team text
	)`).Run()
	if err != nil {
		panic(err)
	}

	var people = []Person{
		{"Alastair", 1, "engineering"},
		{"Ed", 2, "engineering"},
		{"Marco", 3, "engineering"},
		{"Pedro", 4, "management"},
		{"Serdar", 5, "presentation engineering"},
		{"Joe", 6, "marketing"},
		{"Ben", 7, "legal"},
		{"Sam", 8, "hr"},
		{"Paul", 9, "sales"},
		{"Mark", 10, "leadership"},
		{"Gustavo", 11, "leadership"},
	}
	insertPerson := c.MustPrepare("INSERT INTO person (?#) VALUES (?a)")
	personColumns := []string{"name", "id", "team"}
	for _, p := range people {
		sql, err := insertPerson.Compile(personColumns, []any{p.Name, p.ID, p.Team})
		if err != nil {
			panic(err)
		}
		if err := db.Query(ctx, sql).Run(); err != nil {
			panic(err)
		}
	}

	var locations = []Location{
		{1, "Basement", "engineering"},
		{34, "Floor 2", "presentation engineering"},
		{19, "Floor 3", "management"},
		{66, "The Market", "marketing"},
		{7, "Court", "legal"},
		{9, "Floors 4 to 89", "hr"},
		{73, "Bar", "Sales"},
		{32, "Penthouse", "leadership"},
	}
	tx, err := db.Begin(ctx, nil)
	if err != nil {
		panic(err)
	}
	for _, l := range locations {
		err := tx.Query(ctx, "INSERT INTO location (room_id, name, team) VALUES (?d, ?, ?)", l.ID, l.Name, l.Team).Run()
		if err != nil {
			_ = tx.Rollback()
			panic(err)
		}
	}
	if err := tx.Commit(); err != nil {
		panic(err)
	}

	// Find someone on the engineering team.
	var name string
	err = db.Query(ctx, "SELECT name FROM person WHERE team = ? ORDER BY id", "engineering").Get(&name)
	if err != nil {
		panic(err)
	}
	fmt.Printf("%s is on the engineering team.\n", name)

	// Move Marco to the hr team, updating every column of the row.
	marco := Person{"Marco", 3, "hr"}
	err = db.Query(ctx, "UPDATE person SET ?a WHERE id = ?d", marco, marco.ID).Run()
	if err != nil {
		panic(err)
	}

	// The team filter is only applied when a team is given.
	for _, team := range []any{"leadership", sqltpl.Skip()} {
		var n int
		err := db.Query(ctx, "SELECT count(*) FROM person WHERE 1 = 1{ AND team = ?}", team).Get(&n)
		if err != nil {
			panic(err)
		}
		fmt.Printf("%v: %d people\n", team, n)
	}

	// Print out who is in which room.
	iter := db.Query(ctx, `
		SELECT p.?#, l.?#
		FROM location AS l
			JOIN person AS p
			ON p.team = l.team
		WHERE l.room_id IN (?a)
		ORDER BY p.id`,
		"name", "name", []int{1, 9, 32},
	).Iter()
	for iter.Next() {
		var person, room string
		if err := iter.Get(&person, &room); err != nil {
			panic(err)
		}
		fmt.Printf("%s is in %s\n", person, room)
	}
	if err := iter.Close(); err != nil {
		panic(err)
	}

	err = db.Query(ctx, "DROP TABLE person; DROP TABLE location;").Run()
	if err != nil {
		panic(err)
	}
}
