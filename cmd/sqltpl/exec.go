package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
	"github.com/spf13/cobra"

	"github.com/canonical/sqltpl"
	"github.com/canonical/sqltpl/internal/config"
	"github.com/canonical/sqltpl/pgxescape"
)

func newExecCmd() *cobra.Command {
	var tf templateFlags
	var noRows bool

	cmd := &cobra.Command{
		Use:   "exec [TEMPLATE]",
		Short: "Run a template filled with arguments against a database",
		Long: `Run a template filled with arguments against a database and print the
rows it returns, tab separated, or the number of rows it affected with
--no-rows.

Text is escaped for the database driver: SQLite uses standard escaping
and PostgreSQL escapes through the server connection. --escaper is
ignored.`,
		Example: `  sqltpl exec --dsn file:app.db 'SELECT * FROM users WHERE ?# = ?' --args '[name, Jack]'
  sqltpl exec --driver pgx --dsn postgres://localhost/app --no-rows -f update.sql`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, positional []string) error {
			st := stateFrom(cmd)
			text, err := tf.template(cmd, positional)
			if err != nil {
				return err
			}
			arguments, err := tf.arguments()
			if err != nil {
				return err
			}
			return runExec(cmd.Context(), cmd.OutOrStdout(), st, text, arguments, noRows)
		},
	}
	tf.register(cmd)
	cmd.Flags().String("driver", config.DriverSQLite, "database driver: sqlite3 or pgx")
	cmd.Flags().String("dsn", "", "database connection string")
	cmd.Flags().BoolVar(&noRows, "no-rows", false, "print the number of affected rows instead of the result rows")
	return cmd
}

func runExec(ctx context.Context, out io.Writer, st *state, text string, arguments []any, noRows bool) (err error) {
	dbcfg := st.cfg.Database
	if dbcfg.DSN == "" {
		return errors.New("no database: set --dsn, database.dsn or " + config.EnvPrefix + "DATABASE_DSN")
	}
	sqldb, err := sql.Open(dbcfg.Driver, dbcfg.DSN)
	if err != nil {
		return fmt.Errorf("cannot open database: %w", err)
	}
	defer sqldb.Close()

	var escaper sqltpl.Escaper = sqltpl.StandardEscaper
	if dbcfg.Driver == config.DriverPgx {
		pgEscaper, err := pgxescape.Open(ctx, sqldb)
		if err != nil {
			return err
		}
		defer pgEscaper.Close()
		escaper = pgEscaper
	}

	c, err := newCompiler(st.cfg.Compiler, escaper, st.logger)
	if err != nil {
		return err
	}
	db := sqltpl.NewDB(sqldb, c)
	q := db.Query(ctx, text, arguments...)
	if compiled, err := q.SQL(); err == nil {
		st.logger.Info("executing template", "driver", dbcfg.Driver, "sql", compiled)
	}

	if noRows {
		res, err := q.Exec()
		if err != nil {
			return err
		}
		n, err := res.RowsAffected()
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%d rows affected\n", n)
		return nil
	}

	iter := q.Iter()
	defer func() {
		if cerr := iter.Close(); err == nil {
			err = cerr
		}
	}()
	cols := iter.Columns()
	if len(cols) > 0 {
		fmt.Fprintln(out, strings.Join(cols, "\t"))
	}
	for iter.Next() {
		vals := make([]any, len(cols))
		dest := make([]any, len(cols))
		for i := range vals {
			dest[i] = &vals[i]
		}
		if err := iter.Get(dest...); err != nil {
			return err
		}
		fields := make([]string, len(vals))
		for i, v := range vals {
			fields[i] = formatColumn(v)
		}
		fmt.Fprintln(out, strings.Join(fields, "\t"))
	}
	return nil
}

func formatColumn(v any) string {
	switch v := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(v)
	}
	return fmt.Sprint(v)
}
