package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newCompileCmd() *cobra.Command {
	var tf templateFlags

	cmd := &cobra.Command{
		Use:   "compile [TEMPLATE]",
		Short: "Print the SQL of a template filled with arguments",
		Example: `  sqltpl compile 'SELECT * FROM users WHERE id = ?d' --args '[42]'
  sqltpl compile -f query.sql --args-file args.yaml --escaper standard`,
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
			c, err := newCompiler(st.cfg.Compiler, nil, st.logger)
			if err != nil {
				return err
			}
			sql, err := c.Compile(text, arguments...)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), sql)
			return nil
		},
	}
	tf.register(cmd)
	return cmd
}
