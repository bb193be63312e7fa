package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/canonical/sqltpl"
	"github.com/canonical/sqltpl/internal/args"
	"github.com/canonical/sqltpl/internal/config"
)

type stateKey struct{}

// state is set up by the root command before any subcommand runs.
type state struct {
	cfg    *config.Config
	logger *slog.Logger
}

func stateFrom(cmd *cobra.Command) *state {
	st, _ := cmd.Context().Value(stateKey{}).(*state)
	return st
}

func newRootCmd() *cobra.Command {
	var cfgFile string

	root := &cobra.Command{
		Use:   "sqltpl",
		Short: "Compile SQL templates",
		Long: `sqltpl fills the placeholders of SQL templates with arguments and
prints the resulting SQL, or runs it against a database.

Arguments are given as a YAML or JSON sequence. Use !skip to drop the
conditional block an argument belongs to.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, used, err := config.Load(cfgFile, cmd.Flags())
			if err != nil {
				return err
			}
			level, err := config.ParseLevel(cfg.Log.Level)
			if err != nil {
				return err
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
			if used != "" {
				logger.Debug("loaded config file", "path", used)
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			cmd.SetContext(context.WithValue(ctx, stateKey{}, &state{cfg: cfg, logger: logger}))
			return nil
		},
	}

	flags := root.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default sqltpl.yaml or sqltpl.yml)")
	flags.String("escaper", config.EscaperMySQL, "text escaping: mysql or standard")
	flags.Int("cache-size", 0, "number of parsed templates to cache, negative to disable")
	flags.Bool("strict-skip", false, "reject the skip value outside of conditional blocks")
	flags.Bool("strict-args", false, "reject unused arguments")
	flags.String("log-level", "warn", "log level: debug, info, warn or error")

	root.AddCommand(newCompileCmd())
	root.AddCommand(newExecCmd())
	root.AddCommand(newVersionCmd(version))
	return root
}

// templateFlags are the flags shared by the commands taking a template.
type templateFlags struct {
	file     string
	args     string
	argsFile string
}

func (f *templateFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.file, "file", "f", "", "read the template from a file, - for stdin")
	cmd.Flags().StringVarP(&f.args, "args", "a", "", "template arguments as a YAML or JSON sequence")
	cmd.Flags().StringVar(&f.argsFile, "args-file", "", "read the template arguments from a file")
}

// template returns the template given as the only positional argument, read
// from --file, or read from stdin.
func (f *templateFlags) template(cmd *cobra.Command, positional []string) (string, error) {
	if len(positional) > 0 {
		if f.file != "" {
			return "", errors.New("cannot use both a template argument and --file")
		}
		return positional[0], nil
	}
	var data []byte
	var err error
	if f.file == "" || f.file == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(f.file)
	}
	if err != nil {
		return "", fmt.Errorf("cannot read template: %w", err)
	}
	return strings.TrimSuffix(string(data), "\n"), nil
}

func (f *templateFlags) arguments() ([]any, error) {
	switch {
	case f.args != "" && f.argsFile != "":
		return nil, errors.New("cannot use both --args and --args-file")
	case f.args != "":
		return args.Decode([]byte(f.args))
	case f.argsFile != "":
		data, err := os.ReadFile(f.argsFile)
		if err != nil {
			return nil, fmt.Errorf("cannot read arguments: %w", err)
		}
		return args.Decode(data)
	}
	return nil, nil
}

func newCompiler(cfg config.CompilerConfig, escaper sqltpl.Escaper, logger *slog.Logger) (*sqltpl.Compiler, error) {
	if escaper == nil {
		switch cfg.Escaper {
		case config.EscaperStandard:
			escaper = sqltpl.StandardEscaper
		default:
			escaper = sqltpl.MySQLEscaper
		}
	}
	return sqltpl.New(sqltpl.Config{
		Escaper:    escaper,
		CacheSize:  cfg.CacheSize,
		StrictSkip: cfg.StrictSkip,
		StrictArgs: cfg.StrictArgs,
		Logger:     logger,
	})
}
