// Package config loads the configuration of the sqltpl command.
//
// Values are read, from lowest to highest precedence, from the defaults, the
// configuration file, SQLTPL_ environment variables and command line flags.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
)

// EnvPrefix is the prefix of the environment variables read by Load.
const EnvPrefix = "SQLTPL_"

// Escaper names.
const (
	EscaperMySQL    = "mysql"
	EscaperStandard = "standard"
)

// Driver names, as registered with database/sql.
const (
	DriverSQLite = "sqlite3"
	DriverPgx    = "pgx"
)

// Config is the configuration of the sqltpl command.
type Config struct {
	Compiler CompilerConfig `koanf:"compiler"`
	Database DatabaseConfig `koanf:"database"`
	Log      LogConfig      `koanf:"log"`
}

// CompilerConfig holds the template compiler settings.
type CompilerConfig struct {
	Escaper    string `koanf:"escaper"`
	CacheSize  int    `koanf:"cache_size"`
	StrictSkip bool   `koanf:"strict_skip"`
	StrictArgs bool   `koanf:"strict_args"`
}

// DatabaseConfig holds the database used by the exec command.
type DatabaseConfig struct {
	Driver string `koanf:"driver"`
	DSN    string `koanf:"dsn"`
}

// LogConfig holds the logging settings.
type LogConfig struct {
	Level string `koanf:"level"`
}

var defaults = map[string]any{
	"compiler.escaper":     EscaperMySQL,
	"compiler.cache_size":  0,
	"compiler.strict_skip": false,
	"compiler.strict_args": false,
	"database.driver":      DriverSQLite,
	"database.dsn":         "",
	"log.level":            "warn",
}

// flagKeys maps command line flags to configuration keys.
var flagKeys = map[string]string{
	"escaper":     "compiler.escaper",
	"cache-size":  "compiler.cache_size",
	"strict-skip": "compiler.strict_skip",
	"strict-args": "compiler.strict_args",
	"driver":      "database.driver",
	"dsn":         "database.dsn",
	"log-level":   "log.level",
}

// findConfigFile finds the config file to use.
// Priority: explicit path > sqltpl.yaml > sqltpl.yml
func findConfigFile(explicit string) string {
	if explicit != "" {
		return explicit
	}
	for _, name := range []string{"sqltpl.yaml", "sqltpl.yml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

// envKey turns SQLTPL_COMPILER_CACHE_SIZE into compiler.cache_size. The first
// underscore separates the section from the key.
func envKey(s string) string {
	key := strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	return strings.Replace(key, "_", ".", 1)
}

// Load loads the configuration. cfgFile is the path given with --config, if
// any. Only the flags of flags that were set on the command line are used. It
// returns the path of the configuration file read, if any.
func Load(cfgFile string, flags *pflag.FlagSet) (*Config, string, error) {
	k := koanf.New(".")

	// 1. Defaults.
	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load defaults: %w", err)
	}

	// 2. Configuration file.
	used := findConfigFile(cfgFile)
	if used != "" {
		if err := k.Load(file.Provider(used), yaml.Parser()); err != nil {
			return nil, "", fmt.Errorf("error reading config file %s: %w", used, err)
		}
	}

	// 3. Environment variables.
	if err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil); err != nil {
		return nil, "", fmt.Errorf("failed to load env vars: %w", err)
	}

	// 4. Flags.
	if flags != nil {
		if err := k.Load(posflag.ProviderWithFlag(flags, ".", k, func(f *pflag.Flag) (string, interface{}) {
			key, ok := flagKeys[f.Name]
			if !ok || !f.Changed {
				return "", nil
			}
			return key, posflag.FlagVal(flags, f)
		}), nil); err != nil {
			return nil, "", fmt.Errorf("failed to load flags: %w", err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, "", fmt.Errorf("unable to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, "", err
	}
	return &cfg, used, nil
}

// Validate checks that the configuration names known escapers, drivers and
// log levels.
func (c *Config) Validate() error {
	switch c.Compiler.Escaper {
	case EscaperMySQL, EscaperStandard:
	default:
		return fmt.Errorf("unknown escaper %q: must be %q or %q", c.Compiler.Escaper, EscaperMySQL, EscaperStandard)
	}
	switch c.Database.Driver {
	case DriverSQLite, DriverPgx:
	default:
		return fmt.Errorf("unknown database driver %q: must be %q or %q", c.Database.Driver, DriverSQLite, DriverPgx)
	}
	if _, err := ParseLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// ParseLevel parses a log level name.
func ParseLevel(s string) (slog.Level, error) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return 0, fmt.Errorf("unknown log level %q: must be debug, info, warn or error", s)
}
