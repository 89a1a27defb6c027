/*
Package config loads the service configuration and builds the logger.

PURPOSE:
  One place that knows the configuration keys, their defaults and how
  they reach the process: YAML file, PAYROLL_* environment variables, and
  CLI flags bound by cmd/server.

KEYS:
  server.addr          listen address (":8080")
  database.path        SQLite path (":memory:" allowed)
  logging.level        debug | info | warn | error
  logging.format       console | json
  tax_tables.dir       extra tax-year YAML tables, overriding shipped ones
  evaluation.workers   concurrent payslip evaluations per batch

SEE ALSO:
  - cmd/server/main.go: flag binding
*/
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// EnvPrefix prefixes every environment variable (PAYROLL_SERVER_ADDR).
const EnvPrefix = "PAYROLL"

// Config is the resolved service configuration.
type Config struct {
	Server     Server
	Database   Database
	Logging    Logging
	TaxTables  TaxTables
	Evaluation Evaluation
}

type Server struct {
	Addr string
}

type Database struct {
	Path string
}

type Logging struct {
	Level  string
	Format string
}

type TaxTables struct {
	Dir string
}

type Evaluation struct {
	Workers int
}

// SetDefaults registers the default of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("database.path", "payroll.db")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("tax_tables.dir", "")
	v.SetDefault("evaluation.workers", 8)
}

// Load reads path (if non-empty) plus the environment into v and returns
// the resolved config. A missing file named explicitly is an error.
func Load(v *viper.Viper, path string) (Config, error) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("failed to read config: %w", err)
		}
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("payroll")
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return Config{}, fmt.Errorf("failed to read config: %w", err)
			}
		}
	}

	cfg := Config{
		Server:     Server{Addr: v.GetString("server.addr")},
		Database:   Database{Path: v.GetString("database.path")},
		Logging:    Logging{Level: v.GetString("logging.level"), Format: v.GetString("logging.format")},
		TaxTables:  TaxTables{Dir: v.GetString("tax_tables.dir")},
		Evaluation: Evaluation{Workers: v.GetInt("evaluation.workers")},
	}
	return cfg, cfg.Validate()
}

// Validate rejects values the service cannot start with.
func (c Config) Validate() error {
	if c.Evaluation.Workers < 1 {
		return fmt.Errorf("evaluation.workers must be positive, got %d", c.Evaluation.Workers)
	}
	if c.Database.Path == "" {
		return errors.New("database.path is required")
	}
	if _, err := zapcore.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}
	return nil
}

// NewLogger builds the process logger: the development encoder for
// "console", the production JSON encoder for "json".
func NewLogger(l Logging) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(l.Level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level: %s", l.Level)
	}

	var zc zap.Config
	switch l.Format {
	case "json":
		zc = zap.NewProductionConfig()
	case "console", "":
		zc = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("invalid log format: %s", l.Format)
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
