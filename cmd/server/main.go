/*
main.go - Application entry point

PURPOSE:
  Command-line entry point of the payroll anomaly engine. Loads
  configuration, builds the logger and dispatches to a subcommand.

COMMANDS:
  serve        Run the HTTP API (SQLite-backed)
  evaluate     Evaluate a JSON file of payslips and print the issues
  tax-years    List the registered tax-year tables

GLOBAL FLAGS:
  --config      Config file (default: ./payroll.yaml if present)
  --log-level   debug, info, warn, error
  --log-format  console, json

ENVIRONMENT:
  Every config key can be set as PAYROLL_<SECTION>_<KEY>, for example
  PAYROLL_DATABASE_PATH=":memory:" or PAYROLL_EVALUATION_WORKERS=16.

GRACEFUL SHUTDOWN:
  SIGINT/SIGTERM cancel the command context. serve stops accepting
  connections and waits up to 30s for active requests.

SEE ALSO:
  - config/config.go: keys and defaults
  - api/server.go: Router configuration
*/
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/warp/payroll-engine/config"
	"github.com/warp/payroll-engine/taxyear"
)

var (
	cfgFile string
	cfg     config.Config
	logger  = zap.NewNop()

	rootCmd = &cobra.Command{
		Use:   "payroll",
		Short: "Payroll anomaly detection and reconciliation engine",
		Long: `payroll evaluates IE and UK payslips against anomaly rules and statutory
calculations, reconciles batches against registers, GL postings, bank
payments and statutory submissions, and serves the results over HTTP.`,
		PersistentPreRunE: initConfig,
		SilenceUsage:      true,
	}
)

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: ./payroll.yaml)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "console", "log format (console, json)")
	rootCmd.PersistentFlags().String("tax-tables", "", "directory of extra tax-year YAML tables")

	// Bind flags to viper
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
	_ = viper.BindPFlag("logging.format", rootCmd.PersistentFlags().Lookup("log-format"))
	_ = viper.BindPFlag("tax_tables.dir", rootCmd.PersistentFlags().Lookup("tax-tables"))

	// Add commands
	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(evaluateCmd())
	rootCmd.AddCommand(taxYearsCmd())
}

func main() {
	ctx, stop := signalContext()

	err := rootCmd.ExecuteContext(ctx)
	stop()
	_ = logger.Sync()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// signalContext is cancelled on SIGINT or SIGTERM. Commands log their own
// shutdown once they see the cancellation.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func initConfig(_ *cobra.Command, _ []string) error {
	c, err := config.Load(viper.GetViper(), cfgFile)
	if err != nil {
		return err
	}
	cfg = c

	l, err := config.NewLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to setup logging: %w", err)
	}
	logger = l
	return nil
}

// loadRegistry returns the shipped tax tables plus the configured directory.
func loadRegistry() (*taxyear.Registry, error) {
	registry, err := taxyear.Default()
	if err != nil {
		return nil, fmt.Errorf("load shipped tax tables: %w", err)
	}
	if dir := cfg.TaxTables.Dir; dir != "" {
		if err := registry.LoadDir(dir); err != nil {
			return nil, fmt.Errorf("load tax tables from %s: %w", dir, err)
		}
		logger.Info("loaded tax tables", zap.String("dir", dir))
	}
	return registry, nil
}
