package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/warp/payroll-engine/api"
	"github.com/warp/payroll-engine/batch"
	"github.com/warp/payroll-engine/metrics"
	"github.com/warp/payroll-engine/ruleconfig"
	"github.com/warp/payroll-engine/rules"
	"github.com/warp/payroll-engine/store/sqlite"
	"github.com/warp/payroll-engine/taxyear"
)

const shutdownTimeout = 30 * time.Second

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Starts the HTTP API backed by SQLite.

Examples:
  payroll serve --db ./data/payroll.db
  payroll serve --db :memory: --addr :3000`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", ":8080", "HTTP listen address")
	cmd.Flags().String("db", "payroll.db", `SQLite database path (":memory:" for in-memory)`)
	cmd.Flags().Int("workers", batch.DefaultWorkers, "concurrent payslip evaluations per batch")

	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("database.path", cmd.Flags().Lookup("db"))
	_ = viper.BindPFlag("evaluation.workers", cmd.Flags().Lookup("workers"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	st, err := sqlite.New(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}
	defer st.Close()

	registry, err := loadRegistry()
	if err != nil {
		return err
	}

	ruleSet := rules.Install()
	m := metrics.New(prometheus.DefaultRegisterer)
	resolver := ruleconfig.NewResolver(registry, st, logger)
	svc := batch.NewService(ruleSet, resolver, st,
		batch.WithMetrics(m),
		batch.WithLogger(logger),
		batch.WithWorkers(cfg.Evaluation.Workers))

	handler := api.NewHandler(svc, st, logger)
	server := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      api.NewRouter(handler, promhttp.Handler()),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting",
			zap.String("addr", cfg.Server.Addr),
			zap.String("database", cfg.Database.Path),
			zap.Int("rules", ruleSet.Len()),
			zap.Ints("ie_tax_years", registry.Years(taxyear.CountryIE)),
			zap.Ints("uk_tax_years", registry.Years(taxyear.CountryUK)))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("server stopped")
	return nil
}
