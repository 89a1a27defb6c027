package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/warp/payroll-engine/api"
	"github.com/warp/payroll-engine/batch"
	"github.com/warp/payroll-engine/payroll"
	"github.com/warp/payroll-engine/ruleconfig"
	"github.com/warp/payroll-engine/rules"
	"github.com/warp/payroll-engine/store/memory"
	"github.com/warp/payroll-engine/taxyear"
)

// cliClient is the client id the --override file is stored under.
const cliClient = "cli"

func evaluateCmd() *cobra.Command {
	var input, override string

	cmd := &cobra.Command{
		Use:   "evaluate",
		Short: "Evaluate a JSON file of payslips and print the issues",
		Long: `Evaluates payslips offline and prints the issue candidates as JSON.

The input has the shape of POST /api/batches/{id}/evaluate:
  {"country": "IE", "tax_year": 2025, "items": [{"current": {...}, "previous": {...}}]}

An optional YAML override file adjusts thresholds and severities.

Examples:
  payroll evaluate --input march.json
  payroll evaluate --input march.json --override acme.yaml`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry, err := loadRegistry()
			if err != nil {
				return err
			}
			f, err := os.Open(input)
			if err != nil {
				return fmt.Errorf("open input: %w", err)
			}
			defer f.Close()
			return runEvaluate(cmd.Context(), registry, f, cmd.OutOrStdout(), override)
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "JSON file of payslips")
	cmd.Flags().StringVar(&override, "override", "", "YAML rule-config override file")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runEvaluate(ctx context.Context, registry *taxyear.Registry, in io.Reader, out io.Writer, overridePath string) error {
	var req api.BatchEvaluateRequest
	if err := json.NewDecoder(in).Decode(&req); err != nil {
		return fmt.Errorf("decode input: %w", err)
	}
	country, ok := taxyear.ParseCountry(req.Country)
	if !ok {
		return fmt.Errorf("%w: %q", payroll.ErrUnknownCountry, req.Country)
	}

	st := memory.New()
	clientID := ""
	if overridePath != "" {
		o, err := ruleconfig.LoadOverrideFile(overridePath)
		if err != nil {
			return err
		}
		if err := st.SaveOverride(ctx, cliClient, country, o); err != nil {
			return err
		}
		clientID = cliClient
	}

	svc := batch.NewService(rules.Baseline(), ruleconfig.NewResolver(registry, st, logger), nil,
		batch.WithLogger(logger),
		batch.WithWorkers(cfg.Evaluation.Workers))

	items := make([]batch.Item, 0, len(req.Items))
	for i, it := range req.Items {
		if it.Current == nil {
			return fmt.Errorf("item %d: %w", i, payroll.ErrMissingCurrent)
		}
		items = append(items, batch.Item{
			Current:  *it.Current,
			Previous: it.Previous,
			Ireland:  it.Ireland,
			UK:       it.UK,
			Contract: it.Contract,
		})
	}

	res, err := svc.EvaluateBatch(ctx, batch.EvaluateRequest{
		Scope: batch.Scope{ClientID: clientID, Country: country, TaxYear: req.TaxYear},
		Items: items,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(api.EvaluateResponse{Issues: res.Issues})
}
