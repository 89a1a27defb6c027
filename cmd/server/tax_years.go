package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/warp/payroll-engine/taxyear"
)

func taxYearsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tax-years",
		Short: "List the registered tax-year tables",
		Long: `Lists the tax years the engine has tables for, per country. UK years are
keyed by their starting calendar year (2025 = 2025/26).`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			registry, err := loadRegistry()
			if err != nil {
				return err
			}
			printTaxYears(cmd.OutOrStdout(), registry)
			return nil
		},
	}
}

func printTaxYears(w io.Writer, registry *taxyear.Registry) {
	for _, country := range []taxyear.Country{taxyear.CountryIE, taxyear.CountryUK} {
		years := registry.Years(country)
		labels := make([]string, len(years))
		for i, y := range years {
			labels[i] = fmt.Sprint(y)
			if country == taxyear.CountryUK {
				labels[i] = fmt.Sprintf("%d/%02d", y, (y+1)%100)
			}
		}
		fmt.Fprintf(w, "%s: %s (latest %d)\n", country, strings.Join(labels, ", "), registry.Latest(country))
	}
}
