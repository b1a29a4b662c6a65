package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	reportadapter "github.com/bnema/stockroom/internal/adapters/render/report"
)

func newStockCmd(app *app) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "stock",
		Short: "Show free resources by type",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			actor, err := resolveActor(cmd.Context(), cmd, app)
			if err != nil {
				return err
			}

			counts, err := app.reports.Stock(cmd.Context(), actor)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd, counts)
			}

			rendered, err := reportadapter.Stock(counts)
			if err != nil {
				return fmt.Errorf("render stock: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

func newReportCmd(app *app) *cobra.Command {
	var (
		day     string
		finance bool
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show the daily report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			actor, err := resolveActor(cmd.Context(), cmd, app)
			if err != nil {
				return err
			}

			var at time.Time
			if day != "" {
				at, err = time.ParseInLocation("2006-01-02", day, app.config.Report.Location)
				if err != nil {
					return fmt.Errorf("invalid --day %q: use YYYY-MM-DD", day)
				}
			}

			report, err := app.reports.Daily(cmd.Context(), actor, at)
			if err != nil {
				return err
			}

			switch {
			case asJSON && finance:
				return writeJSON(cmd, report.Purchases)
			case asJSON:
				return writeJSON(cmd, report)
			}

			var rendered string
			if finance {
				rendered, err = reportadapter.Finance(report.Window, report.Purchases)
			} else {
				rendered, err = app.dailyRenderer(report)
			}
			if err != nil {
				return fmt.Errorf("render report: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().StringVar(&day, "day", "", "Day to report, YYYY-MM-DD (default: today)")
	cmd.Flags().BoolVar(&finance, "finance", false, "Only show purchase totals")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")

	return cmd
}

func writeJSON(cmd *cobra.Command, value any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(value)
}
