package cmd

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/stockwatch/internal/app"
	"github.com/JakeFAU/stockwatch/internal/monitor"
	"github.com/JakeFAU/stockwatch/internal/notify"
	"github.com/JakeFAU/stockwatch/internal/stock"
)

func newCheckCmd() *cobra.Command {
	var token string
	cmd := &cobra.Command{
		Use:   "check",
		Short: "Runs one stock check and prints the result",
		Long: `Fetches each selected product page once and prints the
announcements that would have been posted, followed by a summary. Discord
is not contacted.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := resolveEnv(cmd.Context())
			if err != nil {
				return err
			}
			var products []stock.Product
			if token != "" {
				catalog, err := e.cfg.Catalog()
				if err != nil {
					return err
				}
				products, err = catalog.Resolve(token)
				if err != nil {
					return err
				}
			}
			out := cmd.OutOrStdout()
			report, err := app.Check(cmd.Context(), e.cfg, e.logger, products, out)
			if err != nil {
				return err
			}
			return printReport(out, report)
		},
	}
	cmd.Flags().StringVar(&token, "products", "", `product id to check, or "both" for the whole catalog`)
	return cmd
}

func printReport(w io.Writer, report monitor.Report) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "PRODUCT\tSTATUS\tDURATION\tHEADLESS\tDETAIL")
	for _, r := range report.Results {
		status, detail := r.Status.String(), ""
		if r.Err != nil {
			status, detail = "error", notify.Reason(r.Err)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", r.Product.DisplayName(), status, r.Duration.Round(time.Millisecond), r.Headless, detail)
	}
	if report.Halted {
		fmt.Fprintln(tw, "pass halted: page layout not recognized")
	}
	return tw.Flush()
}
