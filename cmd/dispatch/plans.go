package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/sweetpotato0/ai-dispatch/agent/billing"
)

func newPlansCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "plans",
		Short: "List the billing plans the billing agent knows about",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(flags)
			if err != nil {
				return err
			}
			catalog := billing.NewCatalog(cfg.Billing.Plans)

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "CODE\tPRICING\tALIASES")
			for _, p := range catalog.Plans() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", p.Code, p.PriceSummary(), strings.Join(p.Aliases, ", "))
			}
			return w.Flush()
		},
	}
}
