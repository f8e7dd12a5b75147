package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sweetpotato0/ai-dispatch/agent/billing"
	"github.com/sweetpotato0/ai-dispatch/agent/docs"
)

func newHistoryCmd(flags *globalFlags) *cobra.Command {
	var (
		agentName string
		limit     int
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print archived turns answered by one agent",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context(), flags)
			if err != nil {
				return err
			}
			defer closeApp(a)

			turns, err := a.rt.History(cmd.Context(), agentName, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(turns) == 0 {
				fmt.Fprintf(out, "No archived turns for %s\n", agentName)
				return nil
			}
			for _, t := range turns {
				fmt.Fprintf(out, "[%s] session=%s score=%.2f\n  User: %s\n  %s: %s\n",
					t.CreatedAt.Format("2006-01-02 15:04:05"), t.SessionID, t.Score, t.Query, t.Agent, t.Reply)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&agentName, "agent", docs.DefaultName,
		fmt.Sprintf("Agent name, for example %q or %q", docs.DefaultName, billing.DefaultName))
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum turns to print, newest last")
	return cmd
}
