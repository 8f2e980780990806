package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"qualify/internal/app"
	"qualify/internal/scheduler"
)

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "sweep {overdue|expiry|reminders}",
		Short:     "Run one scheduler sweep now",
		Long:      "Run a sweep immediately. It takes the same lock as the scheduler, so it is skipped while another instance runs it.",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{scheduler.SweepOverdue, scheduler.SweepExpiry, scheduler.SweepReminders},
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd.Context(), func(a *app.App) error {
				report, err := a.Runner.Fire(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if report == nil {
					fmt.Fprintf(cmd.OutOrStdout(), "%s sweep is held by another instance, skipped\n", args[0])
					return nil
				}
				return printJSON(cmd.OutOrStdout(), report)
			})
		},
	}
}
