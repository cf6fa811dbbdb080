package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"clipscribe/internal/config"
	"clipscribe/internal/deps"
	"clipscribe/internal/logging"
	"clipscribe/internal/queue"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check external tools and pipeline readiness",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				out := cmd.OutOrStdout()
				colorize := shouldColorize(cmd.OutOrStdout())

				statuses := deps.CheckBinaries(deps.Requirements(cfg))
				fmt.Fprintln(out, "External tools:")
				for _, status := range statuses {
					kind := statusOK
					detail := status.Command
					if !status.Available {
						detail = status.Detail
						if status.Optional {
							kind = statusWarn
						} else {
							kind = statusError
						}
					}
					fmt.Fprintln(out, renderStatusLine(status.Name, kind, detail, colorize))
				}

				pipe, err := buildPipeline(cmd.Context(), cfg, store, logging.NewNop(), "")
				if err != nil {
					return err
				}
				defer pipe.Close()

				summary := pipe.manager.Status(cmd.Context())
				names := make([]string, 0, len(summary.StageHealth))
				for name := range summary.StageHealth {
					names = append(names, name)
				}
				sort.Strings(names)
				fmt.Fprintln(out, "Pipeline stages:")
				for _, name := range names {
					health := summary.StageHealth[name]
					if health.Ready {
						fmt.Fprintln(out, renderStatusLine(name, statusOK, "", colorize))
					} else {
						fmt.Fprintln(out, renderStatusLine(name, statusError, health.Detail, colorize))
					}
				}

				health, err := store.Health(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "Queue: %d total, %d pending, %d processing, %d failed, %d completed\n",
					health.Total, health.Pending, health.Processing, health.Failed, health.Completed)

				if !deps.AllRequiredAvailable(statuses) || !summary.Healthy() {
					return fmt.Errorf("pipeline is not ready")
				}
				return nil
			})
		},
	}
}
