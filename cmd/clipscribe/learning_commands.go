package main

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/spf13/cobra"

	"clipscribe/internal/config"
	"clipscribe/internal/learning"
	"clipscribe/internal/logging"
)

func newLearningCommand(ctx *commandContext) *cobra.Command {
	learningCmd := &cobra.Command{
		Use:   "learning",
		Short: "Inspect and tune the adaptive learning store",
	}

	learningCmd.AddCommand(newLearningStatsCommand(ctx))
	learningCmd.AddCommand(newLearningOptimizeCommand(ctx))
	return learningCmd
}

func (c *commandContext) withLearning(fn func(*config.Config, *learning.Store) error) error {
	cfg, err := c.ensureConfig()
	if err != nil {
		return err
	}
	store, err := learning.Open(cfg, logging.NewNop())
	if err != nil {
		return err
	}
	defer store.Close()
	return fn(cfg, store)
}

func newLearningStatsCommand(ctx *commandContext) *cobra.Command {
	var userFlag string
	var recentFlag int

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show learning profile and recent session scores",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withLearning(func(cfg *config.Config, store *learning.Store) error {
				out := cmd.OutOrStdout()

				profile, err := store.GetProfile(cmd.Context(), userFlag)
				if err != nil {
					return err
				}
				if profile == nil {
					fmt.Fprintln(out, "No learning sessions recorded yet")
					return nil
				}

				fmt.Fprintf(out, "User:              %s\n", profile.UserID)
				fmt.Fprintf(out, "Sessions:          %d\n", profile.TotalSessions)
				fmt.Fprintf(out, "Improvement rate:  %+.4f\n", profile.ImprovementRate)
				fmt.Fprintf(out, "Satisfaction:      %.3f\n", profile.SatisfactionScore)

				if len(profile.OptimalVADParameters) > 0 {
					params := make([]string, 0, len(profile.OptimalVADParameters))
					for param := range profile.OptimalVADParameters {
						params = append(params, param)
					}
					sort.Strings(params)
					fmt.Fprintln(out, "Optimal VAD parameters:")
					for _, param := range params {
						fmt.Fprintf(out, "  %-22s %.3f\n", param, profile.OptimalVADParameters[param])
					}
				}

				sessions, err := store.RecentSessions(cmd.Context(), userFlag, recentFlag)
				if err != nil {
					return err
				}
				if len(sessions) == 0 {
					return nil
				}
				rows := make([][]string, 0, len(sessions))
				for _, session := range sessions {
					rows = append(rows, []string{
						session.CreatedAt.Local().Format("2006-01-02 15:04"),
						session.Profile,
						strconv.FormatFloat(session.OverallScore, 'f', 3, 64),
						strconv.FormatFloat(session.TranscriptionQuality, 'f', 3, 64),
						strconv.FormatFloat(session.VADAccuracy, 'f', 3, 64),
						strconv.FormatFloat(session.ProcessingSeconds, 'f', 1, 64),
					})
				}
				table := renderTable(
					[]string{"When", "Profile", "Score", "Quality", "VAD", "Seconds"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight, alignRight, alignRight, alignRight},
				)
				fmt.Fprintln(out, table)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&userFlag, "user", "u", "default", "User identity to inspect")
	cmd.Flags().IntVar(&recentFlag, "recent", 10, "Number of recent sessions to list")
	return cmd
}

func newLearningOptimizeCommand(ctx *commandContext) *cobra.Command {
	var userFlag string
	var objectiveFlag string

	cmd := &cobra.Command{
		Use:   "optimize",
		Short: "Search for better VAD parameters from session history",
		RunE: func(cmd *cobra.Command, args []string) error {
			objective, err := parseObjective(objectiveFlag)
			if err != nil {
				return err
			}
			return ctx.withLearning(func(cfg *config.Config, store *learning.Store) error {
				result, err := store.Optimize(cmd.Context(), userFlag, objective, cfg.Learning.MinSessions)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Objective:       %s\n", result.Objective)
				fmt.Fprintf(out, "Sessions used:   %d\n", result.SessionsUsed)
				fmt.Fprintf(out, "Original score:  %.4f\n", result.OriginalScore)
				fmt.Fprintf(out, "Optimized score: %.4f\n", result.OptimizedScore)
				fmt.Fprintf(out, "Improvement:     %+.4f\n", result.Improvement)
				if result.Applied {
					fmt.Fprintln(out, "Improvement is significant; optimal parameters saved to the profile:")
				} else {
					fmt.Fprintln(out, "Improvement below threshold; profile left unchanged. Best candidate:")
				}
				params := make([]string, 0, len(result.Parameters))
				for param := range result.Parameters {
					params = append(params, param)
				}
				sort.Strings(params)
				for _, param := range params {
					fmt.Fprintf(out, "  %-22s %.3f\n", param, result.Parameters[param])
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&userFlag, "user", "u", "default", "User identity to optimize")
	cmd.Flags().StringVar(&objectiveFlag, "objective", "accuracy", "Search objective: accuracy, vad, or speed")
	return cmd
}

func parseObjective(value string) (learning.Objective, error) {
	switch value {
	case "", "accuracy":
		return learning.ObjectiveAccuracy, nil
	case "vad":
		return learning.ObjectiveVADPrecision, nil
	case "speed":
		return learning.ObjectiveSpeed, nil
	default:
		return "", fmt.Errorf("unknown objective %q (expected accuracy, vad, or speed)", value)
	}
}
