package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"clipscribe/internal/config"
	"clipscribe/internal/logging"
	"clipscribe/internal/queue"
	"clipscribe/internal/report"
)

func newTranscribeCommand(ctx *commandContext) *cobra.Command {
	var profileFlag string
	var userFlag string
	var noMultipass bool

	cmd := &cobra.Command{
		Use:   "transcribe <video>",
		Short: "Transcribe a single video file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			source := strings.TrimSpace(args[0])
			if source == "" {
				return fmt.Errorf("video path must not be empty")
			}
			absolute, err := config.ExpandPath(source)
			if err != nil {
				return err
			}
			if _, err := os.Stat(absolute); err != nil {
				return fmt.Errorf("input file: %w", err)
			}

			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				if err := cfg.ApplyProfile(profileFlag); err != nil {
					return err
				}
				if noMultipass {
					cfg.Multipass.Enabled = false
				}

				logger, err := logging.NewFromConfig(cfg)
				if err != nil {
					return err
				}

				item, err := enqueueSource(cmd, store, absolute, profileFlag)
				if err != nil {
					return err
				}

				pipe, err := buildPipeline(cmd.Context(), cfg, store, logger, userFlag)
				if err != nil {
					return err
				}
				defer pipe.Close()

				runErr := pipe.manager.ProcessItem(cmd.Context(), item)

				final, getErr := store.GetByID(cmd.Context(), item.ID)
				if getErr != nil {
					return getErr
				}
				if final == nil {
					return fmt.Errorf("queue item %d disappeared during processing", item.ID)
				}

				out := cmd.OutOrStdout()
				if final.Status == queue.StatusCompleted {
					printResult(out, final)
					maybeOptimize(cmd.Context(), pipe, cfg, logger, userFlag)
					return nil
				}
				if runErr != nil {
					return fmt.Errorf("transcription failed: %w", runErr)
				}
				return fmt.Errorf("transcription ended in status %s: %s", final.Status, final.ErrorMessage)
			})
		},
	}

	cmd.Flags().StringVarP(&profileFlag, "profile", "p", "", "Processing profile: "+strings.Join(config.Profiles(), ", "))
	cmd.Flags().StringVarP(&userFlag, "user", "u", "", "User identity for adaptive learning")
	cmd.Flags().BoolVar(&noMultipass, "no-multipass", false, "Run a single transcription pass")
	return cmd
}

// enqueueSource reuses an existing queue entry for the file when one exists
// so repeated runs do not pile up duplicates.
func enqueueSource(cmd *cobra.Command, store *queue.Store, source, profile string) (*queue.Item, error) {
	existing, err := store.FindBySourcePath(cmd.Context(), source)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Status == queue.StatusFailed {
			if _, err := store.RetryFailed(cmd.Context(), existing.ID); err != nil {
				return nil, err
			}
			return store.GetByID(cmd.Context(), existing.ID)
		}
		return existing, nil
	}
	return store.NewFile(cmd.Context(), source, profile)
}

func printResult(out io.Writer, item *queue.Item) {
	fmt.Fprintf(out, "Transcribed %s\n", item.SourcePath)
	fmt.Fprintf(out, "  subtitles:  %s\n", item.SubtitleFile)
	fmt.Fprintf(out, "  transcript: %s\n", item.TranscriptFile)
	fmt.Fprintf(out, "  report:     %s\n", item.ReportFile)
	if item.NeedsReview {
		fmt.Fprintf(out, "  review:     %s\n", item.ReviewReason)
	}
	if result, err := report.ReadResult(item.ReportFile); err == nil {
		fmt.Fprintf(out, "  cues: %d  avg confidence: %.2f  corrections: %d\n",
			result.CueCount, result.AvgConfidence, len(result.Corrections))
	}
}
