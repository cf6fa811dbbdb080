package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"clipscribe/internal/config"
	"clipscribe/internal/logging"
	"clipscribe/internal/queue"
	"clipscribe/internal/report"
)

func newBatchCommand(ctx *commandContext) *cobra.Command {
	var profileFlag string
	var userFlag string
	var concurrencyFlag int

	cmd := &cobra.Command{
		Use:   "batch <glob>",
		Short: "Transcribe every video matching a glob pattern",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			matches, err := filepath.Glob(args[0])
			if err != nil {
				return fmt.Errorf("invalid glob pattern: %w", err)
			}
			if len(matches) == 0 {
				return fmt.Errorf("no files match %q", args[0])
			}
			sort.Strings(matches)

			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				if err := cfg.ApplyProfile(profileFlag); err != nil {
					return err
				}

				logger, err := logging.NewFromConfig(cfg)
				if err != nil {
					return err
				}

				concurrency := concurrencyFlag
				if concurrency <= 0 {
					concurrency = cfg.Workflow.BatchConcurrency
				}
				if concurrency <= 0 {
					concurrency = 1
				}

				journal, err := report.NewJournal(filepath.Join(cfg.Paths.OutputDir, "batch.journal"))
				if err != nil {
					return err
				}

				summary := report.Summary{
					Started:     time.Now().UTC(),
					OutputDir:   cfg.Paths.OutputDir,
					ProfileUsed: profileFlag,
					JournalFile: journal.Path(),
				}
				var summaryMu sync.Mutex

				group, groupCtx := errgroup.WithContext(cmd.Context())
				group.SetLimit(concurrency)

				for _, source := range matches {
					group.Go(func() error {
						result := processBatchFile(groupCtx, cfg, store, logger, source, profileFlag, userFlag)
						if result.Success {
							_ = journal.Success(source, result.SubtitleFile)
						} else {
							_ = journal.Error(source, result.Error)
						}
						summaryMu.Lock()
						summary.Add(result)
						summaryMu.Unlock()
						return nil
					})
				}
				if err := group.Wait(); err != nil {
					return err
				}

				summary.Finished = time.Now().UTC()
				summaryPath := filepath.Join(cfg.Paths.OutputDir, "batch-summary.json")
				if err := report.WriteSummary(summaryPath, summary); err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Processed %d files: %d succeeded, %d failed\n",
					summary.Total, summary.Succeeded, summary.Failed)
				fmt.Fprintf(out, "Summary: %s\n", summaryPath)
				if summary.Failed > 0 {
					return fmt.Errorf("%d of %d files failed", summary.Failed, summary.Total)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&profileFlag, "profile", "p", "", "Processing profile: "+strings.Join(config.Profiles(), ", "))
	cmd.Flags().StringVarP(&userFlag, "user", "u", "", "User identity for adaptive learning")
	cmd.Flags().IntVar(&concurrencyFlag, "concurrency", 0, "Number of files to process in parallel (default from config)")
	return cmd
}

// processBatchFile runs one file through the whole pipeline. Each worker gets
// its own stage handlers because handlers carry per-item logging state.
func processBatchFile(ctx context.Context, cfg *config.Config, store *queue.Store, logger *slog.Logger, source, profile, user string) report.Result {
	failure := func(err error) report.Result {
		return report.Result{
			Source:  source,
			Success: false,
			Error:   err.Error(),
		}
	}

	absolute, err := config.ExpandPath(source)
	if err != nil {
		return failure(err)
	}

	item, err := store.FindBySourcePath(ctx, absolute)
	if err != nil {
		return failure(err)
	}
	if item == nil {
		item, err = store.NewFile(ctx, absolute, profile)
		if err != nil {
			return failure(err)
		}
	}

	pipe, err := buildPipeline(ctx, cfg, store, logger, user)
	if err != nil {
		return failure(err)
	}
	defer pipe.Close()

	runErr := pipe.manager.ProcessItem(ctx, item)

	final, getErr := store.GetByID(ctx, item.ID)
	if getErr != nil {
		return failure(getErr)
	}
	if final == nil || final.Status != queue.StatusCompleted {
		if runErr != nil {
			return failure(runErr)
		}
		message := "processing did not complete"
		if final != nil && final.ErrorMessage != "" {
			message = final.ErrorMessage
		}
		return report.Result{Source: source, Success: false, Error: message}
	}

	result, readErr := report.ReadResult(final.ReportFile)
	if readErr != nil {
		result = report.Result{Source: source, Success: true, SubtitleFile: final.SubtitleFile}
	}
	return result
}
