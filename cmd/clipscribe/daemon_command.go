package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/gofrs/flock"
	"github.com/spf13/cobra"

	"clipscribe/internal/config"
	"clipscribe/internal/logging"
	"clipscribe/internal/queue"
)

func newDaemonCommand(ctx *commandContext) *cobra.Command {
	daemonCmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the background transcription daemon",
	}

	var userFlag string
	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Process queued videos until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store *queue.Store) error {
				return runDaemon(cmd, cfg, store, userFlag)
			})
		},
	}
	runCmd.Flags().StringVarP(&userFlag, "user", "u", "", "User identity for adaptive learning")

	daemonCmd.AddCommand(runCmd)
	return daemonCmd
}

func runDaemon(cmd *cobra.Command, cfg *config.Config, store *queue.Store, user string) error {
	signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	lockPath := filepath.Join(cfg.Paths.LogDir, "clipscribed.lock")
	lock := flock.New(lockPath)
	locked, err := lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire daemon lock: %w", err)
	}
	if !locked {
		return errors.New("another clipscribe daemon is already running")
	}
	defer func() {
		_ = lock.Unlock()
	}()

	logger, err := logging.NewFromConfig(cfg)
	if err != nil {
		return err
	}
	logging.CleanupOldLogs(logger, cfg.Paths.LogDir, "clipscribe*.log", cfg.Logging.RetentionDays)

	pidPath := filepath.Join(cfg.Paths.LogDir, "clipscribed.pid")
	if err := writePIDFile(pidPath); err != nil {
		return fmt.Errorf("write pid file: %w", err)
	}
	defer os.Remove(pidPath)

	pipe, err := buildPipeline(signalCtx, cfg, store, logger, user)
	if err != nil {
		return err
	}
	defer pipe.Close()

	if err := pipe.manager.Start(signalCtx); err != nil {
		return fmt.Errorf("start workflow: %w", err)
	}
	logger.Info("clipscribe daemon started",
		logging.String("lock", lockPath),
		logging.String("queue_db", store.Path()),
	)
	fmt.Fprintln(cmd.OutOrStdout(), "Daemon running, press Ctrl+C to stop")

	<-signalCtx.Done()
	pipe.manager.Stop()
	logger.Info("clipscribe daemon stopped")
	return nil
}

func writePIDFile(path string) error {
	if path == "" {
		return nil
	}
	value := strconv.Itoa(os.Getpid()) + "\n"
	return os.WriteFile(path, []byte(value), 0o644)
}
