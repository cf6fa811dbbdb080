package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"clipscribe/internal/config"
	"clipscribe/internal/logging"
	"clipscribe/internal/media/audio"
	"clipscribe/internal/vad"
)

func newVADCommand(ctx *commandContext) *cobra.Command {
	var profileFlag string

	cmd := &cobra.Command{
		Use:   "vad <wav>",
		Short: "Run speech detection on a WAV file and print the spans",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if err := cfg.ApplyProfile(profileFlag); err != nil {
				return err
			}

			path, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			clip, err := audio.ReadWAV(path)
			if err != nil {
				return fmt.Errorf("read wav: %w", err)
			}

			engine, err := vad.FromConfig(cfg.VAD, logging.NewNop())
			if err != nil {
				return fmt.Errorf("build detector: %w", err)
			}
			spans, err := engine.Detect(cmd.Context(), clip)
			if err != nil {
				return fmt.Errorf("detect speech: %w", err)
			}

			payload, err := json.MarshalIndent(spans, "", "  ")
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, string(payload))
			fmt.Fprintf(cmd.ErrOrStderr(), "%d spans, %.1fs speech in %.1fs audio\n",
				len(spans), vad.TotalSpeech(spans), clip.Duration())
			return nil
		},
	}

	cmd.Flags().StringVarP(&profileFlag, "profile", "p", "", "Processing profile: "+strings.Join(config.Profiles(), ", "))
	return cmd
}
