package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"clipscribe/internal/config"
	"clipscribe/internal/media/video"
	"clipscribe/internal/subtitle"
)

func newSubsCommand(ctx *commandContext) *cobra.Command {
	subsCmd := &cobra.Command{
		Use:   "subs",
		Short: "Standalone subtitle utilities",
		Annotations: map[string]string{
			"skipConfigLoad": "true",
		},
	}

	subsCmd.AddCommand(newSubsSplitCommand())
	subsCmd.AddCommand(newSubsSyncCommand())
	subsCmd.AddCommand(newSubsBurnCommand())
	return subsCmd
}

func newSubsBurnCommand() *cobra.Command {
	var outputFlag string
	var fontName string
	var fontSize int
	var outline int
	var margin int
	var vertical bool
	var box bool
	var crf int
	var preset string
	var copyAudio bool

	cmd := &cobra.Command{
		Use:   "burn <video> <srt>",
		Short: "Hardcode subtitles onto a video in a short-form style",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			videoPath, err := config.ExpandPath(args[0])
			if err != nil {
				return err
			}
			srtPath, err := config.ExpandPath(args[1])
			if err != nil {
				return err
			}
			if _, err := os.Stat(videoPath); err != nil {
				return fmt.Errorf("input video: %w", err)
			}
			if _, err := os.Stat(srtPath); err != nil {
				return fmt.Errorf("input subtitles: %w", err)
			}

			opts := video.DefaultOptions()
			opts.Style.FontName = fontName
			opts.Style.FontSize = fontSize
			opts.Style.Outline = outline
			opts.Style.BottomMargin = margin
			opts.Style.Box = box
			opts.Vertical = vertical
			opts.CRF = crf
			opts.Preset = preset
			opts.CopyAudio = copyAudio

			burner := video.NewBurner("")
			out, err := burner.Burn(cmd.Context(), videoPath, srtPath, outputFlag, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Burned %s onto %s -> %s\n", filepath.Base(srtPath), filepath.Base(videoPath), out)
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Output video path (default: <video>_tiktok.mp4)")
	cmd.Flags().StringVar(&fontName, "font", "Arial", "Subtitle font name")
	cmd.Flags().IntVar(&fontSize, "font-size", 68, "Subtitle font size")
	cmd.Flags().IntVar(&outline, "outline", 4, "Outline thickness in pixels")
	cmd.Flags().IntVar(&margin, "margin", 160, "Bottom margin in pixels")
	cmd.Flags().BoolVar(&vertical, "vertical", false, "Reframe to a 9:16 vertical canvas")
	cmd.Flags().BoolVar(&box, "box", false, "Draw a translucent box behind the text")
	cmd.Flags().IntVar(&crf, "crf", 20, "x264 quality (lower is better)")
	cmd.Flags().StringVar(&preset, "preset", "medium", "ffmpeg encoder preset")
	cmd.Flags().BoolVar(&copyAudio, "copy-audio", false, "Copy the audio stream instead of re-encoding")
	return cmd
}

func newSubsSplitCommand() *cobra.Command {
	var maxDuration float64
	var maxChars int
	var outputFlag string

	cmd := &cobra.Command{
		Use:   "split <srt>",
		Short: "Split overlong cues into readable pieces",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cues, path, err := loadCues(args[0])
			if err != nil {
				return err
			}
			split := subtitle.SplitLongCues(cues, maxDuration, maxChars)
			target := outputFlag
			if strings.TrimSpace(target) == "" {
				target = path
			}
			if err := subtitle.WriteFile(target, split); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d cues to %s (%d before split)\n", len(split), target, len(cues))
			return nil
		},
	}

	cmd.Flags().Float64Var(&maxDuration, "max-duration", 6.0, "Maximum cue duration in seconds")
	cmd.Flags().IntVar(&maxChars, "max-chars", 84, "Maximum characters per cue")
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Write to this path instead of rewriting in place")
	return cmd
}

func newSubsSyncCommand() *cobra.Command {
	var offset float64
	var speed float64
	var outputFlag string

	cmd := &cobra.Command{
		Use:   "sync <srt>",
		Short: "Shift or stretch subtitle timing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if speed <= 0 {
				return fmt.Errorf("--speed must be positive")
			}
			cues, path, err := loadCues(args[0])
			if err != nil {
				return err
			}
			adjusted := subtitle.AdjustTiming(cues, offset, speed)
			target := outputFlag
			if strings.TrimSpace(target) == "" {
				target = path
			}
			if err := subtitle.WriteFile(target, adjusted); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Adjusted %d cues (offset %+.2fs, speed %.3f) into %s\n", len(adjusted), offset, speed, target)
			return nil
		},
	}

	cmd.Flags().Float64Var(&offset, "offset", 0, "Seconds to shift every cue, negative shifts earlier")
	cmd.Flags().Float64Var(&speed, "speed", 1.0, "Timing multiplier, values over 1 slow the track down")
	cmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Write to this path instead of rewriting in place")
	return cmd
}

func loadCues(arg string) ([]subtitle.Cue, string, error) {
	path, err := config.ExpandPath(arg)
	if err != nil {
		return nil, "", err
	}
	cues, err := subtitle.ReadFile(path)
	if err != nil {
		return nil, "", fmt.Errorf("read subtitles: %w", err)
	}
	if len(cues) == 0 {
		return nil, "", fmt.Errorf("no cues found in %s", path)
	}
	return cues, path, nil
}
