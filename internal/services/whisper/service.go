package whisper

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// Service runs the faster-whisper CLI against extracted audio.
type Service struct {
	cfg           Config
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewService creates a whisper service with the given configuration.
func NewService(cfg Config) *Service {
	if cfg.Binary == "" {
		cfg.Binary = defaultBinary
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Device == "" {
		cfg.Device = defaultDevice
	}
	if cfg.ComputeType == "" {
		cfg.ComputeType = defaultComputeType
	}
	return &Service{cfg: cfg}
}

// WithCommandRunner sets a custom command runner (for testing).
func (s *Service) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	s.commandRunner = runner
}

// Model returns the configured model name for logging.
func (s *Service) Model() string {
	return s.cfg.Model
}

// Result describes the artifacts of one transcription pass.
type Result struct {
	// Segments are the decoded segments with timing and confidence data.
	Segments []Segment
	// JSONPath is the CLI's raw JSON output file.
	JSONPath string
}

// Transcribe runs one pass over a WAV file and parses the JSON output.
// outputDir is where the CLI writes its artifacts; the JSON file is derived
// from the source base name.
func (s *Service) Transcribe(ctx context.Context, source, outputDir string, opts PassOptions) (Result, error) {
	var result Result

	if source == "" {
		return result, fmt.Errorf("transcribe: source path required")
	}
	if outputDir == "" {
		outputDir = filepath.Dir(source)
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return result, fmt.Errorf("transcribe: ensure output dir: %w", err)
	}

	args := s.buildArgs(source, outputDir, opts)
	if err := s.run(ctx, s.cfg.Binary, args...); err != nil {
		return result, fmt.Errorf("whisper: %w", err)
	}

	baseName := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	result.JSONPath = filepath.Join(outputDir, baseName+".json")

	segments, err := LoadSegments(result.JSONPath)
	if err != nil {
		return result, fmt.Errorf("whisper: load output: %w", err)
	}
	result.Segments = segments
	return result, nil
}

func (s *Service) run(ctx context.Context, name string, args ...string) error {
	if s.commandRunner != nil {
		return s.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// buildArgs constructs the CLI argument vector for one pass.
func (s *Service) buildArgs(source, outputDir string, opts PassOptions) []string {
	args := make([]string, 0, 48)

	args = append(args,
		source,
		"--model", s.cfg.Model,
		"--device", s.cfg.Device,
		"--compute_type", s.cfg.ComputeType,
		"--output_dir", outputDir,
		"--output_format", "json",
	)

	if s.cfg.Language != "" {
		args = append(args, "--language", s.cfg.Language)
	}
	if s.cfg.InitialPrompt != "" {
		args = append(args, "--initial_prompt", s.cfg.InitialPrompt)
	}

	if opts.BeamSize > 0 {
		args = append(args, "--beam_size", strconv.Itoa(opts.BeamSize))
	}
	if opts.BestOf > 0 {
		args = append(args, "--best_of", strconv.Itoa(opts.BestOf))
	}
	if opts.Patience > 0 {
		args = append(args, "--patience", formatFloat(opts.Patience))
	}
	if opts.LengthPenalty > 0 {
		args = append(args, "--length_penalty", formatFloat(opts.LengthPenalty))
	}
	if opts.RepetitionPenalty > 0 {
		args = append(args, "--repetition_penalty", formatFloat(opts.RepetitionPenalty))
	}
	if opts.NoRepeatNgramSize > 0 {
		args = append(args, "--no_repeat_ngram_size", strconv.Itoa(opts.NoRepeatNgramSize))
	}
	if len(opts.Temperatures) > 0 {
		parts := make([]string, 0, len(opts.Temperatures))
		for _, temp := range opts.Temperatures {
			parts = append(parts, formatFloat(temp))
		}
		args = append(args, "--temperature", strings.Join(parts, ","))
	}
	if opts.CompressionRatioThreshold > 0 {
		args = append(args, "--compression_ratio_threshold", formatFloat(opts.CompressionRatioThreshold))
	}
	if opts.LogProbThreshold != 0 {
		args = append(args, "--logprob_threshold", formatFloat(opts.LogProbThreshold))
	}
	if opts.NoSpeechThreshold > 0 {
		args = append(args, "--no_speech_threshold", formatFloat(opts.NoSpeechThreshold))
	}

	if opts.WordTimestamps {
		args = append(args, "--word_timestamps", "True")
	}
	if opts.ConditionOnPrior {
		args = append(args, "--condition_on_previous_text", "True")
	}

	args = append(args, "--vad_filter", "True")
	if opts.VADThreshold > 0 {
		args = append(args, "--vad_threshold", formatFloat(opts.VADThreshold))
	}
	if opts.MinSpeechMs > 0 {
		args = append(args, "--vad_min_speech_duration_ms", strconv.Itoa(opts.MinSpeechMs))
	}
	if opts.MinSilenceMs > 0 {
		args = append(args, "--vad_min_silence_duration_ms", strconv.Itoa(opts.MinSilenceMs))
	}
	if opts.SpeechPadMs > 0 {
		args = append(args, "--vad_speech_pad_ms", strconv.Itoa(opts.SpeechPadMs))
	}

	return args
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
