package audio

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
)

// WhisperSampleRate is the sample rate every downstream consumer expects.
// Both the transcription CLI and the voice detectors operate on 16kHz mono.
const WhisperSampleRate = 16000

// Extractor converts arbitrary video or audio containers into the 16kHz
// mono PCM WAV layout the rest of the pipeline consumes.
type Extractor struct {
	binary        string
	commandRunner func(ctx context.Context, name string, args ...string) error
}

// NewExtractor creates an extractor using the given ffmpeg binary.
func NewExtractor(binary string) *Extractor {
	if strings.TrimSpace(binary) == "" {
		binary = "ffmpeg"
	}
	return &Extractor{binary: binary}
}

// WithCommandRunner sets a custom command runner (for testing).
func (e *Extractor) WithCommandRunner(runner func(ctx context.Context, name string, args ...string) error) {
	e.commandRunner = runner
}

// ExtractWAV decodes the first audio stream of source into destDir as
// <base>.wav. Existing files are overwritten.
func (e *Extractor) ExtractWAV(ctx context.Context, source, destDir string) (string, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return "", fmt.Errorf("extract audio: empty source")
	}
	if destDir == "" {
		destDir = filepath.Dir(source)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("extract audio: ensure dest dir: %w", err)
	}

	base := strings.TrimSuffix(filepath.Base(source), filepath.Ext(source))
	dest := filepath.Join(destDir, base+".wav")

	args := []string{
		"-hide_banner", "-loglevel", "error",
		"-y",
		"-i", source,
		"-vn",
		"-ac", "1",
		"-ar", strconv.Itoa(WhisperSampleRate),
		"-c:a", "pcm_s16le",
		dest,
	}
	if err := e.run(ctx, e.binary, args...); err != nil {
		return "", fmt.Errorf("extract audio: %w", err)
	}
	return dest, nil
}

func (e *Extractor) run(ctx context.Context, name string, args ...string) error {
	if e.commandRunner != nil {
		return e.commandRunner(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(string(output)))
	}
	return nil
}
