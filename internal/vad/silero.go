package vad

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"

	"clipscribe/internal/media/audio"
)

// Flat confidence for silero spans when the helper does not report one.
const sileroDefaultConfidence = 0.8

// sileroDetector shells out to a silero-vad helper that reads a WAV file
// and prints JSON spans on stdout. The neural detector is the strongest of
// the three and carries the highest fusion weight.
type sileroDetector struct {
	binary    string
	threshold float64
	weight    float64

	commandOutput func(ctx context.Context, name string, args ...string) ([]byte, error)
}

type sileroSpan struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
}

func newSileroDetector(binary string, threshold, weight float64) *sileroDetector {
	return &sileroDetector{binary: binary, threshold: threshold, weight: weight}
}

func (d *sileroDetector) Name() string    { return "silero" }
func (d *sileroDetector) Weight() float64 { return d.weight }

func (d *sileroDetector) Detect(ctx context.Context, clip audio.Clip) ([]Span, error) {
	if strings.TrimSpace(clip.Path) == "" {
		return nil, fmt.Errorf("silero: clip has no backing file")
	}

	args := []string{clip.Path}
	if d.threshold > 0 {
		args = append(args, "--threshold", strconv.FormatFloat(d.threshold, 'g', -1, 64))
	}
	output, err := d.output(ctx, d.binary, args...)
	if err != nil {
		return nil, fmt.Errorf("silero: %w", err)
	}

	var raw []sileroSpan
	if err := json.Unmarshal(bytes.TrimSpace(output), &raw); err != nil {
		return nil, fmt.Errorf("silero: parse output: %w", err)
	}

	spans := make([]Span, 0, len(raw))
	for _, span := range raw {
		confidence := span.Confidence
		if confidence <= 0 {
			confidence = sileroDefaultConfidence
		}
		spans = append(spans, Span{
			Start:      span.Start,
			End:        span.End,
			Confidence: confidence,
			Source:     d.Name(),
		})
	}
	return spans, nil
}

func (d *sileroDetector) output(ctx context.Context, name string, args ...string) ([]byte, error) {
	if d.commandOutput != nil {
		return d.commandOutput(ctx, name, args...)
	}
	cmd := exec.CommandContext(ctx, name, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %s", name, err, strings.TrimSpace(stderr.String()))
	}
	return output, nil
}
