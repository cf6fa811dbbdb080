package vad

import (
	"context"
	"math"
	"sort"

	"clipscribe/internal/media/audio"
)

const (
	energyFrameMs = 30
	// Flat confidence for energy spans. The detector has no probabilistic
	// output, so spans carry the same confidence the way the frame detector
	// does.
	energyConfidence = 0.6
)

// energyDetector classifies 30ms frames by RMS energy against an adaptive
// threshold derived from the clip's own noise floor. It is the always
// available fallback when neither the frame nor the silero detector can
// run.
type energyDetector struct {
	weight float64
	// sensitivity in (0,1]: lower values place the threshold closer to the
	// noise floor and admit quieter speech.
	sensitivity float64
}

func newEnergyDetector(weight, sensitivity float64) *energyDetector {
	if sensitivity <= 0 || sensitivity > 1 {
		sensitivity = 0.5
	}
	return &energyDetector{weight: weight, sensitivity: sensitivity}
}

func (d *energyDetector) Name() string    { return "energy" }
func (d *energyDetector) Weight() float64 { return d.weight }

func (d *energyDetector) Detect(ctx context.Context, clip audio.Clip) ([]Span, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if clip.SampleRate <= 0 || len(clip.Samples) == 0 {
		return nil, nil
	}

	frameSize := clip.SampleRate * energyFrameMs / 1000
	if frameSize <= 0 {
		return nil, nil
	}
	frameCount := len(clip.Samples) / frameSize
	if frameCount == 0 {
		return nil, nil
	}

	energies := make([]float64, frameCount)
	for i := 0; i < frameCount; i++ {
		frame := clip.Samples[i*frameSize : (i+1)*frameSize]
		energies[i] = rms(frame)
	}

	threshold := d.threshold(energies)
	frameSec := float64(frameSize) / float64(clip.SampleRate)

	var spans []Span
	start := -1
	for i, energy := range energies {
		active := energy >= threshold
		switch {
		case active && start < 0:
			start = i
		case !active && start >= 0:
			spans = append(spans, Span{
				Start:      float64(start) * frameSec,
				End:        float64(i) * frameSec,
				Confidence: energyConfidence,
				Source:     d.Name(),
			})
			start = -1
		}
	}
	if start >= 0 {
		spans = append(spans, Span{
			Start:      float64(start) * frameSec,
			End:        float64(frameCount) * frameSec,
			Confidence: energyConfidence,
			Source:     d.Name(),
		})
	}
	return spans, nil
}

// threshold places the decision boundary between the clip's noise floor
// (20th percentile frame energy) and its loud end (95th percentile),
// scaled by the configured sensitivity.
func (d *energyDetector) threshold(energies []float64) float64 {
	sorted := append([]float64(nil), energies...)
	sort.Float64s(sorted)
	floor := percentile(sorted, 0.20)
	loud := percentile(sorted, 0.95)
	if loud <= floor {
		return floor + 1e-6
	}
	return floor + (loud-floor)*d.sensitivity
}

func percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(p * float64(len(sorted)-1))
	return sorted[idx]
}

func rms(frame []float32) float64 {
	if len(frame) == 0 {
		return 0
	}
	sum := 0.0
	for _, sample := range frame {
		sum += float64(sample) * float64(sample)
	}
	return math.Sqrt(sum / float64(len(frame)))
}
