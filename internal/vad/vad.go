package vad

import (
	"context"
	"fmt"

	"clipscribe/internal/media/audio"
)

// Span is one stretch of detected speech.
type Span struct {
	Start      float64 `json:"start"`
	End        float64 `json:"end"`
	Confidence float64 `json:"confidence"`
	// Source names the detector that produced the span. Fused spans carry
	// a hybrid_<detector> label naming the highest-confidence contributor.
	Source string `json:"source,omitempty"`
}

// Duration returns the span length in seconds.
func (s Span) Duration() float64 {
	return s.End - s.Start
}

func (s Span) overlaps(other Span) bool {
	return !(s.End < other.Start || other.End < s.Start)
}

// TotalSpeech sums the durations of all spans.
func TotalSpeech(spans []Span) float64 {
	total := 0.0
	for _, span := range spans {
		total += span.Duration()
	}
	return total
}

// Detector produces speech spans for a clip. Detectors that cannot run in
// the current environment return an error from their constructor and are
// skipped by the engine.
type Detector interface {
	Name() string
	Weight() float64
	Detect(ctx context.Context, clip audio.Clip) ([]Span, error)
}

// Params are the fusion and post-processing knobs.
type Params struct {
	MinSpeechSec  float64
	MinSilenceSec float64
	MergeGapSec   float64
}

func (p Params) validate() error {
	if p.MinSpeechSec < 0 || p.MinSilenceSec < 0 || p.MergeGapSec < 0 {
		return fmt.Errorf("vad params: durations must be non-negative")
	}
	return nil
}
