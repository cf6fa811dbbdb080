package vad

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"clipscribe/internal/config"
	"clipscribe/internal/logging"
	"clipscribe/internal/media/audio"
)

// Engine fuses spans from the configured detectors with weighted voting
// and applies the post-processing filters.
type Engine struct {
	detectors []Detector
	params    Params
	logger    *slog.Logger
}

// NewEngine builds an engine over an explicit detector set. The detector
// order is only cosmetic; fusion treats them symmetrically by weight.
func NewEngine(detectors []Detector, params Params, logger *slog.Logger) (*Engine, error) {
	if len(detectors) == 0 {
		return nil, fmt.Errorf("vad engine: at least one detector required")
	}
	if err := params.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Engine{detectors: detectors, params: params, logger: logger}, nil
}

// FromConfig wires the detector stack from configuration. The energy
// detector is always available; the frame detector drops out when the
// WebRTC VAD cannot initialize, and silero only runs when a helper binary
// is configured.
func FromConfig(cfg config.VAD, logger *slog.Logger) (*Engine, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	logger = logging.WithComponent(logger, "vad")

	detectors := []Detector{
		newEnergyDetector(cfg.EnergyWeight, cfg.EnergyThreshold),
	}
	if frame, err := newFrameDetector(cfg.FrameWeight, cfg.FrameAggressiveness); err != nil {
		logger.Warn("frame detector unavailable", logging.Error(err))
	} else {
		detectors = append(detectors, frame)
	}
	if binary := strings.TrimSpace(cfg.SileroBinary); binary != "" {
		detectors = append(detectors, newSileroDetector(binary, cfg.SileroThreshold, cfg.SileroWeight))
	}

	params := Params{
		MinSpeechSec:  float64(cfg.MinSpeechMs) / 1000,
		MinSilenceSec: float64(cfg.MinSilenceMs) / 1000,
		MergeGapSec:   float64(cfg.MergeGapMs) / 1000,
	}
	return NewEngine(detectors, params, logger)
}

// Detect runs every detector over the clip and fuses the results. A
// detector failure downgrades to a warning as long as at least one
// detector produced a usable answer.
func (e *Engine) Detect(ctx context.Context, clip audio.Clip) ([]Span, error) {
	weights := make(map[string]float64, len(e.detectors))
	var all []Span
	succeeded := 0
	for _, detector := range e.detectors {
		spans, err := detector.Detect(ctx, clip)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			e.logger.Warn("detector failed",
				logging.String("detector", detector.Name()),
				logging.Error(err))
			continue
		}
		succeeded++
		weights[detector.Name()] = detector.Weight()
		all = append(all, spans...)
	}
	if succeeded == 0 {
		return nil, fmt.Errorf("vad: all detectors failed")
	}

	fused := fuse(all, weights)
	result := e.postProcess(fused)
	e.logger.Debug("speech detection complete",
		logging.Int("detectors", succeeded),
		logging.Int("raw_spans", len(all)),
		logging.Int("spans", len(result)),
		logging.Float64("speech_seconds", TotalSpeech(result)))
	return result, nil
}

// fuse merges overlapping spans from different detectors into single spans
// whose confidence is the weight-averaged vote of the contributors.
func fuse(spans []Span, weights map[string]float64) []Span {
	if len(spans) <= 1 {
		return append([]Span(nil), spans...)
	}
	sorted := append([]Span(nil), spans...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Start < sorted[j].Start })

	var fused []Span
	group := []Span{sorted[0]}
	groupEnd := sorted[0].End
	for _, span := range sorted[1:] {
		if span.Start <= groupEnd {
			group = append(group, span)
			if span.End > groupEnd {
				groupEnd = span.End
			}
			continue
		}
		fused = append(fused, mergeGroup(group, weights))
		group = []Span{span}
		groupEnd = span.End
	}
	fused = append(fused, mergeGroup(group, weights))
	return fused
}

func mergeGroup(group []Span, weights map[string]float64) Span {
	if len(group) == 1 {
		return group[0]
	}
	merged := Span{Start: group[0].Start, End: group[0].End}
	totalWeight := 0.0
	weightedConfidence := 0.0
	best := group[0]
	for _, span := range group {
		if span.Start < merged.Start {
			merged.Start = span.Start
		}
		if span.End > merged.End {
			merged.End = span.End
		}
		weight, ok := weights[span.Source]
		if !ok {
			weight = 0.1
		}
		weightedConfidence += span.Confidence * weight
		totalWeight += weight
		if span.Confidence > best.Confidence {
			best = span
		}
	}
	if totalWeight > 0 {
		merged.Confidence = weightedConfidence / totalWeight
	} else {
		merged.Confidence = best.Confidence
	}
	merged.Source = "hybrid_" + best.Source
	return merged
}

// postProcess drops spans shorter than the speech floor and bridges gaps
// below the merge threshold, keeping the higher confidence of the joined
// pair.
func (e *Engine) postProcess(spans []Span) []Span {
	filtered := spans[:0:0]
	for _, span := range spans {
		if span.Duration() >= e.params.MinSpeechSec {
			filtered = append(filtered, span)
		}
	}
	if len(filtered) <= 1 || e.params.MergeGapSec <= 0 {
		return filtered
	}

	merged := []Span{filtered[0]}
	for _, next := range filtered[1:] {
		last := &merged[len(merged)-1]
		gap := next.Start - last.End
		if gap <= e.params.MergeGapSec {
			last.End = next.End
			if next.Confidence > last.Confidence {
				last.Confidence = next.Confidence
			}
			if !strings.HasPrefix(last.Source, "merged_") {
				last.Source = "merged_" + last.Source
			}
			continue
		}
		merged = append(merged, next)
	}
	return merged
}
