package multipass

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"clipscribe/internal/config"
	"clipscribe/internal/logging"
	"clipscribe/internal/services/whisper"
)

// DefaultMinGapSeconds is the silence length that triggers gap filling.
const DefaultMinGapSeconds = 1.0

// Transcriber runs the pass schedule and reduces the results to one cue
// track.
type Transcriber struct {
	service       *whisper.Service
	passes        []string
	maxChunkWords int
	gapFill       bool
	minGap        float64
	logger        *slog.Logger
}

// PassStats summarizes one pass for reporting.
type PassStats struct {
	Segments      int
	AvgConfidence float64
}

// Outcome is the final merged and chunked transcription.
type Outcome struct {
	Segments  []Segment
	PassStats map[string]PassStats
}

// New builds a transcriber from configuration. An empty pass list selects
// the full five-pass schedule.
func New(service *whisper.Service, cfg config.Multipass, logger *slog.Logger) (*Transcriber, error) {
	if service == nil {
		return nil, fmt.Errorf("multipass: whisper service required")
	}
	passes := cfg.Passes
	if len(passes) == 0 {
		passes = DefaultPasses
	}
	for _, pass := range passes {
		if !KnownPass(pass) {
			return nil, fmt.Errorf("multipass: unknown pass %q", pass)
		}
	}
	minGap := cfg.MinGapSeconds
	if minGap <= 0 {
		minGap = DefaultMinGapSeconds
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Transcriber{
		service:       service,
		passes:        passes,
		maxChunkWords: cfg.MaxChunkWords,
		gapFill:       cfg.GapFill,
		minGap:        minGap,
		logger:        logging.WithComponent(logger, "multipass"),
	}, nil
}

// Passes returns the configured pass schedule.
func (t *Transcriber) Passes() []string {
	return append([]string(nil), t.passes...)
}

// Transcribe runs every pass over the extracted audio sequentially (the
// passes contend for the same GPU) and merges the results.
func (t *Transcriber) Transcribe(ctx context.Context, source, workDir string) (Outcome, error) {
	var all []Segment
	stats := make(map[string]PassStats, len(t.passes))

	for _, pass := range t.passes {
		opts, err := PresetFor(pass)
		if err != nil {
			return Outcome{}, err
		}
		t.logger.Info("running transcription pass",
			logging.String(logging.FieldPass, pass),
			logging.String("model", t.service.Model()))

		result, err := t.service.Transcribe(ctx, source, filepath.Join(workDir, pass), opts)
		if err != nil {
			return Outcome{}, fmt.Errorf("pass %s: %w", pass, err)
		}
		segments := FromWhisper(pass, result.Segments)
		all = append(all, segments...)
		stats[pass] = summarize(segments)
		t.logger.Debug("pass complete",
			logging.String(logging.FieldPass, pass),
			logging.Int("segments", len(segments)),
			logging.Float64("avg_confidence", stats[pass].AvgConfidence))
	}

	merged := Merge(all)
	if t.gapFill {
		before := len(merged)
		merged = FillGaps(merged, all, t.minGap)
		if filled := len(merged) - before; filled > 0 {
			t.logger.Debug("gaps filled", logging.Int("fillers", filled))
		}
	}
	cues := Chunk(merged, t.maxChunkWords)

	t.logger.Info("multipass transcription complete",
		logging.Int("raw_segments", len(all)),
		logging.Int("merged_segments", len(merged)),
		logging.Int("cues", len(cues)))
	return Outcome{Segments: cues, PassStats: stats}, nil
}

func summarize(segments []Segment) PassStats {
	stats := PassStats{Segments: len(segments)}
	if len(segments) == 0 {
		return stats
	}
	total := 0.0
	for _, seg := range segments {
		total += seg.Confidence
	}
	stats.AvgConfidence = total / float64(len(segments))
	return stats
}
