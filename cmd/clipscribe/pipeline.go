package main

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strings"

	"clipscribe/internal/config"
	"clipscribe/internal/correction"
	"clipscribe/internal/detection"
	"clipscribe/internal/extraction"
	"clipscribe/internal/learning"
	"clipscribe/internal/logging"
	"clipscribe/internal/queue"
	"clipscribe/internal/rendering"
	"clipscribe/internal/transcription"
	"clipscribe/internal/workflow"
)

// pipeline bundles a fully wired workflow manager with the resources it
// borrows so callers can release them when processing ends.
type pipeline struct {
	manager  *workflow.Manager
	learning *learning.Store
}

func (p *pipeline) Close() {
	if p.learning != nil {
		_ = p.learning.Close()
	}
}

// buildPipeline wires the five stage handlers into a workflow manager. The
// learning store is only opened when adaptive learning is enabled.
func buildPipeline(ctx context.Context, cfg *config.Config, store *queue.Store, logger *slog.Logger, userID string) (*pipeline, error) {
	if logger == nil {
		logger = logging.NewNop()
	}

	var learningStore *learning.Store
	if cfg.Learning.Enabled {
		opened, err := learning.Open(cfg, logger)
		if err != nil {
			return nil, fmt.Errorf("open learning store: %w", err)
		}
		learningStore = opened
		if cfg.Learning.ApplyOptimized {
			cfg = learnedVADConfig(ctx, learningStore, cfg, userID, logger)
		}
	}

	transcriber, err := transcription.NewTranscriber(cfg, logger)
	if err != nil {
		if learningStore != nil {
			_ = learningStore.Close()
		}
		return nil, fmt.Errorf("build transcriber: %w", err)
	}

	renderer := rendering.NewRenderer(cfg, learningStore, logger)
	renderer.SetUser(userID)

	manager := workflow.NewManager(cfg, store, logger, workflow.StageSet{
		Extractor:   extraction.NewExtractor(cfg, store, logger),
		Detector:    detection.NewDetector(cfg, logger),
		Transcriber: transcriber,
		Corrector:   correction.NewCorrector(cfg, logger),
		Renderer:    renderer,
	})

	return &pipeline{manager: manager, learning: learningStore}, nil
}

// learnedVADConfig overlays the user's learned optimal VAD parameters onto a
// copy of the configuration. Missing profiles and out-of-range values leave
// the configured defaults in place.
func learnedVADConfig(ctx context.Context, store *learning.Store, cfg *config.Config, userID string, logger *slog.Logger) *config.Config {
	if logger == nil {
		logger = logging.NewNop()
	}
	if userID = strings.TrimSpace(userID); userID == "" {
		userID = "default"
	}
	profile, err := store.GetProfile(ctx, userID)
	if err != nil {
		logger.Warn("learned parameters unavailable", logging.Error(err))
		return cfg
	}
	if profile == nil || len(profile.OptimalVADParameters) == 0 {
		return cfg
	}

	tuned := *cfg
	applied := 0
	if v, ok := profile.OptimalVADParameters[learning.ParamSileroThreshold]; ok && v > 0 && v <= 1 {
		tuned.VAD.SileroThreshold = v
		applied++
	}
	if v, ok := profile.OptimalVADParameters[learning.ParamEnergyThreshold]; ok && v > 0 && v <= 1 {
		tuned.VAD.EnergyThreshold = v
		applied++
	}
	if v, ok := profile.OptimalVADParameters[learning.ParamFrameAggressiveness]; ok && v >= 0 && v <= 3 {
		tuned.VAD.FrameAggressiveness = int(v + 0.5)
		applied++
	}
	if v, ok := profile.OptimalVADParameters[learning.ParamMinSpeechSec]; ok && v > 0 {
		tuned.VAD.MinSpeechMs = int(math.Round(v * 1000))
		applied++
	}
	if v, ok := profile.OptimalVADParameters[learning.ParamMergeGapSec]; ok && v >= 0 {
		tuned.VAD.MergeGapMs = int(math.Round(v * 1000))
		applied++
	}
	if applied == 0 {
		return cfg
	}
	logger.Info("applying learned VAD parameters",
		logging.String("user", userID),
		logging.Int("parameters", applied),
	)
	return &tuned
}

// maybeOptimize runs a periodic learning optimization after successful runs.
func maybeOptimize(ctx context.Context, p *pipeline, cfg *config.Config, logger *slog.Logger, userID string) {
	if p == nil || p.learning == nil {
		return
	}
	due, err := p.learning.ShouldOptimize(ctx, userID, cfg.Learning.MinSessions, cfg.Learning.OptimizeEverySessions)
	if err != nil || !due {
		return
	}
	if _, err := p.learning.Optimize(ctx, userID, learning.ObjectiveAccuracy, cfg.Learning.MinSessions); err != nil {
		logger.Warn("periodic optimization failed", logging.Error(err))
	}
}
