package detection

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"clipscribe/internal/config"
	"clipscribe/internal/logging"
	"clipscribe/internal/media/audio"
	"clipscribe/internal/queue"
	"clipscribe/internal/services"
	"clipscribe/internal/stage"
	"clipscribe/internal/vad"
)

const progressStageDetecting = "Detecting speech"

// Detector runs the hybrid VAD engine over the extracted audio and stores
// the detected speech spans on the queue item.
type Detector struct {
	cfg    *config.Config
	logger *slog.Logger
	engine *vad.Engine
}

// NewDetector constructs the speech detection stage. Engine construction
// failures surface through HealthCheck and Execute rather than here so the
// daemon can start with a partial stage set.
func NewDetector(cfg *config.Config, logger *slog.Logger) *Detector {
	base := logging.WithComponent(logger, "detection")
	engine, err := vad.FromConfig(cfg.VAD, base)
	if err != nil {
		base.Warn("vad engine unavailable", logging.Error(err))
		engine = nil
	}
	return &Detector{cfg: cfg, logger: base, engine: engine}
}

// SetLogger routes stage logs into the item-scoped logger.
func (d *Detector) SetLogger(logger *slog.Logger) {
	if d == nil {
		return
	}
	d.logger = logging.WithComponent(logger, "detection")
}

// Prepare primes queue progress fields before executing the stage.
func (d *Detector) Prepare(ctx context.Context, item *queue.Item) error {
	if d == nil || d.cfg == nil {
		return services.Wrap(services.ErrConfiguration, "detection", "prepare", "Detection stage is not configured", nil)
	}
	item.SetProgress(progressStageDetecting, "Loading extracted audio", 0)
	return nil
}

// Execute detects speech spans in the extracted WAV.
func (d *Detector) Execute(ctx context.Context, item *queue.Item) error {
	if item == nil {
		return services.Wrap(services.ErrValidation, "detection", "execute", "Queue item is nil", nil)
	}
	if d.engine == nil {
		return services.Wrap(services.ErrConfiguration, "detection", "execute",
			"No voice activity detectors are available", nil)
	}
	if item.AudioFile == "" {
		return services.Wrap(services.ErrValidation, "detection", "execute",
			"No extracted audio on item; rerun extraction", nil)
	}

	start := time.Now()
	logger := logging.WithJob(d.logger, item.ID)

	clip, err := audio.ReadWAV(item.AudioFile)
	if err != nil {
		return services.Wrap(services.ErrValidation, "detection", "read audio",
			"Extracted audio is unreadable", err)
	}

	engine := d.engine
	if d.cfg.VAD.GamingMode {
		item.SetProgress(progressStageDetecting, "Analyzing gaming context", 15)
		analysis := vad.AnalyzeContext(clip)
		logger.Info("gaming context classified",
			logging.String("context", string(analysis.Context)),
			logging.Float64("confidence", analysis.Confidence),
			logging.Float64("rms_energy", analysis.Features.RMSEnergy),
			logging.Float64("transient_density", analysis.Features.TransientDensity),
		)
		tunedCfg := vad.ApplyAdjustments(d.cfg.VAD, vad.RecommendAdjustments(analysis.Context, analysis.Features))
		if tuned, tuneErr := vad.FromConfig(tunedCfg, d.logger); tuneErr == nil {
			engine = tuned
		}
		if workDir, dirErr := stage.ItemWorkDir(d.cfg, item); dirErr == nil {
			if writeErr := writeContext(workDir, analysis); writeErr != nil {
				logger.Warn("failed to persist context artifact", logging.Error(writeErr))
			}
		}
	}

	item.SetProgress(progressStageDetecting, "Running hybrid voice activity detection", 30)
	spans, err := engine.Detect(ctx, clip)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "detection", "detect speech",
			"All voice activity detectors failed", err)
	}

	encoded, err := stage.EncodeSpeechSpans(spans)
	if err != nil {
		return err
	}
	item.SpeechSpansJSON = encoded

	speechSeconds := vad.TotalSpeech(spans)
	if len(spans) == 0 {
		item.NeedsReview = true
		item.ReviewReason = "no speech detected"
		logger.Warn("no speech detected in audio",
			logging.Float64("clip_seconds", clip.Duration()),
		)
	}

	item.SetProgressComplete(progressStageDetecting,
		fmt.Sprintf("%d speech spans (%.1fs speech)", len(spans), speechSeconds))

	logger.Info("speech detection complete",
		logging.Int("spans", len(spans)),
		logging.Float64("speech_seconds", speechSeconds),
		logging.Float64("clip_seconds", clip.Duration()),
		logging.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// HealthCheck reports whether any detectors could be constructed.
func (d *Detector) HealthCheck(ctx context.Context) stage.Health {
	if d.engine == nil {
		return stage.Unhealthy("detection", "no voice activity detectors available")
	}
	return stage.Healthy("detection")
}
