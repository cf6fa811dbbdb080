package extraction

import (
	"context"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"clipscribe/internal/config"
	"clipscribe/internal/logging"
	"clipscribe/internal/media/audio"
	"clipscribe/internal/media/ffprobe"
	"clipscribe/internal/queue"
	"clipscribe/internal/services"
	"clipscribe/internal/stage"
)

const progressStageExtracting = "Extracting audio"

// Extractor validates the source video and extracts a 16 kHz mono WAV for
// the downstream VAD and whisper stages.
type Extractor struct {
	cfg       *config.Config
	store     *queue.Store
	logger    *slog.Logger
	extractor *audio.Extractor
}

// NewExtractor constructs the audio extraction stage.
func NewExtractor(cfg *config.Config, store *queue.Store, logger *slog.Logger) *Extractor {
	return &Extractor{
		cfg:       cfg,
		store:     store,
		logger:    logging.WithComponent(logger, "extraction"),
		extractor: audio.NewExtractor(cfg.FFmpegBinary()),
	}
}

// SetLogger routes stage logs into the item-scoped logger.
func (e *Extractor) SetLogger(logger *slog.Logger) {
	if e == nil {
		return
	}
	e.logger = logging.WithComponent(logger, "extraction")
}

// WithAudioExtractor overrides the ffmpeg wrapper (used in tests).
func (e *Extractor) WithAudioExtractor(extractor *audio.Extractor) {
	e.extractor = extractor
}

// Prepare primes queue progress fields before executing the stage.
func (e *Extractor) Prepare(ctx context.Context, item *queue.Item) error {
	if e == nil || e.cfg == nil {
		return services.Wrap(services.ErrConfiguration, "extraction", "prepare", "Extraction stage is not configured", nil)
	}
	item.SetProgress(progressStageExtracting, "Validating source media", 0)
	return nil
}

// Execute probes the source file and extracts its primary audio track.
func (e *Extractor) Execute(ctx context.Context, item *queue.Item) error {
	if item == nil {
		return services.Wrap(services.ErrValidation, "extraction", "execute", "Queue item is nil", nil)
	}

	start := time.Now()
	logger := logging.WithJob(e.logger, item.ID)

	if _, err := os.Stat(item.SourcePath); err != nil {
		return services.Wrap(services.ErrNotFound, "extraction", "stat source",
			"Source file is missing or unreadable", err)
	}

	probe, err := ffprobe.Inspect(ctx, e.cfg.FFprobeBinary(), item.SourcePath)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "extraction", "probe source",
			"ffprobe failed to inspect the source file", err)
	}
	if err := probe.ValidateForTranscription(); err != nil {
		return services.Wrap(services.ErrValidation, "extraction", "validate source",
			"Source file is not transcribable", err)
	}

	item.MediaInfoJSON = string(probe.RawJSON())

	workDir, err := stage.ItemWorkDir(e.cfg, item)
	if err != nil {
		return err
	}

	item.SetProgress(progressStageExtracting, "Extracting 16 kHz mono audio", 40)
	wavPath, err := e.extractor.ExtractWAV(ctx, item.SourcePath, workDir)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "extraction", "extract audio",
			"ffmpeg failed to extract the audio track", err)
	}

	item.AudioFile = wavPath
	item.SetProgressComplete(progressStageExtracting, "Audio extracted")

	logger.Info("audio extracted",
		logging.String("audio_file", wavPath),
		logging.Float64("duration_seconds", probe.DurationSeconds()),
		logging.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// HealthCheck verifies the external ffmpeg and ffprobe binaries are
// resolvable.
func (e *Extractor) HealthCheck(ctx context.Context) stage.Health {
	for _, binary := range []string{e.cfg.FFmpegBinary(), e.cfg.FFprobeBinary()} {
		if _, err := exec.LookPath(binary); err != nil {
			return stage.Unhealthy("extraction", binary+" not found in PATH")
		}
	}
	return stage.Healthy("extraction")
}
