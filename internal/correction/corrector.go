package correction

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"clipscribe/internal/config"
	"clipscribe/internal/jargon"
	"clipscribe/internal/logging"
	"clipscribe/internal/queue"
	"clipscribe/internal/services"
	"clipscribe/internal/stage"
	"clipscribe/internal/subtitle"
)

const progressStageCorrecting = "Correcting jargon"

// CorrectionsFileName is the per-item corrections artifact consumed by the
// rendering stage when it builds the report.
const CorrectionsFileName = "corrections.json"

// Corrector applies the Argentine gaming jargon dictionary to the draft
// subtitles.
type Corrector struct {
	cfg       *config.Config
	logger    *slog.Logger
	corrector *jargon.Corrector
	dictErr   error
}

// NewCorrector constructs the jargon correction stage.
func NewCorrector(cfg *config.Config, logger *slog.Logger) *Corrector {
	base := logging.WithComponent(logger, "correction")

	corrector := &Corrector{cfg: cfg, logger: base}
	if !cfg.Jargon.Enabled {
		return corrector
	}

	dict, err := jargon.LoadDictionary(cfg.Jargon.DictionaryPath)
	if err != nil {
		corrector.dictErr = err
		base.Warn("jargon dictionary unavailable", logging.Error(err))
		return corrector
	}
	corrector.corrector = jargon.NewCorrector(dict, cfg.Jargon.MatchThreshold, base)
	return corrector
}

// SetLogger routes stage logs into the item-scoped logger.
func (c *Corrector) SetLogger(logger *slog.Logger) {
	if c == nil {
		return
	}
	c.logger = logging.WithComponent(logger, "correction")
}

// Prepare primes queue progress fields before executing the stage.
func (c *Corrector) Prepare(ctx context.Context, item *queue.Item) error {
	if c == nil || c.cfg == nil {
		return services.Wrap(services.ErrConfiguration, "correction", "prepare", "Correction stage is not configured", nil)
	}
	item.SetProgress(progressStageCorrecting, "Loading draft subtitles", 0)
	return nil
}

// Execute rewrites the draft subtitles with dictionary corrections. When the
// jargon stage is disabled the draft passes through untouched.
func (c *Corrector) Execute(ctx context.Context, item *queue.Item) error {
	if item == nil {
		return services.Wrap(services.ErrValidation, "correction", "execute", "Queue item is nil", nil)
	}
	if item.SubtitleFile == "" {
		return services.Wrap(services.ErrValidation, "correction", "execute",
			"No draft subtitles on item; rerun transcription", nil)
	}
	if c.dictErr != nil {
		return services.Wrap(services.ErrConfiguration, "correction", "load dictionary",
			"Jargon dictionary failed to load", c.dictErr)
	}

	start := time.Now()
	logger := logging.WithJob(c.logger, item.ID)

	if c.corrector == nil {
		item.SetProgressComplete(progressStageCorrecting, "Jargon correction disabled")
		logger.Debug("jargon correction disabled; draft passes through")
		return nil
	}

	cues, err := subtitle.ReadFile(item.SubtitleFile)
	if err != nil {
		return services.Wrap(services.ErrValidation, "correction", "read draft",
			"Draft subtitles are unreadable", err)
	}

	item.SetProgress(progressStageCorrecting, fmt.Sprintf("Correcting %d cues", len(cues)), 30)
	corrected, corrections := c.corrector.CorrectCues(cues)

	workDir, err := stage.ItemWorkDir(c.cfg, item)
	if err != nil {
		return err
	}
	correctedPath := filepath.Join(workDir, "corrected.srt")
	if err := subtitle.WriteFile(correctedPath, corrected); err != nil {
		return services.Wrap(services.ErrTransient, "correction", "write corrected",
			"Failed to write corrected subtitles", err)
	}
	item.SubtitleFile = correctedPath

	if err := writeCorrections(filepath.Join(workDir, CorrectionsFileName), corrections); err != nil {
		logger.Warn("failed to persist corrections artifact", logging.Error(err))
	}

	item.SetProgressComplete(progressStageCorrecting,
		fmt.Sprintf("%d corrections across %d cues", len(corrections), len(cues)))

	logger.Info("jargon correction complete",
		logging.Int("cues", len(cues)),
		logging.Int("corrections", len(corrections)),
		logging.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// HealthCheck reports whether the dictionary loaded.
func (c *Corrector) HealthCheck(ctx context.Context) stage.Health {
	if c.dictErr != nil {
		return stage.Unhealthy("correction", "jargon dictionary failed to load")
	}
	return stage.Healthy("correction")
}

func writeCorrections(path string, corrections []jargon.Correction) error {
	payload, err := json.MarshalIndent(corrections, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}

// ReadCorrections loads the corrections artifact written by Execute. A
// missing file returns an empty slice without error.
func ReadCorrections(workDir string) ([]jargon.Correction, error) {
	payload, err := os.ReadFile(filepath.Join(workDir, CorrectionsFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var corrections []jargon.Correction
	if err := json.Unmarshal(payload, &corrections); err != nil {
		return nil, err
	}
	return corrections, nil
}
