package transcription

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"clipscribe/internal/config"
	"clipscribe/internal/logging"
	"clipscribe/internal/multipass"
	"clipscribe/internal/queue"
	"clipscribe/internal/services"
	"clipscribe/internal/services/whisper"
	"clipscribe/internal/stage"
	"clipscribe/internal/subtitle"
)

const progressStageTranscribing = "Transcribing"

// StatsFileName is the per-item transcription stats artifact consumed by the
// rendering stage when it builds the report.
const StatsFileName = "transcription.json"

// Stats is persisted to the item work dir after a successful transcription.
type Stats struct {
	Passes        map[string]PassStat `json:"passes"`
	Segments      int                 `json:"segments"`
	AvgConfidence float64             `json:"avg_confidence"`
	SpeechSeconds float64             `json:"speech_seconds"`
	Elapsed       float64             `json:"elapsed_seconds"`
}

// PassStat mirrors multipass.PassStats with JSON tags.
type PassStat struct {
	Segments      int     `json:"segments"`
	AvgConfidence float64 `json:"avg_confidence"`
}

// Transcriber runs the multipass whisper schedule and renders the merged
// segments into a draft subtitle track.
type Transcriber struct {
	cfg     *config.Config
	logger  *slog.Logger
	service *whisper.Service
	runner  *multipass.Transcriber
}

// NewTranscriber constructs the transcription stage.
func NewTranscriber(cfg *config.Config, logger *slog.Logger) (*Transcriber, error) {
	base := logging.WithComponent(logger, "transcription")

	service := whisper.NewService(whisper.Config{
		Binary:        cfg.Whisper.Binary,
		Model:         cfg.Whisper.Model,
		Device:        cfg.Whisper.Device,
		ComputeType:   cfg.Whisper.ComputeType,
		Language:      cfg.Whisper.Language,
		InitialPrompt: PromptFor(cfg.Whisper.Prompt),
	})

	mpCfg := cfg.Multipass
	if !mpCfg.Enabled && len(mpCfg.Passes) == 0 {
		mpCfg.Passes = []string{multipass.PassAggressive}
	}
	runner, err := multipass.New(service, mpCfg, base)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "transcription", "configure passes",
			"Invalid multipass configuration", err)
	}

	return &Transcriber{cfg: cfg, logger: base, service: service, runner: runner}, nil
}

// PromptFor resolves the configured prompt selection to prompt text.
func PromptFor(selection string) string {
	switch selection {
	case "long":
		return whisper.ConversationalPrompt
	case "none":
		return ""
	default:
		return whisper.KeywordPrompt
	}
}

// SetLogger routes stage logs into the item-scoped logger.
func (t *Transcriber) SetLogger(logger *slog.Logger) {
	if t == nil {
		return
	}
	t.logger = logging.WithComponent(logger, "transcription")
}

// Service exposes the underlying whisper service (used in tests to inject a
// command runner).
func (t *Transcriber) Service() *whisper.Service {
	return t.service
}

// Prepare primes queue progress fields before executing the stage.
func (t *Transcriber) Prepare(ctx context.Context, item *queue.Item) error {
	if t == nil || t.cfg == nil {
		return services.Wrap(services.ErrConfiguration, "transcription", "prepare", "Transcription stage is not configured", nil)
	}
	item.SetProgress(progressStageTranscribing,
		fmt.Sprintf("Running %d whisper passes", len(t.runner.Passes())), 0)
	return nil
}

// Execute runs the pass schedule over the extracted audio and writes the
// draft subtitle track plus a stats artifact to the item work dir.
func (t *Transcriber) Execute(ctx context.Context, item *queue.Item) error {
	if item == nil {
		return services.Wrap(services.ErrValidation, "transcription", "execute", "Queue item is nil", nil)
	}
	if item.AudioFile == "" {
		return services.Wrap(services.ErrValidation, "transcription", "execute",
			"No extracted audio on item; rerun extraction", nil)
	}

	start := time.Now()
	logger := logging.WithJob(t.logger, item.ID)

	workDir, err := stage.ItemWorkDir(t.cfg, item)
	if err != nil {
		return err
	}

	runCtx := ctx
	if t.cfg.Whisper.TimeoutSeconds > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, time.Duration(t.cfg.Whisper.TimeoutSeconds)*time.Second)
		defer cancel()
	}

	outcome, err := t.runner.Transcribe(runCtx, item.AudioFile, filepath.Join(workDir, "passes"))
	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return services.Wrap(services.ErrTimeout, "transcription", "run passes",
				"Whisper passes exceeded the configured timeout", err)
		}
		return services.Wrap(services.ErrExternalTool, "transcription", "run passes",
			"faster-whisper failed", err)
	}

	cues := CuesFromSegments(outcome.Segments)
	draftPath := filepath.Join(workDir, "draft.srt")
	if err := subtitle.WriteFile(draftPath, cues); err != nil {
		return services.Wrap(services.ErrTransient, "transcription", "write draft",
			"Failed to write draft subtitles", err)
	}
	item.SubtitleFile = draftPath

	stats := buildStats(outcome, time.Since(start))
	if err := writeStats(filepath.Join(workDir, StatsFileName), stats); err != nil {
		logger.Warn("failed to persist transcription stats", logging.Error(err))
	}

	item.SetProgressComplete(progressStageTranscribing,
		fmt.Sprintf("%d cues from %d passes", len(cues), len(t.runner.Passes())))

	logger.Info("transcription complete",
		logging.Int("cues", len(cues)),
		logging.Int("passes", len(t.runner.Passes())),
		logging.Float64("avg_confidence", stats.AvgConfidence),
		logging.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// HealthCheck verifies the whisper binary is resolvable.
func (t *Transcriber) HealthCheck(ctx context.Context) stage.Health {
	binary := t.cfg.Whisper.Binary
	if binary == "" {
		binary = "faster-whisper"
	}
	if _, err := exec.LookPath(binary); err != nil {
		return stage.Unhealthy("transcription", binary+" not found in PATH")
	}
	return stage.Healthy("transcription")
}

// CuesFromSegments converts merged multipass segments into subtitle cues.
func CuesFromSegments(segments []multipass.Segment) []subtitle.Cue {
	cues := make([]subtitle.Cue, 0, len(segments))
	for i, segment := range segments {
		cues = append(cues, subtitle.Cue{
			Index: i + 1,
			Start: segment.Start,
			End:   segment.End,
			Text:  segment.Text,
		})
	}
	return cues
}

func buildStats(outcome multipass.Outcome, elapsed time.Duration) Stats {
	stats := Stats{
		Passes:   make(map[string]PassStat, len(outcome.PassStats)),
		Segments: len(outcome.Segments),
		Elapsed:  elapsed.Seconds(),
	}
	total := 0.0
	for _, segment := range outcome.Segments {
		total += segment.Confidence
		stats.SpeechSeconds += segment.Duration()
	}
	if len(outcome.Segments) > 0 {
		stats.AvgConfidence = total / float64(len(outcome.Segments))
	}
	for pass, passStats := range outcome.PassStats {
		stats.Passes[pass] = PassStat{
			Segments:      passStats.Segments,
			AvgConfidence: passStats.AvgConfidence,
		}
	}
	return stats
}

func writeStats(path string, stats Stats) error {
	payload, err := json.MarshalIndent(stats, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, payload, 0o644)
}

// ReadStats loads the stats artifact written by Execute. A missing file
// returns zero stats without error so rendering can proceed.
func ReadStats(workDir string) (Stats, error) {
	payload, err := os.ReadFile(filepath.Join(workDir, StatsFileName))
	if err != nil {
		if os.IsNotExist(err) {
			return Stats{}, nil
		}
		return Stats{}, err
	}
	var stats Stats
	if err := json.Unmarshal(payload, &stats); err != nil {
		return Stats{}, err
	}
	return stats, nil
}
