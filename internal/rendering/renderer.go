package rendering

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"clipscribe/internal/config"
	"clipscribe/internal/correction"
	"clipscribe/internal/detection"
	"clipscribe/internal/jargon"
	"clipscribe/internal/learning"
	"clipscribe/internal/logging"
	"clipscribe/internal/media/ffprobe"
	"clipscribe/internal/queue"
	"clipscribe/internal/report"
	"clipscribe/internal/services"
	"clipscribe/internal/stage"
	"clipscribe/internal/subtitle"
	"clipscribe/internal/transcription"
	"clipscribe/internal/vad"
)

const progressStageRendering = "Rendering output"

// Renderer finalizes a job: validates the corrected subtitles, writes the
// SRT, transcript, and report into the output directory, and records a
// learning session.
type Renderer struct {
	cfg      *config.Config
	logger   *slog.Logger
	learning *learning.Store
	userID   string
}

// NewRenderer constructs the rendering stage. The learning store may be nil
// when adaptive learning is disabled.
func NewRenderer(cfg *config.Config, learningStore *learning.Store, logger *slog.Logger) *Renderer {
	return &Renderer{
		cfg:      cfg,
		logger:   logging.WithComponent(logger, "rendering"),
		learning: learningStore,
		userID:   "default",
	}
}

// SetLogger routes stage logs into the item-scoped logger.
func (r *Renderer) SetLogger(logger *slog.Logger) {
	if r == nil {
		return
	}
	r.logger = logging.WithComponent(logger, "rendering")
}

// SetUser attributes learning sessions to a specific user.
func (r *Renderer) SetUser(userID string) {
	if userID = strings.TrimSpace(userID); userID != "" {
		r.userID = userID
	}
}

// Prepare primes queue progress fields before executing the stage.
func (r *Renderer) Prepare(ctx context.Context, item *queue.Item) error {
	if r == nil || r.cfg == nil {
		return services.Wrap(services.ErrConfiguration, "rendering", "prepare", "Rendering stage is not configured", nil)
	}
	item.SetProgress(progressStageRendering, "Validating subtitles", 0)
	return nil
}

// Execute validates and publishes the final artifacts.
func (r *Renderer) Execute(ctx context.Context, item *queue.Item) error {
	if item == nil {
		return services.Wrap(services.ErrValidation, "rendering", "execute", "Queue item is nil", nil)
	}
	if item.SubtitleFile == "" {
		return services.Wrap(services.ErrValidation, "rendering", "execute",
			"No subtitles on item; rerun transcription", nil)
	}

	start := time.Now()
	logger := logging.WithJob(r.logger, item.ID)

	cues, err := subtitle.ReadFile(item.SubtitleFile)
	if err != nil {
		return services.Wrap(services.ErrValidation, "rendering", "read subtitles",
			"Corrected subtitles are unreadable", err)
	}

	videoSeconds := r.mediaDuration(item)
	issues := subtitle.Validate(cues, videoSeconds)
	if len(issues) > 0 {
		item.NeedsReview = true
		if item.ReviewReason == "" {
			item.ReviewReason = strings.Join(issues, ", ")
		}
		logger.Warn("subtitle validation issues",
			logging.Int("issues", len(issues)),
			logging.String("detail", strings.Join(issues, ", ")),
		)
	}

	if err := os.MkdirAll(r.cfg.Paths.OutputDir, 0o755); err != nil {
		return services.Wrap(services.ErrConfiguration, "rendering", "ensure output dir",
			"Failed to create output directory", err)
	}

	base := outputBaseName(item)
	srtPath := filepath.Join(r.cfg.Paths.OutputDir, base+".srt")
	txtPath := filepath.Join(r.cfg.Paths.OutputDir, base+".txt")
	reportPath := filepath.Join(r.cfg.Paths.OutputDir, base+".report.json")

	item.SetProgress(progressStageRendering, "Writing subtitles and transcript", 40)
	if err := subtitle.WriteFile(srtPath, cues); err != nil {
		return services.Wrap(services.ErrTransient, "rendering", "write srt",
			"Failed to write final subtitles", err)
	}
	if err := os.WriteFile(txtPath, []byte(subtitle.PlainText(cues)+"\n"), 0o644); err != nil {
		return services.Wrap(services.ErrTransient, "rendering", "write transcript",
			"Failed to write transcript", err)
	}

	workDir, err := stage.ItemWorkDir(r.cfg, item)
	if err != nil {
		return err
	}
	stats, statsErr := transcription.ReadStats(workDir)
	if statsErr != nil {
		logger.Warn("transcription stats unreadable", logging.Error(statsErr))
	}
	corrections, corrErr := correction.ReadCorrections(workDir)
	if corrErr != nil {
		logger.Warn("corrections artifact unreadable", logging.Error(corrErr))
	}
	gameContext, ctxErr := detection.ReadContext(workDir)
	if ctxErr != nil {
		logger.Warn("context artifact unreadable", logging.Error(ctxErr))
	}

	result := buildResult(item, cues, stats, corrections, issues, videoSeconds)
	result.Context = gameContext.Context
	result.ContextConfidence = gameContext.Confidence
	result.SubtitleFile = srtPath
	result.TranscriptFile = txtPath
	if err := report.WriteResult(reportPath, result); err != nil {
		return services.Wrap(services.ErrTransient, "rendering", "write report",
			"Failed to write report", err)
	}

	item.SubtitleFile = srtPath
	item.TranscriptFile = txtPath
	item.ReportFile = reportPath
	item.Status = queue.StatusCompleted
	item.SetProgressComplete(progressStageRendering,
		fmt.Sprintf("%d cues rendered", len(cues)))

	r.recordSession(ctx, logger, item, result, stats)

	logger.Info("rendering complete",
		logging.String("subtitle_file", srtPath),
		logging.String("report_file", reportPath),
		logging.Int("cues", len(cues)),
		logging.Duration("elapsed", time.Since(start)),
	)
	return nil
}

// HealthCheck verifies the output directory is writable.
func (r *Renderer) HealthCheck(ctx context.Context) stage.Health {
	if err := os.MkdirAll(r.cfg.Paths.OutputDir, 0o755); err != nil {
		return stage.Unhealthy("rendering", "output directory not writable")
	}
	return stage.Healthy("rendering")
}

func (r *Renderer) mediaDuration(item *queue.Item) float64 {
	if strings.TrimSpace(item.MediaInfoJSON) == "" {
		return 0
	}
	var probe ffprobe.Result
	if err := json.Unmarshal([]byte(item.MediaInfoJSON), &probe); err != nil {
		return 0
	}
	seconds := probe.DurationSeconds()
	if math.IsNaN(seconds) || seconds < 0 {
		return 0
	}
	return seconds
}

func outputBaseName(item *queue.Item) string {
	base := filepath.Base(item.SourcePath)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	if base == "" || base == "." {
		base = fmt.Sprintf("job-%d", item.ID)
	}
	return base
}

func buildResult(item *queue.Item, cues []subtitle.Cue, stats transcription.Stats, corrections []jargon.Correction, issues []string, videoSeconds float64) report.Result {
	result := report.Result{
		Source:            item.SourcePath,
		Title:             item.Title,
		Profile:           item.Profile,
		Success:           true,
		DurationSeconds:   videoSeconds,
		SpeechSeconds:     stats.SpeechSeconds,
		CueCount:          len(cues),
		AvgConfidence:     stats.AvgConfidence,
		ValidationIssues:  issues,
		ProcessingSeconds: stats.Elapsed,
	}
	for pass, passStats := range stats.Passes {
		result.PassStats = append(result.PassStats, report.PassStat{
			Pass:          pass,
			Segments:      passStats.Segments,
			AvgConfidence: passStats.AvgConfidence,
		})
	}
	sort.Slice(result.PassStats, func(i, j int) bool {
		return result.PassStats[i].Pass < result.PassStats[j].Pass
	})
	for _, fix := range corrections {
		result.Corrections = append(result.Corrections, report.Correction{
			Cue:       fix.Cue,
			Original:  fix.Original,
			Corrected: fix.Corrected,
			Score:     fix.Score,
			Method:    fix.Method,
		})
	}
	return result
}

// recordSession folds the run's quality metrics into the learning store.
// Learning failures never fail the stage.
func (r *Renderer) recordSession(ctx context.Context, logger *slog.Logger, item *queue.Item, result report.Result, stats transcription.Stats) {
	if r.learning == nil {
		return
	}

	session := &learning.Session{
		UserID:               r.userID,
		Profile:              item.Profile,
		TranscriptionQuality: result.AvgConfidence,
		VADAccuracy:          r.vadAccuracy(item, stats),
		ProcessingSeconds:    stats.Elapsed,
		ContextConfidence:    contextConfidence(result),
		VADParameters: map[string]float64{
			learning.ParamSileroThreshold:     r.cfg.VAD.SileroThreshold,
			learning.ParamEnergyThreshold:     r.cfg.VAD.EnergyThreshold,
			learning.ParamFrameAggressiveness: float64(r.cfg.VAD.FrameAggressiveness),
			learning.ParamMinSpeechSec:        float64(r.cfg.VAD.MinSpeechMs) / 1000,
			learning.ParamMergeGapSec:         float64(r.cfg.VAD.MergeGapMs) / 1000,
		},
	}
	if err := r.learning.RecordSession(ctx, session); err != nil {
		logger.Warn("failed to record learning session", logging.Error(err))
	}
}

// vadAccuracy compares transcribed speech time against detected speech time.
// Agreement near 1.0 means the detector and whisper found the same amount of
// speech.
func (r *Renderer) vadAccuracy(item *queue.Item, stats transcription.Stats) float64 {
	spans, err := stage.ParseSpeechSpans(item.SpeechSpansJSON)
	if err != nil || len(spans) == 0 {
		return 0.5
	}
	detected := vad.TotalSpeech(spans)
	if detected <= 0 || stats.SpeechSeconds <= 0 {
		return 0.5
	}
	ratio := stats.SpeechSeconds / detected
	if ratio > 1 {
		ratio = 1 / ratio
	}
	return ratio
}

// contextConfidence prefers the detection stage's gaming context
// classification; without one it falls back to the fraction of cues that
// needed no correction.
func contextConfidence(result report.Result) float64 {
	if result.ContextConfidence > 0 {
		return result.ContextConfidence
	}
	if result.CueCount == 0 {
		return 0
	}
	touched := map[int]struct{}{}
	for _, fix := range result.Corrections {
		touched[fix.Cue] = struct{}{}
	}
	clean := result.CueCount - len(touched)
	if clean < 0 {
		clean = 0
	}
	return float64(clean) / float64(result.CueCount)
}
