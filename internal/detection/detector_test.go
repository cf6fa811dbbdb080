package detection_test

import (
	"context"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"clipscribe/internal/detection"
	"clipscribe/internal/media/audio"
	"clipscribe/internal/services"
	"clipscribe/internal/stage"
	"clipscribe/internal/testsupport"
)

func writeToneWAV(t *testing.T, path string) {
	t.Helper()
	const rate = 16000
	samples := make([]float32, rate*2)
	// Loud tone in the middle second, silence around it.
	for i := rate / 2; i < rate*3/2; i++ {
		samples[i] = float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/rate))
	}
	if err := audio.WriteWAV(path, rate, samples); err != nil {
		t.Fatalf("WriteWAV failed: %v", err)
	}
}

func TestExecuteDetectsSpeechSpans(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	wavPath := filepath.Join(t.TempDir(), "clip.wav")
	writeToneWAV(t, wavPath)

	item := testsupport.NewFile(t, store, "/videos/clip.mkv")
	item.AudioFile = wavPath

	detector := detection.NewDetector(cfg, nil)
	if err := detector.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	spans, err := stage.ParseSpeechSpans(item.SpeechSpansJSON)
	if err != nil {
		t.Fatalf("ParseSpeechSpans failed: %v", err)
	}
	if len(spans) == 0 {
		t.Fatal("expected at least one detected span")
	}
	if spans[0].Start > 1.0 || spans[0].End < 1.0 {
		t.Fatalf("expected span covering the tone at 0.5-1.5s, got %+v", spans[0])
	}
}

func TestExecuteFlagsSilentAudioForReview(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	wavPath := filepath.Join(t.TempDir(), "silence.wav")
	if err := audio.WriteWAV(wavPath, 16000, make([]float32, 16000)); err != nil {
		t.Fatalf("WriteWAV failed: %v", err)
	}

	item := testsupport.NewFile(t, store, "/videos/silence.mkv")
	item.AudioFile = wavPath

	detector := detection.NewDetector(cfg, nil)
	if err := detector.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if !item.NeedsReview || item.ReviewReason != "no speech detected" {
		t.Fatalf("silent audio should be flagged for review: %#v", item)
	}
}

func TestExecuteWritesContextArtifact(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	wavPath := filepath.Join(t.TempDir(), "clip.wav")
	writeToneWAV(t, wavPath)

	item := testsupport.NewFile(t, store, "/videos/clip.mkv")
	item.AudioFile = wavPath

	detector := detection.NewDetector(cfg, nil)
	if err := detector.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	workDir, err := stage.ItemWorkDir(cfg, item)
	if err != nil {
		t.Fatalf("ItemWorkDir failed: %v", err)
	}
	report, err := detection.ReadContext(workDir)
	if err != nil {
		t.Fatalf("ReadContext failed: %v", err)
	}
	if report.Context == "" || report.Confidence <= 0 {
		t.Fatalf("expected a classified gaming context: %#v", report)
	}
}

func TestExecuteSkipsContextAnalysisOutsideGamingMode(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.VAD.GamingMode = false
	store := testsupport.MustOpenStore(t, cfg)

	wavPath := filepath.Join(t.TempDir(), "clip.wav")
	writeToneWAV(t, wavPath)

	item := testsupport.NewFile(t, store, "/videos/clip.mkv")
	item.AudioFile = wavPath

	detector := detection.NewDetector(cfg, nil)
	if err := detector.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	workDir, err := stage.ItemWorkDir(cfg, item)
	if err != nil {
		t.Fatalf("ItemWorkDir failed: %v", err)
	}
	report, err := detection.ReadContext(workDir)
	if err != nil {
		t.Fatalf("ReadContext failed: %v", err)
	}
	if report.Context != "" {
		t.Fatalf("context artifact should not be written outside gaming mode: %#v", report)
	}
}

func TestExecuteRequiresAudioFile(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)

	item := testsupport.NewFile(t, store, "/videos/clip.mkv")
	detector := detection.NewDetector(cfg, nil)
	if err := detector.Execute(context.Background(), item); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestHealthCheckReady(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	detector := detection.NewDetector(cfg, nil)
	health := detector.HealthCheck(context.Background())
	if !health.Ready {
		t.Fatalf("expected healthy detection stage: %#v", health)
	}
}
