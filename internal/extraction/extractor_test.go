package extraction_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"clipscribe/internal/extraction"
	"clipscribe/internal/media/audio"
	"clipscribe/internal/queue"
	"clipscribe/internal/services"
	"clipscribe/internal/testsupport"
)

func TestExecuteFailsOnMissingSource(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	stage := extraction.NewExtractor(cfg, store, nil)

	item := testsupport.NewFile(t, store, "/nonexistent/clip.mkv")
	err := stage.Execute(context.Background(), item)
	if err == nil {
		t.Fatal("expected error for missing source")
	}
	if !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not-found classification, got %v", err)
	}
}

func TestPrepareSetsProgress(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	stage := extraction.NewExtractor(cfg, store, nil)

	item := testsupport.NewFile(t, store, "/videos/clip.mkv")
	if err := stage.Prepare(context.Background(), item); err != nil {
		t.Fatalf("Prepare failed: %v", err)
	}
	if item.ProgressStage != "Extracting audio" {
		t.Fatalf("unexpected progress stage: %q", item.ProgressStage)
	}
}

func TestExtractorUsesInjectedRunner(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	_ = store

	var captured []string
	fake := audio.NewExtractor("ffmpeg")
	fake.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		captured = append([]string{name}, args...)
		return nil
	})

	dest := t.TempDir()
	path, err := fake.ExtractWAV(context.Background(), "/videos/clip.mkv", dest)
	if err != nil {
		t.Fatalf("ExtractWAV failed: %v", err)
	}
	if !strings.HasSuffix(path, "clip.wav") {
		t.Fatalf("unexpected destination: %q", path)
	}
	if len(captured) == 0 || captured[0] != "ffmpeg" {
		t.Fatalf("runner not invoked with ffmpeg: %v", captured)
	}
}

func TestExecuteRejectsNilItem(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	store := testsupport.MustOpenStore(t, cfg)
	stage := extraction.NewExtractor(cfg, store, nil)

	var item *queue.Item
	if err := stage.Execute(context.Background(), item); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
