package audio

import (
	"context"
	"math"
	"path/filepath"
	"slices"
	"testing"
)

func TestWAVRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tone.wav")

	samples := make([]float32, 1600)
	for i := range samples {
		samples[i] = float32(0.5 * math.Sin(2*math.Pi*440*float64(i)/16000))
	}
	if err := WriteWAV(path, 16000, samples); err != nil {
		t.Fatalf("WriteWAV: %v", err)
	}

	clip, err := ReadWAV(path)
	if err != nil {
		t.Fatalf("ReadWAV: %v", err)
	}
	if clip.SampleRate != 16000 {
		t.Fatalf("unexpected sample rate: %d", clip.SampleRate)
	}
	if len(clip.Samples) != len(samples) {
		t.Fatalf("expected %d samples, got %d", len(samples), len(clip.Samples))
	}
	for i := range samples {
		if math.Abs(float64(clip.Samples[i]-samples[i])) > 1.0/32768*2 {
			t.Fatalf("sample %d diverged: %v vs %v", i, clip.Samples[i], samples[i])
		}
	}
	if got := clip.Duration(); math.Abs(got-0.1) > 1e-9 {
		t.Fatalf("unexpected duration: %v", got)
	}
}

func TestReadWAVRejectsNonWAV(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.wav")
	if err := WriteWAV(path, 16000, make([]float32, 16)); err != nil {
		t.Fatalf("WriteWAV: %v", err)
	}
	if _, err := ReadWAV(filepath.Join(dir, "missing.wav")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestExtractWAVBuildsFFmpegArgs(t *testing.T) {
	var captured []string
	extractor := NewExtractor("")
	extractor.WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		captured = append([]string{name}, args...)
		return nil
	})

	dest, err := extractor.ExtractWAV(context.Background(), "/videos/clip.mp4", t.TempDir())
	if err != nil {
		t.Fatalf("ExtractWAV: %v", err)
	}
	if filepath.Base(dest) != "clip.wav" {
		t.Fatalf("unexpected dest: %s", dest)
	}
	if captured[0] != "ffmpeg" {
		t.Fatalf("unexpected binary: %s", captured[0])
	}
	for _, want := range []string{"-vn", "-ac", "1", "-ar", "16000", "-c:a", "pcm_s16le"} {
		if !slices.Contains(captured, want) {
			t.Fatalf("missing arg %q in %v", want, captured)
		}
	}
}

func TestExtractWAVRequiresSource(t *testing.T) {
	extractor := NewExtractor("ffmpeg")
	if _, err := extractor.ExtractWAV(context.Background(), "", ""); err == nil {
		t.Fatal("expected error for empty source")
	}
}
