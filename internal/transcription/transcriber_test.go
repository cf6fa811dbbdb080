package transcription_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"clipscribe/internal/multipass"
	"clipscribe/internal/services/whisper"
	"clipscribe/internal/subtitle"
	"clipscribe/internal/testsupport"
	"clipscribe/internal/transcription"
)

func TestPromptSelection(t *testing.T) {
	if got := transcription.PromptFor("keywords"); got != whisper.KeywordPrompt {
		t.Fatalf("unexpected keywords prompt: %q", got)
	}
	if got := transcription.PromptFor("long"); got != whisper.ConversationalPrompt {
		t.Fatalf("unexpected long prompt: %q", got)
	}
	if got := transcription.PromptFor("none"); got != "" {
		t.Fatalf("expected empty prompt, got %q", got)
	}
}

func TestCuesFromSegments(t *testing.T) {
	segments := []multipass.Segment{
		{Text: "hola che", Start: 0.5, End: 1.2, Confidence: 0.9},
		{Text: "vamos", Start: 2.0, End: 2.6, Confidence: 0.8},
	}
	cues := transcription.CuesFromSegments(segments)
	if len(cues) != 2 {
		t.Fatalf("expected 2 cues, got %d", len(cues))
	}
	if cues[0].Index != 1 || cues[1].Index != 2 {
		t.Fatalf("cues must be numbered from 1: %#v", cues)
	}
	if cues[0].Text != "hola che" || cues[0].Start != 0.5 {
		t.Fatalf("unexpected first cue: %#v", cues[0])
	}
}

func TestExecuteProducesDraftAndStats(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	cfg.Multipass.Passes = []string{"conservative"}
	store := testsupport.MustOpenStore(t, cfg)

	stageImpl, err := transcription.NewTranscriber(cfg, nil)
	if err != nil {
		t.Fatalf("NewTranscriber failed: %v", err)
	}

	payload := `{"segments":[
        {"text":" dale dale dale","start":1.0,"end":2.5,"avg_logprob":-0.2,"no_speech_prob":0.05},
        {"text":" que clutch","start":4.0,"end":5.0,"avg_logprob":-0.4,"no_speech_prob":0.1}
    ]}`
	stageImpl.Service().WithCommandRunner(func(ctx context.Context, name string, args ...string) error {
		outputDir := ""
		for i, arg := range args {
			if arg == "--output_dir" && i+1 < len(args) {
				outputDir = args[i+1]
			}
		}
		if outputDir == "" {
			return fmt.Errorf("no output dir in args: %v", args)
		}
		return os.WriteFile(filepath.Join(outputDir, "clip.json"), []byte(payload), 0o644)
	})

	audioPath := filepath.Join(t.TempDir(), "clip.wav")
	testsupport.WriteFile(t, audioPath, 64)

	item := testsupport.NewFile(t, store, "/videos/clip.mkv")
	item.AudioFile = audioPath

	if err := stageImpl.Execute(context.Background(), item); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	if item.SubtitleFile == "" {
		t.Fatal("expected draft subtitle path on item")
	}
	cues, err := subtitle.ReadFile(item.SubtitleFile)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if len(cues) == 0 {
		t.Fatal("expected draft cues")
	}

	stats, err := transcription.ReadStats(filepath.Dir(item.SubtitleFile))
	if err != nil {
		t.Fatalf("ReadStats failed: %v", err)
	}
	if stats.Segments == 0 || stats.AvgConfidence <= 0 {
		t.Fatalf("unexpected stats: %#v", stats)
	}
	if _, ok := stats.Passes["conservative"]; !ok {
		t.Fatalf("expected conservative pass stats: %#v", stats.Passes)
	}
}

func TestReadStatsMissingFile(t *testing.T) {
	stats, err := transcription.ReadStats(t.TempDir())
	if err != nil {
		t.Fatalf("ReadStats failed: %v", err)
	}
	if stats.Segments != 0 {
		t.Fatalf("expected zero stats, got %#v", stats)
	}
}
