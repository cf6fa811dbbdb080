package ffprobe

import (
	"math"
	"testing"
)

func TestResultHelpers(t *testing.T) {
	result := Result{
		Streams: []Stream{
			{CodecType: "video"},
			{CodecType: "audio", SampleRate: "48000", Channels: 2},
			{CodecType: "audio", SampleRate: "44100", Channels: 2},
		},
		Format: Format{
			Duration: "123.45",
			Size:     "1000",
		},
	}
	if result.AudioStreamCount() != 2 {
		t.Fatalf("expected 2 audio streams, got %d", result.AudioStreamCount())
	}
	primary, ok := result.PrimaryAudio()
	if !ok || primary.SampleRate != "48000" {
		t.Fatalf("unexpected primary audio: %+v ok=%v", primary, ok)
	}
	if result.DurationSeconds() != 123.45 {
		t.Fatalf("unexpected duration: %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 1000 {
		t.Fatalf("unexpected size: %d", result.SizeBytes())
	}
	if err := result.ValidateForTranscription(); err != nil {
		t.Fatalf("expected valid input, got %v", err)
	}
}

func TestValidateForTranscriptionRejectsSilentContainers(t *testing.T) {
	result := Result{
		Streams: []Stream{{CodecType: "video"}},
		Format:  Format{Duration: "10"},
	}
	if err := result.ValidateForTranscription(); err == nil {
		t.Fatal("expected error for missing audio stream")
	}

	result = Result{
		Streams: []Stream{{CodecType: "audio"}},
		Format:  Format{Duration: "bad"},
	}
	if err := result.ValidateForTranscription(); err == nil {
		t.Fatal("expected error for unusable duration")
	}
}

func TestResultHelpersHandleInvalidNumbers(t *testing.T) {
	result := Result{
		Format: Format{
			Duration: "bad",
			Size:     "-1",
		},
	}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected duration NaN, got %v", result.DurationSeconds())
	}
	if result.SizeBytes() != 0 {
		t.Fatalf("expected size 0, got %d", result.SizeBytes())
	}
}
