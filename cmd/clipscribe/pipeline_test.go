package main

import (
	"context"
	"path/filepath"
	"testing"

	"clipscribe/internal/config"
	"clipscribe/internal/learning"
)

func seedLearningStore(t *testing.T, params map[string]float64) *learning.Store {
	t.Helper()
	store, err := learning.OpenPath(filepath.Join(t.TempDir(), "learning.db"), 0.1, nil)
	if err != nil {
		t.Fatalf("learning.OpenPath: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	// A high-scoring session seeds the profile's optimal parameters.
	session := &learning.Session{
		UserID:               "valen",
		Profile:              "gaming",
		TranscriptionQuality: 0.95,
		VADAccuracy:          0.9,
		ProcessingSeconds:    5,
		ContextConfidence:    0.8,
		VADParameters:        params,
	}
	if err := store.RecordSession(context.Background(), session); err != nil {
		t.Fatalf("RecordSession: %v", err)
	}
	return store
}

func TestLearnedVADConfigOverlaysProfileParameters(t *testing.T) {
	store := seedLearningStore(t, map[string]float64{
		learning.ParamSileroThreshold:     0.33,
		learning.ParamEnergyThreshold:     0.07,
		learning.ParamFrameAggressiveness: 2,
		learning.ParamMinSpeechSec:        0.3,
		learning.ParamMergeGapSec:         0.45,
	})

	cfgVal := config.Default()
	cfg := &cfgVal
	tuned := learnedVADConfig(context.Background(), store, cfg, "valen", nil)

	if tuned == cfg {
		t.Fatal("expected a tuned copy, got the original config")
	}
	if tuned.VAD.SileroThreshold != 0.33 {
		t.Fatalf("silero threshold not applied: %v", tuned.VAD.SileroThreshold)
	}
	if tuned.VAD.EnergyThreshold != 0.07 {
		t.Fatalf("energy threshold not applied: %v", tuned.VAD.EnergyThreshold)
	}
	if tuned.VAD.FrameAggressiveness != 2 {
		t.Fatalf("frame aggressiveness not applied: %v", tuned.VAD.FrameAggressiveness)
	}
	if tuned.VAD.MinSpeechMs != 300 || tuned.VAD.MergeGapMs != 450 {
		t.Fatalf("durations not applied: min_speech=%d merge_gap=%d",
			tuned.VAD.MinSpeechMs, tuned.VAD.MergeGapMs)
	}
	if cfg.VAD.SileroThreshold == 0.33 {
		t.Fatal("original config must not be mutated")
	}
}

func TestLearnedVADConfigIgnoresOutOfRangeValues(t *testing.T) {
	store := seedLearningStore(t, map[string]float64{
		learning.ParamSileroThreshold:     1.5,
		learning.ParamFrameAggressiveness: 9,
	})

	cfgVal := config.Default()
	cfg := &cfgVal
	tuned := learnedVADConfig(context.Background(), store, cfg, "valen", nil)
	if tuned != cfg {
		t.Fatal("out-of-range parameters should leave the config untouched")
	}
}

func TestLearnedVADConfigWithoutProfile(t *testing.T) {
	store, err := learning.OpenPath(filepath.Join(t.TempDir(), "learning.db"), 0.1, nil)
	if err != nil {
		t.Fatalf("learning.OpenPath: %v", err)
	}
	defer store.Close()

	cfgVal := config.Default()
	cfg := &cfgVal
	if tuned := learnedVADConfig(context.Background(), store, cfg, "nadie", nil); tuned != cfg {
		t.Fatal("missing profile should leave the config untouched")
	}
}
