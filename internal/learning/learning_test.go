package learning_test

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"clipscribe/internal/learning"
)

func openStore(t *testing.T) *learning.Store {
	t.Helper()
	store, err := learning.OpenPath(filepath.Join(t.TempDir(), "learning.db"), 0.1, nil)
	if err != nil {
		t.Fatalf("OpenPath failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestScoreWeighting(t *testing.T) {
	session := learning.Session{
		TranscriptionQuality: 1.0,
		VADAccuracy:          1.0,
		ProcessingSeconds:    0,
		ContextConfidence:    1.0,
	}
	if got := learning.Score(session); math.Abs(got-1.0) > 1e-9 {
		t.Fatalf("perfect session should score 1.0, got %f", got)
	}

	slow := session
	slow.ProcessingSeconds = 120
	if got := learning.Score(slow); math.Abs(got-0.85) > 1e-9 {
		t.Fatalf("slow session should lose the full speed weight, got %f", got)
	}

	rating := 1.0
	rated := slow
	rated.QualityRating = &rating
	if got := learning.Score(rated); math.Abs(got-0.9) > 1e-9 {
		t.Fatalf("top rating should add 0.05, got %f", got)
	}
}

func TestRecordSessionBuildsProfile(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	session := &learning.Session{
		UserID:               "adriel",
		Profile:              "gaming",
		TranscriptionQuality: 0.9,
		VADAccuracy:          0.85,
		ProcessingSeconds:    20,
		ContextConfidence:    0.8,
		VADParameters: map[string]float64{
			learning.ParamSileroThreshold: 0.5,
			learning.ParamMinSpeechSec:    0.1,
		},
	}
	if err := store.RecordSession(ctx, session); err != nil {
		t.Fatalf("RecordSession failed: %v", err)
	}
	if session.OverallScore <= 0.7 {
		t.Fatalf("expected high-scoring session, got %f", session.OverallScore)
	}
	if session.SessionID == "" {
		t.Fatal("expected session id to be assigned")
	}

	profile, err := store.GetProfile(ctx, "adriel")
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if profile == nil {
		t.Fatal("expected profile to exist")
	}
	if profile.TotalSessions != 1 {
		t.Fatalf("expected 1 session, got %d", profile.TotalSessions)
	}
	pref := profile.ContextPreferences["gaming"]
	expected := 0.9*0.5 + 0.1*session.OverallScore
	if math.Abs(pref-expected) > 1e-9 {
		t.Fatalf("expected EMA preference %f, got %f", expected, pref)
	}
	if _, ok := profile.OptimalVADParameters[learning.ParamSileroThreshold]; !ok {
		t.Fatal("high-scoring session should seed optimal parameters")
	}
}

func TestLowScoringSessionDoesNotSeedOptimalParams(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	session := &learning.Session{
		UserID:               "gabriel",
		Profile:              "fast",
		TranscriptionQuality: 0.2,
		VADAccuracy:          0.3,
		ProcessingSeconds:    90,
		ContextConfidence:    0.1,
		VADParameters:        map[string]float64{learning.ParamSileroThreshold: 0.5},
	}
	if err := store.RecordSession(ctx, session); err != nil {
		t.Fatalf("RecordSession failed: %v", err)
	}
	if session.OverallScore > 0.7 {
		t.Fatalf("expected low score, got %f", session.OverallScore)
	}

	profile, err := store.GetProfile(ctx, "gabriel")
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if len(profile.OptimalVADParameters) != 0 {
		t.Fatalf("low-scoring session must not seed optimal parameters: %#v", profile.OptimalVADParameters)
	}
}

func TestSatisfactionEMA(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	rating := 1.0
	session := &learning.Session{
		UserID:               "estani",
		TranscriptionQuality: 0.8,
		VADAccuracy:          0.8,
		ContextConfidence:    0.8,
		QualityRating:        &rating,
	}
	if err := store.RecordSession(ctx, session); err != nil {
		t.Fatalf("RecordSession failed: %v", err)
	}

	profile, err := store.GetProfile(ctx, "estani")
	if err != nil {
		t.Fatalf("GetProfile failed: %v", err)
	}
	if math.Abs(profile.SatisfactionScore-(0.8*0.5+0.2*1.0)) > 1e-9 {
		t.Fatalf("unexpected satisfaction score: %f", profile.SatisfactionScore)
	}
}

func TestOptimizeRequiresSessions(t *testing.T) {
	store := openStore(t)
	if _, err := store.Optimize(context.Background(), "nobody", learning.ObjectiveAccuracy, 5); err == nil {
		t.Fatal("expected error with no recorded sessions")
	}
}

func TestOptimizeFindsCandidate(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	for i := 0; i < 6; i++ {
		session := &learning.Session{
			UserID:               "wilo",
			Profile:              "gaming",
			TranscriptionQuality: 0.75,
			VADAccuracy:          0.7,
			ProcessingSeconds:    25,
			ContextConfidence:    0.7,
			VADParameters: map[string]float64{
				learning.ParamSileroThreshold:     0.5,
				learning.ParamEnergyThreshold:     0.5,
				learning.ParamFrameAggressiveness: 2,
				learning.ParamMinSpeechSec:        0.1,
				learning.ParamMergeGapSec:         0.3,
			},
		}
		if err := store.RecordSession(ctx, session); err != nil {
			t.Fatalf("RecordSession failed: %v", err)
		}
	}

	result, err := store.Optimize(ctx, "wilo", learning.ObjectiveAccuracy, 5)
	if err != nil {
		t.Fatalf("Optimize failed: %v", err)
	}
	if result.SessionsUsed != 6 {
		t.Fatalf("expected 6 sessions used, got %d", result.SessionsUsed)
	}
	if len(result.Parameters) != 5 {
		t.Fatalf("expected full parameter set, got %#v", result.Parameters)
	}
	// The best configuration matches the sessions' own parameters plus the
	// accuracy bias, so it cannot score below the history it replays.
	if result.OptimizedScore < result.OriginalScore {
		t.Fatalf("optimized score %f below original %f", result.OptimizedScore, result.OriginalScore)
	}
}

func TestShouldOptimize(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		session := &learning.Session{
			UserID:               "corcho",
			TranscriptionQuality: 0.6,
			VADAccuracy:          0.6,
			ContextConfidence:    0.6,
		}
		if err := store.RecordSession(ctx, session); err != nil {
			t.Fatalf("RecordSession failed: %v", err)
		}
	}

	due, err := store.ShouldOptimize(ctx, "corcho", 5, 10)
	if err != nil {
		t.Fatalf("ShouldOptimize failed: %v", err)
	}
	if !due {
		t.Fatal("expected optimization to be due at 10 sessions")
	}

	notDue, err := store.ShouldOptimize(ctx, "corcho", 5, 7)
	if err != nil {
		t.Fatalf("ShouldOptimize failed: %v", err)
	}
	if notDue {
		t.Fatal("10 sessions is not a multiple of 7")
	}
}
